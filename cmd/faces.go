package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/image-search/internal/backend"
	"github.com/kozaktomas/image-search/internal/faces"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Manage registered faces and face metadata",
}

var facesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every face registered with the service",
	Args:  cobra.NoArgs,
	RunE:  runFacesList,
}

var facesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show face metadata for the configured location",
	Args:  cobra.NoArgs,
	RunE:  runFacesStatus,
}

var facesRegisterCmd = &cobra.Command{
	Use:   "register <name> <image>",
	Short: "Register a face from a reference image",
	Long: `Register a face under a name from a reference image.

Large images are downscaled before upload.

Example:
  image-search faces register alice ./alice.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: runFacesRegister,
}

var facesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a registered face",
	Args:  cobra.ExactArgs(1),
	RunE:  runFacesDelete,
}

var facesScanCmd = &cobra.Command{
	Use:   "scan [folder]",
	Short: "Scan a folder for registered faces",
	Long: `Scan a folder for the given faces and record face metadata for it.
The folder defaults to the configured location.

Example:
  image-search faces scan /data/photos --face alice --face bob`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFacesScan,
}

var facesRecognizeCmd = &cobra.Command{
	Use:   "recognize [folder]",
	Short: "Copy images containing the given faces into a sibling folder",
	Long: `Copy every image in a folder that contains one of the given faces
into a folder next to it. The folder defaults to the configured location.

Example:
  image-search faces recognize /data/photos --face alice --output-name alice_photos`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFacesRecognize,
}

func init() {
	rootCmd.AddCommand(facesCmd)
	facesCmd.AddCommand(facesListCmd)
	facesCmd.AddCommand(facesStatusCmd)
	facesCmd.AddCommand(facesRegisterCmd)
	facesCmd.AddCommand(facesDeleteCmd)
	facesCmd.AddCommand(facesScanCmd)
	facesCmd.AddCommand(facesRecognizeCmd)

	facesListCmd.Flags().Bool("json", false, "Output as JSON")
	facesStatusCmd.Flags().Bool("json", false, "Output as JSON")

	for _, c := range []*cobra.Command{facesScanCmd, facesRecognizeCmd} {
		c.Flags().StringSlice("face", nil, "Faces to look for (required)")
		c.Flags().Float64("threshold", 0, "Match threshold (0 uses the default)")
		c.Flags().Bool("json", false, "Output as JSON")
	}
	facesRecognizeCmd.Flags().String("output-name", "", "Name of the output folder (default from configuration)")
}

func runFacesList(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	a, err := openApp(cmd.Context(), jsonOutput)
	if err != nil {
		return err
	}
	defer a.Close()

	known, err := a.Faces.KnownFaces(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(known)
	}
	if len(known) == 0 {
		fmt.Println("No registered faces")
		return nil
	}
	fmt.Printf("Registered faces (%d):\n", len(known))
	for _, name := range known {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

func runFacesStatus(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	a, err := openApp(cmd.Context(), jsonOutput)
	if err != nil {
		return err
	}
	defer a.Close()

	state := a.Faces.State()
	if jsonOutput {
		return printJSON(state)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Location:\t%s\n", orUnset(state.Location))
	fmt.Fprintf(w, "Metadata:\t%t\n", state.HasMetadata)
	fmt.Fprintf(w, "Faces:\t%s\n", joinOrNone(state.Available))
	w.Flush()
	return nil
}

func runFacesRegister(cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Faces.Register(cmd.Context(), name, data)
}

func runFacesDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Faces.Delete(cmd.Context(), args[0])
}

func runFacesScan(cmd *cobra.Command, args []string) error {
	targets := mustGetStringSlice(cmd, "face")
	threshold := mustGetFloat64(cmd, "threshold")
	jsonOutput := mustGetBool(cmd, "json")

	a, err := openApp(cmd.Context(), jsonOutput)
	if err != nil {
		return err
	}
	defer a.Close()

	folder := folderArg(args, a.Session.Committed().CorpusLocation)
	res, err := withSpinner("Scanning "+folder, jsonOutput, func() (*backend.ScanResult, error) {
		return a.Faces.Scan(cmd.Context(), faces.ScanOptions{
			Folder:      folder,
			TargetFaces: targets,
			Threshold:   threshold,
		})
	})
	if err != nil {
		return err
	}
	return printScanResult(res, jsonOutput)
}

func runFacesRecognize(cmd *cobra.Command, args []string) error {
	targets := mustGetStringSlice(cmd, "face")
	threshold := mustGetFloat64(cmd, "threshold")
	outputName := mustGetString(cmd, "output-name")
	jsonOutput := mustGetBool(cmd, "json")

	a, err := openApp(cmd.Context(), jsonOutput)
	if err != nil {
		return err
	}
	defer a.Close()

	folder := folderArg(args, a.Session.Committed().CorpusLocation)
	res, err := withSpinner("Recognizing faces in "+folder, jsonOutput, func() (*backend.ScanResult, error) {
		return a.Faces.Recognize(cmd.Context(), faces.RecognizeOptions{
			InputFolder: folder,
			OutputName:  outputName,
			TargetFaces: targets,
			Threshold:   threshold,
		})
	})
	if err != nil {
		return err
	}
	return printScanResult(res, jsonOutput)
}

func folderArg(args []string, fallback string) string {
	if len(args) > 0 {
		return args[0]
	}
	return fallback
}

// withSpinner runs fn while an indeterminate progress bar spins.
func withSpinner(description string, quiet bool, fn func() (*backend.ScanResult, error)) (*backend.ScanResult, error) {
	if quiet {
		return fn()
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	res, err := fn()
	cancel()
	<-done
	_ = bar.Finish()
	fmt.Println()
	return res, err
}

func printScanResult(res *backend.ScanResult, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(res)
	}

	fmt.Printf("Scanned: %d\n", res.Total())
	fmt.Printf("Matched: %d\n", res.Matched())
	if res.OutputFolder != "" {
		fmt.Printf("Output:  %s\n", res.OutputFolder)
	}

	if len(res.Breakdown) > 0 {
		names := make([]string, 0, len(res.Breakdown))
		for name := range res.Breakdown {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FACE\tIMAGES")
		fmt.Fprintln(w, "----\t------")
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%d\n", name, res.Breakdown[name])
		}
		w.Flush()
	}
	return nil
}

func joinOrNone(list []string) string {
	if len(list) == 0 {
		return "(none)"
	}
	return strings.Join(list, ", ")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
