package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/kozaktomas/image-search/internal/constants"
	"github.com/kozaktomas/image-search/internal/export"
	"github.com/kozaktomas/image-search/internal/search"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the configured image folder with a text query",
	Long: `Search the configured image folder for images matching a text query.

The search uses the committed settings (see "image-search settings") and
falls back to the two most recent locations. When the service corrects the
query, the suggestion is printed; pass --accept-suggestion to search for it
right away.

Examples:
  image-search search a dog on the beach
  image-search search "two people at dinner" --face alice --face bob
  image-search search sunset --zip ./exports --label holidays`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringSlice("face", nil, "Only return images containing these registered faces")
	searchCmd.Flags().String("zip", "", "Write the results as a zip archive into this directory")
	searchCmd.Flags().String("label", "", "Archive name (defaults to the saved export label)")
	searchCmd.Flags().Bool("accept-suggestion", false, "Repeat the search with the corrected query if one is suggested")
	searchCmd.Flags().Bool("json", false, "Output as JSON")
}

type searchImageOutput struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

type searchOutput struct {
	Query          string              `json:"query"`
	CorrectedQuery *string             `json:"correctedQuery"`
	Images         []searchImageOutput `json:"images"`
	Warnings       []string            `json:"warnings,omitempty"`
	Archive        string              `json:"archive,omitempty"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.TrimSpace(strings.Join(args, " "))
	faceFilter := mustGetStringSlice(cmd, "face")
	zipDir := mustGetString(cmd, "zip")
	label := mustGetString(cmd, "label")
	acceptSuggestion := mustGetBool(cmd, "accept-suggestion")
	jsonOutput := mustGetBool(cmd, "json")

	a, err := openApp(ctx, jsonOutput)
	if err != nil {
		return err
	}
	defer a.Close()

	if missing := a.Search.Readiness(query); len(missing) > 0 {
		return fmt.Errorf("%s (see \"image-search settings set\")", search.TooltipText(missing))
	}

	if len(faceFilter) > 0 {
		if err := a.Faces.SetActiveFilter(faceFilter); err != nil {
			return fmt.Errorf("%w (available: %s)", err, strings.Join(a.Faces.State().Available, ", "))
		}
	}

	result, err := a.Search.Search(ctx, query)
	if err != nil {
		return err
	}

	if result.CorrectedQuery != "" && acceptSuggestion {
		if !jsonOutput {
			fmt.Printf("Searching for %q instead\n", result.CorrectedQuery)
		}
		result, err = a.Search.AcceptSuggestion(ctx)
		if err != nil {
			return err
		}
	}

	var archive string
	if zipDir != "" {
		if label == "" {
			label = a.Session.ExportLabel()
		}
		archive, err = writeArchive(cmd, zipDir, label, result.Images, jsonOutput)
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		return printSearchJSON(result, archive)
	}

	printSearchTable(result)
	if result.CorrectedQuery != "" && !acceptSuggestion {
		fmt.Printf("\nDid you mean %q? Re-run with --accept-suggestion to search for it.\n", result.CorrectedQuery)
	}
	if archive != "" {
		fmt.Printf("\nSaved %d images to %s\n", len(result.Images), archive)
	}
	return nil
}

func writeArchive(cmd *cobra.Command, dir, label string, images []search.Image, quiet bool) (string, error) {
	if quiet {
		path, err := export.ToDir(cmd.Context(), dir, label, images, nil)
		if err != nil {
			return "", fmt.Errorf("exporting results: %w", err)
		}
		return path, nil
	}

	bar := progressbar.NewOptions(len(images),
		progressbar.OptionSetDescription("Writing archive"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(constants.ProgressBarWidth),
	)
	path, err := export.ToDir(cmd.Context(), dir, label, images, func(done int) {
		_ = bar.Set(done)
	})
	_ = bar.Finish()
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("exporting results: %w", err)
	}
	return path, nil
}

func printSearchTable(result *search.Result) {
	if len(result.Images) == 0 {
		fmt.Printf("No images found for %q\n", result.Query)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tTYPE\tSIZE")
	fmt.Fprintln(w, "-\t----\t----\t----")
	for i, img := range result.Images {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, img.Name, img.ContentType(), formatBytes(len(img.Data)))
	}
	w.Flush()
}

func printSearchJSON(result *search.Result, archive string) error {
	out := searchOutput{
		Query:    result.Query,
		Images:   make([]searchImageOutput, 0, len(result.Images)),
		Warnings: result.Warnings,
		Archive:  archive,
	}
	if result.CorrectedQuery != "" {
		corrected := result.CorrectedQuery
		out.CorrectedQuery = &corrected
	}
	for _, img := range result.Images {
		out.Images = append(out.Images, searchImageOutput{
			Name:        img.Name,
			ContentType: img.ContentType(),
			Size:        len(img.Data),
		})
	}

	return printJSON(out)
}

func formatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
