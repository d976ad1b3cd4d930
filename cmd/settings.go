package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/kozaktomas/image-search/internal/settings"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the retrieval settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the committed retrieval settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <field=value>...",
	Short: "Change settings and save them to the search service",
	Long: `Change one or more settings and commit them.

Fields:
  url             image folder to search
  k               number of results (at least 1)
  threshold       similarity threshold within [-1, 1]
  selectedIndex   IndexFlatL2, IndexIVFFlat or IndexIVFPQ
  selectedDevice  cpu or gpu
  folderName      label used for the exported zip archive

An empty value clears the field. Edits are validated before anything is
committed.

Example:
  image-search settings set url=/data/photos k=12 threshold=0.25 selectedIndex=FlatL2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSettingsSet,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)

	settingsShowCmd.Flags().Bool("json", false, "Output as JSON")
}

type settingsOutput struct {
	settings.Configuration
	Complete    bool     `json:"complete"`
	ExportLabel string   `json:"folderName"`
	History     []string `json:"savedUrls"`
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	a, err := openApp(cmd.Context(), jsonOutput)
	if err != nil {
		return err
	}
	defer a.Close()

	committed := a.Session.Committed()
	out := settingsOutput{
		Configuration: committed,
		Complete:      committed.Complete(),
		ExportLabel:   a.Session.ExportLabel(),
		History:       a.Session.History(),
	}

	if jsonOutput {
		return printJSON(out)
	}

	printSettings(out)
	return nil
}

func printSettings(out settingsOutput) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Location:\t%s\n", orUnset(out.CorpusLocation))
	fmt.Fprintf(w, "Results (k):\t%s\n", formatInt(out.ResultCount))
	fmt.Fprintf(w, "Threshold:\t%s\n", formatFloat(out.SimilarityThreshold))
	fmt.Fprintf(w, "Index:\t%s\n", orUnset(string(out.IndexAlgorithm)))
	fmt.Fprintf(w, "Device:\t%s\n", orUnset(string(out.ComputeDevice)))
	fmt.Fprintf(w, "Export label:\t%s\n", out.ExportLabel)
	fmt.Fprintf(w, "Complete:\t%t\n", out.Complete)
	w.Flush()

	if len(out.History) > 0 {
		fmt.Println("\nRecent locations:")
		for i, loc := range out.History {
			fmt.Printf("  %d. %s\n", i+1, loc)
		}
	}
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	edits, err := parseEdits(args)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Session.OpenEditor()
	var editErr error
	a.Session.Edit(func(d *settings.Draft) {
		next := *d
		next.Configuration = d.Configuration.Clone()
		for _, e := range edits {
			if editErr = next.Set(e.field, e.value); editErr != nil {
				return
			}
		}
		*d = next
	})
	if editErr != nil {
		return editErr
	}

	return a.Session.Commit(cmd.Context())
}

type edit struct {
	field settings.Field
	value string
}

func parseEdits(args []string) ([]edit, error) {
	edits := make([]edit, 0, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		field, err := parseField(name)
		if err != nil {
			return nil, err
		}
		edits = append(edits, edit{field: field, value: value})
	}
	return edits, nil
}

func parseField(name string) (settings.Field, error) {
	name = strings.TrimSpace(name)
	for _, f := range settings.Fields {
		if strings.EqualFold(string(f), name) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown settings field %q", name)
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

func formatInt(v *int) string {
	if v == nil {
		return "(unset)"
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return "(unset)"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
