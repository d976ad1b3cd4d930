package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently used image locations",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	a, err := openApp(cmd.Context(), jsonOutput)
	if err != nil {
		return err
	}
	defer a.Close()

	entries := a.Session.History()
	if jsonOutput {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No recent locations")
		return nil
	}
	for i, loc := range entries {
		fmt.Printf("%d. %s\n", i+1, loc)
	}
	return nil
}
