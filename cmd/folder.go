package cmd

import (
	"fmt"

	"github.com/kozaktomas/image-search/internal/backend"
	"github.com/kozaktomas/image-search/internal/notify"
	"github.com/kozaktomas/image-search/internal/settings"
	"github.com/spf13/cobra"
)

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Pick an image folder on the search service host",
}

var folderSelectCmd = &cobra.Command{
	Use:   "select",
	Short: "Open the folder picker on the service host",
	Long: `Open the native folder picker on the machine running the search
service and print the chosen path. With --apply the path becomes the
configured location and the settings are saved.`,
	Args: cobra.NoArgs,
	RunE: runFolderSelect,
}

func init() {
	rootCmd.AddCommand(folderCmd)
	folderCmd.AddCommand(folderSelectCmd)
	folderSelectCmd.Flags().Bool("apply", false, "Use the chosen folder as the image location")
}

func runFolderSelect(cmd *cobra.Command, args []string) error {
	apply := mustGetBool(cmd, "apply")

	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	sel, err := a.Client.SelectFolder(cmd.Context())
	if err != nil {
		notify.Error(a.Notifier, backend.Message(err, "Failed to select folder."))
		return err
	}
	if sel.Path == "" {
		if sel.Error != "" {
			notify.Warning(a.Notifier, sel.Error)
		}
		fmt.Println("No folder selected")
		return nil
	}

	fmt.Println(sel.Path)
	if !apply {
		return nil
	}

	a.Session.OpenEditor()
	if err := a.Session.Set(settings.FieldCorpusLocation, sel.Path); err != nil {
		return err
	}
	return a.Session.Commit(cmd.Context())
}
