package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/muninn/pkg/archive"
	"github.com/ssargent/muninn/pkg/evt"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive <file.evt>...",
	Short: "Decode event logs into the record archive",
	Long: `Decode one or more .evt files and store their records in the local
record archive, keyed by source path and record number. Archived records can
be searched later with 'muninn query'.

Example:
  muninn archive SysEvent.evt SecEvent.evt`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		for _, path := range args {
			result, err := evt.ParseFile(path)
			if err != nil {
				return err
			}
			if warning := result.Report.Warning(); warning != "" {
				logger.Warn(warning, "file", path)
			}
			if err := store.Store(result); err != nil {
				return err
			}
			cmd.Printf("Archived %d records from %s\n", len(result.Records), path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}
