package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/muninn/pkg/archive"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query [source]",
	Short: "Search the record archive",
	Long: `Search records stored in the local archive. Without arguments the
command lists the archived source paths; with a source it prints that
source's records, optionally filtered by exact field match.

Examples:
  muninn query
  muninn query SysEvent.evt
  muninn query SysEvent.evt --field=event_type --value=error`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 0 {
			sources, err := store.Sources()
			if err != nil {
				return err
			}
			for _, source := range sources {
				cmd.Println(source)
			}
			return nil
		}

		field, _ := cmd.Flags().GetString("field")
		value, _ := cmd.Flags().GetString("value")

		records, err := store.Query(args[0], archive.Filter{Field: field, Equals: value})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().String("field", "", "Field to filter on, e.g. source or event_id")
	queryCmd.Flags().String("value", "", "Exact value the field must equal")
}
