package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/muninn/pkg/evt"
	"github.com/ssargent/muninn/pkg/format"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <file.evt>",
	Short: "Decode an event log and print its records",
	Long: `Decode a legacy .evt event log file and print its records.

Dirty or damaged files are decoded on a best-effort basis: records that
cannot be located through the file header are recovered by carving, and a
warning describing the recovery is logged.

Examples:
  muninn dump SysEvent.evt
  muninn dump --format=csv --output=security.csv SecEvent.evt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("format")
		pretty, _ := cmd.Flags().GetBool("pretty")
		metadata, _ := cmd.Flags().GetBool("metadata")
		outputPath, _ := cmd.Flags().GetString("output")

		if !cmd.Flags().Changed("format") {
			name = cfg.Output.Format
		}
		if !cmd.Flags().Changed("pretty") {
			pretty = cfg.Output.Pretty
		}
		if !cmd.Flags().Changed("metadata") {
			metadata = cfg.Output.Metadata
		}

		formatter, err := format.New(name, format.Options{Pretty: pretty, Metadata: metadata})
		if err != nil {
			return err
		}

		result, err := evt.ParseFile(args[0])
		if err != nil {
			return err
		}

		if warning := result.Report.Warning(); warning != "" {
			logger.Warn(warning, "file", args[0])
		}
		if result.Stats.Skipped > 0 {
			logger.Warn("dropped undecodable records", "file", args[0], "skipped", result.Stats.Skipped)
		}

		out := os.Stdout
		if outputPath != "" {
			f, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		return formatter.Format(out, result)
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringP("format", "f", "json", "Output format: json, xml or csv")
	dumpCmd.Flags().Bool("pretty", true, "Indent JSON and XML output")
	dumpCmd.Flags().Bool("metadata", true, "Include header and statistics metadata")
	dumpCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
}
