package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/muninn/pkg/archive"
	"github.com/ssargent/muninn/pkg/batch"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <directory>",
	Short: "Decode every event log in a directory",
	Long: `Decode every .evt file in a directory, writing one output file per
input. Files are processed in parallel; a file that fails to decode never
stops the rest of the batch.

Examples:
  muninn batch ./logs
  muninn batch --recursive --format=csv --output-dir=./decoded ./logs
  muninn batch --archive ./logs`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")
		workers, _ := cmd.Flags().GetInt("workers")
		outputDir, _ := cmd.Flags().GetString("output-dir")
		name, _ := cmd.Flags().GetString("format")
		useArchive, _ := cmd.Flags().GetBool("archive")

		if !cmd.Flags().Changed("recursive") {
			recursive = cfg.Batch.Recursive
		}
		if !cmd.Flags().Changed("workers") {
			workers = cfg.Batch.Workers
		}
		if !cmd.Flags().Changed("format") {
			name = cfg.Output.Format
		}

		files, err := batch.FindLogFiles(args[0], recursive)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			cmd.Printf("No .evt files found in %s\n", args[0])
			return nil
		}

		opts := batch.Options{
			Workers:   workers,
			OutputDir: outputDir,
			Format:    name,
			Pretty:    cfg.Output.Pretty,
			Metadata:  cfg.Output.Metadata,
		}

		if useArchive {
			store, err := archive.Open(cfg.Archive.Path)
			if err != nil {
				return err
			}
			defer store.Close()
			opts.Sink = store
		}

		summary := batch.Run(cmd.Context(), files, opts, logger)

		cmd.Printf("Job %s: %d succeeded, %d failed, %d records decoded in %s\n",
			summary.JobID, summary.Succeeded, summary.Failed, summary.Records,
			summary.Duration.Round(time.Millisecond))
		for _, report := range summary.Reports {
			if report.Err != nil {
				cmd.Printf("  %s: %v\n", report.Path, report.Err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().BoolP("recursive", "r", false, "Descend into subdirectories")
	batchCmd.Flags().IntP("workers", "w", 0, "Parallel workers (0 = one per CPU)")
	batchCmd.Flags().String("output-dir", "", "Directory for output files (default: next to inputs)")
	batchCmd.Flags().StringP("format", "f", "json", "Output format: json, xml or csv")
	batchCmd.Flags().Bool("archive", false, "Also store decoded records in the record archive")
}
