package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/muninn/pkg/evt"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <file.evt>",
	Short: "Show header and scan details for an event log",
	Long: `Show the file header, trust verdict and scan outcome for a legacy
.evt event log without decoding its records.

Example:
  muninn info SysEvent.evt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := evt.Open(args[0])
		if err != nil {
			return err
		}

		info, err := os.Stat(args[0])
		if err != nil {
			return err
		}

		header := f.Header()
		report := f.Report()

		cmd.Printf("File:            %s (%d bytes)\n", args[0], info.Size())
		cmd.Printf("Version:         %d.%d\n", header.MajorVersion, header.MinorVersion)
		cmd.Printf("Flags:           dirty=%v wrapped=%v archived=%v\n",
			header.IsDirty(), header.IsWrapped(), header.IsArchived())
		cmd.Printf("Record numbers:  oldest=%d current=%d (expected %d)\n",
			header.OldestRecordNumber, header.CurrentRecordNumber, header.ExpectedRecords())
		cmd.Printf("Data region:     start=0x%X end=0x%X max=0x%X\n",
			header.StartOffset, header.EndOffset, header.MaxSize)
		cmd.Printf("Header trusted:  %v\n", header.Trustworthy(info.Size()))
		cmd.Printf("Scan strategy:   %s\n", report.Strategy)
		cmd.Printf("Records found:   %d (%d recovered)\n", report.Records, report.Recovered)
		if report.SkippedBytes > 0 {
			cmd.Printf("Skipped:         %d bytes in %d ranges\n", report.SkippedBytes, report.SkippedRanges)
		}
		if warning := report.Warning(); warning != "" {
			cmd.Printf("Warning:         %s\n", warning)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
