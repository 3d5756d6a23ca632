package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ssargent/muninn/pkg/convert"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <file.evt>",
	Short: "Convert an event log to the modern .evtx format",
	Long: `Convert a legacy .evt event log to the modern .evtx format using
the wevtutil tool. Conversion is only available on Windows, where wevtutil
ships with the operating system.

Examples:
  muninn convert SysEvent.evt
  muninn convert --output=sys.evtx --overwrite SysEvent.evt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, _ := cmd.Flags().GetString("output")
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		result := convert.Convert(cmd.Context(), args[0], convert.Options{
			OutputFile: outputFile,
			Overwrite:  overwrite,
		})

		switch result.Status {
		case convert.StatusConverted:
			cmd.Printf("Converted %s -> %s\n", result.InputFile, result.OutputFile)
			return nil
		case convert.StatusSkipped:
			cmd.Printf("Skipped %s: output %s already exists (use --overwrite)\n",
				result.InputFile, result.OutputFile)
			return nil
		default:
			if errors.Is(result.Err, convert.ErrPlatformNotSupported) {
				cmd.Printf("Conversion requires Windows; decode with 'muninn dump' instead\n")
			}
			return result.Err
		}
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringP("output", "o", "", "Output .evtx path (default: next to the input)")
	convertCmd.Flags().Bool("overwrite", false, "Replace an existing output file")
}
