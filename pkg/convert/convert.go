// Package convert shells out to the platform's wevtutil tool to turn a
// legacy .evt file into the newer .evtx container. The conversion consumes
// only the original file path; nothing produced by the parser feeds into it,
// and the input is never modified.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Sentinel errors for environment preconditions.
var (
	ErrPlatformNotSupported = errors.New("evt to evtx conversion requires Windows")
	ErrToolNotFound         = errors.New("wevtutil not found in PATH")
)

// Status classifies the outcome of one conversion attempt.
type Status int

const (
	StatusConverted Status = iota
	StatusSkipped          // output already exists and overwrite is off
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConverted:
		return "converted"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown_%d", int(s))
	}
}

// Result describes one conversion attempt.
type Result struct {
	Status     Status
	InputFile  string
	OutputFile string
	Err        error
}

// Options control a conversion.
type Options struct {
	// OutputFile overrides the derived <input>.evtx path.
	OutputFile string
	// Overwrite replaces an existing output file instead of skipping.
	Overwrite bool
}

// OutputPath derives the .evtx path for an input .evt file, optionally
// placing it in outputDir.
func OutputPath(inputFile, outputDir string) string {
	base := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile)) + ".evtx"
	if outputDir != "" {
		return filepath.Join(outputDir, base)
	}
	return filepath.Join(filepath.Dir(inputFile), base)
}

// CheckPlatform verifies the current platform can run wevtutil.
func CheckPlatform() error {
	if runtime.GOOS != "windows" {
		return fmt.Errorf("%w (running on %s)", ErrPlatformNotSupported, runtime.GOOS)
	}
	return nil
}

// CheckTool verifies that wevtutil is resolvable in PATH.
func CheckTool() error {
	if _, err := exec.LookPath("wevtutil"); err != nil {
		return ErrToolNotFound
	}
	return nil
}

// ValidateInput checks that inputFile exists, carries the .evt extension and
// starts with the legacy LfLe signature at offset 4.
func ValidateInput(inputFile string) error {
	info, err := os.Stat(inputFile)
	if err != nil {
		return fmt.Errorf("input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path is a directory: %s", inputFile)
	}
	if !strings.EqualFold(filepath.Ext(inputFile), ".evt") {
		return fmt.Errorf("input file must have .evt extension: %s", inputFile)
	}
	return ProbeSignature(inputFile)
}

// ProbeSignature reads just enough of the file to verify the LfLe signature
// at offset 4.
func ProbeSignature(inputFile string) error {
	f, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("cannot read input file: %w", err)
	}
	defer f.Close()

	header := make([]byte, 8)
	if _, err := f.ReadAt(header, 0); err != nil {
		return fmt.Errorf("file too small for EVT signature: %s", inputFile)
	}
	if !bytes.Equal(header[4:8], []byte("LfLe")) {
		return fmt.Errorf("missing LfLe signature at offset 0x04: %s", inputFile)
	}
	return nil
}

// Convert runs wevtutil epl <in> <out> /lf:true. The /lf:true flag tells
// wevtutil that the source is a log file rather than a channel name. Use the
// context for timeouts on very large logs.
func Convert(ctx context.Context, inputFile string, opts Options) Result {
	outputFile := opts.OutputFile
	if outputFile == "" {
		outputFile = OutputPath(inputFile, "")
	}

	result := Result{InputFile: inputFile, OutputFile: outputFile}

	if err := CheckPlatform(); err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}
	if err := CheckTool(); err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}
	if err := ValidateInput(inputFile); err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	if _, err := os.Stat(outputFile); err == nil && !opts.Overwrite {
		result.Status = StatusSkipped
		result.Err = errors.New("output file exists and overwrite is disabled")
		return result
	}

	cmd := exec.CommandContext(ctx, "wevtutil", "epl", inputFile, outputFile, "/lf:true")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("wevtutil failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
		return result
	}

	if _, err := os.Stat(outputFile); err != nil {
		result.Status = StatusFailed
		result.Err = errors.New("output file was not created by wevtutil")
		return result
	}

	result.Status = StatusConverted
	return result
}
