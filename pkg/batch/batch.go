// Package batch drives parsing of many EVT files. Each file touches only its
// own read-only input and produces an independent output, so the driver runs
// one worker per file with no coordination beyond aggregating reports: one
// file's structural failure never aborts its siblings.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/muninn/pkg/evt"
	"github.com/ssargent/muninn/pkg/format"
)

// Sink receives each file's complete parse result, e.g. to archive it.
// Implementations must be safe for concurrent use.
type Sink interface {
	Store(result *evt.ParseResult) error
}

// Options configure one batch run.
type Options struct {
	Workers   int    // 0 = one per CPU
	OutputDir string // "" = write next to each input file
	Format    string // json, xml or csv
	Pretty    bool
	Metadata  bool
	Sink      Sink // optional
}

// FileReport is the per-file outcome of a batch run.
type FileReport struct {
	Path       string
	OutputPath string
	Report     evt.ScanReport
	Stats      evt.ParseStats
	Err        error
}

// Summary aggregates a whole run.
type Summary struct {
	JobID     string
	Reports   []FileReport
	Succeeded int
	Failed    int
	Records   int
	Skipped   int
	Duration  time.Duration
}

// FindLogFiles locates .evt files under dir, sorted for deterministic runs.
func FindLogFiles(dir string, recursive bool) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var files []string
	if recursive {
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isLogFile(path) {
				files = append(files, path)
			}
			return nil
		})
	} else {
		var entries []fs.DirEntry
		entries, err = os.ReadDir(dir)
		for _, entry := range entries {
			if !entry.IsDir() && isLogFile(entry.Name()) {
				files = append(files, filepath.Join(dir, entry.Name()))
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}

func isLogFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".evt")
}

// Run parses every file with a pool of workers and writes one formatted
// output per input. The context cancels scheduling of not-yet-started files;
// in-flight files finish, so no partial output is left behind by a cancel.
func Run(ctx context.Context, files []string, opts Options, logger *slog.Logger) Summary {
	start := time.Now()
	if logger == nil {
		logger = slog.Default()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) {
		workers = len(files)
	}

	summary := Summary{
		JobID:   ksuid.New().String(),
		Reports: make([]FileReport, len(files)),
	}
	logger = logger.With(slog.String("job_id", summary.JobID))
	logger.Info("batch started",
		slog.Int("files", len(files)),
		slog.Int("workers", workers))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				summary.Reports[i] = processFile(files[i], opts, logger)
			}
		}()
	}

scheduling:
	for i := range files {
		select {
		case <-ctx.Done():
			for j := i; j < len(files); j++ {
				summary.Reports[j] = FileReport{Path: files[j], Err: ctx.Err()}
			}
			break scheduling
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	for _, report := range summary.Reports {
		if report.Err != nil {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		summary.Records += report.Stats.Decoded
		summary.Skipped += report.Stats.Skipped
	}

	summary.Duration = time.Since(start)
	logger.Info("batch finished",
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Int("records", summary.Records),
		slog.Duration("duration", summary.Duration))
	return summary
}

func processFile(path string, opts Options, logger *slog.Logger) FileReport {
	report := FileReport{Path: path}

	result, err := evt.ParseFile(path)
	if err != nil {
		logger.Error("parse failed", slog.String("file", path), slog.Any("error", err))
		report.Err = err
		return report
	}
	report.Report = result.Report
	report.Stats = result.Stats

	if warning := result.Report.Warning(); warning != "" {
		logger.Warn(warning, slog.String("file", path))
	}

	if opts.Sink != nil {
		if err := opts.Sink.Store(result); err != nil {
			report.Err = fmt.Errorf("archiving %s: %w", path, err)
			return report
		}
	}

	report.OutputPath, report.Err = writeOutput(path, result, opts)
	if report.Err == nil {
		logger.Info("file processed",
			slog.String("file", path),
			slog.String("strategy", result.Report.Strategy.String()),
			slog.Int("records", result.Stats.Decoded),
			slog.Int("skipped", result.Stats.Skipped))
	}
	return report
}

func writeOutput(path string, result *evt.ParseResult, opts Options) (string, error) {
	name := opts.Format
	if name == "" {
		name = "json"
	}
	formatter, err := format.New(name, format.Options{Pretty: opts.Pretty, Metadata: opts.Metadata})
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "." + strings.ToLower(name)
	outPath := filepath.Join(filepath.Dir(path), base)
	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
			return "", err
		}
		outPath = filepath.Join(opts.OutputDir, base)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if err := formatter.Format(out, result); err != nil {
		return "", err
	}
	return outPath, nil
}
