package batch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/muninn/pkg/evt"
	"github.com/ssargent/muninn/pkg/evt/evttest"
)

func sampleSpecs() []evttest.RecordSpec {
	return []evttest.RecordSpec{
		{Number: 1, EventID: 100, EventType: 4, Source: "App", Computer: "HOST"},
		{Number: 2, EventID: 200, EventType: 2, Source: "App", Computer: "HOST"},
	}
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestFindLogFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "archive")
	require.NoError(t, os.MkdirAll(sub, 0755))

	writeFile(t, dir, "system.evt", evttest.BuildLog(sampleSpecs()...))
	writeFile(t, dir, "APP.EVT", evttest.BuildLog(sampleSpecs()...))
	writeFile(t, dir, "notes.txt", []byte("not a log"))
	writeFile(t, sub, "old.evt", evttest.BuildLog(sampleSpecs()...))

	flat, err := FindLogFiles(dir, false)
	require.NoError(t, err)
	assert.Len(t, flat, 2)

	deep, err := FindLogFiles(dir, true)
	require.NoError(t, err)
	assert.Len(t, deep, 3)

	_, err = FindLogFiles(filepath.Join(dir, "missing"), false)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")

	writeFile(t, dir, "a.evt", evttest.BuildLog(sampleSpecs()...))
	writeFile(t, dir, "b.evt", evttest.BuildDirtyLog(sampleSpecs()...))

	files, err := FindLogFiles(dir, false)
	require.NoError(t, err)

	summary := Run(context.Background(), files, Options{
		Workers:   2,
		OutputDir: outDir,
		Format:    "json",
		Metadata:  true,
	}, nil)

	assert.NotEmpty(t, summary.JobID)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 4, summary.Records)

	for _, report := range summary.Reports {
		require.NoError(t, report.Err)
		_, statErr := os.Stat(report.OutputPath)
		assert.NoError(t, statErr, "formatted output exists for %s", report.Path)
	}
}

func TestRun_StructuralErrorDoesNotAbortSiblings(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "good.evt", evttest.BuildLog(sampleSpecs()...))

	broken := evttest.BuildLog(sampleSpecs()...)
	copy(broken[4:8], "XXXX")
	writeFile(t, dir, "bad.evt", broken)

	files, err := FindLogFiles(dir, false)
	require.NoError(t, err)

	summary := Run(context.Background(), files, Options{Format: "csv"}, nil)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	var structural *evt.StructuralError
	for _, report := range summary.Reports {
		if report.Err != nil {
			assert.ErrorAs(t, report.Err, &structural)
		}
	}
}

func TestRun_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.evt", evttest.BuildLog(sampleSpecs()...))
	writeFile(t, dir, "b.evt", evttest.BuildLog(sampleSpecs()...))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files, err := FindLogFiles(dir, false)
	require.NoError(t, err)

	summary := Run(ctx, files, Options{}, nil)
	assert.Equal(t, len(files), summary.Succeeded+summary.Failed)
}

// recordingSink counts stored results.
type recordingSink struct {
	mu      sync.Mutex
	results []*evt.ParseResult
}

func (s *recordingSink) Store(result *evt.ParseResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func TestRun_Sink(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.evt", evttest.BuildLog(sampleSpecs()...))

	sink := &recordingSink{}
	files, err := FindLogFiles(dir, false)
	require.NoError(t, err)

	summary := Run(context.Background(), files, Options{Sink: sink}, nil)

	require.Equal(t, 1, summary.Succeeded)
	require.Len(t, sink.results, 1)
	assert.Len(t, sink.results[0].Records, 2)
}
