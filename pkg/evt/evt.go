// Package evt decodes legacy binary Windows event-log (EVT) files: a
// header-described circular buffer of length-prefixed records that may have
// been copied while still open, or corrupted outright.
//
// The pipeline is strictly forward: the file header is parsed and judged
// once, a single scan pass produces validated raw record ranges (either by
// header-directed traversal or by byte-level carving), and records are then
// decoded lazily, one at a time. The input file is never written to.
package evt

import (
	"fmt"
	"os"
	"time"
)

// File is one opened EVT file with its scan already performed. It is
// read-only and safe to iterate from a single goroutine; separate files can
// be processed concurrently without coordination.
type File struct {
	path   string
	data   []byte
	header FileHeader
	raws   []RawRecord
	report ScanReport
}

// Open reads an EVT file, parses and judges its header, and scans for record
// ranges. A *StructuralError is returned when the file's magic signature or
// fixed header size are wrong; any other inconsistency degrades to recovery
// scanning instead of failing.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return New(path, data)
}

// New is Open for bytes already in memory. path is used only for reporting.
func New(path string, data []byte) (*File, error) {
	header, err := ParseFileHeader(data)
	if err != nil {
		return nil, &StructuralError{Path: path, Err: err}
	}

	raws, report := NewScanner(data, header).Scan()

	return &File{
		path:   path,
		data:   data,
		header: header,
		raws:   raws,
		report: report,
	}, nil
}

// Path returns the file path given at open time.
func (f *File) Path() string { return f.path }

// Header returns the parsed file header.
func (f *File) Header() FileHeader { return f.header }

// Report returns the scan report for this file.
func (f *File) Report() ScanReport { return f.report }

// RawRecords returns the validated record ranges in emission order.
func (f *File) RawRecords() []RawRecord { return f.raws }

// Iterator returns a lazy, single-producer iterator over decoded records.
// Candidates that fail field-bounds checking are dropped and counted in the
// iterator's stats; they never stop the iteration.
func (f *File) Iterator() *RecordIterator {
	return &RecordIterator{file: f}
}

// RecordIterator streams decoded records from a scanned file.
type RecordIterator struct {
	file    *File
	next    int
	current Record
	stats   ParseStats
}

// Next advances to the next decodable record, skipping (and counting) any
// candidate whose internal offsets escape its bounds. It returns false once
// the file is exhausted.
func (it *RecordIterator) Next() bool {
	for it.next < len(it.file.raws) {
		raw := it.file.raws[it.next]
		it.next++
		it.stats.Candidates++

		data := it.file.data[raw.Offset : raw.Offset+int64(raw.Length)]
		rec, err := DecodeRecord(data)
		if err != nil {
			it.stats.Skipped++
			continue
		}

		switch {
		case rec.Status == StatusTruncated:
			it.stats.Truncated++
		case raw.Recovered:
			rec.Status = StatusRecovered
		}

		it.current = rec
		it.stats.Decoded++
		return true
	}
	return false
}

// Record returns the record produced by the last successful Next.
func (it *RecordIterator) Record() Record { return it.current }

// Stats returns the decode counters accumulated so far.
func (it *RecordIterator) Stats() ParseStats { return it.stats }

// ParseFile opens a file and drains its iterator into a ParseResult. Callers
// that want streaming instead should use Open plus Iterator.
func ParseFile(path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse is ParseFile for bytes already in memory. path is used only for
// reporting.
func Parse(path string, data []byte) (*ParseResult, error) {
	start := time.Now()

	f, err := New(path, data)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Path:    path,
		Header:  f.Header(),
		Report:  f.Report(),
		Records: []Record{},
	}

	it := f.Iterator()
	for it.Next() {
		result.Records = append(result.Records, it.Record())
	}

	result.Stats = it.Stats()
	result.Stats.Duration = time.Since(start)
	return result, nil
}
