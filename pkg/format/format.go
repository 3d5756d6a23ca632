// Package format renders parsed event records as JSON, XML or CSV. The field
// set and its order are stable across formats: record number, times, event
// code, type, category, source, computer, SID, insertion strings, payload.
package format

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/ssargent/muninn/pkg/codec"
	"github.com/ssargent/muninn/pkg/evt"
)

// Formatter writes a complete parse result to w.
type Formatter interface {
	Format(w io.Writer, result *evt.ParseResult) error
}

// Options tunes formatter behavior shared across formats.
type Options struct {
	// Pretty enables indentation for JSON and XML.
	Pretty bool
	// Metadata includes the per-file header and statistics block where the
	// format has room for one (JSON and XML; CSV stays records-only).
	Metadata bool
}

// New returns the formatter registered under name: "json", "xml" or "csv".
func New(name string, opts Options) (Formatter, error) {
	switch strings.ToLower(name) {
	case "json":
		return &JSONFormatter{Options: opts}, nil
	case "xml":
		return &XMLFormatter{Options: opts}, nil
	case "csv":
		return &CSVFormatter{Options: opts}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want json, xml or csv)", name)
	}
}

// Names lists the supported format names.
func Names() []string {
	return []string{"json", "xml", "csv"}
}

// recordView is the stable serialized shape of one record.
type recordView struct {
	RecordNumber  uint32   `json:"record_number"`
	TimeGenerated string   `json:"time_generated,omitempty"`
	TimeWritten   string   `json:"time_written,omitempty"`
	EventID       uint16   `json:"event_id"`
	EventType     string   `json:"event_type"`
	EventCategory uint16   `json:"event_category"`
	Source        string   `json:"source"`
	ComputerName  string   `json:"computer_name"`
	UserSID       string   `json:"user_sid,omitempty"`
	Strings       []string `json:"strings"`
	Data          string   `json:"data,omitempty"`
	Status        string   `json:"status,omitempty"`
}

func newRecordView(rec evt.Record) recordView {
	view := recordView{
		RecordNumber:  rec.Number,
		TimeGenerated: codec.FormatTimestamp(rec.TimeGenerated),
		TimeWritten:   codec.FormatTimestamp(rec.TimeWritten),
		EventID:       rec.EventCode(),
		EventType:     rec.TypeName(),
		EventCategory: rec.EventCategory,
		Source:        rec.Source,
		ComputerName:  rec.Computer,
		UserSID:       rec.SID,
		Strings:       rec.Strings,
	}
	if len(rec.Data) > 0 {
		view.Data = base64.StdEncoding.EncodeToString(rec.Data)
	}
	if rec.Status != evt.StatusOK {
		view.Status = rec.Status.String()
	}
	return view
}

// metadataView is the optional per-file block for formats that carry one.
type metadataView struct {
	SourceFile    string  `json:"source_file"`
	Strategy      string  `json:"scan_strategy"`
	Candidates    int     `json:"total_records"`
	Decoded       int     `json:"valid_records"`
	Skipped       int     `json:"skipped_records"`
	Truncated     int     `json:"truncated_records"`
	DurationSecs  float64 `json:"parse_duration_seconds"`
	MajorVersion  uint32  `json:"major_version"`
	MinorVersion  uint32  `json:"minor_version"`
	Dirty         bool    `json:"is_dirty"`
	Wrapped       bool    `json:"is_wrapped"`
	NonContiguous bool    `json:"has_record_gaps"`
	Warning       string  `json:"warning,omitempty"`
}

func newMetadataView(result *evt.ParseResult) metadataView {
	return metadataView{
		SourceFile:    result.Path,
		Strategy:      result.Report.Strategy.String(),
		Candidates:    result.Stats.Candidates,
		Decoded:       result.Stats.Decoded,
		Skipped:       result.Stats.Skipped,
		Truncated:     result.Stats.Truncated,
		DurationSecs:  result.Stats.Duration.Seconds(),
		MajorVersion:  result.Header.MajorVersion,
		MinorVersion:  result.Header.MinorVersion,
		Dirty:         result.Header.IsDirty(),
		Wrapped:       result.Header.IsWrapped(),
		NonContiguous: result.Report.NonContiguous,
		Warning:       result.Report.Warning(),
	}
}
