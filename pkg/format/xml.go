package format

import (
	"encoding/hex"
	"encoding/xml"
	"io"

	"github.com/ssargent/muninn/pkg/codec"
	"github.com/ssargent/muninn/pkg/evt"
)

// XMLFormatter renders a parse result as an EventLog XML document. Binary
// payloads are hex-encoded, matching forensic tooling conventions.
type XMLFormatter struct {
	Options Options
}

type xmlDocument struct {
	XMLName  xml.Name     `xml:"EventLog"`
	Metadata *xmlMetadata `xml:"Metadata,omitempty"`
	Events   []xmlEvent   `xml:"Events>Event"`
}

type xmlMetadata struct {
	SourceFile   string  `xml:"SourceFile"`
	ScanStrategy string  `xml:"ScanStrategy"`
	TotalRecords int     `xml:"TotalRecords"`
	ValidRecords int     `xml:"ValidRecords"`
	Skipped      int     `xml:"SkippedRecords"`
	Truncated    int     `xml:"TruncatedRecords"`
	Duration     float64 `xml:"ParseDurationSeconds"`
	IsDirty      bool    `xml:"IsDirty"`
	IsWrapped    bool    `xml:"IsWrapped"`
	Warning      string  `xml:"Warning,omitempty"`
}

type xmlEvent struct {
	RecordNumber  uint32      `xml:"RecordNumber,attr"`
	TimeGenerated string      `xml:"TimeGenerated"`
	TimeWritten   string      `xml:"TimeWritten"`
	EventID       uint16      `xml:"EventID"`
	EventType     string      `xml:"EventType"`
	EventCategory uint16      `xml:"EventCategory"`
	Source        string      `xml:"Source"`
	ComputerName  string      `xml:"ComputerName"`
	UserSID       string      `xml:"UserSID,omitempty"`
	Strings       []xmlString `xml:"Strings>String,omitempty"`
	Data          string      `xml:"Data,omitempty"`
}

type xmlString struct {
	Index int    `xml:"Index,attr"`
	Value string `xml:",chardata"`
}

// Format implements Formatter.
func (f *XMLFormatter) Format(w io.Writer, result *evt.ParseResult) error {
	doc := xmlDocument{}

	if f.Options.Metadata {
		meta := newMetadataView(result)
		doc.Metadata = &xmlMetadata{
			SourceFile:   meta.SourceFile,
			ScanStrategy: meta.Strategy,
			TotalRecords: meta.Candidates,
			ValidRecords: meta.Decoded,
			Skipped:      meta.Skipped,
			Truncated:    meta.Truncated,
			Duration:     meta.DurationSecs,
			IsDirty:      meta.Dirty,
			IsWrapped:    meta.Wrapped,
			Warning:      meta.Warning,
		}
	}

	for _, rec := range result.Records {
		ev := xmlEvent{
			RecordNumber:  rec.Number,
			TimeGenerated: codec.FormatTimestamp(rec.TimeGenerated),
			TimeWritten:   codec.FormatTimestamp(rec.TimeWritten),
			EventID:       rec.EventCode(),
			EventType:     rec.TypeName(),
			EventCategory: rec.EventCategory,
			Source:        rec.Source,
			ComputerName:  rec.Computer,
			UserSID:       rec.SID,
		}
		for i, s := range rec.Strings {
			ev.Strings = append(ev.Strings, xmlString{Index: i, Value: s})
		}
		if len(rec.Data) > 0 {
			ev.Data = hex.EncodeToString(rec.Data)
		}
		doc.Events = append(doc.Events, ev)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	enc := xml.NewEncoder(w)
	if f.Options.Pretty {
		enc.Indent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
