package format

import (
	"encoding/json"
	"io"

	"github.com/ssargent/muninn/pkg/evt"
)

// JSONFormatter renders a parse result as a single JSON document.
type JSONFormatter struct {
	Options Options
}

type jsonDocument struct {
	Metadata *metadataView `json:"metadata,omitempty"`
	Records  []recordView  `json:"records"`
}

// Format implements Formatter.
func (f *JSONFormatter) Format(w io.Writer, result *evt.ParseResult) error {
	doc := jsonDocument{
		Records: make([]recordView, 0, len(result.Records)),
	}
	if f.Options.Metadata {
		meta := newMetadataView(result)
		doc.Metadata = &meta
	}
	for _, rec := range result.Records {
		doc.Records = append(doc.Records, newRecordView(rec))
	}

	enc := json.NewEncoder(w)
	if f.Options.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(doc)
}
