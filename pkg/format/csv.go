package format

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ssargent/muninn/pkg/evt"
)

// csvColumns is the fixed header row, in the stable output order.
var csvColumns = []string{
	"record_number",
	"time_generated",
	"time_written",
	"event_id",
	"event_type",
	"event_category",
	"source",
	"computer_name",
	"user_sid",
	"strings",
	"data",
}

// CSVFormatter renders records-only CSV. Insertion strings are packed into a
// single JSON-encoded cell so the column count stays fixed. Cells are
// sanitized to avoid literal newlines, which several spreadsheet importers
// mis-handle.
type CSVFormatter struct {
	Options Options
	// Delimiter overrides the comma when nonzero.
	Delimiter rune
	// OmitHeader drops the header row.
	OmitHeader bool
}

// Format implements Formatter.
func (f *CSVFormatter) Format(w io.Writer, result *evt.ParseResult) error {
	cw := csv.NewWriter(w)
	if f.Delimiter != 0 {
		cw.Comma = f.Delimiter
	}

	if !f.OmitHeader {
		if err := cw.Write(csvColumns); err != nil {
			return err
		}
	}

	for _, rec := range result.Records {
		view := newRecordView(rec)

		packed, err := json.Marshal(view.Strings)
		if err != nil {
			return fmt.Errorf("packing strings for record %d: %w", rec.Number, err)
		}

		row := []string{
			strconv.FormatUint(uint64(view.RecordNumber), 10),
			view.TimeGenerated,
			view.TimeWritten,
			strconv.FormatUint(uint64(view.EventID), 10),
			view.EventType,
			strconv.FormatUint(uint64(view.EventCategory), 10),
			sanitizeCell(view.Source),
			sanitizeCell(view.ComputerName),
			view.UserSID,
			sanitizeCell(string(packed)),
			view.Data,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// sanitizeCell replaces newlines, tabs and other control characters with
// escape sequences so strict CSV consumers see one physical line per record.
func sanitizeCell(value string) string {
	if value == "" {
		return value
	}

	value = strings.ReplaceAll(value, "\r\n", "\\n")
	value = strings.ReplaceAll(value, "\r", "\\n")
	value = strings.ReplaceAll(value, "\n", "\\n")
	value = strings.ReplaceAll(value, "\t", "\\t")

	var sb strings.Builder
	for _, ch := range value {
		if ch < 0x20 {
			fmt.Fprintf(&sb, "\\x%02x", ch)
			continue
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}
