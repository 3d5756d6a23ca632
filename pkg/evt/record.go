package evt

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ssargent/muninn/pkg/codec"
)

// Record is one fully decoded event. It is immutable once returned.
type Record struct {
	Number        uint32
	TimeGenerated time.Time // zero when the raw timestamp was 0
	TimeWritten   time.Time
	EventID       uint32
	EventType     uint16
	EventCategory uint16
	Source        string
	Computer      string
	SID           string   // "" when absent or unparseable
	Strings       []string // insertion strings, possibly empty, never nil
	Data          []byte   // nil when absent
	Status        RecordStatus
}

// EventCode is the externally visible low 16 bits of the 32-bit event id.
func (r Record) EventCode() uint16 {
	return uint16(r.EventID & 0xFFFF)
}

// TypeName renders the event type the way the platform's viewers label it.
func (r Record) TypeName() string {
	switch r.EventType {
	case 1:
		return "error"
	case 2:
		return "warning"
	case 4:
		return "information"
	case 8:
		return "audit_success"
	case 16:
		return "audit_failure"
	default:
		return fmt.Sprintf("unknown_%d", r.EventType)
	}
}

// Fixed-header field offsets inside a record. The leading length field and
// signature occupy bytes 0..8.
const (
	offRecordNumber  = 8
	offTimeGenerated = 12
	offTimeWritten   = 16
	offEventID       = 20
	offEventType     = 24
	offNumStrings    = 26
	offCategory      = 28
	offStringOffset  = 36
	offSIDLength     = 40
	offSIDOffset     = 44
	offDataLength    = 48
	offDataOffset    = 52
)

// DecodeRecord turns one validated raw record byte range into a Record.
//
// The outer framing of data was already checked by the scanner, but every
// offset and length inside it is untrusted. Each declared range is validated
// against the record's own total length before it is read; a range that
// escapes those bounds drops the whole record (ErrRecordBounds). A string or
// SID that merely ends early is truncated or nulled and the record is still
// emitted, with Status set to StatusTruncated.
func DecodeRecord(data []byte) (Record, error) {
	if len(data) < MinRecordSize {
		return Record{}, fmt.Errorf("%w: record shorter than fixed header", ErrRecordBounds)
	}

	rec := Record{
		Number:        binary.LittleEndian.Uint32(data[offRecordNumber:]),
		TimeGenerated: codec.UnixTimestamp(binary.LittleEndian.Uint32(data[offTimeGenerated:])),
		TimeWritten:   codec.UnixTimestamp(binary.LittleEndian.Uint32(data[offTimeWritten:])),
		EventID:       binary.LittleEndian.Uint32(data[offEventID:]),
		EventType:     binary.LittleEndian.Uint16(data[offEventType:]),
		EventCategory: binary.LittleEndian.Uint16(data[offCategory:]),
		Strings:       []string{},
	}

	numStrings := int(binary.LittleEndian.Uint16(data[offNumStrings:]))
	stringOffset := int(binary.LittleEndian.Uint32(data[offStringOffset:]))
	sidLength := int(binary.LittleEndian.Uint32(data[offSIDLength:]))
	sidOffset := int(binary.LittleEndian.Uint32(data[offSIDOffset:]))
	dataLength := int(binary.LittleEndian.Uint32(data[offDataLength:]))
	dataOffset := int(binary.LittleEndian.Uint32(data[offDataOffset:]))

	truncated := false

	// Source and computer name sit immediately after the fixed header.
	var pos int
	rec.Source, pos, _ = mustWideString(data, RecordHeaderSize, &truncated)
	rec.Computer, _, _ = mustWideString(data, pos, &truncated)

	if sidLength > 0 {
		if sidOffset < RecordHeaderSize || sidOffset+sidLength > len(data) {
			return Record{}, fmt.Errorf("%w: sid at %d+%d in %d-byte record",
				ErrRecordBounds, sidOffset, sidLength, len(data))
		}
		sid, ok := codec.ParseSID(data[sidOffset : sidOffset+sidLength])
		if !ok {
			// Declared length inconsistent with the SID's own sub-authority
			// count: null the field rather than emit a malformed identifier.
			truncated = true
		}
		rec.SID = sid
	}

	if numStrings > 0 {
		if stringOffset < RecordHeaderSize || stringOffset >= len(data) {
			return Record{}, fmt.Errorf("%w: strings at %d in %d-byte record",
				ErrRecordBounds, stringOffset, len(data))
		}
		pos = stringOffset
		for i := 0; i < numStrings; i++ {
			if pos >= len(data) {
				truncated = true
				break
			}
			var s string
			s, pos, _ = mustWideString(data, pos, &truncated)
			rec.Strings = append(rec.Strings, s)
		}
	}

	if dataLength > 0 {
		if dataOffset < RecordHeaderSize || dataOffset+dataLength > len(data) {
			return Record{}, fmt.Errorf("%w: payload at %d+%d in %d-byte record",
				ErrRecordBounds, dataOffset, dataLength, len(data))
		}
		rec.Data = make([]byte, dataLength)
		copy(rec.Data, data[dataOffset:dataOffset+dataLength])
	}

	if truncated {
		rec.Status = StatusTruncated
	}
	return rec, nil
}

// mustWideString reads a wide string and folds a missing terminator into the
// caller's truncation flag.
func mustWideString(data []byte, offset int, truncated *bool) (string, int, bool) {
	s, next, terminated := codec.ReadWideString(data, offset, len(data))
	if !terminated {
		*truncated = true
	}
	return s, next, terminated
}
