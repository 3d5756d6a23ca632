package evt

import (
	"errors"
	"fmt"
	"time"
)

// Layout constants for the legacy EVT format.
const (
	// FileHeaderSize is the fixed size of the leading (and mirrored trailing)
	// file header.
	FileHeaderSize = 48

	// RecordHeaderSize is the fixed portion of an event record, before the
	// variable-length sections.
	RecordHeaderSize = 56

	// MinRecordSize is the smallest valid record: fixed header plus the
	// trailing length copy.
	MinRecordSize = RecordHeaderSize + 4

	// MaxRecordSize caps how large a declared record length may be before it
	// is treated as corruption.
	MaxRecordSize = 0x10000

	// eofRecordSize is the size of the floating end-of-file record.
	eofRecordSize = 40
)

// Signature is the "LfLe" magic found at offset 4 of the file header and of
// every record.
var Signature = []byte{'L', 'f', 'L', 'e'}

// eofSignature is the 16-byte marker of the floating EOF record, located
// right after its leading length field.
var eofSignature = []byte{
	0x11, 0x11, 0x11, 0x11,
	0x22, 0x22, 0x22, 0x22,
	0x33, 0x33, 0x33, 0x33,
	0x44, 0x44, 0x44, 0x44,
}

// File header flag bits.
const (
	FlagDirty    = 0x0001 // file was copied while still open by its writer
	FlagWrapped  = 0x0002 // circular buffer has wrapped
	FlagLogFull  = 0x0004 // log reached capacity with retention blocking reuse
	FlagArchived = 0x0008 // archive bit set by backup tooling
)

// Sentinel errors for file-level structural problems.
var (
	ErrFileTooSmall = errors.New("file too small for EVT header")
	ErrBadSignature = errors.New("missing LfLe signature")
	ErrBadHeader    = errors.New("unexpected EVT header size")
)

// ErrRecordBounds marks a record whose internal offsets point outside its own
// byte range. Such records are dropped, never partially decoded.
var ErrRecordBounds = errors.New("field range outside record bounds")

// StructuralError reports a file that cannot be processed at all: the magic
// signature or the fixed header size do not match. It aborts exactly one file
// and produces no partial output for it.
type StructuralError struct {
	Path string
	Err  error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error in %s: %v", e.Path, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// ScanStrategy identifies how record ranges were discovered.
type ScanStrategy int

const (
	// StrategyTrustedWalk follows the header's start offset and record count.
	StrategyTrustedWalk ScanStrategy = iota
	// StrategyRecoveryScan carves records out of the data region by signature
	// and length self-consistency alone.
	StrategyRecoveryScan
)

func (s ScanStrategy) String() string {
	switch s {
	case StrategyTrustedWalk:
		return "trusted_walk"
	case StrategyRecoveryScan:
		return "recovery_scan"
	default:
		return fmt.Sprintf("unknown_%d", int(s))
	}
}

// RecordStatus is the per-record decode outcome. Records that fail decoding
// outright are dropped and only counted, so there is no "skipped" status here.
type RecordStatus int

const (
	// StatusOK means every field decoded cleanly.
	StatusOK RecordStatus = iota
	// StatusRecovered means the record was located by recovery scanning
	// rather than header-directed traversal.
	StatusRecovered
	// StatusTruncated means at least one variable field hit its boundary
	// before completion and was truncated or nulled.
	StatusTruncated
)

func (s RecordStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRecovered:
		return "recovered"
	case StatusTruncated:
		return "truncated"
	default:
		return fmt.Sprintf("unknown_%d", int(s))
	}
}

// RawRecord is a validated record byte range inside the file. Validation
// covered only the outer framing: leading length equals trailing length, the
// signature is present and the range lies inside the file. Everything inside
// the range is still untrusted.
type RawRecord struct {
	Offset    int64  // byte offset of the record in the file
	Length    uint32 // declared (and verified) total record length
	Number    uint32 // record number, read from the fixed header
	Recovered bool   // located by recovery scanning, not trusted traversal
}

// ScanReport describes how a scan went, independent of per-record decoding.
type ScanReport struct {
	Strategy      ScanStrategy // strategy selected from the header verdict
	FellBack      bool         // trusted walk failed mid-way and recovery took over
	Records       int          // validated record ranges found
	Recovered     int          // subset found by recovery scanning
	SkippedRanges int          // contiguous byte ranges rejected during recovery
	SkippedBytes  int64        // total bytes rejected during recovery
	NonContiguous bool         // record numbers have gaps (advisory, never an error)
}

// Warning renders the advisory condition of a scan, or "" when the scan was
// entirely clean.
func (r ScanReport) Warning() string {
	switch {
	case r.FellBack:
		return "header-directed walk failed mid-file; remainder recovered by carving"
	case r.Strategy == StrategyRecoveryScan:
		return "header untrustworthy; records recovered by carving"
	case r.NonContiguous:
		return "record numbers are not contiguous"
	default:
		return ""
	}
}

// ParseStats aggregates per-record decode outcomes for one file.
type ParseStats struct {
	Candidates int           // validated raw ranges handed to the decoder
	Decoded    int           // records emitted
	Skipped    int           // candidates dropped by field-bounds checking
	Truncated  int           // emitted records with at least one truncated field
	Duration   time.Duration // wall time for scan plus decode
}

// ParseResult is the complete outcome of parsing one file.
type ParseResult struct {
	Path    string
	Header  FileHeader
	Report  ScanReport
	Stats   ParseStats
	Records []Record
}
