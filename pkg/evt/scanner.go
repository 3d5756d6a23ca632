package evt

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// scanState tracks the scanner's explicit state machine:
//
//	INIT -> TRUSTED_WALK | RECOVERY_SCAN -> DONE
//
// The transitions are computed from validated data, never from panics or
// error unwinding, so partial results and statistics stay consistent no
// matter where corruption turns up.
type scanState int

const (
	stateInit scanState = iota
	stateTrustedWalk
	stateRecoveryScan
	stateDone
)

// Scanner walks one file's bytes and produces the set of validated raw record
// ranges. It never writes and holds no state shared across files.
type Scanner struct {
	data   []byte
	header FileHeader
	state  scanState
}

// NewScanner prepares a scanner over a file's contents. The header must have
// been parsed from the same bytes.
func NewScanner(data []byte, header FileHeader) *Scanner {
	return &Scanner{data: data, header: header, state: stateInit}
}

// Scan discovers every validated record range. The strategy is selected by
// the header trust verdict; a trusted walk that hits corruption mid-way
// hands the remainder of the file to recovery scanning instead of aborting.
func (s *Scanner) Scan() ([]RawRecord, ScanReport) {
	var report ScanReport
	var records []RawRecord

	if s.header.Trustworthy(int64(len(s.data))) {
		s.state = stateTrustedWalk
		report.Strategy = StrategyTrustedWalk

		walked, failedAt, ok := s.trustedWalk()
		records = walked
		if !ok {
			report.FellBack = true
			records = s.recoverFrom(failedAt, records, &report)
		}
	} else {
		s.state = stateRecoveryScan
		report.Strategy = StrategyRecoveryScan
		records = s.recoverFrom(FileHeaderSize, nil, &report)
	}

	s.state = stateDone
	report.Records = len(records)
	report.NonContiguous = hasGaps(records)
	return records, report
}

// trustedWalk follows the header's bookkeeping: start at StartOffset, advance
// record by record, wrap to the data region's start when the wrap flag is set
// and the end of the region is reached, and stop at the expected record count,
// the end offset, or after one full lap. Any validation failure returns
// ok=false together with
// the offset where the walk stopped trusting the file.
func (s *Scanner) trustedWalk() (records []RawRecord, failedAt int64, ok bool) {
	fileSize := int64(len(s.data))
	expected := s.header.ExpectedRecords()
	off := int64(s.header.StartOffset)
	seen := make(map[int64]bool)

	for len(records) < expected {
		if s.header.IsWrapped() && off+MinRecordSize > fileSize {
			off = FileHeaderSize
		}
		if s.isEOFRecord(off) {
			break
		}
		// Revisiting an offset means the walk has lapped the circular
		// buffer: the header overstates the record count and every stored
		// record has already been emitted once.
		if seen[off] {
			break
		}

		rec, valid := s.validateAt(off)
		if !valid {
			return records, off, false
		}
		seen[off] = true
		records = append(records, rec)
		off += int64(rec.Length)

		if off == int64(s.header.EndOffset) {
			break
		}
	}
	return records, 0, true
}

// recoverFrom carves records out of s.data starting at the given offset.
// Offsets already claimed by keep are not re-reported. At each candidate
// offset the leading length, the signature and the trailing length copy must
// all agree; on failure the scan moves a single byte forward, which is what
// lets it resynchronize after an arbitrary run of garbage.
func (s *Scanner) recoverFrom(from int64, keep []RawRecord, report *ScanReport) []RawRecord {
	fileSize := int64(len(s.data))
	claimed := make(map[int64]bool, len(keep))
	for _, r := range keep {
		claimed[r.Offset] = true
	}

	records := keep
	off := from
	if off < FileHeaderSize {
		off = FileHeaderSize
	}

	inRun := false
	for off+MinRecordSize <= fileSize {
		if s.isEOFRecord(off) {
			off += eofRecordSize
			inRun = false
			continue
		}

		if rec, valid := s.validateAt(off); valid {
			if !claimed[rec.Offset] {
				rec.Recovered = true
				records = append(records, rec)
				report.Recovered++
			}
			claimed[rec.Offset] = true
			off += int64(rec.Length)
			inRun = false
			continue
		}

		if !inRun {
			report.SkippedRanges++
			inRun = true
		}
		report.SkippedBytes++
		off++
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Number < records[j].Number
	})
	return records
}

// validateAt checks the outer framing of a candidate record at off: the
// leading length field is in a sane range, the signature follows it, the
// whole range fits inside the file and the trailing length copy agrees.
func (s *Scanner) validateAt(off int64) (RawRecord, bool) {
	fileSize := int64(len(s.data))
	if off < 0 || off+MinRecordSize > fileSize {
		return RawRecord{}, false
	}

	length := binary.LittleEndian.Uint32(s.data[off:])
	if length < MinRecordSize || length > MaxRecordSize {
		return RawRecord{}, false
	}
	if off+int64(length) > fileSize {
		return RawRecord{}, false
	}
	if !bytes.Equal(s.data[off+4:off+8], Signature) {
		return RawRecord{}, false
	}

	trailing := binary.LittleEndian.Uint32(s.data[off+int64(length)-4:])
	if trailing != length {
		return RawRecord{}, false
	}

	return RawRecord{
		Offset: off,
		Length: length,
		Number: binary.LittleEndian.Uint32(s.data[off+8:]),
	}, true
}

// isEOFRecord reports whether off points at the floating EOF record.
func (s *Scanner) isEOFRecord(off int64) bool {
	if off < 0 || off+4+int64(len(eofSignature)) > int64(len(s.data)) {
		return false
	}
	return bytes.Equal(s.data[off+4:off+4+int64(len(eofSignature))], eofSignature)
}

// hasGaps reports whether the record numbers, taken in sorted order, are
// non-contiguous. Gaps are advisory: a wrapped log that overwrote its oldest
// records legitimately produces them.
func hasGaps(records []RawRecord) bool {
	if len(records) < 2 {
		return false
	}
	numbers := make([]uint32, len(records))
	for i, r := range records {
		numbers[i] = r.Number
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i := 1; i < len(numbers); i++ {
		if numbers[i] != numbers[i-1]+1 {
			return true
		}
	}
	return false
}
