// Package evttest builds synthetic EVT files for tests. The builders emit
// byte-exact legacy layout (48-byte header, length-prefixed LfLe records,
// floating EOF record) so parser tests can exercise real traversal and
// recovery paths without shipping binary fixtures.
package evttest

import (
	"encoding/binary"

	"github.com/ssargent/muninn/pkg/evt"
)

// RecordSpec describes one event record to synthesize.
type RecordSpec struct {
	Number        uint32
	TimeGenerated uint32 // raw 32-bit seconds, 0 = absent
	TimeWritten   uint32
	EventID       uint32
	EventType     uint16
	Category      uint16
	Source        string
	Computer      string
	SID           []byte // raw binary SID, nil = absent
	Strings       []string
	Data          []byte
}

// SID assembles a binary security identifier.
func SID(revision byte, authority uint64, subAuths ...uint32) []byte {
	buf := make([]byte, 8+4*len(subAuths))
	buf[0] = revision
	buf[1] = byte(len(subAuths))
	for i := 0; i < 6; i++ {
		buf[7-i] = byte(authority >> (8 * i))
	}
	for i, sub := range subAuths {
		binary.LittleEndian.PutUint32(buf[8+4*i:], sub)
	}
	return buf
}

// EncodeRecord serializes one record, trailing length copy included.
func EncodeRecord(spec RecordSpec) []byte {
	src := wide(spec.Source)
	comp := wide(spec.Computer)

	var strs []byte
	for _, s := range spec.Strings {
		strs = append(strs, wide(s)...)
	}

	sidOffset := evt.RecordHeaderSize + len(src) + len(comp)
	stringOffset := sidOffset + len(spec.SID)
	dataOffset := stringOffset + len(strs)
	total := dataOffset + len(spec.Data) + 4

	buf := make([]byte, total)
	binary.LittleEndian.PutUint32(buf[0:], uint32(total))
	copy(buf[4:8], evt.Signature)
	binary.LittleEndian.PutUint32(buf[8:], spec.Number)
	binary.LittleEndian.PutUint32(buf[12:], spec.TimeGenerated)
	binary.LittleEndian.PutUint32(buf[16:], spec.TimeWritten)
	binary.LittleEndian.PutUint32(buf[20:], spec.EventID)
	binary.LittleEndian.PutUint16(buf[24:], spec.EventType)
	binary.LittleEndian.PutUint16(buf[26:], uint16(len(spec.Strings)))
	binary.LittleEndian.PutUint16(buf[28:], spec.Category)
	binary.LittleEndian.PutUint32(buf[36:], uint32(stringOffset))
	binary.LittleEndian.PutUint32(buf[40:], uint32(len(spec.SID)))
	binary.LittleEndian.PutUint32(buf[44:], uint32(sidOffset))
	binary.LittleEndian.PutUint32(buf[48:], uint32(len(spec.Data)))
	binary.LittleEndian.PutUint32(buf[52:], uint32(dataOffset))

	copy(buf[evt.RecordHeaderSize:], src)
	copy(buf[evt.RecordHeaderSize+len(src):], comp)
	copy(buf[sidOffset:], spec.SID)
	copy(buf[stringOffset:], strs)
	copy(buf[dataOffset:], spec.Data)
	binary.LittleEndian.PutUint32(buf[total-4:], uint32(total))

	return buf
}

// BuildLog produces a clean, trustworthy file: header, records in order, EOF
// record, with all header bookkeeping consistent.
func BuildLog(specs ...RecordSpec) []byte {
	return build(specs, nil, 0)
}

// BuildDirtyLog produces the same layout as BuildLog but with the dirty flag
// set, as if the file had been copied from a live system.
func BuildDirtyLog(specs ...RecordSpec) []byte {
	return build(specs, nil, evt.FlagDirty)
}

// BuildWrappedLog lays records out the way a wrapped circular buffer does:
// head records sit right after the file header, tail records at the end of
// the file, and the start offset points at the tail. A trusted walk reads
// tail first, wraps to the region start, and finishes with head.
func BuildWrappedLog(head, tail []RecordSpec) []byte {
	return build(head, tail, evt.FlagWrapped)
}

func build(head, tail []RecordSpec, flags uint32) []byte {
	var headBytes, tailBytes []byte
	for _, s := range head {
		headBytes = append(headBytes, EncodeRecord(s)...)
	}
	for _, s := range tail {
		tailBytes = append(tailBytes, EncodeRecord(s)...)
	}

	eofOffset := evt.FileHeaderSize + len(headBytes)
	startOffset := eofOffset + eofRecordSize
	if len(tail) == 0 {
		startOffset = evt.FileHeaderSize
	}

	all := append(append([]RecordSpec{}, head...), tail...)
	oldest, current := numberRange(all)

	fileSize := eofOffset + eofRecordSize + len(tailBytes)
	buf := make([]byte, fileSize)

	binary.LittleEndian.PutUint32(buf[0:], evt.FileHeaderSize)
	copy(buf[4:8], evt.Signature)
	binary.LittleEndian.PutUint32(buf[8:], 1)  // major version
	binary.LittleEndian.PutUint32(buf[12:], 1) // minor version
	binary.LittleEndian.PutUint32(buf[16:], uint32(startOffset))
	binary.LittleEndian.PutUint32(buf[20:], uint32(eofOffset))
	binary.LittleEndian.PutUint32(buf[24:], current)
	binary.LittleEndian.PutUint32(buf[28:], oldest)
	binary.LittleEndian.PutUint32(buf[32:], uint32(fileSize))
	binary.LittleEndian.PutUint32(buf[36:], flags)
	binary.LittleEndian.PutUint32(buf[40:], 0) // retention
	binary.LittleEndian.PutUint32(buf[44:], evt.FileHeaderSize)

	copy(buf[evt.FileHeaderSize:], headBytes)
	writeEOFRecord(buf[eofOffset:], uint32(startOffset), uint32(eofOffset), current, oldest)
	copy(buf[startOffset:], tailBytes)

	return buf
}

const eofRecordSize = 40

func writeEOFRecord(buf []byte, begin, end, current, oldest uint32) {
	binary.LittleEndian.PutUint32(buf[0:], eofRecordSize)
	for i, v := range []uint32{0x11111111, 0x22222222, 0x33333333, 0x44444444} {
		binary.LittleEndian.PutUint32(buf[4+4*i:], v)
	}
	binary.LittleEndian.PutUint32(buf[20:], begin)
	binary.LittleEndian.PutUint32(buf[24:], end)
	binary.LittleEndian.PutUint32(buf[28:], current)
	binary.LittleEndian.PutUint32(buf[32:], oldest)
	binary.LittleEndian.PutUint32(buf[36:], eofRecordSize)
}

func numberRange(specs []RecordSpec) (oldest, current uint32) {
	if len(specs) == 0 {
		return 1, 0 // empty log: current < oldest, expected count 0
	}
	oldest, current = specs[0].Number, specs[0].Number
	for _, s := range specs[1:] {
		if s.Number < oldest {
			oldest = s.Number
		}
		if s.Number > current {
			current = s.Number
		}
	}
	return oldest, current
}

// wide encodes s as UTF-16LE with a null terminator. Test sources stay in
// the BMP, so a per-rune conversion is enough.
func wide(s string) []byte {
	runes := []rune(s)
	buf := make([]byte, 2*len(runes)+2)
	for i, r := range runes {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(r))
	}
	return buf
}
