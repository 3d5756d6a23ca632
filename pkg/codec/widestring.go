package codec

import (
	"encoding/binary"
	"unicode/utf16"
)

// ReadWideString decodes a null-terminated UTF-16LE string from data starting
// at offset, never reading at or past limit. It returns the decoded string,
// the offset of the first byte after the terminator (or limit when truncated)
// and whether the terminator was found before the boundary.
//
// limit is clamped to len(data), so a caller-supplied limit can only narrow
// the readable window, never widen it.
func ReadWideString(data []byte, offset, limit int) (s string, next int, terminated bool) {
	if limit > len(data) {
		limit = len(data)
	}
	if offset < 0 || offset >= limit {
		return "", limit, false
	}

	units := make([]uint16, 0, 16)
	pos := offset
	for pos+2 <= limit {
		u := binary.LittleEndian.Uint16(data[pos:])
		pos += 2
		if u == 0 {
			return string(utf16.Decode(units)), pos, true
		}
		units = append(units, u)
	}
	// Ran into the field boundary with no terminator; a trailing odd byte is
	// dropped rather than decoded as half a code unit.
	return string(utf16.Decode(units)), limit, false
}

// DecodeWideString decodes an entire buffer of UTF-16LE code units, stopping
// at the first null terminator if one exists.
func DecodeWideString(data []byte) string {
	s, _, _ := ReadWideString(data, 0, len(data))
	return s
}
