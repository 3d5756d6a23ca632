package codec

import (
	"encoding/binary"
	"strconv"
	"strings"
)

// sidHeaderSize covers revision, sub-authority count and the 48-bit authority.
const sidHeaderSize = 8

// ParseSID decodes a binary Windows security identifier and renders it in the
// usual S-<revision>-<authority>-<sub...> form.
//
// The buffer must hold at least the 8-byte fixed header plus 4 bytes per
// declared sub-authority. Anything shorter returns ("", false): the declared
// count is untrusted input, and emitting a partially decoded SID would be
// indistinguishable from a valid one downstream.
func ParseSID(data []byte) (string, bool) {
	if len(data) < sidHeaderSize {
		return "", false
	}

	revision := data[0]
	subAuthCount := int(data[1])
	if len(data) < sidHeaderSize+4*subAuthCount {
		return "", false
	}

	// 48-bit identifier authority, big-endian.
	var authority uint64
	for _, b := range data[2:8] {
		authority = authority<<8 | uint64(b)
	}

	var sb strings.Builder
	sb.WriteString("S-")
	sb.WriteString(strconv.FormatUint(uint64(revision), 10))
	sb.WriteByte('-')
	sb.WriteString(strconv.FormatUint(authority, 10))

	for i := 0; i < subAuthCount; i++ {
		sub := binary.LittleEndian.Uint32(data[sidHeaderSize+4*i:])
		sb.WriteByte('-')
		sb.WriteString(strconv.FormatUint(uint64(sub), 10))
	}

	return sb.String(), true
}
