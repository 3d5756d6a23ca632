package codec

import (
	"encoding/binary"
	"testing"
)

// buildSID assembles a binary SID from its parts.
func buildSID(revision byte, authority uint64, subAuths ...uint32) []byte {
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

func TestParseSID(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		want string
		ok   bool
	}{
		{
			name: "well-known domain SID",
			data: buildSID(1, 5, 21, 123, 456, 789),
			want: "S-1-5-21-123-456-789",
			ok:   true,
		},
		{
			name: "local system",
			data: buildSID(1, 5, 18),
			want: "S-1-5-18",
			ok:   true,
		},
		{
			name: "no sub-authorities",
			data: buildSID(1, 0),
			want: "S-1-0",
			ok:   true,
		},
		{
			name: "authority wider than 32 bits",
			data: buildSID(1, 0x010000000005),
			want: "S-1-1099511627781",
			ok:   true,
		},
		{
			name: "empty buffer",
			data: nil,
			ok:   false,
		},
		{
			name: "shorter than fixed header",
			data: []byte{1, 1, 0, 0, 0, 0, 0},
			ok:   false,
		},
		{
			name: "declared count exceeds buffer",
			data: buildSID(1, 5, 21, 123)[:12],
			ok:   false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseSID(tc.data)
			if ok != tc.ok {
				t.Fatalf("ParseSID ok = %v, want %v", ok, tc.ok)
			}
			if got != tc.want {
				t.Errorf("ParseSID = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseSID_DeclaredCountMismatch(t *testing.T) {
	// Buffer claims 4 sub-authorities but only carries 2. The codec must
	// yield no value instead of a malformed prefix.
	sid := buildSID(1, 5, 21, 123, 456, 789)
	sid = sid[:8+2*4]

	if got, ok := ParseSID(sid); ok {
		t.Fatalf("expected no value for truncated SID, got %q", got)
	}
}
