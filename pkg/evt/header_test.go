package evt_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/muninn/pkg/evt"
	"github.com/ssargent/muninn/pkg/evt/evttest"
)

func sampleSpecs() []evttest.RecordSpec {
	return []evttest.RecordSpec{
		{
			Number:        1,
			TimeGenerated: 1234567890,
			TimeWritten:   1234567891,
			EventID:       0xC0000005,
			EventType:     1,
			Category:      2,
			Source:        "Service Control Manager",
			Computer:      "WORKSTATION-01",
			SID:           evttest.SID(1, 5, 21, 123, 456, 789),
			Strings:       []string{"netlogon", "stopped"},
			Data:          []byte{0xDE, 0xAD, 0xBE, 0xEF},
		},
		{
			Number:        2,
			TimeGenerated: 1234567900,
			EventID:       6005,
			EventType:     4,
			Source:        "EventLog",
			Computer:      "WORKSTATION-01",
		},
		{
			Number:        3,
			TimeGenerated: 1234567910,
			EventID:       529,
			EventType:     16,
			Source:        "Security",
			Computer:      "WORKSTATION-01",
			Strings:       []string{"Administrator", "NTLM"},
		},
	}
}

func TestParseFileHeader(t *testing.T) {
	data := evttest.BuildLog(sampleSpecs()...)

	h, err := evt.ParseFileHeader(data)
	require.NoError(t, err)

	assert.Equal(t, uint32(evt.FileHeaderSize), h.HeaderSize)
	assert.Equal(t, uint32(evt.FileHeaderSize), h.HeaderSizeCopy)
	assert.Equal(t, uint32(evt.FileHeaderSize), h.StartOffset)
	assert.Equal(t, uint32(1), h.OldestRecordNumber)
	assert.Equal(t, uint32(3), h.CurrentRecordNumber)
	assert.False(t, h.IsDirty())
	assert.False(t, h.IsWrapped())
	assert.Equal(t, 3, h.ExpectedRecords())
}

func TestParseFileHeader_Structural(t *testing.T) {
	t.Run("too small", func(t *testing.T) {
		_, err := evt.ParseFileHeader(make([]byte, 12))
		assert.ErrorIs(t, err, evt.ErrFileTooSmall)
	})

	t.Run("bad signature", func(t *testing.T) {
		data := evttest.BuildLog(sampleSpecs()...)
		copy(data[4:8], "ElfF") // EVTX magic, not EVT
		_, err := evt.ParseFileHeader(data)
		assert.ErrorIs(t, err, evt.ErrBadSignature)
	})

	t.Run("bad header size", func(t *testing.T) {
		data := evttest.BuildLog(sampleSpecs()...)
		binary.LittleEndian.PutUint32(data[0:], 128)
		_, err := evt.ParseFileHeader(data)
		assert.ErrorIs(t, err, evt.ErrBadHeader)
	})
}

func TestFileHeader_Trustworthy(t *testing.T) {
	data := evttest.BuildLog(sampleSpecs()...)
	fileSize := int64(len(data))

	parse := func(t *testing.T, data []byte) evt.FileHeader {
		h, err := evt.ParseFileHeader(data)
		require.NoError(t, err)
		return h
	}

	t.Run("clean header is trusted", func(t *testing.T) {
		assert.True(t, parse(t, data).Trustworthy(fileSize))
	})

	t.Run("dirty flag breaks trust", func(t *testing.T) {
		dirty := evttest.BuildDirtyLog(sampleSpecs()...)
		assert.False(t, parse(t, dirty).Trustworthy(fileSize))
	})

	t.Run("end offset past file breaks trust", func(t *testing.T) {
		mangled := append([]byte{}, data...)
		binary.LittleEndian.PutUint32(mangled[20:], uint32(fileSize)+512)
		assert.False(t, parse(t, mangled).Trustworthy(fileSize))
	})

	t.Run("start past end without wrap breaks trust", func(t *testing.T) {
		mangled := append([]byte{}, data...)
		end := binary.LittleEndian.Uint32(mangled[20:])
		binary.LittleEndian.PutUint32(mangled[16:], end+60)
		assert.False(t, parse(t, mangled).Trustworthy(fileSize))
	})

	t.Run("trailing size copy mismatch breaks trust", func(t *testing.T) {
		mangled := append([]byte{}, data...)
		binary.LittleEndian.PutUint32(mangled[44:], 52)
		assert.False(t, parse(t, mangled).Trustworthy(fileSize))
	})
}

func TestStructuralError_Unwrap(t *testing.T) {
	data := evttest.BuildLog(sampleSpecs()...)
	copy(data[4:8], "XXXX")

	_, err := evt.New("broken.evt", data)
	require.Error(t, err)

	var structural *evt.StructuralError
	require.True(t, errors.As(err, &structural))
	assert.Equal(t, "broken.evt", structural.Path)
	assert.ErrorIs(t, err, evt.ErrBadSignature)
}
