package evt

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// FileHeader is the parsed 48-byte EVT file header. All multi-byte fields are
// little-endian on disk.
type FileHeader struct {
	HeaderSize          uint32
	MajorVersion        uint32
	MinorVersion        uint32
	StartOffset         uint32 // offset of the oldest record
	EndOffset           uint32 // offset of the floating EOF record
	CurrentRecordNumber uint32 // newest record number
	OldestRecordNumber  uint32
	MaxSize             uint32 // allocated size of the circular buffer
	Flags               uint32
	Retention           uint32
	HeaderSizeCopy      uint32 // trailing mirror of HeaderSize
}

// ParseFileHeader decodes the fixed file header. It fails only on the two
// structural conditions that make a file unprocessable: a missing LfLe
// signature or a header size that is not 48. Everything else the header
// claims is treated as advisory and judged later by Trustworthy.
func ParseFileHeader(data []byte) (FileHeader, error) {
	if len(data) < FileHeaderSize {
		return FileHeader{}, fmt.Errorf("%w: %d bytes", ErrFileTooSmall, len(data))
	}
	if !bytes.Equal(data[4:8], Signature) {
		return FileHeader{}, fmt.Errorf("%w at offset 0x04: % x", ErrBadSignature, data[4:8])
	}

	h := FileHeader{
		HeaderSize:          binary.LittleEndian.Uint32(data[0:]),
		MajorVersion:        binary.LittleEndian.Uint32(data[8:]),
		MinorVersion:        binary.LittleEndian.Uint32(data[12:]),
		StartOffset:         binary.LittleEndian.Uint32(data[16:]),
		EndOffset:           binary.LittleEndian.Uint32(data[20:]),
		CurrentRecordNumber: binary.LittleEndian.Uint32(data[24:]),
		OldestRecordNumber:  binary.LittleEndian.Uint32(data[28:]),
		MaxSize:             binary.LittleEndian.Uint32(data[32:]),
		Flags:               binary.LittleEndian.Uint32(data[36:]),
		Retention:           binary.LittleEndian.Uint32(data[40:]),
		HeaderSizeCopy:      binary.LittleEndian.Uint32(data[44:]),
	}

	if h.HeaderSize != FileHeaderSize {
		return FileHeader{}, fmt.Errorf("%w: %d", ErrBadHeader, h.HeaderSize)
	}

	return h, nil
}

// IsDirty reports whether the file was copied while its writer still had it
// open, which makes the offset bookkeeping unreliable.
func (h FileHeader) IsDirty() bool { return h.Flags&FlagDirty != 0 }

// IsWrapped reports whether the circular buffer has wrapped.
func (h FileHeader) IsWrapped() bool { return h.Flags&FlagWrapped != 0 }

// IsArchived reports whether the archive bit is set.
func (h FileHeader) IsArchived() bool { return h.Flags&FlagArchived != 0 }

// Trustworthy decides whether header-directed traversal can be believed for a
// file of the given size. The verdict is advisory: an untrustworthy header
// never aborts the file, it only routes scanning to recovery.
func (h FileHeader) Trustworthy(fileSize int64) bool {
	if h.IsDirty() {
		return false
	}
	if h.HeaderSizeCopy != FileHeaderSize {
		return false
	}

	start, end := int64(h.StartOffset), int64(h.EndOffset)
	if start < FileHeaderSize || start >= fileSize {
		return false
	}
	if end < FileHeaderSize || end > fileSize {
		return false
	}
	// Without the wrap flag the region must be a single forward run.
	if !h.IsWrapped() && start >= end {
		return false
	}
	return true
}

// ExpectedRecords derives how many records header-directed traversal should
// yield from the current and oldest record numbers.
func (h FileHeader) ExpectedRecords() int {
	if h.CurrentRecordNumber < h.OldestRecordNumber {
		return 0
	}
	return int(h.CurrentRecordNumber-h.OldestRecordNumber) + 1
}

func (h FileHeader) String() string {
	return fmt.Sprintf(
		"EvtHeader{v%d.%d start=0x%x end=0x%x records=%d..%d max=%d dirty=%v wrapped=%v}",
		h.MajorVersion, h.MinorVersion,
		h.StartOffset, h.EndOffset,
		h.OldestRecordNumber, h.CurrentRecordNumber,
		h.MaxSize, h.IsDirty(), h.IsWrapped(),
	)
}
