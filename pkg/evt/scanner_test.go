package evt_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/muninn/pkg/evt"
	"github.com/ssargent/muninn/pkg/evt/evttest"
)

func scan(t *testing.T, data []byte) ([]evt.RawRecord, evt.ScanReport) {
	t.Helper()
	header, err := evt.ParseFileHeader(data)
	require.NoError(t, err)
	return evt.NewScanner(data, header).Scan()
}

func TestScanner_TrustedWalkYieldsExpectedCount(t *testing.T) {
	specs := sampleSpecs()
	data := evttest.BuildLog(specs...)

	records, report := scan(t, data)

	header, _ := evt.ParseFileHeader(data)
	assert.Equal(t, evt.StrategyTrustedWalk, report.Strategy)
	assert.False(t, report.FellBack)
	assert.Len(t, records, header.ExpectedRecords())
	assert.False(t, report.NonContiguous)
	assert.Zero(t, report.SkippedRanges)

	for i, rec := range records {
		assert.Equal(t, specs[i].Number, rec.Number)
		assert.False(t, rec.Recovered)
	}
}

func TestScanner_TrustedWalkWrapped(t *testing.T) {
	// Records 3 and 4 sit after the header, 1 and 2 at the end of the file;
	// the walk starts at the tail and wraps back to the region start.
	head := []evttest.RecordSpec{
		{Number: 3, EventID: 3, Source: "App", Computer: "HOST"},
		{Number: 4, EventID: 4, Source: "App", Computer: "HOST"},
	}
	tail := []evttest.RecordSpec{
		{Number: 1, EventID: 1, Source: "App", Computer: "HOST"},
		{Number: 2, EventID: 2, Source: "App", Computer: "HOST"},
	}
	data := evttest.BuildWrappedLog(head, tail)

	records, report := scan(t, data)

	require.Len(t, records, 4)
	assert.Equal(t, evt.StrategyTrustedWalk, report.Strategy)
	// Walk order follows the buffer: oldest first.
	assert.Equal(t, []uint32{1, 2, 3, 4}, recordNumbers(records))
}

func TestScanner_TrustedWalkStopsAfterOneLap(t *testing.T) {
	// A wrapped buffer holding only two records, no EOF record, an end
	// offset that never lands on a record boundary, and a record counter
	// claiming a thousand entries. The walk must emit each stored record
	// once and stop, not circle the buffer until the counter is satisfied.
	recs := append(
		evttest.EncodeRecord(evttest.RecordSpec{Number: 1, EventID: 1, Source: "App", Computer: "HOST"}),
		evttest.EncodeRecord(evttest.RecordSpec{Number: 2, EventID: 2, Source: "App", Computer: "HOST"})...,
	)

	data := make([]byte, evt.FileHeaderSize+len(recs))
	binary.LittleEndian.PutUint32(data[0:], evt.FileHeaderSize)
	copy(data[4:8], evt.Signature)
	binary.LittleEndian.PutUint32(data[8:], 1)
	binary.LittleEndian.PutUint32(data[12:], 1)
	binary.LittleEndian.PutUint32(data[16:], evt.FileHeaderSize)    // start offset
	binary.LittleEndian.PutUint32(data[20:], evt.FileHeaderSize+10) // end offset, mid-record
	binary.LittleEndian.PutUint32(data[24:], 1000)                  // current record number
	binary.LittleEndian.PutUint32(data[28:], 1)                     // oldest record number
	binary.LittleEndian.PutUint32(data[32:], uint32(len(data)))
	binary.LittleEndian.PutUint32(data[36:], evt.FlagWrapped)
	binary.LittleEndian.PutUint32(data[44:], evt.FileHeaderSize)
	copy(data[evt.FileHeaderSize:], recs)

	header, err := evt.ParseFileHeader(data)
	require.NoError(t, err)
	require.True(t, header.Trustworthy(int64(len(data))))

	records, report := scan(t, data)

	assert.Equal(t, evt.StrategyTrustedWalk, report.Strategy)
	assert.False(t, report.FellBack)
	assert.Equal(t, []uint32{1, 2}, recordNumbers(records))
}

func TestScanner_RecoveryMatchesTrustedOnCleanFile(t *testing.T) {
	specs := sampleSpecs()
	clean := evttest.BuildLog(specs...)
	dirty := evttest.BuildDirtyLog(specs...)

	trusted, cleanReport := scan(t, clean)
	recovered, dirtyReport := scan(t, dirty)

	assert.Equal(t, evt.StrategyTrustedWalk, cleanReport.Strategy)
	assert.Equal(t, evt.StrategyRecoveryScan, dirtyReport.Strategy)

	require.Len(t, recovered, len(trusted))
	for i := range trusted {
		assert.Equal(t, trusted[i].Offset, recovered[i].Offset)
		assert.Equal(t, trusted[i].Length, recovered[i].Length)
		assert.Equal(t, trusted[i].Number, recovered[i].Number)
		assert.True(t, recovered[i].Recovered)
	}
}

func TestScanner_FallsBackMidWalk(t *testing.T) {
	specs := sampleSpecs()
	data := evttest.BuildLog(specs...)

	// Break the second record's framing: zero its leading length field. The
	// walk trusts the header, reads record 1, fails on record 2, and carving
	// takes over for the remainder of the file.
	offsets := recordOffsets(t, data)
	for i := 0; i < 4; i++ {
		data[offsets[1]+i] = 0
	}

	records, report := scan(t, data)

	assert.Equal(t, evt.StrategyTrustedWalk, report.Strategy)
	assert.True(t, report.FellBack)

	// Record 2's framing is gone for carving too; 1 and 3 survive.
	assert.Equal(t, []uint32{1, 3}, recordNumbers(records))
	assert.True(t, report.NonContiguous)
	assert.Positive(t, report.SkippedRanges)
}

func TestScanner_RecoveryResynchronizesAfterGarbage(t *testing.T) {
	specs := sampleSpecs()
	data := evttest.BuildDirtyLog(specs...)

	// Stomp over the middle record with a run of garbage that contains no
	// valid framing. Single-byte resynchronization must still find record 3.
	offsets := recordOffsets(t, evttest.BuildLog(specs...))
	for i := offsets[1]; i < offsets[2]; i++ {
		data[i] = 0xAA
	}

	records, report := scan(t, data)

	assert.Equal(t, evt.StrategyRecoveryScan, report.Strategy)
	assert.Equal(t, []uint32{1, 3}, recordNumbers(records))
	assert.True(t, report.NonContiguous)
	assert.Positive(t, report.SkippedBytes)
}

func TestScanner_RecoveryOrdersByRecordNumber(t *testing.T) {
	// Out-of-order numbers on disk; recovery reports them sorted.
	specs := []evttest.RecordSpec{
		{Number: 7, EventID: 1, Source: "A", Computer: "H"},
		{Number: 5, EventID: 2, Source: "B", Computer: "H"},
		{Number: 6, EventID: 3, Source: "C", Computer: "H"},
	}
	data := evttest.BuildDirtyLog(specs...)

	records, report := scan(t, data)

	assert.Equal(t, []uint32{5, 6, 7}, recordNumbers(records))
	assert.False(t, report.NonContiguous)
}

func TestScanner_EmptyLog(t *testing.T) {
	data := evttest.BuildLog()

	records, report := scan(t, data)

	assert.Empty(t, records)
	assert.Zero(t, report.Records)
	assert.False(t, report.NonContiguous)
}

func recordNumbers(records []evt.RawRecord) []uint32 {
	numbers := make([]uint32, len(records))
	for i, r := range records {
		numbers[i] = r.Number
	}
	return numbers
}

// recordOffsets returns the file offset of each record in an uncorrupted
// build of the log, in walk order.
func recordOffsets(t *testing.T, data []byte) []int {
	t.Helper()
	header, err := evt.ParseFileHeader(data)
	require.NoError(t, err)

	raws, _ := evt.NewScanner(data, header).Scan()
	offsets := make([]int, len(raws))
	for i, r := range raws {
		offsets[i] = int(r.Offset)
	}
	return offsets
}
