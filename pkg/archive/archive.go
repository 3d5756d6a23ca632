// Package archive persists decoded event records in a local pebble store so
// batches can be re-queried later without re-parsing the original files.
//
// Keys are <source path> 0x00 <record number, big-endian>, which keeps one
// file's records contiguous and ordered. Values are zstd-compressed JSON
// documents with the same stable field set the formatters emit.
package archive

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/klauspost/compress/zstd"

	"github.com/ssargent/muninn/pkg/codec"
	"github.com/ssargent/muninn/pkg/evt"
)

// ArchivedRecord is the stored shape of one event record.
type ArchivedRecord struct {
	RecordNumber  uint32   `json:"record_number"`
	TimeGenerated string   `json:"time_generated,omitempty"`
	TimeWritten   string   `json:"time_written,omitempty"`
	EventID       uint16   `json:"event_id"`
	EventType     string   `json:"event_type"`
	EventCategory uint16   `json:"event_category"`
	Source        string   `json:"source"`
	ComputerName  string   `json:"computer_name"`
	UserSID       string   `json:"user_sid,omitempty"`
	Strings       []string `json:"strings"`
	Data          string   `json:"data,omitempty"`
	Status        string   `json:"status"`
}

// Store is a pebble-backed archive of decoded records. It is safe for
// concurrent use by batch workers.
type Store struct {
	db  *pebble.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens (or creates) an archive at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening archive at %s: %w", path, err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}

	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close releases the store.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

// Store archives every record of a parse result under its source path. It
// satisfies the batch driver's Sink interface.
func (s *Store) Store(result *evt.ParseResult) error {
	return s.Archive(result.Path, result.Records)
}

// Archive writes records under the given source path, overwriting any
// previous archive of the same file.
func (s *Store) Archive(source string, records []evt.Record) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, rec := range records {
		doc, err := json.Marshal(NewArchivedRecord(rec))
		if err != nil {
			return fmt.Errorf("encoding record %d: %w", rec.Number, err)
		}
		compressed := s.enc.EncodeAll(doc, nil)
		if err := batch.Set(recordKey(source, rec.Number), compressed, nil); err != nil {
			return err
		}
	}

	return batch.Commit(pebble.Sync)
}

// Records returns every archived record for a source path, ordered by
// record number.
func (s *Store) Records(source string) ([]ArchivedRecord, error) {
	return s.Query(source, Filter{})
}

// Filter selects archived records by exact match on one JSON field. The
// zero Filter matches everything.
type Filter struct {
	Field  string
	Equals string
}

// Query returns the archived records for a source that match the filter,
// ordered by record number.
func (s *Store) Query(source string, filter Filter) ([]ArchivedRecord, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: sourcePrefix(source),
		UpperBound: sourceUpperBound(source),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var records []ArchivedRecord
	for iter.First(); iter.Valid(); iter.Next() {
		doc, err := s.dec.DecodeAll(iter.Value(), nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing %q: %w", iter.Key(), err)
		}

		if filter.Field != "" {
			match, err := fieldEquals(doc, filter.Field, filter.Equals)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
		}

		var rec ArchivedRecord
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, fmt.Errorf("decoding %q: %w", iter.Key(), err)
		}
		records = append(records, rec)
	}
	return records, iter.Error()
}

// Sources lists the distinct source paths present in the archive, in key
// order.
func (s *Store) Sources() ([]string, error) {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var sources []string
	var last string
	for iter.First(); iter.Valid(); iter.Next() {
		source, ok := splitKey(iter.Key())
		if !ok {
			return nil, fmt.Errorf("malformed archive key %q", iter.Key())
		}
		if source != last || len(sources) == 0 {
			sources = append(sources, source)
			last = source
		}
	}
	return sources, iter.Error()
}

// NewArchivedRecord converts a decoded record into its stored shape.
func NewArchivedRecord(rec evt.Record) ArchivedRecord {
	archived := ArchivedRecord{
		RecordNumber:  rec.Number,
		TimeGenerated: codec.FormatTimestamp(rec.TimeGenerated),
		TimeWritten:   codec.FormatTimestamp(rec.TimeWritten),
		EventID:       rec.EventCode(),
		EventType:     rec.TypeName(),
		EventCategory: rec.EventCategory,
		Source:        rec.Source,
		ComputerName:  rec.Computer,
		UserSID:       rec.SID,
		Strings:       rec.Strings,
		Status:        rec.Status.String(),
	}
	if len(rec.Data) > 0 {
		archived.Data = base64.StdEncoding.EncodeToString(rec.Data)
	}
	return archived
}

func recordKey(source string, number uint32) []byte {
	key := make([]byte, 0, len(source)+5)
	key = append(key, source...)
	key = append(key, 0x00)
	key = binary.BigEndian.AppendUint32(key, number)
	return key
}

func sourcePrefix(source string) []byte {
	return append([]byte(source), 0x00)
}

func sourceUpperBound(source string) []byte {
	return append([]byte(source), 0x01)
}

func splitKey(key []byte) (string, bool) {
	// Record numbers occupy the last 4 bytes; the separator precedes them.
	if len(key) < 5 || key[len(key)-5] != 0x00 {
		return "", false
	}
	return string(key[:len(key)-5]), true
}

var errUnknownField = errors.New("unknown query field")

// queryableFields guards against typos in user-supplied field names; every
// name matches a JSON key of ArchivedRecord.
var queryableFields = map[string]bool{
	"record_number":  true,
	"time_generated": true,
	"time_written":   true,
	"event_id":       true,
	"event_type":     true,
	"event_category": true,
	"source":         true,
	"computer_name":  true,
	"user_sid":       true,
	"status":         true,
}
