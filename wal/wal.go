// Package wal implements the write-ahead log collaborator of a database.
// Every executed batch appends one record per mutating operation; on
// startup the database replays the records into fresh tables.
package wal

import (
	"encoding/binary"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/pangolin-db/pangolin/kvdb"
)

// Record operation tags.
const (
	OpSet uint8 = iota
	OpRemove
)

// Record is a single logged mutation. Key and Value hold the canonical
// encodings of the wrapped key and value; Value is nil for removals.
// Records are table-qualified so one log can back any number of tables.
type Record struct {
	Op    uint8  `json:"op"`
	Table string `json:"table"`
	Key   []byte `json:"key"`
	Value []byte `json:"value,omitempty"`
}

// Log is an ordered, durable stream of Records on top of a key-value
// store. Records are keyed by a monotonic 8-byte big-endian sequence
// number so that iteration replays them in append order.
type Log struct {
	db kvdb.KeyValueStore

	mu  sync.Mutex
	seq uint64 // next sequence number to assign
}

// Open wraps a key-value store as a log, resuming the sequence counter
// after any records already present.
func Open(db kvdb.KeyValueStore) (*Log, error) {
	log := &Log{db: db}

	it := db.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		if len(it.Key()) != 8 {
			return nil, errors.Errorf("wal: malformed sequence key of length %d", len(it.Key()))
		}
		log.seq = binary.BigEndian.Uint64(it.Key()) + 1
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrap(err, "wal: scan")
	}
	return log, nil
}

// Append atomically appends a group of records to the log.
func (l *Log) Append(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	batch := l.db.NewBatch()
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return errors.Wrap(err, "wal: encode record")
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], l.seq)
		l.seq++
		if err := batch.Put(key[:], data); err != nil {
			return errors.Wrap(err, "wal: queue record")
		}
	}
	return errors.Wrap(batch.Write(), "wal: write")
}

// Replay invokes fn for every record in append order. Replay stops at the
// first error returned by fn.
func (l *Log) Replay(fn func(Record) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	it := l.db.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		var record Record
		if err := json.Unmarshal(it.Value(), &record); err != nil {
			return errors.Wrap(err, "wal: decode record")
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return errors.Wrap(it.Error(), "wal: scan")
}

// Close closes the backing store.
func (l *Log) Close() error {
	return l.db.Close()
}
