// Package database implements an embedded authenticated key-value store
// optimized for holding many near-identical maps. Each table is a
// compact binary Merkle-Patricia tree whose nodes live in a shared,
// reference-counted arena, so cloning a table is O(1) and tables with
// records in common share storage. Tables synchronize between databases
// through a question/answer protocol that never asks for subtrees the
// destination already holds.
package database

import (
	"log/slog"
	"sync"

	"github.com/pangolin-db/pangolin/common"
	"github.com/pangolin-db/pangolin/kvdb/leveldb"
	"github.com/pangolin-db/pangolin/wal"
)

// Database owns one node arena and a registry of named tables backed by
// it. All tables of a database serialize their tree work on the shared
// store; tables of different databases are fully independent.
type Database[K, V any] struct {
	cell   *cell[K, V]
	log    *wal.Log
	logger *slog.Logger

	mu     sync.RWMutex
	tables map[string]*Table[K, V]
}

// New creates an empty in-memory database.
func New[K, V any]() *Database[K, V] {
	db, err := Open[K, V](DefaultConfig)
	if err != nil {
		// An in-memory database has no way to fail.
		panic(err)
	}
	return db
}

// Open creates a database from a configuration. When the configuration
// names a write-ahead log, its records are replayed into fresh tables
// before Open returns.
func Open[K, V any](cfg Config) (*Database[K, V], error) {
	db := &Database[K, V]{
		cell:   newCell(newStore[K, V]()),
		logger: cfg.logger(),
		tables: make(map[string]*Table[K, V]),
	}

	backing := cfg.Backing
	if backing == nil && cfg.Path != "" {
		var err error
		backing, err = leveldb.New(cfg.Path, cfg.Cache, cfg.Handles, false)
		if err != nil {
			return nil, err
		}
	}
	if backing == nil {
		return db, nil
	}

	log, err := wal.Open(backing)
	if err != nil {
		return nil, err
	}
	if err := db.recover(log); err != nil {
		return nil, err
	}
	db.log = log
	return db, nil
}

// EmptyTable creates and registers an empty table.
func (db *Database[K, V]) EmptyTable(name string) (*Table[K, V], error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.tables[name]; ok {
		return nil, ErrTableExists
	}
	table := tableFromHandle(emptyHandle(db.cell), name, db)
	db.tables[name] = table
	return table, nil
}

// GetTable returns the registered table of the given name, or nil.
func (db *Database[K, V]) GetTable(name string) *Table[K, V] {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.tables[name]
}

// Receive opens a sync session that will materialize a remote table
// under the given name. Feed it the sender's answers through Learn.
func (db *Database[K, V]) Receive(name string) (*TableReceiver[K, V], error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if _, ok := db.tables[name]; ok {
		return nil, ErrTableExists
	}
	return &TableReceiver[K, V]{db: db, name: name}, nil
}

// Close releases every table and closes the write-ahead log.
func (db *Database[K, V]) Close() error {
	db.mu.Lock()
	tables := make([]*Table[K, V], 0, len(db.tables))
	for _, table := range db.tables {
		tables = append(tables, table)
	}
	db.tables = make(map[string]*Table[K, V])
	db.mu.Unlock()

	for _, table := range tables {
		table.handle.drop()
	}
	if db.log != nil {
		return db.log.Close()
	}
	return nil
}

func (db *Database[K, V]) register(table *Table[K, V]) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tables[table.name] = table
}

func (db *Database[K, V]) deregister(table *Table[K, V]) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.tables[table.name] == table {
		delete(db.tables, table.name)
	}
}

// recover replays the write-ahead log into fresh tables. Within one
// table the last record per key wins, so the whole history folds into a
// single recovery batch per table.
func (db *Database[K, V]) recover(log *wal.Log) error {
	folded := make(map[string]map[string]*wal.Record)
	order := make(map[string][]string)

	err := log.Replay(func(record wal.Record) error {
		table := folded[record.Table]
		if table == nil {
			table = make(map[string]*wal.Record)
			folded[record.Table] = table
		}
		key := string(record.Key)
		if existing, ok := table[key]; ok {
			*existing = record
			return nil
		}
		held := record
		table[key] = &held
		order[record.Table] = append(order[record.Table], key)
		return nil
	})
	if err != nil {
		return err
	}

	for name, keys := range order {
		transaction := NewTransaction[K, V]()
		records := 0
		for _, key := range keys {
			record := *folded[name][key]
			wrapKey, err := common.WrapFromBytes[K](record.Key)
			if err != nil {
				return err
			}
			switch record.Op {
			case wal.OpSet:
				wrapValue, err := common.WrapFromBytes[V](record.Value)
				if err != nil {
					return err
				}
				if err := transaction.push(wrappedSetOperation(wrapKey, wrapValue)); err != nil {
					return err
				}
			case wal.OpRemove:
				// The key never made it past its own history; folding a
				// removal means the table simply does not hold it.
				continue
			}
			records++
		}

		table, err := db.EmptyTable(name)
		if err != nil {
			return err
		}
		_, b := transaction.finalize()
		table.handle.apply(b)
		db.logger.Info("recovered table from write-ahead log", "table", name, "records", records)
	}
	return nil
}
