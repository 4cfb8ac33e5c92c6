package database

import "github.com/pangolin-db/pangolin/common"

// Family is the set flavor of a database: a registry of collections
// sharing one node arena.
type Family[I any] struct {
	db *Database[I, common.Unit]
}

// NewFamily creates an empty in-memory family.
func NewFamily[I any]() *Family[I] {
	return &Family[I]{db: New[I, common.Unit]()}
}

// OpenFamily creates a family from a configuration, replaying any
// write-ahead log it names.
func OpenFamily[I any](cfg Config) (*Family[I], error) {
	db, err := Open[I, common.Unit](cfg)
	if err != nil {
		return nil, err
	}
	return &Family[I]{db: db}, nil
}

// EmptyCollection creates and registers an empty collection.
func (f *Family[I]) EmptyCollection(name string) (*Collection[I], error) {
	table, err := f.db.EmptyTable(name)
	if err != nil {
		return nil, err
	}
	return &Collection[I]{table: table}, nil
}

// GetCollection returns the registered collection of the given name, or
// nil.
func (f *Family[I]) GetCollection(name string) *Collection[I] {
	table := f.db.GetTable(name)
	if table == nil {
		return nil
	}
	return &Collection[I]{table: table}
}

// Receive opens a sync session that will materialize a remote collection
// under the given name.
func (f *Family[I]) Receive(name string) (*CollectionReceiver[I], error) {
	receiver, err := f.db.Receive(name)
	if err != nil {
		return nil, err
	}
	return &CollectionReceiver[I]{inner: receiver}, nil
}

// Close releases every collection and closes the write-ahead log.
func (f *Family[I]) Close() error {
	return f.db.Close()
}
