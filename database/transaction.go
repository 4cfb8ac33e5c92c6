package database

import (
	"sync/atomic"

	"github.com/pangolin-db/pangolin/common"
)

// Tid identifies a transaction. Tids are allocated from a global
// monotonic counter, so a Query can never be replayed against the
// response of a different transaction.
type Tid uint64

var tidCounter atomic.Uint64

func nextTid() Tid {
	return Tid(tidCounter.Add(1))
}

// Query is a handle to a read issued at transaction build time. The
// matching value is looked up in the TableResponse of the same
// transaction after execution.
type Query struct {
	tid  Tid
	path common.Path
}

// TableTransaction accumulates operations against a table. Each key
// admits at most one operation per transaction; a second operation on
// the same key path fails with ErrKeyCollision. Transactions are not
// safe for concurrent use.
type TableTransaction[K, V any] struct {
	tid        Tid
	operations []operation[K, V]
	paths      map[common.Path]struct{}
}

// NewTransaction creates an empty transaction with a fresh Tid.
func NewTransaction[K, V any]() *TableTransaction[K, V] {
	return &TableTransaction[K, V]{
		tid:   nextTid(),
		paths: make(map[common.Path]struct{}),
	}
}

// Get schedules a read of key and returns the Query under which the
// result will be available.
func (t *TableTransaction[K, V]) Get(key K) (Query, error) {
	op, err := getOperation[K, V](key)
	if err != nil {
		return Query{}, err
	}
	if err := t.push(op); err != nil {
		return Query{}, err
	}
	return Query{tid: t.tid, path: op.path}, nil
}

// Set schedules a write of value under key.
func (t *TableTransaction[K, V]) Set(key K, value V) error {
	op, err := setOperation[K, V](key, value)
	if err != nil {
		return err
	}
	return t.push(op)
}

// Remove schedules a removal of key. Removing an absent key executes as
// a no-op.
func (t *TableTransaction[K, V]) Remove(key K) error {
	op, err := removeOperation[K, V](key)
	if err != nil {
		return err
	}
	return t.push(op)
}

func (t *TableTransaction[K, V]) push(op operation[K, V]) error {
	if _, ok := t.paths[op.path]; ok {
		return ErrKeyCollision
	}
	t.paths[op.path] = struct{}{}
	t.operations = append(t.operations, op)
	return nil
}

// finalize sorts the accumulated operations into a batch and consumes
// the transaction.
func (t *TableTransaction[K, V]) finalize() (Tid, *batch[K, V]) {
	operations := t.operations
	t.operations = nil
	t.paths = nil
	return t.tid, newBatch(operations)
}
