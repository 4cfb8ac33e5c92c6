package database

import "sort"

// TableResponse carries the results of an executed transaction. Reads
// are served by looking up the Query handles issued at build time.
type TableResponse[K, V any] struct {
	tid   Tid
	batch *batch[K, V]
}

func newResponse[K, V any](tid Tid, b *batch[K, V]) *TableResponse[K, V] {
	return &TableResponse[K, V]{tid: tid, batch: b}
}

// Get returns the value read by query, or ok == false if the key was
// absent when the transaction executed. Passing a Query from a different
// transaction is a programming error.
func (r *TableResponse[K, V]) Get(query Query) (value V, ok bool) {
	if query.tid != r.tid {
		panic("called Get with a foreign query")
	}

	operations := r.batch.operations
	index := sort.Search(len(operations), func(i int) bool {
		return operations[i].path.Compare(query.path) >= 0
	})
	if index == len(operations) || operations[index].path != query.path {
		panic("query path missing from its own response")
	}
	op := operations[index]
	if op.kind != actionGet {
		panic("query resolved to a non-get operation")
	}
	if !op.found {
		return value, false
	}
	return op.value.Inner(), true
}
