package database

import (
	"sort"

	"github.com/pangolin-db/pangolin/common"
)

// batch is a path-sorted run of operations, at most one per key path.
// Sorting makes every per-level partition a contiguous split, which is
// what lets apply divide work by tree position.
type batch[K, V any] struct {
	operations []operation[K, V]
}

func newBatch[K, V any](operations []operation[K, V]) *batch[K, V] {
	sort.Slice(operations, func(i, j int) bool {
		return operations[i].path.Compare(operations[j].path) < 0
	})
	return &batch[K, V]{operations: operations}
}

// splitOperations partitions a sorted operation window by the direction
// taken at depth. Operations going left precede those going right, so
// the partition is a single cut.
func splitOperations[K, V any](operations []operation[K, V], depth int) (left, right []operation[K, V]) {
	cut := sort.Search(len(operations), func(i int) bool {
		return operations[i].path.At(depth) == common.Right
	})
	return operations[:cut], operations[cut:]
}
