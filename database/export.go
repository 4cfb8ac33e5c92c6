package database

import (
	"fmt"

	"github.com/pangolin-db/pangolin/common"
	"github.com/pangolin-db/pangolin/merkle"
)

// exportTree extracts the subtrees reached through the sorted key paths
// into a standalone proof tree, eliding everything else into stubs. The
// result commits to the same digest as the source tree.
func exportTree[K, V any](s *store[K, V], target Label, paths []common.Path, depth int) *merkle.Node[K, V] {
	if len(paths) == 0 {
		if target.IsEmpty() {
			return merkle.Empty[K, V]()
		}
		return merkle.NewStub[K, V](target.Hash())
	}

	n, ok := s.fetch(target)
	if !ok {
		panic(fmt.Sprintf("export: missing node %v", target))
	}

	switch n := n.(type) {
	case emptyNode[K, V]:
		return merkle.Empty[K, V]()

	case leafNode[K, V]:
		// Reached through a requested path. The leaf itself proves either
		// the record or, when its key differs, the record's absence.
		return merkle.NewLeaf(n.key, n.value)

	case internalNode[K, V]:
		lpaths, rpaths := splitPaths(paths, depth)
		left := exportTree(s, n.left, lpaths, depth+1)
		right := exportTree(s, n.right, rpaths, depth+1)
		return merkle.NewInternal(left, right)

	default:
		panic(fmt.Sprintf("%T: invalid node: %v", n, n))
	}
}

// splitPaths partitions a sorted path window by the direction taken at
// depth.
func splitPaths(paths []common.Path, depth int) (left, right []common.Path) {
	cut := 0
	for cut < len(paths) && paths[cut].At(depth) == common.Left {
		cut++
	}
	return paths[:cut], paths[cut:]
}
