package database

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pangolin-db/pangolin/common"
)

// applyBatch rewrites the tree under root according to the batch's
// operations and returns the new root. Get operations are filled in
// place. Reference counts are settled in two strokes: the recursion
// populates and links the new tree, then the old root's hold is released
// in a single cascade, so no entry can be reclaimed while both trees are
// still live.
func applyBatch[K, V any](s *store[K, V], root Label, b *batch[K, V]) (*store[K, V], Label) {
	s, newRoot := applyRecur(s, root, b.operations, 0)
	if newRoot != root {
		s.incref(newRoot)
		releaseTree(s, root)
	}
	return s, newRoot
}

func applyRecur[K, V any](s *store[K, V], target Label, ops []operation[K, V], depth int) (*store[K, V], Label) {
	if len(ops) == 0 {
		return s, target
	}

	n, ok := s.fetch(target)
	if !ok {
		panic(fmt.Sprintf("apply: missing node %v", target))
	}

	switch n := n.(type) {
	case emptyNode[K, V]:
		if len(ops) == 1 {
			op := &ops[0]
			if op.kind != actionSet {
				// Get records the absence, Remove is a no-op.
				return s, EmptyLabel
			}
			leaf := leafNode[K, V]{key: op.key, value: op.value}
			label := s.label(leaf)
			s.populate(label, leaf)
			return s, label
		}
		return applyBranch(s, EmptyLabel, EmptyLabel, ops, depth)

	case leafNode[K, V]:
		leafPath := common.PathFrom(n.key.Digest())
		if len(ops) == 1 && ops[0].path == leafPath {
			op := &ops[0]
			switch op.kind {
			case actionGet:
				op.value, op.found = n.value, true
				return s, target
			case actionRemove:
				return s, EmptyLabel
			case actionSet:
				if op.value.Digest() == n.value.Digest() {
					return s, target
				}
				leaf := leafNode[K, V]{key: op.key, value: op.value}
				label := s.label(leaf)
				s.populate(label, leaf)
				return s, label
			}
		}
		// Some operation diverges from the leaf at this depth: push the
		// leaf down on its own side and rebuild from the split.
		if leafPath.At(depth) == common.Left {
			return applyBranch(s, target, EmptyLabel, ops, depth)
		}
		return applyBranch(s, EmptyLabel, target, ops, depth)

	case internalNode[K, V]:
		return applyBranch(s, n.left, n.right, ops, depth)

	default:
		panic(fmt.Sprintf("%T: invalid node: %v", n, n))
	}
}

// applyBranch processes the two sides of an internal position. The store
// is split on every descent so that a node's label is a deterministic
// function of its content and position; the two halves run concurrently
// when both carry work.
func applyBranch[K, V any](s *store[K, V], left, right Label, ops []operation[K, V], depth int) (*store[K, V], Label) {
	lops, rops := splitOperations(ops, depth)

	var newLeft, newRight Label
	if ls, rs, ok := s.split(); ok {
		if len(lops) > 0 && len(rops) > 0 {
			var group errgroup.Group
			group.Go(func() error {
				ls, newLeft = applyRecur(ls, left, lops, depth+1)
				return nil
			})
			rs, newRight = applyRecur(rs, right, rops, depth+1)
			_ = group.Wait()
		} else {
			ls, newLeft = applyRecur(ls, left, lops, depth+1)
			rs, newRight = applyRecur(rs, right, rops, depth+1)
		}
		s = mergeStores(ls, rs)
	} else {
		s, newLeft = applyRecur(s, left, lops, depth+1)
		s, newRight = applyRecur(s, right, rops, depth+1)
	}

	switch {
	case newLeft.IsEmpty() && newRight.IsEmpty():
		return s, EmptyLabel
	case newLeft.IsEmpty() && newRight.kind == labelLeaf:
		return s, newRight
	case newRight.IsEmpty() && newLeft.kind == labelLeaf:
		return s, newLeft
	}

	n := internalNode[K, V]{left: newLeft, right: newRight}
	label := s.label(n)
	if s.populate(label, n) {
		s.incref(newLeft)
		s.incref(newRight)
	}
	return s, label
}
