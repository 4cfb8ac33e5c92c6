package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pangolin-db/pangolin/common"
)

// withStore borrows the database's store for the duration of fn.
func withStore[K, V any](db *Database[K, V], fn func(s *store[K, V])) {
	s := db.cell.take()
	defer db.cell.restore(s)
	fn(s)
}

// checkTree asserts that the tree under root is structurally correct:
// internal nodes are compact and live in the shard their position
// dictates, leaves sit on their key path, stored digests match.
func checkTree[K, V any](t *testing.T, s *store[K, V], root Label) {
	t.Helper()
	checkTreeRecursion(t, s, root, common.Root())
}

func checkTreeRecursion[K, V any](t *testing.T, s *store[K, V], label Label, location common.Prefix) {
	t.Helper()
	switch label.kind {
	case labelEmpty:
		return

	case labelInternal:
		require.Equal(t, internalMapID(location), label.MapID(), "internal node in wrong shard")
		n, ok := s.fetch(label)
		require.True(t, ok, "internal node missing from store")
		internal, ok := n.(internalNode[K, V])
		require.True(t, ok, "label kind disagrees with stored node")
		require.Equal(t, label.Hash(), internal.hash(), "stored digest mismatch")

		left, right := internal.children()
		compact := !(left.IsEmpty() && right.IsEmpty() ||
			left.IsEmpty() && right.kind == labelLeaf ||
			left.kind == labelLeaf && right.IsEmpty())
		require.True(t, compact, "children violate compactness")

		checkTreeRecursion(t, s, left, location.Left())
		checkTreeRecursion(t, s, right, location.Right())

	case labelLeaf:
		n, ok := s.fetch(label)
		require.True(t, ok, "leaf missing from store")
		leaf, ok := n.(leafNode[K, V])
		require.True(t, ok, "label kind disagrees with stored node")
		require.Equal(t, label.Hash(), leaf.hash(), "stored digest mismatch")
		require.Equal(t, leafMapID(leaf.key.Digest()), label.MapID(), "leaf in wrong shard")
		require.True(t, location.Contains(common.PathFrom(leaf.key.Digest())), "leaf outside of its key path")
	}
}

// collectTree gathers the labels reachable from root.
func collectTree[K, V any](s *store[K, V], root Label) map[Label]struct{} {
	collector := make(map[Label]struct{})
	var recursion func(Label)
	recursion = func(label Label) {
		if label.IsEmpty() {
			return
		}
		collector[label] = struct{}{}
		if label.kind == labelInternal {
			n := fetchInternal(s, label)
			recursion(n.left)
			recursion(n.right)
		}
	}
	recursion(root)
	return collector
}

// checkReferences asserts that every reachable entry's reference count
// equals the number of links pointing at it: child links of unique
// internal entries plus one external hold per held root.
func checkReferences[K, V any](t *testing.T, s *store[K, V], held []Label) {
	t.Helper()

	expected := make(map[Label]int)
	visited := make(map[Label]struct{})

	var recursion func(Label)
	recursion = func(label Label) {
		if label.kind != labelInternal {
			return
		}
		if _, ok := visited[label]; ok {
			return
		}
		visited[label] = struct{}{}
		n := fetchInternal(s, label)
		for _, child := range []Label{n.left, n.right} {
			if child.IsEmpty() {
				continue
			}
			expected[child]++
			recursion(child)
		}
	}

	for _, root := range held {
		if root.IsEmpty() {
			continue
		}
		expected[root]++
		recursion(root)
	}

	for label, want := range expected {
		e, ok := s.shardFor(label)[label.Hash()]
		require.True(t, ok, "referenced entry %v missing", label)
		require.Equal(t, want, e.references, "wrong reference count on %v", label)
	}
}

// checkLeaks asserts that the store holds nothing beyond what the held
// roots reach.
func checkLeaks[K, V any](t *testing.T, s *store[K, V], held []Label) {
	t.Helper()

	reachable := make(map[Label]struct{})
	for _, root := range held {
		for label := range collectTree(s, root) {
			reachable[label] = struct{}{}
		}
	}
	require.Equal(t, len(reachable), s.size(), "unreachable entries detected")
}

// collectRecords folds the tree under root into a plain map.
func collectRecords[K comparable, V any](s *store[K, V], root Label) map[K]V {
	collector := make(map[K]V)
	var recursion func(Label)
	recursion = func(label Label) {
		switch label.kind {
		case labelInternal:
			n := fetchInternal(s, label)
			recursion(n.left)
			recursion(n.right)
		case labelLeaf:
			leaf := fetchLeaf(s, label)
			collector[leaf.key.Inner()] = leaf.value.Inner()
		}
	}
	recursion(root)
	return collector
}

// assertRecords asserts that table holds exactly the reference records.
func assertRecords[K comparable, V any](t *testing.T, table *Table[K, V], reference map[K]V) {
	t.Helper()
	withStore(table.db, func(s *store[K, V]) {
		require.Equal(t, reference, collectRecords[K, V](s, table.handle.getRoot()))
	})
}

// checkCorrectness runs the structural checks against every held root of
// the database.
func checkCorrectness[K, V any](t *testing.T, db *Database[K, V], tables []*Table[K, V]) {
	t.Helper()

	held := make([]Label, 0, len(tables))
	for _, table := range tables {
		held = append(held, table.handle.getRoot())
	}
	withStore(db, func(s *store[K, V]) {
		for _, root := range held {
			checkTree[K, V](t, s, root)
		}
		checkReferences(t, s, held)
		checkLeaks(t, s, held)
	})
}

// tableWithRecords creates a table holding (i, i) for i in [0, count).
func tableWithRecords(t *testing.T, db *Database[int, int], name string, count int) *Table[int, int] {
	t.Helper()

	table, err := db.EmptyTable(name)
	require.NoError(t, err)

	transaction := NewTransaction[int, int]()
	for i := 0; i < count; i++ {
		require.NoError(t, transaction.Set(i, i))
	}
	_, err = table.Execute(transaction)
	require.NoError(t, err)
	return table
}

// records builds the reference map (i, f(i)) for i in [0, count).
func records(count int, f func(int) int) map[int]int {
	t := make(map[int]int, count)
	for i := 0; i < count; i++ {
		t[i] = f(i)
	}
	return t
}
