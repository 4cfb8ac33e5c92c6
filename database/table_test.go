package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pangolin-db/pangolin/common"
)

func TestExecuteReadsAndWrites(t *testing.T) {
	db := New[string, int]()
	table, err := db.EmptyTable("test")
	require.NoError(t, err)

	modify := NewTransaction[string, int]()
	require.NoError(t, modify.Set("alice", 42))
	_, err = table.Execute(modify)
	require.NoError(t, err)

	read := NewTransaction[string, int]()
	query, err := read.Get("alice")
	require.NoError(t, err)
	missing, err := read.Get("bob")
	require.NoError(t, err)

	response, err := table.Execute(read)
	require.NoError(t, err)

	value, ok := response.Get(query)
	require.True(t, ok)
	require.Equal(t, 42, value)

	_, ok = response.Get(missing)
	require.False(t, ok)
}

func TestExecuteRemove(t *testing.T) {
	db := New[string, int]()
	table, err := db.EmptyTable("test")
	require.NoError(t, err)

	modify := NewTransaction[string, int]()
	require.NoError(t, modify.Set("alice", 42))
	require.NoError(t, modify.Set("bob", 23))
	_, err = table.Execute(modify)
	require.NoError(t, err)

	remove := NewTransaction[string, int]()
	require.NoError(t, remove.Remove("alice"))
	// Removing a key that was never set is a no-op.
	require.NoError(t, remove.Remove("carol"))
	_, err = table.Execute(remove)
	require.NoError(t, err)

	assertRecords(t, table, map[string]int{"bob": 23})
	checkCorrectness(t, db, []*Table[string, int]{table})
}

func TestTransactionKeyCollision(t *testing.T) {
	transaction := NewTransaction[int, int]()
	require.NoError(t, transaction.Set(0, 0))
	require.ErrorIs(t, transaction.Set(0, 1), ErrKeyCollision)
	require.ErrorIs(t, transaction.Remove(0), ErrKeyCollision)
	_, err := transaction.Get(0)
	require.ErrorIs(t, err, ErrKeyCollision)
}

func TestResponseRejectsForeignQuery(t *testing.T) {
	db := New[int, int]()
	table, err := db.EmptyTable("test")
	require.NoError(t, err)

	first := NewTransaction[int, int]()
	query, err := first.Get(0)
	require.NoError(t, err)
	_, err = table.Execute(first)
	require.NoError(t, err)

	second := NewTransaction[int, int]()
	_, err = second.Get(0)
	require.NoError(t, err)
	response, err := table.Execute(second)
	require.NoError(t, err)

	require.Panics(t, func() { response.Get(query) })
}

func TestModifyBasic(t *testing.T) {
	db := New[int, int]()
	table := tableWithRecords(t, db, "test", 256)
	before := table.Commit()

	transaction := NewTransaction[int, int]()
	for i := 128; i < 256; i++ {
		require.NoError(t, transaction.Set(i, i+1))
	}
	_, err := table.Execute(transaction)
	require.NoError(t, err)

	assertRecords(t, table, records(256, func(i int) int {
		if i < 128 {
			return i
		}
		return i + 1
	}))
	require.NotEqual(t, before, table.Commit())
	checkCorrectness(t, db, []*Table[int, int]{table})
}

func TestCloneIndependence(t *testing.T) {
	db := New[int, int]()
	table := tableWithRecords(t, db, "test", 256)
	clone := table.Clone()

	transaction := NewTransaction[int, int]()
	for i := 128; i < 256; i++ {
		require.NoError(t, transaction.Set(i, i+1))
	}
	_, err := table.Execute(transaction)
	require.NoError(t, err)

	// The clone still reports the original records.
	assertRecords(t, clone, records(256, func(i int) int { return i }))
	assertRecords(t, table, records(256, func(i int) int {
		if i < 128 {
			return i
		}
		return i + 1
	}))
	checkCorrectness(t, db, []*Table[int, int]{table, clone})

	clone.Close()
	assertRecords(t, table, records(256, func(i int) int {
		if i < 128 {
			return i
		}
		return i + 1
	}))
	checkCorrectness(t, db, []*Table[int, int]{table})
}

func TestDropEverything(t *testing.T) {
	db := New[int, int]()
	table := tableWithRecords(t, db, "test", 512)

	table.Close()
	withStore(db, func(s *store[int, int]) {
		require.Equal(t, 0, s.size(), "closing the last table must reclaim the whole tree")
	})
	require.Nil(t, db.GetTable("test"))
}

func TestCommitDeterminism(t *testing.T) {
	db := New[int, int]()

	forward, err := db.EmptyTable("forward")
	require.NoError(t, err)
	for i := 0; i < 64; i++ {
		transaction := NewTransaction[int, int]()
		require.NoError(t, transaction.Set(i, i))
		_, err := forward.Execute(transaction)
		require.NoError(t, err)
	}

	backward, err := db.EmptyTable("backward")
	require.NoError(t, err)
	for i := 63; i >= 0; i-- {
		transaction := NewTransaction[int, int]()
		require.NoError(t, transaction.Set(i, i))
		_, err := backward.Execute(transaction)
		require.NoError(t, err)
	}

	require.Equal(t, forward.Commit(), backward.Commit())
	require.NotEqual(t, forward.Commit(), common.EmptyHash)

	// Identical contents share the entire tree.
	checkCorrectness(t, db, []*Table[int, int]{forward, backward})
	withStore(db, func(s *store[int, int]) {
		require.Equal(t, len(collectTree(s, forward.handle.getRoot())), s.size())
	})
}

func TestSequencedBatchesMatchMergedBatch(t *testing.T) {
	sequenced := New[int, int]()
	tableSeq := tableWithRecords(t, sequenced, "test", 128)

	first := NewTransaction[int, int]()
	for i := 0; i < 64; i++ {
		require.NoError(t, first.Set(i, i*2))
	}
	_, err := tableSeq.Execute(first)
	require.NoError(t, err)

	second := NewTransaction[int, int]()
	for i := 32; i < 96; i++ {
		require.NoError(t, second.Remove(i))
	}
	_, err = tableSeq.Execute(second)
	require.NoError(t, err)

	// The merged batch applies the same operations with the later
	// transaction winning on overlapping keys.
	merged := New[int, int]()
	tableMerged := tableWithRecords(t, merged, "test", 128)

	transaction := NewTransaction[int, int]()
	for i := 0; i < 32; i++ {
		require.NoError(t, transaction.Set(i, i*2))
	}
	for i := 32; i < 96; i++ {
		require.NoError(t, transaction.Remove(i))
	}
	_, err = tableMerged.Execute(transaction)
	require.NoError(t, err)

	require.Equal(t, tableMerged.Commit(), tableSeq.Commit())
}

func TestSetIdenticalValueKeepsCommit(t *testing.T) {
	db := New[int, int]()
	table := tableWithRecords(t, db, "test", 32)
	before := table.Commit()

	transaction := NewTransaction[int, int]()
	for i := 0; i < 32; i++ {
		require.NoError(t, transaction.Set(i, i))
	}
	_, err := table.Execute(transaction)
	require.NoError(t, err)

	require.Equal(t, before, table.Commit())
	checkCorrectness(t, db, []*Table[int, int]{table})
}
