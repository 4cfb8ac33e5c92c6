package database

import (
	"sort"

	"github.com/pangolin-db/pangolin/common"
	"github.com/pangolin-db/pangolin/merkle"
	"github.com/pangolin-db/pangolin/wal"
)

// Table is a persistent authenticated map backed by a database's shared
// store. Cloning a table is O(1): the clone shares every unchanged
// subtree with its siblings. A table must not execute two transactions
// concurrently; tables of the same database serialize on the store.
type Table[K, V any] struct {
	handle *handle[K, V]
	name   string
	db     *Database[K, V]
}

func tableFromHandle[K, V any](h *handle[K, V], name string, db *Database[K, V]) *Table[K, V] {
	return &Table[K, V]{handle: h, name: name, db: db}
}

// Name returns the name the table was created or received under.
func (t *Table[K, V]) Name() string {
	return t.name
}

// Commit returns a cryptographic commitment to the table's contents.
// Two tables holding the same records commit to the same digest,
// independent of how the records got there.
func (t *Table[K, V]) Commit() common.Hash {
	return t.handle.commit()
}

// Execute runs a transaction against the table and returns its
// response. When the database carries a write-ahead log, the batch is
// logged before it is applied; a logging failure leaves the table
// untouched.
func (t *Table[K, V]) Execute(transaction *TableTransaction[K, V]) (*TableResponse[K, V], error) {
	tid, b := transaction.finalize()

	if log := t.db.log; log != nil {
		if err := log.Append(logRecords(t.name, b)); err != nil {
			return nil, err
		}
	}

	b = t.handle.apply(b)
	return newResponse(tid, b), nil
}

// Clone returns a table sharing this table's contents. The clone is
// independent: mutating one does not affect the other.
func (t *Table[K, V]) Clone() *Table[K, V] {
	return tableFromHandle(t.handle.clone(), t.name, t.db)
}

// Close releases the table's hold on its tree. Entries no table or
// receiver references anymore are reclaimed.
func (t *Table[K, V]) Close() {
	t.handle.drop()
	t.db.deregister(t)
}

// Export extracts a proof map carrying exactly the records reachable
// through keys, with every untouched subtree elided into a stub. The
// exported map commits to the same digest as the table.
func (t *Table[K, V]) Export(keys []K) (*merkle.Map[K, V], error) {
	paths := make([]common.Path, 0, len(keys))
	for _, key := range keys {
		wrap, err := common.NewWrap(key)
		if err != nil {
			return nil, err
		}
		paths = append(paths, common.PathFrom(wrap.Digest()))
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i].Compare(paths[j]) < 0 })

	t.handle.mu.RLock()
	root := t.handle.root
	s := t.handle.cell.take()
	exported := exportTree(s, root, paths, 0)
	t.handle.cell.restore(s)
	t.handle.mu.RUnlock()

	return merkle.Raw(exported), nil
}

// Send opens a sync session serving this table's contents. The session
// operates on a clone, so the table stays usable while the transfer
// runs.
func (t *Table[K, V]) Send() *TableSender[K, V] {
	return &TableSender[K, V]{handle: t.handle.clone(), db: t.db}
}

// Change is one record-level difference: the value on each side, nil
// where the record is absent.
type Change[V any] struct {
	Before *V
	After  *V
}

// Diff compares two tables of the same database record by record.
// Subtrees shared between the tables are pruned without being visited,
// which is where storing near-identical tables in one database pays off.
func Diff[K comparable, V any](left, right *Table[K, V]) map[K]Change[V] {
	if left.handle.cell != right.handle.cell {
		panic("called Diff on tables of different databases")
	}

	// Roots are pinned in creation order so that concurrent mirrored
	// diffs cannot entangle with a writer waiting on either handle.
	first, second := left.handle, right.handle
	if first.id > second.id {
		first, second = second, first
	}
	first.mu.RLock()
	if second != first {
		second.mu.RLock()
	}
	leftRoot, rightRoot := left.handle.root, right.handle.root

	var lc, rc leafCandidates[K, V]
	s := left.handle.cell.take()
	diffTrees(s, leftRoot, rightRoot, &lc, &rc)
	left.handle.cell.restore(s)

	if second != first {
		second.mu.RUnlock()
	}
	first.mu.RUnlock()

	type sides struct {
		before, after *common.Wrap[V]
	}
	merged := make(map[K]*sides, len(lc.leaves)+len(rc.leaves))
	for _, leaf := range lc.leaves {
		merged[leaf.key.Inner()] = &sides{before: leaf.value}
	}
	for _, leaf := range rc.leaves {
		if entry, ok := merged[leaf.key.Inner()]; ok {
			if entry.before != nil && entry.before.Digest() == leaf.value.Digest() {
				// Same value on both sides: self-cancelling.
				delete(merged, leaf.key.Inner())
				continue
			}
			entry.after = leaf.value
			continue
		}
		merged[leaf.key.Inner()] = &sides{after: leaf.value}
	}

	diff := make(map[K]Change[V], len(merged))
	for key, entry := range merged {
		var change Change[V]
		if entry.before != nil {
			value := entry.before.Inner()
			change.Before = &value
		}
		if entry.after != nil {
			value := entry.after.Inner()
			change.After = &value
		}
		diff[key] = change
	}
	return diff
}

// logRecords flattens a batch's mutations into write-ahead log records.
func logRecords[K, V any](table string, b *batch[K, V]) []wal.Record {
	records := make([]wal.Record, 0, len(b.operations))
	for _, op := range b.operations {
		switch op.kind {
		case actionSet:
			records = append(records, wal.Record{
				Op:    wal.OpSet,
				Table: table,
				Key:   op.key.Bytes(),
				Value: op.value.Bytes(),
			})
		case actionRemove:
			records = append(records, wal.Record{
				Op:    wal.OpRemove,
				Table: table,
				Key:   op.key.Bytes(),
			})
		}
	}
	return records
}
