package database

import (
	"github.com/pangolin-db/pangolin/common"
	"github.com/pangolin-db/pangolin/merkle"
)

// Collection is the set flavor of a table: items are keys, values carry
// no information.
type Collection[I any] struct {
	table *Table[I, common.Unit]
}

// Name returns the name the collection was created or received under.
func (c *Collection[I]) Name() string {
	return c.table.Name()
}

// Commit returns a cryptographic commitment to the collection's
// contents.
func (c *Collection[I]) Commit() common.Hash {
	return c.table.Commit()
}

// Execute runs a transaction against the collection.
func (c *Collection[I]) Execute(transaction *CollectionTransaction[I]) (*CollectionResponse[I], error) {
	response, err := c.table.Execute(transaction.inner)
	if err != nil {
		return nil, err
	}
	return &CollectionResponse[I]{inner: response}, nil
}

// Clone returns an independent collection sharing this one's contents.
func (c *Collection[I]) Clone() *Collection[I] {
	return &Collection[I]{table: c.table.Clone()}
}

// Close releases the collection's hold on its tree.
func (c *Collection[I]) Close() {
	c.table.Close()
}

// Export extracts an authenticated set proof for the listed items.
func (c *Collection[I]) Export(items []I) (*merkle.Set[I], error) {
	exported, err := c.table.Export(items)
	if err != nil {
		return nil, err
	}
	return merkle.RawSet(exported.Root()), nil
}

// Send opens a sync session serving this collection's contents.
func (c *Collection[I]) Send() *CollectionSender[I] {
	return &CollectionSender[I]{inner: c.table.Send()}
}

// CollectionDiff compares two collections of the same family, returning
// the items found only in the left and only in the right one.
func CollectionDiff[I comparable](left, right *Collection[I]) (onlyLeft, onlyRight map[I]struct{}) {
	onlyLeft = make(map[I]struct{})
	onlyRight = make(map[I]struct{})
	for item, change := range Diff(left.table, right.table) {
		if change.Before != nil {
			onlyLeft[item] = struct{}{}
		} else {
			onlyRight[item] = struct{}{}
		}
	}
	return onlyLeft, onlyRight
}

// CollectionTransaction accumulates operations against a collection.
type CollectionTransaction[I any] struct {
	inner *TableTransaction[I, common.Unit]
}

// NewCollectionTransaction creates an empty transaction.
func NewCollectionTransaction[I any]() *CollectionTransaction[I] {
	return &CollectionTransaction[I]{inner: NewTransaction[I, common.Unit]()}
}

// Contains schedules a membership check of item.
func (t *CollectionTransaction[I]) Contains(item I) (Query, error) {
	return t.inner.Get(item)
}

// Insert schedules an insertion of item.
func (t *CollectionTransaction[I]) Insert(item I) error {
	return t.inner.Set(item, common.Unit{})
}

// Remove schedules a removal of item.
func (t *CollectionTransaction[I]) Remove(item I) error {
	return t.inner.Remove(item)
}

// CollectionResponse carries the results of an executed collection
// transaction.
type CollectionResponse[I any] struct {
	inner *TableResponse[I, common.Unit]
}

// Contains reports the result of a membership query.
func (r *CollectionResponse[I]) Contains(query Query) bool {
	_, ok := r.inner.Get(query)
	return ok
}

// CollectionSender serves a collection's contents to a remote receiver.
type CollectionSender[I any] struct {
	inner *TableSender[I, common.Unit]
}

// Hello produces the opening answer of the session.
func (s *CollectionSender[I]) Hello() *Answer[I, common.Unit] {
	return s.inner.Hello()
}

// Answer expands each questioned label answerDepth levels.
func (s *CollectionSender[I]) Answer(question *Question) (*Answer[I, common.Unit], error) {
	return s.inner.Answer(question)
}

// End closes the session, turning the sender's hold back into a
// collection.
func (s *CollectionSender[I]) End(name string) *Collection[I] {
	return &Collection[I]{table: s.inner.End(name)}
}

// Close abandons the session.
func (s *CollectionSender[I]) Close() {
	s.inner.Close()
}

// CollectionStatus is the outcome of one learn step of a collection
// sync.
type CollectionStatus[I any] struct {
	Collection *Collection[I]
	Question   *Question
}

// CollectionReceiver rebuilds a remote collection inside the local
// family.
type CollectionReceiver[I any] struct {
	inner *TableReceiver[I, common.Unit]
}

// Learn digests one answer of the sync session.
func (r *CollectionReceiver[I]) Learn(answer *Answer[I, common.Unit]) (*CollectionStatus[I], error) {
	status, err := r.inner.Learn(answer)
	if err != nil {
		return nil, err
	}
	if status.Table != nil {
		return &CollectionStatus[I]{Collection: &Collection[I]{table: status.Table}}, nil
	}
	return &CollectionStatus[I]{Question: status.Question}, nil
}
