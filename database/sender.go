package database

import (
	"github.com/pkg/errors"
)

// TableSender serves a table's tree to a remote receiver, answering
// questions about labels with depth-limited subtrees. The sender holds a
// clone of the table for the duration of the session, so the table can
// keep mutating while the transfer runs.
type TableSender[K, V any] struct {
	handle *handle[K, V]
	db     *Database[K, V]
}

// Hello produces the opening answer of a session: the expansion of the
// tree's root.
func (s *TableSender[K, V]) Hello() *Answer[K, V] {
	answer, err := s.Answer(&Question{labels: []Label{s.handle.getRoot()}})
	if err != nil {
		// The root is always present in the sender's own store.
		panic("sender failed to answer its own root")
	}
	return answer
}

// Answer expands each questioned label answerDepth levels, pre-order.
// Questions about labels the sender does not hold fail with
// ErrMalformedQuestion.
func (s *TableSender[K, V]) Answer(question *Question) (*Answer[K, V], error) {
	var collector []node[K, V]

	st := s.handle.cell.take()
	for _, label := range question.labels {
		var err error
		collector, err = grab(st, collector, label, answerDepth)
		if err != nil {
			s.handle.cell.restore(st)
			return nil, err
		}
	}
	s.handle.cell.restore(st)

	return &Answer[K, V]{nodes: collector}, nil
}

// End closes the session, turning the sender's hold back into a table.
func (s *TableSender[K, V]) End(name string) *Table[K, V] {
	return tableFromHandle(s.handle, name, s.db)
}

// Close abandons the session, releasing the sender's hold on the tree.
func (s *TableSender[K, V]) Close() {
	s.handle.drop()
}

// grab walks ttl levels below label, appending every encountered node to
// the collector in pre-order. Leaves are always included within the
// depth budget.
func grab[K, V any](s *store[K, V], collector []node[K, V], label Label, ttl int) ([]node[K, V], error) {
	if label.IsEmpty() {
		return collector, nil
	}
	n, ok := s.fetch(label)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedQuestion, "unknown label %v", label)
	}

	collector = append(collector, n)

	if internal, ok := n.(internalNode[K, V]); ok && ttl > 0 {
		var err error
		collector, err = grab(s, collector, internal.left, ttl-1)
		if err != nil {
			return nil, err
		}
		collector, err = grab(s, collector, internal.right, ttl-1)
		if err != nil {
			return nil, err
		}
	}
	return collector, nil
}
