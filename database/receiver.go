package database

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/pangolin-db/pangolin/common"
)

// TableStatus is the outcome of one learn step: either the transferred
// table, complete and registered, or the next question to relay to the
// sender.
type TableStatus[K, V any] struct {
	Table    *Table[K, V]
	Question *Question
}

// expectation pins down what the next node of an answer stream must be:
// its label (except for the very first node of a session, which
// introduces the root) and its position in the tree.
type expectation struct {
	label    Label
	location common.Prefix
	ttl      int
	verify   bool
	discard  bool
}

// TableReceiver rebuilds a remote table inside the local store, asking
// only about subtrees it does not already hold. A receiver is consumed
// by Learn: after an error or completion it cannot be reused.
type TableReceiver[K, V any] struct {
	db   *Database[K, V]
	name string

	rootKnown bool
	root      Label
	pending   []expectation
	done      bool
}

// answerCursor steps through the flat node list of an answer.
type answerCursor[K, V any] struct {
	nodes []node[K, V]
	index int
}

func (c *answerCursor[K, V]) next() (node[K, V], error) {
	if c.index >= len(c.nodes) {
		return nil, errors.Wrap(ErrMalformedAnswer, "answer exhausted early")
	}
	n := c.nodes[c.index]
	c.index++
	return n, nil
}

// Learn digests one answer. It returns the completed table once no
// unknown labels remain, or the next question otherwise. A malformed
// answer aborts the session and unwinds everything it had installed.
func (r *TableReceiver[K, V]) Learn(answer *Answer[K, V]) (*TableStatus[K, V], error) {
	if r.done {
		return nil, ErrSyncEnded
	}

	s := r.db.cell.take()
	status, err := r.learn(s, answer)
	if err != nil {
		// The session is unusable: release whatever was installed.
		if r.rootKnown {
			scrapTree(s, r.root)
		}
		r.done = true
		r.db.cell.restore(s)
		return nil, err
	}
	r.db.cell.restore(s)

	if status.Table != nil {
		r.done = true
		r.db.register(status.Table)
	}
	return status, nil
}

func (r *TableReceiver[K, V]) learn(s *store[K, V], answer *Answer[K, V]) (*TableStatus[K, V], error) {
	cursor := &answerCursor[K, V]{nodes: answer.nodes}

	var expected []expectation
	if !r.rootKnown {
		if len(answer.nodes) == 0 {
			// An empty hello: the sender's table is empty.
			r.rootKnown = true
			r.root = EmptyLabel
		} else {
			expected = []expectation{{location: common.Root(), ttl: answerDepth}}
		}
	} else {
		expected = r.pending
		for i := range expected {
			expected[i].ttl = answerDepth
		}
	}
	r.pending = nil

	for _, exp := range expected {
		if _, err := r.consume(s, cursor, exp); err != nil {
			return nil, err
		}
	}
	if cursor.index != len(cursor.nodes) {
		return nil, errors.Wrap(ErrMalformedAnswer, "unsolicited nodes")
	}

	if len(r.pending) > 0 {
		labels := make([]Label, len(r.pending))
		for i, exp := range r.pending {
			labels[i] = exp.label
		}
		return &TableStatus[K, V]{Question: &Question{labels: labels}}, nil
	}
	return &TableStatus[K, V]{Table: tableFromHandle(newHandle(r.db.cell, r.root), r.name, r.db)}, nil
}

// consume processes one expected subtree of the answer stream and
// returns the label of its top node. Subtrees already present locally
// are referenced and their streamed copies drained without installing.
func (r *TableReceiver[K, V]) consume(s *store[K, V], cursor *answerCursor[K, V], exp expectation) (Label, error) {
	n, err := cursor.next()
	if err != nil {
		return EmptyLabel, err
	}

	var label Label
	switch n := n.(type) {
	case emptyNode[K, V]:
		return EmptyLabel, errors.Wrap(ErrMalformedAnswer, "empty node in answer")

	case internalNode[K, V]:
		if exp.location.Depth() >= common.MaxDepth {
			return EmptyLabel, ErrPathLength
		}
		if err := checkChildLabels(n, exp.location); err != nil {
			return EmptyLabel, err
		}
		label = internalLabel(internalMapID(exp.location), n.hash())

	case leafNode[K, V]:
		if !exp.location.Contains(common.PathFrom(n.key.Digest())) {
			return EmptyLabel, errors.Wrap(ErrMalformedAnswer, "leaf outside of its key path")
		}
		label = leafLabel(leafMapID(n.key.Digest()), n.hash())

	default:
		panic(fmt.Sprintf("%T: invalid node: %v", n, n))
	}

	if exp.verify && label != exp.label {
		return EmptyLabel, errors.Wrapf(ErrMalformedAnswer, "node does not match requested label %v", exp.label)
	}

	// The first node of a session introduces the root. Recording it
	// before descending keeps every installed node reachable from it,
	// which is what unwinding an aborted session relies on.
	if !exp.discard && !r.rootKnown {
		r.rootKnown = true
		r.root = label
	}

	if exp.discard {
		return label, r.drain(s, cursor, n, exp)
	}

	if s.has(label) {
		// Known subtree: one more link points at it now. Its streamed
		// expansion carries nothing new.
		s.incref(label)
		return label, r.drain(s, cursor, n, exp)
	}

	s.populate(label, n)
	s.incref(label)

	if internal, ok := n.(internalNode[K, V]); ok {
		for i, child := range []Label{internal.left, internal.right} {
			if child.IsEmpty() {
				continue
			}
			location := exp.location.Left()
			if i == 1 {
				location = exp.location.Right()
			}
			childExp := expectation{label: child, location: location, ttl: exp.ttl - 1, verify: true}
			switch {
			case exp.ttl > 0:
				if _, err := r.consume(s, cursor, childExp); err != nil {
					return EmptyLabel, err
				}
			case s.has(child):
				s.incref(child)
			default:
				r.pending = append(r.pending, childExp)
			}
		}
	}
	return label, nil
}

// checkChildLabels validates the shard tags an internal node claims for
// its children against the node's position. A node's digest only covers
// the children's digests, so the tags need checking separately: an
// internal child's shard is fully determined by its position, a leaf
// child's at least in the bits the position fixes.
func checkChildLabels[K, V any](n internalNode[K, V], location common.Prefix) error {
	for i, child := range []Label{n.left, n.right} {
		if child.IsEmpty() {
			continue
		}
		childLocation := location.Left()
		if i == 1 {
			childLocation = location.Right()
		}
		want := byte(internalMapID(childLocation))
		switch child.kind {
		case labelInternal:
			if byte(child.mapID) != want {
				return errors.Wrap(ErrMalformedAnswer, "internal child in wrong shard")
			}
		case labelLeaf:
			depth := childLocation.Depth()
			if depth > storeDepth {
				depth = storeDepth
			}
			mask := byte(0xFF) << (8 - depth)
			if byte(child.mapID)&mask != want&mask {
				return errors.Wrap(ErrMalformedAnswer, "leaf child in wrong shard")
			}
		}
	}
	return nil
}

// drain consumes the streamed expansion of a subtree that needs no
// installing, still verifying its shape.
func (r *TableReceiver[K, V]) drain(s *store[K, V], cursor *answerCursor[K, V], n node[K, V], exp expectation) error {
	internal, ok := n.(internalNode[K, V])
	if !ok || exp.ttl <= 0 {
		return nil
	}
	for i, child := range []Label{internal.left, internal.right} {
		if child.IsEmpty() {
			continue
		}
		location := exp.location.Left()
		if i == 1 {
			location = exp.location.Right()
		}
		childExp := expectation{label: child, location: location, ttl: exp.ttl - 1, verify: true, discard: true}
		if _, err := r.consume(s, cursor, childExp); err != nil {
			return err
		}
	}
	return nil
}
