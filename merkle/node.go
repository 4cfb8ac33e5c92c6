package merkle

import (
	"github.com/pangolin-db/pangolin/common"
)

// NodeKind discriminates the variants of a proof tree node.
type NodeKind uint8

const (
	KindEmpty NodeKind = iota
	KindInternal
	KindLeaf
	KindStub
)

// Node is one position of a standalone Merkle map. Unlike arena nodes,
// Nodes own their children directly. A Stub stands in for an elided
// subtree and carries only that subtree's digest.
type Node[K, V any] struct {
	kind  NodeKind
	hash  common.Hash
	left  *Node[K, V]
	right *Node[K, V]
	key   *common.Wrap[K]
	value *common.Wrap[V]
}

// Empty returns the empty node.
func Empty[K, V any]() *Node[K, V] {
	return &Node[K, V]{kind: KindEmpty, hash: common.EmptyHash}
}

// NewInternal builds an internal node over two children, deriving its
// digest from theirs.
func NewInternal[K, V any](left, right *Node[K, V]) *Node[K, V] {
	return &Node[K, V]{
		kind:  KindInternal,
		hash:  common.HashInternal(left.hash, right.hash),
		left:  left,
		right: right,
	}
}

// NewLeaf builds a leaf node for a wrapped record.
func NewLeaf[K, V any](key *common.Wrap[K], value *common.Wrap[V]) *Node[K, V] {
	return &Node[K, V]{
		kind:  KindLeaf,
		hash:  common.HashLeaf(key.Digest(), value.Digest()),
		key:   key,
		value: value,
	}
}

// NewStub builds a placeholder for an elided subtree with the given
// digest.
func NewStub[K, V any](hash common.Hash) *Node[K, V] {
	return &Node[K, V]{kind: KindStub, hash: hash}
}

// Kind returns the node's variant.
func (n *Node[K, V]) Kind() NodeKind { return n.kind }

// Hash returns the node's digest.
func (n *Node[K, V]) Hash() common.Hash { return n.hash }

func (n *Node[K, V]) isEmpty() bool { return n.kind == KindEmpty }
func (n *Node[K, V]) isLeaf() bool  { return n.kind == KindLeaf }
func (n *Node[K, V]) isStub() bool  { return n.kind == KindStub }

// child returns the child taken in the given direction of an internal
// node.
func (n *Node[K, V]) child(d common.Direction) *Node[K, V] {
	if d == common.Left {
		return n.left
	}
	return n.right
}
