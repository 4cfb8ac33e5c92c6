// Package vector implements an authenticated append-ordered sequence: a
// Merkle tree over a slice of items, with compact inclusion proofs.
package vector

import (
	"github.com/pkg/errors"

	"github.com/pangolin-db/pangolin/common"
)

// ErrIndexOutOfRange is returned when an item index falls outside the
// vector.
var ErrIndexOutOfRange = errors.New("vector: index out of range")

// Vector is an immutable sequence of items committed to by the root of a
// binary Merkle tree. Layers are padded with the empty digest, so the
// commitment also fixes the vector's length boundary.
type Vector[T any] struct {
	wraps  []*common.Wrap[T]
	layers [][]common.Hash // layers[0] holds the item digests
}

// New builds a vector over items.
func New[T any](items []T) (*Vector[T], error) {
	wraps := make([]*common.Wrap[T], 0, len(items))
	for _, item := range items {
		wrap, err := common.NewWrap(item)
		if err != nil {
			return nil, err
		}
		wraps = append(wraps, wrap)
	}

	leaves := make([]common.Hash, len(wraps))
	for i, wrap := range wraps {
		leaves[i] = wrap.Digest()
	}

	layers := [][]common.Hash{leaves}
	for len(layers[len(layers)-1]) > 1 {
		lower := layers[len(layers)-1]
		upper := make([]common.Hash, (len(lower)+1)/2)
		for i := range upper {
			left := lower[2*i]
			right := common.EmptyHash
			if 2*i+1 < len(lower) {
				right = lower[2*i+1]
			}
			upper[i] = common.HashInternal(left, right)
		}
		layers = append(layers, upper)
	}
	return &Vector[T]{wraps: wraps, layers: layers}, nil
}

// Len returns the number of items.
func (v *Vector[T]) Len() int {
	return len(v.wraps)
}

// Get returns the item at index.
func (v *Vector[T]) Get(index int) (item T, err error) {
	if index < 0 || index >= len(v.wraps) {
		return item, ErrIndexOutOfRange
	}
	return v.wraps[index].Inner(), nil
}

// Commit returns the cryptographic commitment to the vector's contents.
func (v *Vector[T]) Commit() common.Hash {
	top := v.layers[len(v.layers)-1]
	if len(top) == 0 {
		return common.EmptyHash
	}
	return top[0]
}

// Proof is a chain of sibling digests authenticating one item against a
// vector commitment.
type Proof[T any] struct {
	index    int
	siblings []common.Hash
}

// Prove builds the inclusion proof of the item at index.
func (v *Vector[T]) Prove(index int) (Proof[T], error) {
	if index < 0 || index >= len(v.wraps) {
		return Proof[T]{}, ErrIndexOutOfRange
	}

	siblings := make([]common.Hash, 0, len(v.layers)-1)
	position := index
	for _, layer := range v.layers[:len(v.layers)-1] {
		sibling := common.EmptyHash
		if neighbor := position ^ 1; neighbor < len(layer) {
			sibling = layer[neighbor]
		}
		siblings = append(siblings, sibling)
		position /= 2
	}
	return Proof[T]{index: index, siblings: siblings}, nil
}

// Index returns the position the proof speaks about.
func (p Proof[T]) Index() int {
	return p.index
}

// Verify checks the proof of item against a vector commitment.
func (p Proof[T]) Verify(root common.Hash, item T) bool {
	wrap, err := common.NewWrap(item)
	if err != nil {
		return false
	}

	digest := wrap.Digest()
	position := p.index
	for _, sibling := range p.siblings {
		if position%2 == 0 {
			digest = common.HashInternal(digest, sibling)
		} else {
			digest = common.HashInternal(sibling, digest)
		}
		position /= 2
	}
	return digest == root
}
