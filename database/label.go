package database

import (
	"fmt"

	"github.com/pangolin-db/pangolin/common"
)

// MapID selects one of the store's 256 shards. Internal nodes are
// sharded by their position in the top eight levels of the tree, leaves
// by the leading byte of their key digest. The left direction maps to
// the higher shard index so that a store split hands the upper shard
// range to the left sub-store.
type MapID uint8

// internalMapID derives the shard of an internal node from its location.
// Only the first eight steps matter: past that depth every descendant
// shares the shard of its depth-8 ancestor.
func internalMapID(location common.Prefix) MapID {
	depth := location.Depth()
	if depth > storeDepth {
		depth = storeDepth
	}
	var id MapID
	for i := 0; i < depth; i++ {
		if location.At(i) == common.Left {
			id |= 1 << (7 - uint(i))
		}
	}
	return id
}

// leafMapID derives the shard of a leaf from its key digest.
func leafMapID(digest common.Hash) MapID {
	return MapID(^digest[0])
}

type labelKind uint8

const (
	labelEmpty labelKind = iota
	labelInternal
	labelLeaf
)

// Label is a content-addressed reference to a stored node: the shard it
// lives in plus its digest. The zero Label is Empty and refers to no
// entry.
type Label struct {
	kind  labelKind
	mapID MapID
	hash  common.Hash
}

// EmptyLabel refers to the empty subtree.
var EmptyLabel = Label{}

func internalLabel(mapID MapID, hash common.Hash) Label {
	return Label{kind: labelInternal, mapID: mapID, hash: hash}
}

func leafLabel(mapID MapID, hash common.Hash) Label {
	return Label{kind: labelLeaf, mapID: mapID, hash: hash}
}

// IsEmpty reports whether the label refers to the empty subtree.
func (l Label) IsEmpty() bool { return l.kind == labelEmpty }

// MapID returns the shard the referenced entry lives in. Calling it on
// an empty label is a programming error.
func (l Label) MapID() MapID {
	if l.kind == labelEmpty {
		panic("called MapID on an empty label")
	}
	return l.mapID
}

// Hash returns the digest of the referenced node.
func (l Label) Hash() common.Hash {
	if l.kind == labelEmpty {
		return common.EmptyHash
	}
	return l.hash
}

func (l Label) String() string {
	switch l.kind {
	case labelInternal:
		return fmt.Sprintf("Internal(%d, %s)", l.mapID, l.hash)
	case labelLeaf:
		return fmt.Sprintf("Leaf(%d, %s)", l.mapID, l.hash)
	}
	return "Empty"
}
