package merkle

import "github.com/pangolin-db/pangolin/common"

// Set is a Map whose values carry no information: an authenticated set
// of items.
type Set[I any] struct {
	inner *Map[I, common.Unit]
}

// NewSet creates an empty set.
func NewSet[I any]() *Set[I] {
	return &Set[I]{inner: NewMap[I, common.Unit]()}
}

// RawSet wraps an externally built node tree into a Set.
func RawSet[I any](root *Node[I, common.Unit]) *Set[I] {
	return &Set[I]{inner: Raw(root)}
}

// Commit returns the cryptographic commitment to the set's contents.
func (s *Set[I]) Commit() common.Hash {
	return s.inner.Commit()
}

// Contains reports whether item is in the set. ErrBranchUnknown is
// returned when the lookup runs into an elided subtree.
func (s *Set[I]) Contains(item I) (bool, error) {
	_, ok, err := s.inner.Get(item)
	return ok, err
}

// Insert adds item to the set.
func (s *Set[I]) Insert(item I) error {
	return s.inner.Insert(item, common.Unit{})
}

// Remove deletes item from the set.
func (s *Set[I]) Remove(item I) error {
	return s.inner.Remove(item)
}

// Export returns a set committing to the same contents but carrying only
// the listed items, with every untouched subtree elided into a stub.
func (s *Set[I]) Export(items []I) (*Set[I], error) {
	inner, err := s.inner.Export(items)
	if err != nil {
		return nil, err
	}
	return &Set[I]{inner: inner}, nil
}

// Import merges other into s, filling elided subtrees.
func (s *Set[I]) Import(other *Set[I]) error {
	return s.inner.Import(other.inner)
}

// MarshalBinary encodes the set as a canonical byte stream.
func (s *Set[I]) MarshalBinary() ([]byte, error) {
	return s.inner.MarshalBinary()
}

// UnmarshalBinary decodes and verifies a set from data.
func (s *Set[I]) UnmarshalBinary(data []byte) error {
	inner := NewMap[I, common.Unit]()
	if err := inner.UnmarshalBinary(data); err != nil {
		return err
	}
	s.inner = inner
	return nil
}
