package database

// releaseTree removes one hold on label, cascading into the children of
// every entry whose last reference goes away.
func releaseTree[K, V any](s *store[K, V], label Label) {
	if n := s.decref(label, false); n != nil {
		if internal, ok := n.(internalNode[K, V]); ok {
			releaseTree(s, internal.left)
			releaseTree(s, internal.right)
		}
	}
}

// scrapTree is the tolerant variant used to unwind an abandoned sync:
// a partially received tree may reference children that never arrived,
// which are simply skipped.
func scrapTree[K, V any](s *store[K, V], label Label) {
	if label.IsEmpty() || !s.has(label) {
		return
	}
	if n := s.decref(label, false); n != nil {
		if internal, ok := n.(internalNode[K, V]); ok {
			scrapTree(s, internal.left)
			scrapTree(s, internal.right)
		}
	}
}
