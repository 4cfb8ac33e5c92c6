package database

// cell lends the store out to one holder at a time. Take blocks until
// the store is available; Restore hands it back. Every code path that
// takes the store must restore it on all exits, and must not hold it
// across a wait on another holder of the same cell.
type cell[K, V any] struct {
	ch chan *store[K, V]
}

func newCell[K, V any](s *store[K, V]) *cell[K, V] {
	c := &cell[K, V]{ch: make(chan *store[K, V], 1)}
	c.ch <- s
	return c
}

// take acquires exclusive ownership of the store.
func (c *cell[K, V]) take() *store[K, V] {
	return <-c.ch
}

// restore returns ownership of the store. Restoring twice is a
// programming error.
func (c *cell[K, V]) restore(s *store[K, V]) {
	select {
	case c.ch <- s:
	default:
		panic("store restored while not taken")
	}
}
