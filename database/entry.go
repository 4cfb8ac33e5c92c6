package database

// entry is a stored node together with the number of links pointing at
// it: internal-node children, table roots and receiver holds all count.
type entry[K, V any] struct {
	node       node[K, V]
	references int
}
