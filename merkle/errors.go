package merkle

import "errors"

var (
	// ErrBranchUnknown is returned when an operation needs to descend into
	// a subtree that is only present as a stub.
	ErrBranchUnknown = errors.New("merkle: branch unknown")

	// ErrCompromised is returned when an imported map fails hash
	// verification.
	ErrCompromised = errors.New("merkle: compromised")

	// ErrIncompatible is returned when two maps with different commitments
	// are merged.
	ErrIncompatible = errors.New("merkle: incompatible maps")
)
