package database

import "errors"

var (
	// ErrKeyCollision is returned when a transaction touches the same key
	// path twice. Each key admits at most one operation per transaction.
	ErrKeyCollision = errors.New("database: key collision")

	// ErrMalformedQuestion is returned by a sender asked about a label it
	// does not hold.
	ErrMalformedQuestion = errors.New("database: malformed question")

	// ErrMalformedAnswer is returned by a receiver when an answer fails
	// hash or position verification. The sync session is unusable
	// afterwards.
	ErrMalformedAnswer = errors.New("database: malformed answer")

	// ErrPathLength is returned when a sync session drives the tree beyond
	// the 256-bit path space.
	ErrPathLength = errors.New("database: path length exceeded")

	// ErrSyncEnded is returned when a receiver is used after it completed
	// or was abandoned.
	ErrSyncEnded = errors.New("database: sync session ended")

	// ErrTableExists is returned when a table name is already taken.
	ErrTableExists = errors.New("database: table already exists")
)
