package common

import (
	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Unit is the value type of set-flavored tables: a record whose payload
// carries no information beyond its presence.
type Unit struct{}

// Wrap pairs a value with its canonical encoding and the digest of that
// encoding. Two Wraps are interchangeable whenever their digests match;
// all comparisons go through the digest.
type Wrap[T any] struct {
	inner  T
	data   []byte
	digest Hash
}

// NewWrap canonically encodes value and digests the encoding.
func NewWrap[T any](value T) (*Wrap[T], error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "wrap: serialize")
	}
	return &Wrap[T]{inner: value, data: data, digest: HashData(data)}, nil
}

// WrapFromBytes rebuilds a Wrap from a canonical encoding received over
// the wire. The digest is recomputed locally, never trusted.
func WrapFromBytes[T any](data []byte) (*Wrap[T], error) {
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, errors.Wrap(err, "wrap: deserialize")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Wrap[T]{inner: value, data: buf, digest: HashData(buf)}, nil
}

// Inner returns the wrapped value.
func (w *Wrap[T]) Inner() T { return w.inner }

// Digest returns the digest of the canonical encoding.
func (w *Wrap[T]) Digest() Hash { return w.digest }

// Bytes returns the canonical encoding. The returned slice must not be
// modified.
func (w *Wrap[T]) Bytes() []byte { return w.data }

// Equal reports whether two Wraps carry the same digest.
func (w *Wrap[T]) Equal(other *Wrap[T]) bool {
	return w.digest == other.digest
}
