package merkle

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/pangolin-db/pangolin/common"
)

// Wire tags of serialized nodes.
const (
	tagEmpty uint8 = iota
	tagInternal
	tagLeaf
	tagStub
)

// MarshalBinary encodes the map as a canonical pre-order byte stream.
func (m *Map[K, V]) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeNode(&buf, m.root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a map from data. Every digest is recomputed
// locally and the structural invariants are re-checked; a stream that
// does not verify is rejected as ErrCompromised.
func (m *Map[K, V]) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	root, err := decodeNode[K, V](r, common.Root())
	if err != nil {
		return err
	}
	if r.Len() != 0 {
		return errors.Wrap(ErrCompromised, "trailing data")
	}
	m.root = root
	return nil
}

func encodeNode[K, V any](buf *bytes.Buffer, n *Node[K, V]) error {
	switch n.kind {
	case KindEmpty:
		buf.WriteByte(tagEmpty)
	case KindInternal:
		buf.WriteByte(tagInternal)
		if err := encodeNode(buf, n.left); err != nil {
			return err
		}
		if err := encodeNode(buf, n.right); err != nil {
			return err
		}
	case KindLeaf:
		buf.WriteByte(tagLeaf)
		writeBytes(buf, n.key.Bytes())
		writeBytes(buf, n.value.Bytes())
	case KindStub:
		buf.WriteByte(tagStub)
		buf.Write(n.hash[:])
	}
	return nil
}

func decodeNode[K, V any](r *bytes.Reader, location common.Prefix) (*Node[K, V], error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, errors.Wrap(ErrCompromised, "truncated stream")
	}
	switch tag {
	case tagEmpty:
		return Empty[K, V](), nil

	case tagInternal:
		if location.Depth() >= common.MaxDepth {
			return nil, errors.Wrap(ErrCompromised, "tree deeper than the path space")
		}
		left, err := decodeNode[K, V](r, location.Left())
		if err != nil {
			return nil, err
		}
		right, err := decodeNode[K, V](r, location.Right())
		if err != nil {
			return nil, err
		}
		if bothCollapsible(left, right) {
			return nil, errors.Wrap(ErrCompromised, "compactness violated")
		}
		return NewInternal(left, right), nil

	case tagLeaf:
		keyBytes, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		valueBytes, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		key, err := common.WrapFromBytes[K](keyBytes)
		if err != nil {
			return nil, errors.Wrap(ErrCompromised, "undecodable key")
		}
		value, err := common.WrapFromBytes[V](valueBytes)
		if err != nil {
			return nil, errors.Wrap(ErrCompromised, "undecodable value")
		}
		if !location.Contains(common.PathFrom(key.Digest())) {
			return nil, errors.Wrap(ErrCompromised, "leaf outside of its key path")
		}
		return NewLeaf(key, value), nil

	case tagStub:
		var hash common.Hash
		if _, err := io.ReadFull(r, hash[:]); err != nil {
			return nil, errors.Wrap(ErrCompromised, "truncated stub")
		}
		return NewStub[K, V](hash), nil
	}
	return nil, errors.Wrapf(ErrCompromised, "unknown node tag %d", tag)
}

// bothCollapsible reports whether a child pair violates compactness.
func bothCollapsible[K, V any](left, right *Node[K, V]) bool {
	switch {
	case left.isEmpty() && right.isEmpty():
		return true
	case left.isEmpty() && right.isLeaf():
		return true
	case left.isLeaf() && right.isEmpty():
		return true
	}
	return false
}

func writeBytes(buf *bytes.Buffer, data []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	buf.Write(length[:])
	buf.Write(data)
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, errors.Wrap(ErrCompromised, "truncated length")
	}
	size := binary.BigEndian.Uint32(length[:])
	if int(size) > r.Len() {
		return nil, errors.Wrap(ErrCompromised, "length exceeds stream")
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrap(ErrCompromised, "truncated payload")
	}
	return data, nil
}
