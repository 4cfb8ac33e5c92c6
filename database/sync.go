package database

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/pangolin-db/pangolin/common"
)

// answerDepth bounds how many tree levels a single answer expands below
// each questioned label.
const answerDepth = 3

// Wire tags shared by labels and answer nodes.
const (
	wireEmpty uint8 = iota
	wireInternal
	wireLeaf
)

// Question lists the labels a receiver wants expanded, in the order it
// discovered them.
type Question struct {
	labels []Label
}

// Labels returns the questioned labels.
func (q *Question) Labels() []Label {
	return q.labels
}

// Answer carries the node subtrees of a question's labels, each expanded
// answerDepth levels in pre-order.
type Answer[K, V any] struct {
	nodes []node[K, V]
}

// MarshalBinary encodes the question for transport.
func (q *Question) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	writeUint32(&buf, uint32(len(q.labels)))
	for _, label := range q.labels {
		encodeLabel(&buf, label)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a question received from the wire.
func (q *Question) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	count, err := readUint32(r)
	if err != nil {
		return errors.Wrap(ErrMalformedQuestion, "truncated count")
	}
	labels := make([]Label, 0, count)
	for i := uint32(0); i < count; i++ {
		label, err := decodeLabel(r)
		if err != nil {
			return errors.Wrap(ErrMalformedQuestion, err.Error())
		}
		labels = append(labels, label)
	}
	if r.Len() != 0 {
		return errors.Wrap(ErrMalformedQuestion, "trailing data")
	}
	q.labels = labels
	return nil
}

// MarshalBinary encodes the answer for transport.
func (a *Answer[K, V]) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	writeUint32(&buf, uint32(len(a.nodes)))
	for _, n := range a.nodes {
		switch n := n.(type) {
		case emptyNode[K, V]:
			buf.WriteByte(wireEmpty)
		case internalNode[K, V]:
			buf.WriteByte(wireInternal)
			encodeLabel(&buf, n.left)
			encodeLabel(&buf, n.right)
		case leafNode[K, V]:
			buf.WriteByte(wireLeaf)
			writeUint32(&buf, uint32(len(n.key.Bytes())))
			buf.Write(n.key.Bytes())
			writeUint32(&buf, uint32(len(n.value.Bytes())))
			buf.Write(n.value.Bytes())
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes an answer received from the wire. Key and
// value digests are recomputed locally; nothing in the stream is taken
// at face value beyond what learn verifies against its expectations.
func (a *Answer[K, V]) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	count, err := readUint32(r)
	if err != nil {
		return errors.Wrap(ErrMalformedAnswer, "truncated count")
	}
	nodes := make([]node[K, V], 0, count)
	for i := uint32(0); i < count; i++ {
		tag, err := r.ReadByte()
		if err != nil {
			return errors.Wrap(ErrMalformedAnswer, "truncated node tag")
		}
		switch tag {
		case wireEmpty:
			nodes = append(nodes, emptyNode[K, V]{})
		case wireInternal:
			left, err := decodeLabel(r)
			if err != nil {
				return errors.Wrap(ErrMalformedAnswer, err.Error())
			}
			right, err := decodeLabel(r)
			if err != nil {
				return errors.Wrap(ErrMalformedAnswer, err.Error())
			}
			nodes = append(nodes, internalNode[K, V]{left: left, right: right})
		case wireLeaf:
			keyBytes, err := readLengthPrefixed(r)
			if err != nil {
				return errors.Wrap(ErrMalformedAnswer, err.Error())
			}
			valueBytes, err := readLengthPrefixed(r)
			if err != nil {
				return errors.Wrap(ErrMalformedAnswer, err.Error())
			}
			key, err := common.WrapFromBytes[K](keyBytes)
			if err != nil {
				return errors.Wrap(ErrMalformedAnswer, "undecodable key")
			}
			value, err := common.WrapFromBytes[V](valueBytes)
			if err != nil {
				return errors.Wrap(ErrMalformedAnswer, "undecodable value")
			}
			nodes = append(nodes, leafNode[K, V]{key: key, value: value})
		default:
			return errors.Wrapf(ErrMalformedAnswer, "unknown node tag %d", tag)
		}
	}
	if r.Len() != 0 {
		return errors.Wrap(ErrMalformedAnswer, "trailing data")
	}
	a.nodes = nodes
	return nil
}

func encodeLabel(buf *bytes.Buffer, label Label) {
	switch label.kind {
	case labelEmpty:
		buf.WriteByte(wireEmpty)
	case labelInternal:
		buf.WriteByte(wireInternal)
		buf.WriteByte(byte(label.mapID))
		buf.Write(label.hash[:])
	case labelLeaf:
		buf.WriteByte(wireLeaf)
		buf.WriteByte(byte(label.mapID))
		buf.Write(label.hash[:])
	}
}

func decodeLabel(r *bytes.Reader) (Label, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return Label{}, errors.New("truncated label tag")
	}
	if tag == wireEmpty {
		return EmptyLabel, nil
	}
	mapID, err := r.ReadByte()
	if err != nil {
		return Label{}, errors.New("truncated label shard")
	}
	var hash common.Hash
	if _, err := io.ReadFull(r, hash[:]); err != nil {
		return Label{}, errors.New("truncated label hash")
	}
	switch tag {
	case wireInternal:
		return internalLabel(MapID(mapID), hash), nil
	case wireLeaf:
		return leafLabel(MapID(mapID), hash), nil
	}
	return Label{}, errors.Errorf("unknown label tag %d", tag)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var scratch [4]byte
	binary.BigEndian.PutUint32(scratch[:], v)
	buf.Write(scratch[:])
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var scratch [4]byte
	if _, err := io.ReadFull(r, scratch[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(scratch[:]), nil
}

func readLengthPrefixed(r *bytes.Reader) ([]byte, error) {
	length, err := readUint32(r)
	if err != nil {
		return nil, errors.New("truncated length")
	}
	if int(length) > r.Len() {
		return nil, errors.New("length exceeds stream")
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.New("truncated payload")
	}
	return data, nil
}
