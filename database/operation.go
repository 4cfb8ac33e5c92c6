package database

import (
	"github.com/pangolin-db/pangolin/common"
)

type actionKind uint8

const (
	actionGet actionKind = iota
	actionSet
	actionRemove
)

// operation is one step of a batch: an action targeting the key path
// derived from the key's digest. After execution a Get operation carries
// the value found (value set, found true) or records the key's absence.
type operation[K, V any] struct {
	path  common.Path
	key   *common.Wrap[K]
	kind  actionKind
	value *common.Wrap[V]
	found bool
}

func getOperation[K, V any](key K) (operation[K, V], error) {
	wrap, err := common.NewWrap(key)
	if err != nil {
		return operation[K, V]{}, err
	}
	return operation[K, V]{
		path: common.PathFrom(wrap.Digest()),
		key:  wrap,
		kind: actionGet,
	}, nil
}

func setOperation[K, V any](key K, value V) (operation[K, V], error) {
	wrapKey, err := common.NewWrap(key)
	if err != nil {
		return operation[K, V]{}, err
	}
	wrapValue, err := common.NewWrap(value)
	if err != nil {
		return operation[K, V]{}, err
	}
	return wrappedSetOperation(wrapKey, wrapValue), nil
}

func removeOperation[K, V any](key K) (operation[K, V], error) {
	wrap, err := common.NewWrap(key)
	if err != nil {
		return operation[K, V]{}, err
	}
	return wrappedRemoveOperation[K, V](wrap), nil
}

// wrappedSetOperation builds a set operation from pre-wrapped fields.
// Recovery from the write-ahead log enters here, where the canonical
// encodings are already at hand.
func wrappedSetOperation[K, V any](key *common.Wrap[K], value *common.Wrap[V]) operation[K, V] {
	return operation[K, V]{
		path:  common.PathFrom(key.Digest()),
		key:   key,
		kind:  actionSet,
		value: value,
	}
}

func wrappedRemoveOperation[K, V any](key *common.Wrap[K]) operation[K, V] {
	return operation[K, V]{
		path: common.PathFrom(key.Digest()),
		key:  key,
		kind: actionRemove,
	}
}
