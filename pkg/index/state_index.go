package index

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ssargent/muninn/pkg/bptree"
	"github.com/ssargent/muninn/pkg/replay"
)

// Indexable numeric fields of a replay state.
const (
	FieldSeed    = "seed"
	FieldSize    = "size"
	FieldCounter = "counter"
	FieldPathLen = "pathlen"
)

// Fields returns the indexable field names.
func Fields() []string {
	return []string{FieldSeed, FieldSize, FieldCounter, FieldPathLen}
}

// IsField reports whether name is an indexable state field.
func IsField(name string) bool {
	switch name {
	case FieldSeed, FieldSize, FieldCounter, FieldPathLen:
		return true
	}
	return false
}

// FieldValue extracts the named numeric field from a state.
func FieldValue(state *replay.State, field string) (uint64, error) {
	switch field {
	case FieldSeed:
		return state.Seed, nil
	case FieldSize:
		return uint64(state.Size), nil
	case FieldCounter:
		return state.Counter, nil
	case FieldPathLen:
		return uint64(len(state.Path)), nil
	}
	return 0, fmt.Errorf("unknown index field: %s", field)
}

// StateIndex maintains one ordered index per numeric state field. Each
// index key is the big-endian field value followed by the run ID, so
// entries sort by value first and a range scan recovers the IDs
// directly from the keys.
type StateIndex struct {
	indexes map[string]*bptree.Tree[struct{}]
	mutex   sync.RWMutex
	order   int
}

// DefaultIndexOrder is the branching factor used when none is given.
const DefaultIndexOrder = 32

// NewStateIndex creates indexes for every indexable field.
func NewStateIndex(order int) *StateIndex {
	if order < 3 {
		order = DefaultIndexOrder
	}
	si := &StateIndex{
		indexes: make(map[string]*bptree.Tree[struct{}]),
		order:   order,
	}
	for _, field := range Fields() {
		si.indexes[field] = bptree.New[struct{}](order)
	}
	return si
}

// Insert indexes all numeric fields of a run's state.
func (si *StateIndex) Insert(id string, state *replay.State) {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	for field, tree := range si.indexes {
		value, _ := FieldValue(state, field)
		tree.Insert(indexKey(value, id), struct{}{})
	}
}

// Remove drops a run's entries. The state must be the one that was
// indexed, since the field values are part of the keys.
func (si *StateIndex) Remove(id string, state *replay.State) {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	for field, tree := range si.indexes {
		value, _ := FieldValue(state, field)
		tree.Delete(indexKey(value, id))
	}
}

// EqualTo returns the IDs of runs whose field equals v, in ID order.
func (si *StateIndex) EqualTo(field string, v uint64) ([]string, error) {
	return si.Between(field, v, v)
}

// Between returns the IDs of runs whose field value lies in [lo, hi],
// ordered by value then ID.
func (si *StateIndex) Between(field string, lo, hi uint64) ([]string, error) {
	si.mutex.RLock()
	tree, ok := si.indexes[field]
	si.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown index field: %s", field)
	}
	if lo > hi {
		return nil, nil
	}

	start := valuePrefix(lo)
	var end []byte
	if hi < ^uint64(0) {
		end = valuePrefix(hi + 1)
	}

	var ids []string
	tree.AscendRange(start, end, func(key []byte, _ struct{}) bool {
		ids = append(ids, string(key[8:]))
		return true
	})
	return ids, nil
}

// AtLeast returns the IDs of runs whose field value is >= v.
func (si *StateIndex) AtLeast(field string, v uint64) ([]string, error) {
	return si.Between(field, v, ^uint64(0))
}

// AtMost returns the IDs of runs whose field value is <= v.
func (si *StateIndex) AtMost(field string, v uint64) ([]string, error) {
	return si.Between(field, 0, v)
}

// Len returns the entry count of one field's index.
func (si *StateIndex) Len(field string) int {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	if tree, ok := si.indexes[field]; ok {
		return tree.Len()
	}
	return 0
}

// Reset clears all field indexes, for a rebuild after log recovery.
func (si *StateIndex) Reset() {
	si.mutex.Lock()
	defer si.mutex.Unlock()

	for _, field := range Fields() {
		si.indexes[field] = bptree.New[struct{}](si.order)
	}
}

// indexKey is the composite key: 8-byte big-endian value, then the ID.
func indexKey(value uint64, id string) []byte {
	key := make([]byte, 8+len(id))
	binary.BigEndian.PutUint64(key, value)
	copy(key[8:], id)
	return key
}

func valuePrefix(value uint64) []byte {
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], value)
	return prefix[:]
}
