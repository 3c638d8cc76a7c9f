package bptree

import (
	"bytes"
	"sync"
)

// DefaultOrder is the fallback branching factor if a caller-supplied order
// is too small.
const DefaultOrder = 32

// Tree is a B+Tree keyed by byte slices, with values of type V held only
// in the leaves. Leaves are linked left to right, so ordered scans never
// touch internal nodes. A single tree-level RWMutex guards all access:
// lookups and scans share it, mutations take it exclusively.
//
// Deleted keys are removed from their leaf without rebalancing. Leaves
// may run under-full, which costs a little memory and nothing else; the
// separator keys above them stay valid. For an in-memory keydir whose
// deletes are tombstones this is the right trade.
type Tree[V any] struct {
	mu     sync.RWMutex
	root   *node[V]
	order  int
	height int
	size   int
}

// node represents both internal and leaf nodes.
type node[V any] struct {
	leaf     bool
	keys     [][]byte
	children []*node[V] // internal nodes only
	values   []V        // leaf nodes only
	next     *node[V]   // leaf-link pointer, for range scans
}

// New creates a Tree with the given branching order. Orders below 3 fall
// back to DefaultOrder.
func New[V any](order int) *Tree[V] {
	if order < 3 {
		order = DefaultOrder
	}
	return &Tree[V]{
		root:   &node[V]{leaf: true},
		order:  order,
		height: 1,
	}
}

// Len returns the number of keys in the tree.
func (t *Tree[V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Height returns the number of levels, 1 for a lone leaf root.
func (t *Tree[V]) Height() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.height
}

// Search returns the value stored under key.
func (t *Tree[V]) Search(key []byte) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.root
	for !n.leaf {
		n = n.children[childIndex(n.keys, key)]
	}
	for i, k := range n.keys {
		if bytes.Equal(k, key) {
			return n.values[i], true
		}
	}
	var zero V
	return zero, false
}

// Insert stores value under key, replacing any existing value. The key
// bytes are copied, so callers may reuse their buffer.
func (t *Tree[V]) Insert(key []byte, value V) {
	t.mu.Lock()
	defer t.mu.Unlock()

	splitKey, right, added := t.insert(t.root, append([]byte(nil), key...), value)
	if added {
		t.size++
	}
	if right != nil {
		// The root split; grow a new root above both halves.
		t.root = &node[V]{
			keys:     [][]byte{splitKey},
			children: []*node[V]{t.root, right},
		}
		t.height++
	}
}

// insert descends to the leaf for key and inserts, propagating splits
// upward. It returns the separator key and new right sibling when n
// split, and whether a new key was added (as opposed to replaced).
func (t *Tree[V]) insert(n *node[V], key []byte, value V) ([]byte, *node[V], bool) {
	if n.leaf {
		idx := 0
		for idx < len(n.keys) && bytes.Compare(n.keys[idx], key) < 0 {
			idx++
		}
		if idx < len(n.keys) && bytes.Equal(n.keys[idx], key) {
			n.values[idx] = value
			return nil, nil, false
		}

		n.keys = append(n.keys, nil)
		copy(n.keys[idx+1:], n.keys[idx:])
		n.keys[idx] = key

		var zero V
		n.values = append(n.values, zero)
		copy(n.values[idx+1:], n.values[idx:])
		n.values[idx] = value

		if len(n.keys) > t.order {
			splitKey, right := t.splitLeaf(n)
			return splitKey, right, true
		}
		return nil, nil, true
	}

	idx := childIndex(n.keys, key)
	splitKey, right, added := t.insert(n.children[idx], key, value)
	if right == nil {
		return nil, nil, added
	}

	// The child split: link the separator and the new sibling here.
	n.keys = append(n.keys, nil)
	copy(n.keys[idx+1:], n.keys[idx:])
	n.keys[idx] = splitKey

	n.children = append(n.children, nil)
	copy(n.children[idx+2:], n.children[idx+1:])
	n.children[idx+1] = right

	if len(n.keys) > t.order {
		upKey, newRight := t.splitInternal(n)
		return upKey, newRight, added
	}
	return nil, nil, added
}

// splitLeaf halves an overflowing leaf and returns the separator key with
// the new right sibling. The separator is the right half's first key.
func (t *Tree[V]) splitLeaf(leaf *node[V]) ([]byte, *node[V]) {
	mid := len(leaf.keys) / 2
	right := &node[V]{
		leaf:   true,
		keys:   append([][]byte(nil), leaf.keys[mid:]...),
		values: append([]V(nil), leaf.values[mid:]...),
		next:   leaf.next,
	}
	leaf.keys = leaf.keys[:mid:mid]
	leaf.values = leaf.values[:mid:mid]
	leaf.next = right
	return right.keys[0], right
}

// splitInternal halves an overflowing internal node; the middle key moves
// up rather than staying in either half.
func (t *Tree[V]) splitInternal(n *node[V]) ([]byte, *node[V]) {
	mid := len(n.keys) / 2
	upKey := n.keys[mid]
	right := &node[V]{
		keys:     append([][]byte(nil), n.keys[mid+1:]...),
		children: append([]*node[V](nil), n.children[mid+1:]...),
	}
	n.keys = n.keys[:mid:mid]
	n.children = n.children[:mid+1 : mid+1]
	return upKey, right
}

// Delete removes key from the tree and reports whether it was present.
func (t *Tree[V]) Delete(key []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.root
	for !n.leaf {
		n = n.children[childIndex(n.keys, key)]
	}
	for i, k := range n.keys {
		if bytes.Equal(k, key) {
			n.keys = append(n.keys[:i], n.keys[i+1:]...)
			n.values = append(n.values[:i], n.values[i+1:]...)
			t.size--
			return true
		}
	}
	return false
}

// Ascend walks every key in order, calling fn until it returns false.
func (t *Tree[V]) Ascend(fn func(key []byte, value V) bool) {
	t.AscendRange(nil, nil, fn)
}

// AscendRange walks keys in [start, end) in order, calling fn until it
// returns false. A nil start begins at the smallest key; a nil end walks
// to the largest.
func (t *Tree[V]) AscendRange(start, end []byte, fn func(key []byte, value V) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.root
	for !n.leaf {
		if start == nil {
			n = n.children[0]
		} else {
			n = n.children[childIndex(n.keys, start)]
		}
	}

	for n != nil {
		for i, k := range n.keys {
			if start != nil && bytes.Compare(k, start) < 0 {
				continue
			}
			if end != nil && bytes.Compare(k, end) >= 0 {
				return
			}
			if !fn(k, n.values[i]) {
				return
			}
		}
		n = n.next
	}
}

// childIndex returns which child pointer to follow for key in an internal
// node: the first child whose key range could contain it.
func childIndex(keys [][]byte, key []byte) int {
	for i, k := range keys {
		if bytes.Compare(key, k) < 0 {
			return i
		}
	}
	return len(keys)
}
