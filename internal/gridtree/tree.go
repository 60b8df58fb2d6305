package gridtree

import (
	"errors"
	"fmt"
	"iter"
	"slices"
)

// ErrNotFound is returned when no leaf exists for a key.
var ErrNotFound = errors.New("image not found")

type node struct {
	keys     []int
	children map[int]*node
	leaf     *Leaf
}

func (n *node) child(v int) *node {
	if n.children == nil {
		return nil
	}
	return n.children[v]
}

func (n *node) ensureChild(v int) *node {
	if c := n.child(v); c != nil {
		return c
	}
	if n.children == nil {
		n.children = make(map[int]*node)
	}
	c := &node{}
	n.children[v] = c
	i, _ := slices.BinarySearch(n.keys, v)
	n.keys = slices.Insert(n.keys, i, v)
	return c
}

func (n *node) dropChild(v int) {
	delete(n.children, v)
	if i, found := slices.BinarySearch(n.keys, v); found {
		n.keys = slices.Delete(n.keys, i, i+1)
	}
}

// Tree is a sparse grid of leaves with a fixed depth.
type Tree struct {
	root  *node
	depth int
	size  int
}

// New returns an empty tree for keys of length depth.
func New(depth int) (*Tree, error) {
	if depth < 1 {
		return nil, fmt.Errorf("tree depth must be at least 1, got %d", depth)
	}
	return &Tree{root: &node{}, depth: depth}, nil
}

// Depth returns the key length.
func (t *Tree) Depth() int { return t.depth }

// Len returns the number of leaves.
func (t *Tree) Len() int { return t.size }

func (t *Tree) checkKey(key Key) error {
	if len(key) != t.depth {
		return fmt.Errorf("key %v has %d components, tree depth is %d", key, len(key), t.depth)
	}
	return nil
}

// Insert stores leaf at key, creating intermediate nodes. When a leaf is
// already present and overwrite is false the tree is left unchanged and
// Insert returns false.
func (t *Tree) Insert(key Key, leaf Leaf, overwrite bool) (bool, error) {
	if err := t.checkKey(key); err != nil {
		return false, err
	}
	n := t.root
	for _, v := range key {
		n = n.ensureChild(v)
	}
	if n.leaf != nil && !overwrite {
		return false, nil
	}
	if n.leaf == nil {
		t.size++
	}
	stored := leaf
	n.leaf = &stored
	return true, nil
}

func (t *Tree) find(key Key) *node {
	n := t.root
	for _, v := range key {
		n = n.child(v)
		if n == nil {
			return nil
		}
	}
	return n
}

// Lookup returns the leaf stored at key.
func (t *Tree) Lookup(key Key) (Leaf, error) {
	if err := t.checkKey(key); err != nil {
		return Leaf{}, err
	}
	n := t.find(key)
	if n == nil || n.leaf == nil {
		return Leaf{}, fmt.Errorf("%w: %v", ErrNotFound, key)
	}
	return *n.leaf, nil
}

// Contains reports whether a leaf exists at key.
func (t *Tree) Contains(key Key) bool {
	if len(key) != t.depth {
		return false
	}
	n := t.find(key)
	return n != nil && n.leaf != nil
}

// Remove deletes the leaf at key and prunes every ancestor left without
// children. Ancestors that still hold other descendants are kept.
func (t *Tree) Remove(key Key) (Leaf, error) {
	if err := t.checkKey(key); err != nil {
		return Leaf{}, err
	}
	path := make([]*node, 0, t.depth+1)
	n := t.root
	path = append(path, n)
	for _, v := range key {
		n = n.child(v)
		if n == nil {
			return Leaf{}, fmt.Errorf("%w: %v", ErrNotFound, key)
		}
		path = append(path, n)
	}
	if n.leaf == nil {
		return Leaf{}, fmt.Errorf("%w: %v", ErrNotFound, key)
	}
	removed := *n.leaf
	n.leaf = nil
	t.size--

	// path[d] is the node reached after d components; path[d+1] hangs off
	// path[d] under key[d].
	for d := t.depth - 1; d >= 0; d-- {
		c := path[d+1]
		if c.leaf != nil || len(c.keys) > 0 {
			break
		}
		path[d].dropChild(key[d])
	}
	return removed, nil
}

// Walk yields every (key, leaf) pair, ascending component-wise at every
// level. Keys are fresh slices owned by the caller.
func (t *Tree) Walk() iter.Seq2[Key, Leaf] {
	return func(yield func(Key, Leaf) bool) {
		prefix := make(Key, 0, t.depth)
		t.walk(t.root, prefix, yield)
	}
}

func (t *Tree) walk(n *node, prefix Key, yield func(Key, Leaf) bool) bool {
	if len(prefix) == t.depth {
		if n.leaf == nil {
			return true
		}
		return yield(prefix.Clone(), *n.leaf)
	}
	for _, v := range n.keys {
		if !t.walk(n.children[v], append(prefix, v), yield) {
			return false
		}
	}
	return true
}

// Keys returns every stored key in walk order.
func (t *Tree) Keys() []Key {
	keys := make([]Key, 0, t.size)
	for k := range t.Walk() {
		keys = append(keys, k)
	}
	return keys
}
