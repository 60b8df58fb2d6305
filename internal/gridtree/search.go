package gridtree

import (
	"fmt"
	"sort"
)

// Closest descends from the root choosing, at each level, the child whose
// value is nearest to the matching target component; ties go to the smaller
// value. Later axes are chosen conditional on earlier choices.
func (t *Tree) Closest(target Key) (Key, Leaf, error) {
	if err := t.checkKey(target); err != nil {
		return nil, Leaf{}, err
	}
	n := t.root
	chosen := make(Key, 0, t.depth)
	for _, want := range target {
		if len(n.keys) == 0 {
			return nil, Leaf{}, fmt.Errorf("%w: no candidates below %v", ErrNotFound, chosen)
		}
		v := nearest(n.keys, want)
		chosen = append(chosen, v)
		n = n.children[v]
	}
	if n.leaf == nil {
		return nil, Leaf{}, fmt.Errorf("%w: %v", ErrNotFound, chosen)
	}
	return chosen, *n.leaf, nil
}

// nearest returns the element of sorted keys closest to want, preferring
// the smaller one on ties.
func nearest(keys []int, want int) int {
	i := sort.SearchInts(keys, want)
	switch {
	case i == 0:
		return keys[0]
	case i == len(keys):
		return keys[len(keys)-1]
	}
	below, above := keys[i-1], keys[i]
	if above-want < want-below {
		return above
	}
	return below
}

// Bracket collects the leaves surrounding target. At each level the lower
// side is the largest child strictly below the target component and the
// upper side is the smallest child at or above it; either side may be
// missing when the target lies outside the children range. Every present
// side is explored, so up to 2^depth entries are returned in walk order.
// Branches that dead-end contribute nothing. A component equal to a child
// key is bracketed toward the lower neighbour: that child is the upper side.
func (t *Tree) Bracket(target Key) ([]Entry, error) {
	if err := t.checkKey(target); err != nil {
		return nil, err
	}
	var out []Entry
	prefix := make(Key, 0, t.depth)
	t.bracket(t.root, target, prefix, &out)
	return out, nil
}

func (t *Tree) bracket(n *node, target Key, prefix Key, out *[]Entry) {
	d := len(prefix)
	if d == t.depth {
		if n.leaf != nil {
			*out = append(*out, Entry{Key: prefix.Clone(), Leaf: *n.leaf})
		}
		return
	}
	lower, upper, hasLower, hasUpper := sides(n.keys, target[d])
	if hasLower {
		t.bracket(n.children[lower], target, append(prefix, lower), out)
	}
	if hasUpper {
		t.bracket(n.children[upper], target, append(prefix, upper), out)
	}
}

func sides(keys []int, want int) (lower, upper int, hasLower, hasUpper bool) {
	i := sort.SearchInts(keys, want)
	if i > 0 {
		lower, hasLower = keys[i-1], true
	}
	if i < len(keys) {
		upper, hasUpper = keys[i], true
	}
	return lower, upper, hasLower, hasUpper
}
