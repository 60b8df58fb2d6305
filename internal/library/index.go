package library

import (
	"slices"

	"darkframes/internal/gridtree"
)

// Index tracks the stored keys and the observed per-axis bounds. Each axis
// keeps a count per value, so bounds stay exact after removals.
type Index struct {
	params map[string]gridtree.Key
	counts []map[int]int
}

// NewIndex returns an empty index for keys of the given length.
func NewIndex(depth int) *Index {
	counts := make([]map[int]int, depth)
	for i := range counts {
		counts[i] = make(map[int]int)
	}
	return &Index{params: make(map[string]gridtree.Key), counts: counts}
}

// Add records key. Adding a present key is a no-op.
func (x *Index) Add(key gridtree.Key) {
	id := key.String()
	if _, ok := x.params[id]; ok {
		return
	}
	x.params[id] = key.Clone()
	for i, v := range key {
		x.counts[i][v]++
	}
}

// Remove forgets key. Removing an absent key is a no-op.
func (x *Index) Remove(key gridtree.Key) {
	id := key.String()
	if _, ok := x.params[id]; !ok {
		return
	}
	delete(x.params, id)
	for i, v := range key {
		if x.counts[i][v]--; x.counts[i][v] == 0 {
			delete(x.counts[i], v)
		}
	}
}

// Contains reports whether key is recorded.
func (x *Index) Contains(key gridtree.Key) bool {
	_, ok := x.params[key.String()]
	return ok
}

// Len returns the number of recorded keys.
func (x *Index) Len() int { return len(x.params) }

// Params returns the recorded keys in ascending order.
func (x *Index) Params() []gridtree.Key {
	out := make([]gridtree.Key, 0, len(x.params))
	for _, k := range x.params {
		out = append(out, k.Clone())
	}
	slices.SortFunc(out, gridtree.Compare)
	return out
}

// Bounds returns the component-wise minimum and maximum over recorded keys.
// ok is false when the index is empty.
func (x *Index) Bounds() (minKey, maxKey gridtree.Key, ok bool) {
	if len(x.params) == 0 {
		return nil, nil, false
	}
	minKey = make(gridtree.Key, len(x.counts))
	maxKey = make(gridtree.Key, len(x.counts))
	for i, values := range x.counts {
		first := true
		for v := range values {
			if first || v < minKey[i] {
				minKey[i] = v
			}
			if first || v > maxKey[i] {
				maxKey[i] = v
			}
			first = false
		}
	}
	return minKey, maxKey, true
}
