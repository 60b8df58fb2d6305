package gridtree

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"darkframes/internal/frame"
)

func leafFor(t *testing.T, value float64, key Key) Leaf {
	t.Helper()
	img, err := frame.Filled(frame.Uint16, value, 2, 3)
	if err != nil {
		t.Fatalf("Filled failed: %v", err)
	}
	cfg := frame.Config{"value": int64(value)}
	if len(key) == 2 {
		cfg["width"] = int64(key[0])
		cfg["height"] = int64(key[1])
	}
	return Leaf{Image: img, Config: cfg}
}

// widthHeightTree builds the grid width in {60,80,100} x height in {10..13}.
func widthHeightTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := New(2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for _, w := range []int{60, 80, 100} {
		for _, h := range []int{10, 11, 12, 13} {
			key := Key{w, h}
			if ok, err := tree.Insert(key, leafFor(t, 3, key), false); err != nil || !ok {
				t.Fatalf("Insert(%v) = %v, %v", key, ok, err)
			}
		}
	}
	return tree
}

func TestInsertLookupRoundTrip(t *testing.T) {
	tree := widthHeightTree(t)
	if tree.Len() != 12 {
		t.Fatalf("Len() = %d, want 12", tree.Len())
	}
	key := Key{80, 12}
	leaf, err := tree.Lookup(key)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	want := leafFor(t, 3, key)
	if !leaf.Image.Equal(want.Image) {
		t.Fatal("image bytes differ after lookup")
	}
	if diff := cmp.Diff(want.Config, leaf.Config); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertWithoutOverwriteIsIdempotent(t *testing.T) {
	tree, _ := New(2)
	key := Key{1, 2}
	first := leafFor(t, 1, key)
	second := leafFor(t, 2, key)

	if ok, err := tree.Insert(key, first, false); err != nil || !ok {
		t.Fatalf("first Insert = %v, %v", ok, err)
	}
	if ok, err := tree.Insert(key, first, false); err != nil || ok {
		t.Fatalf("repeated Insert = %v, %v; want false", ok, err)
	}
	if ok, err := tree.Insert(key, second, false); err != nil || ok {
		t.Fatalf("conflicting Insert = %v, %v; want false", ok, err)
	}
	leaf, _ := tree.Lookup(key)
	if !leaf.Image.Equal(first.Image) {
		t.Fatal("leaf changed without overwrite")
	}
	if tree.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tree.Len())
	}

	if ok, err := tree.Insert(key, second, true); err != nil || !ok {
		t.Fatalf("overwrite Insert = %v, %v", ok, err)
	}
	leaf, _ = tree.Lookup(key)
	if !leaf.Image.Equal(second.Image) {
		t.Fatal("overwrite did not replace the leaf")
	}
	if tree.Len() != 1 {
		t.Fatalf("Len() after overwrite = %d, want 1", tree.Len())
	}
}

func TestInsertRejectsWrongKeyLength(t *testing.T) {
	tree, _ := New(2)
	if _, err := tree.Insert(Key{1}, Leaf{}, false); err == nil {
		t.Fatal("expected error for short key")
	}
	if _, err := New(0); err == nil {
		t.Fatal("expected error for zero depth")
	}
}

func TestRemovePrunesOnlyEmptyAncestors(t *testing.T) {
	tree, _ := New(3)
	keys := []Key{{1, 1, 1}, {1, 1, 2}, {1, 2, 1}, {2, 1, 1}}
	for _, k := range keys {
		if _, err := tree.Insert(k, leafFor(t, 1, k), false); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	if _, err := tree.Remove(Key{1, 1, 1}); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !tree.Contains(Key{1, 1, 2}) {
		t.Fatal("sibling leaf lost after remove")
	}
	if _, ok := tree.root.children[1].children[1].children[1]; ok {
		t.Fatal("emptied leaf node still attached")
	}

	if _, err := tree.Remove(Key{1, 1, 2}); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := tree.root.children[1].children[1]; ok {
		t.Fatal("empty intermediate node not pruned")
	}
	if !tree.Contains(Key{1, 2, 1}) {
		t.Fatal("ancestor holding other descendants was pruned")
	}

	if _, err := tree.Remove(Key{1, 2, 1}); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := tree.root.children[1]; ok {
		t.Fatal("empty top-level node not pruned")
	}
	if got := tree.root.keys; len(got) != 1 || got[0] != 2 {
		t.Fatalf("root keys = %v, want [2]", got)
	}
	if tree.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tree.Len())
	}
}

func TestRemoveThenLookupNotFound(t *testing.T) {
	tree := widthHeightTree(t)
	key := Key{100, 11}
	removed, err := tree.Remove(key)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := tree.Lookup(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup after remove: expected ErrNotFound, got %v", err)
	}
	if _, err := tree.Remove(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Remove: expected ErrNotFound, got %v", err)
	}

	if ok, err := tree.Insert(key, removed, false); err != nil || !ok {
		t.Fatalf("re-Insert = %v, %v", ok, err)
	}
	restored, err := tree.Lookup(key)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !restored.Image.Equal(removed.Image) || !restored.Config.Equal(removed.Config) {
		t.Fatal("restored leaf differs from removed leaf")
	}
}

func TestWalkIsAscending(t *testing.T) {
	tree, _ := New(2)
	for _, k := range []Key{{3, 1}, {1, 5}, {1, -2}, {2, 0}, {-4, 9}} {
		if _, err := tree.Insert(k, leafFor(t, 0, k), false); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	want := []Key{{-4, 9}, {1, -2}, {1, 5}, {2, 0}, {3, 1}}
	if diff := cmp.Diff(want, tree.Keys()); diff != "" {
		t.Fatalf("walk order mismatch (-want +got):\n%s", diff)
	}

	// early termination
	count := 0
	for range tree.Walk() {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Fatalf("walk did not stop early, count=%d", count)
	}
}

func TestClosest(t *testing.T) {
	tree := widthHeightTree(t)
	cases := []struct {
		target Key
		want   Key
	}{
		{Key{60, 10}, Key{60, 10}},
		{Key{61, 11}, Key{60, 11}},
		{Key{75, 11}, Key{80, 11}},
		{Key{75, 14}, Key{80, 13}},
		{Key{75, 9}, Key{80, 10}},
		{Key{70, 11}, Key{60, 11}}, // tie goes to the smaller value
		{Key{500, -3}, Key{100, 10}},
	}
	for _, tc := range cases {
		got, leaf, err := tree.Closest(tc.target)
		if err != nil {
			t.Fatalf("Closest(%v) failed: %v", tc.target, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("Closest(%v) = %v, want %v", tc.target, got, tc.want)
		}
		if leaf.Config["width"] != int64(tc.want[0]) || leaf.Config["height"] != int64(tc.want[1]) {
			t.Fatalf("Closest(%v) returned leaf for %v", tc.target, leaf.Config)
		}
	}
}

func TestClosestFollowsAxisOrder(t *testing.T) {
	tree, _ := New(2)
	// (10,0) is nearer in the plane but the first axis picks 0 greedily.
	for _, k := range []Key{{0, 100}, {10, 0}} {
		if _, err := tree.Insert(k, leafFor(t, 0, k), false); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	got, _, err := tree.Closest(Key{4, 0})
	if err != nil {
		t.Fatalf("Closest failed: %v", err)
	}
	if !got.Equal(Key{0, 100}) {
		t.Fatalf("Closest = %v, want [0 100]", got)
	}
}

func TestClosestOnEmptyTree(t *testing.T) {
	tree, _ := New(2)
	if _, _, err := tree.Closest(Key{1, 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func bracketKeys(entries []Entry) []Key {
	keys := make([]Key, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

func TestBracket(t *testing.T) {
	tree := widthHeightTree(t)

	got, err := tree.Bracket(Key{75, 11})
	if err != nil {
		t.Fatalf("Bracket failed: %v", err)
	}
	want := []Key{{60, 10}, {60, 11}, {80, 10}, {80, 11}}
	if diff := cmp.Diff(want, bracketKeys(got)); diff != "" {
		t.Fatalf("bracket mismatch (-want +got):\n%s", diff)
	}

	got, _ = tree.Bracket(Key{70, 11})
	keys := bracketKeys(got)
	if !containsKey(keys, Key{60, 11}) || !containsKey(keys, Key{80, 11}) {
		t.Fatalf("bracket %v misses the width neighbours", keys)
	}
}

func TestBracketOnGridLeansLower(t *testing.T) {
	tree := widthHeightTree(t)

	got, _ := tree.Bracket(Key{80, 11})
	want := []Key{{60, 10}, {60, 11}, {80, 10}, {80, 11}}
	if diff := cmp.Diff(want, bracketKeys(got)); diff != "" {
		t.Fatalf("bracket mismatch (-want +got):\n%s", diff)
	}

	// nothing lies below the smallest key, so only the key itself remains
	got, _ = tree.Bracket(Key{60, 10})
	if diff := cmp.Diff([]Key{{60, 10}}, bracketKeys(got)); diff != "" {
		t.Fatalf("bracket mismatch (-want +got):\n%s", diff)
	}
}

func TestBracketOutOfRange(t *testing.T) {
	tree := widthHeightTree(t)

	// above every width and below every height: only one side on each axis
	got, _ := tree.Bracket(Key{150, 5})
	if diff := cmp.Diff([]Key{{100, 10}}, bracketKeys(got)); diff != "" {
		t.Fatalf("bracket mismatch (-want +got):\n%s", diff)
	}
}

func TestBracketDropsMissingCorner(t *testing.T) {
	tree := widthHeightTree(t)
	if _, err := tree.Remove(Key{80, 10}); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	got, _ := tree.Bracket(Key{75, 11})
	want := []Key{{60, 10}, {60, 11}, {80, 11}}
	if diff := cmp.Diff(want, bracketKeys(got)); diff != "" {
		t.Fatalf("bracket mismatch (-want +got):\n%s", diff)
	}
}

func containsKey(keys []Key, k Key) bool {
	for _, c := range keys {
		if c.Equal(k) {
			return true
		}
	}
	return false
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey(" 60, -10 ")
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}
	if !k.Equal(Key{60, -10}) || k.String() != "60,-10" {
		t.Fatalf("unexpected key %v", k)
	}
	if _, err := ParseKey("a,b"); err == nil {
		t.Fatal("expected parse error")
	}
}
