package axis

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Entry pairs a control name with its axis.
type Entry struct {
	Name string `msgpack:"name" toml:"name"`
	Axis Axis   `msgpack:"axis" toml:"axis"`
}

// Set is an ordered mapping from control name to Axis.
type Set struct {
	entries []Entry
}

// NewSet builds a set from entries in order, validating each axis.
func NewSet(entries ...Entry) (Set, error) {
	var s Set
	for _, e := range entries {
		if err := s.Add(e.Name, e.Axis); err != nil {
			return Set{}, err
		}
	}
	return s, nil
}

// Add appends a control. Empty or duplicate names are configuration errors.
func (s *Set) Add(name string, a Axis) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: control name must not be empty", ErrConfiguration)
	}
	if s.Index(name) >= 0 {
		return fmt.Errorf("%w: duplicate control %q", ErrConfiguration, name)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("control %q: %w", name, err)
	}
	s.entries = append(s.entries, Entry{Name: name, Axis: a})
	return nil
}

// Len returns the number of controls.
func (s Set) Len() int { return len(s.entries) }

// Names returns control names in order.
func (s Set) Names() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns a copy of the ordered entries.
func (s Set) Entries() []Entry {
	return slices.Clone(s.entries)
}

// Index returns the position of name, or -1.
func (s Set) Index(name string) int {
	for i, e := range s.entries {
		if e.Name == name {
			return i
		}
	}
	return -1
}

// Get returns the axis registered under name.
func (s Set) Get(name string) (Axis, bool) {
	if i := s.Index(name); i >= 0 {
		return s.entries[i].Axis, true
	}
	return Axis{}, false
}

// At returns the i-th axis.
func (s Set) At(i int) Entry { return s.entries[i] }

// Equal reports whether both sets hold the same axes in the same order.
func (s Set) Equal(other Set) bool {
	return slices.Equal(s.entries, other.entries)
}

// SameNames reports whether both sets list the same controls in the same
// order, regardless of ranges.
func (s Set) SameNames(other Set) bool {
	return slices.Equal(s.Names(), other.Names())
}

// Count returns the number of grid points spanned by the set.
func (s Set) Count() int {
	if len(s.entries) == 0 {
		return 0
	}
	total := 1
	for _, e := range s.entries {
		total *= e.Axis.Count()
	}
	return total
}

// Product yields every combination of axis values in set order; the last
// axis varies fastest. Each yielded slice is freshly allocated.
func (s Set) Product() iter.Seq[[]int] {
	values := make([][]int, len(s.entries))
	for i, e := range s.entries {
		values[i] = e.Axis.Values()
	}
	return func(yield func([]int) bool) {
		if len(values) == 0 {
			return
		}
		for _, v := range values {
			if len(v) == 0 {
				return
			}
		}
		idx := make([]int, len(values))
		for {
			point := make([]int, len(values))
			for i, j := range idx {
				point[i] = values[i][j]
			}
			if !yield(point) {
				return
			}
			d := len(idx) - 1
			for d >= 0 {
				idx[d]++
				if idx[d] < len(values[d]) {
					break
				}
				idx[d] = 0
				d--
			}
			if d < 0 {
				return
			}
		}
	}
}

func (s Set) String() string {
	parts := make([]string, len(s.entries))
	for i, e := range s.entries {
		parts[i] = e.Name + ": " + e.Axis.String()
	}
	return strings.Join(parts, ", ")
}

// CheckSameNames returns a configuration error unless every set lists the
// same controls in the same order as the first.
func CheckSameNames(sets ...Set) error {
	for i := 1; i < len(sets); i++ {
		if !sets[0].SameNames(sets[i]) {
			return fmt.Errorf("%w: controllables %v and %v differ", ErrConfiguration, sets[0].Names(), sets[i].Names())
		}
	}
	return nil
}
