package frame

import (
	"maps"
	"slices"
)

// Config is a snapshot of the full instrument state at capture time,
// keyed by control name.
type Config map[string]int64

// Clone returns a copy of c.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	return maps.Clone(c)
}

// Equal reports whether both snapshots hold the same values.
func (c Config) Equal(other Config) bool {
	return maps.Equal(c, other)
}

// Keys returns the control names in ascending order.
func (c Config) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}
