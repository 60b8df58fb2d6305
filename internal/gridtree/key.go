package gridtree

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"darkframes/internal/frame"
)

// Key is a grid point: one discretized value per axis, in axis order.
type Key []int

// ParseKey parses the comma separated form produced by Key.String.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty key")
	}
	parts := strings.Split(s, ",")
	key := make(Key, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parse key %q: %w", s, err)
		}
		key[i] = v
	}
	return key, nil
}

func (k Key) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// Equal reports component-wise equality.
func (k Key) Equal(other Key) bool { return slices.Equal(k, other) }

// Clone returns a copy of k.
func (k Key) Clone() Key { return slices.Clone(k) }

// Compare orders keys component-wise.
func Compare(a, b Key) int { return slices.Compare(a, b) }

// Leaf is the content stored at one grid point.
type Leaf struct {
	Image  frame.Image
	Config frame.Config
}

// Entry pairs a key with its leaf.
type Entry struct {
	Key  Key
	Leaf Leaf
}
