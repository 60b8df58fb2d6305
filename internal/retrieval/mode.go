package retrieval

import (
	"fmt"
	"strings"
)

// Mode selects how a library resolves a key.
type Mode int

const (
	// Exact fails unless the key is stored.
	Exact Mode = iota + 1
	// Closest performs the axis-ordered greedy descent.
	Closest
	// Neighbors interpolates the bracketing leaves, falling back to Closest.
	Neighbors
)

// ParseMode converts a user supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact", "":
		return Exact, nil
	case "closest":
		return Closest, nil
	case "neighbors", "neighbours":
		return Neighbors, nil
	default:
		return 0, fmt.Errorf("unknown retrieval mode %q (want exact, closest or neighbors)", s)
	}
}

func (m Mode) String() string {
	switch m {
	case Exact:
		return "exact"
	case Closest:
		return "closest"
	case Neighbors:
		return "neighbors"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}
