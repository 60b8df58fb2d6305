package library

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"darkframes/internal/frame"
	"darkframes/internal/gridtree"
	"darkframes/internal/logging"
	"darkframes/internal/retrieval"
)

// Match is the result of one retrieval.
type Match struct {
	Image  frame.Image
	Config frame.Config
	// Candidates lists the stored points the image was built from with
	// their weights. Exact and Closest report a single candidate of weight 1.
	Candidates []retrieval.Candidate
}

// Get returns the image and camera configuration for key.
//
// Exact fails with gridtree.ErrNotFound when key is not stored. Closest and
// Neighbors only fail on an empty library. In Neighbors mode the returned
// configuration is the one of the heaviest candidate.
func (l *Library) Get(key gridtree.Key, mode retrieval.Mode) (frame.Image, frame.Config, error) {
	m, err := l.Retrieve(key, mode)
	if err != nil {
		return frame.Image{}, nil, err
	}
	return m.Image, m.Config, nil
}

// Retrieve is Get that also reports the candidates behind the result, so
// callers showing the blend do not interpolate a second time.
func (l *Library) Retrieve(key gridtree.Key, mode retrieval.Mode) (Match, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return Match{}, ErrClosed
	}
	if err := l.checkKey(key); err != nil {
		return Match{}, err
	}

	switch mode {
	case retrieval.Exact:
		leaf, err := l.tree.Lookup(key)
		if err != nil {
			return Match{}, err
		}
		return single(key.Clone(), leaf), nil
	case retrieval.Closest:
		closest, leaf, err := l.tree.Closest(key)
		if err != nil {
			return Match{}, err
		}
		return single(closest, leaf), nil
	case retrieval.Neighbors:
		img, candidates, err := l.neighbors(key)
		if err != nil {
			return Match{}, err
		}
		heaviest := slices.MaxFunc(candidates, func(a, b retrieval.Candidate) int {
			return cmp.Compare(a.Weight, b.Weight)
		})
		return Match{Image: img, Config: heaviest.Leaf.Config.Clone(), Candidates: candidates}, nil
	default:
		return Match{}, fmt.Errorf("unsupported retrieval mode %d", mode)
	}
}

func single(key gridtree.Key, leaf gridtree.Leaf) Match {
	return Match{
		Image:      leaf.Image.Clone(),
		Config:     leaf.Config.Clone(),
		Candidates: []retrieval.Candidate{{Key: key, Leaf: leaf, Weight: 1}},
	}
}

// GetNamed is Get with the key given as control name to value.
func (l *Library) GetNamed(values map[string]int, mode retrieval.Mode) (frame.Image, frame.Config, error) {
	key, err := l.Key(values)
	if err != nil {
		return frame.Image{}, nil, err
	}
	return l.Get(key, mode)
}

// Neighbors returns the candidates Neighbors mode blends for key, with the
// weights applied.
func (l *Library) Neighbors(key gridtree.Key) ([]retrieval.Candidate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrClosed
	}
	if err := l.checkKey(key); err != nil {
		return nil, err
	}
	_, candidates, err := l.neighbors(key)
	return candidates, err
}

// neighbors interpolates between the leaves bracketing key. An exact match
// is returned alone; an empty bracket falls back to Closest.
func (l *Library) neighbors(key gridtree.Key) (frame.Image, []retrieval.Candidate, error) {
	if leaf, err := l.tree.Lookup(key); err == nil {
		return leaf.Image.Clone(), []retrieval.Candidate{{Key: key.Clone(), Leaf: leaf, Weight: 1}}, nil
	} else if !errors.Is(err, gridtree.ErrNotFound) {
		return frame.Image{}, nil, err
	}

	entries, err := l.tree.Bracket(key)
	if err != nil {
		return frame.Image{}, nil, err
	}
	if len(entries) == 0 {
		closest, leaf, err := l.tree.Closest(key)
		if err != nil {
			return frame.Image{}, nil, err
		}
		l.logger.Debug("no bracketing leaves, using closest",
			logging.String(logging.FieldEventType, "neighbors_fallback"),
			logging.String(logging.FieldKey, key.String()),
			logging.String("closest", closest.String()),
		)
		return leaf.Image.Clone(), []retrieval.Candidate{{Key: closest, Leaf: leaf, Weight: 1}}, nil
	}

	minKey, maxKey, _ := l.index.Bounds()
	return retrieval.Interpolate(key, entries, minKey, maxKey)
}
