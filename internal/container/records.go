package container

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"darkframes/internal/axis"
	"darkframes/internal/frame"
)

// recordVersion tags every msgpack record this package writes.
const recordVersion = 1

// ErrUnsupportedVersion indicates a record written by an incompatible version.
var ErrUnsupportedVersion = errors.New("unsupported record version")

type controlsRecord struct {
	Version uint16         `msgpack:"v"`
	Sets    [][]axis.Entry `msgpack:"sets"`
}

type configRecord struct {
	Version uint16           `msgpack:"v"`
	Values  map[string]int64 `msgpack:"values"`
}

// Source identifies one library that contributed to a fused library.
type Source struct {
	Name string `msgpack:"name"`
	ID   string `msgpack:"id"`
	Path string `msgpack:"path"`
	Adds int    `msgpack:"adds"`
}

type sourcesRecord struct {
	Version uint16   `msgpack:"v"`
	Sources []Source `msgpack:"sources"`
}

// EncodeControls serializes the ordered list of axis sets stored in the
// root "controls" attribute. A plain library stores one set; a fused library
// stores one per source.
func EncodeControls(sets []axis.Set) ([]byte, error) {
	rec := controlsRecord{Version: recordVersion, Sets: make([][]axis.Entry, len(sets))}
	for i, s := range sets {
		rec.Sets[i] = s.Entries()
	}
	out, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode controls: %w", err)
	}
	return out, nil
}

// DecodeControls parses and validates a "controls" attribute.
func DecodeControls(raw []byte) ([]axis.Set, error) {
	var rec controlsRecord
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode controls: %w", err)
	}
	if rec.Version != recordVersion {
		return nil, fmt.Errorf("%w: controls record version %d", ErrUnsupportedVersion, rec.Version)
	}
	if len(rec.Sets) == 0 {
		return nil, fmt.Errorf("decode controls: %w", ErrNotLibrary)
	}
	sets := make([]axis.Set, len(rec.Sets))
	for i, entries := range rec.Sets {
		s, err := axis.NewSet(entries...)
		if err != nil {
			return nil, fmt.Errorf("decode controls set %d: %w", i, err)
		}
		sets[i] = s
	}
	return sets, nil
}

// EncodeConfig serializes a leaf "camera_config" attribute.
func EncodeConfig(cfg frame.Config) ([]byte, error) {
	values := map[string]int64(cfg)
	if values == nil {
		values = map[string]int64{}
	}
	out, err := msgpack.Marshal(configRecord{Version: recordVersion, Values: values})
	if err != nil {
		return nil, fmt.Errorf("encode camera config: %w", err)
	}
	return out, nil
}

// DecodeConfig parses a "camera_config" attribute.
func DecodeConfig(raw []byte) (frame.Config, error) {
	var rec configRecord
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode camera config: %w", err)
	}
	if rec.Version != recordVersion {
		return nil, fmt.Errorf("%w: camera config record version %d", ErrUnsupportedVersion, rec.Version)
	}
	if rec.Values == nil {
		rec.Values = map[string]int64{}
	}
	return frame.Config(rec.Values), nil
}

// EncodeSources serializes fusion provenance.
func EncodeSources(sources []Source) ([]byte, error) {
	out, err := msgpack.Marshal(sourcesRecord{Version: recordVersion, Sources: sources})
	if err != nil {
		return nil, fmt.Errorf("encode sources: %w", err)
	}
	return out, nil
}

// DecodeSources parses a "sources" attribute.
func DecodeSources(raw []byte) ([]Source, error) {
	var rec sourcesRecord
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	if rec.Version != recordVersion {
		return nil, fmt.Errorf("%w: sources record version %d", ErrUnsupportedVersion, rec.Version)
	}
	return rec.Sources, nil
}
