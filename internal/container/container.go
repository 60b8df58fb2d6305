package container

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// DatasetImage is the dataset name holding a leaf's pixels.
	DatasetImage = "image"
	// AttrName is the root attribute holding the library name.
	AttrName = "name"
	// AttrControls is the root attribute holding the axis sets.
	AttrControls = "controls"
	// AttrLibraryID is the root attribute holding the library UUID.
	AttrLibraryID = "library_id"
	// AttrSources is the root attribute recording fusion provenance.
	AttrSources = "sources"
	// AttrCameraConfig is the leaf attribute holding the instrument snapshot.
	AttrCameraConfig = "camera_config"
)

var (
	// ErrSchemaMismatch indicates a file written with another schema version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
	// ErrNotLibrary indicates a file that holds no darkframes layout.
	ErrNotLibrary = errors.New("not a darkframes library")
	// ErrReadOnly is returned by mutations on a read-only container.
	ErrReadOnly = errors.New("container opened read-only")
	// ErrLocked indicates the file is held exclusively by a writer. Only
	// bbolt containers report it; sqlite readers coexist with a writer.
	ErrLocked = errors.New("library locked by another writer")
)

// Dataset is a binary array stored in a group.
type Dataset struct {
	DType string
	Shape []int
	Data  []byte
}

// Entry is a leaf group: its path from the root, its image dataset and its
// attributes.
type Entry struct {
	Path    []string
	Dataset Dataset
	Attrs   map[string][]byte
}

// Container is a hierarchical store of groups, attributes and datasets.
type Container interface {
	// ReadAttr returns a root attribute.
	ReadAttr(ctx context.Context, name string) ([]byte, bool, error)
	// WriteAttr sets a root attribute.
	WriteAttr(ctx context.Context, name string, value []byte) error
	// Walk calls fn for every leaf group.
	Walk(ctx context.Context, fn func(Entry) error) error
	// Get returns the leaf group at path.
	Get(ctx context.Context, path []string) (Entry, bool, error)
	// Put writes a leaf group, creating missing groups. When an image is
	// already stored and overwrite is false nothing changes and Put returns
	// false.
	Put(ctx context.Context, entry Entry, overwrite bool) (bool, error)
	// Delete removes a leaf group and every ancestor left empty.
	Delete(ctx context.Context, path []string) (bool, error)
	// Close releases the underlying file.
	Close() error
}

// Format names a backend.
type Format string

const (
	FormatAuto   Format = ""
	FormatSQLite Format = "sqlite"
	FormatBolt   Format = "bolt"
)

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatSQLite, FormatBolt:
		return f, nil
	case "auto":
		return FormatAuto, nil
	case "bbolt":
		return FormatBolt, nil
	default:
		return "", fmt.Errorf("unsupported container format %q", s)
	}
}

// FormatFor picks a backend from the file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bolt", ".bbolt":
		return FormatBolt
	default:
		return FormatSQLite
	}
}

// Options configures Open.
type Options struct {
	ReadOnly    bool
	Format      Format
	Compression Compression
}

// Open opens or creates the container at path. Read-only opens require an
// existing file.
func Open(ctx context.Context, path string, opts Options) (Container, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("container path is empty")
	}
	if opts.ReadOnly {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
			}
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("open %s: is a directory", path)
		}
	}
	c, err := newCodec(opts.Compression)
	if err != nil {
		return nil, err
	}
	format := opts.Format
	if format == FormatAuto {
		format = FormatFor(path)
	}
	var store Container
	switch format {
	case FormatSQLite:
		store, err = openSQLite(ctx, path, opts.ReadOnly, c)
	case FormatBolt:
		store, err = openBolt(path, opts.ReadOnly, c)
	default:
		err = fmt.Errorf("unsupported container format %q", format)
	}
	if err != nil {
		c.Close()
		return nil, err
	}
	return store, nil
}

func cloneAttrs(attrs map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(attrs))
	for k, v := range attrs {
		out[k] = slices.Clone(v)
	}
	return out
}

func checkPath(path []string) error {
	if len(path) == 0 {
		return errors.New("empty group path")
	}
	for _, p := range path {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("empty group name in path %v", path)
		}
	}
	return nil
}
