package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"darkframes/internal/axis"
	"darkframes/internal/container"
	"darkframes/internal/frame"
	"darkframes/internal/gridtree"
	"darkframes/internal/logging"
)

// DefaultName is reported for libraries stored without a name attribute.
const DefaultName = "unnamed"

// Options configures how a library file is opened.
type Options struct {
	Logger      *slog.Logger
	Compression container.Compression
	Format      container.Format
}

// Library is an indexed set of dark frames.
type Library struct {
	mu        sync.RWMutex
	path      string
	name      string
	id        string
	axes      []axis.Set
	names     []string
	sources   []container.Source
	tree      *gridtree.Tree
	index     *Index
	layout    frame.Layout
	hasLayout bool

	store  container.Container
	lock   *flock.Flock
	closed bool
	logger *slog.Logger
}

func lockPath(path string) string { return path + ".lock" }

// Open loads a read-only snapshot of the library at path. It neither takes
// nor creates the writer lock, so it works while a writer is open and in
// directories the caller cannot write to.
func Open(ctx context.Context, path string, opts Options) (*Library, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open library %s: %w", path, err)
	}
	store, err := container.Open(ctx, path, container.Options{ReadOnly: true, Format: opts.Format})
	if err != nil {
		return nil, fmt.Errorf("open library %s: %w", path, err)
	}
	defer func() { _ = store.Close() }()

	lib := newLibrary(path, opts)
	if err := lib.load(ctx, store); err != nil {
		return nil, fmt.Errorf("open library %s: %w", path, err)
	}
	lib.logger.Debug("library snapshot loaded",
		logging.String(logging.FieldEventType, "library_open"),
		logging.String(logging.FieldLibrary, lib.name),
		logging.Int("images", lib.tree.Len()),
	)
	return lib, nil
}

// Create creates the library at path, or reopens it for editing when it
// already exists. An existing library must list the same controllables in
// the same order as set. The returned library holds the writer lock until
// Close.
func Create(ctx context.Context, path, name string, set axis.Set, opts Options) (*Library, error) {
	if set.Len() == 0 {
		return nil, fmt.Errorf("create library %s: %w: no controllables", path, axis.ErrConfiguration)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create library directory: %w", err)
		}
	}
	lib, err := openWritable(ctx, path, opts, func(store container.Container) error {
		return initRoot(ctx, store, name, set)
	})
	if err != nil {
		return nil, fmt.Errorf("create library %s: %w", path, err)
	}
	return lib, nil
}

// OpenEdit opens an existing library for modification. The returned library
// holds the writer lock until Close.
func OpenEdit(ctx context.Context, path string, opts Options) (*Library, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("edit library %s: %w", path, err)
	}
	lib, err := openWritable(ctx, path, opts, nil)
	if err != nil {
		return nil, fmt.Errorf("edit library %s: %w", path, err)
	}
	return lib, nil
}

func openWritable(ctx context.Context, path string, opts Options, setup func(container.Container) error) (*Library, error) {
	lock := flock.New(lockPath(path))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	store, err := container.Open(ctx, path, container.Options{Compression: opts.Compression, Format: opts.Format})
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	release := func() {
		_ = store.Close()
		_ = lock.Unlock()
	}
	if setup != nil {
		if err := setup(store); err != nil {
			release()
			return nil, err
		}
	}

	lib := newLibrary(path, opts)
	if err := lib.load(ctx, store); err != nil {
		release()
		return nil, err
	}
	lib.store = store
	lib.lock = lock
	lib.logger.Debug("library opened for writing",
		logging.String(logging.FieldEventType, "library_open"),
		logging.String(logging.FieldLibrary, lib.name),
		logging.Int("images", lib.tree.Len()),
	)
	return lib, nil
}

// initRoot writes the root attributes of a new library, or checks that an
// existing one is compatible with set. A plain library's controls follow
// the latest set; a fused library keeps its provenance list.
func initRoot(ctx context.Context, store container.Container, name string, set axis.Set) error {
	raw, ok, err := store.ReadAttr(ctx, container.AttrControls)
	if err != nil {
		return err
	}
	writeControls := true
	if ok {
		stored, err := container.DecodeControls(raw)
		if err != nil {
			return err
		}
		if err := axis.CheckSameNames(append(stored, set)...); err != nil {
			return err
		}
		writeControls = len(stored) == 1
	}
	if writeControls {
		encoded, err := container.EncodeControls([]axis.Set{set})
		if err != nil {
			return err
		}
		if err := store.WriteAttr(ctx, container.AttrControls, encoded); err != nil {
			return err
		}
	}
	if name != "" {
		if err := store.WriteAttr(ctx, container.AttrName, []byte(name)); err != nil {
			return err
		}
	}
	return ensureID(ctx, store)
}

func ensureID(ctx context.Context, store container.Container) error {
	if _, ok, err := store.ReadAttr(ctx, container.AttrLibraryID); err != nil || ok {
		return err
	}
	return store.WriteAttr(ctx, container.AttrLibraryID, []byte(uuid.NewString()))
}

func newLibrary(path string, opts Options) *Library {
	return &Library{
		path:   path,
		name:   DefaultName,
		logger: logging.NewComponentLogger(opts.Logger, "library"),
	}
}

func (l *Library) load(ctx context.Context, store container.Container) error {
	raw, ok, err := store.ReadAttr(ctx, container.AttrControls)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: missing %q attribute", container.ErrNotLibrary, container.AttrControls)
	}
	sets, err := container.DecodeControls(raw)
	if err != nil {
		return err
	}
	if err := axis.CheckSameNames(sets...); err != nil {
		return err
	}
	l.axes = sets
	l.names = sets[0].Names()

	if raw, ok, err := store.ReadAttr(ctx, container.AttrName); err != nil {
		return err
	} else if ok && len(raw) > 0 {
		l.name = string(raw)
	}
	if raw, ok, err := store.ReadAttr(ctx, container.AttrLibraryID); err != nil {
		return err
	} else if ok {
		l.id = string(raw)
	}
	if raw, ok, err := store.ReadAttr(ctx, container.AttrSources); err != nil {
		return err
	} else if ok {
		if l.sources, err = container.DecodeSources(raw); err != nil {
			return err
		}
	}

	depth := len(l.names)
	if l.tree, err = gridtree.New(depth); err != nil {
		return err
	}
	l.index = NewIndex(depth)
	return store.Walk(ctx, func(entry container.Entry) error {
		key, err := keyFromPath(entry.Path, depth)
		if err != nil {
			return err
		}
		leaf, err := decodeLeaf(entry)
		if err != nil {
			return fmt.Errorf("leaf %s: %w", key, err)
		}
		if err := l.checkLayout(leaf.Image); err != nil {
			return fmt.Errorf("leaf %s: %w", key, err)
		}
		if _, err := l.tree.Insert(key, leaf, false); err != nil {
			return err
		}
		l.index.Add(key)
		l.setLayout(leaf.Image)
		return nil
	})
}

func (l *Library) checkLayout(img frame.Image) error {
	if !l.hasLayout {
		return nil
	}
	return l.layout.Check(img)
}

func (l *Library) setLayout(img frame.Image) {
	if !l.hasLayout {
		l.layout = img.Layout()
		l.hasLayout = true
	}
}

// Close releases the container and the writer lock. Closing twice is a
// no-op.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	var errs []error
	if l.store != nil {
		if err := l.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close container: %w", err))
		}
		l.store = nil
	}
	if l.lock != nil {
		if err := l.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release lock: %w", err))
		}
		l.lock = nil
	}
	return errors.Join(errs...)
}

// Path returns the library file path.
func (l *Library) Path() string { return l.path }

// Name returns the library name, or DefaultName.
func (l *Library) Name() string { return l.name }

// ID returns the library UUID; empty for files written without one.
func (l *Library) ID() string { return l.id }

// ReadOnly reports whether the library is a snapshot.
func (l *Library) ReadOnly() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store == nil
}

// Controllables returns the ordered control names.
func (l *Library) Controllables() []string { return slices.Clone(l.names) }

// Axes returns the axis sets recorded in the library: one for a captured
// library, one per source for a fused one.
func (l *Library) Axes() []axis.Set { return slices.Clone(l.axes) }

// Sources returns the fusion provenance, if any.
func (l *Library) Sources() []container.Source { return slices.Clone(l.sources) }

// Len returns the number of stored images.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index.Len()
}

// Params returns every stored key in ascending order.
func (l *Library) Params() []gridtree.Key {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index.Params()
}

// Contains reports whether an image is stored at key.
func (l *Library) Contains(key gridtree.Key) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index.Contains(key)
}

// Bounds returns the observed component-wise minimum and maximum keys.
func (l *Library) Bounds() (minKey, maxKey gridtree.Key, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index.Bounds()
}

// Layout returns the dtype and shape shared by stored images.
func (l *Library) Layout() (frame.Layout, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.layout, l.hasLayout
}

// Walk yields every stored key and leaf in ascending key order.
func (l *Library) Walk(fn func(gridtree.Key, gridtree.Leaf) bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for key, leaf := range l.tree.Walk() {
		if !fn(key, leaf) {
			return
		}
	}
}

// Key builds a key from named control values.
func (l *Library) Key(values map[string]int) (gridtree.Key, error) {
	key := make(gridtree.Key, len(l.names))
	for i, name := range l.names {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing value for %q", axis.ErrConfiguration, name)
		}
		key[i] = v
	}
	if len(values) != len(l.names) {
		for name := range values {
			if !slices.Contains(l.names, name) {
				return nil, fmt.Errorf("%w: unknown controllable %q", axis.ErrConfiguration, name)
			}
		}
	}
	return key, nil
}

func (l *Library) checkKey(key gridtree.Key) error {
	if len(key) != len(l.names) {
		return fmt.Errorf("%w: key %v has %d components, library has %d controllables",
			axis.ErrConfiguration, key, len(key), len(l.names))
	}
	return nil
}

func (l *Library) writable() error {
	if l.closed {
		return ErrClosed
	}
	if l.store == nil {
		return ErrReadOnly
	}
	return nil
}

// Add stores img and cfg at key. Without overwrite an existing image is
// kept and Add returns false. Images must match the library layout.
func (l *Library) Add(ctx context.Context, key gridtree.Key, img frame.Image, cfg frame.Config, overwrite bool) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writable(); err != nil {
		return false, err
	}
	if err := l.checkKey(key); err != nil {
		return false, err
	}
	if err := img.Validate(); err != nil {
		return false, err
	}
	if err := l.checkLayout(img); err != nil {
		return false, err
	}
	if l.index.Contains(key) && !overwrite {
		return false, nil
	}

	leaf := gridtree.Leaf{Image: img.Clone(), Config: cfg.Clone()}
	entry, err := encodeLeaf(key, leaf)
	if err != nil {
		return false, err
	}
	written, err := l.store.Put(ctx, entry, overwrite)
	if err != nil {
		return false, fmt.Errorf("add %s: %w", key, err)
	}
	if !written {
		return false, nil
	}
	if _, err := l.tree.Insert(key, leaf, true); err != nil {
		return false, err
	}
	l.index.Add(key)
	l.setLayout(leaf.Image)
	return true, nil
}

// Remove deletes the image at key and returns what was stored.
func (l *Library) Remove(ctx context.Context, key gridtree.Key) (gridtree.Leaf, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writable(); err != nil {
		return gridtree.Leaf{}, err
	}
	if err := l.checkKey(key); err != nil {
		return gridtree.Leaf{}, err
	}
	if _, err := l.tree.Lookup(key); err != nil {
		return gridtree.Leaf{}, err
	}
	if _, err := l.store.Delete(ctx, groupPath(key)); err != nil {
		return gridtree.Leaf{}, fmt.Errorf("remove %s: %w", key, err)
	}
	leaf, err := l.tree.Remove(key)
	if err != nil {
		return gridtree.Leaf{}, err
	}
	l.index.Remove(key)
	if l.index.Len() == 0 {
		l.hasLayout = false
		l.layout = frame.Layout{}
	}
	return leaf, nil
}

// SetSources records fusion provenance on a writable library.
func (l *Library) SetSources(ctx context.Context, sources []container.Source) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writable(); err != nil {
		return err
	}
	raw, err := container.EncodeSources(sources)
	if err != nil {
		return err
	}
	if err := l.store.WriteAttr(ctx, container.AttrSources, raw); err != nil {
		return err
	}
	l.sources = slices.Clone(sources)
	return nil
}

// SetAxes replaces the recorded axis sets on a writable library. Every set
// must list the library's controllables in order.
func (l *Library) SetAxes(ctx context.Context, sets []axis.Set) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writable(); err != nil {
		return err
	}
	if len(sets) == 0 {
		return fmt.Errorf("%w: no axis sets", axis.ErrConfiguration)
	}
	for _, s := range sets {
		if !slices.Equal(s.Names(), l.names) {
			return fmt.Errorf("%w: controllables %v do not match %v", axis.ErrConfiguration, s.Names(), l.names)
		}
	}
	raw, err := container.EncodeControls(sets)
	if err != nil {
		return err
	}
	if err := l.store.WriteAttr(ctx, container.AttrControls, raw); err != nil {
		return err
	}
	l.axes = slices.Clone(sets)
	return nil
}
