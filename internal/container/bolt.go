package container

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	metaBucket   = []byte("meta")
	attrsBucket  = []byte("attrs")
	groupsBucket = []byte("groups")
	versionKey   = []byte("schema_version")
	imageKey     = []byte(DatasetImage)
)

// attrPrefix marks attribute keys inside a group bucket so they cannot
// collide with child group names.
const attrPrefix = "@"

type boltStore struct {
	db       *bolt.DB
	path     string
	readOnly bool
	codec    *codec
}

func openBolt(path string, readOnly bool, c *codec) (*boltStore, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second, ReadOnly: readOnly})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("open bbolt db: %w", ErrLocked)
	}
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	s := &boltStore{db: db, path: path, readOnly: readOnly, codec: c}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *boltStore) initSchema() error {
	var version uint64
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		if meta == nil {
			return nil
		}
		raw := meta.Get(versionKey)
		if len(raw) != 8 {
			return fmt.Errorf("%w: %s has a malformed schema version", ErrSchemaMismatch, s.path)
		}
		version, found = binary.BigEndian.Uint64(raw), true
		return nil
	})
	if err != nil {
		return err
	}
	if found {
		if version != schemaVersion {
			return fmt.Errorf("%w: %s has version %d, expected %d", ErrSchemaMismatch, s.path, version, schemaVersion)
		}
		return nil
	}
	if s.readOnly {
		return fmt.Errorf("%w: %s has no schema", ErrNotLibrary, s.path)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(attrsBucket); err != nil {
			return fmt.Errorf("create attrs bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(groupsBucket); err != nil {
			return fmt.Errorf("create groups bucket: %w", err)
		}
		var raw [8]byte
		binary.BigEndian.PutUint64(raw[:], schemaVersion)
		return meta.Put(versionKey, raw[:])
	})
}

func (s *boltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.codec.Close()
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *boltStore) ReadAttr(_ context.Context, name string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(attrsBucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(name)); v != nil {
			value = slices.Clone(v)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("read attribute %s: %w", name, err)
	}
	return value, value != nil, nil
}

func (s *boltStore) WriteAttr(_ context.Context, name string, value []byte) error {
	if s.readOnly {
		return ErrReadOnly
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(attrsBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(name), value)
	})
	if err != nil {
		return fmt.Errorf("write attribute %s: %w", name, err)
	}
	return nil
}

func (s *boltStore) Walk(ctx context.Context, fn func(Entry) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(groupsBucket)
		if root == nil {
			return nil
		}
		return s.walk(ctx, root, nil, fn)
	})
}

func (s *boltStore) walk(ctx context.Context, b *bolt.Bucket, path []string, fn func(Entry) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(path) > 0 && b.Get(imageKey) != nil {
		entry, err := s.readLeaf(b, path)
		if err != nil {
			return err
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return b.ForEach(func(k, v []byte) error {
		if v != nil {
			return nil
		}
		return s.walk(ctx, b.Bucket(k), append(slices.Clone(path), string(k)), fn)
	})
}

func (s *boltStore) readLeaf(b *bolt.Bucket, path []string) (Entry, error) {
	ds, err := s.codec.decodeDataset(b.Get(imageKey))
	if err != nil {
		return Entry{}, fmt.Errorf("dataset %s: %w", strings.Join(path, "/"), err)
	}
	attrs := make(map[string][]byte)
	c := b.Cursor()
	prefix := []byte(attrPrefix)
	for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), attrPrefix); k, v = c.Next() {
		if v == nil {
			continue
		}
		attrs[strings.TrimPrefix(string(k), attrPrefix)] = slices.Clone(v)
	}
	return Entry{Path: slices.Clone(path), Dataset: ds, Attrs: attrs}, nil
}

// descend returns the buckets along path, stopping at the first missing one.
func descend(root *bolt.Bucket, path []string) []*bolt.Bucket {
	chain := make([]*bolt.Bucket, 0, len(path))
	b := root
	for _, name := range path {
		b = b.Bucket([]byte(name))
		if b == nil {
			break
		}
		chain = append(chain, b)
	}
	return chain
}

func (s *boltStore) Get(_ context.Context, path []string) (Entry, bool, error) {
	if err := checkPath(path); err != nil {
		return Entry{}, false, err
	}
	var (
		entry Entry
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(groupsBucket)
		if root == nil {
			return nil
		}
		chain := descend(root, path)
		if len(chain) != len(path) || chain[len(chain)-1].Get(imageKey) == nil {
			return nil
		}
		var err error
		entry, err = s.readLeaf(chain[len(chain)-1], path)
		found = err == nil
		return err
	})
	if err != nil {
		return Entry{}, false, err
	}
	return entry, found, nil
}

func (s *boltStore) Put(_ context.Context, entry Entry, overwrite bool) (bool, error) {
	if s.readOnly {
		return false, ErrReadOnly
	}
	if err := checkPath(entry.Path); err != nil {
		return false, err
	}
	raw, err := s.codec.encodeDataset(entry.Dataset)
	if err != nil {
		return false, err
	}
	written := false
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(groupsBucket)
		if err != nil {
			return err
		}
		for _, name := range entry.Path {
			if b, err = b.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create group %s: %w", name, err)
			}
		}
		if b.Get(imageKey) != nil && !overwrite {
			return nil
		}
		if err := b.Put(imageKey, raw); err != nil {
			return fmt.Errorf("write dataset: %w", err)
		}
		if err := clearAttrs(b); err != nil {
			return err
		}
		for name, value := range entry.Attrs {
			if err := b.Put([]byte(attrPrefix+name), value); err != nil {
				return fmt.Errorf("write attribute %s: %w", name, err)
			}
		}
		written = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return written, nil
}

func clearAttrs(b *bolt.Bucket) error {
	var keys [][]byte
	c := b.Cursor()
	for k, v := c.Seek([]byte(attrPrefix)); k != nil && strings.HasPrefix(string(k), attrPrefix); k, v = c.Next() {
		if v != nil {
			keys = append(keys, slices.Clone(k))
		}
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return fmt.Errorf("clear attribute: %w", err)
		}
	}
	return nil
}

func (s *boltStore) Delete(_ context.Context, path []string) (bool, error) {
	if s.readOnly {
		return false, ErrReadOnly
	}
	if err := checkPath(path); err != nil {
		return false, err
	}
	removed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(groupsBucket)
		if root == nil {
			return nil
		}
		chain := descend(root, path)
		if len(chain) != len(path) || chain[len(chain)-1].Get(imageKey) == nil {
			return nil
		}
		leaf := chain[len(chain)-1]
		if err := leaf.Delete(imageKey); err != nil {
			return fmt.Errorf("delete dataset: %w", err)
		}
		if err := clearAttrs(leaf); err != nil {
			return err
		}
		removed = true

		parents := append([]*bolt.Bucket{root}, chain[:len(chain)-1]...)
		for i := len(chain) - 1; i >= 0; i-- {
			if k, _ := chain[i].Cursor().First(); k != nil {
				break
			}
			if err := parents[i].DeleteBucket([]byte(path[i])); err != nil {
				return fmt.Errorf("prune group %s: %w", path[i], err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}
