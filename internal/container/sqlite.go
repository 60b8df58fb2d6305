package container

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current layout version. Bump this when schema.sql
// changes; older files must be recreated.
const schemaVersion = 1

// rootGroup is the implicit id of the root group.
const rootGroup int64 = 0

type sqliteStore struct {
	db       *sql.DB
	path     string
	readOnly bool
	codec    *codec
}

// querier is the read surface shared by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// readOnlyDSN opens path with mode=ro so snapshots never write to the file.
// When the directory is not writable the WAL side files cannot be created,
// so the database is also marked immutable.
func readOnlyDSN(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	q := url.Values{}
	q.Set("mode", "ro")
	if unix.Access(filepath.Dir(abs), unix.W_OK) != nil {
		q.Set("immutable", "1")
	}
	return (&url.URL{Scheme: "file", Path: abs, RawQuery: q.Encode()}).String()
}

func openSQLite(ctx context.Context, path string, readOnly bool, c *codec) (*sqliteStore, error) {
	dsn := path
	if readOnly {
		dsn = readOnlyDSN(path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if readOnly {
		pragmas = append(pragmas, "PRAGMA query_only = ON")
	} else {
		pragmas = append([]string{"PRAGMA journal_mode=WAL"}, pragmas...)
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &sqliteStore{db: db, path: path, readOnly: readOnly, codec: c}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if s.readOnly {
			return fmt.Errorf("%w: %s has no schema", ErrNotLibrary, s.path)
		}
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: %s has version %d, expected %d", ErrSchemaMismatch, s.path, version, schemaVersion)
	}
	return nil
}

func (s *sqliteStore) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.codec.Close()
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *sqliteStore) ReadAttr(ctx context.Context, name string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM attributes WHERE group_id = ? AND name = ?", rootGroup, name,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read attribute %s: %w", name, err)
	}
	return value, true, nil
}

func (s *sqliteStore) WriteAttr(ctx context.Context, name string, value []byte) error {
	if s.readOnly {
		return ErrReadOnly
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO attributes (group_id, name, value) VALUES (?, ?, ?)", rootGroup, name, value,
	)
	if err != nil {
		return fmt.Errorf("write attribute %s: %w", name, err)
	}
	return nil
}

type groupRow struct {
	parent int64
	name   string
}

// Walk reads groups, attributes and datasets inside one read transaction so
// a concurrent writer cannot be observed halfway through a commit.
func (s *sqliteStore) Walk(ctx context.Context, fn func(Entry) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	groups, err := loadGroups(ctx, tx)
	if err != nil {
		return err
	}
	attrs, err := loadLeafAttrs(ctx, tx)
	if err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT group_id, dtype, shape, compression, data FROM datasets WHERE name = ? ORDER BY group_id",
		DatasetImage,
	)
	if err != nil {
		return fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          int64
			dtype       string
			shape       string
			compression string
			data        []byte
		)
		if err := rows.Scan(&id, &dtype, &shape, &compression, &data); err != nil {
			return fmt.Errorf("scan dataset: %w", err)
		}
		path, err := groupPath(groups, id)
		if err != nil {
			return err
		}
		ds, err := s.dataset(dtype, shape, compression, data)
		if err != nil {
			return fmt.Errorf("dataset %s: %w", strings.Join(path, "/"), err)
		}
		groupAttrs := attrs[id]
		if groupAttrs == nil {
			groupAttrs = map[string][]byte{}
		}
		if err := fn(Entry{Path: path, Dataset: ds, Attrs: groupAttrs}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate datasets: %w", err)
	}
	return nil
}

func loadGroups(ctx context.Context, q querier) (map[int64]groupRow, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, parent_id, name FROM groups")
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()
	groups := make(map[int64]groupRow)
	for rows.Next() {
		var (
			id  int64
			row groupRow
		)
		if err := rows.Scan(&id, &row.parent, &row.name); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups[id] = row
	}
	return groups, rows.Err()
}

func loadLeafAttrs(ctx context.Context, q querier) (map[int64]map[string][]byte, error) {
	rows, err := q.QueryContext(ctx, "SELECT group_id, name, value FROM attributes WHERE group_id != ?", rootGroup)
	if err != nil {
		return nil, fmt.Errorf("query attributes: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]map[string][]byte)
	for rows.Next() {
		var (
			id    int64
			name  string
			value []byte
		)
		if err := rows.Scan(&id, &name, &value); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		if out[id] == nil {
			out[id] = make(map[string][]byte)
		}
		out[id][name] = value
	}
	return out, rows.Err()
}

func groupPath(groups map[int64]groupRow, id int64) ([]string, error) {
	var reversed []string
	for id != rootGroup {
		row, ok := groups[id]
		if !ok {
			return nil, fmt.Errorf("group %d: dangling parent reference", id)
		}
		reversed = append(reversed, row.name)
		if len(reversed) > len(groups) {
			return nil, fmt.Errorf("group %d: parent cycle", id)
		}
		id = row.parent
	}
	path := make([]string, len(reversed))
	for i, name := range reversed {
		path[len(reversed)-1-i] = name
	}
	return path, nil
}

func (s *sqliteStore) dataset(dtype, shape, compression string, data []byte) (Dataset, error) {
	dims, err := parseShape(shape)
	if err != nil {
		return Dataset{}, err
	}
	payload, err := s.codec.unpack(data, Compression(compression))
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{DType: dtype, Shape: dims, Data: payload}, nil
}

func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func parseShape(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parse shape %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// resolve returns the group ids along path, stopping at the first missing
// group.
func resolve(ctx context.Context, q querier, path []string) ([]int64, error) {
	ids := make([]int64, 0, len(path))
	parent := rootGroup
	for _, name := range path {
		var id int64
		err := q.QueryRowContext(ctx,
			"SELECT id FROM groups WHERE parent_id = ? AND name = ?", parent, name,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ids, nil
		}
		if err != nil {
			return nil, fmt.Errorf("resolve group %s: %w", name, err)
		}
		ids = append(ids, id)
		parent = id
	}
	return ids, nil
}

func (s *sqliteStore) Get(ctx context.Context, path []string) (Entry, bool, error) {
	if err := checkPath(path); err != nil {
		return Entry{}, false, err
	}
	ids, err := resolve(ctx, s.db, path)
	if err != nil {
		return Entry{}, false, err
	}
	if len(ids) != len(path) {
		return Entry{}, false, nil
	}
	leaf := ids[len(ids)-1]

	var (
		dtype       string
		shape       string
		compression string
		data        []byte
	)
	err = s.db.QueryRowContext(ctx,
		"SELECT dtype, shape, compression, data FROM datasets WHERE group_id = ? AND name = ?", leaf, DatasetImage,
	).Scan(&dtype, &shape, &compression, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read dataset: %w", err)
	}
	ds, err := s.dataset(dtype, shape, compression, data)
	if err != nil {
		return Entry{}, false, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT name, value FROM attributes WHERE group_id = ?", leaf)
	if err != nil {
		return Entry{}, false, fmt.Errorf("query attributes: %w", err)
	}
	defer rows.Close()
	attrs := make(map[string][]byte)
	for rows.Next() {
		var (
			name  string
			value []byte
		)
		if err := rows.Scan(&name, &value); err != nil {
			return Entry{}, false, fmt.Errorf("scan attribute: %w", err)
		}
		attrs[name] = value
	}
	if err := rows.Err(); err != nil {
		return Entry{}, false, fmt.Errorf("iterate attributes: %w", err)
	}
	return Entry{Path: append([]string(nil), path...), Dataset: ds, Attrs: attrs}, true, nil
}

func (s *sqliteStore) Put(ctx context.Context, entry Entry, overwrite bool) (bool, error) {
	if s.readOnly {
		return false, ErrReadOnly
	}
	if err := checkPath(entry.Path); err != nil {
		return false, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin put tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	parent := rootGroup
	for _, name := range entry.Path {
		var id int64
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM groups WHERE parent_id = ? AND name = ?", parent, name,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			res, insertErr := tx.ExecContext(ctx, "INSERT INTO groups (parent_id, name) VALUES (?, ?)", parent, name)
			if insertErr != nil {
				return false, fmt.Errorf("create group %s: %w", name, insertErr)
			}
			if id, err = res.LastInsertId(); err != nil {
				return false, fmt.Errorf("last insert id: %w", err)
			}
		} else if err != nil {
			return false, fmt.Errorf("resolve group %s: %w", name, err)
		}
		parent = id
	}

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM datasets WHERE group_id = ? AND name = ?", parent, DatasetImage,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check dataset: %w", err)
	}
	if exists > 0 && !overwrite {
		return false, nil
	}

	payload, compression := s.codec.pack(entry.Dataset.Data)
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO datasets (group_id, name, dtype, shape, compression, data)
         VALUES (?, ?, ?, ?, ?, ?)`,
		parent, DatasetImage, entry.Dataset.DType, formatShape(entry.Dataset.Shape), string(compression), payload,
	); err != nil {
		return false, fmt.Errorf("write dataset: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM attributes WHERE group_id = ?", parent); err != nil {
		return false, fmt.Errorf("clear attributes: %w", err)
	}
	for name, value := range entry.Attrs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO attributes (group_id, name, value) VALUES (?, ?, ?)", parent, name, value,
		); err != nil {
			return false, fmt.Errorf("write attribute %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit put: %w", err)
	}
	return true, nil
}

func (s *sqliteStore) Delete(ctx context.Context, path []string) (bool, error) {
	if s.readOnly {
		return false, ErrReadOnly
	}
	if err := checkPath(path); err != nil {
		return false, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids, err := resolve(ctx, tx, path)
	if err != nil {
		return false, err
	}
	if len(ids) != len(path) {
		return false, nil
	}
	leaf := ids[len(ids)-1]
	res, err := tx.ExecContext(ctx, "DELETE FROM datasets WHERE group_id = ? AND name = ?", leaf, DatasetImage)
	if err != nil {
		return false, fmt.Errorf("delete dataset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM attributes WHERE group_id = ?", leaf); err != nil {
		return false, fmt.Errorf("delete attributes: %w", err)
	}

	for i := len(ids) - 1; i >= 0; i-- {
		var used int
		if err := tx.QueryRowContext(ctx,
			`SELECT (SELECT COUNT(1) FROM groups WHERE parent_id = ?1)
                  + (SELECT COUNT(1) FROM datasets WHERE group_id = ?1)
                  + (SELECT COUNT(1) FROM attributes WHERE group_id = ?1)`,
			ids[i],
		).Scan(&used); err != nil {
			return false, fmt.Errorf("check group usage: %w", err)
		}
		if used > 0 {
			break
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", ids[i]); err != nil {
			return false, fmt.Errorf("prune group: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}
	return true, nil
}
