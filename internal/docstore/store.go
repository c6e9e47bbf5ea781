package docstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on nodes(parent_id, position)
const currentSchemaVersion = 1

// FileName is the database file inside a store directory.
const FileName = "outline.db"

// Store is one document's database.
type Store struct {
	db   *sqlx.DB
	dir  string
	name string
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for the dump header's start_time.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithName sets the db_name recorded on first open. Defaults to the base name
// of the store directory. An existing name is never replaced.
func WithName(name string) Option {
	return func(s *Store) {
		s.name = name
	}
}

// Open creates or opens the store in dir, creating the directory if needed.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("failed to open store: directory required")
	}
	s := &Store{dir: dir, name: filepath.Base(dir), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sqlx.Open("sqlite3", filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s.db = db
	if err := s.initMeta(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise metadata: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// DB returns the underlying database handle.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Destroy closes the store and removes its directory.
func (s *Store) Destroy() error {
	if err := s.Close(); err != nil {
		return fmt.Errorf("destroy store: %w", err)
	}
	return Destroy(s.dir)
}

// Destroy removes the store in dir. A missing store is not an error.
func Destroy(dir string) error {
	if dir == "" {
		return errors.New("destroy store: directory required")
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("destroy store: %w", err)
	}
	return nil
}

// Name returns the db_name recorded in the store.
func (s *Store) Name(ctx context.Context) (string, error) {
	return s.metaValue(ctx, s.db, metaDBName)
}

func (s *Store) initMeta() error {
	_, err := s.db.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?), (?, ?)
		ON CONFLICT(key) DO NOTHING
	`, metaDBName, s.name, metaUpdateSeq, "0")
	return err
}

const (
	metaDBName    = "db_name"
	metaUpdateSeq = "update_seq"
)

type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func (s *Store) metaValue(ctx context.Context, q queryer, key string) (string, error) {
	var value string
	err := q.GetContext(ctx, &value, `SELECT value FROM meta WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read meta %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) updateSeq(ctx context.Context, q queryer) (int64, error) {
	raw, err := s.metaValue(ctx, q, metaUpdateSeq)
	if err != nil || raw == "" {
		return 0, err
	}
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse update_seq: %w", err)
	}
	return seq, nil
}

func setUpdateSeq(ctx context.Context, tx *sqlx.Tx, seq int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaUpdateSeq, strconv.FormatInt(seq, 10))
	if err != nil {
		return fmt.Errorf("write update_seq: %w", err)
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sqlx.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sqlx.DB) error {
	var version int
	if err := db.Get(&version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the index used to rebuild the tree in sibling order.
func migrateToV1(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_nodes_parent_position
		ON nodes(parent_id, position)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.Get(&value, fmt.Sprintf("PRAGMA %s", name)); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
