package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrSessionNotFound is returned when a session id has no row.
var ErrSessionNotFound = errors.New("session not found")

// migrations run in order on databases whose user_version is below their
// index + 1. schema.sql always describes version 0.
var migrations = []string{
	// 1: per-frame tick reads for replay and listing.
	`CREATE INDEX IF NOT EXISTS idx_ticks_session_frame ON ticks(session_id, frame)`,
	// 2: middle-button drags record their impulse kind.
	`ALTER TABLE impulses ADD COLUMN kind TEXT NOT NULL DEFAULT 'notch'`,
	// 3: scroll_step became one step per axis.
	`UPDATE sessions SET config = json_remove(
		json_set(config,
			'$.scroll_step_x', json_extract(config, '$.scroll_step'),
			'$.scroll_step_y', json_extract(config, '$.scroll_step')),
		'$.scroll_step')
	WHERE json_type(config, '$.scroll_step') IS NOT NULL`,
}

// connParams are applied by the driver to every connection.
var connParams = url.Values{
	"_journal_mode": {"WAL"},
	"_synchronous":  {"NORMAL"},
	"_busy_timeout": {"5000"},
	"_foreign_keys": {"on"},
}

// Store is a SQLite database of gesture recordings.
type Store struct {
	db *sql.DB
}

// Open creates or opens the recordings database at path and brings its
// schema up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?"+connParams.Encode())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The recorder is the only writer; one connection keeps readers in
	// the same process from hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for v := version; v < len(migrations); v++ {
		if _, err := db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	if version < len(migrations) {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}
	return nil
}

// pragma reads a connection setting.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("query %s: %w", name, err)
	}
	return value, nil
}
