// Package store provides the SQLite database shared by the preference
// backend and the cycle log.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/autobuy/internal/prefs"
	"github.com/danielpatrickdp/autobuy/internal/tier"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS preferences (
	key         TEXT PRIMARY KEY,
	value       TEXT NOT NULL,
	updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE TABLE IF NOT EXISTS cycle_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_id      TEXT NOT NULL UNIQUE,
	tier          TEXT NOT NULL,
	target        INTEGER NOT NULL,
	outcome       TEXT NOT NULL,
	reason        TEXT,
	triggered_at  TEXT NOT NULL,
	finished_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS cycle_log_finished ON cycle_log(finished_at);
`

const (
	keyEnabled = "enabled"
	keyTier    = "selected_tier"
)

// #endregion schema

// #region store-struct
// Store wraps the SQLite connection.
type Store struct {
	db *sqlx.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// ErrNoDatabase is returned by OpenExisting when the file is missing.
var ErrNoDatabase = errors.New("database file not found")

// OpenExisting opens dbPath like NewStore but never creates it.
func OpenExisting(dbPath string) (*Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoDatabase, dbPath)
		}
		return nil, fmt.Errorf("stat db: %w", err)
	}
	return NewStore(dbPath)
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying handle for the cycle log.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// #endregion db-accessor

// #region preferences

type prefRow struct {
	Key       string `db:"key"`
	Value     string `db:"value"`
	UpdatedAt string `db:"updated_at"`
}

// Load implements prefs.Backend. Keys that were never written keep
// their default.
func (s *Store) Load() (prefs.Preferences, error) {
	var rows []prefRow
	if err := s.db.Select(&rows, `SELECT key, value FROM preferences`); err != nil {
		return prefs.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}

	p := prefs.Defaults()
	for _, r := range rows {
		switch r.Key {
		case keyEnabled:
			v, err := strconv.ParseBool(r.Value)
			if err != nil {
				return prefs.Preferences{}, fmt.Errorf("parse %s=%q: %w", r.Key, r.Value, err)
			}
			p.Enabled = v
		case keyTier:
			p.Tier = tier.ID(r.Value)
		}
	}
	return p, nil
}

// Save implements prefs.Backend. Both keys are written in one transaction.
func (s *Store) Save(p prefs.Preferences) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	upsert := `INSERT INTO preferences (key, value, updated_at)
		VALUES (:key, :value, :updated_at)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range []prefRow{
		{Key: keyEnabled, Value: strconv.FormatBool(p.Enabled), UpdatedAt: now},
		{Key: keyTier, Value: string(p.Tier), UpdatedAt: now},
	} {
		if _, err := tx.NamedExec(upsert, r); err != nil {
			return fmt.Errorf("save %s: %w", r.Key, err)
		}
	}
	return tx.Commit()
}

// Preference returns a single raw preference value.
func (s *Store) Preference(key string) (string, bool, error) {
	var v string
	err := s.db.Get(&v, `SELECT value FROM preferences WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %s: %w", key, err)
	}
	return v, true, nil
}

// #endregion preferences
