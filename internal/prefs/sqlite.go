package prefs

import (
	"fmt"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	ioutils "github.com/handiism/listenmoe-client/internal/io"
)

const createPreferencesTable = `CREATE TABLE IF NOT EXISTS preferences (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteStore keeps preferences in a SQLite table.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLiteStore opens (or creates) the database at path and makes sure the
// preferences table exists. ":memory:" opens a private in-memory database.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := ioutils.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("prefs: create dir: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("prefs: open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases from splitting per conn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createPreferencesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("prefs: create table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var values []string
	if err := s.db.Select(&values, `SELECT value FROM preferences WHERE key = ?`, key); err != nil {
		return "", false, fmt.Errorf("prefs: get %s: %w", key, err)
	}
	if len(values) == 0 {
		return "", false, nil
	}
	return values[0], true, nil
}

func (s *SQLiteStore) Set(values map[string]string) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("prefs: begin: %w", err)
	}
	defer tx.Rollback()

	for k, v := range values {
		if _, err := tx.Exec(
			`INSERT INTO preferences (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v); err != nil {
			return fmt.Errorf("prefs: set %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM preferences WHERE key IN (?)`, keys)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("prefs: delete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
