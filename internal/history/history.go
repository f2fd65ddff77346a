// Package history persists acquisition outcomes in a local sqlite database.
// Outcome data only: credentials, tokens and signing material never touch it.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ipagrab/ipagrab/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS acquisitions (
	id         TEXT PRIMARY KEY,
	app_id     TEXT NOT NULL,
	bundle_id  TEXT NOT NULL DEFAULT '',
	app_name   TEXT NOT NULL DEFAULT '',
	version    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	bytes      INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);`

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Ping makes sure the file is actually accessible and the DSN is valid
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Record(a domain.Acquisition) error {
	query := `INSERT OR REPLACE INTO acquisitions
		(id, app_id, bundle_id, app_name, version, status, bytes, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		a.ID, a.AppID, a.BundleID, a.AppName, a.Version, a.Status, a.Bytes, a.Error, a.Created)
	return err
}

func (s *Store) Recent(limit int) ([]domain.Acquisition, error) {
	if limit <= 0 {
		limit = 50
	}

	// KSUIDs sort chronologically, so ordering by id is ordering by time.
	rows, err := s.db.Query(`SELECT id, app_id, bundle_id, app_name, version, status, bytes, error, created_at
		FROM acquisitions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Acquisition
	for rows.Next() {
		var a domain.Acquisition
		if err := rows.Scan(&a.ID, &a.AppID, &a.BundleID, &a.AppName, &a.Version, &a.Status, &a.Bytes, &a.Error, &a.Created); err != nil {
			return nil, err
		}
		items = append(items, a)
	}

	return items, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
