// Package store persists grid snapshots, settings and tick statistics in
// SQLite.
package store

import (
	"database/sql"
	"errors"
	"log"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrCorrupt  = errors.New("store: snapshot digest mismatch")
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database at path. Use ":memory:" for a
// throwaway database.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		conn.SetMaxOpenConns(1)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		taken_unix_nanos INTEGER NOT NULL,
		cells_x INTEGER NOT NULL,
		cells_y INTEGER NOT NULL,
		entity_count INTEGER NOT NULL DEFAULT 0,
		grid_blob BLOB NOT NULL,
		digest TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tick_stats (
		world TEXT NOT NULL,
		tick INTEGER NOT NULL,
		entities INTEGER NOT NULL DEFAULT 0,
		relocations INTEGER NOT NULL DEFAULT 0,
		noop_relocations INTEGER NOT NULL DEFAULT 0,
		mutations INTEGER NOT NULL DEFAULT 0,
		recorded_unix_nanos INTEGER NOT NULL,
		PRIMARY KEY (world, tick)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_name ON snapshots(name, taken_unix_nanos);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("store: migration error: %v", err)
	}
	return err
}

// GetSetting returns the value stored under key, or "" if there is none
func (db *DB) GetSetting(key string) string {
	var value string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("store: get setting %q: %v", key, err)
		}
		return ""
	}
	return value
}

// SetSetting stores value under key, replacing any previous value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}
