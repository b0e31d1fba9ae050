// Package store provides generic SQLite persistence for the geographic
// reference tables: insert-or-ignore, update-by-key, upsert, and read-only
// projections, each call applied as a single transaction.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// The country row is built up incrementally: the boundaries loader inserts
// it and later loaders enrich disjoint column subsets by natural key.
// boundary_point is insert-only; its uniqueness constraint is what makes
// re-running the loader safe at several hundred thousand rows.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS country (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT UNIQUE,
	iso           TEXT,
	affiliation   TEXT,
	area          INTEGER,
	perimeter     INTEGER,
	population    INTEGER,
	land_area     INTEGER,
	water_area    INTEGER,
	center_lat    REAL,
	center_lng    REAL,
	global_region TEXT
);

CREATE TABLE IF NOT EXISTS boundary_point (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	area_name TEXT,
	area_iso  TEXT,
	area_type TEXT,
	lat       REAL,
	lng       REAL,
	division  INTEGER,
	UNIQUE(area_name, area_type, lat, lng, division)
);

CREATE INDEX IF NOT EXISTS idx_boundary_point_area ON boundary_point(area_name, area_type);
`

// DB wraps a sql.DB with the generic persistence operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
