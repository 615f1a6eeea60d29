// Package sqlite implements the repository interfaces on SQLite.
//
// The whole system is a single-node, single-database design, so an embedded
// database is the right shape: one file, real transactions, no extra
// infrastructure. We use modernc.org/sqlite (a pure-Go translation of the
// SQLite sources) rather than mattn/go-sqlite3 so builds need no C
// toolchain and cross-compilation stays trivial.
//
// Every multi-step mutation (event create, cancellation, RSVP toggle plus
// count) runs inside one transaction; serialization of concurrent toggles
// is delegated to SQLite's isolation plus the idempotent insert/delete
// statements.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB pool and implements repository.UserRepository,
// repository.EventRepository, and repository.RSVPRepository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// PRAGMAs are per-connection, and ":memory:" is a separate database per
	// connection. SQLite permits only one writer anyway, so pin the pool to
	// a single connection and run the PRAGMAs once on it.
	conn.SetMaxOpenConns(1)

	// WAL avoids the full-database lock of rollback-journal mode, so a slow
	// reader does not stall an RSVP toggle.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Referential integrity between rsvps/hosted_events and events is an
	// invariant, not a suggestion.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			email         TEXT PRIMARY KEY,
			name          TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			make          TEXT NOT NULL DEFAULT '',
			model         TEXT NOT NULL DEFAULT '',
			latitude      REAL,
			longitude     REAL,
			radius_m      INTEGER,
			city          TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			event_time  DATETIME NOT NULL,
			location    TEXT NOT NULL DEFAULT '',
			latitude    REAL NOT NULL,
			longitude   REAL NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			host_email  TEXT NOT NULL REFERENCES users(email),
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_events_event_time ON events(event_time);
		CREATE INDEX IF NOT EXISTS idx_events_host_email ON events(host_email);
	`)
	if err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}

	// The authored-event list as a join table mirroring rsvps, so a
	// cancellation is a scoped DELETE keyed by event id instead of a
	// recompute over every user.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS hosted_events (
			host_email TEXT NOT NULL REFERENCES users(email),
			event_id   TEXT NOT NULL REFERENCES events(id),
			PRIMARY KEY (host_email, event_id)
		);
		CREATE INDEX IF NOT EXISTS idx_hosted_events_event_id ON hosted_events(event_id);
	`)
	if err != nil {
		return fmt.Errorf("creating hosted_events table: %w", err)
	}

	// The composite primary key is what makes the "attend" toggle
	// idempotent: INSERT OR IGNORE converges to exactly one row no matter
	// how many concurrent attends race.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS rsvps (
			user_email TEXT NOT NULL REFERENCES users(email),
			event_id   TEXT NOT NULL REFERENCES events(id),
			PRIMARY KEY (user_email, event_id)
		);
		CREATE INDEX IF NOT EXISTS idx_rsvps_event_id ON rsvps(event_id);
	`)
	if err != nil {
		return fmt.Errorf("creating rsvps table: %w", err)
	}

	return nil
}
