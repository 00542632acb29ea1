package docstore

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// busyTimeoutMS bounds how long a write waits on a locked database
// before failing, instead of blocking indefinitely under contention.
const busyTimeoutMS = 5000

// Conn is the connection bound to one execution context.
//
// A Conn must never be used by two concurrently running goroutines; one
// goroutine acquires it, uses it, and releases it on teardown. A
// cooperative owner may share a Conn across tasks as long as no two
// engine calls run on it at once.
type Conn struct {
	db *DB
	sc *sql.Conn
}

// Acquire returns a connection for the calling execution context,
// configured and verified. Safe to call concurrently from different
// goroutines; each call hands out an independent connection.
//
// The connection is configured on checkout: foreign-key enforcement on,
// busy timeout set, and, when the store was opened with WAL, the journal
// mode switch is confirmed. An unconfirmed switch is a ConnectionError
// carrying the observed mode.
func (db *DB) Acquire(ctx context.Context) (*Conn, error) {
	sc, err := db.sqlDB.Conn(ctx)
	if err != nil {
		return nil, &ConnectionError{Path: db.cfg.Path, Err: err}
	}
	if err := db.configure(ctx, sc); err != nil {
		sc.Close()
		return nil, err
	}
	return &Conn{db: db, sc: sc}, nil
}

// configure applies the per-connection pragmas. SQLite scopes these to
// the connection, not the database, so they run on every checkout.
func (db *DB) configure(ctx context.Context, sc *sql.Conn) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = " + strconv.Itoa(busyTimeoutMS),
	}
	for _, pragma := range pragmas {
		if _, err := sc.ExecContext(ctx, pragma); err != nil {
			return &ConnectionError{Path: db.cfg.Path, Err: err}
		}
	}

	if db.cfg.WAL {
		var mode string
		if err := sc.QueryRowContext(ctx, "PRAGMA journal_mode = WAL").Scan(&mode); err != nil {
			return &ConnectionError{Path: db.cfg.Path, Err: err}
		}
		if !strings.EqualFold(mode, "wal") {
			return &ConnectionError{Path: db.cfg.Path, Mode: mode}
		}
	}
	return nil
}

// Release returns the connection to the store. Idempotent: releasing an
// already-released Conn is a no-op.
func (c *Conn) Release() error {
	if c.sc == nil {
		return nil
	}
	err := c.sc.Close()
	c.sc = nil
	return err
}
