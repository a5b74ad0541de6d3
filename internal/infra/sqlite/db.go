// Package sqlite is the persistence layer for posts, votes, creator profiles
// and notifications. It implements the domain store interfaces on top of a
// single SQLite file opened in WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// FileName is the database file created inside the data directory.
const FileName = "reelrank.db"

var (
	retryInitialInterval = 20 * time.Millisecond
	retryMaxInterval     = 500 * time.Millisecond
	retryMaxElapsed      = 5 * time.Second
	retryMaxAttempts     = uint64(8)
)

// DB wraps the SQL handle. Safe for concurrent use.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database in dir and applies migrations.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	dsn := "file:" + path +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One writer connection: every transaction is serialized by the pool.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{db: sqlDB, now: time.Now}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close releases the database handle.
func (db *DB) Close() error {
	return db.db.Close()
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// ─── Transactions ───────────────────────────────────────────────────────────

// withTx runs fn inside a transaction, retrying the whole transaction with
// exponential backoff while SQLite reports the database busy or locked.
// fn must only use tx; the pool holds a single connection.
func (db *DB) withTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	var lastErr error

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(retryInitialInterval),
		backoff.WithMaxInterval(retryMaxInterval),
		backoff.WithMaxElapsedTime(retryMaxElapsed),
	), retryMaxAttempts)

	err := backoff.Retry(func() error {
		err := db.runTx(ctx, opts, fn)
		if err == nil {
			return nil
		}
		if !IsBusy(err) {
			return backoff.Permanent(err)
		}
		lastErr = err
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil && lastErr != nil && IsBusy(err) {
		return fmt.Errorf("transaction failed after retries: %w", lastErr)
	}
	return err
}

func (db *DB) runTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := db.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// IsBusy reports whether err is a transient SQLite lock error.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
