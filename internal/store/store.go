// Package store is the ccmem record store.
//
// It keeps stories, tasks, defects, their logs, work sessions, landmines,
// risk keywords, project knowledge and the dashboard backlog in a single
// SQLite database (modernc.org/sqlite, pure Go) accessed through sqlx.
//
// *Store and *Tx expose the same read/write methods; WithTx is the only
// way to group several writes into one atomic unit.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sqlx.Open

// Options tunes the connection pool and lock waiting.
type Options struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultOptions returns the pool settings used by the CLI.
func DefaultOptions() Options {
	return Options{BusyTimeout: 5 * time.Second, MaxOpenConns: 4}
}

// Store is the SQLite-backed record store.
type Store struct {
	conn
	db   *sqlx.DB
	path string
}

// Tx is a store handle bound to an open transaction.
type Tx struct {
	conn
}

// conn carries the method set shared by Store and Tx.
type conn struct {
	q     sqlx.ExtContext
	hooks *storeHooks
}

type storeHooks struct {
	exec   func(ctx context.Context, q sqlx.ExecerContext, query string, args ...any) (sql.Result, error)
	commit func(tx *sqlx.Tx) error
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if c.hooks != nil && c.hooks.exec != nil {
		return c.hooks.exec(ctx, c.q, query, args...)
	}
	return c.q.ExecContext(ctx, query, args...)
}

func (c conn) get(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, c.q, dest, query, args...)
}

func (c conn) sel(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, c.q, dest, query, args...)
}

// insert runs an INSERT and returns the generated row id.
func (c conn) insert(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return 0, classify(err)
	}
	return res.LastInsertId()
}

// update runs an UPDATE/DELETE and returns the affected row count.
func (c conn) update(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return 0, classify(err)
	}
	return res.RowsAffected()
}

// Open creates the parent directory if needed, opens the database at path
// and runs migrations.
func Open(path string, opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("store: resolve path: %w", err)
	}

	busy := int(opts.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	// _txlock=immediate makes every BEGIN take the write lock, so the
	// read-modify-write of a risk's id list cannot interleave.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate",
		abs, busy,
	)
	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(busy)*time.Millisecond)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{conn: conn{q: db, hooks: &storeHooks{}}, db: db, path: abs}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the absolute database file path.
func (s *Store) Path() string { return s.path }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn inside one transaction. Any error returned by fn, or a
// panic, rolls back every write fn made.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{conn: conn{q: tx, hooks: s.hooks}}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := s.commit(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func (s *Store) commit(tx *sqlx.Tx) error {
	if s.hooks != nil && s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

func (s *Store) migrate(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		for i, stmt := range schemaStatements {
			if _, err := tx.exec(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// Now returns the current time formatted the way SQLite's datetime('now')
// stores it.
func Now() string {
	return time.Now().UTC().Format(TimeLayout)
}

// TimeLayout is the layout of every timestamp column.
const TimeLayout = "2006-01-02 15:04:05"

// ParseTime parses a timestamp column value.
func ParseTime(ts string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, ts, time.UTC)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
