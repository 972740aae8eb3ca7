// Package sqlite is the relational store: books, members, loans, and fines
// on SQLite via modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is fixed-width UTC so stored timestamps sort lexically and
// SQLite's julianday() can parse them.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Options configures the connection pool and operation deadline.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
	// Timeout bounds every call, including time spent queued for a pooled
	// connection and waiting on a locked database.
	Timeout time.Duration
}

func (o *Options) withDefaults() {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 8
	}
	if o.MaxIdleConns <= 0 || o.MaxIdleConns > o.MaxOpenConns {
		o.MaxIdleConns = min(4, o.MaxOpenConns)
	}
	if o.Timeout <= 0 {
		o.Timeout = 3 * time.Second
	}
}

// Store provides SQLite-backed relational persistence.
type Store struct {
	db         *sql.DB
	logger     *slog.Logger
	timeout    time.Duration
	procedures map[string]Procedure
}

// Open creates or opens the database at path, applies pragmas to every
// pooled connection, and runs the embedded schema.
func Open(path string, logger *slog.Logger, opts Options) (*Store, error) {
	opts.withDefaults()

	db, err := sql.Open("sqlite", dsn(path, opts.Timeout))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Callers block on pool exhaustion until their context expires.
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*opts.Timeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	s := &Store{
		db:      db,
		logger:  logger,
		timeout: opts.Timeout,
	}
	s.procedures = builtinProcedures()

	if logger != nil {
		logger.Info("relational store opened", "path", path, "max_open_conns", opts.MaxOpenConns, "timeout", opts.Timeout)
	}
	return s, nil
}

// dsn encodes pragmas as connection parameters so every pooled connection
// gets them, not just the first.
func dsn(path string, timeout time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(ON)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", timeout.Milliseconds()))
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Close closes the underlying database connection pool.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing relational store")
	}
	return s.db.Close()
}

// Ping reports whether a connection can be obtained within the deadline.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return classify(s.db.PingContext(ctx))
}

// withTimeout applies the store's fail-fast deadline to ctx.
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// inTx runs fn in one transaction under the store deadline.
func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return classify(err)
	}
	return classify(tx.Commit())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullPositiveInt(v int) sql.NullInt64 {
	if v <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}
