// Package store is the Badger-backed document store. It holds book content,
// analytics counters, member profiles, and telemetry events.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/libris/internal/domain"
)

// Collection prefixes.
const (
	prefixBookDocument = "bookdoc:"
	prefixAnalytics    = "analytics:"
	prefixProfile      = "profile:"
	prefixEvent        = "event:"
)

// Index names.
const (
	indexBookID  = "book_id"
	indexBookDoc = "book_doc"
)

// maxConflictRetries bounds how often a read-modify-write is replayed after
// losing a race to a concurrent transaction.
const maxConflictRetries = 100

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	BookDocuments *Entity[domain.BookDocument]
	Analytics     *Entity[domain.BookAnalytics]
	Profiles      *Entity[domain.MemberProfile]
	Events        *Entity[domain.TelemetryEvent]
}

// Options configures New.
type Options struct {
	// InMemory keeps everything in RAM. Path is ignored.
	InMemory bool
}

// New opens (or creates) the document store at path.
func New(path string, logger *slog.Logger, opts ...Options) (*Store, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	bopts := badger.DefaultOptions(path)
	if o.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil
	bopts.SyncWrites = !o.InMemory
	bopts.CompactL0OnClose = true

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{db: db, logger: logger}
	s.initCollections()

	if logger != nil {
		logger.Info("document store opened", "path", path, "in_memory", o.InMemory)
	}
	return s, nil
}

func (s *Store) initCollections() {
	s.BookDocuments = NewEntity[domain.BookDocument](s, prefixBookDocument).
		WithIndex(indexBookID, func(d *domain.BookDocument) []string {
			return []string{strconv.FormatInt(d.MySQLBookID, 10)}
		})

	s.Analytics = NewEntity[domain.BookAnalytics](s, prefixAnalytics).
		WithIndex(indexBookDoc, func(a *domain.BookAnalytics) []string {
			return []string{a.BookDocumentID}
		})

	s.Profiles = NewEntity[domain.MemberProfile](s, prefixProfile)
	s.Events = NewEntity[domain.TelemetryEvent](s, prefixEvent)
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing document store")
	}
	return s.db.Close()
}

// Ping reports whether the database accepts reads.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return ErrUnavailable
	}
	return s.view(func(*badger.Txn) error { return nil })
}

func (s *Store) view(fn func(txn *badger.Txn) error) error {
	return classify(s.db.View(fn))
}

// update runs fn in a read-write transaction, replaying it when the commit
// conflicts with a concurrent writer.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	backoff := time.Millisecond
	for attempt := 0; ; attempt++ {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) || attempt == maxConflictRetries {
			return classify(err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff/2 + rand.N(backoff)):
		}
		if backoff < 32*time.Millisecond {
			backoff *= 2
		}
	}
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, badger.ErrDBClosed) || errors.Is(err, badger.ErrBlockedWrites) {
		return ErrUnavailable.WithCause(err)
	}
	return err
}
