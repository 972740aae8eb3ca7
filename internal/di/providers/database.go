package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/listenupapp/libris/internal/config"
	"github.com/listenupapp/libris/internal/logger"
	"github.com/listenupapp/libris/internal/store"
	"github.com/listenupapp/libris/internal/store/sqlite"
)

// RelationalHandle wraps the relational store with shutdown capability.
type RelationalHandle struct {
	*sqlite.Store
}

// Shutdown implements do.ShutdownerWithError.
func (h *RelationalHandle) Shutdown() error {
	return h.Close()
}

// ProvideRelationalStore opens the SQLite store and checks it answers.
func ProvideRelationalStore(i do.Injector) (*RelationalHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := sqlite.Open(cfg.Relational.Path, log.Logger, sqlite.Options{
		MaxOpenConns: cfg.Relational.MaxOpenConns,
		MaxIdleConns: cfg.Relational.MaxIdleConns,
		Timeout:      cfg.Relational.Timeout,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("relational store unreachable: %w", err)
	}

	log.Info("Relational store initialized",
		"path", cfg.Relational.Path,
		"max_open_conns", cfg.Relational.MaxOpenConns,
		"timeout", cfg.Relational.Timeout,
	)

	return &RelationalHandle{Store: db}, nil
}

// DocumentHandle wraps the document store with shutdown capability.
type DocumentHandle struct {
	*store.Store
}

// Shutdown implements do.ShutdownerWithError.
func (h *DocumentHandle) Shutdown() error {
	return h.Close()
}

// ProvideDocumentStore opens the Badger store.
func ProvideDocumentStore(i do.Injector) (*DocumentHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := store.New(cfg.Document.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	return &DocumentHandle{Store: db}, nil
}
