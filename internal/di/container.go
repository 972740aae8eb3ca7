// Package di provides dependency injection configuration for Libris.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/libris/internal/config"
	"github.com/listenupapp/libris/internal/di/providers"
	"github.com/listenupapp/libris/internal/logger"
	"github.com/listenupapp/libris/internal/reconcile"
	"github.com/listenupapp/libris/internal/service"
)

// NewContainer creates and configures the DI container. The caller loads
// cfg so each binary can own its flag parsing.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Stores
	do.Provide(injector, providers.ProvideRelationalStore)
	do.Provide(injector, providers.ProvideDocumentStore)

	// Business services
	do.Provide(injector, providers.ProvideHasher)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideIngestService)
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideAnalyticsService)
	do.Provide(injector, providers.ProvideCirculationService)

	// Reconciliation
	do.Provide(injector, providers.ProvideScanner)
	do.Provide(injector, providers.ProvideRepairer)

	// Server
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes every server dependency and starts the HTTP listener.
func Bootstrap(injector *do.RootScope) error {
	if _, err := BootstrapStores(injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*service.IngestService](injector)
	_ = do.MustInvoke[*service.CatalogService](injector)
	_ = do.MustInvoke[*service.AnalyticsService](injector)
	_ = do.MustInvoke[*service.CirculationService](injector)
	_ = do.MustInvoke[*reconcile.Repairer](injector)

	_, err := do.Invoke[*providers.HTTPServerHandle](injector)
	return err
}

// BootstrapStores opens both stores and returns the logger. The reconcile
// tool stops here; it never starts the HTTP server.
func BootstrapStores(injector *do.RootScope) (*logger.Logger, error) {
	log, err := do.Invoke[*logger.Logger](injector)
	if err != nil {
		return nil, err
	}
	if _, err := do.Invoke[*providers.RelationalHandle](injector); err != nil {
		return nil, err
	}
	if _, err := do.Invoke[*providers.DocumentHandle](injector); err != nil {
		return nil, err
	}
	return log, nil
}
