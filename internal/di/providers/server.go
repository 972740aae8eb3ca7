package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/listenupapp/libris/internal/api"
	"github.com/listenupapp/libris/internal/config"
	"github.com/listenupapp/libris/internal/logger"
	"github.com/listenupapp/libris/internal/reconcile"
	"github.com/listenupapp/libris/internal/service"
)

// ProvideAPIServer provides the HTTP handler. do shuts it down through
// (*api.Server).Shutdown, which stops the rate limiter.
func ProvideAPIServer(i do.Injector) (*api.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	relational := do.MustInvoke[*RelationalHandle](i)
	documents := do.MustInvoke[*DocumentHandle](i)

	services := &api.Services{
		Ingest:      do.MustInvoke[*service.IngestService](i),
		Catalog:     do.MustInvoke[*service.CatalogService](i),
		Analytics:   do.MustInvoke[*service.AnalyticsService](i),
		Circulation: do.MustInvoke[*service.CirculationService](i),
		Scanner:     do.MustInvoke[*reconcile.Scanner](i),
		Repairer:    do.MustInvoke[*reconcile.Repairer](i),
		Relational:  relational.Store,
		Documents:   documents.Store,
	}

	return api.NewServer(services, api.Options{
		CORSOrigins:  cfg.Server.CORSOrigins,
		RequestRate:  cfg.Server.RequestRate,
		RequestBurst: cfg.Server.RequestBurst,
	}, log.Component("api")), nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.ShutdownerWithError.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts it in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	handler := do.MustInvoke[*api.Server](i)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
