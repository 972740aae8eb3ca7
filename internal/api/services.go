package api

import (
	"context"

	"github.com/listenupapp/libris/internal/reconcile"
	"github.com/listenupapp/libris/internal/service"
)

// Pinger is a store handle the health check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups everything the handlers call.
type Services struct {
	Ingest      *service.IngestService
	Catalog     *service.CatalogService
	Analytics   *service.AnalyticsService
	Circulation *service.CirculationService
	Scanner     *reconcile.Scanner
	Repairer    *reconcile.Repairer

	Relational Pinger
	Documents  Pinger
}
