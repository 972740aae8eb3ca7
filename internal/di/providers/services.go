package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/libris/internal/auth"
	"github.com/listenupapp/libris/internal/logger"
	"github.com/listenupapp/libris/internal/service"
	"github.com/listenupapp/libris/internal/validation"
)

// ProvideHasher provides the argon2id password hasher.
func ProvideHasher(i do.Injector) (*auth.Hasher, error) {
	return auth.NewHasher(auth.DefaultParams), nil
}

// ProvideValidator provides the shared request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideIngestService provides the dual-write coordinator.
func ProvideIngestService(i do.Injector) (*service.IngestService, error) {
	relational := do.MustInvoke[*RelationalHandle](i)
	documents := do.MustInvoke[*DocumentHandle](i)
	hasher := do.MustInvoke[*auth.Hasher](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewIngestService(relational.Store, documents.Store, hasher, validator, log.Component("ingest")), nil
}

// ProvideCatalogService provides the catalog read aggregator.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	relational := do.MustInvoke[*RelationalHandle](i)
	documents := do.MustInvoke[*DocumentHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(relational.Store, documents.Store, log.Component("catalog")), nil
}

// ProvideAnalyticsService provides telemetry recording and reporting.
func ProvideAnalyticsService(i do.Injector) (*service.AnalyticsService, error) {
	relational := do.MustInvoke[*RelationalHandle](i)
	documents := do.MustInvoke[*DocumentHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAnalyticsService(relational.Store, documents.Store, log.Component("analytics")), nil
}

// ProvideCirculationService provides borrowing and returns.
func ProvideCirculationService(i do.Injector) (*service.CirculationService, error) {
	relational := do.MustInvoke[*RelationalHandle](i)
	documents := do.MustInvoke[*DocumentHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCirculationService(relational.Store, documents.Store, validator, log.Component("circulation")), nil
}
