// Package providers contains dependency injection providers for the Libris
// server and reconcile tool.
package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/listenupapp/libris/internal/config"
	"github.com/listenupapp/libris/internal/logger"
)

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Libris",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"relational_path", cfg.Relational.Path,
		"document_path", cfg.Document.Path,
	)

	return log, nil
}

// ProvideSlogLogger provides the underlying slog.Logger for packages that take one directly.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}
