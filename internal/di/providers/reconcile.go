package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/libris/internal/config"
	"github.com/listenupapp/libris/internal/logger"
	"github.com/listenupapp/libris/internal/reconcile"
)

// ProvideScanner provides the consistency scanner.
func ProvideScanner(i do.Injector) (*reconcile.Scanner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	relational := do.MustInvoke[*RelationalHandle](i)
	documents := do.MustInvoke[*DocumentHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return reconcile.NewScanner(relational.Store, documents.Store, cfg.Reconcile.BatchSize, log.Component("scanner")), nil
}

// ProvideRepairer provides the reconciliation repairer with the configured pacing.
func ProvideRepairer(i do.Injector) (*reconcile.Repairer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	scanner := do.MustInvoke[*reconcile.Scanner](i)
	documents := do.MustInvoke[*DocumentHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return reconcile.NewRepairer(scanner, documents.Store, RepairOptions(cfg, false), log.Component("repairer")), nil
}

// RepairOptions maps the reconcile config onto repairer options.
func RepairOptions(cfg *config.Config, dryRun bool) reconcile.RepairOptions {
	return reconcile.RepairOptions{
		Rate:   cfg.Reconcile.RepairRate,
		Burst:  cfg.Reconcile.RepairBurst,
		DryRun: dryRun,
	}
}
