// Package main provides the reconcile operator tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/listenupapp/libris/internal/cli"
	"github.com/listenupapp/libris/internal/config"
	"github.com/listenupapp/libris/internal/di"
	"github.com/listenupapp/libris/internal/di/providers"
	"github.com/listenupapp/libris/internal/reconcile"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand(load).ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, cli.ErrUnhealthy):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "reconcile: %v\n", err)
		os.Exit(2)
	}
}

func load() (*cli.Toolkit, error) {
	cfg, err := config.FromEnvironment()
	if err != nil {
		return nil, err
	}

	injector := di.NewContainer(cfg)
	log, err := di.BootstrapStores(injector)
	if err != nil {
		_ = injector.Shutdown()
		return nil, err
	}

	scanner := do.MustInvoke[*reconcile.Scanner](injector)
	documents := do.MustInvoke[*providers.DocumentHandle](injector)

	return &cli.Toolkit{
		Scanner: scanner,
		Repairer: func(dryRun bool) *reconcile.Repairer {
			return reconcile.NewRepairer(scanner, documents.Store, providers.RepairOptions(cfg, dryRun), log.Component("repairer"))
		},
		Close: func() error {
			if report := injector.Shutdown(); !report.Succeed {
				return report
			}
			return nil
		},
	}, nil
}
