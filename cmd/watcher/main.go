package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/khaothykus/fieldmap-bot/internal/api"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/config"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/logging"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/storage"
	"github.com/khaothykus/fieldmap-bot/internal/portal"
	"github.com/khaothykus/fieldmap-bot/internal/recognize"
	"github.com/khaothykus/fieldmap-bot/internal/retry"
	"github.com/khaothykus/fieldmap-bot/internal/watch"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file path")
		headless   = flag.Bool("headless", false, "Force the portal driver to run headless")
		withAPI    = flag.Bool("api", false, "Also serve the read-only status API")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configFile)
	if *headless {
		cfg.Portal.Headless = true
	}
	if *verbose {
		cfg.Observability.Logging.Level = "debug"
	}

	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "watcher")

	repo, err := storage.NewStorage(cfg.Ledger.DatabasePath)
	if err != nil {
		logger.Error("failed to open ledger", "path", cfg.Ledger.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	recognizer := recognize.NewTesseract(cfg.Recognition)

	client := portal.NewExecDriver(cfg.Portal, logger)
	defer client.Close()

	controller := watch.NewController(cfg, repo, recognizer, client, logger)
	sweeper := retry.NewSweeper(cfg.Retry, cfg.Dirs, controller, logging.NewLoggerWithSystem(cfg.Observability.Logging, "retry"))
	watcher := watch.NewWatcher(cfg, controller, sweeper, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watcher.Run(ctx) })
	if *withAPI {
		server := api.NewServer(cfg.API, cfg.Retry.StatePath, repo, logging.NewLoggerWithSystem(cfg.Observability.Logging, "api"))
		g.Go(func() error { return server.Start(ctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("watcher stopped", "error", err)
		os.Exit(1)
	}
}
