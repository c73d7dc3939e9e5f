package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/config"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/logging"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/storage"
	"github.com/khaothykus/fieldmap-bot/internal/portal"
	"github.com/khaothykus/fieldmap-bot/internal/recognize"
	"github.com/khaothykus/fieldmap-bot/internal/retry"
	"github.com/khaothykus/fieldmap-bot/internal/watch"
)

const minWatchSeconds = 15

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file path")
		once       = flag.Bool("once", false, "Run a single sweep and exit")
		watchEvery = flag.Int("watch", 0, "Sweep every N seconds (min 15, 0 = single sweep)")
		headless   = flag.Bool("headless", true, "Run the portal driver headless")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configFile)
	cfg.Portal.Headless = *headless
	if *verbose {
		cfg.Observability.Logging.Level = "debug"
	}

	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "retry")

	repo, err := storage.NewStorage(cfg.Ledger.DatabasePath)
	if err != nil {
		logger.Error("failed to open ledger", "path", cfg.Ledger.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	client := portal.NewExecDriver(cfg.Portal, logger)
	defer client.Close()

	controller := watch.NewController(cfg, repo, recognize.NewTesseract(cfg.Recognition), client, logger)
	sweeper := retry.NewSweeper(cfg.Retry, cfg.Dirs, controller, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once || *watchEvery == 0 {
		if err := sweeper.Sweep(ctx); err != nil {
			logger.Error("sweep failed", "error", err)
			os.Exit(1)
		}
		return
	}

	interval := *watchEvery
	if interval < minWatchSeconds {
		interval = minWatchSeconds
	}
	logger.Info("sweeping on a timer", "interval_seconds", interval)

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	for {
		if err := sweeper.Sweep(ctx); err != nil {
			logger.Error("sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			logger.Info("retry loop shutting down")
			return
		case <-ticker.C:
		}
	}
}
