package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/khaothykus/fieldmap-bot/internal/api"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/config"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/logging"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/storage"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file path")
		port       = flag.Int("port", 0, "Override the configured port")
	)
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configFile)
	if *port > 0 {
		cfg.API.Port = *port
	}

	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	repo, err := storage.NewStorage(cfg.Ledger.DatabasePath)
	if err != nil {
		logger.Error("failed to open ledger", "path", cfg.Ledger.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	server := api.NewServer(cfg.API, cfg.Retry.StatePath, repo, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Error("api server stopped", "error", err)
		os.Exit(1)
	}
}
