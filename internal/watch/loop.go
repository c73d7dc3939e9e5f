package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/config"
	"github.com/khaothykus/fieldmap-bot/internal/retry"
)

// Watcher multiplexes the intake scan and the retry sweep on a single
// goroutine. The portal session is stateful, so the two tasks must
// never run concurrently.
type Watcher struct {
	cfg        *config.Config
	controller *Controller
	sweeper    *retry.Sweeper
	logger     *slog.Logger
}

// NewWatcher wires the loop. A nil sweeper disables in-process retry
// sweeping (the standalone retry command covers it instead).
func NewWatcher(cfg *config.Config, controller *Controller, sweeper *retry.Sweeper, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{cfg: cfg, controller: controller, sweeper: sweeper, logger: logger}
}

// Run blocks until the context is cancelled or a storage failure makes
// continuing unsafe. Per-file failures are routed to the failed
// directory and never stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	for _, dir := range []string{w.cfg.Dirs.Inbox, w.cfg.Dirs.Processed, w.cfg.Dirs.Failed} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	w.logger.Info("watching for receipts",
		"inbox", w.cfg.Dirs.Inbox,
		"scan_interval", w.cfg.Intake.ScanInterval(),
	)

	scan := time.NewTicker(w.cfg.Intake.ScanInterval())
	defer scan.Stop()

	var sweep <-chan time.Time
	if w.sweeper != nil && w.cfg.Retry.SweepIntervalSeconds > 0 {
		t := time.NewTicker(w.cfg.Retry.SweepInterval())
		defer t.Stop()
		sweep = t.C
	}

	if err := w.intakePass(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher shutting down")
			return nil
		case <-scan.C:
			if err := w.intakePass(ctx); err != nil {
				return err
			}
		case <-sweep:
			if err := w.sweeper.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("retry sweep failed", "error", err)
			}
		}
	}
}

// intakePass processes every candidate currently in the inbox, in
// lexical order. Each file is handled exactly once per pass.
func (w *Watcher) intakePass(ctx context.Context) error {
	names, err := listCandidates(w.cfg.Dirs.Inbox)
	if err != nil {
		return fmt.Errorf("scan inbox: %w", err)
	}

	for _, name := range names {
		if ctx.Err() != nil {
			return nil
		}
		path := filepath.Join(w.cfg.Dirs.Inbox, name)

		if err := waitStable(ctx, path, w.cfg.Intake.StabilityChecks, w.cfg.Intake.StabilityDelay()); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			w.logger.Debug("file not stable yet, leaving for next pass", "file", name)
			continue
		}

		if err := w.controller.ProcessFile(ctx, path); err != nil {
			if errors.Is(err, ErrStorage) {
				return err
			}
			w.logger.Warn("receipt not submitted", "file", name, "error", err)
		}
	}
	return nil
}
