// Package watch drives receipts from the inbox through recognition,
// matching and submission, and into the processed or failed directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/khaothykus/fieldmap-bot/internal/extract"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/config"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/storage"
	"github.com/khaothykus/fieldmap-bot/internal/match"
	"github.com/khaothykus/fieldmap-bot/internal/portal"
	"github.com/khaothykus/fieldmap-bot/internal/receipt"
	"github.com/khaothykus/fieldmap-bot/internal/recognize"
)

var (
	// ErrUnusable marks receipts whose text yielded no trustworthy
	// category, timestamp or amount.
	ErrUnusable = errors.New("extracted data is not usable")

	// ErrNoMatch marks receipts that fit no schedule interval of their
	// month. The schedule may be filled in later, so these retry.
	ErrNoMatch = errors.New("no schedule interval matches")

	// ErrNotConfirmed marks submissions the portal grid never showed.
	ErrNotConfirmed = errors.New("submission not confirmed by expense grid")

	// ErrStorage marks ledger failures. These abort the file without
	// moving it: losing the record of a real submission is worse than
	// reprocessing.
	ErrStorage = errors.New("ledger storage failure")
)

// Controller runs the per-file pipeline. One Controller drives one
// portal session; it must not be called concurrently.
type Controller struct {
	cfg       *config.Config
	repo      storage.LedgerRepository
	rec       recognize.Recognizer
	client    portal.Client
	extractor *extract.Extractor
	logger    *slog.Logger

	authenticated bool
}

func NewController(cfg *config.Config, repo storage.LedgerRepository, rec recognize.Recognizer, client portal.Client, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:       cfg,
		repo:      repo,
		rec:       rec,
		client:    client,
		extractor: extract.New(),
		logger:    logger,
	}
}

// ProcessFile takes one stabilized receipt through the full pipeline.
// On success or duplicate the file ends in the processed directory; on
// any non-storage failure it ends in the failed directory. A storage
// error leaves the file in place for the next pass.
func (c *Controller) ProcessFile(ctx context.Context, path string) error {
	log := c.logger.With("file", path)

	hash, err := receipt.FileHash(path)
	if err != nil {
		log.Error("unreadable file", "error", err)
		return c.fail(path, log, err)
	}

	seen, err := c.repo.SeenByHash(hash)
	if err != nil {
		return fmt.Errorf("%w: seen by hash: %v", ErrStorage, err)
	}
	if seen {
		log.Info("duplicate content, already submitted", "hash", hash)
		return c.succeed(path, log)
	}

	text, err := c.rec.Recognize(ctx, path)
	if err != nil {
		log.Error("recognition failed", "error", err)
		return c.fail(path, log, err)
	}

	fact := c.extractor.Extract(text)
	log.Info("extracted receipt data",
		"category", fact.Category,
		"timestamp", fact.Timestamp,
		"amount_cents", fact.AmountCents,
	)

	if usable, reason := fact.Usable(); !usable {
		log.Error("rejecting receipt", "reason", reason)
		return c.fail(path, log, fmt.Errorf("%w: %s", ErrUnusable, reason))
	}

	seen, err = c.repo.SeenBySignature(fact.Category, *fact.Timestamp, fact.AmountCents)
	if err != nil {
		return fmt.Errorf("%w: seen by signature: %v", ErrStorage, err)
	}
	if seen {
		log.Info("duplicate event, different file", "category", fact.Category, "amount_cents", fact.AmountCents)
		return c.succeed(path, log)
	}

	if !c.authenticated {
		if err := c.client.Authenticate(ctx); err != nil {
			log.Error("portal authentication failed", "error", err)
			return c.fail(path, log, err)
		}
		c.authenticated = true
	}

	intervals, err := c.client.FetchIntervals(ctx, *fact.Timestamp)
	if err != nil {
		log.Error("fetching schedule failed", "error", err)
		return c.fail(path, log, err)
	}

	opts := match.Options{
		TollMargin:      c.cfg.Matching.TollMargin(),
		SameDayFallback: c.cfg.SameDayFallbackEnabled(),
	}
	iv, ok := match.Match(*fact.Timestamp, fact.Category, intervals, opts)
	if !ok {
		log.Error("no matching movement", "timestamp", fact.Timestamp, "intervals", len(intervals))
		return c.fail(path, log, ErrNoMatch)
	}

	if err := c.client.OpenRecord(ctx, iv.Handle); err != nil {
		log.Error("opening expense record failed", "handle", iv.Handle, "error", err)
		return c.fail(path, log, err)
	}

	confirmed, err := c.client.SubmitExpense(ctx, fact.Category, fact.AmountCents, path)
	if err != nil {
		log.Error("submission failed", "error", err)
		return c.fail(path, log, err)
	}
	if !confirmed {
		log.Error("submission not visible in grid")
		return c.fail(path, log, ErrNotConfirmed)
	}

	entry := storage.LedgerEntry{
		Hash:        hash,
		Filename:    filepath.Base(path),
		Category:    fact.Category,
		OccurredAt:  *fact.Timestamp,
		AmountCents: fact.AmountCents,
	}
	if err := c.repo.Commit(entry); err != nil {
		// The expense is already in the portal; without a ledger row the
		// file must not be marked as done.
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}

	log.Info("expense submitted and recorded",
		"category", fact.Category,
		"amount_cents", fact.AmountCents,
		"handle", iv.Handle,
	)
	return c.succeed(path, log)
}

func (c *Controller) succeed(path string, log *slog.Logger) error {
	dest, err := moveWithSuffix(path, c.cfg.Dirs.Processed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	log.Debug("moved to processed", "dest", dest)
	return nil
}

func (c *Controller) fail(path string, log *slog.Logger, cause error) error {
	if _, err := moveWithSuffix(path, c.cfg.Dirs.Failed); err != nil {
		log.Warn("could not move to failed", "error", err)
	}
	return cause
}
