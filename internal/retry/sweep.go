package retry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/config"
)

// Processor runs one file through the full intake pipeline. It owns
// the final move to the processed or failed directory.
type Processor interface {
	ProcessFile(ctx context.Context, path string) error
}

// Sweeper makes one pass over the failed directory, moving eligible
// files back to the inbox and reprocessing them.
type Sweeper struct {
	cfg    config.RetryConfig
	dirs   config.DirsConfig
	proc   Processor
	logger *slog.Logger
	now    func() time.Time
}

func NewSweeper(cfg config.RetryConfig, dirs config.DirsConfig, proc Processor, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{cfg: cfg, dirs: dirs, proc: proc, logger: logger, now: time.Now}
}

// Retry and collision suffixes accumulate on the stem as a file cycles
// through the queue; the schedule key is the name with them stripped.
var suffixRe = regexp.MustCompile(`(?:__retry\d+|__\d+)$`)

func scheduleKey(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for {
		trimmed := suffixRe.ReplaceAllString(stem, "")
		if trimmed == stem {
			break
		}
		stem = trimmed
	}
	return stem + ext
}

// Sweep processes every eligible failed file once. It returns nil when
// another sweep holds the lock.
func (s *Sweeper) Sweep(ctx context.Context) error {
	lock, ok, err := Acquire(s.cfg.LockPath)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Info("another sweep holds the lock, skipping this round", "lock", s.cfg.LockPath)
		return nil
	}
	defer lock.Release()

	sweepID := uuid.NewString()[:8]

	if err := os.MkdirAll(s.dirs.Failed, 0o755); err != nil {
		return fmt.Errorf("failed dir: %w", err)
	}
	if err := os.MkdirAll(s.dirs.Inbox, 0o755); err != nil {
		return fmt.Errorf("inbox dir: %w", err)
	}

	names, err := listFiles(s.dirs.Failed)
	if err != nil {
		return err
	}

	st := LoadState(s.cfg.StatePath)
	if len(names) == 0 {
		if len(st) > 0 {
			if err := SaveState(s.cfg.StatePath, State{}); err != nil {
				return err
			}
		}
		return nil
	}

	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[scheduleKey(n)] = true
	}
	st.Prune(present)
	if err := SaveState(s.cfg.StatePath, st); err != nil {
		return err
	}

	s.logger.Info("sweeping failed receipts", "sweep_id", sweepID, "files", len(names))

	for _, name := range names {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		key := scheduleKey(name)
		entry := st[key]
		now := s.now()

		if !entry.NextDue.IsZero() && now.Before(entry.NextDue) {
			s.logger.Debug("not yet eligible", "sweep_id", sweepID, "file", name, "next_due", entry.NextDue)
			continue
		}
		if s.cfg.MaxAttempts > 0 && entry.Attempts >= s.cfg.MaxAttempts {
			s.logger.Warn("attempts exhausted, leaving file parked", "sweep_id", sweepID, "file", name, "attempts", entry.Attempts)
			continue
		}

		entry.Attempts++
		entry.NextDue = nextDue(now, entry.Attempts)
		st[key] = entry
		if err := SaveState(s.cfg.StatePath, st); err != nil {
			return err
		}

		dest, err := s.moveToInbox(name)
		if err != nil {
			// Someone else took the file; the orphan entry goes away on
			// the next prune.
			s.logger.Warn("could not return file to inbox", "sweep_id", sweepID, "file", name, "error", err)
			continue
		}

		s.logger.Info("retrying receipt", "sweep_id", sweepID, "file", name, "attempt", entry.Attempts, "next_due", entry.NextDue)

		if perr := s.proc.ProcessFile(ctx, dest); perr != nil {
			s.logger.Warn("retry attempt failed", "sweep_id", sweepID, "file", name, "attempt", entry.Attempts, "error", perr)
			continue
		}

		delete(st, key)
		if err := SaveState(s.cfg.StatePath, st); err != nil {
			return err
		}
	}

	return nil
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// moveToInbox renames failed/name into the inbox, appending a
// __retryN suffix when the plain name is taken.
func (s *Sweeper) moveToInbox(name string) (string, error) {
	src := filepath.Join(s.dirs.Failed, name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	dest := filepath.Join(s.dirs.Inbox, name)
	for n := 1; ; n++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		dest = filepath.Join(s.dirs.Inbox, fmt.Sprintf("%s__retry%d%s", stem, n, ext))
	}

	if err := os.Rename(src, dest); err != nil {
		return "", err
	}
	return dest, nil
}
