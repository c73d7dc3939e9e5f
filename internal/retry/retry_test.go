package retry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/config"
)

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retry_state.json")

	due := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	st := State{"r.jpg": Entry{Attempts: 2, NextDue: due}}
	require.NoError(t, SaveState(path, st))

	got := LoadState(path)
	require.Contains(t, got, "r.jpg")
	assert.Equal(t, 2, got["r.jpg"].Attempts)
	assert.True(t, due.Equal(got["r.jpg"].NextDue))
}

func TestLoadState_MissingOrCorrupt(t *testing.T) {
	dir := t.TempDir()

	assert.Empty(t, LoadState(filepath.Join(dir, "nope.json")))

	corrupt := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(corrupt, []byte(`{"r.jpg": {"atte`), 0o644))
	assert.Empty(t, LoadState(corrupt))
}

func TestStatePrune(t *testing.T) {
	st := State{
		"keep.jpg": Entry{Attempts: 1},
		"gone.jpg": Entry{Attempts: 3},
	}
	st.Prune(map[string]bool{"keep.jpg": true})

	assert.Contains(t, st, "keep.jpg")
	assert.NotContains(t, st, "gone.jpg")
}

func TestBaseDelaySteps(t *testing.T) {
	assert.Equal(t, 2*time.Minute, baseDelay(1))
	assert.Equal(t, 5*time.Minute, baseDelay(2))
	assert.Equal(t, 10*time.Minute, baseDelay(3))
	assert.Equal(t, 10*time.Minute, baseDelay(50))
}

func TestNextDueWithinJitterBound(t *testing.T) {
	now := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		due := nextDue(now, 1)
		assert.False(t, due.Before(now.Add(2*time.Minute)))
		assert.False(t, due.After(now.Add(2*time.Minute+maxJitter)))
	}
}

func TestScheduleKey(t *testing.T) {
	assert.Equal(t, "r.jpg", scheduleKey("r.jpg"))
	assert.Equal(t, "r.jpg", scheduleKey("r__retry1.jpg"))
	assert.Equal(t, "r.jpg", scheduleKey("r__2.jpg"))
	assert.Equal(t, "r.jpg", scheduleKey("r__retry1__2.jpg"))
	assert.Equal(t, "r__x.jpg", scheduleKey("r__x.jpg"))
}

func TestLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.lock")

	l1, ok, err := Acquire(path)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = Acquire(path)
	require.NoError(t, err)
	assert.False(t, ok)

	l1.Release()

	l2, ok, err := Acquire(path)
	require.NoError(t, err)
	assert.True(t, ok)
	l2.Release()
}

// recordingProcessor simulates the pipeline: succeed removes the file
// as a move to processed would, fail returns it to the failed dir.
type recordingProcessor struct {
	failedDir string
	fail      bool
	calls     []string
}

func (p *recordingProcessor) ProcessFile(_ context.Context, path string) error {
	p.calls = append(p.calls, filepath.Base(path))
	if p.fail {
		if err := os.Rename(path, filepath.Join(p.failedDir, filepath.Base(path))); err != nil {
			return err
		}
		return errors.New("submission not confirmed")
	}
	return os.Remove(path)
}

func newTestSweeper(t *testing.T, proc Processor) (*Sweeper, config.DirsConfig, config.RetryConfig) {
	t.Helper()
	root := t.TempDir()
	dirs := config.DirsConfig{
		Inbox:     filepath.Join(root, "receipts"),
		Processed: filepath.Join(root, "processed"),
		Failed:    filepath.Join(root, "failed"),
	}
	cfg := config.RetryConfig{
		StatePath: filepath.Join(root, "retry_state.json"),
		LockPath:  filepath.Join(root, "sweep.lock"),
	}
	require.NoError(t, os.MkdirAll(dirs.Failed, 0o755))
	return NewSweeper(cfg, dirs, proc, nil), dirs, cfg
}

func TestSweep_SuccessClearsEntry(t *testing.T) {
	proc := &recordingProcessor{}
	s, dirs, cfg := newTestSweeper(t, proc)
	proc.failedDir = dirs.Failed

	require.NoError(t, os.WriteFile(filepath.Join(dirs.Failed, "r.jpg"), []byte("img"), 0o644))

	require.NoError(t, s.Sweep(context.Background()))

	assert.Equal(t, []string{"r.jpg"}, proc.calls)
	assert.Empty(t, LoadState(cfg.StatePath))

	left, err := os.ReadDir(dirs.Failed)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestSweep_FailureSchedulesBackoff(t *testing.T) {
	proc := &recordingProcessor{fail: true}
	s, dirs, cfg := newTestSweeper(t, proc)
	proc.failedDir = dirs.Failed

	require.NoError(t, os.WriteFile(filepath.Join(dirs.Failed, "r.jpg"), []byte("img"), 0o644))

	start := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }

	require.NoError(t, s.Sweep(context.Background()))
	require.Len(t, proc.calls, 1)

	st := LoadState(cfg.StatePath)
	require.Contains(t, st, "r.jpg")
	assert.Equal(t, 1, st["r.jpg"].Attempts)
	assert.True(t, st["r.jpg"].NextDue.After(start))

	// Before next_due the file is skipped, no second attempt.
	require.NoError(t, s.Sweep(context.Background()))
	assert.Len(t, proc.calls, 1)

	// Past next_due it runs again.
	s.now = func() time.Time { return start.Add(3*time.Minute + maxJitter) }
	require.NoError(t, s.Sweep(context.Background()))
	assert.Len(t, proc.calls, 2)
	assert.Equal(t, 2, LoadState(cfg.StatePath)["r.jpg"].Attempts)
}

func TestSweep_PrunesOrphanEntries(t *testing.T) {
	proc := &recordingProcessor{}
	s, dirs, cfg := newTestSweeper(t, proc)
	proc.failedDir = dirs.Failed

	require.NoError(t, SaveState(cfg.StatePath, State{"ghost.jpg": Entry{Attempts: 4}}))
	require.NoError(t, os.WriteFile(filepath.Join(dirs.Failed, "real.jpg"), []byte("img"), 0o644))

	require.NoError(t, s.Sweep(context.Background()))

	assert.NotContains(t, LoadState(cfg.StatePath), "ghost.jpg")
}

func TestSweep_EmptyFailedDirResetsState(t *testing.T) {
	proc := &recordingProcessor{}
	s, _, cfg := newTestSweeper(t, proc)

	require.NoError(t, SaveState(cfg.StatePath, State{"ghost.jpg": Entry{Attempts: 1}}))
	require.NoError(t, s.Sweep(context.Background()))

	assert.Empty(t, LoadState(cfg.StatePath))
	assert.Empty(t, proc.calls)
}

func TestSweep_MaxAttemptsParksFile(t *testing.T) {
	proc := &recordingProcessor{fail: true}
	s, dirs, cfg := newTestSweeper(t, proc)
	proc.failedDir = dirs.Failed
	s.cfg.MaxAttempts = 2

	require.NoError(t, os.WriteFile(filepath.Join(dirs.Failed, "r.jpg"), []byte("img"), 0o644))
	require.NoError(t, SaveState(cfg.StatePath, State{"r.jpg": Entry{Attempts: 2}}))

	require.NoError(t, s.Sweep(context.Background()))

	assert.Empty(t, proc.calls)
	_, err := os.Stat(filepath.Join(dirs.Failed, "r.jpg"))
	assert.NoError(t, err)
}

func TestSweep_SkipsWhenLockHeld(t *testing.T) {
	proc := &recordingProcessor{}
	s, dirs, cfg := newTestSweeper(t, proc)
	proc.failedDir = dirs.Failed

	require.NoError(t, os.WriteFile(filepath.Join(dirs.Failed, "r.jpg"), []byte("img"), 0o644))

	held, ok, err := Acquire(cfg.LockPath)
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Release()

	require.NoError(t, s.Sweep(context.Background()))
	assert.Empty(t, proc.calls)
}

func TestSweep_RetrySuffixKeepsOneScheduleEntry(t *testing.T) {
	proc := &recordingProcessor{fail: true}
	s, dirs, cfg := newTestSweeper(t, proc)
	proc.failedDir = dirs.Failed

	require.NoError(t, os.WriteFile(filepath.Join(dirs.Failed, "r__retry1.jpg"), []byte("img"), 0o644))

	require.NoError(t, s.Sweep(context.Background()))

	st := LoadState(cfg.StatePath)
	require.Contains(t, st, "r.jpg")
	assert.Equal(t, 1, st["r.jpg"].Attempts)
}
