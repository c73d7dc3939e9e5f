package watch

import (
	"context"
	"errors"
	"os"
	"time"
)

// ErrNotStable means the file kept changing, or vanished, while being
// watched. The caller should leave it for a later pass.
var ErrNotStable = errors.New("file is still being written")

// waitStable polls size and mtime until they hold steady across the
// given number of consecutive checks. Sync tools drop files into the
// inbox incrementally; processing a half-written image wastes a
// submission attempt.
func waitStable(ctx context.Context, path string, checks int, delay time.Duration) error {
	if checks < 1 {
		checks = 1
	}

	var lastSize int64 = -1
	var lastMod time.Time
	steady := 0

	// checks observations after the first baseline, bounded so a file
	// that never settles cannot stall the whole pass.
	maxPolls := checks*4 + 1

	for i := 0; i < maxPolls; i++ {
		info, err := os.Stat(path)
		if err != nil {
			return ErrNotStable
		}

		if info.Size() == lastSize && info.ModTime().Equal(lastMod) {
			steady++
			if steady >= checks {
				return nil
			}
		} else {
			steady = 0
			lastSize = info.Size()
			lastMod = info.ModTime()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return ErrNotStable
}
