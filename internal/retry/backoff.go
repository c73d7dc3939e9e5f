package retry

import (
	"math/rand"
	"time"
)

const maxJitter = 20 * time.Second

// baseDelay grows in three steps and saturates: the first two retries
// come quickly, later ones back off.
func baseDelay(attempt int) time.Duration {
	switch {
	case attempt <= 1:
		return 2 * time.Minute
	case attempt == 2:
		return 5 * time.Minute
	default:
		return 10 * time.Minute
	}
}

// nextDue schedules the following attempt. Jitter spreads concurrent
// retries so a flaky portal is not hammered in lockstep.
func nextDue(now time.Time, attempt int) time.Time {
	jitter := time.Duration(rand.Int63n(int64(maxJitter) + 1))
	return now.Add(baseDelay(attempt) + jitter)
}
