// Package extract turns raw recognized receipt text into a typed,
// validated fact. It never fails: fields that cannot be recovered from
// the text are left absent, and the controller decides what to do with
// an incomplete fact. Historical behavior of defaulting a missing
// timestamp to "now" masked real extraction failures and is deliberately
// not reproduced here.
package extract

import (
	"time"

	"github.com/khaothykus/fieldmap-bot/internal/receipt"
)

// Extractor parses recognized text into facts. The clock is injectable
// because year inference and the recency window both depend on "today".
type Extractor struct {
	now func() time.Time
}

// New creates an Extractor using the wall clock.
func New() *Extractor {
	return &Extractor{now: time.Now}
}

// NewWithClock creates an Extractor with a fixed clock, for tests.
func NewWithClock(now func() time.Time) *Extractor {
	return &Extractor{now: now}
}

// Extract derives category, amount and timestamp from recognized text.
// The timestamp is validated against the recency window: anything in the
// future, or outside the current and previous calendar month, comes back
// absent. The window bounds how stale a reimbursement claim may be.
func (e *Extractor) Extract(text string) receipt.Fact {
	category := classify(text)
	amount := parseAmount(text)
	ts := e.validateRecency(e.parseTimestamp(text, category))

	fact := receipt.Fact{Category: category}
	if amount != nil {
		fact.AmountCents = *amount
	}
	fact.Timestamp = ts
	return fact
}

// validateRecency rejects future timestamps and anything outside the
// current or immediately preceding calendar month.
func (e *Extractor) validateRecency(dt *time.Time) *time.Time {
	if dt == nil {
		return nil
	}
	now := e.now()
	if dt.After(now) {
		return nil
	}

	curY, curM := now.Year(), now.Month()
	prevY, prevM := curY, curM-1
	if curM == time.January {
		prevY, prevM = curY-1, time.December
	}

	y, m := dt.Year(), dt.Month()
	if (y == curY && m == curM) || (y == prevY && m == prevM) {
		return dt
	}
	return nil
}
