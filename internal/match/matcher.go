// Package match attaches a receipt fact to one of the movement
// intervals reported by the portal for the receipt's month.
package match

import (
	"sort"
	"time"

	"github.com/khaothykus/fieldmap-bot/internal/receipt"
)

// Interval is one movement row from the portal grid. Handle is the
// opaque reference needed to open the row's expense form later.
type Interval struct {
	Handle string
	Start  time.Time
	End    time.Time
}

// Options tune the matching rules. TollMargin absorbs clock skew
// between the toll gate and the receipt printer. SameDayFallback
// allows a last-resort date-only match when no rule applies.
type Options struct {
	TollMargin      time.Duration
	SameDayFallback bool
}

// Match picks the interval a receipt belongs to, or reports none.
// The interval slice must cover exactly one calendar month; the
// matcher never guesses across months.
//
// Tolls happen during a movement, so the timestamp must fall inside
// an interval widened by the margin on both sides. Parking happens
// between movements, so the timestamp must fall in the gap after an
// interval's end, or after the last interval of the day.
func Match(ts time.Time, category receipt.Category, intervals []Interval, opts Options) (*Interval, bool) {
	if len(intervals) == 0 {
		return nil, false
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var hit *Interval
	switch category {
	case receipt.CategoryToll:
		hit = matchToll(ts, sorted, opts.TollMargin)
	case receipt.CategoryParking:
		hit = matchParking(ts, sorted)
	default:
		return nil, false
	}

	if hit == nil && opts.SameDayFallback {
		hit = matchSameDay(ts, sorted)
	}
	if hit == nil {
		return nil, false
	}
	return hit, true
}

// matchToll keeps every interval whose widened window contains the
// timestamp and returns the shortest one, the most specific match
// when movements overlap.
func matchToll(ts time.Time, intervals []Interval, margin time.Duration) *Interval {
	var best *Interval
	for i := range intervals {
		iv := &intervals[i]
		if ts.Before(iv.Start.Add(-margin)) || ts.After(iv.End.Add(margin)) {
			continue
		}
		if best == nil || iv.End.Sub(iv.Start) < best.End.Sub(best.Start) {
			best = iv
		}
	}
	return best
}

// matchParking attaches the timestamp to the interval it parked
// after: inside [end, next start), or anywhere past the final end.
func matchParking(ts time.Time, intervals []Interval) *Interval {
	for i := 0; i < len(intervals)-1; i++ {
		iv := &intervals[i]
		if !ts.Before(iv.End) && ts.Before(intervals[i+1].Start) {
			return iv
		}
	}
	last := &intervals[len(intervals)-1]
	if !ts.Before(last.End) {
		return last
	}
	return nil
}

// matchSameDay is the last resort: the most recent interval starting
// on the receipt's calendar day. The month guard holds even if the
// caller handed over a stale interval set.
func matchSameDay(ts time.Time, intervals []Interval) *Interval {
	y, m, d := ts.Date()
	var best *Interval
	for i := range intervals {
		iv := &intervals[i]
		iy, im, id := iv.Start.Date()
		if iy != y || im != m || id != d {
			continue
		}
		if best == nil || iv.Start.After(best.Start) {
			best = iv
		}
	}
	return best
}
