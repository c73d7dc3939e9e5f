// Package portal is the submission port: the contract with the
// external expense portal and its browser-automation driver.
package portal

import (
	"context"
	"time"

	"github.com/khaothykus/fieldmap-bot/internal/match"
	"github.com/khaothykus/fieldmap-bot/internal/receipt"
)

// Client is everything the pipeline needs from the portal.
//
// SubmitExpense returns true only after the portal's own expense list
// shows a new row with the submitted category and amount. An upload
// that cannot be seen back in the grid counts as a failure, not a
// success.
type Client interface {
	Authenticate(ctx context.Context) error

	// FetchIntervals returns the movement rows for the month that
	// contains the given time, ordered as the portal lists them.
	FetchIntervals(ctx context.Context, month time.Time) ([]match.Interval, error)

	// OpenRecord navigates to the expense form of a matched row.
	OpenRecord(ctx context.Context, handle string) error

	SubmitExpense(ctx context.Context, category receipt.Category, amountCents int64, filePath string) (bool, error)

	Close() error
}
