package portal

import (
	"context"
	"sync"
	"time"

	"github.com/khaothykus/fieldmap-bot/internal/match"
	"github.com/khaothykus/fieldmap-bot/internal/receipt"
)

// MockClient is an in-memory Client for tests.
type MockClient struct {
	mu sync.Mutex

	Intervals []match.Interval

	AuthErr   error
	FetchErr  error
	OpenErr   error
	SubmitErr error
	Confirmed bool

	AuthCalls   int
	OpenHandles []string
	Submissions []MockSubmission
}

type MockSubmission struct {
	Category    receipt.Category
	AmountCents int64
	File        string
}

// NewMockClient confirms every submission by default.
func NewMockClient(intervals []match.Interval) *MockClient {
	return &MockClient{Intervals: intervals, Confirmed: true}
}

func (m *MockClient) Authenticate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AuthCalls++
	return m.AuthErr
}

func (m *MockClient) FetchIntervals(context.Context, time.Time) ([]match.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return m.Intervals, nil
}

func (m *MockClient) OpenRecord(_ context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return m.OpenErr
	}
	m.OpenHandles = append(m.OpenHandles, handle)
	return nil
}

func (m *MockClient) SubmitExpense(_ context.Context, category receipt.Category, amountCents int64, filePath string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return false, m.SubmitErr
	}
	m.Submissions = append(m.Submissions, MockSubmission{Category: category, AmountCents: amountCents, File: filePath})
	return m.Confirmed, nil
}

func (m *MockClient) Close() error { return nil }

// SubmissionCount is safe to call while a pipeline is running.
func (m *MockClient) SubmissionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Submissions)
}
