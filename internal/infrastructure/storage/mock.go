package storage

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/khaothykus/fieldmap-bot/internal/receipt"
)

// MockRepository is an in-memory Repository for tests. It mirrors the
// dedup semantics of the SQLite implementation: physical entries keyed
// by hash, semantic entries keyed by the minute-truncated triple.
type MockRepository struct {
	mu       sync.Mutex
	files    map[string]LedgerEntry
	semantic map[string]struct{}

	// CommitErr, when set, is returned from Commit to simulate storage failures
	CommitErr error
}

var _ Repository = (*MockRepository)(nil)

// NewMockRepository creates an empty in-memory repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		files:    make(map[string]LedgerEntry),
		semantic: make(map[string]struct{}),
	}
}

func semanticKey(category receipt.Category, ts time.Time, amountCents int64) string {
	return fmt.Sprintf("%s|%s|%d", category, SignatureTime(ts), amountCents)
}

// SeenByHash reports whether the hash was committed
func (m *MockRepository) SeenByHash(hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[hash]
	return ok, nil
}

// SeenBySignature reports whether the semantic triple was committed
func (m *MockRepository) SeenBySignature(category receipt.Category, ts time.Time, amountCents int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.semantic[semanticKey(category, ts, amountCents)]
	return ok, nil
}

// Commit stores both entries, honoring CommitErr
func (m *MockRepository) Commit(entry LedgerEntry) error {
	if m.CommitErr != nil {
		return m.CommitErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[entry.Hash] = entry
	m.semantic[semanticKey(entry.Category, entry.OccurredAt, entry.AmountCents)] = struct{}{}
	return nil
}

// CommitCount returns the number of distinct physical entries
func (m *MockRepository) CommitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// ListFiles returns committed physical entries (unordered)
func (m *MockRepository) ListFiles(limit int) ([]FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []FileRecord
	for hash, e := range m.files {
		out = append(out, FileRecord{
			Hash:        hash,
			Filename:    e.Filename,
			Category:    string(e.Category),
			OccurredAt:  e.OccurredAt.Format(time.RFC3339),
			AmountCents: e.AmountCents,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ListSemantic returns committed semantic entries (unordered)
func (m *MockRepository) ListSemantic(limit int) ([]SemanticRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SemanticRecord
	for key := range m.semantic {
		parts := strings.SplitN(key, "|", 3)
		rec := SemanticRecord{Category: parts[0]}
		if len(parts) > 1 {
			rec.OccurredAtMin = parts[1]
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// FindFiles searches filenames and hashes
func (m *MockRepository) FindFiles(term string) ([]FileRecord, error) {
	all, _ := m.ListFiles(0)
	var out []FileRecord
	for _, r := range all {
		if strings.Contains(r.Hash, term) || strings.Contains(r.Filename, term) || strings.Contains(r.Category, term) {
			out = append(out, r)
		}
	}
	return out, nil
}

// FindSemantic searches categories and signature times
func (m *MockRepository) FindSemantic(term string) ([]SemanticRecord, error) {
	all, _ := m.ListSemantic(0)
	var out []SemanticRecord
	for _, r := range all {
		if strings.Contains(r.Category, term) || strings.Contains(r.OccurredAtMin, term) {
			out = append(out, r)
		}
	}
	return out, nil
}

// DeleteFiles removes matching physical entries
func (m *MockRepository) DeleteFiles(term string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for hash, e := range m.files {
		if strings.Contains(hash, term) || strings.Contains(e.Filename, term) {
			delete(m.files, hash)
			n++
		}
	}
	return n, nil
}

// DeleteSemantic removes matching semantic entries
func (m *MockRepository) DeleteSemantic(term string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key := range m.semantic {
		if strings.Contains(key, term) {
			delete(m.semantic, key)
			n++
		}
	}
	return n, nil
}

// Stats returns counts only; timestamps are not tracked in memory
func (m *MockRepository) Stats() (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &Stats{
		FileCount:      len(m.files),
		SemanticCount:  len(m.semantic),
		LastFileAt:     "-",
		LastSemanticAt: "-",
	}, nil
}

// PurgeOlderThan is a no-op for the in-memory mock
func (m *MockRepository) PurgeOlderThan(int, PurgeTarget) (int64, error) {
	return 0, nil
}

// Vacuum is a no-op for the in-memory mock
func (m *MockRepository) Vacuum() error { return nil }

// Close is a no-op for the in-memory mock
func (m *MockRepository) Close() error { return nil }
