package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/config"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/storage"
	"github.com/khaothykus/fieldmap-bot/internal/receipt"
	"github.com/khaothykus/fieldmap-bot/internal/retry"
)

func newTestServer(t *testing.T) (*Server, *storage.MockRepository, string) {
	t.Helper()
	repo := storage.NewMockRepository()
	statePath := filepath.Join(t.TempDir(), "retry_state.json")
	s := NewServer(config.APIConfig{Port: 0}, statePath, repo, nil)
	return s, repo, statePath
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLedgerEndpoints(t *testing.T) {
	s, repo, _ := newTestServer(t)
	require.NoError(t, repo.Commit(storage.LedgerEntry{
		Hash:        "abc123",
		Filename:    "r.jpg",
		Category:    receipt.CategoryToll,
		OccurredAt:  time.Date(2025, 11, 3, 14, 40, 0, 0, time.UTC),
		AmountCents: 1234,
	}))

	w := get(t, s, "/api/ledger/files")
	require.Equal(t, http.StatusOK, w.Code)
	var files struct {
		Files []storage.FileRecord `json:"files"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &files))
	require.Len(t, files.Files, 1)
	assert.Equal(t, "r.jpg", files.Files[0].Filename)

	w = get(t, s, "/api/ledger/semantic")
	require.Equal(t, http.StatusOK, w.Code)

	w = get(t, s, "/api/ledger/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var stats storage.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.FileCount)
}

func TestRetryStateEndpoint(t *testing.T) {
	s, _, statePath := newTestServer(t)
	require.NoError(t, retry.SaveState(statePath, retry.State{
		"r.jpg": retry.Entry{Attempts: 2, NextDue: time.Now().Add(5 * time.Minute)},
	}))

	w := get(t, s, "/api/retry/state")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Entries map[string]retry.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Contains(t, body.Entries, "r.jpg")
	assert.Equal(t, 2, body.Entries["r.jpg"].Attempts)
}

func TestRetryStateEndpoint_NoFile(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := get(t, s, "/api/retry/state")
	assert.Equal(t, http.StatusOK, w.Code)
}
