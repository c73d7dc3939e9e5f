package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/khaothykus/fieldmap-bot/internal/receipt"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dir := t.TempDir()
	s, err := NewStorage(filepath.Join(dir, "ledger_test.db"))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorage_CommitAndLookup(t *testing.T) {
	s := newTestStorage(t)

	occurred := time.Date(2025, 11, 3, 14, 40, 37, 0, time.Local)
	entry := LedgerEntry{
		Hash:        "abc123",
		Filename:    "toll_20251103.jpg",
		Category:    receipt.CategoryToll,
		OccurredAt:  occurred,
		AmountCents: 1290,
	}

	seen, err := s.SeenByHash(entry.Hash)
	if err != nil {
		t.Fatalf("SeenByHash failed: %v", err)
	}
	if seen {
		t.Error("expected hash to be unknown before commit")
	}

	if err := s.Commit(entry); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	seen, err = s.SeenByHash(entry.Hash)
	if err != nil {
		t.Fatalf("SeenByHash failed: %v", err)
	}
	if !seen {
		t.Error("expected hash to be known after commit")
	}

	// The signature lookup must ignore seconds: the stored entry has
	// seconds 37, the probe has seconds 02.
	probe := time.Date(2025, 11, 3, 14, 40, 2, 0, time.Local)
	seen, err = s.SeenBySignature(receipt.CategoryToll, probe, 1290)
	if err != nil {
		t.Fatalf("SeenBySignature failed: %v", err)
	}
	if !seen {
		t.Error("expected signature match at minute resolution")
	}

	// Different minute is a different event.
	other := time.Date(2025, 11, 3, 14, 41, 0, 0, time.Local)
	seen, err = s.SeenBySignature(receipt.CategoryToll, other, 1290)
	if err != nil {
		t.Fatalf("SeenBySignature failed: %v", err)
	}
	if seen {
		t.Error("expected no signature match for a different minute")
	}
}

func TestStorage_CommitIsIdempotent(t *testing.T) {
	s := newTestStorage(t)

	occurred := time.Date(2025, 11, 3, 14, 40, 0, 0, time.Local)
	entry := LedgerEntry{
		Hash:        "samehash",
		Filename:    "scan.jpg",
		Category:    receipt.CategoryParking,
		OccurredAt:  occurred,
		AmountCents: 90,
	}

	if err := s.Commit(entry); err != nil {
		t.Fatalf("first commit failed: %v", err)
	}

	entry.Filename = "scan__1.jpg"
	if err := s.Commit(entry); err != nil {
		t.Fatalf("re-commit failed: %v", err)
	}

	files, err := s.ListFiles(0)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 physical entry after re-commit, got %d", len(files))
	}
	if files[0].Filename != "scan__1.jpg" {
		t.Errorf("expected metadata updated on re-commit, got filename %q", files[0].Filename)
	}

	sem, err := s.ListSemantic(0)
	if err != nil {
		t.Fatalf("ListSemantic failed: %v", err)
	}
	if len(sem) != 1 {
		t.Fatalf("expected 1 semantic entry after re-commit, got %d", len(sem))
	}
}

func TestStorage_DistinctFilesSameEvent(t *testing.T) {
	s := newTestStorage(t)

	occurred := time.Date(2025, 11, 3, 9, 15, 0, 0, time.Local)
	for _, hash := range []string{"hash-a", "hash-b"} {
		err := s.Commit(LedgerEntry{
			Hash:        hash,
			Filename:    hash + ".png",
			Category:    receipt.CategoryParking,
			OccurredAt:  occurred,
			AmountCents: 500,
		})
		if err != nil {
			t.Fatalf("commit %s failed: %v", hash, err)
		}
	}

	files, _ := s.ListFiles(0)
	if len(files) != 2 {
		t.Errorf("expected 2 physical entries, got %d", len(files))
	}

	sem, _ := s.ListSemantic(0)
	if len(sem) != 1 {
		t.Errorf("expected 1 semantic entry for the same event, got %d", len(sem))
	}
}

func TestStorage_FindAndDelete(t *testing.T) {
	s := newTestStorage(t)

	occurred := time.Date(2025, 10, 20, 8, 0, 0, 0, time.Local)
	_ = s.Commit(LedgerEntry{
		Hash: "findme", Filename: "comprovante_estapar.jpg",
		Category: receipt.CategoryParking, OccurredAt: occurred, AmountCents: 350,
	})

	found, err := s.FindFiles("estapar")
	if err != nil {
		t.Fatalf("FindFiles failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 match, got %d", len(found))
	}

	n, err := s.DeleteFiles("findme")
	if err != nil {
		t.Fatalf("DeleteFiles failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted row, got %d", n)
	}

	seen, _ := s.SeenByHash("findme")
	if seen {
		t.Error("expected hash gone after delete")
	}
}

func TestStorage_Stats(t *testing.T) {
	s := newTestStorage(t)

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.FileCount != 0 || stats.SemanticCount != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}

	_ = s.Commit(LedgerEntry{
		Hash: "h1", Filename: "f.jpg", Category: receipt.CategoryToll,
		OccurredAt: time.Now(), AmountCents: 1000,
	})

	stats, err = s.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.FileCount != 1 || stats.SemanticCount != 1 {
		t.Errorf("expected counts 1/1, got %d/%d", stats.FileCount, stats.SemanticCount)
	}
}

func TestStorage_ReopenKeepsEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.db")

	s, err := NewStorage(path)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	_ = s.Commit(LedgerEntry{
		Hash: "durable", Filename: "f.jpg", Category: receipt.CategoryToll,
		OccurredAt: time.Now(), AmountCents: 700,
	})
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	s2, err := NewStorage(path)
	if err != nil {
		t.Fatalf("failed to reopen storage: %v", err)
	}
	defer s2.Close()

	seen, err := s2.SeenByHash("durable")
	if err != nil {
		t.Fatalf("SeenByHash after reopen failed: %v", err)
	}
	if !seen {
		t.Error("expected entry to survive reopen")
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected database file on disk: %v", err)
	}
}
