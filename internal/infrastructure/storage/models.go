package storage

import (
	"time"

	"github.com/khaothykus/fieldmap-bot/internal/receipt"
)

// LedgerEntry is what the controller commits after a confirmed submission.
// One commit upserts the physical row and inserts the semantic row.
type LedgerEntry struct {
	Hash        string
	Filename    string
	Category    receipt.Category
	OccurredAt  time.Time
	AmountCents int64
}

// FileRecord is a row of the physical ledger (processed_files).
type FileRecord struct {
	Hash        string `json:"hash"`
	Filename    string `json:"filename"`
	Category    string `json:"category"`
	OccurredAt  string `json:"occurred_at"`
	AmountCents int64  `json:"amount_cents"`
	CreatedAt   string `json:"created_at"`
}

// SemanticRecord is a row of the semantic ledger (processed_semantic).
type SemanticRecord struct {
	Category      string `json:"category"`
	OccurredAtMin string `json:"occurred_at_min"`
	AmountCents   int64  `json:"amount_cents"`
	CreatedAt     string `json:"created_at"`
}

// Stats summarizes ledger contents for the maintenance CLI and the API.
type Stats struct {
	FileCount      int    `json:"file_count"`
	SemanticCount  int    `json:"semantic_count"`
	LastFileAt     string `json:"last_file_at"`
	LastSemanticAt string `json:"last_semantic_at"`
}

// PurgeTarget selects which ledger tables a purge touches.
type PurgeTarget string

const (
	PurgeFiles    PurgeTarget = "files"
	PurgeSemantic PurgeTarget = "semantic"
	PurgeAll      PurgeTarget = "all"
)

// signatureLayout is the minute-resolution timestamp format used as part
// of the semantic dedup key. OCR reliably resolves the minute but not the
// second, so second-level noise must not defeat deduplication.
const signatureLayout = "2006-01-02T15:04"

// SignatureTime renders a timestamp at minute resolution for the
// semantic ledger key.
func SignatureTime(t time.Time) string {
	return t.Format(signatureLayout)
}
