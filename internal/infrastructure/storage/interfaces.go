package storage

import (
	"time"

	"github.com/khaothykus/fieldmap-bot/internal/receipt"
)

// Repository defines the complete ledger storage interface.
// This interface allows swapping implementations and makes testing the
// ingestion controller with an in-memory ledger straightforward.
type Repository interface {
	LedgerRepository
	MaintenanceRepository
	Close() error
}

// LedgerRepository is the dedup surface used by the ingestion pipeline.
type LedgerRepository interface {
	// SeenByHash reports whether a physical entry with this content hash exists.
	SeenByHash(hash string) (bool, error)

	// SeenBySignature reports whether a semantic entry with the
	// minute-truncated (category, timestamp, amount) triple exists.
	SeenBySignature(category receipt.Category, ts time.Time, amountCents int64) (bool, error)

	// Commit upserts the physical entry and inserts-if-absent the semantic
	// entry in one transaction. Re-committing the same hash updates metadata
	// but never creates a second entry. A storage error always surfaces;
	// it must never be swallowed as success.
	Commit(entry LedgerEntry) error
}

// MaintenanceRepository backs the ledger CLI and the status API.
type MaintenanceRepository interface {
	ListFiles(limit int) ([]FileRecord, error)
	ListSemantic(limit int) ([]SemanticRecord, error)
	FindFiles(term string) ([]FileRecord, error)
	FindSemantic(term string) ([]SemanticRecord, error)
	DeleteFiles(term string) (int64, error)
	DeleteSemantic(term string) (int64, error)
	Stats() (*Stats, error)
	PurgeOlderThan(days int, which PurgeTarget) (int64, error)
	Vacuum() error
}
