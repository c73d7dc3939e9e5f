package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/khaothykus/fieldmap-bot/internal/receipt"
)

// Storage provides SQLite database access for the dedup ledger.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage opens (or creates) the ledger database and applies pending
// migrations. WAL mode keeps the watcher and a concurrent retry process
// from blocking each other; busy_timeout covers the rest.
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SeenByHash reports whether a physical entry with this content hash exists
func (s *Storage) SeenByHash(hash string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM processed_files WHERE hash = ? LIMIT 1`, hash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger hash lookup: %w", err)
	}
	return true, nil
}

// SeenBySignature reports whether the minute-truncated triple exists
func (s *Storage) SeenBySignature(category receipt.Category, ts time.Time, amountCents int64) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM processed_semantic
		  WHERE category = ? AND occurred_at_min = ? AND amount_cents = ?
		  LIMIT 1`,
		string(category), SignatureTime(ts), amountCents,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger signature lookup: %w", err)
	}
	return true, nil
}

// Commit records a confirmed submission: upserts the physical entry and
// inserts-if-absent the semantic entry in a single transaction. Both
// statements are conflict-aware upserts rather than read-then-write, so
// concurrent process instances against the same store stay correct.
func (s *Storage) Commit(entry LedgerEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("ledger commit begin: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO processed_files (hash, filename, category, occurred_at, amount_cents)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			filename = excluded.filename,
			category = excluded.category,
			occurred_at = excluded.occurred_at,
			amount_cents = excluded.amount_cents`,
		entry.Hash,
		entry.Filename,
		string(entry.Category),
		entry.OccurredAt.Format(time.RFC3339),
		entry.AmountCents,
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("ledger commit physical: %w", err)
	}

	_, err = tx.Exec(`
		INSERT OR IGNORE INTO processed_semantic (category, occurred_at_min, amount_cents)
		VALUES (?, ?, ?)`,
		string(entry.Category),
		SignatureTime(entry.OccurredAt),
		entry.AmountCents,
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("ledger commit semantic: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger commit: %w", err)
	}
	return nil
}

// ListFiles returns physical entries, newest first
func (s *Storage) ListFiles(limit int) ([]FileRecord, error) {
	query := `
		SELECT hash, IFNULL(filename,''), IFNULL(category,''), IFNULL(occurred_at,''), IFNULL(amount_cents,0), created_at
		  FROM processed_files
		 ORDER BY datetime(created_at) DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryFiles(query, args...)
}

// ListSemantic returns semantic entries, newest first
func (s *Storage) ListSemantic(limit int) ([]SemanticRecord, error) {
	query := `
		SELECT category, occurred_at_min, amount_cents, created_at
		  FROM processed_semantic
		 ORDER BY datetime(created_at) DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.querySemantic(query, args...)
}

// FindFiles searches physical entries with a LIKE term across all text columns
func (s *Storage) FindFiles(term string) ([]FileRecord, error) {
	like := "%" + term + "%"
	return s.queryFiles(`
		SELECT hash, IFNULL(filename,''), IFNULL(category,''), IFNULL(occurred_at,''), IFNULL(amount_cents,0), created_at
		  FROM processed_files
		 WHERE hash LIKE ?
		    OR IFNULL(filename,'') LIKE ?
		    OR IFNULL(category,'') LIKE ?
		    OR IFNULL(occurred_at,'') LIKE ?
		 ORDER BY datetime(created_at) DESC`,
		like, like, like, like)
}

// FindSemantic searches semantic entries with a LIKE term
func (s *Storage) FindSemantic(term string) ([]SemanticRecord, error) {
	like := "%" + term + "%"
	return s.querySemantic(`
		SELECT category, occurred_at_min, amount_cents, created_at
		  FROM processed_semantic
		 WHERE category LIKE ?
		    OR occurred_at_min LIKE ?
		    OR CAST(amount_cents AS TEXT) LIKE ?
		 ORDER BY datetime(created_at) DESC`,
		like, like, like)
}

// DeleteFiles removes physical entries matching the term, returning the count
func (s *Storage) DeleteFiles(term string) (int64, error) {
	like := "%" + term + "%"
	res, err := s.db.Exec(`
		DELETE FROM processed_files
		 WHERE hash LIKE ?
		    OR IFNULL(filename,'') LIKE ?
		    OR IFNULL(category,'') LIKE ?
		    OR IFNULL(occurred_at,'') LIKE ?`,
		like, like, like, like)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteSemantic removes semantic entries matching the term, returning the count
func (s *Storage) DeleteSemantic(term string) (int64, error) {
	like := "%" + term + "%"
	res, err := s.db.Exec(`
		DELETE FROM processed_semantic
		 WHERE category LIKE ?
		    OR occurred_at_min LIKE ?
		    OR CAST(amount_cents AS TEXT) LIKE ?`,
		like, like, like)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats returns counts and last-entry times for both tables
func (s *Storage) Stats() (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRow(`SELECT COUNT(1), IFNULL(MAX(datetime(created_at)), '-') FROM processed_files`).
		Scan(&stats.FileCount, &stats.LastFileAt)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRow(`SELECT COUNT(1), IFNULL(MAX(datetime(created_at)), '-') FROM processed_semantic`).
		Scan(&stats.SemanticCount, &stats.LastSemanticAt)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// PurgeOlderThan deletes entries older than the given number of days
func (s *Storage) PurgeOlderThan(days int, which PurgeTarget) (int64, error) {
	cutoff := fmt.Sprintf("-%d days", days)
	var total int64

	if which == PurgeFiles || which == PurgeAll {
		res, err := s.db.Exec(
			`DELETE FROM processed_files WHERE datetime(created_at) < datetime('now', ?)`, cutoff)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if which == PurgeSemantic || which == PurgeAll {
		res, err := s.db.Exec(
			`DELETE FROM processed_semantic WHERE datetime(created_at) < datetime('now', ?)`, cutoff)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}

	return total, nil
}

// Vacuum compacts the database file
func (s *Storage) Vacuum() error {
	_, err := s.db.Exec(`VACUUM`)
	return err
}

func (s *Storage) queryFiles(query string, args ...any) ([]FileRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []FileRecord
	for rows.Next() {
		var r FileRecord
		if err := rows.Scan(&r.Hash, &r.Filename, &r.Category, &r.OccurredAt, &r.AmountCents, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Category = strings.ToLower(r.Category)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Storage) querySemantic(query string, args ...any) ([]SemanticRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []SemanticRecord
	for rows.Next() {
		var r SemanticRecord
		if err := rows.Scan(&r.Category, &r.OccurredAtMin, &r.AmountCents, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
