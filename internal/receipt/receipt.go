// Package receipt holds the domain types shared across the pipeline:
// the expense category, the extracted fact, and the content hash that
// identifies a physical receipt file.
package receipt

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"time"
)

// Category is the expense category recovered from a receipt.
type Category string

const (
	CategoryToll    Category = "toll"
	CategoryParking Category = "parking"
	CategoryUnknown Category = "unknown"
)

// Normalize lowercases and trims a category value read from storage.
func Normalize(c string) Category {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case string(CategoryToll):
		return CategoryToll
	case string(CategoryParking):
		return CategoryParking
	default:
		return CategoryUnknown
	}
}

// Fact is the structured record extracted from recognized receipt text.
// Absence is explicit: a nil Timestamp or zero AmountCents means the
// extractor could not recover that field, never a fabricated default.
type Fact struct {
	Category    Category
	Timestamp   *time.Time
	AmountCents int64
}

// Usable reports whether the fact is complete enough to submit, and if
// not, why.
func (f Fact) Usable() (bool, string) {
	if f.Category != CategoryToll && f.Category != CategoryParking {
		return false, "category unknown"
	}
	if f.Timestamp == nil {
		return false, "timestamp missing or outside recency window"
	}
	if f.AmountCents <= 0 {
		return false, "amount missing or non-positive"
	}
	return true, ""
}

// FileHash returns the hex SHA-256 of a file's content.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
