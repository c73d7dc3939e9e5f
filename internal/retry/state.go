// Package retry reschedules failed receipts with per-file backoff.
package retry

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Entry tracks one failed file's retry progress. NextDue is when the
// file becomes eligible again; zero means immediately.
type Entry struct {
	Attempts int       `json:"attempts"`
	NextDue  time.Time `json:"next_due"`
}

// State maps failed filenames (base names, not paths) to their entries.
type State map[string]Entry

// LoadState reads the persisted schedule. A missing or unreadable file
// yields an empty state; a half-written file from a crash must never
// be trusted.
func LoadState(path string) State {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil || st == nil {
		return State{}
	}
	return st
}

// SaveState writes the schedule atomically via tmp file and rename.
func SaveState(path string, st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode retry state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write retry state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace retry state: %w", err)
	}
	return nil
}

// Prune drops entries whose file is no longer present in the failed
// directory.
func (st State) Prune(present map[string]bool) {
	for name := range st {
		if !present[name] {
			delete(st, name)
		}
	}
}
