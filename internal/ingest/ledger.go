package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Paramfpv/lev/internal/log"
)

// Ledger is the durable, append-only record of every chunk ever produced
// and indexed. The set of distinct sources in the ledger defines which
// documents the loader may skip.
//
// The on-disk format is a single human-readable JSON array. Persisting
// always writes a fresh file and renames it over the old one, so a failed
// write never corrupts the previously committed record.
type Ledger struct {
	path   string
	logger log.Logger
}

// NewLedger creates a Ledger backed by the given file path.
func NewLedger(path string, logger log.Logger) *Ledger {
	return &Ledger{path: path, logger: logger}
}

// Path returns the ledger file path.
func (l *Ledger) Path() string { return l.path }

// Load reads all recorded chunks. A missing ledger file is the bootstrap
// case and returns an empty slice, not an error.
func (l *Ledger) Load() ([]Chunk, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading ledger %s: %w", l.path, err)
	}

	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parsing ledger %s: %w", l.path, err)
	}
	return chunks, nil
}

// ProcessedSources derives the set of source file names present in the
// given chunks.
func ProcessedSources(chunks []Chunk) map[string]struct{} {
	sources := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		sources[c.Source] = struct{}{}
	}
	return sources
}

// Append atomically replaces the durable record with existing followed by
// fresh. Existing entries are never removed or reordered.
func (l *Ledger) Append(existing, fresh []Chunk) error {
	merged := make([]Chunk, 0, len(existing)+len(fresh))
	merged = append(merged, existing...)
	merged = append(merged, fresh...)
	return l.Persist(merged)
}

// Persist writes the full chunk record. Used directly only by forced
// reprocessing, which replaces entries for re-chunked sources; normal runs
// go through Append.
func (l *Ledger) Persist(chunks []Chunk) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}

	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	// Write-new-then-swap: the previous ledger stays intact until the
	// rename commits the replacement.
	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("creating temporary ledger file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing ledger file: %w", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing ledger: %w", err)
	}

	l.logger.Info("ledger persisted", "path", l.path, "chunks", len(chunks))
	return nil
}
