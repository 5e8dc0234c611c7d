package ingest

import (
	"context"
	"fmt"

	"github.com/gofrs/flock"

	"github.com/Paramfpv/lev/internal/log"
)

// Pipeline catches the vector index up to the corpus: it loads the ledger,
// reads only unprocessed documents, chunks them, persists the grown ledger,
// and upserts the new chunks.
//
// The ledger is persisted before indexing is attempted, so a crash between
// the two steps leaves a consistent record: re-running will not re-chunk,
// and the index can be caught up by upserting from the ledger.
type Pipeline struct {
	ledger  *Ledger
	loader  *Loader
	chunker *Chunker
	indexer *Indexer // nil when the vector store is not configured
	logger  log.Logger

	// Force ignores the processed-source set and re-chunks every document
	// on disk, replacing the ledger entries for those sources. Opt-in;
	// normal runs are strictly append-only.
	Force bool
}

// Result summarizes one pipeline run.
type Result struct {
	Documents int  // documents chunked this run
	Chunks    int  // chunks produced this run
	Indexed   bool // whether the chunks reached the vector store
}

// NewPipeline assembles a Pipeline. indexer may be nil when the vector
// store credential is missing; ingestion then still chunks and persists,
// and only the upsert step is skipped.
func NewPipeline(ledger *Ledger, loader *Loader, chunker *Chunker, indexer *Indexer, logger log.Logger) *Pipeline {
	return &Pipeline{
		ledger:  ledger,
		loader:  loader,
		chunker: chunker,
		indexer: indexer,
		logger:  logger,
	}
}

// Run executes one ingestion pass. Ledger failures are fatal; indexing
// failures are not. Running twice against an unchanged corpus does zero
// chunking and zero indexing work on the second pass.
//
// Concurrent runs are excluded with a file lock next to the ledger; a
// second runner fails fast instead of racing the append-and-persist step.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	lock := flock.New(p.ledger.Path() + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring ingestion lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another ingestion run holds the lock for %s", p.ledger.Path())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("releasing ingestion lock", "error", err)
		}
	}()

	existing, err := p.ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}

	known := ProcessedSources(existing)
	p.logger.Info("ledger loaded", "chunks", len(existing), "processed_sources", len(known))
	if p.Force {
		known = nil
	}

	docs := p.loader.Load(known)
	if len(docs) == 0 {
		p.logger.Info("corpus is up to date, nothing to ingest")
		return &Result{}, nil
	}

	var fresh []Chunk
	for _, doc := range docs {
		fresh = append(fresh, p.chunker.Chunk(doc)...)
	}
	p.logger.Info("documents chunked", "documents", len(docs), "chunks", len(fresh))

	if err := p.persist(existing, docs, fresh); err != nil {
		return nil, err
	}

	res := &Result{Documents: len(docs), Chunks: len(fresh)}

	if p.indexer == nil {
		p.logger.Warn("vector store not configured, skipping indexing")
		return res, nil
	}
	if err := p.indexer.Upsert(ctx, fresh); err != nil {
		// Degraded, not fatal: the ledger is already committed and a
		// later run of the indexer alone can catch the store up.
		p.logger.Error("indexing incomplete", "error", err)
		return res, nil
	}
	res.Indexed = true
	return res, nil
}

// persist commits the grown ledger. On a forced run, entries for re-chunked
// sources are superseded by their replacements; entries for sources no
// longer on disk are kept.
func (p *Pipeline) persist(existing []Chunk, docs []Document, fresh []Chunk) error {
	if !p.Force {
		if err := p.ledger.Append(existing, fresh); err != nil {
			return fmt.Errorf("persisting ledger: %w", err)
		}
		return nil
	}

	reprocessed := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		reprocessed[d.Source] = struct{}{}
	}
	kept := make([]Chunk, 0, len(existing))
	for _, c := range existing {
		if _, replaced := reprocessed[c.Source]; !replaced {
			kept = append(kept, c)
		}
	}
	if err := p.ledger.Append(kept, fresh); err != nil {
		return fmt.Errorf("persisting ledger: %w", err)
	}
	return nil
}
