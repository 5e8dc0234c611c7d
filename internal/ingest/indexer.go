package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/Paramfpv/lev/internal/log"
)

// DefaultBatchSize bounds the number of chunks sent to the vector store in
// a single upsert request.
const DefaultBatchSize = 100

// Index is the part of the vector store the ingestion pipeline depends on.
// The interface is defined here, by the consumer; internal/vector provides
// the Chroma-backed implementation.
type Index interface {
	// Upsert inserts or updates entries keyed by id. Re-submitting a
	// previously seen id must update, never duplicate.
	Upsert(ctx context.Context, ids, documents []string, metadatas []map[string]string) error
}

// Indexer upserts chunks into the vector store in bounded batches.
type Indexer struct {
	index     Index
	batchSize int
	logger    log.Logger
}

// NewIndexer creates an Indexer. A non-positive batchSize falls back to
// DefaultBatchSize.
func NewIndexer(index Index, batchSize int, logger log.Logger) *Indexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Indexer{index: index, batchSize: batchSize, logger: logger}
}

// Upsert sends chunks to the vector store in batches, keyed by chunk id and
// carrying the source file and protocol name as metadata.
//
// Upserting is best-effort: a failed batch is logged and the remaining
// batches are still attempted. The returned error joins all batch failures
// so the caller can distinguish "indexed" from "index degraded".
func (ix *Indexer) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	documents := make([]string, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ChunkID
		documents[i] = c.Content
		metadatas[i] = map[string]string{
			"source":        c.Source,
			"protocol_name": c.ProtocolName,
		}
	}

	var errs []error
	for start := 0; start < len(chunks); start += ix.batchSize {
		end := min(start+ix.batchSize, len(chunks))

		if err := ix.index.Upsert(ctx, ids[start:end], documents[start:end], metadatas[start:end]); err != nil {
			ix.logger.Error("batch upsert failed",
				"from", start, "to", end, "error", err)
			errs = append(errs, fmt.Errorf("batch [%d:%d]: %w", start, end, err))
			continue
		}
		ix.logger.Debug("batch upserted", "from", start, "to", end)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	ix.logger.Info("chunks indexed", "count", len(chunks))
	return nil
}
