// Package ingest implements the corpus ingestion pipeline: it discovers new
// protocol documents, splits them into overlapping chunks, records every
// chunk in a durable ledger, and upserts the new chunks into the vector
// store in batches.
//
// The pipeline is idempotent: the set of source files already present in the
// ledger is excluded from the next run, so re-running against an unchanged
// corpus performs no work.
package ingest

// Document is a raw corpus document as read from disk.
// Source is the file name and doubles as the document's identity.
type Document struct {
	Source  string
	Content string
}

// Chunk is one retrievable slice of a document.
//
// ChunkID is derived deterministically as "{protocol}_{index}", so
// re-chunking the same document produces the same ids and upserting them
// again updates rather than duplicates.
type Chunk struct {
	ChunkID      string `json:"chunk_id"`
	ProtocolName string `json:"protocol_name"`
	Source       string `json:"source"`
	Content      string `json:"content"`
	Index        int    `json:"sequence_index"`
}
