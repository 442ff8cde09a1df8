// Package index maintains the embedding index over all ingested chunks and
// answers similarity searches. Two backends exist: an in-memory index that
// lives for the process lifetime, and a Chroma-backed index for hosts that
// want persistence across restarts.
package index

import (
	"context"
	"fmt"

	"github.com/mantravadi/granthalaya/corpus"
)

// Embedder is the embedding capability: fixed-length vectors for texts, one
// vector per input, same order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is the vector index contract shared by all backends.
type Index interface {
	// Initialize is idempotent; calling it on a live index is a no-op.
	Initialize(ctx context.Context) error
	// AddDocuments embeds and appends chunks in input order, returning how
	// many were inserted. On failure the returned EmbeddingError reports the
	// inserted count; those entries remain in the index.
	AddDocuments(ctx context.Context, chunks []corpus.Chunk) (int, error)
	// Search returns up to k chunks ranked by descending similarity. An
	// empty or uninitialized index yields an empty result, not an error.
	Search(ctx context.Context, query string, k int) ([]corpus.SearchResult, error)
	// RemoveRecord deletes every chunk ingested under the given record id,
	// returning how many were removed.
	RemoveRecord(ctx context.Context, recordID string) (int, error)
}

// EmbeddingError reports an embedding or indexing provider failure. Inserted
// counts the chunks that made it into the index before the failure; they are
// not rolled back.
type EmbeddingError struct {
	Inserted int
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed after %d inserted chunks: %s", e.Inserted, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
