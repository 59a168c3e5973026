package driven

import (
	"context"

	"github.com/lectern-dev/lectern/internal/core/domain"
)

// VectorFilter restricts a similarity search by chunk metadata.
// Filters are applied before the score threshold.
type VectorFilter struct {
	// DocumentID restricts results to one document. Empty means no filter.
	DocumentID string

	// Page restricts results to one page. Zero means no filter.
	Page int
}

// EmbeddedChunk pairs a chunk with its passage vector for upsert.
type EmbeddedChunk struct {
	// Chunk is the chunk being indexed.
	Chunk domain.Chunk

	// Vector is the passage embedding. Its length must match the
	// index's configured dimension; a mismatch is a hard error.
	Vector []float32
}

// VectorHit is a single similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the cosine similarity in [-1, 1].
	Score float64

	// DocumentID and Page echo the stored payload metadata.
	DocumentID string
	Page       int
	Ordinal    int
}

// VectorIndex stores chunk vectors with payload metadata and supports
// filtered cosine similarity search. The collection is created lazily on
// first use with a fixed dimension; it is never silently recreated or
// resized.
type VectorIndex interface {
	// Upsert stores a document's embedded chunks. Writes are batched
	// internally and each batch completes before the call returns, so a
	// search issued immediately afterwards sees the new data.
	Upsert(ctx context.Context, documentID string, chunks []EmbeddedChunk) error

	// Search finds the topK nearest chunks to the query vector.
	// Results scoring below scoreThreshold are excluded; a threshold of
	// zero ranks everything. A threshold above the cosine range yields
	// an empty result set, not an error.
	Search(ctx context.Context, query []float32, filter VectorFilter, topK int, scoreThreshold float64) ([]VectorHit, error)

	// DeleteByDocument removes all of a document's chunks as one
	// filter-based operation.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Close releases resources.
	Close() error
}
