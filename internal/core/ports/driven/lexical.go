package driven

import "context"

// LexicalHit is a single sparse retrieval result.
type LexicalHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the non-negative BM25 relevance score.
	Score float64
}

// LexicalIndex provides term-frequency (BM25) retrieval over tokenized
// chunk text. The index covers the whole corpus and is partitioned
// logically by document ID.
type LexicalIndex interface {
	// Add tokenizes and indexes chunks. Postings for a chunk are built
	// once and never mutated; reprocessing a document replaces them.
	Add(ctx context.Context, chunks []IndexableChunk) error

	// RemoveDocument drops all postings belonging to a document.
	RemoveDocument(ctx context.Context, documentID string) error

	// Search ranks chunks against the query. Zero-scored chunks are
	// excluded. Searching an index that has never been built or loaded
	// fails fast with ErrIndexNotBuilt.
	Search(ctx context.Context, query string, topK int) ([]LexicalHit, error)

	// Save serializes the index (term statistics, per-chunk token lists
	// and the chunk-id mapping) to durable storage.
	Save(path string) error

	// Load restores a serialized index, validating element counts
	// against the stored metadata before accepting it.
	Load(path string) error
}

// IndexableChunk is the slice of chunk state the lexical index needs.
type IndexableChunk struct {
	// ChunkID identifies the chunk.
	ChunkID string

	// DocumentID identifies the owning document.
	DocumentID string

	// Ordinal is the chunk's position, used for deterministic
	// tie-breaking of equal scores.
	Ordinal int

	// Content is the text to tokenize.
	Content string
}
