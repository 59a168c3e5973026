package driven

import "context"

// EmbeddingVariant is the role marker prepended to text before encoding.
// Asymmetric embedding models (the e5 family) require distinct prefixes
// for stored passages and for queries; any substitute model must document
// its own convention, but the role-marker abstraction is retained.
type EmbeddingVariant string

const (
	// VariantPassage encodes text for storage in the vector index.
	VariantPassage EmbeddingVariant = "passage"

	// VariantQuery encodes a search query. Query vectors are ephemeral
	// and never persisted.
	VariantQuery EmbeddingVariant = "query"
)

// Embedder generates fixed-dimension vector embeddings from text.
//
// Implementations may include:
//   - OpenAI-compatible APIs (text-embedding-3-small, or a local server
//     hosting an e5-family model)
//   - A deterministic in-process embedder for tests
type Embedder interface {
	// EmbedBatch generates one vector per input text, order-preserving.
	// The variant's role marker is applied to every text before encoding.
	// A provider failure is fatal for the whole batch.
	EmbedBatch(ctx context.Context, texts []string, variant EmbeddingVariant) ([][]float32, error)

	// Embed generates a single vector. Equivalent to a one-element batch.
	Embed(ctx context.Context, text string, variant EmbeddingVariant) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536).
	// This must match the VectorIndex configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}
