// Package static provides a deterministic in-process embedder. Vectors
// are derived from token hashes, so identical text always maps to the
// same unit vector and texts sharing vocabulary land near each other.
// It needs no network and is meant for tests and offline smoke runs.
package static

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/lectern-dev/lectern/internal/core/ports/driven"
	"github.com/lectern-dev/lectern/internal/logger"
)

// DefaultDimensions keeps test vectors small.
const DefaultDimensions = 64

// Ensure Embedder implements the interface.
var _ driven.Embedder = (*Embedder)(nil)

// Embedder maps text to deterministic unit vectors.
type Embedder struct {
	dimensions int
}

// NewEmbedder creates a static embedder with the given vector size.
// A non-positive size selects the default.
func NewEmbedder(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	logger.Warn("Using the static hash embedder: vectors are deterministic, not semantic")
	return &Embedder{dimensions: dimensions}
}

// Embed generates the deterministic vector for one text.
func (e *Embedder) Embed(_ context.Context, text string, variant driven.EmbeddingVariant) ([]float32, error) {
	vec := make([]float64, e.dimensions)

	// Bag-of-hashed-tokens: each token bumps one dimension, so shared
	// vocabulary yields cosine similarity. The variant is ignored for
	// non-empty text on purpose: query and passage vectors of the same
	// words must coincide for retrieval to work offline. It only seeds
	// the fallback vector for empty input.
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum64()%uint64(e.dimensions)]++
	}
	if len(tokens) == 0 {
		h := fnv.New64a()
		_, _ = h.Write([]byte(string(variant)))
		vec[h.Sum64()%uint64(e.dimensions)] = 1
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dimensions)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// EmbedBatch generates one vector per text, order-preserving.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, variant driven.EmbeddingVariant) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text, variant)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// ModelName identifies the embedder in stored metadata.
func (e *Embedder) ModelName() string {
	return "static-hash"
}
