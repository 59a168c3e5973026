package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Pipeline errors.

	// ErrExtraction indicates the upstream PDF extraction failed.
	// Fatal to the document's processing run; chunking is never attempted.
	ErrExtraction = errors.New("extraction failed")

	// ErrInvalidChunkConfig indicates invalid chunker size/overlap bounds.
	// Caught eagerly, before any processing starts.
	ErrInvalidChunkConfig = errors.New("invalid chunking configuration")

	// ErrEmbeddingProvider indicates the embedding provider failed.
	// Fatal for the batch containing it; retryable at the caller's discretion.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrDimensionMismatch indicates a vector does not match the configured
	// model dimension. Hard, non-retryable: it signals model/config drift
	// and must stop processing rather than corrupt the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// Retrieval errors.

	// ErrVectorIndexUnavailable indicates the vector index is not reachable.
	// The hybrid retriever degrades to lexical-only results.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrIndexNotBuilt indicates a lexical search was issued against an
	// index that has not been built or loaded. This is a programming
	// error and fails fast rather than returning empty results.
	ErrIndexNotBuilt = errors.New("lexical index not built")

	// ErrRetrievalUnavailable indicates both retrieval legs failed.
	ErrRetrievalUnavailable = errors.New("no retrieval source available")

	// Quiz errors.

	// ErrQuizModelUnavailable indicates the generation model is not configured.
	ErrQuizModelUnavailable = errors.New("quiz model unavailable")

	// ErrInvalidQuestion indicates model output failed boundary validation.
	ErrInvalidQuestion = errors.New("invalid question payload")
)
