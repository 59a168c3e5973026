package driving

import (
	"context"

	"github.com/lectern-dev/lectern/internal/core/domain"
)

// RetrievalService answers hybrid retrieval queries over the corpus.
type RetrievalService interface {
	// Retrieve merges dense and lexical search results for a free-text
	// query into one ranked, deduplicated candidate list.
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) (*domain.RetrievalResult, error)

	// RetrieveSample produces a representative chunk sample for a
	// document when no topic focus is given, by fanning out fixed
	// generic probe queries and deduplicating the combined results.
	RetrieveSample(ctx context.Context, documentID string, topK int) (*domain.RetrievalResult, error)
}
