package driving

import (
	"context"

	"github.com/lectern-dev/lectern/internal/core/domain"
)

// IngestService runs the document preparation pipeline:
// extract, chunk, embed, index.
type IngestService interface {
	// Ingest processes one PDF file end to end and returns the stored
	// document. Pipeline errors are recorded against the document's
	// status; the returned error mirrors what was recorded.
	Ingest(ctx context.Context, path string) (*domain.Document, error)

	// Reprocess re-runs chunking and indexing for an existing document,
	// replacing its chunks, vectors and postings wholesale.
	Reprocess(ctx context.Context, documentID string) error

	// Delete removes a document and all derived index state.
	Delete(ctx context.Context, documentID string) error
}
