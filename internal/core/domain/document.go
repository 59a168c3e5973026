package domain

import (
	"fmt"
	"time"
)

// DocumentStatus tracks a document through its processing run.
type DocumentStatus string

const (
	// StatusPending means the document is uploaded but not yet processed.
	StatusPending DocumentStatus = "pending"

	// StatusProcessing means a chunk/embed/index run is in progress.
	StatusProcessing DocumentStatus = "processing"

	// StatusReady means the document is fully indexed and retrievable.
	StatusReady DocumentStatus = "ready"

	// StatusFailed means the last processing run failed.
	// FailureReason holds a human-readable explanation.
	StatusFailed DocumentStatus = "failed"
)

// Document represents an ingested lecture document.
// It is created on successful extraction and immutable thereafter;
// deleting a document cascades to all of its chunks.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Name is the original file name, used for display.
	Name string

	// PageCount is the number of pages in the source PDF.
	PageCount int

	// Content is the cleaned full text after extraction.
	Content string

	// Status tracks the processing lifecycle.
	Status DocumentStatus

	// FailureReason explains a failed processing run.
	// Empty unless Status is StatusFailed.
	FailureReason string

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document status last changed.
	UpdatedAt time.Time
}

// Chunk is a token-bounded, semantically coherent span of document text.
// Chunks are created once per processing run and never edited in place;
// a reprocessing run replaces a document's chunks wholesale.
type Chunk struct {
	// ID is derived from the document ID and the ordinal index,
	// so re-running the chunker on identical input yields identical IDs.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Content is the text span.
	Content string

	// Ordinal is the position within the document. Ordinals form a
	// contiguous zero-based sequence per document.
	Ordinal int

	// TokenCount is the estimated token count of Content.
	TokenCount int

	// Page is the estimated originating page, interpolated from the
	// chunk's position. Best-effort metadata, not an exact mapping.
	Page int

	// Heading marks title/heading chunks.
	Heading bool
}

// ChunkID builds the stable chunk identifier for a document and ordinal.
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s-%04d", documentID, ordinal)
}
