package driven

import "context"

// Extraction is the upstream collaborator's output: cleaned text plus
// the source page count.
type Extraction struct {
	// Text is the cleaned full text.
	Text string

	// PageCount is the number of pages in the source file.
	PageCount int
}

// Extractor turns a PDF file into cleaned text. Any failure is wrapped
// as domain.ErrExtraction and short-circuits the processing run.
type Extractor interface {
	// Extract reads and cleans the text layer of the file at path.
	Extract(ctx context.Context, path string) (*Extraction, error)
}
