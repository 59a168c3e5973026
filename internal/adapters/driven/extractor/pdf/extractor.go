// Package pdf extracts the text layer of PDF lecture material.
package pdf

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/lectern-dev/lectern/internal/core/domain"
	"github.com/lectern-dev/lectern/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

var (
	// Runs of blank lines collapse to one paragraph break.
	blankRunRe = regexp.MustCompile(`\n{3,}`)

	// Horizontal whitespace runs collapse to a single space.
	spaceRunRe = regexp.MustCompile(`[ \t\f\v]+`)

	// Words hyphenated across a line break are rejoined.
	hyphenBreakRe = regexp.MustCompile(`([A-Za-z])-\n([a-z])`)
)

// Extractor reads PDF files from the local filesystem.
type Extractor struct{}

// NewExtractor creates a PDF extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads and cleans the text layer of the file at path. Pages
// whose text layer cannot be decoded are skipped; a document with no
// extractable text at all is an error.
func (e *Extractor) Extract(ctx context.Context, path string) (*driven.Extraction, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", domain.ErrExtraction, path, err)
	}
	defer f.Close()

	pageCount := reader.NumPage()
	if pageCount < 1 {
		return nil, fmt.Errorf("%w: %s has no pages", domain.ErrExtraction, path)
	}

	var pages []string
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Scanned or damaged pages have no usable text layer.
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s has no extractable text layer", domain.ErrExtraction, path)
	}

	return &driven.Extraction{
		Text:      clean(strings.Join(pages, "\n\n")),
		PageCount: pageCount,
	}, nil
}

// clean normalises extracted text: consistent line endings, rejoined
// hyphenated words, collapsed whitespace runs.
func clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\x00", "")
	text = hyphenBreakRe.ReplaceAllString(text, "$1$2")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = blankRunRe.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
