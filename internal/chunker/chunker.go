// Package chunker splits cleaned document text into paragraph-aware,
// token-bounded chunks with sentence-level overlap.
package chunker

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/lectern-dev/lectern/internal/core/domain"
)

// Default size bounds in estimated tokens.
const (
	DefaultMinTokens = 100
	DefaultMaxTokens = 500
	DefaultOverlap   = 50
)

// maxHeadingLineLen bounds how long a line may be and still count as a
// heading. Ambiguous candidates are treated as continuations to avoid
// over-fragmentation.
const maxHeadingLineLen = 80

var (
	paragraphSplitRe = regexp.MustCompile(`\n\s*\n`)
	sentenceEndRe    = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

	markdownHeadingRe = regexp.MustCompile(`^#{1,6}\s+\S`)
	labelHeadingRe    = regexp.MustCompile(`^[A-Z][A-Za-z0-9 ]{0,40}:(\s|$)`)
	numberedHeadingRe = regexp.MustCompile(`^\d+(\.\d+)*\.\s+[A-Z]`)
)

// Config bounds chunk sizes and the overlap budget.
type Config struct {
	// MinTokens is the lower size bound. Chunks below it are merged
	// into their predecessor when the merge stays within MaxTokens.
	MinTokens int

	// MaxTokens is the upper size bound. Oversized logical chunks are
	// split at sentence boundaries.
	MaxTokens int

	// Overlap is the token budget for the overlap window between
	// adjacent split chunks, approximated as the last Overlap/10
	// sentences (minimum one).
	Overlap int
}

// DefaultConfig returns the standard chunking configuration.
func DefaultConfig() Config {
	return Config{
		MinTokens: DefaultMinTokens,
		MaxTokens: DefaultMaxTokens,
		Overlap:   DefaultOverlap,
	}
}

// Validate rejects impossible size bounds eagerly, before any
// processing starts.
func (c Config) Validate() error {
	if c.MinTokens < 0 || c.MaxTokens <= 0 {
		return fmt.Errorf("%w: bounds must be positive (min=%d, max=%d)",
			domain.ErrInvalidChunkConfig, c.MinTokens, c.MaxTokens)
	}
	if c.MinTokens > c.MaxTokens {
		return fmt.Errorf("%w: minTokens %d exceeds maxTokens %d",
			domain.ErrInvalidChunkConfig, c.MinTokens, c.MaxTokens)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: negative overlap %d", domain.ErrInvalidChunkConfig, c.Overlap)
	}
	return nil
}

// overlapSentences derives the overlap window size in sentences.
func (c Config) overlapSentences() int {
	n := c.Overlap / 10
	if n < 1 {
		n = 1
	}
	return n
}

// section is a logical chunk assembled from paragraphs before
// size rebalancing.
type section struct {
	text    string
	heading bool
}

// Chunk splits cleaned text into an ordered sequence of chunks for the
// given document. Empty input yields an empty sequence, not an error.
// The output is deterministic for identical input and configuration.
func Chunk(documentID, text string, pageCount int, cfg Config) ([]domain.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return []domain.Chunk{}, nil
	}
	if pageCount < 1 {
		pageCount = 1
	}

	sections := assembleSections(text, cfg)

	// Rebalance against the token budget: split oversized sections at
	// sentence boundaries, merge undersized ones into their predecessor.
	var spans []section
	for _, sec := range sections {
		est := EstimateTokens(sec.text)

		switch {
		case est > cfg.MaxTokens:
			for j, part := range splitBySentence(sec.text, cfg) {
				spans = append(spans, section{text: part, heading: sec.heading && j == 0})
			}

		case est < cfg.MinTokens && len(spans) > 0:
			prev := &spans[len(spans)-1]
			merged := prev.text + "\n\n" + sec.text
			if EstimateTokens(merged) <= cfg.MaxTokens {
				prev.text = merged
			} else {
				spans = append(spans, sec)
			}

		default:
			spans = append(spans, sec)
		}
	}

	totalTokens := EstimateTokens(text)
	tokensPerPage := float64(totalTokens) / float64(pageCount)

	chunks := make([]domain.Chunk, 0, len(spans))
	for i, sp := range spans {
		tokens := EstimateTokens(sp.text)
		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID(documentID, i),
			DocumentID: documentID,
			Content:    sp.text,
			Ordinal:    i,
			TokenCount: tokens,
			Page:       estimatePage(i, tokens, tokensPerPage, pageCount),
			Heading:    sp.heading,
		})
	}
	return chunks, nil
}

// assembleSections groups blank-line-separated paragraphs into logical
// chunks. A heading-like paragraph starts a new section; other
// paragraphs continue the section being built unless appending would
// push it past the token budget.
func assembleSections(text string, cfg Config) []section {
	paragraphs := paragraphSplitRe.Split(text, -1)

	var sections []section
	var current *section
	currentTokens := 0

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		tokens := EstimateTokens(p)
		if current == nil || isHeading(p) || currentTokens+tokens > cfg.MaxTokens {
			sections = append(sections, section{text: p, heading: isHeading(p)})
			current = &sections[len(sections)-1]
			currentTokens = tokens
			continue
		}
		current.text += "\n\n" + p
		currentTokens += tokens
	}
	return sections
}

// isHeading reports whether a paragraph begins with a heading-like
// pattern. Ambiguous cases (long first lines) favour continuation over
// a new section, so fewer splits.
func isHeading(paragraph string) bool {
	first := paragraph
	if idx := strings.IndexByte(first, '\n'); idx >= 0 {
		first = first[:idx]
	}
	first = strings.TrimSpace(first)

	if markdownHeadingRe.MatchString(first) {
		return true
	}
	if len(first) > maxHeadingLineLen {
		return false
	}
	return labelHeadingRe.MatchString(first) || numberedHeadingRe.MatchString(first)
}

// splitBySentence breaks an oversized span into token-bounded parts,
// re-prepending a trailing-sentence overlap window at each boundary.
// The budget counts new sentences only; the overlap window is carried
// context on top of it, bounded by the configured sentence count.
func splitBySentence(text string, cfg Config) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	overlapN := cfg.overlapSentences()

	var parts []string
	var span []string // overlap seed + new sentences
	newTokens := 0    // estimate over sentences beyond the seed
	newCount := 0

	flush := func() {
		parts = append(parts, strings.TrimSpace(strings.Join(span, " ")))

		// Seed the next span with the trailing overlap window.
		n := overlapN
		if n > len(span) {
			n = len(span)
		}
		tail := make([]string, n)
		copy(tail, span[len(span)-n:])
		span = tail
		newTokens = 0
		newCount = 0
	}

	for _, s := range sentences {
		st := EstimateTokens(s)
		// At least one new sentence per part guarantees forward
		// progress even when a single sentence exceeds the budget.
		if newCount > 0 && newTokens+st > cfg.MaxTokens {
			flush()
		}
		span = append(span, s)
		newTokens += st
		newCount++
	}
	if newCount > 0 {
		parts = append(parts, strings.TrimSpace(strings.Join(span, " ")))
	}
	return parts
}

// splitSentences splits text at `.!?` runs followed by whitespace.
// Trailing text without terminal punctuation forms the final sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	last := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[last:loc[1]])
		if s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// estimatePage interpolates a chunk's page from its position by
// proportional token distribution. Best-effort metadata only.
func estimatePage(ordinal, tokens int, tokensPerPage float64, pageCount int) int {
	if tokensPerPage <= 0 {
		return 1
	}
	page := int(math.Ceil(float64(ordinal*tokens) / tokensPerPage))
	if page < 1 {
		page = 1
	}
	if page > pageCount {
		page = pageCount
	}
	return page
}
