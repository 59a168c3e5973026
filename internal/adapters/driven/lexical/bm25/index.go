// Package bm25 provides an in-process sparse (lexical) index over
// chunk text using Okapi BM25 scoring. The whole corpus lives in one
// index, partitioned logically by document ID, and can be persisted
// to a JSON snapshot between runs.
package bm25

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/lectern-dev/lectern/internal/core/domain"
	"github.com/lectern-dev/lectern/internal/core/ports/driven"
)

// Okapi BM25 parameters: term-frequency saturation and document-length
// normalisation.
const (
	defaultK1 = 1.5
	defaultB  = 0.75
)

// Ensure Index implements the interface.
var _ driven.LexicalIndex = (*Index)(nil)

// entry holds the postings for one chunk. Token lists are built once
// at Add time and never mutated afterwards.
type entry struct {
	ChunkID    string   `json:"chunk_id"`
	DocumentID string   `json:"document_id"`
	Ordinal    int      `json:"ordinal"`
	Tokens     []string `json:"tokens"`

	termFreq map[string]int
}

// snapshot is the on-disk representation of the index.
type snapshot struct {
	Version     int      `json:"version"`
	TotalChunks int      `json:"total_chunks"`
	Chunks      []*entry `json:"chunks"`
}

const snapshotVersion = 1

// Index is an in-memory BM25 index over chunk tokens.
type Index struct {
	mu sync.RWMutex

	k1 float64
	b  float64

	entries []*entry
	byID    map[string]int // chunk id -> position in entries
	docFreq map[string]int // term -> number of chunks containing it
	totalLen int

	built bool
}

// NewIndex creates an empty BM25 index with standard parameters.
func NewIndex() *Index {
	return &Index{
		k1:      defaultK1,
		b:       defaultB,
		byID:    make(map[string]int),
		docFreq: make(map[string]int),
	}
}

// Add tokenizes and indexes the given chunks. A chunk ID that is
// already present has its postings replaced.
func (idx *Index) Add(ctx context.Context, chunks []driven.IndexableChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, c := range chunks {
		if pos, ok := idx.byID[c.ChunkID]; ok {
			idx.removeAtLocked(pos)
		}
		e := &entry{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Ordinal:    c.Ordinal,
			Tokens:     Tokenize(c.Content),
		}
		idx.appendLocked(e)
	}
	idx.built = true
	return nil
}

// RemoveDocument drops every chunk belonging to the document. Removing
// an unknown document is a no-op.
func (idx *Index) RemoveDocument(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for pos := len(idx.entries) - 1; pos >= 0; pos-- {
		if idx.entries[pos].DocumentID == documentID {
			idx.removeAtLocked(pos)
		}
	}
	return nil
}

// Search ranks indexed chunks against the query. Chunks scoring zero
// are excluded. Ties are broken by lower ordinal, then chunk ID, so
// results are deterministic.
func (idx *Index) Search(ctx context.Context, query string, topK int) ([]driven.LexicalHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.built {
		return nil, fmt.Errorf("%w: lexical index has no data", domain.ErrIndexNotBuilt)
	}
	if topK <= 0 {
		return []driven.LexicalHit{}, nil
	}

	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 || len(idx.entries) == 0 {
		return []driven.LexicalHit{}, nil
	}

	avgLen := float64(idx.totalLen) / float64(len(idx.entries))

	type scored struct {
		e     *entry
		score float64
	}
	hits := make([]scored, 0, len(idx.entries))
	for _, e := range idx.entries {
		s := idx.scoreLocked(queryTokens, e, avgLen)
		if s > 0 {
			hits = append(hits, scored{e: e, score: s})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if hits[i].e.Ordinal != hits[j].e.Ordinal {
			return hits[i].e.Ordinal < hits[j].e.Ordinal
		}
		return hits[i].e.ChunkID < hits[j].e.ChunkID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	out := make([]driven.LexicalHit, len(hits))
	for i, h := range hits {
		out[i] = driven.LexicalHit{ChunkID: h.e.ChunkID, Score: h.score}
	}
	return out, nil
}

// Save writes a JSON snapshot of the index to path.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	snap := snapshot{
		Version:     snapshotVersion,
		TotalChunks: len(idx.entries),
		Chunks:      idx.entries,
	}
	data, err := json.Marshal(snap)
	idx.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshaling lexical index: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing lexical index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing lexical index: %w", err)
	}
	return nil
}

// Load replaces the index contents with a snapshot previously written
// by Save. The stored chunk count must match the payload.
func (idx *Index) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading lexical index: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parsing lexical index: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported lexical index version %d", snap.Version)
	}
	if snap.TotalChunks != len(snap.Chunks) {
		return fmt.Errorf("corrupt lexical index: header says %d chunks, payload has %d",
			snap.TotalChunks, len(snap.Chunks))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries = nil
	idx.byID = make(map[string]int)
	idx.docFreq = make(map[string]int)
	idx.totalLen = 0
	for _, e := range snap.Chunks {
		idx.appendLocked(e)
	}
	idx.built = true
	return nil
}

// appendLocked wires an entry into the postings statistics.
func (idx *Index) appendLocked(e *entry) {
	e.termFreq = make(map[string]int, len(e.Tokens))
	for _, tok := range e.Tokens {
		e.termFreq[tok]++
	}
	for term := range e.termFreq {
		idx.docFreq[term]++
	}
	idx.totalLen += len(e.Tokens)
	idx.byID[e.ChunkID] = len(idx.entries)
	idx.entries = append(idx.entries, e)
}

// removeAtLocked unhooks the entry at pos, swapping the tail in to
// keep removal O(1).
func (idx *Index) removeAtLocked(pos int) {
	e := idx.entries[pos]
	for term := range e.termFreq {
		if idx.docFreq[term] <= 1 {
			delete(idx.docFreq, term)
		} else {
			idx.docFreq[term]--
		}
	}
	idx.totalLen -= len(e.Tokens)
	delete(idx.byID, e.ChunkID)

	last := len(idx.entries) - 1
	idx.entries[pos] = idx.entries[last]
	idx.entries = idx.entries[:last]
	if pos < last {
		idx.byID[idx.entries[pos].ChunkID] = pos
	}
}

// scoreLocked computes the Okapi BM25 score of one chunk for the query
// tokens. IDF uses log((N - df + 0.5) / (df + 0.5) + 1), which stays
// non-negative for terms present in most chunks.
func (idx *Index) scoreLocked(queryTokens []string, e *entry, avgLen float64) float64 {
	n := float64(len(idx.entries))
	docLen := float64(len(e.Tokens))

	var score float64
	for _, tok := range queryTokens {
		tf := float64(e.termFreq[tok])
		if tf == 0 {
			continue
		}
		df := float64(idx.docFreq[tok])
		idf := math.Log((n-df+0.5)/(df+0.5) + 1.0)

		var lengthNorm float64
		if avgLen > 0 {
			lengthNorm = docLen / avgLen
		}
		score += idf * (tf * (idx.k1 + 1)) / (tf + idx.k1*(1-idx.b+idx.b*lengthNorm))
	}
	return score
}
