package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lectern-dev/lectern/internal/core/domain"
	"github.com/lectern-dev/lectern/internal/core/ports/driven"
	"github.com/lectern-dev/lectern/internal/core/ports/driving"
	"github.com/lectern-dev/lectern/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// DefaultTopK is the result count used when options leave it unset.
const DefaultTopK = 10

// sampleProbes are the generic queries used to sample a document when no
// topic focus is given. Together they cover definitions, procedures,
// examples and summary material.
var sampleProbes = []string{
	"important concepts and definitions",
	"key procedures and methods",
	"examples and applications",
	"summary of main topics",
}

// candidate holds one merge slot before hydration.
type candidate struct {
	chunkID string
	score   float64
	method  domain.RetrievalMethod
}

// RetrievalService answers hybrid retrieval queries by merging dense
// vector similarity with BM25 keyword matching.
type RetrievalService struct {
	docStore     driven.DocumentStore
	embedder     driven.Embedder
	vectorIndex  driven.VectorIndex
	lexicalIndex driven.LexicalIndex
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(
	docStore driven.DocumentStore,
	embedder driven.Embedder,
	vectorIndex driven.VectorIndex,
	lexicalIndex driven.LexicalIndex,
) *RetrievalService {
	return &RetrievalService{
		docStore:     docStore,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		lexicalIndex: lexicalIndex,
	}
}

// Retrieve merges dense and lexical search results for a free-text query
// into one ranked, deduplicated candidate list. Chunks found by both legs
// rank strictly above single-source chunks; a failed leg degrades the
// result to the surviving leg alone.
func (s *RetrievalService) Retrieve(
	ctx context.Context, query string, opts domain.RetrieveOptions,
) (*domain.RetrievalResult, error) {
	logger.Section("Retrieve")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		return &domain.RetrievalResult{Chunks: []domain.RetrievedChunk{}}, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	// Fetch extra from each leg so the merge can still fill topK after
	// deduplication and document filtering.
	legLimit := topK * 2
	logger.Debug("TopK: %d, leg limit: %d, document filter: %q", topK, legLimit, opts.DocumentID)

	// Run both legs in parallel; each failure is handled separately so
	// one leg can carry a degraded result.
	var denseHits []driven.VectorHit
	var lexicalHits []driven.LexicalHit
	var denseErr, lexicalErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		denseHits, denseErr = s.denseSearch(ctx, query, opts, legLimit)
	}()

	go func() {
		defer wg.Done()
		lexicalHits, lexicalErr = s.lexicalSearch(ctx, query, legLimit)
	}()

	wg.Wait()

	if denseErr != nil && lexicalErr != nil {
		logger.Warn("Both retrieval legs failed: dense=%v lexical=%v", denseErr, lexicalErr)
		return nil, fmt.Errorf("%w: dense=%v, lexical=%v",
			domain.ErrRetrievalUnavailable, denseErr, lexicalErr)
	}

	degraded := false
	if denseErr != nil {
		logger.Warn("Dense leg failed, using lexical results only: %v", denseErr)
		denseHits = nil
		degraded = true
	}
	if lexicalErr != nil {
		if errors.Is(lexicalErr, domain.ErrIndexNotBuilt) {
			logger.Debug("Lexical index not built, using dense results only")
		} else {
			logger.Warn("Lexical leg failed, using dense results only: %v", lexicalErr)
		}
		lexicalHits = nil
		degraded = true
	}

	merged := mergeHits(denseHits, lexicalHits)
	chunks, err := s.hydrate(ctx, merged, opts.DocumentID)
	if err != nil {
		return nil, err
	}

	rankChunks(chunks)
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	for i := range chunks {
		chunks[i].Rank = i + 1
	}

	logger.Info("Retrieved %d chunks (degraded=%t)", len(chunks), degraded)
	return &domain.RetrievalResult{Chunks: chunks, Degraded: degraded}, nil
}

// RetrieveSample produces a representative chunk sample for a document by
// fanning out the fixed probe queries and deduplicating the combined
// results, keeping the first occurrence of each chunk.
func (s *RetrievalService) RetrieveSample(
	ctx context.Context, documentID string, topK int,
) (*domain.RetrievalResult, error) {
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}

	if topK <= 0 {
		topK = DefaultTopK
	}
	perProbe := topK / len(sampleProbes)
	if perProbe < 1 {
		perProbe = 1
	}
	logger.Debug("Sampling %s: %d probes at %d each", documentID, len(sampleProbes), perProbe)

	results := make([]*domain.RetrievalResult, len(sampleProbes))
	eg, gctx := errgroup.WithContext(ctx)
	for i, probe := range sampleProbes {
		eg.Go(func() error {
			res, err := s.Retrieve(gctx, probe, domain.RetrieveOptions{
				TopK:       perProbe,
				DocumentID: documentID,
			})
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var chunks []domain.RetrievedChunk
	degraded := false
	for _, res := range results {
		degraded = degraded || res.Degraded
		for _, rc := range res.Chunks {
			if seen[rc.Chunk.ID] {
				continue
			}
			seen[rc.Chunk.ID] = true
			chunks = append(chunks, rc)
		}
	}

	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	for i := range chunks {
		chunks[i].Rank = i + 1
	}

	return &domain.RetrievalResult{Chunks: chunks, Degraded: degraded}, nil
}

// denseSearch embeds the query and runs filtered vector similarity search.
func (s *RetrievalService) denseSearch(
	ctx context.Context, query string, opts domain.RetrieveOptions, limit int,
) ([]driven.VectorHit, error) {
	if s.vectorIndex == nil || s.embedder == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}

	vector, err := s.embedder.Embed(ctx, query, driven.VariantQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	filter := driven.VectorFilter{DocumentID: opts.DocumentID, Page: opts.Page}
	hits, err := s.vectorIndex.Search(ctx, vector, filter, limit, opts.ScoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Dense leg: %d hits", len(hits))
	return hits, nil
}

// lexicalSearch runs BM25 keyword search.
func (s *RetrievalService) lexicalSearch(
	ctx context.Context, query string, limit int,
) ([]driven.LexicalHit, error) {
	if s.lexicalIndex == nil {
		return nil, domain.ErrIndexNotBuilt
	}

	hits, err := s.lexicalIndex.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	logger.Debug("Lexical leg: %d hits", len(hits))
	return hits, nil
}

// mergeHits combines both result sets by chunk ID. A chunk found by both
// legs is tagged MethodBoth and keeps its dense score.
func mergeHits(dense []driven.VectorHit, lexical []driven.LexicalHit) []candidate {
	byID := make(map[string]int, len(dense))
	merged := make([]candidate, 0, len(dense)+len(lexical))

	for _, hit := range dense {
		byID[hit.ChunkID] = len(merged)
		merged = append(merged, candidate{
			chunkID: hit.ChunkID,
			score:   hit.Score,
			method:  domain.MethodDense,
		})
	}

	for _, hit := range lexical {
		if i, ok := byID[hit.ChunkID]; ok {
			merged[i].method = domain.MethodBoth
			continue
		}
		merged = append(merged, candidate{
			chunkID: hit.ChunkID,
			score:   hit.Score,
			method:  domain.MethodLexical,
		})
	}

	return merged
}

// hydrate loads full chunks from the document store. Chunks deleted since
// indexing are skipped; the lexical leg is filtered by document here since
// BM25 postings carry no payload metadata.
func (s *RetrievalService) hydrate(
	ctx context.Context, merged []candidate, documentID string,
) ([]domain.RetrievedChunk, error) {
	chunks := make([]domain.RetrievedChunk, 0, len(merged))
	for _, c := range merged {
		chunk, err := s.docStore.GetChunk(ctx, c.chunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Debug("Skipping stale chunk %s", c.chunkID)
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", c.chunkID, err)
		}
		if documentID != "" && chunk.DocumentID != documentID {
			continue
		}
		chunks = append(chunks, domain.RetrievedChunk{
			Chunk:  *chunk,
			Score:  c.score,
			Method: c.method,
		})
	}
	return chunks, nil
}

// rankChunks orders results into tiers: both-leg chunks above
// single-source chunks, then score descending, ties by lower ordinal.
func rankChunks(chunks []domain.RetrievedChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		iBoth := chunks[i].Method == domain.MethodBoth
		jBoth := chunks[j].Method == domain.MethodBoth
		if iBoth != jBoth {
			return iBoth
		}
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].Chunk.Ordinal < chunks[j].Chunk.Ordinal
	})
}
