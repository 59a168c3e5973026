package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lectern-dev/lectern/internal/chunker"
	"github.com/lectern-dev/lectern/internal/core/domain"
	"github.com/lectern-dev/lectern/internal/core/ports/driven"
	"github.com/lectern-dev/lectern/internal/core/ports/driving"
	"github.com/lectern-dev/lectern/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

const (
	// DefaultEmbedBatchSize is the number of chunks embedded per request.
	DefaultEmbedBatchSize = 32

	// DefaultEmbedWorkers bounds concurrent embedding requests.
	DefaultEmbedWorkers = 4
)

// IngestConfig holds tunables for the ingestion pipeline.
type IngestConfig struct {
	// Chunking configures the semantic chunker.
	Chunking chunker.Config

	// EmbedBatchSize is how many chunks go into one embedding request.
	EmbedBatchSize int

	// EmbedWorkers bounds how many embedding requests run concurrently.
	EmbedWorkers int
}

// IngestService runs the document preparation pipeline:
// extract, chunk, embed, index.
type IngestService struct {
	docStore     driven.DocumentStore
	extractor    driven.Extractor
	embedder     driven.Embedder
	vectorIndex  driven.VectorIndex
	lexicalIndex driven.LexicalIndex
	cfg          IngestConfig
}

// NewIngestService creates a new ingestion service.
func NewIngestService(
	docStore driven.DocumentStore,
	extractor driven.Extractor,
	embedder driven.Embedder,
	vectorIndex driven.VectorIndex,
	lexicalIndex driven.LexicalIndex,
	cfg IngestConfig,
) *IngestService {
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if cfg.EmbedWorkers <= 0 {
		cfg.EmbedWorkers = DefaultEmbedWorkers
	}
	if cfg.Chunking == (chunker.Config{}) {
		cfg.Chunking = chunker.DefaultConfig()
	}
	return &IngestService{
		docStore:     docStore,
		extractor:    extractor,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		lexicalIndex: lexicalIndex,
		cfg:          cfg,
	}
}

// Ingest processes one PDF file end to end and returns the stored
// document. Pipeline failures after extraction are recorded against the
// document's status and returned to the caller.
func (s *IngestService) Ingest(ctx context.Context, path string) (*domain.Document, error) {
	logger.Section("Ingest")
	logger.Debug("File: %s", path)

	extraction, err := s.extractor.Extract(ctx, path)
	if err != nil {
		logger.Warn("Extraction failed: %v", err)
		return nil, err
	}
	logger.Debug("Extracted %d pages, %d characters", extraction.PageCount, len(extraction.Text))

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Name:      filepath.Base(path),
		PageCount: extraction.PageCount,
		Content:   extraction.Text,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	if err := s.process(ctx, doc); err != nil {
		s.markFailed(doc.ID, err)
		return doc, err
	}

	doc.Status = domain.StatusReady
	logger.Info("Ingested %s as %s", doc.Name, doc.ID)
	return doc, nil
}

// Reprocess re-runs chunking and indexing for an existing document,
// replacing its chunks, vectors and postings wholesale.
func (s *IngestService) Reprocess(ctx context.Context, documentID string) error {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	logger.Section("Reprocess")
	logger.Debug("Document: %s (%s)", doc.ID, doc.Name)

	if err := s.dropIndexState(ctx, documentID); err != nil {
		s.markFailed(documentID, err)
		return err
	}

	if err := s.process(ctx, doc); err != nil {
		s.markFailed(documentID, err)
		return err
	}
	return nil
}

// Delete removes a document and all derived index state.
func (s *IngestService) Delete(ctx context.Context, documentID string) error {
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.dropIndexState(ctx, documentID); err != nil {
		return err
	}
	return s.docStore.DeleteDocument(ctx, documentID)
}

// process runs chunk, embed and index for a stored document, moving its
// status to ready on success. A failed run leaves no partial commits
// visible to retrieval: the next run replaces everything wholesale.
func (s *IngestService) process(ctx context.Context, doc *domain.Document) error {
	if s.embedder == nil {
		return fmt.Errorf("%w: no embedder configured", domain.ErrEmbeddingProvider)
	}
	if err := s.docStore.SetStatus(ctx, doc.ID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status: %w", err)
	}

	chunks, err := chunker.Chunk(doc.ID, doc.Content, doc.PageCount, s.cfg.Chunking)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}
	logger.Debug("Chunked into %d chunks", len(chunks))

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return err
	}

	if err := s.docStore.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return fmt.Errorf("replace chunks: %w", err)
	}

	embedded := make([]driven.EmbeddedChunk, len(chunks))
	for i, chunk := range chunks {
		embedded[i] = driven.EmbeddedChunk{Chunk: chunk, Vector: vectors[i]}
	}
	if err := s.vectorIndex.Upsert(ctx, doc.ID, embedded); err != nil {
		return fmt.Errorf("vector upsert: %w", err)
	}

	indexable := make([]driven.IndexableChunk, len(chunks))
	for i, chunk := range chunks {
		indexable[i] = driven.IndexableChunk{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Ordinal:    chunk.Ordinal,
			Content:    chunk.Content,
		}
	}
	if err := s.lexicalIndex.Add(ctx, indexable); err != nil {
		return fmt.Errorf("lexical index: %w", err)
	}

	if err := s.docStore.SetStatus(ctx, doc.ID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// embedChunks produces one passage vector per chunk. Batches run
// concurrently but land in input order; a cancelled context stops the
// run at the next batch boundary.
func (s *IngestService) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	if len(chunks) == 0 {
		return vectors, nil
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.cfg.EmbedWorkers)

	for start := 0; start < len(chunks); start += s.cfg.EmbedBatchSize {
		end := start + s.cfg.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		offset := start

		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			texts := make([]string, len(batch))
			for i, chunk := range batch {
				texts[i] = chunk.Content
			}
			out, err := s.embedder.EmbedBatch(gctx, texts, driven.VariantPassage)
			if err != nil {
				return fmt.Errorf("embed batch at %d: %w", offset, err)
			}
			copy(vectors[offset:], out)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	logger.Debug("Embedded %d chunks in batches of %d", len(chunks), s.cfg.EmbedBatchSize)
	return vectors, nil
}

// dropIndexState removes a document's derived vector and lexical state.
func (s *IngestService) dropIndexState(ctx context.Context, documentID string) error {
	if err := s.vectorIndex.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("drop vectors: %w", err)
	}
	if err := s.lexicalIndex.RemoveDocument(ctx, documentID); err != nil {
		return fmt.Errorf("drop postings: %w", err)
	}
	return nil
}

// markFailed records a pipeline error against the document. Uses a fresh
// context so a cancelled run still leaves the failure visible.
func (s *IngestService) markFailed(documentID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.docStore.SetStatus(ctx, documentID, domain.StatusFailed, cause.Error()); err != nil {
		logger.Warn("Could not record failure for %s: %v", documentID, err)
	}
}
