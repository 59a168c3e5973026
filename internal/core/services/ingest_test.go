package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-dev/lectern/internal/adapters/driven/embedding/static"
	"github.com/lectern-dev/lectern/internal/adapters/driven/lexical/bm25"
	"github.com/lectern-dev/lectern/internal/adapters/driven/storage/memory"
	"github.com/lectern-dev/lectern/internal/adapters/driven/vector/chromem"
	"github.com/lectern-dev/lectern/internal/chunker"
	"github.com/lectern-dev/lectern/internal/core/domain"
	"github.com/lectern-dev/lectern/internal/core/ports/driven"
)

const lectureText = `Graph Traversal

Breadth first search visits vertices in order of distance from the start.
The frontier expands one layer at a time using a queue. Every reachable
vertex is visited exactly once before the search terminates.

Depth first search follows one path as far as possible before backtracking.
A stack or recursion tracks the current path through the graph. Edge
classification into tree and back edges falls out of the visit order.

Shortest Paths

Dijkstra's algorithm grows a tree of settled vertices by always expanding
the closest unsettled one. A priority queue keyed on tentative distance
drives the selection. Negative edge weights break the settling argument.`

// fakeExtractor returns canned extraction output, ignoring the path.
type fakeExtractor struct {
	text  string
	pages int
	err   error
}

func (e *fakeExtractor) Extract(_ context.Context, _ string) (*driven.Extraction, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &driven.Extraction{Text: e.text, PageCount: e.pages}, nil
}

// failingEmbedder fails every call with a provider error.
type failingEmbedder struct{}

func (failingEmbedder) EmbedBatch(_ context.Context, _ []string, _ driven.EmbeddingVariant) ([][]float32, error) {
	return nil, domain.ErrEmbeddingProvider
}

func (failingEmbedder) Embed(_ context.Context, _ string, _ driven.EmbeddingVariant) ([]float32, error) {
	return nil, domain.ErrEmbeddingProvider
}

func (failingEmbedder) Dimensions() int   { return static.DefaultDimensions }
func (failingEmbedder) ModelName() string { return "failing" }

// testPipeline bundles an ingestion service with its backing stores so
// tests can inspect state after a run.
type testPipeline struct {
	ingest  *IngestService
	store   *memory.DocumentStore
	vectors *chromem.Index
	lexical *bm25.Index
}

func newTestPipeline(t *testing.T, extractor driven.Extractor, embedder driven.Embedder) *testPipeline {
	t.Helper()
	store := memory.NewDocumentStore()
	vectors := chromem.NewIndex("test-chunks", embedder.Dimensions())
	lexical := bm25.NewIndex()
	cfg := IngestConfig{
		Chunking: chunker.Config{MinTokens: 10, MaxTokens: 60, Overlap: 20},
	}
	return &testPipeline{
		ingest:  NewIngestService(store, extractor, embedder, vectors, lexical, cfg),
		store:   store,
		vectors: vectors,
		lexical: lexical,
	}
}

func TestIngestService_Ingest(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{text: lectureText, pages: 3}, static.NewEmbedder(0))
	ctx := context.Background()

	doc, err := p.ingest.Ingest(ctx, "/lectures/graphs.pdf")
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "graphs.pdf", doc.Name)
	assert.Equal(t, 3, doc.PageCount)
	assert.Equal(t, domain.StatusReady, doc.Status)

	stored, err := p.store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, stored.Status)

	chunks, err := p.store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Ordinal)
		assert.Equal(t, doc.ID, chunk.DocumentID)
	}

	// Both indexes see the new document immediately.
	hits, err := p.lexical.Search(ctx, "dijkstra priority queue", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)

	embedder := static.NewEmbedder(0)
	qv, err := embedder.Embed(ctx, "breadth first search", driven.VariantQuery)
	require.NoError(t, err)
	vhits, err := p.vectors.Search(ctx, qv, driven.VectorFilter{}, 5, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, vhits)
}

func TestIngestService_Ingest_ExtractionFailure(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{err: domain.ErrExtraction}, static.NewEmbedder(0))

	doc, err := p.ingest.Ingest(context.Background(), "/lectures/broken.pdf")
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Nil(t, doc)

	// Nothing was stored.
	docs, err := p.store.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngestService_Ingest_EmbeddingFailure(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{text: lectureText, pages: 3}, failingEmbedder{})
	ctx := context.Background()

	doc, err := p.ingest.Ingest(ctx, "/lectures/graphs.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
	require.NotNil(t, doc)

	// The failure is recorded against the document.
	stored, err := p.store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	assert.NotEmpty(t, stored.FailureReason)
}

func TestIngestService_Ingest_Cancelled(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{text: lectureText, pages: 3}, static.NewEmbedder(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := p.ingest.Ingest(ctx, "/lectures/graphs.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, doc)

	// markFailed uses its own context, so the status survives cancellation.
	stored, err := p.store.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
}

func TestIngestService_Reprocess(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{text: lectureText, pages: 3}, static.NewEmbedder(0))
	ctx := context.Background()

	doc, err := p.ingest.Ingest(ctx, "/lectures/graphs.pdf")
	require.NoError(t, err)

	before, err := p.store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)

	require.NoError(t, p.ingest.Reprocess(ctx, doc.ID))

	after, err := p.store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))

	stored, err := p.store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, stored.Status)

	// The index still answers queries after the wholesale replacement.
	hits, err := p.lexical.Search(ctx, "dijkstra", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestIngestService_Reprocess_NotFound(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{text: lectureText, pages: 3}, static.NewEmbedder(0))

	err := p.ingest.Reprocess(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestService_Delete(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{text: lectureText, pages: 3}, static.NewEmbedder(0))
	ctx := context.Background()

	doc, err := p.ingest.Ingest(ctx, "/lectures/graphs.pdf")
	require.NoError(t, err)

	require.NoError(t, p.ingest.Delete(ctx, doc.ID))

	_, err = p.store.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	hits, err := p.lexical.Search(ctx, "dijkstra priority queue", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	embedder := static.NewEmbedder(0)
	qv, err := embedder.Embed(ctx, "breadth first search", driven.VariantQuery)
	require.NoError(t, err)
	vhits, err := p.vectors.Search(ctx, qv, driven.VectorFilter{}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, vhits)
}

func TestIngestService_Delete_NotFound(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{text: lectureText, pages: 3}, static.NewEmbedder(0))

	err := p.ingest.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestService_DefaultConfig(t *testing.T) {
	svc := NewIngestService(nil, nil, nil, nil, nil, IngestConfig{})
	assert.Equal(t, DefaultEmbedBatchSize, svc.cfg.EmbedBatchSize)
	assert.Equal(t, DefaultEmbedWorkers, svc.cfg.EmbedWorkers)
	assert.NoError(t, svc.cfg.Chunking.Validate())
}
