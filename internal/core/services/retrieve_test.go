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
	"github.com/lectern-dev/lectern/internal/core/domain"
	"github.com/lectern-dev/lectern/internal/core/ports/driven"
)

// testCorpus is the seeded retrieval fixture.
type testCorpus struct {
	retrieval *RetrievalService
	store     *memory.DocumentStore
	embedder  *static.Embedder
	vectors   *chromem.Index
	lexical   *bm25.Index
}

var corpusChunks = []domain.Chunk{
	{
		ID:         domain.ChunkID("doc-1", 0),
		DocumentID: "doc-1",
		Content: "Neural networks learn layered feature representations from " +
			"labelled training data. Backpropagation adjusts the weights.",
		Ordinal: 0, TokenCount: 20, Page: 1,
	},
	{
		ID:         domain.ChunkID("doc-1", 1),
		DocumentID: "doc-1",
		Content: "Gradient descent optimisation minimises the loss function " +
			"step by step. The learning rate controls the step size.",
		Ordinal: 1, TokenCount: 20, Page: 2,
	},
	{
		ID:         domain.ChunkID("doc-2", 0),
		DocumentID: "doc-2",
		Content: "Cooking pasta requires salted boiling water and careful " +
			"timing. Fresh basil improves the finished sauce.",
		Ordinal: 0, TokenCount: 18, Page: 1,
	},
}

func seedCorpus(t *testing.T) *testCorpus {
	t.Helper()
	ctx := context.Background()

	store := memory.NewDocumentStore()
	embedder := static.NewEmbedder(0)
	vectors := chromem.NewIndex("test-retrieval", embedder.Dimensions())
	lexical := bm25.NewIndex()

	for _, id := range []string{"doc-1", "doc-2"} {
		require.NoError(t, store.SaveDocument(ctx, &domain.Document{
			ID: id, Name: id + ".pdf", Status: domain.StatusReady,
		}))
	}

	byDoc := make(map[string][]domain.Chunk)
	for _, chunk := range corpusChunks {
		byDoc[chunk.DocumentID] = append(byDoc[chunk.DocumentID], chunk)
	}
	for docID, chunks := range byDoc {
		require.NoError(t, store.ReplaceChunks(ctx, docID, chunks))

		embedded := make([]driven.EmbeddedChunk, len(chunks))
		indexable := make([]driven.IndexableChunk, len(chunks))
		for i, chunk := range chunks {
			vec, err := embedder.Embed(ctx, chunk.Content, driven.VariantPassage)
			require.NoError(t, err)
			embedded[i] = driven.EmbeddedChunk{Chunk: chunk, Vector: vec}
			indexable[i] = driven.IndexableChunk{
				ChunkID:    chunk.ID,
				DocumentID: chunk.DocumentID,
				Ordinal:    chunk.Ordinal,
				Content:    chunk.Content,
			}
		}
		require.NoError(t, vectors.Upsert(ctx, docID, embedded))
		require.NoError(t, lexical.Add(ctx, indexable))
	}

	return &testCorpus{
		retrieval: NewRetrievalService(store, embedder, vectors, lexical),
		store:     store,
		embedder:  embedder,
		vectors:   vectors,
		lexical:   lexical,
	}
}

func TestRetrievalService_Retrieve(t *testing.T) {
	c := seedCorpus(t)

	result, err := c.retrieval.Retrieve(context.Background(), "neural networks training data",
		domain.RetrieveOptions{TopK: 3})
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)
	assert.False(t, result.Degraded)

	// The neural networks chunk matches both legs and must lead.
	top := result.Chunks[0]
	assert.Equal(t, domain.ChunkID("doc-1", 0), top.Chunk.ID)
	assert.Equal(t, domain.MethodBoth, top.Method)

	for i, rc := range result.Chunks {
		assert.Equal(t, i+1, rc.Rank)
	}
}

func TestRetrievalService_Retrieve_BothOutranksSingleSource(t *testing.T) {
	c := seedCorpus(t)

	result, err := c.retrieval.Retrieve(context.Background(), "gradient descent learning rate",
		domain.RetrieveOptions{TopK: 3})
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)

	// Once a both-leg chunk appears, no single-source chunk may precede it.
	seenSingle := false
	for _, rc := range result.Chunks {
		if rc.Method == domain.MethodBoth {
			assert.False(t, seenSingle, "both-leg chunk ranked below a single-source chunk")
		} else {
			seenSingle = true
		}
	}
}

func TestRetrievalService_Retrieve_TopK(t *testing.T) {
	c := seedCorpus(t)

	result, err := c.retrieval.Retrieve(context.Background(), "learning",
		domain.RetrieveOptions{TopK: 1})
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 1)
	assert.Equal(t, 1, result.Chunks[0].Rank)
}

func TestRetrievalService_Retrieve_EmptyQuery(t *testing.T) {
	c := seedCorpus(t)

	result, err := c.retrieval.Retrieve(context.Background(), "   ", domain.RetrieveOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
}

func TestRetrievalService_Retrieve_DocumentFilter(t *testing.T) {
	c := seedCorpus(t)

	result, err := c.retrieval.Retrieve(context.Background(), "pasta boiling water",
		domain.RetrieveOptions{TopK: 5, DocumentID: "doc-1"})
	require.NoError(t, err)

	for _, rc := range result.Chunks {
		assert.Equal(t, "doc-1", rc.Chunk.DocumentID)
	}
}

func TestRetrievalService_Retrieve_DegradedLexical(t *testing.T) {
	c := seedCorpus(t)

	// A never-built lexical index fails fast; the dense leg carries on.
	svc := NewRetrievalService(c.store, c.embedder, c.vectors, bm25.NewIndex())

	result, err := svc.Retrieve(context.Background(), "neural networks",
		domain.RetrieveOptions{TopK: 3})
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	require.NotEmpty(t, result.Chunks)
	for _, rc := range result.Chunks {
		assert.Equal(t, domain.MethodDense, rc.Method)
	}
}

func TestRetrievalService_Retrieve_DegradedDense(t *testing.T) {
	c := seedCorpus(t)

	svc := NewRetrievalService(c.store, c.embedder, nil, c.lexical)

	result, err := svc.Retrieve(context.Background(), "neural networks",
		domain.RetrieveOptions{TopK: 3})
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	require.NotEmpty(t, result.Chunks)
	for _, rc := range result.Chunks {
		assert.Equal(t, domain.MethodLexical, rc.Method)
	}
}

func TestRetrievalService_Retrieve_BothLegsUnavailable(t *testing.T) {
	c := seedCorpus(t)

	svc := NewRetrievalService(c.store, c.embedder, nil, bm25.NewIndex())

	_, err := svc.Retrieve(context.Background(), "neural networks", domain.RetrieveOptions{})
	assert.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
}

func TestRetrievalService_Retrieve_SkipsStaleChunks(t *testing.T) {
	c := seedCorpus(t)
	ctx := context.Background()

	// Index a chunk that is missing from the document store.
	require.NoError(t, c.lexical.Add(ctx, []driven.IndexableChunk{{
		ChunkID:    domain.ChunkID("ghost", 0),
		DocumentID: "ghost",
		Ordinal:    0,
		Content:    "Neural networks ghost entry awaiting cleanup.",
	}}))

	result, err := c.retrieval.Retrieve(ctx, "neural networks",
		domain.RetrieveOptions{TopK: 10})
	require.NoError(t, err)
	for _, rc := range result.Chunks {
		assert.NotEqual(t, domain.ChunkID("ghost", 0), rc.Chunk.ID)
	}
}

func TestRetrievalService_RetrieveSample(t *testing.T) {
	c := seedCorpus(t)

	result, err := c.retrieval.RetrieveSample(context.Background(), "doc-1", 4)
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)
	assert.LessOrEqual(t, len(result.Chunks), 4)

	seen := make(map[string]bool)
	for i, rc := range result.Chunks {
		assert.Equal(t, "doc-1", rc.Chunk.DocumentID)
		assert.Equal(t, i+1, rc.Rank)
		assert.False(t, seen[rc.Chunk.ID], "duplicate chunk in sample")
		seen[rc.Chunk.ID] = true
	}
}

func TestRetrievalService_RetrieveSample_NotFound(t *testing.T) {
	c := seedCorpus(t)

	_, err := c.retrieval.RetrieveSample(context.Background(), "missing", 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
