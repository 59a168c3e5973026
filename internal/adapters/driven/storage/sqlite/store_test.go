package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-dev/lectern/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testDocument(id string) *domain.Document {
	return &domain.Document{
		ID:        id,
		Name:      "lecture-01.pdf",
		PageCount: 12,
		Content:   "Full cleaned text of the lecture.",
		Status:    domain.StatusPending,
	}
}

func testChunks(documentID string, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:         domain.ChunkID(documentID, i),
			DocumentID: documentID,
			Content:    "chunk content",
			Ordinal:    i,
			TokenCount: 120,
			Page:       i/2 + 1,
			Heading:    i == 0,
		}
	}
	return chunks
}

func TestStore_SaveAndGetDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("doc-1")
	require.NoError(t, store.SaveDocument(ctx, doc))

	saved, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "lecture-01.pdf", saved.Name)
	assert.Equal(t, 12, saved.PageCount)
	assert.Equal(t, domain.StatusPending, saved.Status)
	assert.False(t, saved.CreatedAt.IsZero())
}

func TestStore_SaveDocument_Upsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("doc-1")
	require.NoError(t, store.SaveDocument(ctx, doc))

	doc.Name = "renamed.pdf"
	doc.Status = domain.StatusReady
	require.NoError(t, store.SaveDocument(ctx, doc))

	saved, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed.pdf", saved.Name)
	assert.Equal(t, domain.StatusReady, saved.Status)
}

func TestStore_SaveDocument_RequiresID(t *testing.T) {
	store := newTestStore(t)
	err := store.SaveDocument(context.Background(), &domain.Document{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_GetDocument_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SetStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, testDocument("doc-1")))

	t.Run("failed keeps the reason", func(t *testing.T) {
		require.NoError(t, store.SetStatus(ctx, "doc-1", domain.StatusFailed, "no text layer"))
		doc, err := store.GetDocument(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, doc.Status)
		assert.Equal(t, "no text layer", doc.FailureReason)
	})

	t.Run("other statuses clear the reason", func(t *testing.T) {
		require.NoError(t, store.SetStatus(ctx, "doc-1", domain.StatusReady, "stale reason"))
		doc, err := store.GetDocument(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusReady, doc.Status)
		assert.Empty(t, doc.FailureReason)
	})

	t.Run("unknown document", func(t *testing.T) {
		err := store.SetStatus(ctx, "missing", domain.StatusReady, "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestStore_ReplaceChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, testDocument("doc-1")))

	require.NoError(t, store.ReplaceChunks(ctx, "doc-1", testChunks("doc-1", 5)))

	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 5)
	for i, c := range chunks {
		assert.Equal(t, i, c.Ordinal)
	}
	assert.True(t, chunks[0].Heading)
	assert.False(t, chunks[1].Heading)

	// Replacing is wholesale, not additive.
	require.NoError(t, store.ReplaceChunks(ctx, "doc-1", testChunks("doc-1", 2)))
	chunks, err = store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestStore_GetChunk(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, testDocument("doc-1")))
	require.NoError(t, store.ReplaceChunks(ctx, "doc-1", testChunks("doc-1", 3)))

	chunk, err := store.GetChunk(ctx, domain.ChunkID("doc-1", 1))
	require.NoError(t, err)
	assert.Equal(t, 1, chunk.Ordinal)
	assert.Equal(t, "doc-1", chunk.DocumentID)
	assert.Equal(t, 120, chunk.TokenCount)

	_, err = store.GetChunk(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DeleteDocument_Cascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, testDocument("doc-1")))
	require.NoError(t, store.ReplaceChunks(ctx, "doc-1", testChunks("doc-1", 3)))

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))

	_, err := store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	assert.ErrorIs(t, store.DeleteDocument(ctx, "doc-1"), domain.ErrNotFound)
}

func TestStore_ListDocuments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	require.NoError(t, store.SaveDocument(ctx, testDocument("doc-1")))
	require.NoError(t, store.SaveDocument(ctx, testDocument("doc-2")))

	docs, err = store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveDocument(ctx, testDocument("doc-1")))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	doc, err := reopened.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "lecture-01.pdf", doc.Name)
}
