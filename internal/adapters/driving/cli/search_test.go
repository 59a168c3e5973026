package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-dev/lectern/internal/core/domain"
)

// fakeRetrieval returns canned results and records the last call.
type fakeRetrieval struct {
	lastQuery string
	lastOpts  domain.RetrieveOptions
	result    *domain.RetrievalResult
	err       error
}

func (f *fakeRetrieval) Retrieve(_ context.Context, query string, opts domain.RetrieveOptions) (*domain.RetrievalResult, error) {
	f.lastQuery = query
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeRetrieval) RetrieveSample(_ context.Context, _ string, _ int) (*domain.RetrievalResult, error) {
	return f.result, f.err
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestSearchCmd_NotConfigured(t *testing.T) {
	original := retrievalService
	retrievalService = nil
	defer func() { retrievalService = original }()

	_, err := execute(t, "search", "anything")
	assert.Error(t, err)
}

func TestSearchCmd_PrintsResults(t *testing.T) {
	original := retrievalService
	fake := &fakeRetrieval{
		result: &domain.RetrievalResult{
			Chunks: []domain.RetrievedChunk{
				{
					Chunk: domain.Chunk{
						ID:         domain.ChunkID("doc-1", 0),
						DocumentID: "doc-1",
						Content:    "Breadth first search visits vertices in layers.",
						Page:       2,
					},
					Score:  0.91,
					Rank:   1,
					Method: domain.MethodBoth,
				},
			},
		},
	}
	retrievalService = fake
	defer func() { retrievalService = original }()

	out, err := execute(t, "search", "bfs layers", "--top", "3", "--document", "doc-1")
	require.NoError(t, err)

	assert.Equal(t, "bfs layers", fake.lastQuery)
	assert.Equal(t, 3, fake.lastOpts.TopK)
	assert.Equal(t, "doc-1", fake.lastOpts.DocumentID)
	assert.Contains(t, out, "doc-1 p.2")
	assert.Contains(t, out, "both")
	assert.Contains(t, out, "Breadth first search")
}

func TestSearchCmd_DegradedWarning(t *testing.T) {
	original := retrievalService
	retrievalService = &fakeRetrieval{
		result: &domain.RetrievalResult{Degraded: true},
	}
	defer func() { retrievalService = original }()

	out, err := execute(t, "search", "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "Warning")
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSON(t *testing.T) {
	original := retrievalService
	retrievalService = &fakeRetrieval{
		result: &domain.RetrievalResult{
			Chunks: []domain.RetrievedChunk{
				{
					Chunk:  domain.Chunk{ID: domain.ChunkID("doc-1", 0), DocumentID: "doc-1"},
					Score:  0.5,
					Rank:   1,
					Method: domain.MethodDense,
				},
			},
		},
	}
	defer func() { retrievalService = original }()

	out, err := execute(t, "search", "anything", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"chunk_id": "doc-1-0000"`)
	assert.Contains(t, out, `"method": "dense"`)
}
