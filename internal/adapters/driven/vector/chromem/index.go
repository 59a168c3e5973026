// Package chromem implements the vector index port on top of
// chromem-go, an embedded vector database. Vectors are computed by the
// embedding adapter and handed in pre-built, so the collection's own
// embedding hook is never used.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/lectern-dev/lectern/internal/core/domain"
	"github.com/lectern-dev/lectern/internal/core/ports/driven"
)

// upsertBatchSize bounds how many documents go into one AddDocuments
// call.
const upsertBatchSize = 100

// Metadata keys stored alongside each vector.
const (
	metaDocumentID = "document_id"
	metaPage       = "page"
	metaOrdinal    = "ordinal"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// errExternalEmbeddings trips if chromem ever tries to embed text
// itself, which would mean a document was added without a vector.
var errExternalEmbeddings = errors.New("collection expects precomputed embeddings")

// Index stores chunk embeddings in a chromem-go collection with a
// fixed dimension. The collection is created lazily on first use and
// never recreated or resized.
type Index struct {
	db         *chromemgo.DB
	name       string
	dimensions int

	mu   sync.Mutex
	coll *chromemgo.Collection
}

// NewIndex creates an in-memory vector index for vectors of the given
// dimension.
func NewIndex(collection string, dimensions int) *Index {
	return &Index{
		db:         chromemgo.NewDB(),
		name:       collection,
		dimensions: dimensions,
	}
}

// NewPersistentIndex creates a vector index backed by an on-disk
// chromem database, so the collection survives restarts.
func NewPersistentIndex(path, collection string, dimensions int) (*Index, error) {
	db, err := chromemgo.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("%w: opening vector store at %s: %v",
			domain.ErrVectorIndexUnavailable, path, err)
	}
	return &Index{
		db:         db,
		name:       collection,
		dimensions: dimensions,
	}, nil
}

// collection returns the lazily created collection.
func (x *Index) collection() (*chromemgo.Collection, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.coll != nil {
		return x.coll, nil
	}
	coll, err := x.db.GetOrCreateCollection(x.name, nil,
		func(ctx context.Context, text string) ([]float32, error) {
			return nil, errExternalEmbeddings
		})
	if err != nil {
		return nil, fmt.Errorf("%w: creating collection %s: %v",
			domain.ErrVectorIndexUnavailable, x.name, err)
	}
	x.coll = coll
	return coll, nil
}

// Upsert stores a document's embedded chunks in fixed-size batches.
// Each batch completes before the next starts, so a search issued
// after Upsert returns sees all the new vectors.
func (x *Index) Upsert(ctx context.Context, documentID string, chunks []driven.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromemgo.Document, 0, len(chunks))
	for _, ec := range chunks {
		if len(ec.Vector) != x.dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, index expects %d",
				domain.ErrDimensionMismatch, ec.Chunk.ID, len(ec.Vector), x.dimensions)
		}
		docs = append(docs, chromemgo.Document{
			ID:        ec.Chunk.ID,
			Embedding: ec.Vector,
			Content:   ec.Chunk.Content,
			Metadata: map[string]string{
				metaDocumentID: documentID,
				metaPage:       strconv.Itoa(ec.Chunk.Page),
				metaOrdinal:    strconv.Itoa(ec.Chunk.Ordinal),
			},
		})
	}

	coll, err := x.collection()
	if err != nil {
		return err
	}

	for start := 0; start < len(docs); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := coll.AddDocuments(ctx, docs[start:end], runtime.NumCPU()); err != nil {
			return fmt.Errorf("%w: storing vectors for %s: %v",
				domain.ErrVectorIndexUnavailable, documentID, err)
		}
	}
	return nil
}

// Search finds the topK nearest chunks by cosine similarity. Metadata
// filters apply before the score threshold; a zero threshold ranks
// everything.
func (x *Index) Search(ctx context.Context, query []float32, filter driven.VectorFilter, topK int, scoreThreshold float64) ([]driven.VectorHit, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index expects %d",
			domain.ErrDimensionMismatch, len(query), x.dimensions)
	}
	if topK <= 0 {
		return []driven.VectorHit{}, nil
	}

	coll, err := x.collection()
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults above the collection size.
	if count := coll.Count(); count == 0 {
		return []driven.VectorHit{}, nil
	} else if topK > count {
		topK = count
	}

	var where map[string]string
	if filter.DocumentID != "" || filter.Page != 0 {
		where = make(map[string]string, 2)
		if filter.DocumentID != "" {
			where[metaDocumentID] = filter.DocumentID
		}
		if filter.Page != 0 {
			where[metaPage] = strconv.Itoa(filter.Page)
		}
	}

	results, err := coll.QueryEmbedding(ctx, query, topK, where, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %v",
			domain.ErrVectorIndexUnavailable, err)
	}

	hits := make([]driven.VectorHit, 0, len(results))
	for _, r := range results {
		score := float64(r.Similarity)
		if scoreThreshold > 0 && score < scoreThreshold {
			continue
		}
		page, _ := strconv.Atoi(r.Metadata[metaPage])
		ordinal, _ := strconv.Atoi(r.Metadata[metaOrdinal])
		hits = append(hits, driven.VectorHit{
			ChunkID:    r.ID,
			Score:      score,
			DocumentID: r.Metadata[metaDocumentID],
			Page:       page,
			Ordinal:    ordinal,
		})
	}
	return hits, nil
}

// DeleteByDocument removes all of a document's vectors with one
// metadata-filtered delete.
func (x *Index) DeleteByDocument(ctx context.Context, documentID string) error {
	coll, err := x.collection()
	if err != nil {
		return err
	}
	if coll.Count() == 0 {
		return nil
	}
	if err := coll.Delete(ctx, map[string]string{metaDocumentID: documentID}, nil); err != nil {
		return fmt.Errorf("%w: deleting vectors for %s: %v",
			domain.ErrVectorIndexUnavailable, documentID, err)
	}
	return nil
}

// Close releases the collection reference. The embedded database has
// no connection to tear down.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.coll = nil
	return nil
}
