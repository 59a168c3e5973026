package domain

// RetrievalMethod identifies which search leg produced a result.
type RetrievalMethod string

const (
	// MethodDense means the chunk came from vector similarity search only.
	MethodDense RetrievalMethod = "dense"

	// MethodLexical means the chunk came from BM25 keyword search only.
	MethodLexical RetrievalMethod = "lexical"

	// MethodBoth means the chunk appeared in both result sets.
	// Such chunks always rank above single-source chunks.
	MethodBoth RetrievalMethod = "both"
)

// RetrieveOptions configures a hybrid retrieval request.
type RetrieveOptions struct {
	// TopK is the maximum number of results (default 10).
	TopK int

	// DocumentID restricts retrieval to a single document.
	// Empty means the whole corpus.
	DocumentID string

	// Page restricts the dense leg to a single page. Zero means no filter.
	Page int

	// ScoreThreshold excludes dense results scoring below it.
	// Zero means rank everything and let TopK bound the result size.
	ScoreThreshold float64
}

// RetrievedChunk is a single hybrid retrieval result.
type RetrievedChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the originating score: cosine similarity for dense,
	// BM25 for lexical. For MethodBoth the dense score is kept.
	Score float64

	// Rank is 1-based, assigned after the final merge.
	Rank int

	// Method tags which legs produced this result.
	Method RetrievalMethod
}

// RetrievalResult is the outcome of one hybrid retrieval call.
type RetrievalResult struct {
	// Chunks is the merged, ranked candidate list.
	Chunks []RetrievedChunk

	// Degraded is true when one retrieval leg was unavailable and the
	// result was produced from the other leg alone.
	Degraded bool
}
