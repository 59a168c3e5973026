// Package domain defines the core business entities for Lectern.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested lecture document with processing status
//   - Chunk: A token-bounded, retrieval-ready span of document text
//   - RetrievedChunk: A scored chunk returned by hybrid retrieval
//   - Quiz / Question: Generated quiz content as tagged variants
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
