// Package index implements the per-user vector index store backing retrieval.
// Each user owns one exact L2 (flat) index plus a parallel metadata list,
// cached in memory and persisted as two files: an opaque index file and a
// JSON metadata sidecar. All public operations keep the invariant that the
// metadata list and the index hold the same number of entries.
package index

import "errors"

// ErrNotFound is returned when a user has no index on disk or in cache and
// the operation cannot create one (no dimension available).
var ErrNotFound = errors.New("index: not found")

// ErrArityMismatch is returned by Add when the vectors and metadata slices
// have different lengths. This is a programmer error and fails loudly.
var ErrArityMismatch = errors.New("index: vectors/metadata arity mismatch")

// ErrDimensionMismatch is returned when a vector's dimension disagrees with
// the index's fixed dimension (or with the other vectors in the same batch).
var ErrDimensionMismatch = errors.New("index: vector dimension mismatch")

// Entry is the metadata record stored alongside each vector. The index never
// inspects these fields; they exist solely to reconstruct search results.
// Position in the metadata list is the entry's identity — it matches the
// backing vector's slot and entries are never reordered.
type Entry struct {
	// ChunkID is the canonical chunk identifier (UUID string).
	ChunkID string `json:"chunk_id"`
	// DocumentID is the owning document's identifier (UUID string).
	DocumentID string `json:"document_id"`
	// Filename is the original filename of the source document.
	Filename string `json:"filename"`
	// Text is the chunk text as it was indexed.
	Text string `json:"text"`
}

// Hit is a single search result: the matched entry plus its L2 distance
// from the query vector (squared Euclidean, nearest first).
type Hit struct {
	Entry
	// Distance is the squared L2 distance between the query and the match.
	Distance float32
}
