// Package rag defines the types and interfaces for retrieval-augmented
// generation: query embedding, per-user vector search, and the record store
// join that turns raw index hits into citable sources. Concrete
// implementations live in the index, embedder, and store packages; the agent
// layer depends only on what is defined here.
package rag

import (
	"context"

	"github.com/google/uuid"

	"github.com/docq-ai/docq-go/internal/index"
)

// Source is a citation attached to a generated answer: where a piece of
// retrieved context came from and how close it was to the query.
type Source struct {
	// ID is the chunk identifier (UUID string).
	ID string `json:"id"`

	// DocumentID is the owning document's identifier.
	DocumentID string `json:"document_id"`

	// Filename is the original filename of the source document.
	Filename string `json:"filename"`

	// Snippet is a preview of the chunk text, truncated for display.
	Snippet string `json:"snippet"`

	// Distance is the squared L2 distance from the query embedding.
	// Smaller is closer.
	Distance float32 `json:"distance"`
}

// Result is the outcome of one retrieval: the full-text contexts handed to
// the generator and the parallel source citations returned to the caller.
// Contexts[i] and Sources[i] describe the same chunk.
type Result struct {
	Contexts []string `json:"-"`
	Sources  []Source `json:"sources"`
}

// TokenUsage is the token accounting for one or more generation calls.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage record field-wise.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkRecord is the authoritative chunk row fetched from the record store,
// joined with its document's filename.
type ChunkRecord struct {
	ChunkID    string
	DocumentID string
	Filename   string
	Text       string
}

// RecordFetcher resolves index hits to their authoritative database rows.
// Implementations must be safe to call from multiple goroutines.
type RecordFetcher interface {
	// FetchChunksByIDs returns the chunk rows for the given chunk IDs,
	// keyed by chunk ID. IDs with no matching row are simply absent from
	// the map; that is not an error.
	FetchChunksByIDs(ctx context.Context, chunkIDs []string) (map[string]ChunkRecord, error)
}

// Searcher is the per-user vector search surface the retriever depends on.
// The index store satisfies it.
type Searcher interface {
	Search(ctx context.Context, userID uuid.UUID, query []float32, topK int, filterDocIDs []string) ([]index.Hit, error)
}
