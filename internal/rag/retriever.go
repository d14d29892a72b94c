package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/docq-ai/docq-go/internal/logging"
)

// ErrInvalidUserID is returned when a user identifier is not a valid UUID.
var ErrInvalidUserID = errors.New("rag: invalid user id")

// snippetLen is the maximum length, in bytes, of a source snippet.
const snippetLen = 300

// DefaultTopK is the number of results returned when the caller passes 0.
const DefaultTopK = 8

// Retriever turns a user's query into ranked, citable context. It embeds the
// query, searches the user's index, then joins the hits against the record
// store so the text handed to the generator is the authoritative database
// copy, not the indexed snapshot.
type Retriever struct {
	embedder Embedder
	searcher Searcher
	records  RecordFetcher
	topK     int
}

// NewRetriever constructs a Retriever. defaultTopK sets the fallback result
// count when Retrieve is called with topK <= 0.
func NewRetriever(embedder Embedder, searcher Searcher, records RecordFetcher, defaultTopK int) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if searcher == nil {
		return nil, fmt.Errorf("rag: searcher must not be nil")
	}
	if records == nil {
		return nil, fmt.Errorf("rag: record fetcher must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		records:  records,
		topK:     defaultTopK,
	}, nil
}

// Retrieve returns ranked context for a user's query. A user with no index
// yields an empty Result, not an error. Hits whose database row has been
// deleted since indexing are dropped silently — the join against the record
// store is authoritative. When documentIDs is non-empty, results are limited
// to those documents.
func (r *Retriever) Retrieve(ctx context.Context, userID, query string, topK int, documentIDs []string) (Result, error) {
	log := logging.FromContext(ctx)

	uid, err := uuid.Parse(userID)
	if err != nil {
		return Result{}, fmt.Errorf("rag: parse user id %q: %w", userID, ErrInvalidUserID)
	}
	if topK <= 0 {
		topK = r.topK
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return Result{}, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return Result{}, fmt.Errorf("rag: embedder returned empty result for query")
	}

	hits, err := r.searcher.Search(ctx, uid, embeddings[0], topK, documentIDs)
	if err != nil {
		return Result{}, fmt.Errorf("rag: vector search failed: %w", err)
	}
	if len(hits) == 0 {
		return Result{}, nil
	}

	chunkIDs := make([]string, len(hits))
	for i, h := range hits {
		chunkIDs[i] = h.ChunkID
	}
	rows, err := r.records.FetchChunksByIDs(ctx, chunkIDs)
	if err != nil {
		return Result{}, fmt.Errorf("rag: fetch chunk records: %w", err)
	}

	var res Result
	for _, h := range hits {
		row, ok := rows[h.ChunkID]
		if !ok {
			continue
		}
		res.Contexts = append(res.Contexts, row.Text)
		res.Sources = append(res.Sources, Source{
			ID:         row.ChunkID,
			DocumentID: row.DocumentID,
			Filename:   row.Filename,
			Snippet:    Snippet(row.Text),
			Distance:   h.Distance,
		})
	}

	if dropped := len(hits) - len(res.Sources); dropped > 0 {
		log.Debug("rag: dropped hits with no database row",
			slog.String("user", userID),
			slog.Int("dropped", dropped),
		)
	}
	return res, nil
}

// Snippet truncates text to the display snippet length.
func Snippet(text string) string {
	if len(text) <= snippetLen {
		return text
	}
	return text[:snippetLen]
}
