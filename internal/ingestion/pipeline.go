// Package ingestion implements the document ingestion pipeline: split an
// uploaded file into overlapping text chunks, embed each chunk, persist the
// rows in the record store, and add the vectors to the user's index.
// Invoked by the `docq ingest` CLI command and the document upload endpoint.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/docq-ai/docq-go/internal/index"
	"github.com/docq-ai/docq-go/internal/logging"
	"github.com/docq-ai/docq-go/internal/rag"
	"github.com/docq-ai/docq-go/internal/store"
)

// recordCreator is the record store surface the pipeline needs.
type recordCreator interface {
	CreateDocument(ctx context.Context, doc store.Document, chunks []store.Chunk) error
}

// vectorAdder is the index store surface the pipeline needs.
type vectorAdder interface {
	Add(ctx context.Context, userID uuid.UUID, vectors [][]float32, entries []index.Entry) error
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to DefaultChunkSize if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters to overlap between
	// consecutive chunks. Defaults to DefaultChunkOverlap if zero.
	ChunkOverlap int
}

// Pipeline orchestrates the chunk → embed → record → index flow for one
// uploaded document at a time.
type Pipeline struct {
	embedder rag.Embedder
	records  recordCreator
	vectors  vectorAdder
	cfg      *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, records recordCreator, vectors vectorAdder, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if records == nil {
		return nil, fmt.Errorf("ingestion: record store must not be nil")
	}
	if vectors == nil {
		return nil, fmt.Errorf("ingestion: index store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = DefaultChunkOverlap
	}

	return &Pipeline{
		embedder: embedder,
		records:  records,
		vectors:  vectors,
		cfg:      cfg,
	}, nil
}

// IngestDocument chunks, embeds, records, and indexes one document's text
// for a user. The record store row is written before the index so a failure
// between the two leaves a listed document whose chunks simply don't
// surface in search yet; re-uploading is always safe.
func (p *Pipeline) IngestDocument(ctx context.Context, userID uuid.UUID, filename, contentType string, content []byte) (store.Document, error) {
	log := logging.FromContext(ctx)

	chunks := Chunk(string(content), p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return store.Document{}, fmt.Errorf("ingestion: document %q has no extractable text", filename)
	}

	embeddings, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return store.Document{}, fmt.Errorf("ingestion: embedding %q failed: %w", filename, err)
	}
	if len(embeddings) != len(chunks) {
		return store.Document{}, fmt.Errorf("ingestion: expected %d embeddings for %q, got %d",
			len(chunks), filename, len(embeddings))
	}

	doc := store.Document{
		ID:          uuid.NewString(),
		UserID:      userID.String(),
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(content)),
		ChunkCount:  len(chunks),
		CreatedAt:   time.Now(),
	}

	rows := make([]store.Chunk, len(chunks))
	entries := make([]index.Entry, len(chunks))
	for i, text := range chunks {
		chunkID := uuid.NewString()
		rows[i] = store.Chunk{
			ID:         chunkID,
			DocumentID: doc.ID,
			Position:   i,
			Text:       text,
		}
		entries[i] = index.Entry{
			ChunkID:    chunkID,
			DocumentID: doc.ID,
			Filename:   filename,
			Text:       text,
		}
	}

	if err := p.records.CreateDocument(ctx, doc, rows); err != nil {
		return store.Document{}, fmt.Errorf("ingestion: record %q: %w", filename, err)
	}
	if err := p.vectors.Add(ctx, userID, embeddings, entries); err != nil {
		return store.Document{}, fmt.Errorf("ingestion: index %q: %w", filename, err)
	}

	log.Info("ingestion: document ingested",
		slog.String("user", userID.String()),
		slog.String("document", doc.ID),
		slog.String("filename", filename),
		slog.Int("chunks", len(chunks)),
	)
	return doc, nil
}

// IngestFile reads a file from disk and ingests it for the user. The
// filename recorded is the path's base name.
func (p *Pipeline) IngestFile(ctx context.Context, userID uuid.UUID, path string) (store.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return store.Document{}, fmt.Errorf("ingestion: read %s: %w", path, err)
	}
	return p.IngestDocument(ctx, userID, filepath.Base(path), "", content)
}
