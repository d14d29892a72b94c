// Package store provides the SQLite-backed record store for DocQ: the
// authoritative copy of every uploaded document and its text chunks. The
// vector index holds only a denormalized snapshot; retrieval joins back
// through this store so deleted documents disappear from answers immediately.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/docq-ai/docq-go/internal/rag"
)

// Document is an uploaded file's record row.
type Document struct {
	// ID is the document identifier (UUID string).
	ID string `json:"id"`
	// UserID is the owning user (UUID string).
	UserID string `json:"user_id"`
	// Filename is the original filename as uploaded.
	Filename string `json:"filename"`
	// ContentType is the declared MIME type, if any.
	ContentType string `json:"content_type,omitempty"`
	// SizeBytes is the raw upload size.
	SizeBytes int64 `json:"size_bytes"`
	// ChunkCount is the number of chunks the document was split into.
	ChunkCount int `json:"chunk_count"`
	// CreatedAt is when the document was ingested.
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is one slice of a document's text, in document order.
type Chunk struct {
	// ID is the chunk identifier (UUID string).
	ID string
	// DocumentID is the owning document.
	DocumentID string
	// Position is the chunk's zero-based order within the document.
	Position int
	// Text is the chunk content.
	Text string
}

// RecordStore is backed by a local SQLite database.
type RecordStore struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the record database.
// It resolves to ~/.docq/records.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".docq")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "records.db"), nil
}

// Open opens (or creates) a RecordStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*RecordStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &RecordStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *RecordStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
    id           TEXT    PRIMARY KEY,
    user_id      TEXT    NOT NULL,
    filename     TEXT    NOT NULL,
    content_type TEXT    NOT NULL DEFAULT '',
    size_bytes   INTEGER NOT NULL DEFAULT 0,
    chunk_count  INTEGER NOT NULL DEFAULT 0,
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_documents_user_created
    ON documents (user_id, created_at);

CREATE TABLE IF NOT EXISTS chunks (
    id           TEXT    PRIMARY KEY,
    document_id  TEXT    NOT NULL,
    position     INTEGER NOT NULL,
    text         TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_document_position
    ON chunks (document_id, position);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// CreateDocument persists a document row and all of its chunks in a single
// transaction, so a half-ingested document never appears in listings.
func (s *RecordStore) CreateDocument(ctx context.Context, doc Document, chunks []Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin create document: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	const insDoc = `INSERT INTO documents (id, user_id, filename, content_type, size_bytes, chunk_count, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insDoc,
		doc.ID, doc.UserID, doc.Filename, doc.ContentType, doc.SizeBytes, len(chunks), doc.CreatedAt.Unix(),
	); err != nil {
		return fmt.Errorf("store: insert document %s: %w", doc.ID, err)
	}

	const insChunk = `INSERT INTO chunks (id, document_id, position, text) VALUES (?, ?, ?, ?)`
	for _, c := range chunks {
		if _, err := tx.ExecContext(ctx, insChunk, c.ID, doc.ID, c.Position, c.Text); err != nil {
			return fmt.Errorf("store: insert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit create document: %w", err)
	}
	return nil
}

// ListDocuments returns a user's documents, newest first.
func (s *RecordStore) ListDocuments(ctx context.Context, userID string) ([]Document, error) {
	const q = `
SELECT id, user_id, filename, content_type, size_bytes, chunk_count, created_at
FROM   documents
WHERE  user_id = ?
ORDER  BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var ts int64
		if err := rows.Scan(&d.ID, &d.UserID, &d.Filename, &d.ContentType, &d.SizeBytes, &d.ChunkCount, &ts); err != nil {
			return nil, fmt.Errorf("store: list documents scan: %w", err)
		}
		d.CreatedAt = time.Unix(ts, 0)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list documents rows: %w", err)
	}
	return docs, nil
}

// GetDocument returns one of a user's documents, or sql.ErrNoRows wrapped if
// the document does not exist or belongs to someone else.
func (s *RecordStore) GetDocument(ctx context.Context, userID, documentID string) (Document, error) {
	const q = `
SELECT id, user_id, filename, content_type, size_bytes, chunk_count, created_at
FROM   documents
WHERE  id = ? AND user_id = ?`

	var d Document
	var ts int64
	err := s.db.QueryRowContext(ctx, q, documentID, userID).
		Scan(&d.ID, &d.UserID, &d.Filename, &d.ContentType, &d.SizeBytes, &d.ChunkCount, &ts)
	if err != nil {
		return Document{}, fmt.Errorf("store: get document %s: %w", documentID, err)
	}
	d.CreatedAt = time.Unix(ts, 0)
	return d, nil
}

// DeleteDocument removes a user's document and its chunks. Returns true when
// a document row was actually deleted.
func (s *RecordStore) DeleteDocument(ctx context.Context, userID, documentID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("store: begin delete document: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND user_id = ?`, documentID, userID)
	if err != nil {
		return false, fmt.Errorf("store: delete document %s: %w", documentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: delete document rows affected: %w", err)
	}
	if n > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
			return false, fmt.Errorf("store: delete chunks of %s: %w", documentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("store: commit delete document: %w", err)
	}
	return n > 0, nil
}

// FetchChunksByIDs returns the chunk rows for the given chunk IDs joined with
// their document's filename, keyed by chunk ID. IDs with no matching row are
// absent from the map. Implements rag.RecordFetcher.
func (s *RecordStore) FetchChunksByIDs(ctx context.Context, chunkIDs []string) (map[string]rag.ChunkRecord, error) {
	if len(chunkIDs) == 0 {
		return map[string]rag.ChunkRecord{}, nil
	}

	placeholders := strings.Repeat("?,", len(chunkIDs))
	placeholders = placeholders[:len(placeholders)-1]
	q := fmt.Sprintf(`
SELECT c.id, c.document_id, d.filename, c.text
FROM   chunks c
JOIN   documents d ON d.id = c.document_id
WHERE  c.id IN (%s)`, placeholders)

	args := make([]any, len(chunkIDs))
	for i, id := range chunkIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: fetch chunks: %w", err)
	}
	defer rows.Close()

	out := make(map[string]rag.ChunkRecord, len(chunkIDs))
	for rows.Next() {
		var r rag.ChunkRecord
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Filename, &r.Text); err != nil {
			return nil, fmt.Errorf("store: fetch chunks scan: %w", err)
		}
		out[r.ChunkID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: fetch chunks rows: %w", err)
	}
	return out, nil
}

// Ping reports whether the underlying database is reachable.
func (s *RecordStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database connection pool.
func (s *RecordStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
