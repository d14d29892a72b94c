// Package analytics records per-query usage events in their own SQLite
// database. Recording is best-effort by contract: the orchestrator logs and
// discards any error from here, so a broken analytics database never blocks
// answering queries.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Event is one answered query's usage record.
type Event struct {
	// UserID is the querying user (UUID string).
	UserID string
	// Query is the raw query text.
	Query string
	// Mode is the agent mode the query ran under.
	Mode string
	// LatencyMS is the end-to-end handling time in milliseconds.
	LatencyMS float64
	// PromptTokens, CompletionTokens and TotalTokens mirror the provider's
	// token accounting for the whole query (summed across calls).
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	// SourceDocumentIDs lists the documents cited in the answer.
	SourceDocumentIDs []string
	// CreatedAt is when the event happened. Zero means now.
	CreatedAt time.Time
}

// Overview aggregates a user's recorded events.
type Overview struct {
	TotalQueries int            `json:"total_queries"`
	AvgLatencyMS float64        `json:"avg_latency_ms"`
	TotalTokens  int            `json:"total_tokens"`
	ByMode       map[string]int `json:"by_mode"`
}

// Recorder persists events to a local SQLite database.
type Recorder struct {
	db *sql.DB
}

// Open opens (or creates) a Recorder at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Recorder, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("analytics: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	r := &Recorder{db: db}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// migrate creates the schema if it does not already exist.
func (r *Recorder) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS query_events (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id           TEXT    NOT NULL,
    query             TEXT    NOT NULL,
    mode              TEXT    NOT NULL,
    latency_ms        REAL    NOT NULL,
    prompt_tokens     INTEGER NOT NULL DEFAULT 0,
    completion_tokens INTEGER NOT NULL DEFAULT 0,
    total_tokens      INTEGER NOT NULL DEFAULT 0,
    source_documents  TEXT    NOT NULL DEFAULT '',
    created_at        INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_query_events_user_created
    ON query_events (user_id, created_at);
`
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("analytics: migrate: %w", err)
	}
	return nil
}

// Record persists a single event.
func (r *Recorder) Record(ctx context.Context, ev Event) error {
	when := ev.CreatedAt
	if when.IsZero() {
		when = time.Now()
	}
	const q = `INSERT INTO query_events
(user_id, query, mode, latency_ms, prompt_tokens, completion_tokens, total_tokens, source_documents, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		ev.UserID, ev.Query, ev.Mode, ev.LatencyMS,
		ev.PromptTokens, ev.CompletionTokens, ev.TotalTokens,
		strings.Join(ev.SourceDocumentIDs, ","), when.Unix(),
	)
	if err != nil {
		return fmt.Errorf("analytics: record: %w", err)
	}
	return nil
}

// UserOverview aggregates the given user's events. A user with no events
// yields a zero Overview, not an error.
func (r *Recorder) UserOverview(ctx context.Context, userID string) (Overview, error) {
	ov := Overview{ByMode: map[string]int{}}

	const agg = `
SELECT COUNT(*), COALESCE(AVG(latency_ms), 0), COALESCE(SUM(total_tokens), 0)
FROM   query_events
WHERE  user_id = ?`
	if err := r.db.QueryRowContext(ctx, agg, userID).
		Scan(&ov.TotalQueries, &ov.AvgLatencyMS, &ov.TotalTokens); err != nil {
		return Overview{}, fmt.Errorf("analytics: overview: %w", err)
	}

	const byMode = `
SELECT mode, COUNT(*)
FROM   query_events
WHERE  user_id = ?
GROUP  BY mode`
	rows, err := r.db.QueryContext(ctx, byMode, userID)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics: overview by mode: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mode string
		var n int
		if err := rows.Scan(&mode, &n); err != nil {
			return Overview{}, fmt.Errorf("analytics: overview scan: %w", err)
		}
		ov.ByMode[mode] = n
	}
	if err := rows.Err(); err != nil {
		return Overview{}, fmt.Errorf("analytics: overview rows: %w", err)
	}
	return ov, nil
}

// RecentQueries returns the user's most recent n query texts, newest first.
func (r *Recorder) RecentQueries(ctx context.Context, userID string, n int) ([]string, error) {
	const q = `
SELECT query
FROM   query_events
WHERE  user_id = ?
ORDER  BY created_at DESC, id DESC
LIMIT  ?`
	rows, err := r.db.QueryContext(ctx, q, userID, n)
	if err != nil {
		return nil, fmt.Errorf("analytics: recent queries: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("analytics: recent queries scan: %w", err)
		}
		queries = append(queries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics: recent queries rows: %w", err)
	}
	return queries, nil
}

// Ping reports whether the underlying database is reachable.
func (r *Recorder) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the database connection pool.
func (r *Recorder) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("analytics: close: %w", err)
	}
	return nil
}
