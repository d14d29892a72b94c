package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/docq-ai/docq-go/internal/agent"
	"github.com/docq-ai/docq-go/internal/analytics"
	"github.com/docq-ai/docq-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Must cover a full agent run including generation.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server's Prometheus metric registrations.
	// If nil, prometheus.DefaultRegisterer is used. Tests inject a fresh
	// registry here to stay hermetic.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. If nil, prometheus.DefaultGatherer
	// is used.
	MetricsGatherer prometheus.Gatherer
}

// queryRunner is the interface handleQuery calls to run an agent query.
// *agent.Orchestrator satisfies it; tests inject a fake.
type queryRunner interface {
	Run(ctx context.Context, userID, query string, mode agent.Mode, documentIDs []string) *agent.Outcome
}

// documentIngester is the interface handleDocumentUpload calls to ingest
// an uploaded file. *ingestion.Pipeline satisfies it.
type documentIngester interface {
	IngestDocument(ctx context.Context, userID uuid.UUID, filename, contentType string, content []byte) (store.Document, error)
}

// documentStore is the slice of *store.RecordStore the document handlers use.
type documentStore interface {
	ListDocuments(ctx context.Context, userID string) ([]store.Document, error)
	GetDocument(ctx context.Context, userID, documentID string) (store.Document, error)
	DeleteDocument(ctx context.Context, userID, documentID string) (bool, error)
}

// vectorIndex is the slice of *index.Store the index handlers use.
type vectorIndex interface {
	Stats(ctx context.Context, userID uuid.UUID) (count, dim int, err error)
	Wipe(ctx context.Context, userID uuid.UUID) error
	DeleteDocument(ctx context.Context, userID uuid.UUID, documentID string) (int, error)
}

// analyticsReader is the slice of *analytics.Recorder the analytics handler
// uses. A nil reader means analytics is disabled.
type analyticsReader interface {
	UserOverview(ctx context.Context, userID string) (analytics.Overview, error)
	RecentQueries(ctx context.Context, userID string, n int) ([]string, error)
}

// Deps bundles the domain components the server exposes over HTTP.
type Deps struct {
	// Agent runs queries. Required.
	Agent queryRunner
	// Ingester ingests uploaded documents. Required.
	Ingester documentIngester
	// Documents is the canonical document/chunk record store. Required.
	Documents documentStore
	// Index is the per-user vector index store. Required.
	Index vectorIndex
	// Analytics serves the analytics overview. Optional; nil disables the
	// analytics endpoint.
	Analytics analyticsReader
}

// Server is the HTTP server that exposes the agent, ingestion pipeline,
// document records, vector index, and analytics as a REST API.
type Server struct {
	// deps holds the domain components behind the handlers.
	deps Deps
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the server's Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// UserID is the querying user's UUID.
	UserID string `json:"user_id"`
	// Query is the user's natural language question.
	Query string `json:"query"`
	// Mode selects the orchestration strategy. Unknown values fall back
	// to "default".
	Mode string `json:"agent_mode,omitempty"`
	// DocumentIDs optionally restricts retrieval to the listed documents.
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// documentListResponse is the JSON response for GET /api/documents.
type documentListResponse struct {
	// Documents is the user's document list, newest first.
	Documents []store.Document `json:"documents"`
}

// documentDeleteResponse is the JSON response for DELETE /api/documents/{id}.
type documentDeleteResponse struct {
	// Deleted is true when a document row was removed.
	Deleted bool `json:"deleted"`
	// VectorsRemoved is the number of index vectors removed by the rebuild.
	VectorsRemoved int `json:"vectors_removed"`
}

// indexStatsResponse is the JSON response for GET /api/index/stats.
type indexStatsResponse struct {
	// Count is the number of vectors in the user's index.
	Count int `json:"count"`
	// Dimension is the index's fixed vector dimensionality.
	Dimension int `json:"dimension"`
}

// analyticsOverviewResponse is the JSON response for GET /api/analytics/overview.
type analyticsOverviewResponse struct {
	analytics.Overview
	// RecentQueries lists the user's most recent query texts, newest first.
	RecentQueries []string `json:"recent_queries"`
}

// errorResponse is the JSON body for all non-2xx API responses.
type errorResponse struct {
	// Error is a human-readable description of the failure.
	Error string `json:"error"`
}
