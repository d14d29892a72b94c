package server

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/docq-ai/docq-go/internal/rag"
)

// LLMPinger probes an LLM backend by sending a minimal single-token generate
// request. It satisfies the Pinger interface and is used by GET /api/ready.
// Note that every probe consumes tokens on metered backends.
type LLMPinger struct {
	// model is the chat model to probe.
	model model.ChatModel //nolint:staticcheck // SA1019: model.ChatModel deprecated upstream; migration tracked separately
	// name identifies the backend in readiness responses (e.g. "ollama").
	name string
}

// NewLLMPinger constructs an LLMPinger for the given model and backend name.
func NewLLMPinger(m model.ChatModel, name string) *LLMPinger { //nolint:staticcheck // SA1019: model.ChatModel deprecated upstream; migration tracked separately
	return &LLMPinger{model: m, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping sends a single "ping" message to the backend and checks for a
// non-nil response.
func (p *LLMPinger) Ping(ctx context.Context) error {
	msgs := []*schema.Message{
		schema.UserMessage("ping"),
	}
	resp, err := p.model.Generate(ctx, msgs)
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("generate returned nil response")
	}
	return nil
}

// EmbedderPinger probes the embedding backend by embedding a single short
// string. Much cheaper than an LLM generate call, and it exercises the
// dependency the retrieval path actually needs.
type EmbedderPinger struct {
	// embedder is the embedding client to probe.
	embedder rag.Embedder
}

// NewEmbedderPinger constructs an EmbedderPinger for the given embedder.
func NewEmbedderPinger(e rag.Embedder) *EmbedderPinger {
	return &EmbedderPinger{embedder: e}
}

// Name returns the dependency label used in readiness responses.
func (p *EmbedderPinger) Name() string { return "embedder" }

// Ping embeds a single probe string and checks that a vector comes back.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	vecs, err := p.embedder.Embed(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return fmt.Errorf("embed returned no vector")
	}
	return nil
}

// dbPinger is the narrow interface satisfied by the SQLite-backed stores.
type dbPinger interface {
	Ping(ctx context.Context) error
}

// DBPinger probes a SQLite-backed store via its Ping method. It satisfies
// the Pinger interface and is used by GET /api/ready.
type DBPinger struct {
	// db is the store to probe.
	db dbPinger
	// name identifies the store in readiness responses (e.g. "records").
	name string
}

// NewDBPinger constructs a DBPinger for the given store and label.
func NewDBPinger(db dbPinger, name string) *DBPinger {
	return &DBPinger{db: db, name: name}
}

// Name returns the dependency label used in readiness responses.
func (p *DBPinger) Name() string { return p.name }

// Ping delegates to the store's own reachability check.
func (p *DBPinger) Ping(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}
