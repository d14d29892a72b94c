package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"

	"github.com/docq-ai/docq-go/internal/agent"
	"github.com/docq-ai/docq-go/internal/analytics"
	"github.com/docq-ai/docq-go/internal/config"
	"github.com/docq-ai/docq-go/internal/embedder"
	"github.com/docq-ai/docq-go/internal/index"
	"github.com/docq-ai/docq-go/internal/ingestion"
	"github.com/docq-ai/docq-go/internal/provider"
	"github.com/docq-ai/docq-go/internal/rag"
	"github.com/docq-ai/docq-go/internal/store"
)

// components bundles the wired application graph shared by the ask, ingest,
// and serve commands.
type components struct {
	// settings is the resolved runtime configuration.
	settings *config.Settings
	// chatModel is the raw eino chat model, used by serve's LLM pinger.
	chatModel model.ChatModel //nolint:staticcheck // SA1019: model.ChatModel deprecated upstream; migration tracked separately
	// embedder is the embedding backend client.
	embedder rag.Embedder
	// indexStore is the per-user vector index store.
	indexStore *index.Store
	// records is the canonical document/chunk store.
	records *store.RecordStore
	// recorder is the analytics event store. Nil when analytics is disabled.
	recorder *analytics.Recorder
	// orchestrator runs queries end to end.
	orchestrator *agent.Orchestrator
	// pipeline ingests documents.
	pipeline *ingestion.Pipeline
}

// Close releases the component stores. Safe to call on a partially
// initialised graph.
func (c *components) Close() {
	if c.records != nil {
		_ = c.records.Close()
	}
	if c.recorder != nil {
		_ = c.recorder.Close()
	}
}

// buildComponents resolves configuration from the environment and wires the
// full application graph: embedder, index store, record store, analytics,
// retrieval engine, chat model, orchestrator, and ingestion pipeline.
// The caller owns the returned components and must Close them.
func buildComponents(ctx context.Context, log *slog.Logger) (*components, error) {
	st, err := config.Resolve()
	if err != nil {
		return nil, err
	}

	c := &components{settings: st}

	embedder.WarnIfChatModel(log, st.Embedding.Model)
	c.embedder, err = embedder.New(&st.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised",
		slog.String("backend", st.Embedding.Backend),
		slog.String("model", st.Embedding.Model),
	)

	c.indexStore, err = index.NewStore(st.IndexDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}

	c.records, err = store.Open(st.RecordsDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	if st.AnalyticsEnabled() {
		c.recorder, err = analytics.Open(st.AnalyticsDB)
		if err != nil {
			// Analytics is best-effort end to end; a broken analytics DB
			// must not block queries or ingestion.
			log.Warn("analytics: failed to open store, disabling", slog.Any("error", err))
			c.recorder = nil
		}
	} else {
		log.Info("analytics disabled via DOCQ_ANALYTICS_DB=disabled")
	}

	retriever, err := rag.NewRetriever(c.embedder, c.indexStore, c.records, st.TopK)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialise retrieval engine: %w", err)
	}

	c.chatModel, err = provider.New(ctx, &st.Provider)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	log.Info("provider initialised", slog.String("backend", string(st.Provider.Backend)))

	generator, err := provider.NewGenerator(c.chatModel)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialise generator: %w", err)
	}

	agentCfg := &agent.Config{
		Retriever:        retriever,
		Generator:        generator,
		TopK:             st.TopK,
		MaxContextTokens: st.MaxContextTokens,
		GenerateTimeout:  st.GenerateTimeout,
	}
	if c.recorder != nil {
		agentCfg.Analytics = c.recorder
	}
	c.orchestrator, err = agent.New(agentCfg)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialise agent: %w", err)
	}

	c.pipeline, err = ingestion.NewPipeline(c.embedder, c.records, c.indexStore, &ingestion.Config{
		ChunkSize:    st.ChunkSize,
		ChunkOverlap: st.ChunkOverlap,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialise ingestion pipeline: %w", err)
	}

	return c, nil
}
