package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docq-ai/docq-go/internal/analytics"
	"github.com/docq-ai/docq-go/internal/budget"
	"github.com/docq-ai/docq-go/internal/logging"
	"github.com/docq-ai/docq-go/internal/rag"
)

// generationFallback is the answer returned when every generation attempt
// for a query failed. The query as a whole still succeeds: retrieval results
// and sources are returned so the caller sees what was found.
const generationFallback = "The language model backend is currently unavailable. " +
	"Your query was processed and relevant documents were retrieved, but no " +
	"answer could be generated. Please try again shortly."

// Retriever fetches ranked document context for a user's query.
type Retriever interface {
	Retrieve(ctx context.Context, userID, query string, topK int, documentIDs []string) (rag.Result, error)
}

// Generator produces one answer for one prompt, with token accounting.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, rag.TokenUsage, error)
}

// Recorder persists per-query usage events.
type Recorder interface {
	Record(ctx context.Context, ev analytics.Event) error
}

// Config holds the dependencies and tuning for an Orchestrator.
type Config struct {
	// Retriever fetches document context. Required.
	Retriever Retriever

	// Generator is the LLM surface. Required.
	Generator Generator

	// Analytics records query events. May be nil to disable recording.
	Analytics Recorder

	// TopK is how many context chunks to retrieve per query.
	// Defaults to 8 if zero.
	TopK int

	// MaxContextTokens is the estimated token budget for the assembled
	// prompt. Context chunks are dropped farthest-first to fit.
	// Defaults to budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int

	// GenerateTimeout bounds each individual generation call.
	// Defaults to 60s if zero.
	GenerateTimeout time.Duration
}

// Outcome is the complete result of one orchestrated query. Run always
// returns a usable Outcome: generation failures degrade to a fallback
// answer rather than an error.
type Outcome struct {
	// Answer is the generated (or fallback) answer text.
	Answer string `json:"answer"`
	// Sources cites the context chunks used, nearest first.
	Sources []rag.Source `json:"sources"`
	// Usage sums token accounting across every generation call made.
	Usage rag.TokenUsage `json:"token_usage"`
	// Mode is the agent mode the query actually ran under.
	Mode Mode `json:"agent_mode"`
	// LatencyMS is the end-to-end handling time in milliseconds.
	LatencyMS float64 `json:"latency_ms"`
}

// Orchestrator runs queries end to end: retrieve, budget, prompt, generate,
// account, record.
type Orchestrator struct {
	retriever Retriever
	generator Generator
	analytics Recorder

	topK             int
	maxContextTokens int
	generateTimeout  time.Duration
}

// New constructs an Orchestrator from the provided Config.
func New(cfg *Config) (*Orchestrator, error) {
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("agent: retriever must not be nil")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("agent: generator must not be nil")
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 8
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}
	timeout := cfg.GenerateTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Orchestrator{
		retriever:        cfg.Retriever,
		generator:        cfg.Generator,
		analytics:        cfg.Analytics,
		topK:             topK,
		maxContextTokens: maxCtx,
		generateTimeout:  timeout,
	}, nil
}

// Run executes one query under the given mode. It never returns an error:
// retrieval failures degrade to answering without context, and generation
// failures degrade to a fallback answer with zero usage for the failed call.
// When documentIDs is non-empty, retrieval is limited to those documents.
func (o *Orchestrator) Run(ctx context.Context, userID, query string, mode Mode, documentIDs []string) *Outcome {
	log := logging.FromContext(ctx)
	start := time.Now()

	if !mode.Valid() {
		mode = ModeDefault
	}

	res, err := o.retriever.Retrieve(ctx, userID, query, o.topK, documentIDs)
	if err != nil {
		log.Warn("agent: retrieval failed, continuing without context",
			slog.String("user", userID),
			slog.Any("error", err),
		)
		res = rag.Result{}
	}

	// Drop the farthest snippets if the assembled prompt would overrun the
	// context budget. The scaffolding estimate uses an empty-context prompt.
	res, dropped := budget.TrimContexts(res, BuildPrompt(query, nil, mode), o.maxContextTokens)
	if dropped > 0 {
		log.Info("agent: trimmed context to fit token budget",
			slog.Int("dropped", dropped),
			slog.Int("kept", len(res.Contexts)),
		)
	}

	outcome := &Outcome{Mode: mode, Sources: res.Sources}

	switch mode {
	case ModeResearch:
		o.runResearch(ctx, query, res.Contexts, outcome)
	case ModeSummarizer:
		o.runSingle(ctx, summarizerQuery(query), res.Contexts, outcome)
	case ModeBrainstorm:
		o.runSingle(ctx, brainstormQuery(query), res.Contexts, outcome)
	default:
		o.runSingle(ctx, query, res.Contexts, outcome)
	}

	outcome.LatencyMS = float64(time.Since(start)) / float64(time.Millisecond)

	o.record(ctx, userID, query, outcome)
	return outcome
}

// runSingle is the one-call flow shared by default, summarizer, and
// brainstorm modes.
func (o *Orchestrator) runSingle(ctx context.Context, promptQuery string, contexts []string, outcome *Outcome) {
	prompt := BuildPrompt(promptQuery, contexts, outcome.Mode)
	answer, usage, ok := o.generate(ctx, prompt)
	if !ok {
		outcome.Answer = generationFallback
		return
	}
	outcome.Answer = answer
	outcome.Usage.Add(usage)
}

// runResearch executes the fixed research plan: one generation call per step
// over the shared retrieved context, then a synthesis call that merges the
// sub-answers. A failed step contributes a fallback sub-answer and the run
// continues; only a failed synthesis falls back for the whole query.
func (o *Orchestrator) runResearch(ctx context.Context, query string, contexts []string, outcome *Outcome) {
	steps := PlanResearchSteps(query)
	subAnswers := make([]string, 0, len(steps))

	for _, step := range steps {
		stepPrompt := BuildPrompt(step, contexts, ModeResearch)
		stepAnswer, stepUsage, ok := o.generate(ctx, stepPrompt)
		if !ok {
			stepAnswer = generationFallback
		} else {
			outcome.Usage.Add(stepUsage)
		}
		subAnswers = append(subAnswers, fmt.Sprintf("Sub-question: %s\nAnswer:\n%s\n", step, stepAnswer))
	}

	answer, synthUsage, ok := o.generate(ctx, buildSynthesisPrompt(query, subAnswers))
	if !ok {
		outcome.Answer = generationFallback
		return
	}
	outcome.Answer = answer
	outcome.Usage.Add(synthUsage)
}

// generate runs one bounded generation call. Failures are logged and
// reported via ok=false; the caller decides how to degrade.
func (o *Orchestrator) generate(ctx context.Context, prompt string) (string, rag.TokenUsage, bool) {
	genCtx, cancel := context.WithTimeout(ctx, o.generateTimeout)
	defer cancel()

	answer, usage, err := o.generator.Generate(genCtx, prompt)
	if err != nil {
		logging.FromContext(ctx).Warn("agent: generation call failed", slog.Any("error", err))
		return "", rag.TokenUsage{}, false
	}
	return answer, usage, true
}

// record persists the query event. Recording is best-effort: failures are
// logged and discarded so analytics can never break answering.
func (o *Orchestrator) record(ctx context.Context, userID, query string, outcome *Outcome) {
	if o.analytics == nil {
		return
	}

	seen := make(map[string]bool, len(outcome.Sources))
	var docIDs []string
	for _, src := range outcome.Sources {
		if src.DocumentID == "" || seen[src.DocumentID] {
			continue
		}
		seen[src.DocumentID] = true
		docIDs = append(docIDs, src.DocumentID)
	}

	ev := analytics.Event{
		UserID:            userID,
		Query:             query,
		Mode:              string(outcome.Mode),
		LatencyMS:         outcome.LatencyMS,
		PromptTokens:      outcome.Usage.PromptTokens,
		CompletionTokens:  outcome.Usage.CompletionTokens,
		TotalTokens:       outcome.Usage.TotalTokens,
		SourceDocumentIDs: docIDs,
	}
	if err := o.analytics.Record(ctx, ev); err != nil {
		logging.FromContext(ctx).Warn("agent: failed to record analytics", slog.Any("error", err))
	}
}
