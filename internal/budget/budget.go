// Package budget provides token budget estimation and context trimming for
// the DocQ orchestrator. Because DocQ supports multiple LLM backends with
// different tokenizers, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose and code). This
// deliberately under-estimates token counts to leave headroom for
// model-specific overhead.
package budget

import (
	"github.com/docq-ai/docq-go/internal/rag"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English and code; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models (Llama 3 8B,
	// GPT-3.5) while leaving room for the output. Override via
	// Config.MaxContextTokens.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// TrimContexts drops retrieved context snippets until the estimated token
// count of the prompt scaffolding plus the remaining snippets fits within
// maxTokens. Snippets arrive nearest-first, so trimming removes from the
// end: the farthest (least relevant) snippets go first.
//
// Returns the trimmed result and the number of snippets dropped. Sources are
// trimmed in lockstep with contexts so the two stay parallel. If even zero
// snippets exceed the budget the scaffolding is the caller's problem; an
// empty result is returned.
func TrimContexts(res rag.Result, scaffolding string, maxTokens int) (rag.Result, int) {
	if maxTokens <= 0 || len(res.Contexts) == 0 {
		return res, 0
	}

	base := Estimate(scaffolding)
	keep := len(res.Contexts)
	for keep > 0 {
		total := base
		for _, c := range res.Contexts[:keep] {
			total += Estimate(c)
		}
		if total <= maxTokens {
			break
		}
		keep--
	}

	dropped := len(res.Contexts) - keep
	if dropped == 0 {
		return res, 0
	}

	trimmed := rag.Result{Contexts: res.Contexts[:keep]}
	if keep <= len(res.Sources) {
		trimmed.Sources = res.Sources[:keep]
	} else {
		trimmed.Sources = res.Sources
	}
	return trimmed, dropped
}
