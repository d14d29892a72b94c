package embedder

import (
	"log/slog"
	"strings"
)

// knownChatModelPrefixes contains name fragments that identify chat/completion
// models which are NOT suitable for embedding. If the configured embedding
// model matches any of these, a warning is emitted so the operator knows they
// may have misconfigured the pipeline.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"phi-",
	"phi3",
	"claude",
	"command-r",
	"deepseek",
	"qwen",
	"solar",
	"vicuna",
	"falcon",
	"yi-",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// WarnIfChatModel logs a warning when the configured embedding model looks
// like a chat model. A chat model will happily accept embed requests on some
// backends and return garbage vectors, so this deserves a loud hint at
// startup rather than silent bad retrieval quality.
func WarnIfChatModel(log *slog.Logger, model string) {
	if model == "" || !looksLikeChatModel(model) {
		return
	}
	log.Warn("embedder: configured model looks like a chat model, not an embedding model",
		slog.String("model", model),
		slog.String("hint", "use a dedicated embedding model e.g. nomic-embed-text, text-embedding-3-small"),
	)
}
