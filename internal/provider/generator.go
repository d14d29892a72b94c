package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/docq-ai/docq-go/internal/rag"
)

// Generator is the single-turn generation surface the orchestrator uses:
// one prompt in, one answer plus token accounting out. It hides the chat
// message plumbing of the underlying ChatModel.
type Generator struct {
	chat model.ChatModel //nolint:staticcheck // SA1019: model.ChatModel deprecated upstream; migration tracked separately
}

// NewGenerator wraps a ChatModel in a Generator.
func NewGenerator(chat model.ChatModel) (*Generator, error) { //nolint:staticcheck // SA1019: model.ChatModel deprecated upstream; migration tracked separately
	if chat == nil {
		return nil, fmt.Errorf("provider: chat model must not be nil")
	}
	return &Generator{chat: chat}, nil
}

// Generate sends prompt as a single user message and returns the model's
// answer. Token usage comes from the provider's response metadata; backends
// that report no usage yield a zero TokenUsage, which is not an error.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, rag.TokenUsage, error) {
	msg, err := g.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", rag.TokenUsage{}, fmt.Errorf("provider: generation failed: %w", err)
	}

	var usage rag.TokenUsage
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		usage = rag.TokenUsage{
			PromptTokens:     msg.ResponseMeta.Usage.PromptTokens,
			CompletionTokens: msg.ResponseMeta.Usage.CompletionTokens,
			TotalTokens:      msg.ResponseMeta.Usage.TotalTokens,
		}
	}
	return msg.Content, usage, nil
}
