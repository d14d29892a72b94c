package agent

import (
	"fmt"
	"strings"
)

// Mode-specific prompt prefixes. Default mode has two variants: with context
// it prefers the documents, without context it must answer like a normal
// assistant instead of apologizing about unreadable documents.
const (
	defaultWithContextPrefix = "You are a precise RAG assistant. Prefer using the context below to answer. " +
		"If the answer is clearly not in the context, you may still answer from your " +
		"general knowledge, but briefly mention that the uploaded documents did not " +
		"contain that specific information."

	defaultNoContextPrefix = "You are a helpful assistant. There is currently NO document context available. " +
		"Answer the user's question from your own knowledge. Do NOT say that you cannot " +
		"read documents; just answer normally."

	researchPrefix = "You are a rigorous research assistant. Use the context to build a multi-step, " +
		"well-structured analysis. If information is missing, clearly say what is missing " +
		"instead of guessing."

	summarizerPrefix = "You are a document summarization assistant. Create a clear, structured summary " +
		"with sections like 'Overview', 'Key Points', and 'Important Details'. Only use " +
		"what is in the context; do not invent new facts."

	brainstormPrefix = "You are a creative ideation assistant. Use the context as grounding when available, " +
		"but generate multiple concrete ideas, options, or next steps. Be practical and specific."

	noContextBlock = "[No document context is available for this query.]"
)

// BuildPrompt assembles the generation prompt for a query, its retrieved
// context chunks, and an agent mode. The layout is fixed: mode prefix, the
// user query, numbered context snippets (or a no-context marker), and a
// closing instruction.
func BuildPrompt(query string, contexts []string, mode Mode) string {
	var prefix string
	switch mode {
	case ModeResearch:
		prefix = researchPrefix
	case ModeSummarizer:
		prefix = summarizerPrefix
	case ModeBrainstorm:
		prefix = brainstormPrefix
	default:
		if len(contexts) > 0 {
			prefix = defaultWithContextPrefix
		} else {
			prefix = defaultNoContextPrefix
		}
	}

	contextBlock := noContextBlock
	if len(contexts) > 0 {
		parts := make([]string, len(contexts))
		for i, chunk := range contexts {
			parts[i] = fmt.Sprintf("[Snippet %d]\n%s", i+1, chunk)
		}
		contextBlock = strings.Join(parts, "\n\n")
	}

	return fmt.Sprintf("%s\n\n=== USER QUERY ===\n%s\n\n=== CONTEXT SNIPPETS ===\n%s\n\nNow produce your final answer.",
		prefix, query, contextBlock)
}

// buildSynthesisPrompt assembles the final research-mode prompt that merges
// the per-step sub-answers into one answer to the original query.
func buildSynthesisPrompt(query string, subAnswers []string) string {
	return fmt.Sprintf("You are a research synthesis assistant.\n\n"+
		"You are given several sub-answers generated in earlier steps. "+
		"Combine them into a single, coherent answer that directly addresses "+
		"the original user query.\n\n"+
		"=== ORIGINAL QUERY ===\n%s\n\n"+
		"=== SUB-ANSWERS ===\n%s",
		query, strings.Join(subAnswers, "\n"))
}

// summarizerQuery rewrites the user's query into an explicit summarization
// task before the prompt is built.
func summarizerQuery(query string) string {
	return "Create a clear, structured summary of the most relevant information for the user. " +
		"Include an overview, key points, and any important caveats.\n\n" +
		"User task/context: " + query
}

// brainstormQuery rewrites the user's query into an explicit ideation task
// before the prompt is built.
func brainstormQuery(query string) string {
	return "Generate multiple concrete ideas, suggestions, or next steps for the user, " +
		"grounded in the available context where possible.\n\n" +
		"Brainstorm around: " + query
}
