// Package agent implements the DocQ query orchestrator: it plans the work a
// query needs for its agent mode, retrieves document context, builds the LLM
// prompts, and accounts for token usage across however many generation calls
// the mode requires.
package agent

// Mode selects the orchestration strategy for a query.
type Mode string

const (
	// ModeDefault is single-shot question answering over retrieved context.
	ModeDefault Mode = "default"
	// ModeResearch runs a multi-step plan and synthesizes the sub-answers.
	ModeResearch Mode = "research"
	// ModeSummarizer rewrites the query into a summarization task.
	ModeSummarizer Mode = "summarizer"
	// ModeBrainstorm rewrites the query into an ideation task.
	ModeBrainstorm Mode = "brainstorm"
)

// ParseMode maps a raw string to a Mode. Unknown or empty values fall back
// to ModeDefault so a bad client value degrades instead of failing.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeResearch, ModeSummarizer, ModeBrainstorm:
		return Mode(s)
	default:
		return ModeDefault
	}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeDefault, ModeResearch, ModeSummarizer, ModeBrainstorm:
		return true
	}
	return false
}
