package agent

import (
	"fmt"
	"strings"
)

// PlanResearchSteps expands a query into the fixed research plan: restate,
// identify concepts, find definitions, collect examples, synthesize. A blank
// query gets a single clarification step instead.
//
// The plan is deliberately template-based rather than LLM-generated so
// research mode stays deterministic and cheap; each step still gets its own
// retrieval-grounded generation call.
func PlanResearchSteps(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{"Clarify the user's question."}
	}
	return []string{
		fmt.Sprintf("Restate and clarify the main question: %s", query),
		fmt.Sprintf("Identify key concepts, entities, and terms related to: %s", query),
		fmt.Sprintf("Search for definitions and high-level explanations for: %s", query),
		fmt.Sprintf("Collect practical examples, use-cases, or code patterns related to: %s", query),
		fmt.Sprintf("Synthesize a final, well-structured answer that directly addresses: %s", query),
	}
}
