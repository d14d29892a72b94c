package commands

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docq-ai/docq-go/internal/agent"
	"github.com/docq-ai/docq-go/internal/logging"
)

// NewAskCmd constructs the `docq ask` command, which runs a single query
// against a user's document index and prints the answer to stdout.
func NewAskCmd() *cobra.Command {
	var userID string
	var mode string
	var documentIDs []string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question against a user's documents",
		Long: `Run a single retrieval-augmented query against a user's document index.

The agent retrieves the closest chunks from the user's vectors, assembles a
grounded prompt, and generates an answer. --mode selects the orchestration
strategy; unknown modes fall back to default.

Examples:
  docq ask --user 6ba7b810-9dad-11d1-80b4-00c04fd430c8 "what does the contract say about termination?"
  docq ask --user <uuid> --mode research "compare the two proposals"
  docq ask --user <uuid> --doc <doc-uuid> "summarise this document" --mode summarizer`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if _, err := uuid.Parse(userID); err != nil {
				return fmt.Errorf("ask: --user must be a valid UUID: %w", err)
			}

			c, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer c.Close()

			question := strings.Join(args, " ")
			outcome := c.orchestrator.Run(ctx, userID, question, agent.ParseMode(mode), documentIDs)

			fmt.Println(outcome.Answer)

			if len(outcome.Sources) > 0 {
				fmt.Println("\nSources:")
				for i, src := range outcome.Sources {
					fmt.Printf("  [%d] %s (distance %.4f)\n", i+1, src.Filename, src.Distance)
				}
			}
			fmt.Printf("\n(mode: %s, tokens: %d, latency: %.0fms)\n",
				outcome.Mode, outcome.Usage.TotalTokens, outcome.LatencyMS)

			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User UUID whose documents to query (required)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "default", "Agent mode: default, research, summarizer, brainstorm")
	cmd.Flags().StringArrayVarP(&documentIDs, "doc", "d", nil, "Restrict retrieval to this document UUID (repeatable)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
