package commands

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docq-ai/docq-go/internal/logging"
)

// NewIngestCmd constructs the `docq ingest` command, which runs the
// ingestion pipeline over local files to populate a user's index.
func NewIngestCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Ingest documents into a user's index",
		Long: `Chunk, embed, and index local text or markdown files for a user.

Each file becomes one document: its text is split into overlapping chunks,
the chunks are embedded in a single batch, canonical rows are written to the
record store, and the vectors are appended to the user's index.

Examples:
  docq ingest --user 6ba7b810-9dad-11d1-80b4-00c04fd430c8 notes.md
  docq ingest --user <uuid> docs/*.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			uid, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("ingest: --user must be a valid UUID: %w", err)
			}

			c, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer c.Close()

			for _, path := range args {
				doc, err := c.pipeline.IngestFile(ctx, uid, path)
				if err != nil {
					return fmt.Errorf("ingest: %s: %w", path, err)
				}
				log.Info("document ingested",
					slog.String("document_id", doc.ID),
					slog.String("filename", doc.Filename),
					slog.Int("chunks", doc.ChunkCount),
				)
				fmt.Printf("%s  %s (%d chunks)\n", doc.ID, doc.Filename, doc.ChunkCount)
			}

			log.Info("ingestion complete", slog.Int("files", len(args)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User UUID to ingest documents for (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
