package commands

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docq-ai/docq-go/internal/config"
	"github.com/docq-ai/docq-go/internal/index"
	"github.com/docq-ai/docq-go/internal/logging"
)

// NewWipeCmd constructs the `docq wipe` command, which deletes a user's
// vector index and metadata files. Document records are left in place so
// files can be re-indexed later.
func NewWipeCmd() *cobra.Command {
	var userID string
	var yes bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete a user's vector index",
		Long: `Delete a user's vector index and metadata files from disk.

Canonical document and chunk records are NOT removed; re-ingesting the same
files rebuilds the index. Wiping a user with no index is a no-op.

Examples:
  docq wipe --user 6ba7b810-9dad-11d1-80b4-00c04fd430c8 --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			uid, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("wipe: --user must be a valid UUID: %w", err)
			}

			if !yes {
				return fmt.Errorf("wipe: pass --yes to confirm deleting the index for user %s", uid)
			}

			st, err := config.Resolve()
			if err != nil {
				return fmt.Errorf("wipe: %w", err)
			}

			idx, err := index.NewStore(st.IndexDir)
			if err != nil {
				return fmt.Errorf("wipe: failed to open index store: %w", err)
			}

			if err := idx.Wipe(ctx, uid); err != nil {
				return fmt.Errorf("wipe: %w", err)
			}

			log.Info("index wiped", slog.String("user_id", uid.String()))
			fmt.Printf("index wiped for user %s\n", uid)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User UUID whose index to wipe (required)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion without prompting")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
