// Package commands defines all Cobra CLI commands for the docq binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/docq-ai/docq-go/internal/audit"
	"github.com/docq-ai/docq-go/internal/config"
	"github.com/docq-ai/docq-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docq",
		Short: "DocQ — per-user document Q&A powered by retrieval-augmented LLMs",
		Long: `DocQ is a local-first retrieval-augmented question answering backend.

Each user gets an isolated, persistent vector index over their uploaded
documents. Queries retrieve the closest chunks, assemble a grounded prompt,
and run it through an LLM with selectable agent modes (default, research,
summarizer, brainstorm).

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.docq/config.yaml).
See 'docq --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.docq/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewIngestCmd(),
		NewServeCmd(),
		NewWipeCmd(),
		NewVersionCmd(),
	)

	return root
}
