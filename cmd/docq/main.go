// Command docq is the entry point for the DocQ document Q&A backend.
// It provides a CLI interface (via Cobra) and an HTTP server exposing the
// agent, ingestion pipeline, and analytics as a REST API.
package main

import (
	"fmt"
	"os"

	"github.com/docq-ai/docq-go/cmd/docq/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
