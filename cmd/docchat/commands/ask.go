package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docchat/docchat-go/internal/chat"
	"github.com/docchat/docchat-go/internal/logging"
)

// NewAskCmd constructs the `docchat ask` command, which asks a single
// question against an ingested document and streams the answer to stdout.
func NewAskCmd() *cobra.Command {
	var doc string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about an ingested document",
		Long: `Ask a natural language question against an ingested document.

The answer is grounded in passages retrieved from the document's vector
collection and streamed to stdout as it is generated. If the document does
not cover the question, the assistant says "I don't know".

Examples:
  docchat ask --doc employee_handbook "How many leaves do I get per month?"
  docchat ask -d leave_policy "Can unused leave carry over?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			if doc == "" {
				return fmt.Errorf("ask: --doc is required")
			}

			orchestrator, _, _, closeIndex, err := buildOrchestrator(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer closeIndex()

			messages := []chat.Message{{Role: "user", Content: args[0]}}
			sr, err := orchestrator.Ask(ctx, messages, doc)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			if err := orchestrator.Relay(ctx, sr, os.Stdout); err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVarP(&doc, "doc", "d", "", "Collection name of the ingested document (required)")

	return cmd
}
