package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docchat/docchat-go/internal/logging"
)

// NewQueryCmd constructs the `docchat query` command, which runs the
// retrieval stage alone and prints the matched chunks. Useful for
// inspecting what context a question would be grounded on.
func NewQueryCmd() *cobra.Command {
	var doc string
	var topK int

	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Show the chunks retrieval would ground an answer on",
		Long: `Run similarity search for a question without calling the chat model.

Prints the top-k matching chunks with their similarity scores, in the
order the prompt assembler would concatenate them.

Examples:
  docchat query --doc employee_handbook "leave policy"
  docchat query -d leave_policy -k 8 "carry over"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			if doc == "" {
				return fmt.Errorf("query: --doc is required")
			}

			retriever, _, closeIndex, err := buildRetriever(log)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			defer closeIndex()

			docs, err := retriever.Retrieve(ctx, doc, args[0], topK)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			if len(docs) == 0 {
				fmt.Println("no matching chunks")
				return nil
			}

			for i, d := range docs {
				fmt.Printf("--- chunk %d (score %.4f, source %s) ---\n%s\n\n", i+1, d.Score, d.Source, d.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&doc, "doc", "d", "", "Collection name of the ingested document (required)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (default from RETRIEVAL_TOP_K)")

	return cmd
}
