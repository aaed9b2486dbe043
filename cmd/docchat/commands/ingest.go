package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/docchat/docchat-go/internal/embedder"
	"github.com/docchat/docchat-go/internal/ingestion"
	"github.com/docchat/docchat-go/internal/logging"
)

// NewIngestCmd constructs the `docchat ingest` command, which chunks and
// embeds documents into per-document vector collections.
func NewIngestCmd() *cobra.Command {
	var files []string
	var urls []string
	var collection string
	var replace bool
	var chunkSize int
	var chunkOverlap int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest documents into the vector store",
		Long: `Chunk, embed, and index documents into the Qdrant vector store.

Each document gets its own collection, named after the file (or URL)
basename unless --collection overrides it. Chat requests then select the
document to ground on by that collection name.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  EMBEDDING_PROVIDER   Embedding backend: together, openai, azure, ollama
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  docchat ingest --file ./docs/employee-handbook.txt
  docchat ingest --file handbook.txt --collection handbook --replace
  docchat ingest --url https://example.com/policies/leave-policy.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if len(files) == 0 && len(urls) == 0 {
				return fmt.Errorf("ingest: at least one --file or --url is required")
			}
			if collection != "" && len(files)+len(urls) > 1 {
				return fmt.Errorf("ingest: --collection requires exactly one source")
			}

			chunkSize = flagOrEnvInt(cmd, "chunk-size", "INGEST_CHUNK_SIZE", chunkSize)
			chunkOverlap = flagOrEnvInt(cmd, "chunk-overlap", "INGEST_CHUNK_OVERLAP", chunkOverlap)

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("provider", embedder.Backend()))

			index, err := buildIndex()
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer index.Close()

			manifest, closeManifest := openManifest(log)
			defer closeManifest()

			pipeline, err := ingestion.NewPipeline(emb, index, manifestOrNil(manifest), &ingestion.Config{
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
				Replace:      replace,
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			sources := make([]ingestion.Source, 0, len(files)+len(urls))
			for _, f := range files {
				sources = append(sources, ingestion.Source{Path: f, Collection: collection})
			}
			for _, u := range urls {
				sources = append(sources, ingestion.Source{URL: u, Collection: collection})
			}

			log.Info("starting ingestion", slog.Int("sources", len(sources)))

			if err := pipeline.Ingest(ctx, sources, func(msg string) {
				log.Info(msg)
			}); err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			log.Info("ingestion complete", slog.Int("sources", len(sources)))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Local document file to ingest (repeatable)")
	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "Document URL to ingest (repeatable)")
	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Collection name override (single source only)")
	cmd.Flags().BoolVar(&replace, "replace", false, "Drop an existing collection before ingesting")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 1000, "Maximum characters per chunk")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 200, "Characters shared between consecutive chunks")

	return cmd
}
