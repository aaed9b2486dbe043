package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/docchat/docchat-go/internal/budget"
	"github.com/docchat/docchat-go/internal/chat"
	"github.com/docchat/docchat-go/internal/embedder"
	"github.com/docchat/docchat-go/internal/ingestion"
	"github.com/docchat/docchat-go/internal/provider"
	"github.com/docchat/docchat-go/internal/rag"
	"github.com/docchat/docchat-go/internal/store"
)

// buildIndex connects to Qdrant using the QDRANT_* environment variables.
// The caller owns the returned index and must Close it.
func buildIndex() (*rag.QdrantIndex, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)

	index, err := rag.NewQdrantIndex(&rag.QdrantConfig{
		Host:   host,
		Port:   port,
		APIKey: os.Getenv("QDRANT_API_KEY"),
		UseTLS: os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	return index, nil
}

// buildRetriever wires the env-configured embedder and Qdrant index into a
// Retriever. The returned close function releases the index connection.
func buildRetriever(log *slog.Logger) (*rag.Retriever, rag.Embedder, func(), error) {
	if err := embedder.Validate(log); err != nil {
		return nil, nil, nil, err
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	index, err := buildIndex()
	if err != nil {
		return nil, nil, nil, err
	}

	retriever, err := rag.NewRetriever(emb, index, getEnvInt("RETRIEVAL_TOP_K", 4))
	if err != nil {
		index.Close()
		return nil, nil, nil, err
	}

	return retriever, emb, func() { _ = index.Close() }, nil
}

// buildOrchestrator assembles the full chat pipeline from the environment:
// chat model, embedder, Qdrant retriever, and retrieval policy.
func buildOrchestrator(ctx context.Context, log *slog.Logger) (*chat.Orchestrator, *rag.QdrantIndex, rag.Embedder, func(), error) {
	chatModel, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}

	if err := embedder.Validate(log); err != nil {
		return nil, nil, nil, nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	index, err := buildIndex()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	retriever, err := rag.NewRetriever(emb, index, getEnvInt("RETRIEVAL_TOP_K", 4))
	if err != nil {
		index.Close()
		return nil, nil, nil, nil, err
	}

	orchestrator, err := chat.New(chatModel, retriever, chat.Config{
		TopK:             getEnvInt("RETRIEVAL_TOP_K", 4),
		Policy:           chat.ParsePolicy(os.Getenv("RETRIEVAL_POLICY")),
		MaxContextTokens: getEnvInt("RETRIEVAL_MAX_CONTEXT_TOKENS", budget.DefaultMaxContextTokens),
	})
	if err != nil {
		index.Close()
		return nil, nil, nil, nil, err
	}

	return orchestrator, index, emb, func() { _ = index.Close() }, nil
}

// openManifest opens the ingest manifest database. DOCCHAT_MANIFEST_DB
// overrides the default path (~/.docchat/manifest.db); "disabled" turns
// recording off. Failures degrade to a nil manifest with a warning.
func openManifest(log *slog.Logger) (*store.SQLiteStore, func()) {
	dbPath := os.Getenv("DOCCHAT_MANIFEST_DB")
	if dbPath == "disabled" {
		log.Info("manifest: disabled via DOCCHAT_MANIFEST_DB=disabled")
		return nil, func() {}
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("manifest: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, func() {}
		}
	}
	ms, err := store.Open(dbPath)
	if err != nil {
		log.Warn("manifest: failed to open store, disabling", slog.Any("error", err))
		return nil, func() {}
	}
	log.Info("manifest: store opened", slog.String("path", dbPath))
	return ms, func() { _ = ms.Close() }
}

// manifestOrNil converts a possibly-nil concrete store into the Manifest
// interface without producing a non-nil interface around a nil pointer.
func manifestOrNil(ms *store.SQLiteStore) ingestion.Manifest {
	if ms == nil {
		return nil
	}
	return ms
}

// flagOrEnvStr resolves a string setting with flag > env > default
// precedence. An explicitly set flag wins; otherwise the env var (which
// config.Load has already populated from YAML by RunE time) overrides the
// flag's default value.
func flagOrEnvStr(cmd *cobra.Command, flag, envKey, current string) string {
	if cmd.Flags().Changed(flag) {
		return current
	}
	return getEnvOrDefault(envKey, current)
}

// flagOrEnvInt is flagOrEnvStr for integer flags.
func flagOrEnvInt(cmd *cobra.Command, flag, envKey string, current int) int {
	if cmd.Flags().Changed(flag) {
		return current
	}
	return getEnvInt(envKey, current)
}

// getEnvOrDefault returns the env var value or fallback when unset/empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the env var parsed as int, or fallback when unset or
// unparsable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
