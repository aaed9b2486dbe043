package server

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/docchat/docchat-go/internal/rag"
)

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /ready.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// EmbeddingsPinger probes the embedding provider by embedding a single
// short string. The call is tiny but not free, so /ready should not be
// polled aggressively when this pinger is registered.
type EmbeddingsPinger struct {
	// embedder is the embedding client to probe.
	embedder rag.Embedder
}

// NewEmbeddingsPinger constructs an EmbeddingsPinger for the given embedder.
func NewEmbeddingsPinger(e rag.Embedder) *EmbeddingsPinger {
	return &EmbeddingsPinger{embedder: e}
}

// Name returns the dependency label used in readiness responses.
func (p *EmbeddingsPinger) Name() string { return "embeddings" }

// Ping embeds a one-word probe string and verifies a vector comes back.
func (p *EmbeddingsPinger) Ping(ctx context.Context) error {
	vecs, err := p.embedder.Embed(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return fmt.Errorf("embed returned no vector")
	}
	return nil
}
