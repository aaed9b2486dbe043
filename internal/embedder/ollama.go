package embedder

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// OllamaEmbedder talks to a local Ollama instance's /api/embed endpoint.
// No credentials are involved. Safe for concurrent use.
type OllamaEmbedder struct {
	host   string
	model  string
	client *http.Client
}

// OllamaConfig configures an OllamaEmbedder.
type OllamaConfig struct {
	// Host is the Ollama base URL, e.g. "http://localhost:11434".
	Host string
	// Model is the embedding model, e.g. "nomic-embed-text".
	Model string
}

// NewOllamaEmbedder constructs an OllamaEmbedder.
func NewOllamaEmbedder(cfg *OllamaConfig) *OllamaEmbedder {
	return &OllamaEmbedder{
		host:  cfg.Host,
		model: cfg.Model,
		// Local models can be slow to load on first use.
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Embed returns one embedding per input text, in input order.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	in := struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}{Model: e.model, Input: texts}

	var out struct {
		Embeddings [][]float32 `json:"embeddings"`
		Error      string      `json:"error,omitempty"`
	}

	status, err := postJSON(ctx, e.client, e.host+"/api/embed", nil, in, &out)
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: %w", err)
	}
	if !statusOK(status) {
		if out.Error != "" {
			return nil, fmt.Errorf("ollama embedder: %s", out.Error)
		}
		return nil, fmt.Errorf("ollama embedder: HTTP %d", status)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embedder: expected %d embeddings, got %d", len(texts), len(out.Embeddings))
	}
	return out.Embeddings, nil
}
