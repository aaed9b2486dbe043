// Package embedder converts text into dense vectors for retrieval. Each
// client speaks to one backend family (Together AI, OpenAI, Azure OpenAI,
// Ollama) over its plain REST API; no provider SDKs are pulled in for
// embeddings.
package embedder

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// OpenAIEmbedder drives any OpenAI-compatible embeddings endpoint. Together
// AI and Azure OpenAI speak the same wire format, so one client serves all
// three. Safe for concurrent use.
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	azure      bool
	apiVersion string
	client     *http.Client
}

// OpenAIConfig configures an OpenAIEmbedder.
type OpenAIConfig struct {
	// BaseURL is the API base: "https://api.openai.com/v1" for OpenAI,
	// "https://api.together.xyz/v1" for Together,
	// "https://<resource>.openai.azure.com/openai" for Azure.
	BaseURL string
	// APIKey authenticates the request. Sent as a Bearer token, or as the
	// api-key header when Azure is set.
	APIKey string
	// Model is the embedding model name.
	Model string
	// Dimensions requests a specific vector length; 0 keeps the model default.
	Dimensions int
	// Azure switches to Azure OpenAI routing and auth.
	Azure bool
	// APIVersion is the Azure api-version query parameter. Ignored otherwise.
	APIVersion string
}

// NewOpenAIEmbedder constructs an OpenAIEmbedder.
func NewOpenAIEmbedder(cfg *OpenAIConfig) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		azure:      cfg.Azure,
		apiVersion: cfg.APIVersion,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *OpenAIEmbedder) endpoint() string {
	if e.azure {
		return e.baseURL + "/deployments/" + e.model + "/embeddings?api-version=" + e.apiVersion
	}
	return e.baseURL + "/embeddings"
}

func (e *OpenAIEmbedder) authHeader() map[string]string {
	if e.azure {
		return map[string]string{"api-key": e.apiKey}
	}
	return map[string]string{"Authorization": "Bearer " + e.apiKey}
}

// Embed returns one embedding per input text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	in := struct {
		Input      []string `json:"input"`
		Model      string   `json:"model"`
		Dimensions int      `json:"dimensions,omitempty"`
	}{Input: texts, Model: e.model, Dimensions: e.dimensions}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}

	status, err := postJSON(ctx, e.client, e.endpoint(), e.authHeader(), in, &out)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: %w", err)
	}
	if !statusOK(status) {
		if out.Error != nil {
			return nil, fmt.Errorf("openai embedder: %s", out.Error.Message)
		}
		return nil, fmt.Errorf("openai embedder: HTTP %d", status)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedder: expected %d embeddings, got %d", len(texts), len(out.Data))
	}

	// The API does not guarantee ordering; place each vector by index.
	embeddings := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai embedder: index %d out of range [0, %d)", d.Index, len(texts))
		}
		embeddings[d.Index] = d.Embedding
	}
	return embeddings, nil
}
