// Package provider defines the chat-completion model configuration and
// factory for selecting and constructing LLM backend implementations at
// runtime. Supported backends: Together AI, OpenAI, Azure OpenAI, Ollama,
// AWS Bedrock, Google Gemini. All backends are exposed through the Eino
// model abstraction so the orchestrator consumes one streaming interface.
package provider

import (
	"fmt"
)

// Backend enumerates the supported chat-completion providers.
type Backend string

const (
	// BackendTogether selects the Together AI API (OpenAI-compatible).
	BackendTogether Backend = "together"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendBedrock selects AWS Bedrock.
	BackendBedrock Backend = "bedrock"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// togetherBaseURL is Together AI's OpenAI-compatible endpoint.
const togetherBaseURL = "https://api.together.xyz/v1"

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values.
type Config struct {
	// Backend identifies which completion provider to use.
	Backend Backend

	// Model is the model name or deployment ID to use
	// (e.g. "mistralai/Mistral-7B-Instruct-v0.2", "gpt-4o", "llama3").
	Model string

	// BaseURL overrides the default API endpoint (required for Ollama and Azure).
	BaseURL string

	// APIKey is the authentication credential for the selected provider.
	APIKey string

	// AzureDeployment is the Azure OpenAI deployment name (Azure only).
	AzureDeployment string

	// AzureAPIVersion is the Azure OpenAI REST API version (Azure only).
	AzureAPIVersion string

	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// Validate checks that the config carries everything its backend needs,
// so callers get a clear error at startup rather than on the first request.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendTogether:
		if c.APIKey == "" {
			return fmt.Errorf("provider: TOGETHER_API_KEY is required for together backend")
		}
	case BackendOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("provider: OPENAI_API_KEY is required for openai backend")
		}
	case BackendAzure:
		if c.APIKey == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_API_KEY is required for azure backend")
		}
		if c.BaseURL == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_ENDPOINT is required for azure backend")
		}
		if c.AzureDeployment == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_DEPLOYMENT is required for azure backend")
		}
	case BackendOllama:
		// Ollama needs no credentials; BaseURL defaults to localhost.
	case BackendBedrock:
		if c.Model == "" {
			return fmt.Errorf("provider: BEDROCK_MODEL_ID is required for bedrock backend")
		}
	case BackendGemini:
		if c.APIKey == "" {
			return fmt.Errorf("provider: GOOGLE_API_KEY is required for gemini backend")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q — valid values: together, openai, azure, ollama, bedrock, gemini", c.Backend)
	}

	if c.Model == "" {
		return fmt.Errorf("provider: model name must not be empty for backend %q", c.Backend)
	}
	return nil
}
