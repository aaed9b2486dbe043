package provider

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		// ── Together ──────────────────────────────────────────────────────────
		{
			name: "together/valid",
			cfg: Config{
				Backend: BackendTogether,
				APIKey:  "tgr-test",
				Model:   "mistralai/Mistral-7B-Instruct-v0.2",
			},
		},
		{
			name:    "together/missing api key",
			cfg:     Config{Backend: BackendTogether, Model: "mistralai/Mistral-7B-Instruct-v0.2"},
			wantErr: "TOGETHER_API_KEY",
		},

		// ── OpenAI ────────────────────────────────────────────────────────────
		{
			name: "openai/valid",
			cfg:  Config{Backend: BackendOpenAI, APIKey: "sk-test", Model: "gpt-4o"},
		},
		{
			name:    "openai/missing api key",
			cfg:     Config{Backend: BackendOpenAI, Model: "gpt-4o"},
			wantErr: "OPENAI_API_KEY",
		},

		// ── Azure ─────────────────────────────────────────────────────────────
		{
			name: "azure/valid",
			cfg: Config{
				Backend:         BackendAzure,
				APIKey:          "key",
				BaseURL:         "https://my.openai.azure.com",
				AzureDeployment: "gpt-4o",
				Model:           "gpt-4o",
			},
		},
		{
			name: "azure/missing endpoint",
			cfg: Config{
				Backend:         BackendAzure,
				APIKey:          "key",
				AzureDeployment: "gpt-4o",
				Model:           "gpt-4o",
			},
			wantErr: "AZURE_OPENAI_ENDPOINT",
		},
		{
			name: "azure/missing deployment",
			cfg: Config{
				Backend: BackendAzure,
				APIKey:  "key",
				BaseURL: "https://my.openai.azure.com",
				Model:   "gpt-4o",
			},
			wantErr: "AZURE_OPENAI_DEPLOYMENT",
		},

		// ── Ollama ────────────────────────────────────────────────────────────
		{
			name: "ollama/valid",
			cfg:  Config{Backend: BackendOllama, BaseURL: "http://localhost:11434", Model: "llama3"},
		},
		{
			name:    "ollama/missing model",
			cfg:     Config{Backend: BackendOllama, BaseURL: "http://localhost:11434"},
			wantErr: "model name",
		},

		// ── Bedrock ───────────────────────────────────────────────────────────
		{
			name:    "bedrock/missing model id",
			cfg:     Config{Backend: BackendBedrock},
			wantErr: "BEDROCK_MODEL_ID",
		},

		// ── Gemini ────────────────────────────────────────────────────────────
		{
			name: "gemini/valid",
			cfg:  Config{Backend: BackendGemini, APIKey: "google-key", Model: "gemini-1.5-pro"},
		},
		{
			name:    "gemini/missing api key",
			cfg:     Config{Backend: BackendGemini, Model: "gemini-1.5-pro"},
			wantErr: "GOOGLE_API_KEY",
		},

		// ── Unknown ───────────────────────────────────────────────────────────
		{
			name:    "unknown backend",
			cfg:     Config{Backend: Backend("watsonx"), Model: "m"},
			wantErr: "unknown backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate: expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate: error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "")

	cfg := ConfigFromEnv()

	if cfg.Backend != BackendTogether {
		t.Errorf("default backend: want together, got %q", cfg.Backend)
	}
	if cfg.Model != "mistralai/Mistral-7B-Instruct-v0.2" {
		t.Errorf("default model: got %q", cfg.Model)
	}
	if cfg.MaxTokens != 1024 {
		t.Errorf("default max tokens: want 1024, got %d", cfg.MaxTokens)
	}
	if cfg.Temperature != 0.4 {
		t.Errorf("default temperature: want 0.4, got %v", cfg.Temperature)
	}
}

func TestConfigFromEnv_BackendOverride(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "ollama")
	t.Setenv("OLLAMA_MODEL", "llama3:70b")

	cfg := ConfigFromEnv()
	if cfg.Backend != BackendOllama {
		t.Errorf("backend: want ollama, got %q", cfg.Backend)
	}
	if cfg.Model != "llama3:70b" {
		t.Errorf("model: want llama3:70b, got %q", cfg.Model)
	}
	if cfg.BaseURL != "http://localhost:11434" {
		t.Errorf("base url: got %q", cfg.BaseURL)
	}
}
