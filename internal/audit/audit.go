// Package audit logs a sanitised snapshot of the runtime configuration at
// the start of every CLI command, so an operator can reconstruct what a
// run saw without secrets ever reaching the logs.
package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// auditEntry names one env var to snapshot. Secret entries are reduced to
// set/unset; the rest are logged verbatim.
type auditEntry struct {
	key    string
	secret bool
}

// auditKeys is the fixed, ordered set of env vars in every audit line.
var auditKeys = []auditEntry{
	{"MODEL_PROVIDER", false},
	{"MODEL_TEMPERATURE", false},
	{"MODEL_MAX_TOKENS", false},
	{"TOGETHER_API_KEY", true},
	{"TOGETHER_MODEL", false},
	{"OPENAI_API_KEY", true},
	{"OPENAI_MODEL", false},
	{"AZURE_OPENAI_API_KEY", true},
	{"AZURE_OPENAI_ENDPOINT", false},
	{"AZURE_OPENAI_DEPLOYMENT", false},
	{"GOOGLE_API_KEY", true},
	{"GEMINI_MODEL", false},
	{"OLLAMA_HOST", false},
	{"OLLAMA_MODEL", false},
	{"EMBEDDING_PROVIDER", false},
	{"EMBEDDING_MODEL", false},
	{"EMBEDDING_API_KEY", true},
	{"EMBEDDING_CACHE", false},
	{"QDRANT_HOST", false},
	{"QDRANT_PORT", false},
	{"QDRANT_API_KEY", true},
	{"RETRIEVAL_POLICY", false},
	{"RETRIEVAL_TOP_K", false},
	{"DOCCHAT_API_KEY", true},
	{"DOCCHAT_MANIFEST_DB", false},
	{"LOG_LEVEL", false},
	{"LOG_FORMAT", false},
	{"LANGFUSE_PUBLIC_KEY", true},
	{"LANGFUSE_SECRET_KEY", true},
}

// secretEnvKeys is derived from auditKeys so the two can never drift.
var secretEnvKeys = func() map[string]bool {
	m := make(map[string]bool, len(auditKeys))
	for _, e := range auditKeys {
		if e.secret {
			m[e.key] = true
		}
	}
	return m
}()

// LogCommandStart emits one structured line naming the command, the config
// file it resolved, and the sanitised environment snapshot.
func LogCommandStart(log *slog.Logger, command string, configPath string) {
	attrs := make([]slog.Attr, 0, len(auditKeys)+2)
	attrs = append(attrs,
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	)
	for _, e := range auditKeys {
		attrs = append(attrs, slog.String(e.key, SanitiseKey(e.key, os.Getenv(e.key))))
	}
	log.LogAttrs(context.TODO(), slog.LevelInfo, "audit: command start", attrs...)
}

// SanitiseKey renders an env value for logging: secrets as set/unset,
// everything else verbatim (or "unset" when empty).
func SanitiseKey(key, value string) string {
	if secretEnvKeys[key] {
		return presence(value)
	}
	return valOrUnset(value)
}

func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

func valOrUnset(v string) string {
	if v != "" {
		return v
	}
	return "unset"
}

// sanitiseConfigPath collapses the home directory prefix to "~" and maps
// an absent path to "none".
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	if home, err := os.UserHomeDir(); err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
