// Package tracing wires the optional Langfuse callback handler into the
// eino callback chain so every chat turn (prompt, retrieved context,
// streamed answer) is traced when credentials are present.
package tracing

import (
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// defaultHost is used when LANGFUSE_HOST is unset. Matches a local
// Langfuse deployment; point it at cloud.langfuse.com for the hosted one.
const defaultHost = "http://localhost:3000"

// Enabled reports whether Langfuse credentials are present in the
// environment. Both keys are required; a lone public key is ignored.
func Enabled() bool {
	return os.Getenv("LANGFUSE_PUBLIC_KEY") != "" && os.Getenv("LANGFUSE_SECRET_KEY") != ""
}

// Setup builds the Langfuse handler from LANGFUSE_PUBLIC_KEY,
// LANGFUSE_SECRET_KEY and LANGFUSE_HOST. The returned flush function
// drains buffered traces and must run before process exit. When tracing
// is not configured the ok result is false and both other values are nil.
func Setup() (handler callbacks.Handler, flush func(), ok bool) {
	if !Enabled() {
		return nil, nil, false
	}

	host := os.Getenv("LANGFUSE_HOST")
	if host == "" {
		host = defaultHost
	}

	handler, flush = langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      host,
		PublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
		SecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
	})
	return handler, flush, true
}
