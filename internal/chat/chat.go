// Package chat orchestrates a single grounded question/answer turn: it
// validates the incoming conversation, retrieves document context for the
// latest question, assembles the final prompt, and relays the model's
// streamed answer to the caller token by token.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/docchat/docchat-go/internal/budget"
	"github.com/docchat/docchat-go/internal/logging"
	"github.com/docchat/docchat-go/internal/rag"
)

var (
	// ErrInvalidRequest marks a malformed conversation: no messages, a
	// blank question, or a history entry with an unknown role.
	ErrInvalidRequest = errors.New("chat: invalid request")

	// ErrUpstreamStream marks a completion-provider failure after the
	// stream was opened. By the time it surfaces, partial output may
	// already have been written to the client.
	ErrUpstreamStream = errors.New("chat: upstream stream failed")
)

// Message is one turn of the conversation as it appears on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RetrievalPolicy controls how a retrieval failure affects the turn.
type RetrievalPolicy string

const (
	// PolicyStrict fails the whole request when retrieval fails.
	PolicyStrict RetrievalPolicy = "strict"

	// PolicyDegrade answers without document context when retrieval
	// fails, except for a missing collection, which is always fatal.
	PolicyDegrade RetrievalPolicy = "degrade"
)

// ParsePolicy maps a config string to a RetrievalPolicy, defaulting to
// strict for anything unrecognized.
func ParsePolicy(s string) RetrievalPolicy {
	if strings.EqualFold(strings.TrimSpace(s), string(PolicyDegrade)) {
		return PolicyDegrade
	}
	return PolicyStrict
}

// DocRetriever is the slice of rag.Retriever the orchestrator needs.
type DocRetriever interface {
	Retrieve(ctx context.Context, collection, query string, topK int) ([]rag.Document, error)
}

// Config tunes a single Orchestrator.
type Config struct {
	// TopK is the number of chunks retrieved per question. Zero means
	// the retriever's default.
	TopK int

	// Policy decides whether a retrieval failure fails the request or
	// degrades to an answer without context.
	Policy RetrievalPolicy

	// MaxContextTokens bounds the estimated size of the assembled
	// prompt; history is trimmed oldest-first to fit. Zero means
	// budget.DefaultMaxContextTokens.
	MaxContextTokens int
}

// Orchestrator runs the retrieve → assemble → stream pipeline for one
// document-grounded conversation turn. Safe for concurrent use.
type Orchestrator struct {
	chatModel model.BaseChatModel
	retriever DocRetriever
	cfg       Config
}

// New constructs an Orchestrator. Both the chat model and the retriever
// are required.
func New(chatModel model.BaseChatModel, retriever DocRetriever, cfg Config) (*Orchestrator, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat: chat model must not be nil")
	}
	if retriever == nil {
		return nil, fmt.Errorf("chat: retriever must not be nil")
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = budget.DefaultMaxContextTokens
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyStrict
	}
	return &Orchestrator{chatModel: chatModel, retriever: retriever, cfg: cfg}, nil
}

// Ask runs the pre-stream half of a turn: validate the conversation,
// retrieve context for the latest message, assemble the prompt, and open
// the model stream. No response bytes have been produced when Ask
// returns, so every error from it can still map to a clean HTTP status.
// The caller owns the returned stream and must drain it via Relay.
func (o *Orchestrator) Ask(ctx context.Context, messages []Message, collection string) (*schema.StreamReader[*schema.Message], error) {
	log := logging.FromContext(ctx)

	history, question, err := splitConversation(messages)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(collection) == "" {
		return nil, fmt.Errorf("%w: selectedDoc must not be empty", ErrInvalidRequest)
	}

	docs, err := o.retriever.Retrieve(ctx, collection, question, o.cfg.TopK)
	if err != nil {
		if o.cfg.Policy == PolicyDegrade && !errors.Is(err, rag.ErrCollectionNotFound) {
			log.Warn("retrieval failed, answering without context",
				slog.String("collection", collection),
				slog.Any("error", err),
			)
			docs = nil
		} else {
			return nil, fmt.Errorf("chat: retrieval: %w", err)
		}
	}

	fixed := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", BuildContext(docs), question)),
	}
	before := len(history)
	history = budget.TrimHistory(fixed, history, o.cfg.MaxContextTokens)
	if dropped := before - len(history); dropped > 0 {
		log.Warn("dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(history)),
			slog.Int("max_tokens", o.cfg.MaxContextTokens),
		)
	}

	prompt := AssemblePrompt(history, docs, question)

	log.Debug("prompt assembled",
		slog.String("collection", collection),
		slog.Int("chunks", len(docs)),
		slog.Int("history", len(history)),
		slog.Int("messages", len(prompt)),
	)

	sr, err := o.chatModel.Stream(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("chat: open stream: %w", err)
	}
	return sr, nil
}

// Relay copies stream fragments to w as they arrive, flushing after each
// write when w supports it. A receive or write failure mid-stream wraps
// ErrUpstreamStream; whatever was already written stays written. There
// is no retry and no rollback.
func (o *Orchestrator) Relay(ctx context.Context, sr *schema.StreamReader[*schema.Message], w io.Writer) error {
	defer sr.Close()

	flusher, _ := w.(interface{ Flush() })
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUpstreamStream, err)
		}
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUpstreamStream, err)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		if _, err := io.WriteString(w, msg.Content); err != nil {
			return fmt.Errorf("%w: write: %v", ErrUpstreamStream, err)
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// splitConversation validates the wire messages and separates them into
// prior history and the latest question. The final message is the
// question regardless of its role; it must carry non-blank content.
// Prior turns map onto system/user/assistant roles.
func splitConversation(messages []Message) ([]*schema.Message, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("%w: messages must not be empty", ErrInvalidRequest)
	}

	question := strings.TrimSpace(messages[len(messages)-1].Content)
	if question == "" {
		return nil, "", fmt.Errorf("%w: question must not be empty", ErrInvalidRequest)
	}

	history := make([]*schema.Message, 0, len(messages)-1)
	for _, m := range messages[:len(messages)-1] {
		switch schema.RoleType(m.Role) {
		case schema.User:
			history = append(history, schema.UserMessage(m.Content))
		case schema.Assistant:
			history = append(history, schema.AssistantMessage(m.Content, nil))
		case schema.System:
			history = append(history, schema.SystemMessage(m.Content))
		default:
			return nil, "", fmt.Errorf("%w: unknown role %q", ErrInvalidRequest, m.Role)
		}
	}
	return history, question, nil
}
