package chat

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/docchat/docchat-go/internal/rag"
)

// systemPrompt constrains the model to answer from retrieved document
// context only. The "I don't know" instruction is what keeps answers
// grounded when the context does not cover the question.
const systemPrompt = `You are a helpful assistant that answers questions about a document.
Use ONLY the provided context to answer the question at the end.
If the answer is not contained in the context, say "I don't know". Do not
make up an answer or draw on outside knowledge.
Keep answers concise and quote the context where it helps.`

// noContextSentinel is injected as the context block when retrieval
// returns no chunks, so the model is told explicitly that nothing
// relevant was found rather than being handed an empty string.
const noContextSentinel = "No relevant context was found in the document for this question."

// chunkSeparator joins retrieved chunks inside the context block.
const chunkSeparator = "\n\n"

// BuildContext concatenates retrieved chunks, in retrieval order, into the
// single context block placed in the final user message. Chunk text is
// passed through verbatim.
func BuildContext(docs []rag.Document) string {
	if len(docs) == 0 {
		return noContextSentinel
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, chunkSeparator)
}

// AssemblePrompt builds the full message slice sent to the chat model:
//
//	[system, ...history, user("Context:\n<ctx>\n\nQuestion:\n<q>")]
//
// History arrives already trimmed. AssemblePrompt is pure: identical inputs
// always produce identical output.
func AssemblePrompt(history []*schema.Message, docs []rag.Document, question string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, schema.SystemMessage(systemPrompt))
	msgs = append(msgs, history...)
	msgs = append(msgs, schema.UserMessage(
		fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", BuildContext(docs), question),
	))
	return msgs
}
