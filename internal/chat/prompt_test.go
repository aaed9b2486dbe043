package chat

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/docchat/docchat-go/internal/rag"
)

func Test_BuildContext_JoinsChunksInOrder(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{
		{Content: "first chunk"},
		{Content: "second chunk"},
		{Content: "third chunk"},
	}
	got := BuildContext(docs)
	want := "first chunk\n\nsecond chunk\n\nthird chunk"
	if got != want {
		t.Errorf("BuildContext = %q, want %q", got, want)
	}
}

func Test_BuildContext_EmptyUsesSentinel(t *testing.T) {
	t.Parallel()
	if got := BuildContext(nil); got != noContextSentinel {
		t.Errorf("BuildContext(nil) = %q, want sentinel", got)
	}
	if got := BuildContext([]rag.Document{}); got != noContextSentinel {
		t.Errorf("BuildContext(empty) = %q, want sentinel", got)
	}
}

func Test_AssemblePrompt_Shape(t *testing.T) {
	t.Parallel()
	history := []*schema.Message{
		schema.UserMessage("earlier question"),
		schema.AssistantMessage("earlier answer", nil),
	}
	docs := []rag.Document{{Content: "Employees get 2 leaves per month."}}

	got := AssemblePrompt(history, docs, "How many leaves do I get?")

	if len(got) != 4 {
		t.Fatalf("want 4 messages, got %d", len(got))
	}
	if got[0].Role != schema.System {
		t.Errorf("first message role = %q, want system", got[0].Role)
	}
	if got[1].Content != "earlier question" || got[2].Content != "earlier answer" {
		t.Errorf("history not preserved in order: %q, %q", got[1].Content, got[2].Content)
	}

	last := got[3]
	if last.Role != schema.User {
		t.Errorf("last message role = %q, want user", last.Role)
	}
	if !strings.HasPrefix(last.Content, "Context:\n") {
		t.Errorf("last message missing context header: %q", last.Content)
	}
	if !strings.Contains(last.Content, "Employees get 2 leaves per month.") {
		t.Errorf("retrieved chunk missing from prompt: %q", last.Content)
	}
	if !strings.Contains(last.Content, "\n\nQuestion:\nHow many leaves do I get?") {
		t.Errorf("question block malformed: %q", last.Content)
	}
}

func Test_AssemblePrompt_Deterministic(t *testing.T) {
	t.Parallel()
	history := []*schema.Message{schema.UserMessage("hi")}
	docs := []rag.Document{{Content: "a"}, {Content: "b"}}

	first := AssemblePrompt(history, docs, "q")
	second := AssemblePrompt(history, docs, "q")

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Role != second[i].Role || first[i].Content != second[i].Content {
			t.Errorf("message %d differs between runs", i)
		}
	}
}

func Test_AssemblePrompt_GroundingInstructions(t *testing.T) {
	t.Parallel()
	got := AssemblePrompt(nil, nil, "q")
	sys := got[0].Content
	if !strings.Contains(sys, "I don't know") {
		t.Errorf("system prompt missing fallback instruction: %q", sys)
	}
	if !strings.Contains(sys, "ONLY the provided context") {
		t.Errorf("system prompt missing grounding policy: %q", sys)
	}
}
