package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/docchat/docchat-go/internal/rag"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeEmbedder returns a fixed-size vector per input text.
type fakeEmbedder struct {
	dims  int
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}

// fakeIndex records the operations performed against it.
type fakeIndex struct {
	existing map[string]bool

	ensured    map[string]uint64
	dropped    []string
	upserted   map[string][]rag.Document
	vectorized map[string][][]float32
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		existing:   map[string]bool{},
		ensured:    map[string]uint64{},
		upserted:   map[string][]rag.Document{},
		vectorized: map[string][][]float32{},
	}
}

func (f *fakeIndex) Upsert(_ context.Context, collection string, docs []rag.Document, embeddings [][]float32) error {
	f.upserted[collection] = append(f.upserted[collection], docs...)
	f.vectorized[collection] = append(f.vectorized[collection], embeddings...)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ string, _ []float32, _ int) ([]rag.Document, error) {
	return nil, nil
}

func (f *fakeIndex) CollectionExists(_ context.Context, collection string) (bool, error) {
	return f.existing[collection], nil
}

func (f *fakeIndex) EnsureCollection(_ context.Context, collection string, vectorSize uint64) error {
	f.ensured[collection] = vectorSize
	f.existing[collection] = true
	return nil
}

func (f *fakeIndex) DropCollection(_ context.Context, collection string) error {
	f.dropped = append(f.dropped, collection)
	delete(f.existing, collection)
	return nil
}

func (f *fakeIndex) Close() error { return nil }

// fakeManifest records Record calls.
type fakeManifest struct {
	records []string
	chunks  int
}

func (f *fakeManifest) Record(_ context.Context, collection, source string, chunks int) error {
	f.records = append(f.records, collection+"<-"+source)
	f.chunks = chunks
	return nil
}

func newTestPipeline(t *testing.T, idx *fakeIndex, m Manifest, cfg *Config) *Pipeline {
	t.Helper()
	p, err := NewPipeline(&fakeEmbedder{dims: 8}, idx, m, cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func writeTempDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp doc: %v", err)
	}
	return path
}

// ---------------------------------------------------------------------------
// Chunking
// ---------------------------------------------------------------------------

func Test_Chunk_ShortTextIsSingleChunk(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, newFakeIndex(), nil, &Config{ChunkSize: 1000, ChunkOverlap: 200})

	chunks := p.chunk("a short document")
	if len(chunks) != 1 || chunks[0] != "a short document" {
		t.Errorf("chunks = %q", chunks)
	}
}

func Test_Chunk_OverlapBetweenConsecutiveChunks(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, newFakeIndex(), nil, &Config{ChunkSize: 10, ChunkOverlap: 4})

	text := "abcdefghijklmnopqrstuvwxyz"
	chunks := p.chunk(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// Each chunk after the first starts with the last 4 chars of the previous.
	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1][len(chunks[i-1])-4:]
		if !strings.HasPrefix(chunks[i], prevTail) {
			t.Errorf("chunk %d missing overlap: prev=%q cur=%q", i, chunks[i-1], chunks[i])
		}
	}
}

func Test_Chunk_MultiByteRunesStayIntact(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, newFakeIndex(), nil, &Config{ChunkSize: 10, ChunkOverlap: 4})

	// Three-byte runes, so byte offset 10 lands mid-rune.
	text := strings.Repeat("日本語の文書", 8)
	chunks := p.chunk(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8: %q", i, c)
		}
	}
	if !strings.HasPrefix(text, chunks[0]) {
		t.Errorf("first chunk %q is not a prefix of the text", chunks[0])
	}
	if last := chunks[len(chunks)-1]; !strings.HasSuffix(text, last) {
		t.Errorf("last chunk %q is not a suffix of the text", last)
	}
}

func Test_Chunk_EmptyText(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, newFakeIndex(), nil, nil)
	if chunks := p.chunk("   \n  "); chunks != nil {
		t.Errorf("expected nil chunks for blank text, got %q", chunks)
	}
}

// ---------------------------------------------------------------------------
// Collection naming
// ---------------------------------------------------------------------------

func Test_CollectionName(t *testing.T) {
	t.Parallel()
	cases := []struct {
		source string
		want   string
	}{
		{"employee-handbook.pdf", "employee_handbook"},
		{"/docs/Employee Handbook.PDF", "employee_handbook"},
		{"https://example.com/policies/leave-policy.txt", "leave_policy"},
		{"notes", "notes"},
		{"...", "document"},
	}
	for _, tc := range cases {
		if got := CollectionName(tc.source); got != tc.want {
			t.Errorf("CollectionName(%q) = %q, want %q", tc.source, got, tc.want)
		}
	}
}

func Test_ChunkID_DeterministicUUID(t *testing.T) {
	t.Parallel()

	a := chunkID("handbook.pdf", 3)
	b := chunkID("handbook.pdf", 3)
	c := chunkID("handbook.pdf", 4)

	if a != b {
		t.Errorf("chunkID is not deterministic: %q vs %q", a, b)
	}
	if a == c {
		t.Error("different chunk indexes must produce different IDs")
	}
	uuidRe := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	if !uuidRe.MatchString(a) {
		t.Errorf("chunkID %q is not UUID-shaped", a)
	}
}

// ---------------------------------------------------------------------------
// Ingest
// ---------------------------------------------------------------------------

func Test_Ingest_LocalFile(t *testing.T) {
	t.Parallel()

	idx := newFakeIndex()
	manifest := &fakeManifest{}
	p := newTestPipeline(t, idx, manifest, &Config{ChunkSize: 10, ChunkOverlap: 2})

	path := writeTempDoc(t, "handbook.txt", strings.Repeat("leave policy text ", 5))
	err := p.Ingest(context.Background(), []Source{{Path: path}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if size := idx.ensured["handbook"]; size != 8 {
		t.Errorf("collection vector size = %d, want embedder dims 8", size)
	}
	docs := idx.upserted["handbook"]
	if len(docs) == 0 {
		t.Fatal("no documents upserted")
	}
	if len(idx.vectorized["handbook"]) != len(docs) {
		t.Errorf("vectors (%d) and docs (%d) out of step", len(idx.vectorized["handbook"]), len(docs))
	}
	for _, d := range docs {
		if d.Source != path {
			t.Errorf("doc source = %q, want %q", d.Source, path)
		}
		if d.Metadata["chunk_index"] == "" {
			t.Error("doc missing chunk_index metadata")
		}
	}
	if manifest.records[0] != "handbook<-"+path {
		t.Errorf("manifest record = %q", manifest.records[0])
	}
	if manifest.chunks != len(docs) {
		t.Errorf("manifest chunks = %d, want %d", manifest.chunks, len(docs))
	}
}

func Test_Ingest_ExplicitCollectionName(t *testing.T) {
	t.Parallel()

	idx := newFakeIndex()
	p := newTestPipeline(t, idx, nil, nil)

	path := writeTempDoc(t, "whatever.txt", "some content")
	err := p.Ingest(context.Background(), []Source{{Path: path, Collection: "custom_name"}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(idx.upserted["custom_name"]) == 0 {
		t.Error("documents not upserted into the explicit collection")
	}
}

func Test_Ingest_ReplaceDropsExistingCollection(t *testing.T) {
	t.Parallel()

	idx := newFakeIndex()
	idx.existing["handbook"] = true
	p := newTestPipeline(t, idx, nil, &Config{Replace: true})

	path := writeTempDoc(t, "handbook.txt", "fresh content")
	if err := p.Ingest(context.Background(), []Source{{Path: path}}, nil); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if len(idx.dropped) != 1 || idx.dropped[0] != "handbook" {
		t.Errorf("dropped = %v, want [handbook]", idx.dropped)
	}
}

func Test_Ingest_URL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote document content"))
	}))
	t.Cleanup(srv.Close)

	idx := newFakeIndex()
	p := newTestPipeline(t, idx, nil, nil)

	url := srv.URL + "/policies/leave-policy.txt"
	if err := p.Ingest(context.Background(), []Source{{URL: url}}, nil); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(idx.upserted["leave_policy"]) == 0 {
		t.Error("remote document was not upserted")
	}
}

func Test_Ingest_SourceValidation(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, newFakeIndex(), nil, nil)

	if err := p.Ingest(context.Background(), []Source{{}}, nil); err == nil {
		t.Error("expected error for source with neither path nor url")
	}
	if err := p.Ingest(context.Background(), []Source{{Path: "a", URL: "b"}}, nil); err == nil {
		t.Error("expected error for source with both path and url")
	}
}

func Test_Ingest_EmptyDocumentFails(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, newFakeIndex(), nil, nil)
	path := writeTempDoc(t, "empty.txt", "   ")
	if err := p.Ingest(context.Background(), []Source{{Path: path}}, nil); err == nil {
		t.Error("expected error for empty document")
	}
}
