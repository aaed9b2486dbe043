// Package ingestion implements the document ingestion pipeline.
// It reads a document from a local file or URL, splits it into
// overlapping chunks, embeds each chunk, and upserts the result into a
// per-document vector collection. Invoked by the `docchat ingest` CLI
// command.
package ingestion

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/docchat/docchat-go/internal/rag"
)

// Source describes one document to ingest.
type Source struct {
	// Path is a local file path. Mutually exclusive with URL.
	Path string

	// URL is an HTTP(S) URL to fetch. Mutually exclusive with Path.
	URL string

	// Collection overrides the derived collection name when non-empty.
	Collection string
}

// Manifest records what was ingested. The sqlite-backed implementation
// lives in the store package; nil disables recording.
type Manifest interface {
	Record(ctx context.Context, collection, source string, chunks int) error
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per document chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters to overlap between consecutive
	// chunks. Defaults to 200 if zero.
	ChunkOverlap int

	// Replace drops an existing collection before ingesting into it.
	Replace bool

	// HTTPTimeout is the timeout for each document fetch request.
	// Defaults to 30s if zero.
	HTTPTimeout time.Duration

	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string
}

// Pipeline orchestrates the read → chunk → embed → upsert flow for a set
// of document sources.
type Pipeline struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// index persists the embedded chunks, one collection per document.
	index rag.VectorIndex

	// manifest records ingested sources; may be nil.
	manifest Manifest

	// cfg holds the resolved pipeline configuration.
	cfg *Config

	// httpClient is the HTTP client used for fetching remote documents.
	httpClient *http.Client
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
// manifest may be nil.
func NewPipeline(embedder rag.Embedder, index rag.VectorIndex, manifest Manifest, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("ingestion: index must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "docchat-go/1.0 (document ingestion)"
	}

	return &Pipeline{
		embedder: embedder,
		index:    index,
		manifest: manifest,
		cfg:      cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}, nil
}

// Ingest reads, chunks, embeds, and stores all provided sources.
// It processes sources sequentially and returns the first error encountered.
// Progress is reported via the optional progress callback.
func (p *Pipeline) Ingest(ctx context.Context, sources []Source, progress func(msg string)) error {
	if progress == nil {
		progress = func(string) {}
	}

	for _, src := range sources {
		name, err := src.name()
		if err != nil {
			return fmt.Errorf("ingestion: %w", err)
		}
		collection := src.Collection
		if collection == "" {
			collection = CollectionName(name)
		}

		progress(fmt.Sprintf("reading %s", name))
		content, err := p.read(ctx, src)
		if err != nil {
			return fmt.Errorf("ingestion: read failed for %s: %w", name, err)
		}

		chunks := p.chunk(content)
		if len(chunks) == 0 {
			return fmt.Errorf("ingestion: %s contains no text", name)
		}
		progress(fmt.Sprintf("chunked %s into %d chunks", name, len(chunks)))

		embeddings, err := p.embedder.Embed(ctx, chunks)
		if err != nil {
			return fmt.Errorf("ingestion: embedding failed for %s: %w", name, err)
		}
		if len(embeddings) != len(chunks) || len(embeddings[0]) == 0 {
			return fmt.Errorf("ingestion: embedder returned %d vectors for %d chunks of %s",
				len(embeddings), len(chunks), name)
		}

		if p.cfg.Replace {
			exists, err := p.index.CollectionExists(ctx, collection)
			if err != nil {
				return fmt.Errorf("ingestion: collection check for %q: %w", collection, err)
			}
			if exists {
				if err := p.index.DropCollection(ctx, collection); err != nil {
					return fmt.Errorf("ingestion: drop collection %q: %w", collection, err)
				}
				progress(fmt.Sprintf("replaced existing collection %q", collection))
			}
		}

		if err := p.index.EnsureCollection(ctx, collection, uint64(len(embeddings[0]))); err != nil {
			return fmt.Errorf("ingestion: ensure collection %q: %w", collection, err)
		}

		docs := make([]rag.Document, 0, len(chunks))
		for i, chunk := range chunks {
			docs = append(docs, rag.Document{
				ID:      chunkID(name, i),
				Content: chunk,
				Source:  name,
				Metadata: map[string]string{
					"chunk_index": fmt.Sprintf("%d", i),
				},
			})
		}

		if err := p.index.Upsert(ctx, collection, docs, embeddings); err != nil {
			return fmt.Errorf("ingestion: upsert failed for %s: %w", name, err)
		}

		if p.manifest != nil {
			if err := p.manifest.Record(ctx, collection, name, len(chunks)); err != nil {
				return fmt.Errorf("ingestion: manifest record for %q: %w", collection, err)
			}
		}

		progress(fmt.Sprintf("ingested %d chunks from %s into %q", len(chunks), name, collection))
	}

	return nil
}

// name returns the identifying label for the source: the file path or URL.
func (s Source) name() (string, error) {
	switch {
	case s.Path != "" && s.URL != "":
		return "", fmt.Errorf("source must not set both path and url")
	case s.Path != "":
		return s.Path, nil
	case s.URL != "":
		return s.URL, nil
	default:
		return "", fmt.Errorf("source must set a path or url")
	}
}

// read loads the raw text of the source, from disk or over HTTP.
func (p *Pipeline) read(ctx context.Context, src Source) (string, error) {
	if src.Path != "" {
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
		return string(data), nil
	}
	return p.fetch(ctx, src.URL)
}

// fetch retrieves the raw text content of a URL.
func (p *Pipeline) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Accept", "text/plain, text/html")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}

	return string(body), nil
}

// chunk splits text into overlapping chunks of at most cfg.ChunkSize bytes.
// Boundaries are snapped to rune starts so a multi-byte character is never
// split across two chunks.
func (p *Pipeline) chunk(text string) []string {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}

	var chunks []string
	size := p.cfg.ChunkSize
	overlap := p.cfg.ChunkOverlap

	for start := 0; start < len(text); {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			// ChunkSize smaller than the rune at start; emit it whole.
			_, n := utf8.DecodeRuneInString(text[start:])
			end = start + n
		}
		chunks = append(chunks, text[start:end])

		next := end - overlap
		if next <= start {
			next = end
		}
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}

	return chunks
}

// CollectionName derives the vector collection name for a source: the file
// or URL basename without extension, lowercased, with runs of
// non-alphanumerics collapsed to single underscores.
func CollectionName(source string) string {
	base := filepath.Base(strings.TrimRight(source, "/"))
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}

	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(base) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && sb.Len() > 0 {
			sb.WriteByte('_')
			lastUnderscore = true
		}
	}
	name := strings.Trim(sb.String(), "_")
	if name == "" {
		name = "document"
	}
	return name
}

// chunkID generates a deterministic ID for a document chunk based on its
// source and chunk index. The hash is formatted as a UUID because Qdrant
// only accepts UUID strings as point IDs.
func chunkID(source string, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", source, index)))
	return fmt.Sprintf("%x-%x-%x-%x-%x", h[0:4], h[4:6], h[6:8], h[8:10], h[10:16])
}
