// Package rag defines the interfaces for the retrieval side of docchat:
// text embedding, vector index access, and top-k chunk retrieval.
// Concrete implementations (Qdrant, the HTTP embedders) satisfy these
// interfaces so the chat orchestrator never depends on a specific backend.
package rag

import (
	"context"
	"errors"
)

// ErrCollectionNotFound is returned by Retrieve when the requested
// collection does not exist in the vector index. Callers decide whether to
// surface the failure or degrade to an empty context.
var ErrCollectionNotFound = errors.New("rag: collection not found")

// ErrEmbedding wraps failures from the embedding provider, including the
// provider returning no vector for a non-empty query.
var ErrEmbedding = errors.New("rag: embedding failed")

// Document represents a unit of retrieved or stored knowledge.
type Document struct {
	// ID is the unique identifier for this document chunk.
	ID string

	// Content is the raw text content of the chunk.
	Content string

	// Source is the origin URI or file path of the document.
	Source string

	// Metadata holds arbitrary key-value pairs (chunk index, doc type, etc.).
	Metadata map[string]string

	// Score is the similarity score assigned during retrieval (0.0–1.0).
	// Zero value means the score was not computed.
	Score float32
}

// Embedder is the interface for converting text into dense vector embeddings.
// Embeddings are deterministic for a fixed model and input.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the interface for persisting and searching document
// embeddings across named collections. A collection is an independent
// partition of the index: a search against collection C only ever returns
// documents upserted into C.
// Implementations must be safe to call from multiple goroutines.
type VectorIndex interface {
	// Upsert stores or updates a batch of documents in the named collection.
	// The embeddings slice must be parallel to docs — embeddings[i] is the
	// vector for docs[i].
	Upsert(ctx context.Context, collection string, docs []Document, embeddings [][]float32) error

	// Search performs a similarity search in the named collection and returns
	// the top-k most relevant documents for the given query embedding,
	// ordered by descending score. Fewer than k results is not an error.
	Search(ctx context.Context, collection string, queryEmbedding []float32, topK int) ([]Document, error)

	// CollectionExists reports whether the named collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// EnsureCollection creates the named collection with the given vector
	// dimensionality if it does not already exist.
	EnsureCollection(ctx context.Context, collection string, vectorSize uint64) error

	// DropCollection removes the named collection and all its documents.
	DropCollection(ctx context.Context, collection string) error

	// Close releases any resources held by the index.
	Close() error
}
