package rag

import (
	"context"
	"fmt"
	"strings"
)

// Retriever fetches the top-k most relevant document chunks for a query
// from a named collection. It combines an Embedder and a VectorIndex:
// the query is embedded at retrieval time and similarity search is
// delegated to the index.
// Safe for concurrent use when its Embedder and VectorIndex are.
type Retriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// index performs the vector similarity search.
	index VectorIndex

	// defaultTopK is the number of results to return when the caller passes 0.
	defaultTopK int
}

// NewRetriever constructs a Retriever from the given Embedder and VectorIndex.
// defaultTopK sets the fallback result count when Retrieve is called with topK=0.
func NewRetriever(embedder Embedder, index VectorIndex, defaultTopK int) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = 4
	}
	return &Retriever{
		embedder:    embedder,
		index:       index,
		defaultTopK: defaultTopK,
	}, nil
}

// Retrieve embeds the query and returns the top-k most relevant documents
// from the named collection, ordered by descending similarity.
//
// A missing collection yields ErrCollectionNotFound; an embedding provider
// failure yields an error wrapping ErrEmbedding. Zero matches is a valid
// result, not an error — the returned slice is simply empty.
func (r *Retriever) Retrieve(ctx context.Context, collection, query string, topK int) ([]Document, error) {
	if strings.TrimSpace(collection) == "" {
		return nil, fmt.Errorf("rag: collection name must not be empty")
	}
	if topK <= 0 {
		topK = r.defaultTopK
	}

	exists, err := r.index.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("rag: collection check for %q: %w", collection, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, collection)
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("%w: provider returned no vector for query", ErrEmbedding)
	}

	docs, err := r.index.Search(ctx, collection, embeddings[0], topK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search in %q: %w", collection, err)
	}

	return docs, nil
}
