// Package retriever finds the stored chunks most similar to a query.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallnest/ragrouter/rag"
)

// ErrEmptyQuery is returned for a blank query.
var ErrEmptyQuery = errors.New("empty query")

// VectorRetriever implements document retrieval using vector similarity
type VectorRetriever struct {
	vectorStore    rag.VectorStore
	embedder       rag.Embedder
	scoreThreshold float64
}

// Option configures a VectorRetriever.
type Option func(*VectorRetriever)

// WithScoreThreshold drops results scoring below t. Zero keeps everything.
func WithScoreThreshold(t float64) Option {
	return func(r *VectorRetriever) {
		r.scoreThreshold = t
	}
}

// NewVectorRetriever creates a new vector retriever
func NewVectorRetriever(vectorStore rag.VectorStore, embedder rag.Embedder, opts ...Option) *VectorRetriever {
	r := &VectorRetriever{
		vectorStore: vectorStore,
		embedder:    embedder,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve embeds query and returns at most k results, best first.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, k int) ([]rag.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = 1
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.vectorStore.Search(ctx, queryEmbedding, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	if r.scoreThreshold > 0 {
		filtered := results[:0]
		for _, res := range results {
			if res.Score >= r.scoreThreshold {
				filtered = append(filtered, res)
			}
		}
		results = filtered
	}
	return results, nil
}
