// Package scan ranks records by brute-force cosine similarity.
package scan

import (
	"sort"

	"github.com/smallnest/ragrouter/rag"
	"github.com/smallnest/ragrouter/rag/embedder"
)

// Ranker keeps the k best records seen so far. Records must be offered in a
// stable order; ties keep the earlier record first.
type Ranker struct {
	query []float32
	k     int
	best  []rag.SearchResult
}

// NewRanker creates a Ranker for query keeping at most k results.
func NewRanker(query []float32, k int) *Ranker {
	return &Ranker{query: query, k: k}
}

// Offer scores doc against the query.
func (r *Ranker) Offer(doc rag.Document, embedding []float32) {
	if r.k <= 0 {
		return
	}
	score := embedder.Cosine(r.query, embedding)
	if len(r.best) == r.k && score <= r.best[len(r.best)-1].Score {
		return
	}
	i := sort.Search(len(r.best), func(i int) bool { return r.best[i].Score < score })
	r.best = append(r.best, rag.SearchResult{})
	copy(r.best[i+1:], r.best[i:])
	r.best[i] = rag.SearchResult{Document: doc, Score: score}
	if len(r.best) > r.k {
		r.best = r.best[:r.k]
	}
}

// Results returns the ranked results, best first.
func (r *Ranker) Results() []rag.SearchResult {
	return r.best
}
