// Package ingest runs the load, split, embed and upsert pipeline.
package ingest

import (
	"context"
	"fmt"

	"github.com/smallnest/ragrouter/log"
	"github.com/smallnest/ragrouter/metrics"
	"github.com/smallnest/ragrouter/rag"
	"github.com/smallnest/ragrouter/rag/store"
)

// DefaultBatchSize is the number of chunks embedded and upserted at once.
const DefaultBatchSize = 32

// Stats summarises a run.
type Stats struct {
	Documents int
	Chunks    int
	Inserted  int
}

// Pipeline ingests documents into a vector store.
type Pipeline struct {
	loader    rag.DocumentLoader
	splitter  rag.TextSplitter
	embedder  rag.Embedder
	store     rag.VectorStore
	batchSize int
	dedup     bool
	logger    log.Logger
	metrics   *metrics.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBatchSize sets how many chunks are embedded per request.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithDedup derives record ids from chunk content so re-ingesting the same
// corpus overwrites instead of duplicating.
func WithDedup(enabled bool) Option {
	return func(p *Pipeline) {
		p.dedup = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics counts ingested chunks.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates a Pipeline.
func New(loader rag.DocumentLoader, splitter rag.TextSplitter, embedder rag.Embedder, vs rag.VectorStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		loader:    loader,
		splitter:  splitter,
		embedder:  embedder,
		store:     vs,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = log.OrDefault(p.logger)
	return p
}

// Run loads, splits, embeds and upserts every document.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	docs, err := p.loader.Load(ctx)
	if err != nil {
		return stats, fmt.Errorf("load documents: %w", err)
	}
	stats.Documents = len(docs)

	chunks, err := p.splitter.SplitDocuments(docs)
	if err != nil {
		return stats, fmt.Errorf("split documents: %w", err)
	}
	stats.Chunks = len(chunks)
	p.logger.Debug("split %d documents into %d chunks", stats.Documents, stats.Chunks)

	inserted, err := p.Index(ctx, chunks)
	stats.Inserted = inserted
	if err != nil {
		return stats, err
	}

	p.logger.Info("Inserted %d documents into the vector store.", stats.Inserted)
	return stats, nil
}

// Index embeds and upserts chunks in batches and returns how many were written.
func (p *Pipeline) Index(ctx context.Context, chunks []rag.Document) (int, error) {
	inserted := 0
	for start := 0; start < len(chunks); start += p.batchSize {
		end := min(start+p.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vectors, err := p.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return inserted, fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return inserted, fmt.Errorf("embed chunks %d-%d: got %d vectors", start, end, len(vectors))
		}

		records := make([]rag.Record, len(batch))
		for i, c := range batch {
			records[i] = rag.Record{
				ID:        store.RecordID(c, p.dedup),
				Document:  c,
				Embedding: vectors[i],
			}
		}

		n, err := p.store.Upsert(ctx, records)
		inserted += n
		p.metrics.AddIngested(n)
		if err != nil {
			return inserted, fmt.Errorf("upsert chunks %d-%d: %w", start, end, err)
		}
	}
	return inserted, nil
}
