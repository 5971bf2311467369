package rag

import (
	"context"
	"time"
)

// Document is a unit of text with its metadata. Loaders produce whole pages,
// splitters produce chunks that point back to their page via parent_id.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Metadata keys set by the loaders and the splitter.
const (
	MetaSource      = "source"
	MetaTitle       = "title"
	MetaDescription = "description"
	MetaLanguage    = "language"
	MetaChunkIndex  = "chunk_index"
	MetaChunkTotal  = "chunk_total"
	MetaOffset      = "offset"
	MetaParentID    = "parent_id"
)

// Source returns the source metadata value or "".
func (d Document) Source() string {
	s, _ := d.Metadata[MetaSource].(string)
	return s
}

// Offset returns the chunk offset metadata value, accepting the numeric types
// produced by JSON and database round trips.
func (d Document) Offset() int {
	switch v := d.Metadata[MetaOffset].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Record is a chunk with its embedding, as stored in a vector store.
type Record struct {
	ID        string    `json:"id"`
	Document  Document  `json:"document"`
	Embedding []float32 `json:"embedding"`
}

// SearchResult is a stored chunk and its cosine similarity to the query.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// AnswerKind tags the variant of an Answer.
type AnswerKind int

const (
	// AnswerText is plain text: a Wikipedia summary or a fixed fallback message.
	AnswerText AnswerKind = iota
	// AnswerPassage is a chunk retrieved from the vector store.
	AnswerPassage
)

func (k AnswerKind) String() string {
	if k == AnswerPassage {
		return "passage"
	}
	return "text"
}

// MarshalText encodes the kind as its name.
func (k AnswerKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Answer is the single value returned for a query.
type Answer struct {
	Kind    AnswerKind     `json:"kind"`
	Content string         `json:"content"`
	Source  map[string]any `json:"source,omitempty"`
	Route   string         `json:"route"`
	Score   float64        `json:"score,omitempty"`
}

// TextAnswer builds an AnswerText.
func TextAnswer(route, content string) Answer {
	return Answer{Kind: AnswerText, Content: content, Route: route}
}

// PassageAnswer builds an AnswerPassage from a search hit.
func PassageAnswer(route string, hit SearchResult) Answer {
	return Answer{
		Kind:    AnswerPassage,
		Content: hit.Document.Content,
		Source:  hit.Document.Metadata,
		Route:   route,
		Score:   hit.Score,
	}
}

// DocumentLoader loads documents from a source.
type DocumentLoader interface {
	Load(ctx context.Context) ([]Document, error)
}

// TextSplitter splits documents into chunks.
type TextSplitter interface {
	SplitDocuments(docs []Document) ([]Document, error)
}

// Embedder generates vector embeddings. It matches langchaingo's
// embeddings.Embedder so either can be used where the other is expected.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists records and answers nearest-neighbour queries by
// cosine similarity. Implementations are safe for concurrent use.
type VectorStore interface {
	// Upsert stores records and returns how many were written. Records whose
	// ID already exists are replaced.
	Upsert(ctx context.Context, records []Record) (int, error)

	// Search returns at most k records ordered by descending similarity.
	Search(ctx context.Context, embedding []float32, k int) ([]SearchResult, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	Close() error
}

// Retriever returns the chunks most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]SearchResult, error)
}
