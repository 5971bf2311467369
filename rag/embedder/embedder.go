// Package embedder builds the embedding model used for ingestion and query
// time. Every provider's output is L2-normalized so cosine similarity equals
// the dot product.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	hfembeddings "github.com/tmc/langchaingo/embeddings/huggingface"
	"github.com/tmc/langchaingo/llms/huggingface"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/smallnest/ragrouter/rag"
)

// Providers.
const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderHash        = "hash"
)

// DefaultHuggingFaceModel matches the sentence-transformers model the corpus
// was first indexed with.
const DefaultHuggingFaceModel = "sentence-transformers/all-MiniLM-L6-v2"

// ErrUnknownProvider is returned by New for an unsupported provider.
var ErrUnknownProvider = errors.New("unknown embedding provider")

// Config selects and configures an embedding provider.
type Config struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
	BatchSize  int
	HTTPClient *http.Client
}

// New creates the embedder described by cfg.
func New(cfg Config) (rag.Embedder, error) {
	var (
		base embeddings.Embedder
		err  error
	)
	switch strings.ToLower(cfg.Provider) {
	case ProviderHuggingFace, "":
		base, err = newHuggingFace(cfg)
	case ProviderOpenAI:
		base, err = newOpenAI(cfg)
	case ProviderHash:
		base = NewHashEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s embedder: %w", cfg.Provider, err)
	}
	return Normalize(base), nil
}

func newHuggingFace(cfg Config) (embeddings.Embedder, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultHuggingFaceModel
	}

	var llmOpts []huggingface.Option
	if cfg.APIKey != "" {
		llmOpts = append(llmOpts, huggingface.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		llmOpts = append(llmOpts, huggingface.WithURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		llmOpts = append(llmOpts, huggingface.WithHTTPClient(cfg.HTTPClient))
	}
	client, err := huggingface.New(llmOpts...)
	if err != nil {
		return nil, err
	}

	opts := []hfembeddings.Option{
		hfembeddings.WithClient(*client),
		hfembeddings.WithModel(model),
	}
	if cfg.BatchSize > 0 {
		opts = append(opts, hfembeddings.WithBatchSize(cfg.BatchSize))
	}
	return hfembeddings.NewHuggingface(opts...)
}

func newOpenAI(cfg Config) (embeddings.Embedder, error) {
	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.Model != "" {
		opts = append(opts, openai.WithEmbeddingModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Dimensions > 0 {
		opts = append(opts, openai.WithEmbeddingDimensions(cfg.Dimensions))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, openai.WithHTTPClient(cfg.HTTPClient))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	var embOpts []embeddings.Option
	if cfg.BatchSize > 0 {
		embOpts = append(embOpts, embeddings.WithBatchSize(cfg.BatchSize))
	}
	return embeddings.NewEmbedder(llm, embOpts...)
}

// Normalized wraps an embedder and L2-normalizes its output.
type Normalized struct {
	inner embeddings.Embedder
}

// Normalize wraps e. Wrapping an already normalized embedder returns it as is.
func Normalize(e embeddings.Embedder) *Normalized {
	if n, ok := e.(*Normalized); ok {
		return n
	}
	return &Normalized{inner: e}
}

// EmbedDocuments implements rag.Embedder.
func (n *Normalized) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := n.inner.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for _, v := range vectors {
		L2Normalize(v)
	}
	return vectors, nil
}

// EmbedQuery implements rag.Embedder.
func (n *Normalized) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := n.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	L2Normalize(v)
	return v, nil
}

// L2Normalize scales v in place to unit length. Zero vectors are left as is.
func L2Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero
// vector or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
