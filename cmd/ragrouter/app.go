package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/smallnest/ragrouter/cache"
	"github.com/smallnest/ragrouter/config"
	"github.com/smallnest/ragrouter/log"
	"github.com/smallnest/ragrouter/metrics"
	"github.com/smallnest/ragrouter/rag"
	"github.com/smallnest/ragrouter/rag/embedder"
	"github.com/smallnest/ragrouter/rag/ingest"
	"github.com/smallnest/ragrouter/rag/loader"
	"github.com/smallnest/ragrouter/rag/retriever"
	"github.com/smallnest/ragrouter/rag/splitter"
	"github.com/smallnest/ragrouter/rag/store"
	"github.com/smallnest/ragrouter/router"
	"github.com/smallnest/ragrouter/tool"
	"github.com/tmc/langchaingo/llms/openai"
)

// app holds the long-lived resources shared by the subcommands.
type app struct {
	cfg        *config.Config
	logger     log.Logger
	metrics    *metrics.Metrics
	httpClient *http.Client
	store      rag.VectorStore
	embedder   rag.Embedder
	closers    []func() error
}

// newApp loads and validates configuration, then opens the vector store and
// the embedder. Credentials, and the LLM key when answering is set, are
// checked before any network activity.
func newApp(ctx context.Context, configPath string, answering bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if answering {
		if err := cfg.ValidateLLM(); err != nil {
			return nil, err
		}
	}

	logger := log.NewGologLoggerWithLevel(log.ParseLevel(cfg.LogLevel))
	log.SetDefaultLogger(logger)

	a := &app{
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics.New(),
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}

	vs, err := store.Open(ctx, store.Config{
		Backend:    cfg.StoreBackend,
		TableName:  cfg.TableName,
		DBID:       cfg.DBID,
		DBToken:    cfg.DBToken,
		Dimensions: cfg.VectorDim,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	a.store = vs
	a.closers = append(a.closers, vs.Close)

	emb, err := embedder.New(embedder.Config{
		Provider:   cfg.EmbeddingProvider,
		Model:      cfg.EmbeddingModel,
		APIKey:     cfg.EmbeddingAPIKey,
		Dimensions: cfg.VectorDim,
		HTTPClient: a.httpClient,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.embedder = emb

	return a, nil
}

// ingest loads the configured urls (when includeURLs is set) plus any local
// files and writes their chunks to the store.
func (a *app) ingest(ctx context.Context, files []string, includeURLs bool) (ingest.Stats, error) {
	var loaders loader.MultiLoader
	if includeURLs && len(a.cfg.URLs) > 0 {
		loaders = append(loaders, loader.NewWebLoader(a.cfg.URLs,
			loader.WithHTTPClient(a.httpClient),
			loader.WithReadability(a.cfg.UseReadability),
			loader.WithRateLimit(a.cfg.FetchRPS),
			loader.WithWebLogger(a.logger),
		))
	}
	for _, f := range files {
		loaders = append(loaders, loader.NewTextLoader(f))
	}
	if len(loaders) == 0 {
		return ingest.Stats{}, nil
	}

	sp, err := splitter.New(a.cfg.ChunkSize, a.cfg.ChunkOverlap, splitter.WithLogger(a.logger))
	if err != nil {
		return ingest.Stats{}, err
	}

	pipeline := ingest.New(loaders, sp, a.embedder, a.store,
		ingest.WithDedup(a.cfg.Dedup),
		ingest.WithLogger(a.logger),
		ingest.WithMetrics(a.metrics),
	)
	return pipeline.Run(ctx)
}

// answerer builds the router and the answer graph. It fails with
// config.ErrMissingLLMKey when no LLM key is configured.
func (a *app) answerer() (*router.Answerer, error) {
	if err := a.cfg.ValidateLLM(); err != nil {
		return nil, err
	}

	llm, err := openai.New(
		openai.WithToken(a.cfg.LLMAPIKey),
		openai.WithBaseURL(a.cfg.LLMBaseURL),
		openai.WithModel(a.cfg.LLMModel),
		openai.WithHTTPClient(a.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("create router llm: %w", err)
	}

	wikiOpts := []tool.WikipediaOption{
		tool.WithHTTPClient(a.httpClient),
		tool.WithTopK(a.cfg.WikiTopK),
		tool.WithMaxChars(a.cfg.WikiMaxChars),
		tool.WithLanguage(a.cfg.WikiLanguage),
		tool.WithMetrics(a.metrics),
		tool.WithLogger(a.logger),
	}
	if c := a.cache(); c != nil {
		wikiOpts = append(wikiOpts, tool.WithCache(c))
	}

	return router.NewAnswerer(
		router.New(llm, router.WithLogger(a.logger)),
		retriever.NewVectorRetriever(a.store, a.embedder),
		tool.NewWikipedia(wikiOpts...),
		router.WithScoreThreshold(a.cfg.ScoreThreshold),
		router.WithRerouteOnLowScore(a.cfg.RerouteOnLowScore),
		router.WithAnswerLogger(a.logger),
		router.WithMetrics(a.metrics),
	)
}

// cache returns a redis cache when an address is configured, an in-memory
// one for a positive TTL, and nil otherwise.
func (a *app) cache() cache.Cache {
	if a.cfg.RedisAddr != "" {
		c := cache.NewRedisCache(cache.RedisOptions{Addr: a.cfg.RedisAddr, TTL: a.cfg.CacheTTL})
		a.closers = append(a.closers, c.Close)
		return c
	}
	if a.cfg.CacheTTL > 0 {
		return cache.NewMemoryCache(a.cfg.CacheTTL)
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close: %v", err)
		}
	}
	a.closers = nil
}
