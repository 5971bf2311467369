package tool

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/smallnest/ragrouter/cache"
	"github.com/smallnest/ragrouter/log"
	"github.com/smallnest/ragrouter/metrics"
	"github.com/tmc/langchaingo/tools"
	"github.com/tmc/langchaingo/tools/wikipedia"
)

// NoResults is returned by Search when no article matches.
const NoResults = "No results found."

const (
	DefaultUserAgent = "ragrouter/1.0 (https://github.com/smallnest/ragrouter)"
	DefaultTopK      = 1
	DefaultMaxChars  = 400
	DefaultLanguage  = "en"

	// langchaingo reports an empty search with this text instead of an error.
	noPagesFound = "no wikipedia pages found"
)

// Wikipedia looks up article summaries.
type Wikipedia struct {
	userAgent  string
	topK       int
	maxChars   int
	language   string
	httpClient *http.Client
	cache      cache.Cache
	metrics    *metrics.Metrics
	logger     log.Logger

	client wikipedia.Tool
}

var _ tools.Tool = (*Wikipedia)(nil)

// WikipediaOption configures a Wikipedia lookup.
type WikipediaOption func(*Wikipedia)

// WithHTTPClient sets the client used for API requests.
func WithHTTPClient(client *http.Client) WikipediaOption {
	return func(w *Wikipedia) {
		w.httpClient = client
	}
}

// WithUserAgent sets the User-Agent header. See https://www.mediawiki.org/wiki/API:Etiquette.
func WithUserAgent(ua string) WikipediaOption {
	return func(w *Wikipedia) {
		if ua != "" {
			w.userAgent = ua
		}
	}
}

// WithTopK sets the number of articles concatenated into the result.
func WithTopK(k int) WikipediaOption {
	return func(w *Wikipedia) {
		if k > 0 {
			w.topK = k
		}
	}
}

// WithMaxChars caps the characters taken from each article.
func WithMaxChars(n int) WikipediaOption {
	return func(w *Wikipedia) {
		if n > 0 {
			w.maxChars = n
		}
	}
}

// WithLanguage sets the Wikipedia language edition, e.g. "en" or "de".
func WithLanguage(lang string) WikipediaOption {
	return func(w *Wikipedia) {
		if lang != "" {
			w.language = lang
		}
	}
}

// WithCache caches summaries by normalized query.
func WithCache(c cache.Cache) WikipediaOption {
	return func(w *Wikipedia) {
		w.cache = c
	}
}

// WithMetrics records cache hits and misses.
func WithMetrics(m *metrics.Metrics) WikipediaOption {
	return func(w *Wikipedia) {
		w.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) WikipediaOption {
	return func(w *Wikipedia) {
		w.logger = l
	}
}

// NewWikipedia creates a Wikipedia lookup returning the top article's summary
// truncated to 400 characters.
func NewWikipedia(opts ...WikipediaOption) *Wikipedia {
	w := &Wikipedia{
		userAgent: DefaultUserAgent,
		topK:      DefaultTopK,
		maxChars:  DefaultMaxChars,
		language:  DefaultLanguage,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = log.OrDefault(w.logger)

	var clientOpts []wikipedia.Option
	if w.httpClient != nil {
		clientOpts = append(clientOpts, wikipedia.WithHTTPClient(w.httpClient))
	}
	w.client = wikipedia.New(w.userAgent, clientOpts...)
	w.client.TopK = w.topK
	w.client.DocMaxChars = w.maxChars
	w.client.LanguageCode = w.language

	return w
}

// Name returns the name of the tool.
func (w *Wikipedia) Name() string {
	return "wiki_search"
}

// Description returns the description of the tool.
func (w *Wikipedia) Description() string {
	return "Looks up a short Wikipedia summary. " +
		"Useful for general questions about people, places, events and other subjects. " +
		"Input should be a search query."
}

// Call implements tools.Tool.
func (w *Wikipedia) Call(ctx context.Context, input string) (string, error) {
	return w.Search(ctx, input)
}

// Search returns the summary for query, or NoResults when nothing matches.
func (w *Wikipedia) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return NoResults, nil
	}

	if w.cache != nil {
		val, ok, err := w.cache.Get(ctx, w.cacheKey(query))
		if err != nil {
			w.logger.Warn("wikipedia cache lookup failed: %v", err)
		}
		w.metrics.ObserveCache(ok)
		if ok {
			w.logger.Debug("wikipedia cache hit for %q", query)
			return val, nil
		}
	}

	result, err := w.client.Call(ctx, query)
	if err != nil {
		return "", fmt.Errorf("wikipedia search failed: %w", err)
	}

	result = strings.TrimSpace(result)
	if result == "" || result == noPagesFound {
		return NoResults, nil
	}

	if w.cache != nil {
		if err := w.cache.Set(ctx, w.cacheKey(query), result); err != nil {
			w.logger.Warn("wikipedia cache store failed: %v", err)
		}
	}

	return result, nil
}

// cacheKey scopes query by the settings that shape the result, so lookups
// sharing one cache with different settings never see each other's entries.
func (w *Wikipedia) cacheKey(query string) string {
	return fmt.Sprintf("wiki:%s:%d:%d:%s", w.language, w.topK, w.maxChars, query)
}
