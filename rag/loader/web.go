package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"

	"github.com/smallnest/ragrouter/log"
	"github.com/smallnest/ragrouter/rag"
)

// DefaultUserAgent is sent with every page request.
const DefaultUserAgent = "ragrouter/1.0 (+https://github.com/smallnest/ragrouter)"

// maxPageBytes caps the size of a fetched page.
const maxPageBytes = 10 << 20

// ErrHTTPStatus is returned for non-2xx page responses.
var ErrHTTPStatus = errors.New("unexpected http status")

// WebLoader fetches a fixed list of pages, one document per page.
type WebLoader struct {
	urls        []string
	client      *http.Client
	userAgent   string
	readability bool
	limiter     *rate.Limiter
	logger      log.Logger
	now         func() time.Time
}

// WebLoaderOption configures a WebLoader.
type WebLoaderOption func(*WebLoader)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) WebLoaderOption {
	return func(l *WebLoader) {
		l.client = client
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) WebLoaderOption {
	return func(l *WebLoader) {
		l.userAgent = ua
	}
}

// WithReadability extracts the main article content instead of the whole
// body text.
func WithReadability(enabled bool) WebLoaderOption {
	return func(l *WebLoader) {
		l.readability = enabled
	}
}

// WithRateLimit paces requests to rps pages per second. Zero or negative
// disables pacing.
func WithRateLimit(rps float64) WebLoaderOption {
	return func(l *WebLoader) {
		if rps <= 0 {
			l.limiter = nil
			return
		}
		l.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithWebLogger sets the logger.
func WithWebLogger(logger log.Logger) WebLoaderOption {
	return func(l *WebLoader) {
		l.logger = logger
	}
}

// NewWebLoader creates a loader for urls, fetched in order.
func NewWebLoader(urls []string, opts ...WebLoaderOption) *WebLoader {
	l := &WebLoader{
		urls:      urls,
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: DefaultUserAgent,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = log.OrDefault(l.logger)
	return l
}

// Load fetches every page sequentially. The first failure aborts the load.
func (l *WebLoader) Load(ctx context.Context) ([]rag.Document, error) {
	docs := make([]rag.Document, 0, len(l.urls))
	for _, u := range l.urls {
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		doc, err := l.fetch(ctx, u)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("loaded %s (%d bytes of text)", u, len(doc.Content))
		docs = append(docs, doc)
	}
	return docs, nil
}

func (l *WebLoader) fetch(ctx context.Context, rawURL string) (rag.Document, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return rag.Document{}, fmt.Errorf("parse url %s: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return rag.Document{}, fmt.Errorf("build request %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return rag.Document{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rag.Document{}, fmt.Errorf("fetch %s: %w: %d", rawURL, ErrHTTPStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return rag.Document{}, fmt.Errorf("read %s: %w", rawURL, err)
	}

	html, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return rag.Document{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	metadata := map[string]any{rag.MetaSource: rawURL}
	if title := strings.TrimSpace(html.Find("title").First().Text()); title != "" {
		metadata[rag.MetaTitle] = title
	}
	if desc, ok := html.Find(`meta[name="description"]`).Attr("content"); ok {
		metadata[rag.MetaDescription] = strings.TrimSpace(desc)
	}
	if lang, ok := html.Find("html").Attr("lang"); ok {
		metadata[rag.MetaLanguage] = lang
	}

	var text string
	if l.readability {
		article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
		if err != nil {
			return rag.Document{}, fmt.Errorf("extract %s: %w", rawURL, err)
		}
		text = article.TextContent
		if _, ok := metadata[rag.MetaTitle]; !ok && article.Title != "" {
			metadata[rag.MetaTitle] = article.Title
		}
	} else {
		text = bodyText(html)
	}

	return rag.Document{
		ID:        rawURL,
		Content:   normalizeSpace(text),
		Metadata:  metadata,
		CreatedAt: l.now(),
	}, nil
}

func bodyText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, template").Remove()
	body := doc.Find("body")
	if body.Length() == 0 {
		return doc.Text()
	}
	return body.Text()
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// normalizeSpace trims every line and collapses runs of blank lines so
// paragraph breaks survive for the splitter.
func normalizeSpace(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
