package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallnest/ragrouter/graph"
	"github.com/smallnest/ragrouter/log"
	"github.com/smallnest/ragrouter/metrics"
	"github.com/smallnest/ragrouter/rag"
)

// Fixed answers for the degraded paths.
const (
	CouldNotRoute = "Could not route the question."
	NoDocuments   = "No relevant documents found."
	NoResults     = "No results found."
)

// Node names of the answer graph.
const (
	NodeRoute      = "route"
	NodeVector     = "vectorstore"
	NodeWiki       = "wiki_search"
	NodeUnroutable = "unroutable"
)

// ErrEmptyQuery is returned by GetAnswer for a blank query.
var ErrEmptyQuery = errors.New("empty query")

// Classifier picks a route for a query.
type Classifier interface {
	Route(ctx context.Context, query string) (Route, error)
}

// Searcher looks a query up in an external source.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// AnswerState flows through the answer graph.
type AnswerState struct {
	Query    string
	Route    Route
	Rerouted bool
	Answer   rag.Answer
}

// Answerer routes a query and fetches a single answer from the chosen source.
type Answerer struct {
	router         Classifier
	retriever      rag.Retriever
	wiki           Searcher
	scoreThreshold float64
	reroute        bool
	logger         log.Logger
	metrics        *metrics.Metrics

	runnable *graph.StateRunnable[AnswerState]
}

// AnswererOption configures an Answerer.
type AnswererOption func(*Answerer)

// WithScoreThreshold treats a top hit scoring below t as no match. Zero
// accepts any hit.
func WithScoreThreshold(t float64) AnswererOption {
	return func(a *Answerer) {
		a.scoreThreshold = t
	}
}

// WithRerouteOnLowScore sends queries whose top hit falls below the score
// threshold to Wikipedia instead of answering "No relevant documents found.".
func WithRerouteOnLowScore(enabled bool) AnswererOption {
	return func(a *Answerer) {
		a.reroute = enabled
	}
}

// WithAnswerLogger sets the logger.
func WithAnswerLogger(l log.Logger) AnswererOption {
	return func(a *Answerer) {
		a.logger = l
	}
}

// WithMetrics records query counts and latency.
func WithMetrics(m *metrics.Metrics) AnswererOption {
	return func(a *Answerer) {
		a.metrics = m
	}
}

// NewAnswerer builds the answer graph:
//
//	route -> vectorstore | wiki_search | unroutable -> END
//
// The vectorstore node may hand over to wiki_search when rerouting is enabled.
func NewAnswerer(router Classifier, retriever rag.Retriever, wiki Searcher, opts ...AnswererOption) (*Answerer, error) {
	a := &Answerer{
		router:    router,
		retriever: retriever,
		wiki:      wiki,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = log.OrDefault(a.logger)

	g := graph.NewStateGraph[AnswerState]()
	g.AddNode(NodeRoute, "classify the query", a.route)
	g.AddNode(NodeVector, "top-1 similarity search", a.searchVectorStore)
	g.AddNode(NodeWiki, "top-1 Wikipedia summary", a.searchWikipedia)
	g.AddNode(NodeUnroutable, "fixed fallback answer", a.unroutable)

	g.SetEntryPoint(NodeRoute)
	g.AddConditionalEdge(NodeRoute, func(_ context.Context, s AnswerState) string {
		switch s.Route {
		case RouteVectorStore:
			return NodeVector
		case RouteWikiSearch:
			return NodeWiki
		default:
			return NodeUnroutable
		}
	})
	g.AddConditionalEdge(NodeVector, func(_ context.Context, s AnswerState) string {
		if s.Rerouted {
			return NodeWiki
		}
		return graph.END
	})
	g.AddEdge(NodeWiki, graph.END)
	g.AddEdge(NodeUnroutable, graph.END)
	g.AddListener(graph.NewLoggingListener(a.logger))

	runnable, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile answer graph: %w", err)
	}
	a.runnable = runnable
	return a, nil
}

// GetAnswer routes query and returns one answer. Routing failures degrade to
// CouldNotRoute; retrieval failures are returned as errors.
func (a *Answerer) GetAnswer(ctx context.Context, query string) (rag.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return rag.Answer{}, ErrEmptyQuery
	}

	start := time.Now()
	final, err := a.runnable.Invoke(ctx, AnswerState{Query: query})
	if err != nil {
		a.metrics.ObserveQuery(final.Route.String(), time.Since(start), err)
		var nodeErr *graph.NodeError
		if errors.As(err, &nodeErr) {
			return rag.Answer{}, fmt.Errorf("%s failed: %w", nodeErr.Node, nodeErr.Err)
		}
		return rag.Answer{}, err
	}

	route := final.Answer.Route
	if route == "" {
		route = NodeUnroutable
	}
	a.metrics.ObserveQuery(route, time.Since(start), nil)
	return final.Answer, nil
}

func (a *Answerer) route(ctx context.Context, s AnswerState) (AnswerState, error) {
	route, err := a.router.Route(ctx, s.Query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return s, ctxErr
		}
		a.logger.Warn("could not route %q: %v", s.Query, err)
		s.Route = ""
		return s, nil
	}
	s.Route = route
	return s, nil
}

func (a *Answerer) searchVectorStore(ctx context.Context, s AnswerState) (AnswerState, error) {
	hits, err := a.retriever.Retrieve(ctx, s.Query, 1)
	if err != nil {
		return s, err
	}
	if len(hits) == 0 {
		s.Answer = rag.TextAnswer(string(RouteVectorStore), NoDocuments)
		return s, nil
	}

	top := hits[0]
	if a.scoreThreshold > 0 && top.Score < a.scoreThreshold {
		if a.reroute {
			a.logger.Info("top hit scored %.3f below %.3f, rerouting to %s", top.Score, a.scoreThreshold, RouteWikiSearch)
			s.Rerouted = true
			return s, nil
		}
		s.Answer = rag.TextAnswer(string(RouteVectorStore), NoDocuments)
		return s, nil
	}

	s.Answer = rag.PassageAnswer(string(RouteVectorStore), top)
	return s, nil
}

func (a *Answerer) searchWikipedia(ctx context.Context, s AnswerState) (AnswerState, error) {
	summary, err := a.wiki.Search(ctx, s.Query)
	if err != nil {
		return s, err
	}
	if strings.TrimSpace(summary) == "" {
		summary = NoResults
	}
	s.Answer = rag.TextAnswer(string(RouteWikiSearch), summary)
	return s, nil
}

func (a *Answerer) unroutable(_ context.Context, s AnswerState) (AnswerState, error) {
	s.Answer = rag.TextAnswer("", CouldNotRoute)
	return s, nil
}
