// Package server exposes the answer flow over HTTP: an HTML form, a JSON API,
// a health check and prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallnest/ragrouter/log"
	"github.com/smallnest/ragrouter/metrics"
	"github.com/smallnest/ragrouter/rag"
)

// EmptyQueryWarning is shown when a blank query is submitted.
const EmptyQueryWarning = "Please enter a query."

const defaultTitle = "RAG Query Router"

// Answerer answers a single query.
type Answerer interface {
	GetAnswer(ctx context.Context, query string) (rag.Answer, error)
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is returned by POST /api/query.
type QueryResponse struct {
	Kind    string         `json:"kind"`
	Content string         `json:"content"`
	Route   string         `json:"route"`
	Source  map[string]any `json:"source,omitempty"`
	Score   float64        `json:"score,omitempty"`
}

// Server serves the web UI and API.
type Server struct {
	answerer Answerer
	metrics  *metrics.Metrics
	logger   log.Logger
	title    string
	engine   *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithTitle sets the page title.
func WithTitle(title string) Option {
	return func(s *Server) {
		if title != "" {
			s.title = title
		}
	}
}

// New creates a Server and registers its routes.
func New(answerer Answerer, opts ...Option) *Server {
	s := &Server{
		answerer: answerer,
		title:    defaultTitle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.OrDefault(s.logger)
	s.engine = s.setupRouter()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.SetHTMLTemplate(pageTemplate)

	r.GET("/", s.indexHandler)
	r.POST("/ask", s.askHandler)
	r.POST("/api/query", s.queryHandler)
	r.GET("/healthz", healthHandler)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) indexHandler(c *gin.Context) {
	c.HTML(http.StatusOK, "index", pageData{Title: s.title})
}

func (s *Server) askHandler(c *gin.Context) {
	query := strings.TrimSpace(c.PostForm("query"))
	data := pageData{Title: s.title, Query: query}

	if query == "" {
		data.Warning = EmptyQueryWarning
		c.HTML(http.StatusOK, "index", data)
		return
	}

	ans, err := s.answerer.GetAnswer(c.Request.Context(), query)
	if err != nil {
		s.logger.Error("failed to answer %q: %v", query, err)
		data.Error = "Failed to answer the question."
		c.HTML(http.StatusBadGateway, "index", data)
		return
	}

	data.Route = ans.Route
	if data.Route == "" {
		data.Route = "no source"
	}
	if src, ok := ans.Source[rag.MetaSource].(string); ok {
		data.Source = src
	}
	data.Answer = RenderMarkdown(ans.Content)
	c.HTML(http.StatusOK, "index", data)
}

func (s *Server) queryHandler(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid request body"}})
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": EmptyQueryWarning}})
		return
	}

	ans, err := s.answerer.GetAnswer(c.Request.Context(), query)
	if err != nil {
		s.logger.Error("failed to answer %q: %v", query, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{"message": "Failed to answer the question", "detail": err.Error()}})
		return
	}

	c.JSON(http.StatusOK, QueryResponse{
		Kind:    ans.Kind.String(),
		Content: ans.Content,
		Route:   ans.Route,
		Source:  ans.Source,
		Score:   ans.Score,
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		return nil
	}
}
