// Package router decides where a query should be answered from and runs the
// answer flow for that decision.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/smallnest/ragrouter/log"
	"github.com/tmc/langchaingo/llms"
)

// Route is a data source a query can be sent to.
type Route string

const (
	RouteVectorStore Route = "vectorstore"
	RouteWikiSearch  Route = "wiki_search"
)

// ErrUnroutable is returned when the model does not pick a known route.
var ErrUnroutable = errors.New("unroutable query")

// RouteToolName is the function the model is forced to call.
const RouteToolName = "RouteQuery"

// DefaultSystemPrompt describes the two data sources to the model.
const DefaultSystemPrompt = `You route user questions to the single best information source.

Two sources are available:
- vectorstore: a curated collection of articles on LLM powered agents, prompt engineering, LLM hallucination and adversarial attacks on LLMs.
- wiki_search: a Wikipedia lookup for every other subject.

Send questions about the vectorstore topics to vectorstore. Send everything else to wiki_search.
Always answer with exactly one datasource.`

// ParseRoute converts a label to a Route.
func ParseRoute(s string) (Route, error) {
	switch r := Route(strings.TrimSpace(s)); r {
	case RouteVectorStore, RouteWikiSearch:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown datasource %q", ErrUnroutable, s)
	}
}

func (r Route) String() string {
	return string(r)
}

// routeTool is the structured output schema: one required enum field.
var routeTool = llms.Tool{
	Type: "function",
	Function: &llms.FunctionDefinition{
		Name:        RouteToolName,
		Description: "Route a user query to the most relevant datasource.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"datasource": map[string]any{
					"type":        "string",
					"enum":        []string{string(RouteVectorStore), string(RouteWikiSearch)},
					"description": "Choose between Wikipedia or vectorstore.",
				},
			},
			"required": []string{"datasource"},
		},
	},
}

type routeDecision struct {
	Datasource string `json:"datasource"`
}

// Router classifies queries with an LLM.
type Router struct {
	llm          llms.Model
	systemPrompt string
	temperature  float64
	logger       log.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithSystemPrompt replaces the routing prompt.
func WithSystemPrompt(prompt string) Option {
	return func(r *Router) {
		if prompt != "" {
			r.systemPrompt = prompt
		}
	}
}

// WithTemperature sets the sampling temperature, default 0.
func WithTemperature(t float64) Option {
	return func(r *Router) {
		r.temperature = t
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// New creates a Router backed by llm.
func New(llm llms.Model, opts ...Option) *Router {
	r := &Router{
		llm:          llm,
		systemPrompt: DefaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.OrDefault(r.logger)
	return r
}

// Route asks the model for a datasource. Labels outside the enumeration
// return an error wrapping ErrUnroutable.
func (r *Router) Route(ctx context.Context, query string) (Route, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, r.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, query),
	}

	resp, err := r.llm.GenerateContent(ctx, messages,
		llms.WithTools([]llms.Tool{routeTool}),
		llms.WithToolChoice(llms.ToolChoice{
			Type:     "function",
			Function: &llms.FunctionReference{Name: RouteToolName},
		}),
		llms.WithTemperature(r.temperature),
	)
	if err != nil {
		return "", fmt.Errorf("routing request failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", fmt.Errorf("%w: empty response", ErrUnroutable)
	}

	raw := decisionArguments(resp.Choices[0])
	var decision routeDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return "", fmt.Errorf("%w: cannot parse decision %q: %v", ErrUnroutable, raw, err)
	}

	route, err := ParseRoute(decision.Datasource)
	if err != nil {
		return "", err
	}
	r.logger.Debug("routed %q to %s", query, route)
	return route, nil
}

// decisionArguments returns the RouteQuery arguments, or the JSON object found
// in the plain content when the model did not call the tool.
func decisionArguments(choice *llms.ContentChoice) string {
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall != nil && tc.FunctionCall.Name == RouteToolName {
			return tc.FunctionCall.Arguments
		}
	}
	if choice.FuncCall != nil && choice.FuncCall.Name == RouteToolName {
		return choice.FuncCall.Arguments
	}

	content := strings.TrimSpace(choice.Content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}
