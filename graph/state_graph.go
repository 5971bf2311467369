package graph

import (
	"context"
	"fmt"
	"time"
)

// StateGraph is a graph of typed nodes. The type parameter S is the state
// passed from node to node, typically a struct.
type StateGraph[S any] struct {
	nodes            map[string]TypedNode[S]
	edges            []Edge
	conditionalEdges map[string]func(ctx context.Context, state S) string
	entryPoint       string
	listeners        []NodeListener
	maxSteps         int
}

// TypedNode represents a typed node in the graph.
type TypedNode[S any] struct {
	Name        string
	Description string
	Function    func(ctx context.Context, state S) (S, error)
}

// NewStateGraph creates an empty graph for state type S.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]TypedNode[S]),
		conditionalEdges: make(map[string]func(ctx context.Context, state S) string),
		maxSteps:         DefaultMaxSteps,
	}
}

// AddNode adds a node. Adding a node with an existing name replaces it.
func (g *StateGraph[S]) AddNode(name string, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = TypedNode[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge adds a static edge between the "from" and "to" nodes.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// AddConditionalEdge adds an edge whose target is chosen at runtime from the
// state produced by the "from" node. It takes precedence over static edges.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint sets the first node to run.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetMaxSteps overrides DefaultMaxSteps. Values below 1 are ignored.
func (g *StateGraph[S]) SetMaxSteps(n int) {
	if n > 0 {
		g.maxSteps = n
	}
}

// AddListener registers a listener notified for every node of the graph.
func (g *StateGraph[S]) AddListener(l NodeListener) {
	g.listeners = append(g.listeners, l)
}

// Nodes returns the node names in no particular order.
func (g *StateGraph[S]) Nodes() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	return names
}

// StateRunnable is a compiled state graph.
type StateRunnable[S any] struct {
	graph *StateGraph[S]
}

// Compile validates the graph and returns a runnable.
func (g *StateGraph[S]) Compile() (*StateRunnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, g.entryPoint)
	}
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge source %s", ErrNodeNotFound, e.From)
		}
		if _, ok := g.nodes[e.To]; !ok && e.To != END {
			return nil, fmt.Errorf("%w: edge target %s", ErrNodeNotFound, e.To)
		}
	}
	return &StateRunnable[S]{graph: g}, nil
}

// Invoke runs the graph from the entry point until END and returns the final state.
func (r *StateRunnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	state := initialState
	current := r.graph.entryPoint

	for step := 0; current != END; step++ {
		if step >= r.graph.maxSteps {
			return state, fmt.Errorf("%w: %d", ErrMaxStepsExceeded, r.graph.maxSteps)
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		node, ok := r.graph.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		r.notify(ctx, NodeEventStart, node.Name, state, nil)
		start := time.Now()
		next, err := node.Function(ctx, state)
		if err != nil {
			r.notify(ctx, NodeEventError, node.Name, state, err)
			return state, &NodeError{Node: node.Name, Err: err}
		}
		state = next
		r.notifyComplete(ctx, node.Name, state, time.Since(start))

		current, err = r.nextNode(ctx, node.Name, state)
		if err != nil {
			return state, err
		}
	}
	return state, nil
}

func (r *StateRunnable[S]) nextNode(ctx context.Context, from string, state S) (string, error) {
	if cond, ok := r.graph.conditionalEdges[from]; ok {
		next := cond(ctx, state)
		if next == "" {
			return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, from)
		}
		if _, ok := r.graph.nodes[next]; !ok && next != END {
			return "", fmt.Errorf("%w: %s", ErrNodeNotFound, next)
		}
		return next, nil
	}
	for _, e := range r.graph.edges {
		if e.From == from {
			return e.To, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, from)
}

func (r *StateRunnable[S]) notify(ctx context.Context, event NodeEvent, name string, state S, err error) {
	for _, l := range r.graph.listeners {
		safeNotify(ctx, l, Event{Type: event, Node: name, State: state, Err: err})
	}
}

func (r *StateRunnable[S]) notifyComplete(ctx context.Context, name string, state S, d time.Duration) {
	for _, l := range r.graph.listeners {
		safeNotify(ctx, l, Event{Type: NodeEventComplete, Node: name, State: state, Duration: d})
	}
}
