package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterState struct {
	Count int
	Path  []string
}

func step(name string) func(context.Context, counterState) (counterState, error) {
	return func(_ context.Context, s counterState) (counterState, error) {
		s.Count++
		s.Path = append(s.Path, name)
		return s, nil
	}
}

func TestStateGraphLinear(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", "first", step("a"))
	g.AddNode("b", "second", step("b"))
	g.AddEdge("a", "b")
	g.AddEdge("b", END)
	g.SetEntryPoint("a")

	app, err := g.Compile()
	require.NoError(t, err)

	final, err := app.Invoke(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Equal(t, 2, final.Count)
	assert.Equal(t, []string{"a", "b"}, final.Path)
}

func TestStateGraphConditionalEdge(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("start", "start", step("start"))
	g.AddNode("even", "even", step("even"))
	g.AddNode("odd", "odd", step("odd"))
	g.AddConditionalEdge("start", func(_ context.Context, s counterState) string {
		if s.Count%2 == 0 {
			return "even"
		}
		return "odd"
	})
	g.AddEdge("even", END)
	g.AddEdge("odd", END)
	g.SetEntryPoint("start")

	app, err := g.Compile()
	require.NoError(t, err)

	final, err := app.Invoke(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "odd"}, final.Path)

	final, err = app.Invoke(context.Background(), counterState{Count: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "even"}, final.Path)
}

func TestStateGraphCompileErrors(t *testing.T) {
	g := NewStateGraph[counterState]()
	_, err := g.Compile()
	assert.ErrorIs(t, err, ErrEntryPointNotSet)

	g.SetEntryPoint("missing")
	_, err = g.Compile()
	assert.ErrorIs(t, err, ErrNodeNotFound)

	g.AddNode("missing", "", step("missing"))
	g.AddEdge("missing", "nowhere")
	_, err = g.Compile()
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestStateGraphNoOutgoingEdge(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", "", step("a"))
	g.SetEntryPoint("a")

	app, err := g.Compile()
	require.NoError(t, err)

	_, err = app.Invoke(context.Background(), counterState{})
	assert.ErrorIs(t, err, ErrNoOutgoingEdge)
}

func TestStateGraphUnknownConditionalTarget(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", "", step("a"))
	g.AddConditionalEdge("a", func(context.Context, counterState) string { return "ghost" })
	g.SetEntryPoint("a")

	app, err := g.Compile()
	require.NoError(t, err)

	_, err = app.Invoke(context.Background(), counterState{})
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestStateGraphMaxSteps(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("loop", "", step("loop"))
	g.AddEdge("loop", "loop")
	g.SetEntryPoint("loop")
	g.SetMaxSteps(5)

	app, err := g.Compile()
	require.NoError(t, err)

	final, err := app.Invoke(context.Background(), counterState{})
	assert.ErrorIs(t, err, ErrMaxStepsExceeded)
	assert.Equal(t, 5, final.Count)
}

func TestStateGraphNodeError(t *testing.T) {
	boom := errors.New("boom")
	g := NewStateGraph[counterState]()
	g.AddNode("fail", "", func(_ context.Context, s counterState) (counterState, error) {
		return s, boom
	})
	g.AddEdge("fail", END)
	g.SetEntryPoint("fail")

	app, err := g.Compile()
	require.NoError(t, err)

	_, err = app.Invoke(context.Background(), counterState{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "fail", nodeErr.Node)
}

func TestStateGraphFailingNodeRunsOnce(t *testing.T) {
	attempts := 0
	g := NewStateGraph[counterState]()
	g.AddNode("fail", "", func(_ context.Context, s counterState) (counterState, error) {
		attempts++
		return s, errors.New("temporary failure")
	})
	g.AddEdge("fail", END)
	g.SetEntryPoint("fail")

	app, err := g.Compile()
	require.NoError(t, err)

	_, err = app.Invoke(context.Background(), counterState{})
	assert.ErrorContains(t, err, "temporary failure")
	assert.Equal(t, 1, attempts)
}

func TestStateGraphCancelledContext(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", "", step("a"))
	g.AddEdge("a", END)
	g.SetEntryPoint("a")

	app, err := g.Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = app.Invoke(ctx, counterState{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListeners(t *testing.T) {
	var mu sync.Mutex
	var events []Event

	g := NewStateGraph[counterState]()
	g.AddNode("a", "", step("a"))
	g.AddNode("b", "", func(_ context.Context, s counterState) (counterState, error) {
		return s, errors.New("b failed")
	})
	g.AddEdge("a", "b")
	g.AddEdge("b", END)
	g.SetEntryPoint("a")
	g.AddListener(NodeListenerFunc(func(_ context.Context, e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}))
	g.AddListener(NodeListenerFunc(func(context.Context, Event) {
		panic("listener panic must not abort the run")
	}))

	app, err := g.Compile()
	require.NoError(t, err)

	_, err = app.Invoke(context.Background(), counterState{})
	require.Error(t, err)

	require.Len(t, events, 4)
	assert.Equal(t, NodeEventStart, events[0].Type)
	assert.Equal(t, "a", events[0].Node)
	assert.Equal(t, NodeEventComplete, events[1].Type)
	assert.Equal(t, NodeEventStart, events[2].Type)
	assert.Equal(t, NodeEventError, events[3].Type)
	assert.EqualError(t, events[3].Err, "b failed")
}
