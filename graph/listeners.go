package graph

import (
	"context"
	"time"

	"github.com/smallnest/ragrouter/log"
)

// NodeEvent represents different types of node events
type NodeEvent string

const (
	// NodeEventStart indicates a node has started execution
	NodeEventStart NodeEvent = "start"

	// NodeEventComplete indicates a node has completed successfully
	NodeEventComplete NodeEvent = "complete"

	// NodeEventError indicates a node encountered an error
	NodeEventError NodeEvent = "error"
)

// Event is delivered to listeners.
type Event struct {
	Type  NodeEvent
	Node  string
	State any
	Err   error

	// Duration is how long the node took (only for complete events)
	Duration time.Duration
}

// NodeListener defines the interface for node event listeners
type NodeListener interface {
	OnNodeEvent(ctx context.Context, event Event)
}

// NodeListenerFunc is a function adapter for NodeListener
type NodeListenerFunc func(ctx context.Context, event Event)

// OnNodeEvent implements the NodeListener interface
func (f NodeListenerFunc) OnNodeEvent(ctx context.Context, event Event) {
	f(ctx, event)
}

// safeNotify keeps a panicking listener from aborting the run.
func safeNotify(ctx context.Context, l NodeListener, e Event) {
	defer func() {
		_ = recover()
	}()
	l.OnNodeEvent(ctx, e)
}

// LoggingListener logs node events.
type LoggingListener struct {
	logger       log.Logger
	includeState bool
}

// NewLoggingListener creates a listener writing to logger, or to the default
// logger when logger is nil.
func NewLoggingListener(logger log.Logger) *LoggingListener {
	return &LoggingListener{logger: log.OrDefault(logger)}
}

// WithState makes the listener include the state in its messages.
func (l *LoggingListener) WithState(enabled bool) *LoggingListener {
	l.includeState = enabled
	return l
}

// OnNodeEvent implements NodeListener.
func (l *LoggingListener) OnNodeEvent(_ context.Context, e Event) {
	switch e.Type {
	case NodeEventStart:
		if l.includeState {
			l.logger.Debug("node %s started, state: %+v", e.Node, e.State)
			return
		}
		l.logger.Debug("node %s started", e.Node)
	case NodeEventComplete:
		l.logger.Debug("node %s completed in %s", e.Node, e.Duration)
	case NodeEventError:
		l.logger.Error("node %s failed: %v", e.Node, e.Err)
	}
}
