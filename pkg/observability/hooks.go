// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about graph builds, selector evaluation and served requests.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetQueryHooks(&myQueryHooks{})
//	    observability.SetServerHooks(&myServerHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Query().OnBuildStart(ctx, root, global)
//	// ... build the graph ...
//	observability.Query().OnBuildComplete(ctx, root, nodeCount, edgeCount, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Query Hooks
// =============================================================================

// QueryHooks receives events from the query pipeline.
type QueryHooks interface {
	// Build events
	OnBuildStart(ctx context.Context, root string, global bool)
	OnBuildComplete(ctx context.Context, root string, nodeCount, edgeCount int, duration time.Duration, err error)

	// Evaluate events. Evaluation runs on a finished graph and cannot fail,
	// so completion carries no error.
	OnEvaluateStart(ctx context.Context, selector string)
	OnEvaluateComplete(ctx context.Context, selector string, matchCount int, duration time.Duration)
}

// =============================================================================
// Server Hooks
// =============================================================================

// ServerHooks receives events from the query HTTP server.
type ServerHooks interface {
	// OnRequest records an incoming query request.
	OnRequest(ctx context.Context, queryID, selector string)

	// OnResponse records the status written for a request.
	OnResponse(ctx context.Context, queryID string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopQueryHooks is a no-op implementation of QueryHooks.
type NoopQueryHooks struct{}

func (NoopQueryHooks) OnBuildStart(context.Context, string, bool) {}
func (NoopQueryHooks) OnBuildComplete(context.Context, string, int, int, time.Duration, error) {
}
func (NoopQueryHooks) OnEvaluateStart(context.Context, string)                     {}
func (NoopQueryHooks) OnEvaluateComplete(context.Context, string, int, time.Duration) {}

// NoopServerHooks is a no-op implementation of ServerHooks.
type NoopServerHooks struct{}

func (NoopServerHooks) OnRequest(context.Context, string, string)                 {}
func (NoopServerHooks) OnResponse(context.Context, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	queryHooks  QueryHooks  = NoopQueryHooks{}
	serverHooks ServerHooks = NoopServerHooks{}
	hooksMu     sync.RWMutex
)

// SetQueryHooks registers custom query hooks.
// This should be called once at application startup before any queries run.
func SetQueryHooks(h QueryHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		queryHooks = h
	}
}

// SetServerHooks registers custom server hooks.
// This should be called once at application startup before serving.
func SetServerHooks(h ServerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serverHooks = h
	}
}

// Query returns the registered query hooks.
func Query() QueryHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return queryHooks
}

// Server returns the registered server hooks.
func Server() ServerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serverHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	queryHooks = NoopQueryHooks{}
	serverHooks = NoopServerHooks{}
}
