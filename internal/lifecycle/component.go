// Package lifecycle starts and stops long-running components in
// dependency order. Server mode uses it to bring up tracing before the
// MCP server and to tear them down in reverse.
package lifecycle

import "context"

// Component is a managed long-running part of the process.
type Component interface {
	// Start initializes and starts the component. Must be idempotent.
	Start(ctx context.Context) error

	// Stop gracefully stops the component. In-flight work should finish
	// within the context deadline; errors must not prevent other
	// components from stopping.
	Stop(ctx context.Context) error

	// Name returns the human-readable component name used in logs.
	Name() string
}
