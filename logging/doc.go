// Package logging provides a minimal logging interface and adapters for agentlab.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that agents, tools and meetings use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ZapAdapter wrapping go.uber.org/zap (the default backend of the CLI)
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json", Backend: "zap"})
//	if err != nil { ... }
//	lab := agentlab.New(backend, func(o *agentlab.Options) { o.Logger = logger })
//
// Call sites pass alternating key/value pairs after the message, slog style;
// dotted message keys such as "agent.tool.dispatched" keep logs greppable.
package logging
