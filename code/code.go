// Package code runs analysis snippets written by agents (the run_code tool).
package code

import "context"

// Request is one snippet to execute.
type Request struct {
	Code    string
	Dir     string // working directory; the run workspace
	Timeout int64  // milliseconds; 0 uses the executor default
}

// Result captures a finished execution. A non-zero ExitCode is a normal
// result the agent should read, not an error.
type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

// Executor defines the interface for executing code snippets.
type Executor interface {
	// Execute runs the snippet. Errors are reserved for failures to start the
	// interpreter or cancellation of ctx.
	Execute(ctx context.Context, req Request) (Result, error)
}
