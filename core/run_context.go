package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hupe1980/agentlab/logging"
)

// RunOptions configures a RunContext.
type RunOptions struct {
	// RunID identifies the run; a random UUID is used when empty.
	RunID string
	// Workspace is the directory file tools are confined to.
	Workspace string
	// Artifacts receives files produced by tools.
	Artifacts ArtifactStore
	// Notes is the shared notebook of the run.
	Notes NoteStore
	// Logger defaults to a NoOpLogger.
	Logger logging.Logger
}

// RunContext is the explicit per-run scope passed into every agent loop and
// every tool dispatch. It replaces process-wide output locations: concurrent
// runs each carry their own RunContext and never observe each other's files
// or notes.
//
// A RunContext is read-only after construction and safe to share between the
// concurrent agents of a meeting.
type RunContext struct {
	Context   context.Context
	RunID     string
	Workspace string
	Artifacts ArtifactStore
	Notes     NoteStore

	*loggerAdapter
}

// NewRunContext creates a RunContext bound to ctx.
func NewRunContext(ctx context.Context, optFns ...func(o *RunOptions)) *RunContext {
	opts := RunOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	if ctx == nil {
		ctx = context.Background()
	}

	return &RunContext{
		Context:       ctx,
		RunID:         opts.RunID,
		Workspace:     opts.Workspace,
		Artifacts:     opts.Artifacts,
		Notes:         opts.Notes,
		loggerAdapter: newLoggerAdapter(opts.Logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// WithContext returns a shallow copy bound to ctx. Stores and logger are shared.
func (rc *RunContext) WithContext(ctx context.Context) *RunContext {
	c := *rc
	c.Context = ctx
	return &c
}

// WithLogger returns a shallow copy using the given logger.
func (rc *RunContext) WithLogger(l logging.Logger) *RunContext {
	c := *rc
	c.loggerAdapter = newLoggerAdapter(l)
	return &c
}

// SaveArtifact stores bytes in the run's ArtifactStore.
func (rc *RunContext) SaveArtifact(name string, data []byte) error {
	if rc.Artifacts == nil {
		return fmt.Errorf("artifact store not configured")
	}

	return rc.Artifacts.Save(rc.RunID, name, data)
}

// ListArtifacts returns artifact names stored for the run.
func (rc *RunContext) ListArtifacts() ([]string, error) {
	if rc.Artifacts == nil {
		return []string{}, nil
	}

	return rc.Artifacts.List(rc.RunID)
}
