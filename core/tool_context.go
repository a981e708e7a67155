package core

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentlab/logging"
)

// ToolContext provides the constrained surface a tool implementation sees for
// one function call: the call's own context (with its dispatch timeout), the
// run scope, and identifiers for logging and correlation.
type ToolContext struct {
	ctx            context.Context
	runCtx         *RunContext
	functionCallID string
	agentName      string

	*loggerAdapter
}

// NewToolContext constructs a tool context bound to a parent RunContext,
// the calling agent and the function call identifier.
func NewToolContext(runCtx *RunContext, agentName, functionCallID string) *ToolContext {
	return &ToolContext{
		ctx:            runCtx.Context,
		runCtx:         runCtx,
		functionCallID: functionCallID,
		agentName:      agentName,
		loggerAdapter:  newLoggerAdapter(runCtx.Logger()),
	}
}

// WithTimeout derives a tool context whose Context expires after d.
// A non-positive d leaves the deadline unchanged.
func (tc *ToolContext) WithTimeout(d time.Duration) (*ToolContext, context.CancelFunc) {
	if d <= 0 {
		return tc, func() {}
	}

	ctx, cancel := context.WithTimeout(tc.ctx, d)
	c := *tc
	c.ctx = ctx

	return &c, cancel
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// RunID returns the run ID associated with the tool invocation.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// Workspace returns the directory file tools are confined to.
func (tc *ToolContext) Workspace() string { return tc.runCtx.Workspace }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// AgentName returns the name of the agent that requested the call.
func (tc *ToolContext) AgentName() string { return tc.agentName }

// SaveArtifact persists artifact bytes for the run.
func (tc *ToolContext) SaveArtifact(name string, data []byte) error {
	if tc.runCtx.Artifacts == nil {
		return fmt.Errorf("artifact store not configured")
	}

	return tc.runCtx.Artifacts.Save(tc.RunID(), name, data)
}

// LoadArtifact retrieves a persisted artifact by name.
func (tc *ToolContext) LoadArtifact(name string) ([]byte, error) {
	if tc.runCtx.Artifacts == nil {
		return nil, fmt.Errorf("artifact store not configured")
	}

	return tc.runCtx.Artifacts.Get(tc.RunID(), name)
}

// ListArtifacts returns artifact names stored for the run.
func (tc *ToolContext) ListArtifacts() ([]string, error) {
	if tc.runCtx.Artifacts == nil {
		return nil, fmt.Errorf("artifact store not configured")
	}

	return tc.runCtx.Artifacts.List(tc.RunID())
}

// StoreNote records a finding in the run's shared notebook, authored by the calling agent.
func (tc *ToolContext) StoreNote(content string, md map[string]any) (string, error) {
	if tc.runCtx.Notes == nil {
		return "", fmt.Errorf("notebook not configured")
	}

	return tc.runCtx.Notes.Store(tc.RunID(), tc.agentName, content, md)
}

// SearchNotes queries the run's shared notebook.
func (tc *ToolContext) SearchNotes(q string, limit int) ([]SearchResult, error) {
	if tc.runCtx.Notes == nil {
		return nil, fmt.Errorf("notebook not configured")
	}

	return tc.runCtx.Notes.Search(tc.RunID(), q, limit)
}

// RunContext returns the parent run scope.
func (tc *ToolContext) RunContext() *RunContext { return tc.runCtx }
