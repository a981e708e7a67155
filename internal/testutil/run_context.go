package testutil

import (
	"context"
	"testing"

	"github.com/hupe1980/agentlab/artifact"
	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/notebook"
)

// NewRunContext returns a run context with a temporary workspace and
// in-memory artifact and note stores.
func NewRunContext(t testing.TB) *core.RunContext {
	t.Helper()

	return core.NewRunContext(context.Background(), func(o *core.RunOptions) {
		o.RunID = "test-run"
		o.Workspace = t.TempDir()
		o.Artifacts = artifact.NewInMemoryStore()
		o.Notes = notebook.NewInMemoryStore()
	})
}
