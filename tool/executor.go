package tool

import (
	"time"

	"github.com/hupe1980/agentlab/core"
	"golang.org/x/sync/errgroup"
)

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	MaxParallel int // 0 or 1 => sequential dispatch in request order
}

// Executor dispatches the function calls of one model response. Whatever the
// parallelism, it returns exactly one Result per call, in request order, so
// the caller can append tool-result messages directly after the assistant
// message that requested them.
type Executor struct {
	registry *Registry
	opts     ExecutorOptions
}

// NewExecutor constructs an Executor over registry.
func NewExecutor(registry *Registry, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{MaxParallel: 1}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Executor{registry: registry, opts: opts}
}

// Registry returns the registry calls are dispatched through.
func (e *Executor) Registry() *Registry { return e.registry }

// Execute dispatches calls on behalf of agentName within runCtx.
func (e *Executor) Execute(runCtx *core.RunContext, agentName string, calls []core.FunctionCall) []Result {
	n := len(calls)
	if n == 0 {
		return nil
	}

	results := make([]Result, n)
	batchStart := time.Now()

	maxPar := e.opts.MaxParallel
	if maxPar <= 1 || n == 1 {
		for i, fc := range calls {
			results[i] = e.dispatchOne(runCtx, agentName, fc)
		}
	} else {
		if maxPar > n {
			maxPar = n
		}

		var g errgroup.Group

		g.SetLimit(maxPar)

		for i, fc := range calls {
			g.Go(func() error {
				results[i] = e.dispatchOne(runCtx, agentName, fc)
				return nil
			})
		}

		_ = g.Wait() // dispatchOne never fails
	}

	runCtx.LogDebug(
		"tool.batch.complete",
		"agent", agentName,
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results
}

func (e *Executor) dispatchOne(runCtx *core.RunContext, agentName string, fc core.FunctionCall) Result {
	if err := runCtx.Err(); err != nil {
		return Result{CallID: fc.ID, Name: fc.Name, Error: "run cancelled before dispatch: " + err.Error(), Code: CodeTimeout}
	}

	return e.registry.Dispatch(core.NewToolContext(runCtx, agentName, fc.ID), fc)
}
