// Package agentlab is the high-level entry point for running research
// questions through LLM agents. Most applications:
//  1. Build a Lab with New (explicit dependencies) or FromConfig
//  2. Call Ask for a single tool-using agent, Meet for a parallel
//     team discussion, or Investigate for a subtask plan with a
//     quality gate
//
// Every call gets its own RunContext, so concurrent calls on one Lab never
// share transcripts, artifacts or notes.
package agentlab

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/agentlab/agent"
	"github.com/hupe1980/agentlab/artifact"
	"github.com/hupe1980/agentlab/code"
	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/logging"
	"github.com/hupe1980/agentlab/meeting"
	"github.com/hupe1980/agentlab/model"
	"github.com/hupe1980/agentlab/notebook"
	"github.com/hupe1980/agentlab/tool"
	"github.com/hupe1980/agentlab/tool/builtin"
	"golang.org/x/sync/semaphore"
)

// ErrNoModel is returned by New when Options.Model is nil.
var ErrNoModel = errors.New("agentlab: no model configured")

// Options configures a Lab.
type Options struct {
	// Model answers every agent of the lab. Required.
	Model model.Model

	// Workspace is the directory file tools are confined to. Default ".".
	Workspace string

	// Stores (default to in-memory implementations)
	Artifacts core.ArtifactStore
	Notes     core.NoteStore

	// CodeExecutor enables run_code when set.
	CodeExecutor code.Executor
	// Dataset enables query_dataset when set. The Lab does not close it.
	Dataset *builtin.Dataset
	// MaxRows caps query_dataset results.
	MaxRows int
	// Tools are registered alongside the builtin tools.
	Tools []tool.Tool

	// ToolTimeout bounds each tool dispatch. Zero uses tool.DefaultTimeout.
	ToolTimeout time.Duration
	// ParallelTools is the number of tool calls of one response dispatched
	// concurrently.
	ParallelTools int

	// AgentOptions apply to every agent, including meeting participants.
	AgentOptions []func(o *agent.Options)
	// MeetingOptions apply to every meeting before per-call overrides.
	MeetingOptions []func(o *meeting.Options)

	// MaxConcurrentRuns limits how many Ask, Meet and Investigate calls run
	// at once; further calls wait for a slot or their context. Zero means
	// unlimited.
	MaxConcurrentRuns int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// DefaultMaxConcurrentRuns is the run limit applied by New.
const DefaultMaxConcurrentRuns = 10

// Lab runs research questions against one model and one tool set.
type Lab struct {
	opts     Options
	executor *tool.Executor
	runs     *semaphore.Weighted // nil when unlimited
	closers  []func() error
}

// New creates a Lab. Unset stores are initialized in memory.
func New(optFns ...func(o *Options)) (*Lab, error) {
	opts := Options{
		Workspace:         ".",
		ParallelTools:     1,
		MaxConcurrentRuns: DefaultMaxConcurrentRuns,
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Model == nil {
		return nil, ErrNoModel
	}

	if opts.Artifacts == nil {
		opts.Artifacts = artifact.NewInMemoryStore()
	}

	if opts.Notes == nil {
		opts.Notes = notebook.NewInMemoryStore()
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	registry := tool.NewRegistry(func(o *tool.RegistryOptions) {
		o.Timeout = opts.ToolTimeout
	})

	err := builtin.Register(registry, func(o *builtin.Options) {
		o.CodeExecutor = opts.CodeExecutor
		o.Dataset = opts.Dataset
		if opts.MaxRows > 0 {
			o.MaxRows = opts.MaxRows
		}
	})
	if err != nil {
		return nil, fmt.Errorf("register builtin tools: %w", err)
	}

	if err := registry.Register(opts.Tools...); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	executor := tool.NewExecutor(registry, func(o *tool.ExecutorOptions) {
		o.MaxParallel = opts.ParallelTools
	})

	lab := &Lab{opts: opts, executor: executor}
	if opts.MaxConcurrentRuns > 0 {
		lab.runs = semaphore.NewWeighted(int64(opts.MaxConcurrentRuns))
	}

	return lab, nil
}

// Tools returns the names of the tools available to agents.
func (l *Lab) Tools() []string { return l.executor.Registry().Names() }

// Close releases resources acquired by FromConfig.
func (l *Lab) Close() error {
	var errs []error
	for _, c := range l.closers {
		errs = append(errs, c())
	}

	return errors.Join(errs...)
}

// Ask runs the lead persona alone with every tool.
func (l *Lab) Ask(ctx context.Context, question string) (*agent.Result, error) {
	release, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	runCtx := l.runContext(ctx)
	runCtx.LogInfo("lab.ask.start", "run.id", runCtx.RunID)

	a := agent.New(agent.Lead(), l.opts.Model, l.agentOptions()...)

	res, err := a.Run(runCtx, agent.Task{Prompt: question})
	if err != nil {
		runCtx.LogError("lab.ask.failed", "run.id", runCtx.RunID, "error", err)
		return res, err
	}

	runCtx.LogInfo("lab.ask.done", "run.id", runCtx.RunID, "status", res.Status, "iterations", res.Iterations)

	return res, nil
}

// Meet runs a parallel meeting on question.
func (l *Lab) Meet(ctx context.Context, question string, optFns ...func(o *meeting.Options)) (*meeting.Outcome, error) {
	release, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	runCtx := l.runContext(ctx)
	m := meeting.NewParallel(l.opts.Model, l.meetingOptions(optFns)...)

	out, err := m.Run(runCtx, question)
	l.saveReport(runCtx, out)

	return out, err
}

// Investigate runs a subtask meeting on question.
func (l *Lab) Investigate(ctx context.Context, question string, optFns ...func(o *meeting.Options)) (*meeting.Outcome, error) {
	release, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	runCtx := l.runContext(ctx)
	m := meeting.NewSubtask(l.opts.Model, l.meetingOptions(optFns)...)

	out, err := m.Run(runCtx, question)
	l.saveReport(runCtx, out)

	return out, err
}

// acquire waits for a run slot.
func (l *Lab) acquire(ctx context.Context) (func(), error) {
	if l.runs == nil {
		return func() {}, nil
	}

	if err := l.runs.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for run slot: %w", err)
	}

	return func() { l.runs.Release(1) }, nil
}

func (l *Lab) runContext(ctx context.Context) *core.RunContext {
	return core.NewRunContext(ctx, func(o *core.RunOptions) {
		o.Workspace = l.opts.Workspace
		o.Artifacts = l.opts.Artifacts
		o.Notes = l.opts.Notes
		o.Logger = l.opts.Logger
	})
}

func (l *Lab) agentOptions() []func(o *agent.Options) {
	fns := []func(o *agent.Options){func(o *agent.Options) {
		o.Executor = l.executor
		o.Briefing = l.environment
	}}

	return append(fns, l.opts.AgentOptions...)
}

func (l *Lab) meetingOptions(extra []func(o *meeting.Options)) []func(o *meeting.Options) {
	fns := append([]func(o *meeting.Options){}, l.opts.MeetingOptions...)
	fns = append(fns, extra...)

	return append(fns, func(o *meeting.Options) {
		o.AgentOptions = append(l.agentOptions(), o.AgentOptions...)
	})
}

// environment describes the workspace and tools to every agent.
func (l *Lab) environment(rc *core.RunContext) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Environment:\n- Run: %s\n", rc.RunID)
	if rc.Workspace != "" {
		fmt.Fprintf(&b, "- Workspace directory: %s (read with read_file, list with find_files)\n", rc.Workspace)
	}

	names := l.Tools()
	sort.Strings(names)
	fmt.Fprintf(&b, "- Tools: %s\n", strings.Join(names, ", "))

	if ds := l.opts.Dataset; ds != nil {
		tables, err := ds.Tables(rc.Context)
		if err != nil {
			return "", fmt.Errorf("list dataset tables: %w", err)
		}

		fmt.Fprintf(&b, "- Dataset tables (query with query_dataset): %s\n", strings.Join(tables, ", "))
	}

	return strings.TrimSpace(b.String()), nil
}

// saveReport stores the transcript and report of a meeting as run artifacts.
func (l *Lab) saveReport(runCtx *core.RunContext, out *meeting.Outcome) {
	if out == nil || out.Transcript == nil {
		return
	}

	files := map[string]string{
		"transcript.md": out.Transcript.Render(),
		"report.md":     out.Report(),
	}

	for name, content := range files {
		if err := runCtx.SaveArtifact(name, []byte(content)); err != nil {
			runCtx.LogWarn("lab.artifact.save_failed", "run.id", runCtx.RunID, "artifact", name, "error", err)
		}
	}
}
