package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/internal/metrics"
	"github.com/hupe1980/agentlab/internal/telemetry"
	"github.com/hupe1980/agentlab/internal/util"
	"github.com/hupe1980/agentlab/model"
	"github.com/hupe1980/agentlab/tool"
)

// Defaults applied by New.
const (
	DefaultMaxIterations  = 10
	DefaultBackendRetries = 2
	DefaultBackendBackoff = 500 * time.Millisecond
	DefaultBackendTimeout = 2 * time.Minute
)

// Status is the terminal state of one agent loop.
type Status string

const (
	// StatusCompleted means the backend answered without requesting tools.
	StatusCompleted Status = "completed"
	// StatusIterationLimit means the iteration cap was reached while the
	// backend still wanted tools. The answer is the last text it produced.
	StatusIterationLimit Status = "iteration_limit"
	// StatusFailed means the backend stayed unavailable after all retries.
	StatusFailed Status = "failed"
)

// Options configures an Agent.
type Options struct {
	// MaxIterations caps model calls per Run. Values below 1 use DefaultMaxIterations.
	MaxIterations int
	// BackendRetries is the number of retries after a failed backend call.
	BackendRetries int
	// BackendBackoff is the delay before the first retry; it doubles per retry.
	BackendBackoff time.Duration
	// BackendTimeout bounds a single backend call. Zero disables it.
	BackendTimeout time.Duration
	// TaskTimeout bounds a whole Run. Zero disables it.
	TaskTimeout time.Duration
	// Executor dispatches tool calls. Nil gives the agent no tools.
	Executor *tool.Executor
	// Briefing is appended to the persona instruction, resolved per run.
	Briefing Briefing
	// Stream requests streamed backend responses.
	Stream bool
}

// Task is one unit of work for an agent.
type Task struct {
	// Prompt states what the agent must do.
	Prompt string
	// Context is prior material (transcript excerpts, accepted results) the
	// agent should build on. Optional.
	Context string
}

// Result is the outcome of one loop. Conversation holds the full trace even
// when the loop failed.
type Result struct {
	Answer       string             `json:"answer"`
	Status       Status             `json:"status"`
	Iterations   int                `json:"iterations"`
	Conversation *core.Conversation `json:"-"`
	Usage        model.TokenUsage   `json:"usage"`
}

// Agent runs the reason-act loop for one persona: it sends the conversation
// and tool schema to the backend, dispatches requested tool calls and repeats
// until the backend answers without tools or the iteration cap is reached.
//
// An Agent holds no per-run state; Run may be called concurrently.
type Agent struct {
	persona Persona
	model   model.Model
	opts    Options
}

// New creates an agent for persona backed by m.
func New(persona Persona, m model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		MaxIterations:  DefaultMaxIterations,
		BackendRetries: DefaultBackendRetries,
		BackendBackoff: DefaultBackendBackoff,
		BackendTimeout: DefaultBackendTimeout,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxIterations < 1 {
		opts.MaxIterations = DefaultMaxIterations
	}

	if opts.BackendRetries < 0 {
		opts.BackendRetries = 0
	}

	if opts.Executor == nil {
		opts.Executor = tool.NewExecutor(tool.NewRegistry())
	}

	return &Agent{persona: persona, model: m, opts: opts}
}

// Persona returns the agent's persona.
func (a *Agent) Persona() Persona { return a.persona }

// Run executes task. The error is non-nil only when the backend failed
// (a *BackendError) or the instruction could not be resolved; in both cases
// the returned Result carries StatusFailed and the partial trace.
func (a *Agent) Run(runCtx *core.RunContext, task Task) (*Result, error) {
	ctx := runCtx.Context

	if a.opts.TaskTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, a.opts.TaskTimeout)
		defer cancel()
	}

	ctx, span := telemetry.StartSpan(ctx, "agent.run",
		"agent", a.persona.Title, "role", a.persona.Role.String(), "run_id", runCtx.RunID)
	runCtx = runCtx.WithContext(ctx)

	res, err := a.run(runCtx, task)

	metrics.Default().RecordLoop(a.persona.Role.String(), string(res.Status), res.Iterations)
	telemetry.EndSpan(span, err)

	return res, err
}

func (a *Agent) run(runCtx *core.RunContext, task Task) (*Result, error) {
	conv := core.NewConversation()
	res := &Result{Status: StatusFailed, Conversation: conv}

	instructions, err := a.persona.InstructionFor(runCtx, a.opts.Briefing)
	if err != nil {
		return res, err
	}

	prompt, err := util.Execute(taskPrompt, task)
	if err != nil {
		return res, fmt.Errorf("render task prompt: %w", err)
	}

	if err := conv.Append(core.NewTextContent(core.RoleUser, prompt)); err != nil {
		return res, err
	}

	limiter := core.NewModelLimiter(a.opts.MaxIterations)
	defs := a.opts.Executor.Registry().Definitions()

	runCtx.LogDebug("agent.run.start",
		"agent", a.persona.Title,
		"max_iterations", a.opts.MaxIterations,
		"tools", len(defs),
	)

	lastText := ""

	for {
		if err := limiter.Increment(); err != nil {
			break
		}

		res.Iterations = limiter.Count()

		resp, err := a.generate(runCtx.Context, runCtx, model.Request{
			Instructions: instructions,
			Contents:     conv.Messages(),
			Tools:        defs,
			Stream:       a.opts.Stream,
		})
		if err != nil {
			res.Answer = lastText
			runCtx.LogError("agent.run.failed", "agent", a.persona.Title, "iterations", res.Iterations, "error", err.Error())

			return res, err
		}

		addUsage(&res.Usage, resp.Usage)

		content := assignCallIDs(resp.Content)
		if text := strings.TrimSpace(content.Text()); text != "" {
			lastText = text
		}

		calls := content.FunctionCalls()

		runCtx.LogDebug("agent.loop.iteration",
			"agent", a.persona.Title,
			"iteration", res.Iterations,
			"tool_calls", len(calls),
		)

		if err := conv.Append(content); err != nil {
			return res, err
		}

		if len(calls) == 0 {
			res.Status = StatusCompleted
			res.Answer = lastText

			runCtx.LogInfo("agent.run.completed", "agent", a.persona.Title, "iterations", res.Iterations)

			return res, nil
		}

		for _, r := range a.opts.Executor.Execute(runCtx, a.persona.Title, calls) {
			if err := conv.Append(core.NewFunctionResponseContent(r.Response())); err != nil {
				return res, err
			}
		}
	}

	res.Status = StatusIterationLimit
	res.Answer = lastText

	runCtx.LogWarn("agent.run.iteration_limit", "agent", a.persona.Title, "iterations", res.Iterations)

	return res, nil
}

// assignCallIDs gives every function call an ID so its result can be
// correlated; backends are not required to supply one.
func assignCallIDs(c core.Content) core.Content {
	out := core.Content{Role: c.Role, Parts: make([]core.Part, len(c.Parts))}

	for i, p := range c.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok && fc.FunctionCall.ID == "" {
			fc.FunctionCall.ID = "call_" + uuid.NewString()
			p = fc
		}

		out.Parts[i] = p
	}

	return out
}

func addUsage(total *model.TokenUsage, u *model.TokenUsage) {
	if u == nil {
		return
	}

	total.PromptTokens += u.PromptTokens
	total.CompletionTokens += u.CompletionTokens
	total.TotalTokens += u.TotalTokens
}
