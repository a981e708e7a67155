package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/internal/metrics"
	"github.com/hupe1980/agentlab/internal/telemetry"
	"github.com/hupe1980/agentlab/model"
)

// ErrDuplicateTool is returned when a tool name is registered twice.
var ErrDuplicateTool = errors.New("tool already registered")

// DefaultTimeout bounds a single dispatch when no timeout is configured.
const DefaultTimeout = 2 * time.Minute

// Result is the normalized outcome of one dispatched function call. Exactly
// one of Payload (on success) or Error is meaningful.
type Result struct {
	CallID   string        `json:"call_id"`
	Name     string        `json:"name"`
	Success  bool          `json:"success"`
	Payload  any           `json:"payload,omitempty"`
	Error    string        `json:"error,omitempty"`
	Code     string        `json:"code,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Response converts the result into the function response appended to the conversation.
func (r Result) Response() core.FunctionResponse {
	fr := core.FunctionResponse{ID: r.CallID, Name: r.Name}
	if r.Success {
		fr.Response = r.Payload
	} else {
		fr.Error = r.Error
	}

	return fr
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Timeout bounds each dispatch. Zero means DefaultTimeout; negative disables it.
	Timeout time.Duration
}

// Registry maps tool names to implementations and dispatches function calls.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	opts  RegistryOptions
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Timeout: DefaultTimeout}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Registry{tools: map[string]Tool{}, opts: opts}
}

// Register adds tools. Names must be non-empty and unique.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range tools {
		name := t.Name()
		if name == "" {
			return fmt.Errorf("tool name must not be empty")
		}

		if _, exists := r.tools[name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
		}

		r.tools[name] = t
	}

	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]

	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}

// Names returns registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Definitions returns the tool schema sent to the model, sorted by name so
// every request carries an identical declaration list.
func (r *Registry) Definitions() []model.ToolDefinition {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]model.ToolDefinition, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	return defs
}

// Dispatch executes one function call. It never returns an error: unknown
// tools, malformed arguments, validation failures, handler errors, panics and
// timeouts all come back as an unsuccessful Result the model can read.
func (r *Registry) Dispatch(toolCtx *core.ToolContext, call core.FunctionCall) Result {
	start := time.Now()
	logger := toolCtx.Logger()

	_, span := telemetry.StartSpan(toolCtx.Context(), "tool.dispatch",
		"tool", call.Name, "agent", toolCtx.AgentName(), "run_id", toolCtx.RunID())

	res := r.dispatch(toolCtx, call)
	res.CallID = call.ID
	res.Name = call.Name
	res.Duration = time.Since(start)

	metrics.Default().RecordToolCall(call.Name, res.Success, res.Duration)

	if res.Success {
		logger.Debug("tool.dispatch.ok", "tool", call.Name, "agent", toolCtx.AgentName(), "duration_ms", res.Duration.Milliseconds())
		telemetry.EndSpan(span, nil)
	} else {
		logger.Warn("tool.dispatch.failed", "tool", call.Name, "agent", toolCtx.AgentName(), "code", res.Code, "error", res.Error)
		telemetry.EndSpan(span, errors.New(res.Error))
	}

	return res
}

func (r *Registry) dispatch(toolCtx *core.ToolContext, call core.FunctionCall) Result {
	impl, ok := r.Get(call.Name)
	if !ok {
		return failure(NewToolError(call.Name, fmt.Sprintf("unknown tool %q; available tools: %v", call.Name, r.Names()), CodeNotFound))
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return failure(NewToolError(call.Name, fmt.Sprintf("arguments are not a JSON object: %v", err), CodeBadArgs))
		}

		if args == nil { // "null"
			args = map[string]any{}
		}
	}

	timeout := r.opts.Timeout
	if timeout < 0 {
		timeout = 0
	}

	callCtx, cancel := toolCtx.WithTimeout(timeout)
	defer cancel()

	type outcome struct {
		payload any
		err     error
	}

	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				toolCtx.Logger().Error("tool.dispatch.panic", "tool", call.Name, "recover", rec, "stack", string(debug.Stack()))
				done <- outcome{err: NewToolError(call.Name, fmt.Sprintf("panic: %v", rec), CodePanic)}
			}
		}()

		payload, err := impl.Call(callCtx, args)
		done <- outcome{payload: payload, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return failure(out.err)
		}

		return Result{Success: true, Payload: out.payload}
	case <-callCtx.Context().Done():
		msg := "tool call cancelled"
		if errors.Is(callCtx.Context().Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("tool call timed out after %s", timeout)
		}

		return failure(NewToolError(call.Name, msg, CodeTimeout))
	}
}

func failure(err error) Result {
	res := Result{Success: false, Error: err.Error(), Code: CodeExecution}

	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		res.Error = toolErr.Message
		res.Code = toolErr.Code
	}

	return res
}
