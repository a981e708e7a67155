package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentlab/core"
)

// ScriptStep is one canned backend turn: a response or a transport failure.
type ScriptStep struct {
	Response Response
	Err      error
}

// Text scripts a plain assistant answer.
func Text(s string) ScriptStep {
	return ScriptStep{Response: Response{
		Content:      core.NewTextContent(core.RoleAssistant, s),
		FinishReason: "stop",
	}}
}

// Calls scripts an assistant turn requesting the given function calls.
func Calls(calls ...core.FunctionCall) ScriptStep {
	parts := make([]core.Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: c})
	}

	return ScriptStep{Response: Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: "tool_calls",
	}}
}

// Fail scripts a backend failure.
func Fail(err error) ScriptStep { return ScriptStep{Err: err} }

// ScriptedModel is an offline Model replaying canned steps in order. Once the
// queue is empty the fallback (if any) decides, otherwise the model echoes the
// last user text. It backs the "scripted" provider of the CLI and most tests.
type ScriptedModel struct {
	mu       sync.Mutex
	info     Info
	steps    []ScriptStep
	fallback func(req Request) ScriptStep
	requests []Request
}

// NewScriptedModel constructs a ScriptedModel with tool support enabled.
func NewScriptedModel(name string, steps ...ScriptStep) *ScriptedModel {
	return &ScriptedModel{
		info: Info{
			Name:          name,
			Provider:      "scripted",
			SupportsTools: true,
		},
		steps: steps,
	}
}

// Push appends steps to the queue.
func (m *ScriptedModel) Push(steps ...ScriptStep) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps = append(m.steps, steps...)
}

// WithFallback sets the function consulted when the queue is exhausted.
func (m *ScriptedModel) WithFallback(fn func(req Request) ScriptStep) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fallback = fn

	return m
}

// Requests returns the requests received so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.requests))
	copy(out, m.requests)

	return out
}

// CallCount returns the number of Generate calls received.
func (m *ScriptedModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

func (m *ScriptedModel) next(req Request) ScriptStep {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if len(m.steps) > 0 {
		step := m.steps[0]
		m.steps = m.steps[1:]

		return step
	}

	if m.fallback != nil {
		return m.fallback(req)
	}

	return Text(fmt.Sprintf("Scripted response to: %s", LastUserText(req)))
}

// Generate implements Model; emits optional streaming char chunks then the final response.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	step := m.next(req)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if step.Err != nil {
			errCh <- step.Err
			return
		}

		if req.Stream {
			for _, r := range step.Response.Content.Text() {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Content: core.NewTextContent(core.RoleAssistant, string(r)),
				}:
				}
			}
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- step.Response:
		}
	}()

	return respCh, errCh
}

// Info implements Model interface.
func (m *ScriptedModel) Info() Info { return m.info }

// LastUserText returns the text of the most recent user message in req.
func LastUserText(req Request) string {
	for i := len(req.Contents) - 1; i >= 0; i-- {
		if req.Contents[i].Role == core.RoleUser {
			return req.Contents[i].Text()
		}
	}

	return ""
}
