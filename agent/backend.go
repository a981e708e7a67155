package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/internal/metrics"
	"github.com/hupe1980/agentlab/model"
)

// ErrBackendUnavailable marks a loop that ended because the backend kept
// failing after all retries.
var ErrBackendUnavailable = errors.New("backend unavailable")

// ErrMalformedResponse is wrapped by errors for responses the loop cannot act on.
var ErrMalformedResponse = errors.New("malformed backend response")

// BackendError reports an exhausted backend retry budget for one loop.
// It matches both ErrBackendUnavailable and the last underlying error.
type BackendError struct {
	Model    string
	Attempts int
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s unavailable after %d attempt(s): %v", e.Model, e.Attempts, e.Err)
}

// Unwrap exposes ErrBackendUnavailable and the cause to errors.Is/As.
func (e *BackendError) Unwrap() []error { return []error{ErrBackendUnavailable, e.Err} }

// generate performs one logical model call with bounded retries and
// exponential backoff. Retries do not count against the iteration budget.
func (a *Agent) generate(ctx context.Context, runCtx *core.RunContext, req model.Request) (model.Response, error) {
	info := a.model.Info()

	var lastErr error

	attempts := 0

	for attempt := 0; attempt <= a.opts.BackendRetries; attempt++ {
		if attempt > 0 {
			delay := a.opts.BackendBackoff << (attempt - 1)

			metrics.Default().RecordBackendRetry(info.Provider)
			runCtx.LogWarn("agent.backend.retry",
				"agent", a.persona.Title,
				"attempt", attempt+1,
				"delay_ms", delay.Milliseconds(),
				"error", lastErr.Error(),
			)

			if err := sleep(ctx, delay); err != nil {
				break
			}
		}

		attempts++

		resp, err := a.callOnce(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if ctx.Err() != nil { // task deadline or cancellation: retrying cannot help
			break
		}
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}

	return model.Response{}, &BackendError{Model: info.Name, Attempts: attempts, Err: lastErr}
}

func (a *Agent) callOnce(ctx context.Context, req model.Request) (model.Response, error) {
	callCtx := ctx

	if a.opts.BackendTimeout > 0 {
		var cancel context.CancelFunc

		callCtx, cancel = context.WithTimeout(ctx, a.opts.BackendTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := model.Collect(callCtx, a.model, req)

	metrics.Default().RecordBackendCall(a.model.Info().Provider, time.Since(start))

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return model.Response{}, fmt.Errorf("backend call timed out after %s: %w", a.opts.BackendTimeout, err)
		}

		return model.Response{}, err
	}

	if err := validateResponse(&resp); err != nil {
		return model.Response{}, err
	}

	return resp, nil
}

// validateResponse rejects responses the loop cannot act on and normalizes
// the role of the rest. A reply without parts is an empty answer, not an
// error.
func validateResponse(resp *model.Response) error {
	switch resp.Content.Role {
	case "", core.RoleAssistant:
		resp.Content.Role = core.RoleAssistant
	default:
		return fmt.Errorf("%w: unexpected role %q", ErrMalformedResponse, resp.Content.Role)
	}

	for _, fc := range resp.Content.FunctionCalls() {
		if fc.Name == "" {
			return fmt.Errorf("%w: function call without a name", ErrMalformedResponse)
		}
	}

	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
