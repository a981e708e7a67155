package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/agentlab/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type silentModel struct{}

func (silentModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error)

	respCh <- Response{Partial: true, Content: core.NewTextContent(core.RoleAssistant, "par")}
	close(respCh)
	close(errCh)

	return respCh, errCh
}

func (silentModel) Info() Info { return Info{Name: "silent"} }

func userRequest(text string) Request {
	return Request{Contents: []core.Content{core.NewTextContent(core.RoleUser, text)}}
}

func TestCollect_ReturnsFinalResponse(t *testing.T) {
	m := NewScriptedModel("test", Text("final answer"))

	req := userRequest("q")
	req.Stream = true

	resp, err := Collect(context.Background(), m, req)
	require.NoError(t, err)
	assert.False(t, resp.Partial)
	assert.Equal(t, "final answer", resp.Content.Text())
}

func TestCollect_NoFinalResponse(t *testing.T) {
	_, err := Collect(context.Background(), silentModel{}, userRequest("q"))
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestCollect_PropagatesError(t *testing.T) {
	boom := errors.New("connection reset")
	m := NewScriptedModel("test", Fail(boom))

	_, err := Collect(context.Background(), m, userRequest("q"))
	assert.ErrorIs(t, err, boom)
}

func TestScriptedModel_QueueThenFallback(t *testing.T) {
	m := NewScriptedModel("test",
		Calls(core.FunctionCall{ID: "c1", Name: "find_files", Arguments: `{}`}),
	)

	resp, err := Collect(context.Background(), m, userRequest("q"))
	require.NoError(t, err)
	assert.Len(t, resp.Content.FunctionCalls(), 1)

	resp, err = Collect(context.Background(), m, userRequest("what now?"))
	require.NoError(t, err)
	assert.Equal(t, "Scripted response to: what now?", resp.Content.Text())

	m.WithFallback(func(req Request) ScriptStep { return Text("fallback") })
	resp, err = Collect(context.Background(), m, userRequest("q"))
	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Content.Text())

	assert.Equal(t, 3, m.CallCount())
	assert.Len(t, m.Requests(), 3)
}

func TestRateLimited(t *testing.T) {
	inner := NewScriptedModel("test")

	assert.Same(t, inner, RateLimited(inner, 0, 0))

	limited := RateLimited(inner, 1000, 1)
	assert.Equal(t, "test", limited.Info().Name)

	_, err := Collect(context.Background(), limited, userRequest("q"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	slow := RateLimited(inner, 0.001, 1)
	_, err = Collect(context.Background(), slow, userRequest("q"))
	require.NoError(t, err)

	_, err = Collect(ctx, slow, userRequest("q"))
	assert.Error(t, err)
}

func TestEncodeFunctionResponse(t *testing.T) {
	ok := EncodeFunctionResponse(core.FunctionResponse{Name: "t", Response: map[string]any{"rows": 2}})
	assert.JSONEq(t, `{"result":{"rows":2}}`, ok)

	failed := EncodeFunctionResponse(core.FunctionResponse{Name: "t", Error: "no such file"})
	assert.JSONEq(t, `{"error":"no such file"}`, failed)
}
