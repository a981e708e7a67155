package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToolContext_BasicFunctionality(t *testing.T) {
	tc := NewToolContext(newRunContextForTest(), "Data Analyst", "call-1")

	assert.Equal(t, "run-1", tc.RunID())
	assert.Equal(t, "/tmp/ws", tc.Workspace())
	assert.Equal(t, "call-1", tc.FunctionCallID())
	assert.Equal(t, "Data Analyst", tc.AgentName())
	assert.NotNil(t, tc.Logger())
	assert.NotNil(t, tc.RunContext())
}

func TestToolContext_WithTimeout(t *testing.T) {
	tc := NewToolContext(newRunContextForTest(), "A", "call-1")

	same, cancel := tc.WithTimeout(0)
	defer cancel()
	assert.Same(t, tc, same)

	timed, cancel2 := tc.WithTimeout(10 * time.Millisecond)
	defer cancel2()

	_, ok := timed.Context().Deadline()
	assert.True(t, ok)

	<-timed.Context().Done()
	assert.ErrorIs(t, timed.Context().Err(), context.DeadlineExceeded)
	assert.NoError(t, tc.Context().Err())
}

func TestToolContext_Artifacts(t *testing.T) {
	tc := NewToolContext(newRunContextForTest(), "A", "call-1")

	assert.NoError(t, tc.SaveArtifact("a1", []byte("data")))

	b, err := tc.LoadArtifact("a1")
	assert.NoError(t, err)
	assert.Equal(t, "data", string(b))

	list, err := tc.ListArtifacts()
	assert.NoError(t, err)
	assert.Equal(t, []string{"a1"}, list)
}

func TestToolContext_Notes(t *testing.T) {
	tc := NewToolContext(newRunContextForTest(), "Domain Scientist", "call-1")

	id, err := tc.StoreNote("enzyme kinetics look saturating", map[string]any{"topic": "kinetics"})
	assert.NoError(t, err)
	assert.NotEmpty(t, id)

	res, err := tc.SearchNotes("saturating", 5)
	assert.NoError(t, err)
	assert.Len(t, res, 1)
	assert.Equal(t, "Domain Scientist", res[0].Author)
}

func TestToolContext_MissingStores(t *testing.T) {
	tc := NewToolContext(NewRunContext(context.Background()), "A", "call-1")

	_, err := tc.LoadArtifact("x")
	assert.Error(t, err)

	_, err = tc.StoreNote("x", nil)
	assert.Error(t, err)

	_, err = tc.SearchNotes("x", 1)
	assert.Error(t, err)
}
