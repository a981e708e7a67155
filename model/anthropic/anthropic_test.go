package anthropic

import (
	"testing"

	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessages_ToolResultsInUserTurn(t *testing.T) {
	contents := []core.Content{
		core.NewTextContent(core.RoleUser, "Check the data"),
		{Role: core.RoleAssistant, Parts: []core.Part{
			core.TextPart{Text: "Looking."},
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "t1", Name: "read_file", Arguments: `{"path":"a"}`}},
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "t2", Name: "find_files"}},
		}},
		core.NewFunctionResponseContent(core.FunctionResponse{ID: "t1", Name: "read_file", Response: "x"}),
		core.NewFunctionResponseContent(core.FunctionResponse{ID: "t2", Name: "find_files", Error: "boom"}),
		core.NewTextContent(core.RoleAssistant, "Done."),
	}

	msgs := buildMessages(contents)
	require.Len(t, msgs, 4)

	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Len(t, msgs[1].Content, 3)
	assert.Equal(t, "user", string(msgs[2].Role))
	require.Len(t, msgs[2].Content, 2)
	require.NotNil(t, msgs[2].Content[0].OfToolResult)
	assert.Equal(t, "t1", msgs[2].Content[0].OfToolResult.ToolUseID)
	require.NotNil(t, msgs[2].Content[1].OfToolResult)
	assert.Equal(t, "t2", msgs[2].Content[1].OfToolResult.ToolUseID)
	assert.Equal(t, "assistant", string(msgs[3].Role))
}

func TestBuildTools_RequiredAsStrings(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        "read_file",
			Description: "Read a file",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"path": map[string]any{"type": "string"}},
				"required":   []string{"path"},
			},
		},
	}})

	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "read_file", tools[0].OfTool.Name)
	assert.Equal(t, []string{"path"}, tools[0].OfTool.InputSchema.Required)
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, requiredFields([]any{"a", 1, "b"}))
	assert.Nil(t, requiredFields(nil))
}
