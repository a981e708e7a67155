package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":  map[string]any{"type": "string"},
			"limit": map[string]any{"type": "integer"},
			"mode":  map[string]any{"type": "string", "enum": []string{"head", "tail"}},
		},
		"required": []string{"path"},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"path": "a", "limit": float64(3), "extra": true}, schema))

	var verr *ValidationError

	err := ValidateParameters(map[string]any{"limit": float64(3)}, schema)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "path", verr.Field)

	err = ValidateParameters(map[string]any{"path": "a", "limit": 2.5}, schema)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "limit", verr.Field)

	err = ValidateParameters(map[string]any{"path": "a", "mode": "middle"}, schema)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "mode", verr.Field)
}

func TestRequiredFields_DecodedSchema(t *testing.T) {
	assert.Equal(t, []string{"a"}, RequiredFields(map[string]any{"required": []any{"a"}}))
	assert.Nil(t, RequiredFields(map[string]any{}))
}

func TestCreateSchema(t *testing.T) {
	type args struct {
		Query string `json:"query" description:"SQL"`
		Limit *int   `json:"limit"`
	}

	schema := CreateSchema(args{})
	assert.Equal(t, []string{"query"}, schema["required"])

	props := schema["properties"].(map[string]any)
	assert.Equal(t, "integer", props["limit"].(map[string]any)["type"])
}

func TestRenderTemplate_NoEscaping(t *testing.T) {
	out, err := RenderTemplate("Question: {{.Q}}\n{{bullets .Items}}", map[string]any{
		"Q":     "is a < b & c?",
		"Items": []string{"one", "two"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Question: is a < b & c?\n- one\n- two", out)

	plain, err := RenderTemplate("no markers", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers", plain)
}

func TestExtractJSON(t *testing.T) {
	fenced := "Here is the team:\n```json\n{\"team\": []}\n```\nthanks {not json}"
	raw, err := ExtractJSON(fenced)
	require.NoError(t, err)
	assert.Equal(t, `{"team": []}`, raw)

	bare, err := ExtractJSON(`Plan: {"subtasks": [{"description": "x"}]} end`)
	require.NoError(t, err)
	assert.Equal(t, `{"subtasks": [{"description": "x"}]}`, bare)

	_, err = ExtractJSON("no json at all")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestDecodeJSONBlock(t *testing.T) {
	var v struct {
		RedFlags []struct {
			Description string `json:"description"`
		} `json:"red_flags"`
	}

	require.NoError(t, DecodeJSONBlock(`{"red_flags":[{"description":"n too small"}]}`, &v))
	assert.Len(t, v.RedFlags, 1)

	assert.Error(t, DecodeJSONBlock(`{"red_flags": [}`, &v))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc\n...[truncated 3 bytes]", Truncate("abcdef", 3))

	// never splits a multi-byte rune
	out := Truncate("ééé", 3)
	assert.Equal(t, "é\n...[truncated 4 bytes]", out)
}
