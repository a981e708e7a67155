package testutil

import "github.com/hupe1980/agentlab/core"

// ContentBuilder provides a fluent helper for constructing messages in tests.
// Example:
//
//	msg := NewContentBuilder().AssistantText("checking").FunctionCall("c1", "read_file", `{"path":"a.txt"}`).Build()
type ContentBuilder struct {
	role  string
	parts []core.Part
}

// NewContentBuilder creates a builder with role assistant.
func NewContentBuilder() *ContentBuilder { return &ContentBuilder{role: core.RoleAssistant} }

// UserText appends a text part and sets role to user (chainable).
func (b *ContentBuilder) UserText(t string) *ContentBuilder {
	b.role = core.RoleUser
	b.parts = append(b.parts, core.TextPart{Text: t})

	return b
}

// AssistantText appends a text part and sets role to assistant (chainable).
func (b *ContentBuilder) AssistantText(t string) *ContentBuilder {
	b.role = core.RoleAssistant
	b.parts = append(b.parts, core.TextPart{Text: t})

	return b
}

// FunctionCall appends a function call part (chainable).
func (b *ContentBuilder) FunctionCall(id, name, args string) *ContentBuilder {
	b.role = core.RoleAssistant
	b.parts = append(b.parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: args}})

	return b
}

// FunctionResponse appends a function response part and sets role to tool (chainable).
func (b *ContentBuilder) FunctionResponse(id, name string, result any, err error) *ContentBuilder {
	fr := core.FunctionResponse{ID: id, Name: name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}

	b.role = core.RoleTool
	b.parts = append(b.parts, core.FunctionResponsePart{FunctionResponse: fr})

	return b
}

// Build returns the message.
func (b *ContentBuilder) Build() core.Content {
	parts := make([]core.Part, len(b.parts))
	copy(parts, b.parts)

	return core.Content{Role: b.role, Parts: parts}
}
