// Package tool implements the function / tool calling subsystem that lets agents
// invoke structured capabilities (code execution, dataset queries, file access,
// shared notes) with schema validated arguments, consistent error handling and
// a uniform result shape the model can read.
package tool

import (
	"fmt"

	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/internal/util"
)

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "TOOL_NOT_FOUND"
	CodeBadArgs    = "MALFORMED_ARGUMENTS"
	CodePanic      = "PANIC"
	CodeTimeout    = "TIMEOUT"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools are registered with a Registry and exposed to the model as function
// declarations. Every tool receives a ToolContext scoped to one function call
// of one run: the workspace, the run's artifact store and notebook, and a
// context carrying the dispatch timeout.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Return errors instead of panicking
//   - Be thread-safe (specialists of a parallel round share the registry)
//   - Bound the size of what they return
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the LLM to help it understand when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with structured arguments decoded from the
	// model's JSON. Arguments have already been validated against Parameters
	// when the call goes through a FunctionTool.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}

	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
