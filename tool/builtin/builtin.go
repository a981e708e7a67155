// Package builtin provides the research tools agents call: workspace file
// access, artifact output, code execution, dataset queries and the shared
// notebook. Every tool caps what it returns at MaxOutputBytes so a single
// result cannot flood the model's context.
package builtin

import (
	"fmt"
	"math"

	"github.com/hupe1980/agentlab/code"
	"github.com/hupe1980/agentlab/tool"
)

// MaxOutputBytes caps the text a builtin tool returns.
const MaxOutputBytes = 16 << 10

// Options selects and configures the builtin tool set.
type Options struct {
	// CodeExecutor backs run_code; nil leaves the tool out.
	CodeExecutor code.Executor
	// Dataset backs query_dataset; nil leaves the tool out.
	Dataset *Dataset
	// MaxRows caps rows returned by query_dataset. Default 200.
	MaxRows int
}

// Tools returns the builtin tools enabled by opts. File, artifact and note
// tools are always present; they act on the workspace and stores carried by
// the run context.
func Tools(optFns ...func(o *Options)) []tool.Tool {
	opts := Options{MaxRows: 200}
	for _, fn := range optFns {
		fn(&opts)
	}

	tools := []tool.Tool{
		NewReadFileTool(),
		NewFindFilesTool(),
		NewWriteArtifactTool(),
		NewReadArtifactTool(),
		NewListArtifactsTool(),
		NewSaveNoteTool(),
		NewSearchNotesTool(),
	}

	if opts.CodeExecutor != nil {
		tools = append(tools, NewRunCodeTool(opts.CodeExecutor))
	}

	if opts.Dataset != nil {
		tools = append(tools, NewQueryDatasetTool(opts.Dataset, opts.MaxRows))
	}

	return tools
}

// Register adds the builtin tools to reg.
func Register(reg *tool.Registry, optFns ...func(o *Options)) error {
	return reg.Register(Tools(optFns...)...)
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}

	f, ok := v.(float64)
	if !ok {
		if i, isInt := v.(int); isInt {
			return i, nil
		}

		return 0, fmt.Errorf("%s must be a number", key)
	}

	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s must be an integer", key)
	}

	return int(f), nil
}

func schema(properties map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		s["required"] = required
	}

	return s
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}
