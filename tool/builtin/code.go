package builtin

import (
	"github.com/hupe1980/agentlab/code"
	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/internal/util"
	"github.com/hupe1980/agentlab/tool"
)

// NewRunCodeTool executes an analysis snippet in the workspace.
func NewRunCodeTool(exec code.Executor) tool.Tool {
	return tool.NewFunctionTool(
		"run_code",
		"Execute a Python analysis snippet with the workspace as working directory. Print the values you need; stdout and stderr are returned.",
		schema(map[string]any{
			"code":       prop("string", "Complete program source"),
			"timeout_ms": prop("integer", "Optional time limit in milliseconds"),
		}, "code"),
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			timeout, err := intArg(args, "timeout_ms", 0)
			if err != nil {
				return nil, err
			}

			res, err := exec.Execute(tc.Context(), code.Request{
				Code:    stringArg(args, "code"),
				Dir:     tc.Workspace(),
				Timeout: int64(timeout),
			})
			if err != nil {
				return nil, err
			}

			res.Stdout = util.Truncate(res.Stdout, MaxOutputBytes/2)
			res.Stderr = util.Truncate(res.Stderr, MaxOutputBytes/2)

			return res, nil
		},
	)
}
