package builtin

import (
	"unicode/utf8"

	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/internal/util"
	"github.com/hupe1980/agentlab/tool"
)

// NewWriteArtifactTool saves text output (tables, code, reports) for the run.
func NewWriteArtifactTool() tool.Tool {
	return tool.NewFunctionTool(
		"write_artifact",
		"Save an output file for this research run, such as a CSV table, a script or a report. Existing artifacts with the same name are replaced.",
		schema(map[string]any{
			"name":    prop("string", "Artifact name, e.g. results/summary.csv"),
			"content": prop("string", "Full text content"),
		}, "name", "content"),
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			name := stringArg(args, "name")
			content := stringArg(args, "content")

			if err := tc.SaveArtifact(name, []byte(content)); err != nil {
				return nil, err
			}

			return map[string]any{"name": name, "bytes": len(content)}, nil
		},
	)
}

// NewReadArtifactTool reads back an artifact of the run.
func NewReadArtifactTool() tool.Tool {
	return tool.NewFunctionTool(
		"read_artifact",
		"Read an output file previously saved in this research run, including files written by teammates.",
		schema(map[string]any{
			"name": prop("string", "Artifact name as listed by list_artifacts"),
		}, "name"),
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			data, err := tc.LoadArtifact(stringArg(args, "name"))
			if err != nil {
				return nil, err
			}

			if !utf8.Valid(data) {
				return map[string]any{"binary": true, "bytes": len(data)}, nil
			}

			return util.Truncate(string(data), MaxOutputBytes), nil
		},
	)
}

// NewListArtifactsTool lists the run's artifacts.
func NewListArtifactsTool() tool.Tool {
	return tool.NewFunctionTool(
		"list_artifacts",
		"List the output files saved so far in this research run.",
		schema(map[string]any{}),
		func(tc *core.ToolContext, _ map[string]any) (any, error) {
			names, err := tc.ListArtifacts()
			if err != nil {
				return nil, err
			}

			return map[string]any{"artifacts": names}, nil
		},
	)
}
