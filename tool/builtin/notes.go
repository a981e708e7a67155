package builtin

import (
	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/tool"
)

// NewSaveNoteTool records a finding in the run's shared notebook.
func NewSaveNoteTool() tool.Tool {
	return tool.NewFunctionTool(
		"save_note",
		"Record a short finding in the team's shared notebook so other team members can build on it.",
		schema(map[string]any{
			"content": prop("string", "The finding, one or two sentences with numbers where possible"),
			"topic":   prop("string", "Optional topic tag"),
		}, "content"),
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			md := map[string]any{}
			if topic := stringArg(args, "topic"); topic != "" {
				md["topic"] = topic
			}

			id, err := tc.StoreNote(stringArg(args, "content"), md)
			if err != nil {
				return nil, err
			}

			return map[string]any{"id": id}, nil
		},
	)
}

// NewSearchNotesTool searches the run's shared notebook.
func NewSearchNotesTool() tool.Tool {
	return tool.NewFunctionTool(
		"search_notes",
		"Search the team's shared notebook. An empty query returns the most recent notes.",
		schema(map[string]any{
			"query": prop("string", "Words to look for"),
			"limit": prop("integer", "Maximum notes to return (default 10)"),
		}),
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			limit, err := intArg(args, "limit", 10)
			if err != nil {
				return nil, err
			}

			results, err := tc.SearchNotes(stringArg(args, "query"), limit)
			if err != nil {
				return nil, err
			}

			notes := make([]map[string]any, 0, len(results))
			for _, r := range results {
				notes = append(notes, map[string]any{
					"author":  r.Author,
					"content": r.Content,
					"score":   r.Score,
				})
			}

			return map[string]any{"notes": notes}, nil
		},
	)
}
