package builtin

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/internal/util"
	"github.com/hupe1980/agentlab/tool"
)

const maxFindResults = 200

// openWorkspace opens the run's workspace as an os.Root so no path, symlink
// or ".." can reach outside it.
func openWorkspace(tc *core.ToolContext) (*os.Root, error) {
	ws := tc.Workspace()
	if ws == "" {
		return nil, errors.New("no workspace configured for this run")
	}

	root, err := os.OpenRoot(ws)
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}

	return root, nil
}

func workspacePath(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(p, "\\", "/")), "/")
	if p == "" {
		return "."
	}

	return p
}

// NewReadFileTool reads a text file from the workspace.
func NewReadFileTool() tool.Tool {
	return tool.NewFunctionTool(
		"read_file",
		"Read a text file from the research workspace. Use offset and limit (in lines) to page through large files.",
		schema(map[string]any{
			"path":   prop("string", "File path relative to the workspace root"),
			"offset": prop("integer", "First line to return, 0-based (default 0)"),
			"limit":  prop("integer", "Maximum number of lines to return (default: all that fit)"),
		}, "path"),
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			offset, err := intArg(args, "offset", 0)
			if err != nil {
				return nil, err
			}

			limit, err := intArg(args, "limit", 0)
			if err != nil {
				return nil, err
			}

			root, err := openWorkspace(tc)
			if err != nil {
				return nil, err
			}
			defer root.Close()

			f, err := root.Open(workspacePath(stringArg(args, "path")))
			if err != nil {
				return nil, err
			}
			defer f.Close()

			data, err := io.ReadAll(io.LimitReader(f, 8*MaxOutputBytes))
			if err != nil {
				return nil, err
			}

			lines := strings.SplitAfter(string(data), "\n")
			if offset > len(lines) {
				offset = len(lines)
			}

			lines = lines[offset:]
			if limit > 0 && limit < len(lines) {
				lines = lines[:limit]
			}

			return util.Truncate(strings.Join(lines, ""), MaxOutputBytes), nil
		},
	)
}

// NewFindFilesTool lists workspace files whose path matches a glob.
func NewFindFilesTool() tool.Tool {
	return tool.NewFunctionTool(
		"find_files",
		"Find files in the research workspace. The pattern is a glob matched against the file name (e.g. *.csv) or, when it contains a slash, against the relative path (e.g. data/*.csv).",
		schema(map[string]any{
			"pattern": prop("string", "Glob pattern; empty lists every file"),
			"dir":     prop("string", "Subdirectory to search (default: workspace root)"),
		}),
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			pattern := stringArg(args, "pattern")
			if _, err := path.Match(pattern, ""); err != nil {
				return nil, fmt.Errorf("bad pattern: %w", err)
			}

			root, err := openWorkspace(tc)
			if err != nil {
				return nil, err
			}
			defer root.Close()

			var matches []string

			truncated := false

			err = fs.WalkDir(root.FS(), workspacePath(stringArg(args, "dir")), func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}

				if d.IsDir() {
					if p != "." && strings.HasPrefix(d.Name(), ".") {
						return fs.SkipDir
					}

					return nil
				}

				if !globMatch(pattern, p) {
					return nil
				}

				if len(matches) >= maxFindResults {
					truncated = true
					return fs.SkipAll
				}

				matches = append(matches, p)

				return nil
			})
			if err != nil {
				return nil, err
			}

			sort.Strings(matches)

			return map[string]any{
				"files":     matches,
				"count":     len(matches),
				"truncated": truncated,
			}, nil
		},
	)
}

func globMatch(pattern, p string) bool {
	if pattern == "" {
		return true
	}

	if strings.Contains(pattern, "/") {
		ok, _ := path.Match(pattern, p)
		return ok
	}

	ok, _ := path.Match(pattern, path.Base(p))

	return ok
}
