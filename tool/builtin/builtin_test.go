package builtin

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hupe1980/agentlab/artifact"
	"github.com/hupe1980/agentlab/code"
	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/notebook"
	"github.com/hupe1980/agentlab/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	workspace string
	runCtx    *core.RunContext
	registry  *tool.Registry
}

func newFixture(t *testing.T, optFns ...func(o *Options)) *fixture {
	t.Helper()

	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(ws, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ws, "README.md"), []byte("line0\nline1\nline2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ws, "data", "samples.csv"), []byte("id,value\n1,3.5\n"), 0o644))

	runCtx := core.NewRunContext(context.Background(), func(o *core.RunOptions) {
		o.RunID = "run-1"
		o.Workspace = ws
		o.Artifacts = artifact.NewInMemoryStore()
		o.Notes = notebook.NewInMemoryStore()
	})

	reg := tool.NewRegistry()
	require.NoError(t, Register(reg, optFns...))

	return &fixture{workspace: ws, runCtx: runCtx, registry: reg}
}

func (f *fixture) call(name string, args map[string]any) tool.Result {
	raw, _ := json.Marshal(args)
	tc := core.NewToolContext(f.runCtx, "Data Analyst", "fc-"+name)

	return f.registry.Dispatch(tc, core.FunctionCall{ID: "fc-" + name, Name: name, Arguments: string(raw)})
}

func TestTools_DefaultSet(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{
		"find_files", "list_artifacts", "read_artifact", "read_file",
		"save_note", "search_notes", "write_artifact",
	}, f.registry.Names())

	f = newFixture(t, func(o *Options) {
		o.CodeExecutor = code.NewSubprocessExecutor()
	})
	_, ok := f.registry.Get("run_code")
	assert.True(t, ok)
}

func TestReadFile(t *testing.T) {
	f := newFixture(t)

	res := f.call("read_file", map[string]any{"path": "README.md"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "line0\nline1\nline2\n", res.Payload)

	res = f.call("read_file", map[string]any{"path": "README.md", "offset": 1, "limit": 1})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "line1\n", res.Payload)
}

func TestReadFile_ConfinedToWorkspace(t *testing.T) {
	f := newFixture(t)

	outside := filepath.Join(filepath.Dir(f.workspace), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))
	t.Cleanup(func() { _ = os.Remove(outside) })

	res := f.call("read_file", map[string]any{"path": "../secret.txt"})
	if res.Success {
		assert.NotEqual(t, "secret", res.Payload)
	}

	require.NoError(t, os.Symlink(outside, filepath.Join(f.workspace, "link.txt")))
	res = f.call("read_file", map[string]any{"path": "link.txt"})
	assert.False(t, res.Success)
}

func TestReadFile_Truncates(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.workspace, "big.txt"), []byte(strings.Repeat("x", 3*MaxOutputBytes)), 0o644))

	res := f.call("read_file", map[string]any{"path": "big.txt"})
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Payload, "[truncated")
	assert.Less(t, len(res.Payload.(string)), MaxOutputBytes+64)
}

func TestFindFiles(t *testing.T) {
	f := newFixture(t)

	res := f.call("find_files", map[string]any{"pattern": "*.csv"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"data/samples.csv"}, res.Payload.(map[string]any)["files"])

	res = f.call("find_files", map[string]any{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Payload.(map[string]any)["count"])

	res = f.call("find_files", map[string]any{"pattern": "[", "dir": "data"})
	assert.False(t, res.Success)
}

func TestArtifactTools(t *testing.T) {
	f := newFixture(t)

	res := f.call("write_artifact", map[string]any{"name": "out/table.csv", "content": "a,b\n1,2\n"})
	require.True(t, res.Success, res.Error)

	res = f.call("list_artifacts", nil)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"out/table.csv"}, res.Payload.(map[string]any)["artifacts"])

	res = f.call("read_artifact", map[string]any{"name": "out/table.csv"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "a,b\n1,2\n", res.Payload)

	res = f.call("read_artifact", map[string]any{"name": "missing.txt"})
	assert.False(t, res.Success)
	assert.Equal(t, tool.CodeExecution, res.Code)
}

func TestNoteTools(t *testing.T) {
	f := newFixture(t)

	res := f.call("save_note", map[string]any{"content": "Sample 3 is an outlier at 9.1", "topic": "qc"})
	require.True(t, res.Success, res.Error)
	assert.NotEmpty(t, res.Payload.(map[string]any)["id"])

	res = f.call("search_notes", map[string]any{"query": "outlier"})
	require.True(t, res.Success, res.Error)

	notes := res.Payload.(map[string]any)["notes"].([]map[string]any)
	require.Len(t, notes, 1)
	assert.Equal(t, "Data Analyst", notes[0]["author"])
}

func TestRunCode(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}

	f := newFixture(t, func(o *Options) {
		o.CodeExecutor = code.NewSubprocessExecutor(func(o *code.SubprocessOptions) {
			o.Interpreter = []string{"/bin/sh"}
			o.Extension = ".sh"
		})
	})

	res := f.call("run_code", map[string]any{"code": "ls"})
	require.True(t, res.Success, res.Error)

	out := res.Payload.(code.Result)
	assert.Equal(t, 0, out.ExitCode)
	assert.Contains(t, out.Stdout, "README.md")
}

func newDataset(t *testing.T) *Dataset {
	t.Helper()

	path := filepath.Join(t.TempDir(), "assay.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)

	_, err = db.Exec(`CREATE TABLE samples (id INTEGER PRIMARY KEY, gene TEXT, expression REAL);
		INSERT INTO samples (gene, expression) VALUES ('TP53', 1.5), ('BRCA1', 2.25), ('EGFR', 7.0);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	ds, err := OpenDataset(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })

	return ds
}

func TestDataset_Query(t *testing.T) {
	ds := newDataset(t)

	tables, err := ds.Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"samples"}, tables)

	res, err := ds.Query(context.Background(), "SELECT gene, expression FROM samples ORDER BY expression DESC", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"gene", "expression"}, res.Columns)
	assert.Equal(t, 2, res.RowCount)
	assert.True(t, res.Truncated)
	assert.Equal(t, "EGFR", res.Rows[0][0])
}

func TestDataset_RejectsWrites(t *testing.T) {
	ds := newDataset(t)

	_, err := ds.Query(context.Background(), "DELETE FROM samples", 10)
	assert.ErrorIs(t, err, ErrReadOnly)

	_, err = ds.Query(context.Background(), "SELECT 1; DROP TABLE samples", 10)
	assert.Error(t, err)

	// query_only holds even when the statement passes the prefix check.
	_, err = ds.Query(context.Background(), "WITH x AS (SELECT 1) DELETE FROM samples", 10)
	assert.Error(t, err)

	res, err := ds.Query(context.Background(), "SELECT COUNT(*) FROM samples", 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Rows[0][0])
}

func TestQueryDatasetTool(t *testing.T) {
	ds := newDataset(t)
	f := newFixture(t, func(o *Options) {
		o.Dataset = ds
		o.MaxRows = 10
	})

	res := f.call("query_dataset", map[string]any{"sql": "SELECT gene FROM samples WHERE expression > 2 ORDER BY gene"})
	require.True(t, res.Success, res.Error)

	qr := res.Payload.(*QueryResult)
	assert.Equal(t, [][]any{{"BRCA1"}, {"EGFR"}}, qr.Rows)

	res = f.call("query_dataset", map[string]any{"sql": "DROP TABLE samples"})
	assert.False(t, res.Success)
	assert.Equal(t, tool.CodeValidation, res.Code)
}

func TestOpenDataset_Missing(t *testing.T) {
	_, err := OpenDataset(filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)
}
