package builtin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/tool"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrReadOnly is returned for statements that could modify the dataset.
var ErrReadOnly = errors.New("only SELECT, WITH, EXPLAIN and PRAGMA statements are allowed")

// Dataset is a SQLite database opened read-only for query_dataset.
type Dataset struct {
	path string
	db   *sql.DB
}

// QueryResult is the tabular answer of a dataset query.
type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated,omitempty"`
}

// OpenDataset opens the SQLite file at path in read-only, query-only mode.
func OpenDataset(path string) (*Dataset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}

	dsn := (&url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: "mode=ro&_pragma=query_only(1)",
	}).String()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open dataset: %w", err)
	}

	return &Dataset{path: abs, db: db}, nil
}

// Path returns the absolute path of the database file.
func (d *Dataset) Path() string { return d.path }

// Close releases the database handle.
func (d *Dataset) Close() error { return d.db.Close() }

// Tables lists the user tables of the dataset.
func (d *Dataset) Tables(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type IN ('table','view') AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		tables = append(tables, name)
	}

	return tables, rows.Err()
}

// Query runs a read-only statement and returns at most maxRows rows.
func (d *Dataset) Query(ctx context.Context, query string, maxRows int) (*QueryResult, error) {
	if err := checkReadOnly(query); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &QueryResult{Columns: cols, Rows: [][]any{}}

	for rows.Next() {
		if maxRows > 0 && len(res.Rows) >= maxRows {
			res.Truncated = true
			break
		}

		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))

		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		for i, v := range values {
			if b, ok := v.([]byte); ok {
				if utf8.Valid(b) {
					values[i] = string(b)
				} else {
					values[i] = fmt.Sprintf("<blob %d bytes>", len(b))
				}
			}
		}

		res.Rows = append(res.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	res.RowCount = len(res.Rows)

	return res, nil
}

func checkReadOnly(query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return errors.New("empty query")
	}

	if i := strings.Index(strings.TrimRight(q, "; \t\n"), ";"); i >= 0 {
		return errors.New("multiple statements are not allowed")
	}

	first := strings.ToUpper(strings.Fields(q)[0])
	switch first {
	case "SELECT", "WITH", "EXPLAIN", "PRAGMA":
		return nil
	default:
		return ErrReadOnly
	}
}

// NewQueryDatasetTool exposes ds to agents as read-only SQL.
func NewQueryDatasetTool(ds *Dataset, maxRows int) tool.Tool {
	return tool.NewFunctionTool(
		"query_dataset",
		fmt.Sprintf("Run a read-only SQL query (SQLite dialect) against the research dataset %q. "+
			"List tables with: SELECT name FROM sqlite_master WHERE type='table'. At most %d rows are returned; aggregate in SQL where you can.",
			filepath.Base(ds.Path()), maxRows),
		schema(map[string]any{
			"sql": prop("string", "A single SELECT or WITH statement"),
		}, "sql"),
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			res, err := ds.Query(tc.Context(), stringArg(args, "sql"), maxRows)
			if err != nil {
				if errors.Is(err, ErrReadOnly) {
					return nil, tool.NewToolError("query_dataset", err.Error(), tool.CodeValidation)
				}

				return nil, err
			}

			return res, nil
		},
	)
}
