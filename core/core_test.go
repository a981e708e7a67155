package core

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type memArtifacts struct {
	mu   sync.Mutex
	data map[string]map[string][]byte
}

func (a *memArtifacts) Save(runID, name string, b []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.data == nil {
		a.data = map[string]map[string][]byte{}
	}

	if _, ok := a.data[runID]; !ok {
		a.data[runID] = map[string][]byte{}
	}

	a.data[runID][name] = append([]byte{}, b...)

	return nil
}

func (a *memArtifacts) Get(runID, name string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.data[runID][name], nil
}

func (a *memArtifacts) List(runID string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	res := []string{}
	for k := range a.data[runID] {
		res = append(res, k)
	}

	sort.Strings(res)

	return res, nil
}

func (a *memArtifacts) Delete(runID, name string) error { return nil }

type memNotes struct {
	notes []SearchResult
}

func (m *memNotes) Store(runID, author, content string, md map[string]any) (string, error) {
	id := runID + "-" + author
	m.notes = append(m.notes, SearchResult{ID: id, Author: author, Content: content, Score: 1, Metadata: md})

	return id, nil
}

func (m *memNotes) Search(runID, q string, limit int) ([]SearchResult, error) {
	var out []SearchResult
	for _, n := range m.notes {
		if strings.Contains(n.Content, q) {
			out = append(out, n)
		}
	}

	return out, nil
}

func newRunContextForTest() *RunContext {
	return NewRunContext(context.Background(), func(o *RunOptions) {
		o.RunID = "run-1"
		o.Workspace = "/tmp/ws"
		o.Artifacts = &memArtifacts{}
		o.Notes = &memNotes{}
	})
}
