package notebook

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/agentlab/core"
)

// Note is one stored finding.
type Note struct {
	ID        string
	Author    string
	Content   string
	Metadata  map[string]any
	CreatedAt time.Time
}

// InMemoryStore is a process‑local NoteStore.
//
// Search: case-insensitive term matching. A note's score is the fraction of
// query terms it contains; ties keep insertion order. An empty query returns
// the most recent notes first.
type InMemoryStore struct {
	mu    sync.RWMutex
	notes map[string][]Note // runID -> notes in insertion order
	now   func() time.Time
}

// NewInMemoryStore creates an empty notebook.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		notes: make(map[string][]Note),
		now:   time.Now,
	}
}

// Store appends a note and returns its id.
func (m *InMemoryStore) Store(runID, author, content string, metadata map[string]any) (string, error) {
	md := make(map[string]any, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}

	note := Note{
		ID:        uuid.NewString(),
		Author:    author,
		Content:   content,
		Metadata:  md,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.notes[runID] = append(m.notes[runID], note)

	return note.ID, nil
}

// Notes returns a snapshot of all notes of a run in insertion order.
func (m *InMemoryStore) Notes(runID string) []Note {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Note, len(m.notes[runID]))
	copy(out, m.notes[runID])

	return out
}

// Search returns up to limit notes matching query, best first. A
// non-positive limit means no limit.
func (m *InMemoryStore) Search(runID, query string, limit int) ([]core.SearchResult, error) {
	notes := m.Notes(runID)
	terms := strings.Fields(strings.ToLower(query))

	type scored struct {
		note  Note
		score float64
		order int
	}

	var hits []scored

	for i, n := range notes {
		if len(terms) == 0 {
			hits = append(hits, scored{note: n, score: 1, order: -i})
			continue
		}

		text := strings.ToLower(n.Content)

		matched := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				matched++
			}
		}

		if matched > 0 {
			hits = append(hits, scored{note: n, score: float64(matched) / float64(len(terms)), order: i})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}

		return hits[i].order < hits[j].order
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]core.SearchResult, 0, len(hits))
	for _, h := range hits {
		md := make(map[string]any, len(h.note.Metadata))
		for k, v := range h.note.Metadata {
			md[k] = v
		}

		results = append(results, core.SearchResult{
			ID:       h.note.ID,
			Author:   h.note.Author,
			Content:  h.note.Content,
			Score:    h.score,
			Metadata: md,
		})
	}

	return results, nil
}
