package notebook

import (
	"sync"
	"testing"

	"github.com/hupe1980/agentlab/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ core.NoteStore = (*InMemoryStore)(nil)

func TestInMemoryStore_SearchRanking(t *testing.T) {
	nb := NewInMemoryStore()

	_, err := nb.Store("r1", "Domain Scientist", "Enzyme activity peaks at 37C", map[string]any{"topic": "kinetics"})
	require.NoError(t, err)
	_, err = nb.Store("r1", "Data Analyst", "Activity data has 12 missing rows", nil)
	require.NoError(t, err)
	_, err = nb.Store("r2", "Generalist", "enzyme notes from another run", nil)
	require.NoError(t, err)

	res, err := nb.Search("r1", "enzyme activity", 10)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Domain Scientist", res[0].Author)
	assert.Equal(t, 1.0, res[0].Score)
	assert.Equal(t, 0.5, res[1].Score)
	assert.Equal(t, "kinetics", res[0].Metadata["topic"])

	limited, err := nb.Search("r1", "activity", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := nb.Search("r1", "photosynthesis", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryStore_EmptyQueryNewestFirst(t *testing.T) {
	nb := NewInMemoryStore()

	_, _ = nb.Store("r1", "A", "first", nil)
	_, _ = nb.Store("r1", "B", "second", nil)

	res, err := nb.Search("r1", "", 0)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "second", res[0].Content)
}

func TestInMemoryStore_ConcurrentWriters(t *testing.T) {
	nb := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = nb.Store("r1", "Specialist", "finding", nil)
		}()
	}
	wg.Wait()

	assert.Len(t, nb.Notes("r1"), 16)
}
