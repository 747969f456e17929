package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browsebench/internal/runner"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStoreAt(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResults(url string) []runner.Result {
	return []runner.Result{
		{URL: url, RunNumber: 1, LoadTimeMs: 120.5, Status: runner.StatusSuccess},
		{URL: url, RunNumber: 2, LoadTimeMs: -1, Status: runner.StatusError, ErrorMessage: "boom"},
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	store := tempStore(t)

	cfg := runner.Config{
		URLs:           []string{"https://a.test"},
		RunsPerURL:     2,
		Browser:        runner.BrowserFirefox,
		TimeoutSeconds: 30,
		WaitStrategy:   runner.WaitCombined,
	}
	item := NewHistoryItem(cfg, sampleResults("https://a.test"))
	require.NoError(t, store.Save(item))

	got, err := store.Get(item.ID)
	require.NoError(t, err)

	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, cfg, got.Config)
	require.Len(t, got.Results, 2)
	assert.Equal(t, 120.5, got.Results[0].LoadTimeMs)
	assert.Equal(t, "boom", got.Results[1].ErrorMessage)

	// The derived summary is persisted alongside the raw results.
	s, ok := got.Summary["https://a.test"]
	require.True(t, ok)
	assert.Equal(t, 1, s.NumSuccessfulRuns)
	assert.Equal(t, 1, s.NumErrors)
}

func TestListNewestFirst(t *testing.T) {
	store := tempStore(t)

	base := time.Now()
	var ids []string
	for i := 0; i < 3; i++ {
		item := NewHistoryItem(runner.Config{URLs: []string{"https://a.test"}}, nil)
		item.Timestamp = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Save(item))
		ids = append(ids, item.ID)
	}

	items := store.List()
	require.Len(t, items, 3)
	assert.Equal(t, ids[2], items[0].ID)
	assert.Equal(t, ids[1], items[1].ID)
	assert.Equal(t, ids[0], items[2].ID)
}

func TestGetUnknownID(t *testing.T) {
	store := tempStore(t)

	_, err := store.Get("no-such-run")
	assert.Error(t, err)
}
