package infra

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summerlab/appagent/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteHistoryStore {
	t.Helper()
	store, err := NewSQLiteHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// TestHistoryStore_AppendAndRecent verifies round-tripping entries.
func TestHistoryStore_AppendAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := domain.HistoryEntry{
		Timestamp:    time.Now().UTC().Truncate(time.Millisecond),
		AppName:      "Editor",
		AppPath:      "/usr/bin/editor",
		Result:       domain.LaunchSuccess,
		ProcessID:    4242,
		Duration:     0.25,
		LaunchMethod: "direct",
		Platform:     "linux",
	}
	require.NoError(t, store.Append(ctx, entry))

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entry.AppName, got[0].AppName)
	assert.Equal(t, entry.Result, got[0].Result)
	assert.Equal(t, entry.ProcessID, got[0].ProcessID)
	assert.True(t, entry.Timestamp.Equal(got[0].Timestamp))
}

// TestHistoryStore_RecentLimitAndOrder verifies the limit applies to the
// newest entries, returned oldest first.
func TestHistoryStore_RecentLimitAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, store.Append(ctx, domain.HistoryEntry{
			Timestamp: time.Now().UTC(),
			AppName:   name,
			Result:    domain.LaunchSuccess,
			Platform:  "linux",
		}))
	}

	got, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].AppName)
	assert.Equal(t, "third", got[1].AppName)
}

// TestHistoryStore_SurvivesReopen verifies entries persist across store
// instances.
func TestHistoryStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	first, err := NewSQLiteHistoryStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Append(ctx, domain.HistoryEntry{
		Timestamp: time.Now().UTC(),
		AppName:   "Editor",
		Result:    domain.LaunchSuccess,
		Platform:  "linux",
	}))
	require.NoError(t, first.Close())

	second, err := NewSQLiteHistoryStore(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
