package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	orb "github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skovsen/D2D_CleanerLogic/internal/monitor"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(id string, started time.Time) Run {
	return Run{
		ID:        id,
		Scenario:  "office",
		Strategy:  "swap",
		Seed:      42,
		Robots:    2,
		Duration:  300 * time.Second,
		StartedAt: started,
	}
}

func testEntries() []monitor.Entry {
	return []monitor.Entry{
		{Position: orb.Point{3.3, 12}, InitialOwner: "Collector1", ReachedBy: "Collector0", ReachedAt: 51500 * time.Millisecond},
		{Position: orb.Point{8.5, 12}, InitialOwner: "Collector0"},
		{Position: orb.Point{20.8, 11.7}, InitialOwner: "Collector0", ReachedBy: "Collector0", ReachedAt: 90 * time.Second},
	}
}

func TestNewSQLiteStoreCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "runs.db")
	s, err := NewSQLiteStore(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSaveRunRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRun(ctx, testRun("run-1", started), testEntries()))

	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, testRun("run-1", started), *run)

	entries, err := s.Entries(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, testEntries(), entries)
}

func TestSaveRunTwiceFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveRun(ctx, testRun("run-1", time.Now()), testEntries()))
	assert.Error(t, s.SaveRun(ctx, testRun("run-1", time.Now()), nil))

	entries, err := s.Entries(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, entries, 3, "failed save left the first run alone")
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Entries(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunSummaries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRun(ctx, testRun("old", base), testEntries()))
	require.NoError(t, s.SaveRun(ctx, testRun("new", base.Add(time.Hour)), nil))

	sums, err := s.RunSummaries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sums, 2)

	assert.Equal(t, "new", sums[0].ID)
	assert.Zero(t, sums[0].Total)
	assert.Zero(t, sums[0].LastReach)

	assert.Equal(t, "old", sums[1].ID)
	assert.Equal(t, 3, sums[1].Total)
	assert.Equal(t, 2, sums[1].Reached)
	assert.Equal(t, 90*time.Second, sums[1].LastReach)

	limited, err := s.RunSummaries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "new", limited[0].ID)
}

func TestDeleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveRun(ctx, testRun("run-1", time.Now()), testEntries()))

	require.NoError(t, s.DeleteRun(ctx, "run-1"))
	_, err := s.GetRun(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteRun(ctx, "run-1"), ErrNotFound)
}
