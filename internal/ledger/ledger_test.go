package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papersum/internal/config"
	"papersum/internal/dispatch"
	"papersum/internal/services"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "state", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var mu sync.Mutex
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
	return store
}

func TestOpenUsesConfigLedgerPath(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(t.TempDir(), "state")
	store, err := Open(&cfg)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, cfg.LedgerPath(), store.Path())

	_, err = Open(nil)
	assert.Error(t, err)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := OpenPath(path)
	require.NoError(t, err)
	run, err := store.StartRun(context.Background(), "summarize")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenPath(path)
	require.NoError(t, err)
	defer reopened.Close()
	found, err := reopened.FindRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, "summarize", found.Command)
}

func TestRunLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run, err := store.StartRun(ctx, "summarize")
	require.NoError(t, err)
	require.Len(t, run.ID, 36)
	assert.False(t, run.Finished())

	recorder := store.Recorder(run.ID)
	require.NoError(t, recorder.Record(ctx, dispatch.Success(dispatch.WorkItem{ID: "a"}, "out/a.md", 2, 1500*time.Millisecond)))
	require.NoError(t, recorder.Record(ctx, dispatch.Failure(dispatch.WorkItem{ID: "b"},
		services.NewError(services.KindRateLimited, "generate", "quota", nil), 13, 2*time.Minute)))
	require.NoError(t, store.FinishRun(ctx, run.ID, 2, 1, 1))

	found, err := store.FindRun(ctx, run.ID[:8])
	require.NoError(t, err)
	assert.True(t, found.Finished())
	assert.Equal(t, 2, found.Total)
	assert.Equal(t, 1, found.Succeeded)
	assert.Equal(t, 1, found.Failed)
	assert.Equal(t, 3*time.Second, found.Duration())

	records, err := store.Outcomes(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ItemID)
	assert.Equal(t, dispatch.StatusSucceeded, records[0].Status)
	assert.Equal(t, "out/a.md", records[0].Artifact)
	assert.Empty(t, records[0].Kind)
	assert.Equal(t, 1500*time.Millisecond, records[0].Elapsed)
	assert.Equal(t, services.KindRateLimited, records[1].Kind)
	assert.Equal(t, 13, records[1].Attempts)
	assert.Contains(t, records[1].Message, "quota")
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	var ids []string
	for _, command := range []string{"summarize", "fetch", "summarize"} {
		run, err := store.StartRun(ctx, command)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	limited, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestFindRunErrors(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.FindRun(ctx, "deadbeef")
	assert.True(t, errors.Is(err, services.ErrNotFound))

	_, err = store.FindRun(ctx, " ")
	assert.True(t, errors.Is(err, services.ErrValidation))

	_, err = store.FindRun(ctx, "%")
	assert.Error(t, err)

	err = store.FinishRun(ctx, "missing", 0, 0, 0)
	assert.True(t, errors.Is(err, services.ErrNotFound))
}

func TestRecordConcurrently(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	run, err := store.StartRun(ctx, "summarize")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item := dispatch.WorkItem{ID: string(rune('a' + i))}
			assert.NoError(t, store.Record(ctx, run.ID, dispatch.Success(item, "x.md", 1, 0)))
		}()
	}
	wg.Wait()

	records, err := store.Outcomes(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, records, 20)
}
