package risk_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adestefa/ccmem/internal/risk"
	"github.com/adestefa/ccmem/internal/store"
)

func newSQLCorrelator(t *testing.T) (*risk.Correlator, *store.Store, int64) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ccmem.db"), store.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	storyID, err := s.CreateStory(ctx, "story")
	require.NoError(t, err)
	taskID, err := s.CreateTask(ctx, storyID, "task")
	require.NoError(t, err)
	return risk.New(risk.FromStore(s)), s, taskID
}

func TestSQL_RecordLandmine_UnknownTaskLeavesStoreUnchanged(t *testing.T) {
	c, s, _ := newSQLCorrelator(t)
	ctx := context.Background()

	_, err := c.RecordLandmine(ctx, risk.Incident{
		TaskID: 404, SessionID: "s", ErrorContext: "e", AttemptedFixes: "f",
		Keywords: []string{"auth"},
	})
	require.Error(t, err)
	assert.True(t, store.IsConstraint(err), "got %v", err)

	ids, err := s.AllLandmineIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
	risks, err := s.Risks(ctx)
	require.NoError(t, err)
	assert.Empty(t, risks)
	logs, err := s.TaskLogs(ctx, 404)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSQL_RecordAndFind(t *testing.T) {
	c, s, taskID := newSQLCorrelator(t)
	ctx := context.Background()

	l1 := flag(t, c, taskID, "token expired", "user-auth", "user-auth")
	l2 := flag(t, c, taskID, "session dropped", "user-auth", "user-login")
	l3 := flag(t, c, taskID, "form rejected", "user-login")
	l4 := flag(t, c, taskID, "gateway timeout")

	r, err := s.RiskByKeyword(ctx, "user-auth")
	require.NoError(t, err)
	assert.Equal(t, store.IDList{l1, l2}, r.LandmineIDs)
	assert.Equal(t, "Risks related to user-auth.", r.Description)

	f, err := c.FindRelevantRisks(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, []int64{l1, l2, l3}, landmineIDs(f))

	f, err = c.FindRelevantRisks(ctx, "Timeout")
	require.NoError(t, err)
	assert.Equal(t, []int64{l4}, landmineIDs(f))

	f, err = c.FindRelevantRisks(ctx, "zzz")
	require.NoError(t, err)
	assert.True(t, f.Empty())

	logs, err := s.TaskLogs(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, logs, 4)
	assert.Equal(t, "Landmine hit: token expired...", logs[0].Summary)
}

func TestSQL_VerifyAfterTaskDeletion(t *testing.T) {
	c, s, taskID := newSQLCorrelator(t)
	ctx := context.Background()
	id := flag(t, c, taskID, "boom", "deploy")

	require.NoError(t, s.DeleteTask(ctx, taskID))

	refs, err := c.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, []risk.DanglingRef{{Keyword: "deploy", LandmineID: id}}, refs)

	_, err = c.Landmine(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSQL_ConcurrentSameKeywordKeepsEveryID(t *testing.T) {
	c, s, taskID := newSQLCorrelator(t)
	ctx := context.Background()

	const n = 8
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []int64
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := c.RecordLandmine(ctx, risk.Incident{
				TaskID: taskID, SessionID: "s", ErrorContext: "race", AttemptedFixes: "f",
				Keywords: []string{"shared"},
			})
			if err != nil {
				return
			}
			mu.Lock()
			ids = append(ids, rec.LandmineID)
			mu.Unlock()
		}()
	}
	wg.Wait()

	r, err := s.RiskByKeyword(ctx, "shared")
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, []int64(r.LandmineIDs), "every committed landmine must be linked")
	assert.Equal(t, int64(len(ids)), r.Version, "one version bump per committed append")
}
