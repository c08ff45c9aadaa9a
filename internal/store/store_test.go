package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adestefa/ccmem/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ccmem.db"), store.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedTask creates a story with one task and returns both ids.
func seedTask(t *testing.T, s *store.Store) (storyID, taskID int64) {
	t.Helper()
	ctx := context.Background()
	storyID, err := s.CreateStory(ctx, "Checkout flow")
	require.NoError(t, err)
	taskID, err = s.CreateTask(ctx, storyID, "Wire payment form")
	require.NoError(t, err)
	return storyID, taskID
}

// ─── Open ────────────────────────────────────────────────────────────────────

func TestOpen_CreatesDirectoryAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "ccmem.db")

	s1, err := store.Open(path, store.DefaultOptions())
	require.NoError(t, err)
	id, err := s1.CreateStory(context.Background(), "persisted")
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := store.Open(path, store.DefaultOptions())
	require.NoError(t, err)
	defer s2.Close()

	st, err := s2.Story(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "persisted", st.Message)
	assert.Equal(t, path, s2.Path())
}

func TestClose_NilSafe(t *testing.T) {
	var s *store.Store
	assert.NoError(t, s.Close())
}

// ─── Stories & tasks ─────────────────────────────────────────────────────────

func TestStory_NotFoundMessage(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Story(context.Background(), 42)
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, "Story with ID 42 not found.", err.Error())
}

func TestCreateTask_UnknownStoryIsConstraint(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateTask(context.Background(), 999, "orphan")
	require.Error(t, err)
	assert.True(t, store.IsConstraint(err), "got %v", err)
}

func TestTasksForStory_CreationOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	storyID, first := seedTask(t, s)
	second, err := s.CreateTask(ctx, storyID, "Add receipts")
	require.NoError(t, err)

	tasks, err := s.TasksForStory(ctx, storyID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, first, tasks[0].ID)
	assert.Equal(t, second, tasks[1].ID)
	assert.Equal(t, store.TaskPending, tasks[0].Status)
}

func TestStorySummaries_CountsWithoutJoinInflation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	storyID, taskID := seedTask(t, s)
	_, err := s.CreateTask(ctx, storyID, "second")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := s.CreateDefect(ctx, store.DefectParams{StoryID: storyID, Description: "bug"})
		require.NoError(t, err)
	}
	require.NoError(t, s.StartWork(ctx, taskID, "sess"))

	sums, err := s.StorySummaries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, 2, sums[0].TaskCount)
	assert.Equal(t, 1, sums[0].InProgressTasks)
	assert.Equal(t, 0, sums[0].CompletedTasks)
	assert.Equal(t, 3, sums[0].OpenDefects)
}

func TestDeleteTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, taskID := seedTask(t, s)

	require.NoError(t, s.DeleteTask(ctx, taskID))
	_, err := s.Task(ctx, taskID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.DeleteTask(ctx, taskID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// ─── Work sessions ───────────────────────────────────────────────────────────

func TestStartWork_RecordsRunLogAndSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, taskID := seedTask(t, s)

	require.NoError(t, s.StartWork(ctx, taskID, "sess-1"))

	task, err := s.Task(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, store.TaskInProgress, task.Status)

	logs, err := s.TaskLogs(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, store.LogRun, logs[0].LogType)
	assert.Equal(t, "Session sess-1 started.", logs[0].Summary)

	sessions, err := s.SessionsForTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, []string{"sess-1"}, sessions)

	cur, err := s.CurrentWork(ctx)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, taskID, cur.ID)
	require.NotNil(t, cur.SessionID)
	assert.Equal(t, "sess-1", *cur.SessionID)
}

func TestStartWork_UnknownTaskLeavesNoTrace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.StartWork(ctx, 77, "sess")
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, "Task with ID 77 not found.", err.Error())

	all, err := s.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRecordTaskResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, taskID := seedTask(t, s)

	err := s.RecordTaskResult(ctx, store.TaskResult{TaskID: taskID, SessionID: "s", Summary: "done"})
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, "Task "+itoa(taskID)+" not found or not in progress.", err.Error())

	require.NoError(t, s.StartWork(ctx, taskID, "s"))
	require.NoError(t, s.RecordTaskResult(ctx, store.TaskResult{
		TaskID:      taskID,
		SessionID:   "s",
		Summary:     "shipped",
		FilesEdited: store.FileList{"a.go", "b.go"},
	}))

	task, err := s.Task(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, store.TaskCompleted, task.Status)

	logs, err := s.TaskLogs(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, store.LogResult, logs[1].LogType)
	assert.Equal(t, store.FileList{"a.go", "b.go"}, logs[1].FilesEdited)
	assert.Nil(t, logs[0].FilesEdited)

	all, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].EndTime)
	require.NotNil(t, all[0].Summary)
	assert.Equal(t, "shipped", *all[0].Summary)

	cur, err := s.CurrentWork(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestMarkGoldStandard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, taskID := seedTask(t, s)

	_, err := s.MarkGoldStandard(ctx, taskID, "abc123", "clean refactor", nil)
	require.NoError(t, err)

	gold, err := s.GoldStandards(ctx, 5)
	require.NoError(t, err)
	require.Len(t, gold, 1)
	assert.Equal(t, "GOLD STANDARD: clean refactor (Commit: abc123)", gold[0].Summary)

	_, err = s.MarkGoldStandard(ctx, 999, "x", "y", nil)
	assert.True(t, store.IsConstraint(err))
}

// ─── Defects ─────────────────────────────────────────────────────────────────

func TestDefectLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	storyID, taskID := seedTask(t, s)

	id, err := s.CreateDefect(ctx, store.DefectParams{StoryID: storyID, TaskID: &taskID, Description: "totals wrong"})
	require.NoError(t, err)

	d, err := s.Defect(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.DefectOpen, d.Status)
	require.NotNil(t, d.TaskID)
	assert.Equal(t, taskID, *d.TaskID)

	open, err := s.RecentDefects(ctx, true, 10)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	require.NoError(t, s.RecordDefectResult(ctx, id, "rounded properly", store.FileList{"cart.go"}))
	d, err = s.Defect(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.DefectResolved, d.Status)

	logs, err := s.DefectLogs(ctx, id)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "rounded properly", logs[0].Summary)

	open, err = s.RecentDefects(ctx, true, 10)
	require.NoError(t, err)
	assert.Empty(t, open)

	err = s.RecordDefectResult(ctx, 404, "x", nil)
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, "Defect 404 not found.", err.Error())
}

func TestCreateDefect_UnknownStoryIsConstraint(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateDefect(context.Background(), store.DefectParams{StoryID: 5, Description: "x"})
	assert.True(t, store.IsConstraint(err))
}

// ─── Landmines & risks ───────────────────────────────────────────────────────

func TestLandmine_NotFoundMessage(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Landmine(context.Background(), 3)
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, "No landmine found with ID 3.", err.Error())
}

func TestSwapRiskLandmines_VersionCheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateRisk(ctx, "auth", "Risks related to auth.", store.IDList{1})
	require.NoError(t, err)
	r, err := s.RiskByKeyword(ctx, "auth")
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.Version)
	assert.Equal(t, store.IDList{1}, r.LandmineIDs)

	require.NoError(t, s.SwapRiskLandmines(ctx, "auth", r.Version, r.LandmineIDs.Append(2)))

	err = s.SwapRiskLandmines(ctx, "auth", r.Version, r.LandmineIDs.Append(3))
	assert.True(t, errors.Is(err, store.ErrConflict), "stale version must conflict, got %v", err)

	r, err = s.RiskByKeyword(ctx, "auth")
	require.NoError(t, err)
	assert.Equal(t, store.IDList{1, 2}, r.LandmineIDs)
	assert.Equal(t, int64(2), r.Version)
}

func TestCreateRisk_DuplicateKeyword(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateRisk(ctx, "db", "Risks related to db.", nil)
	require.NoError(t, err)
	_, err = s.CreateRisk(ctx, "db", "Risks related to db.", nil)
	assert.True(t, store.IsConstraint(err))
}

func TestTopRisks_CountsIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateRisk(ctx, "small", "", store.IDList{1})
	require.NoError(t, err)
	_, err = s.CreateRisk(ctx, "big", "", store.IDList{1, 2, 3})
	require.NoError(t, err)

	top, err := s.TopRisks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, store.RiskWeight{Keyword: "big", LandmineCount: 3}, top[0])
	assert.Equal(t, store.RiskWeight{Keyword: "small", LandmineCount: 1}, top[1])
}

func TestLandminesByID_SkipsMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, taskID := seedTask(t, s)
	a, err := s.InsertLandmine(ctx, store.LandmineParams{TaskID: taskID, SessionID: "s", ErrorContext: "boom", AttemptedFixes: "none"})
	require.NoError(t, err)
	b, err := s.InsertLandmine(ctx, store.LandmineParams{TaskID: taskID, SessionID: "s", ErrorContext: "bang", AttemptedFixes: "none"})
	require.NoError(t, err)

	got, err := s.LandminesByID(ctx, []int64{b, 999, a})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].ID)
	assert.Equal(t, b, got[1].ID)

	got, err = s.LandminesByID(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// ─── Knowledge ───────────────────────────────────────────────────────────────

func TestSetInfo_ReplacesAndKeepsOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetInfo(ctx, store.SectionGeneral, "name", "ccmem"))
	require.NoError(t, s.SetInfo(ctx, store.SectionGeneral, "lang", "go"))
	require.NoError(t, s.SetInfo(ctx, store.SectionGeneral, "name", "ccmem2"))

	kv, err := s.Info(ctx, store.SectionGeneral)
	require.NoError(t, err)
	require.Len(t, kv, 2)
	assert.Contains(t, kv, store.KeyValue{Key: "name", Value: "ccmem2"})
	assert.Contains(t, kv, store.KeyValue{Key: "lang", Value: "go"})

	assert.Error(t, s.SetInfo(ctx, store.Section("story; DROP TABLE story"), "k", "v"))
}

func TestSection_Title(t *testing.T) {
	assert.Equal(t, "Architecture", store.SectionArchitecture.Title())
	assert.True(t, store.SectionTesting.Valid())
	assert.False(t, store.Section("facts").Valid())
}

func TestUpsertFact_AndRecall(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertFact(ctx, store.Fact{Category: "stack", Key: "db", Value: "sqlite", Confidence: 90}))
	require.NoError(t, s.UpsertFact(ctx, store.Fact{Category: "stack", Key: "db", Value: "postgres", Confidence: 80}))
	require.NoError(t, s.UpsertFact(ctx, store.Fact{Category: "team", Key: "lead", Value: "sam", Confidence: 100}))

	n, err := s.CountFacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	facts, err := s.RecallFacts(ctx, store.FactQuery{Category: "stack"})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "postgres", facts[0].Value)
	assert.Equal(t, "manual", facts[0].Source)

	facts, err = s.RecallFacts(ctx, store.FactQuery{Query: "sam", Limit: 5})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "lead", facts[0].Key)

	err = s.UpsertFact(ctx, store.Fact{Category: "x", Key: "y", Value: "z", Confidence: 101})
	assert.True(t, store.IsConstraint(err))
}

// ─── Stats & export ──────────────────────────────────────────────────────────

func TestCountsIntegrityCoverage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	storyID, taskID := seedTask(t, s)
	_, err := s.CreateStory(ctx, "empty story")
	require.NoError(t, err)
	require.NoError(t, s.StartWork(ctx, taskID, "s1"))
	_, err = s.CreateDefect(ctx, store.DefectParams{StoryID: storyID, Description: "d"})
	require.NoError(t, err)

	n, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n.Stories)
	assert.Equal(t, 1, n.Tasks)
	assert.Equal(t, 1, n.InProgressTasks)
	assert.Equal(t, 1, n.OpenDefects)
	assert.Equal(t, 1, n.Sessions)

	integ, err := s.Integrity(ctx)
	require.NoError(t, err)
	assert.Zero(t, integ.Total())

	cov, err := s.Coverage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cov.StoriesWithoutTasks)
	assert.Equal(t, 1, cov.IncompleteStories)
}

func TestFileChangesAndActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, taskID := seedTask(t, s)
	require.NoError(t, s.StartWork(ctx, taskID, "s"))
	require.NoError(t, s.RecordTaskResult(ctx, store.TaskResult{
		TaskID: taskID, SessionID: "s", Summary: "ok", FilesEdited: store.FileList{"x.go"},
	}))

	changes, err := s.FileChanges(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, store.FileList{"x.go"}, changes[0].Files)

	days, err := s.RecentActivity(ctx, 7)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 1, days[0].TasksCompleted)
}

func TestExport_Snapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	storyID, taskID := seedTask(t, s)
	_, err := s.CreateTask(ctx, storyID, "second")
	require.NoError(t, err)
	require.NoError(t, s.StartWork(ctx, taskID, "s"))
	require.NoError(t, s.RecordTaskResult(ctx, store.TaskResult{TaskID: taskID, SessionID: "s", Summary: "ok"}))

	snap, err := s.Export(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	require.Len(t, snap.Stories, 1)
	assert.Equal(t, 2, snap.Stories[0].TaskCounts.Total)
	assert.Equal(t, 1, snap.Stories[0].TaskCounts.Completed)
	assert.Equal(t, 50.0, snap.Stories[0].Progress)
	assert.Equal(t, store.TaskPending, snap.Stories[0].Status)
	assert.Len(t, snap.Tasks, 2)
	assert.Equal(t, 1, snap.Metrics.CompletedTasks)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
