package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInternal(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ccmem.db"), DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// failExec makes every statement containing needle fail.
func failExec(s *Store, needle string) {
	s.hooks.exec = func(ctx context.Context, q sqlx.ExecerContext, query string, args ...any) (sql.Result, error) {
		if strings.Contains(query, needle) {
			return nil, errors.New("injected failure")
		}
		return q.ExecContext(ctx, query, args...)
	}
}

func TestWithTx_RollsBackWhenLaterStatementFails(t *testing.T) {
	s := openInternal(t)
	ctx := context.Background()
	storyID, err := s.CreateStory(ctx, "story")
	require.NoError(t, err)
	taskID, err := s.CreateTask(ctx, storyID, "task")
	require.NoError(t, err)

	failExec(s, "INSERT INTO history")
	err = s.StartWork(ctx, taskID, "sess")
	require.Error(t, err)

	task, err := s.Task(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, TaskPending, task.Status, "status change must roll back")

	logs, err := s.TaskLogs(ctx, taskID)
	require.NoError(t, err)
	assert.Empty(t, logs, "run log must roll back")
}

func TestWithTx_CommitFailureRollsBack(t *testing.T) {
	s := openInternal(t)
	ctx := context.Background()

	s.hooks.commit = func(tx *sqlx.Tx) error { return errors.New("disk full") }
	_, err := s.CreateStory(ctx, "outside tx")
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.CreateStory(ctx, "inside tx")
		return err
	})
	require.ErrorContains(t, err, "disk full")

	s.hooks.commit = nil
	stories, err := s.RecentStories(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "outside tx", stories[0].Message)
}

func TestWithTx_PanicRollsBack(t *testing.T) {
	s := openInternal(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.WithTx(ctx, func(tx *Tx) error {
			if _, err := tx.CreateStory(ctx, "doomed"); err != nil {
				return err
			}
			panic("boom")
		})
	})

	stories, err := s.RecentStories(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, stories)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil))
	plain := errors.New("disk I/O error")
	assert.Same(t, plain, classify(plain))

	ce := classify(errors.New("constraint failed: UNIQUE constraint failed: risks.keyword"))
	assert.True(t, IsConstraint(ce))
	assert.True(t, IsConstraint(classify(ce)))
}

func TestIDList(t *testing.T) {
	var l IDList
	v, err := l.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	l = l.Append(3).Append(1).Append(3)
	assert.Equal(t, IDList{3, 1}, l)

	orig := IDList{1}
	_ = orig.Append(2)
	assert.Equal(t, IDList{1}, orig, "Append must not mutate the receiver")

	var back IDList
	require.NoError(t, back.Scan([]byte("[5,6]")))
	assert.Equal(t, IDList{5, 6}, back)
	assert.Error(t, back.Scan("not json"))
}
