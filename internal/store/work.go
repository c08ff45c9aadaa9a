package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ─── Stories ─────────────────────────────────────────────────────────────────

// CreateStory inserts a story and returns its id.
func (c conn) CreateStory(ctx context.Context, message string) (int64, error) {
	id, err := c.insert(ctx, `INSERT INTO story (message) VALUES (?)`, message)
	if err != nil {
		return 0, fmt.Errorf("store: create story: %w", err)
	}
	return id, nil
}

// Story returns the story with the given id.
func (c conn) Story(ctx context.Context, id int64) (*Story, error) {
	var s Story
	err := c.get(ctx, &s, `SELECT id, message, timestamp FROM story WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundf("Story with ID %d not found.", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get story %d: %w", id, err)
	}
	return &s, nil
}

// RecentStories returns up to limit stories, newest first.
func (c conn) RecentStories(ctx context.Context, limit int) ([]Story, error) {
	var out []Story
	if err := c.sel(ctx, &out, `SELECT id, message, timestamp FROM story ORDER BY id DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("store: recent stories: %w", err)
	}
	return out, nil
}

// StorySummaries returns up to limit stories with task and open defect
// tallies, newest first.
func (c conn) StorySummaries(ctx context.Context, limit int) ([]StorySummary, error) {
	var out []StorySummary
	err := c.sel(ctx, &out, `
		SELECT s.id, s.message, s.timestamp,
		       (SELECT COUNT(*) FROM task t WHERE t.story_id = s.id)                              AS task_count,
		       (SELECT COUNT(*) FROM task t WHERE t.story_id = s.id AND t.status = 'completed')   AS completed_tasks,
		       (SELECT COUNT(*) FROM task t WHERE t.story_id = s.id AND t.status = 'in_progress') AS in_progress_tasks,
		       (SELECT COUNT(*) FROM defect d WHERE d.story_id = s.id AND d.status != 'resolved') AS open_defects
		FROM story s
		ORDER BY s.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: story summaries: %w", err)
	}
	return out, nil
}

// CountTasks returns how many tasks a story has.
func (c conn) CountTasks(ctx context.Context, storyID int64) (int, error) {
	var n int
	if err := c.get(ctx, &n, `SELECT COUNT(*) FROM task WHERE story_id = ?`, storyID); err != nil {
		return 0, fmt.Errorf("store: count tasks: %w", err)
	}
	return n, nil
}

// ─── Tasks ───────────────────────────────────────────────────────────────────

// CreateTask inserts a pending task under storyID.
func (c conn) CreateTask(ctx context.Context, storyID int64, description string) (int64, error) {
	id, err := c.insert(ctx, `INSERT INTO task (story_id, description) VALUES (?, ?)`, storyID, description)
	if err != nil {
		return 0, fmt.Errorf("store: create task: %w", err)
	}
	return id, nil
}

// Task returns the task with the given id.
func (c conn) Task(ctx context.Context, id int64) (*Task, error) {
	var t Task
	err := c.get(ctx, &t, `SELECT id, story_id, description, status, timestamp FROM task WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundf("Task with ID %d not found.", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get task %d: %w", id, err)
	}
	return &t, nil
}

// TasksForStory returns a story's tasks in creation order.
func (c conn) TasksForStory(ctx context.Context, storyID int64) ([]Task, error) {
	var out []Task
	err := c.sel(ctx, &out, `
		SELECT id, story_id, description, status, timestamp
		FROM task WHERE story_id = ? ORDER BY id ASC`, storyID)
	if err != nil {
		return nil, fmt.Errorf("store: tasks for story %d: %w", storyID, err)
	}
	return out, nil
}

// RecentTasks returns up to limit tasks with their story, newest first.
func (c conn) RecentTasks(ctx context.Context, limit int) ([]TaskView, error) {
	var out []TaskView
	err := c.sel(ctx, &out, `
		SELECT t.id, t.story_id, t.description, t.status, t.timestamp, s.message AS story_message
		FROM task t JOIN story s ON s.id = t.story_id
		ORDER BY t.timestamp DESC, t.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent tasks: %w", err)
	}
	return out, nil
}

// DeleteTask removes a task. Its logs, sessions and landmines cascade;
// risk id lists keep their references (see risk.Correlator.Verify).
func (c conn) DeleteTask(ctx context.Context, id int64) error {
	n, err := c.update(ctx, `DELETE FROM task WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete task %d: %w", id, err)
	}
	if n == 0 {
		return NotFoundf("Task with ID %d not found.", id)
	}
	return nil
}

func (c conn) markTaskStarted(ctx context.Context, id int64) error {
	n, err := c.update(ctx, `UPDATE task SET status = 'in_progress' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: start task %d: %w", id, err)
	}
	if n == 0 {
		return NotFoundf("Task with ID %d not found.", id)
	}
	return nil
}

func (c conn) markTaskCompleted(ctx context.Context, id int64) error {
	n, err := c.update(ctx, `UPDATE task SET status = 'completed' WHERE id = ? AND status = 'in_progress'`, id)
	if err != nil {
		return fmt.Errorf("store: complete task %d: %w", id, err)
	}
	if n == 0 {
		return NotFoundf("Task %d not found or not in progress.", id)
	}
	return nil
}

// ─── Task logs & sessions ────────────────────────────────────────────────────

// AppendTaskLog adds an entry to a task's history.
func (c conn) AppendTaskLog(ctx context.Context, p TaskLogParams) (int64, error) {
	id, err := c.insert(ctx,
		`INSERT INTO task_log (task_id, log_type, summary, files_edited) VALUES (?, ?, ?, ?)`,
		p.TaskID, p.LogType, p.Summary, p.FilesEdited,
	)
	if err != nil {
		return 0, fmt.Errorf("store: append task log: %w", err)
	}
	return id, nil
}

// TaskLogs returns a task's history, oldest first.
func (c conn) TaskLogs(ctx context.Context, taskID int64) ([]TaskLog, error) {
	var out []TaskLog
	err := c.sel(ctx, &out, `
		SELECT id, task_id, log_type, summary, files_edited, timestamp
		FROM task_log WHERE task_id = ? ORDER BY timestamp ASC, id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("store: task logs %d: %w", taskID, err)
	}
	return out, nil
}

// GoldStandards returns the most recent gold standard log entries.
func (c conn) GoldStandards(ctx context.Context, limit int) ([]TaskLog, error) {
	var out []TaskLog
	err := c.sel(ctx, &out, `
		SELECT id, task_id, log_type, summary, files_edited, timestamp
		FROM task_log WHERE log_type = 'gold'
		ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: gold standards: %w", err)
	}
	return out, nil
}

// StartSession records the start of a work session.
func (c conn) StartSession(ctx context.Context, sessionID string, taskID int64) (int64, error) {
	id, err := c.insert(ctx, `INSERT INTO history (session_id, task_id) VALUES (?, ?)`, sessionID, taskID)
	if err != nil {
		return 0, fmt.Errorf("store: start session: %w", err)
	}
	return id, nil
}

// EndSession closes every history row of (taskID, sessionID) and returns
// how many were closed.
func (c conn) EndSession(ctx context.Context, taskID int64, sessionID, summary string) (int64, error) {
	n, err := c.update(ctx, `
		UPDATE history SET end_time = datetime('now'), summary = ?
		WHERE task_id = ? AND session_id = ?`, summary, taskID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("store: end session: %w", err)
	}
	return n, nil
}

// SessionsForTask returns the distinct session ids that worked on a task.
func (c conn) SessionsForTask(ctx context.Context, taskID int64) ([]string, error) {
	var out []string
	err := c.sel(ctx, &out, `
		SELECT session_id FROM history WHERE task_id = ?
		GROUP BY session_id ORDER BY MIN(id)`, taskID)
	if err != nil {
		return nil, fmt.Errorf("store: sessions for task %d: %w", taskID, err)
	}
	return out, nil
}

// Sessions returns every history row, oldest first.
func (c conn) Sessions(ctx context.Context) ([]Session, error) {
	var out []Session
	err := c.sel(ctx, &out, `
		SELECT id, session_id, task_id, start_time, end_time, summary
		FROM history ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: sessions: %w", err)
	}
	return out, nil
}

// CurrentWork returns the in-progress task with the latest session start,
// or nil when nothing is in progress.
func (c conn) CurrentWork(ctx context.Context) (*WorkInProgress, error) {
	var w WorkInProgress
	err := c.get(ctx, &w, `
		SELECT t.id, t.story_id, t.description, t.status, t.timestamp,
		       s.message AS story_message, h.session_id, h.start_time
		FROM task t
		JOIN story s ON s.id = t.story_id
		LEFT JOIN history h ON h.task_id = t.id
		WHERE t.status = 'in_progress'
		ORDER BY h.start_time DESC, h.id DESC
		LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: current work: %w", err)
	}
	return &w, nil
}

// ─── Defects ─────────────────────────────────────────────────────────────────

// CreateDefect inserts an open defect.
func (c conn) CreateDefect(ctx context.Context, p DefectParams) (int64, error) {
	id, err := c.insert(ctx,
		`INSERT INTO defect (story_id, task_id, description) VALUES (?, ?, ?)`,
		p.StoryID, p.TaskID, p.Description,
	)
	if err != nil {
		return 0, fmt.Errorf("store: create defect: %w", err)
	}
	return id, nil
}

// Defect returns the defect with the given id.
func (c conn) Defect(ctx context.Context, id int64) (*Defect, error) {
	var d Defect
	err := c.get(ctx, &d, `
		SELECT id, story_id, task_id, description, status, timestamp
		FROM defect WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundf("Defect with ID %d not found.", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get defect %d: %w", id, err)
	}
	return &d, nil
}

// DefectsForStory returns a story's defects in creation order.
func (c conn) DefectsForStory(ctx context.Context, storyID int64) ([]Defect, error) {
	var out []Defect
	err := c.sel(ctx, &out, `
		SELECT id, story_id, task_id, description, status, timestamp
		FROM defect WHERE story_id = ? ORDER BY id ASC`, storyID)
	if err != nil {
		return nil, fmt.Errorf("store: defects for story %d: %w", storyID, err)
	}
	return out, nil
}

// RecentDefects returns up to limit defects with their story, newest first.
// With openOnly set, resolved defects are skipped.
func (c conn) RecentDefects(ctx context.Context, openOnly bool, limit int) ([]DefectView, error) {
	query := `
		SELECT d.id, d.story_id, d.task_id, d.description, d.status, d.timestamp, s.message AS story_message
		FROM defect d JOIN story s ON s.id = d.story_id`
	if openOnly {
		query += ` WHERE d.status != 'resolved'`
	}
	query += ` ORDER BY d.timestamp DESC, d.id DESC LIMIT ?`

	var out []DefectView
	if err := c.sel(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("store: recent defects: %w", err)
	}
	return out, nil
}

func (c conn) markDefectResolved(ctx context.Context, id int64) error {
	n, err := c.update(ctx, `UPDATE defect SET status = 'resolved' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: resolve defect %d: %w", id, err)
	}
	if n == 0 {
		return NotFoundf("Defect %d not found.", id)
	}
	return nil
}

// AppendDefectLog adds an entry to a defect's history.
func (c conn) AppendDefectLog(ctx context.Context, defectID int64, logType, summary string, files FileList) (int64, error) {
	id, err := c.insert(ctx,
		`INSERT INTO defect_log (defect_id, log_type, summary, files_edited) VALUES (?, ?, ?, ?)`,
		defectID, logType, summary, files,
	)
	if err != nil {
		return 0, fmt.Errorf("store: append defect log: %w", err)
	}
	return id, nil
}

// DefectLogs returns a defect's history, oldest first.
func (c conn) DefectLogs(ctx context.Context, defectID int64) ([]DefectLog, error) {
	var out []DefectLog
	err := c.sel(ctx, &out, `
		SELECT id, defect_id, log_type, summary, files_edited, timestamp
		FROM defect_log WHERE defect_id = ? ORDER BY timestamp ASC, id ASC`, defectID)
	if err != nil {
		return nil, fmt.Errorf("store: defect logs %d: %w", defectID, err)
	}
	return out, nil
}

// ─── Workflow ────────────────────────────────────────────────────────────────

// TaskResult holds the input for RecordTaskResult.
type TaskResult struct {
	TaskID      int64
	SessionID   string
	Summary     string
	FilesEdited FileList
}

// StartWork marks a task in progress, logs the session start and opens a
// history row, all in one transaction.
func (s *Store) StartWork(ctx context.Context, taskID int64, sessionID string) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.markTaskStarted(ctx, taskID); err != nil {
			return err
		}
		if _, err := tx.AppendTaskLog(ctx, TaskLogParams{
			TaskID:  taskID,
			LogType: LogRun,
			Summary: fmt.Sprintf("Session %s started.", sessionID),
		}); err != nil {
			return err
		}
		_, err := tx.StartSession(ctx, sessionID, taskID)
		return err
	})
}

// RecordTaskResult completes an in-progress task, logs the result and
// closes the session's history row, all in one transaction.
func (s *Store) RecordTaskResult(ctx context.Context, r TaskResult) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.markTaskCompleted(ctx, r.TaskID); err != nil {
			return err
		}
		if _, err := tx.AppendTaskLog(ctx, TaskLogParams{
			TaskID:      r.TaskID,
			LogType:     LogResult,
			Summary:     r.Summary,
			FilesEdited: r.FilesEdited,
		}); err != nil {
			return err
		}
		_, err := tx.EndSession(ctx, r.TaskID, r.SessionID, r.Summary)
		return err
	})
}

// RecordDefectResult resolves a defect and logs the fix in one transaction.
func (s *Store) RecordDefectResult(ctx context.Context, defectID int64, summary string, files FileList) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.markDefectResolved(ctx, defectID); err != nil {
			return err
		}
		_, err := tx.AppendDefectLog(ctx, defectID, LogResult, summary, files)
		return err
	})
}

// MarkGoldStandard logs a task outcome as an exemplary success.
func (c conn) MarkGoldStandard(ctx context.Context, taskID int64, commitHash, summary string, files FileList) (int64, error) {
	return c.AppendTaskLog(ctx, TaskLogParams{
		TaskID:      taskID,
		LogType:     LogGold,
		Summary:     fmt.Sprintf("GOLD STANDARD: %s (Commit: %s)", summary, commitHash),
		FilesEdited: files,
	})
}
