package store

import (
	"context"
	"fmt"
)

// Counts are whole-database tallies.
type Counts struct {
	Stories         int `db:"stories" json:"total_stories"`
	Tasks           int `db:"tasks" json:"total_tasks"`
	PendingTasks    int `db:"pending_tasks" json:"pending_tasks"`
	InProgressTasks int `db:"in_progress_tasks" json:"in_progress_tasks"`
	CompletedTasks  int `db:"completed_tasks" json:"completed_tasks"`
	Defects         int `db:"defects" json:"total_defects"`
	OpenDefects     int `db:"open_defects" json:"open_defects"`
	Sessions        int `db:"sessions" json:"sessions"`
	Landmines       int `db:"landmines" json:"total_landmines"`
	Risks           int `db:"risks" json:"risks"`
	Facts           int `db:"facts" json:"facts"`
	BacklogItems    int `db:"backlog_items" json:"backlog_items"`
}

// Counts returns the current tallies in one statement.
func (c conn) Counts(ctx context.Context) (Counts, error) {
	var n Counts
	err := c.get(ctx, &n, `
		SELECT
			(SELECT COUNT(*) FROM story)                                   AS stories,
			(SELECT COUNT(*) FROM task)                                    AS tasks,
			(SELECT COUNT(*) FROM task WHERE status = 'pending')           AS pending_tasks,
			(SELECT COUNT(*) FROM task WHERE status = 'in_progress')       AS in_progress_tasks,
			(SELECT COUNT(*) FROM task WHERE status = 'completed')         AS completed_tasks,
			(SELECT COUNT(*) FROM defect)                                  AS defects,
			(SELECT COUNT(*) FROM defect WHERE status != 'resolved')       AS open_defects,
			(SELECT COUNT(DISTINCT session_id) FROM history)               AS sessions,
			(SELECT COUNT(*) FROM landmines)                               AS landmines,
			(SELECT COUNT(*) FROM risks)                                   AS risks,
			(SELECT COUNT(*) FROM facts)                                   AS facts,
			(SELECT COUNT(*) FROM backlog)                                 AS backlog_items`)
	if err != nil {
		return Counts{}, fmt.Errorf("store: counts: %w", err)
	}
	return n, nil
}

// Integrity counts rows whose parent reference is gone.
type Integrity struct {
	OrphanedTaskLogs   int `db:"orphaned_task_logs" json:"orphaned_task_logs"`
	OrphanedDefectLogs int `db:"orphaned_defect_logs" json:"orphaned_defect_logs"`
	OrphanedTasks      int `db:"orphaned_tasks" json:"orphaned_tasks"`
}

// Total is the number of integrity issues found.
func (i Integrity) Total() int {
	return i.OrphanedTaskLogs + i.OrphanedDefectLogs + i.OrphanedTasks
}

// Integrity checks the parent references foreign keys should guarantee.
// Rows written before foreign keys were enforced can still break them.
func (c conn) Integrity(ctx context.Context) (Integrity, error) {
	var i Integrity
	err := c.get(ctx, &i, `
		SELECT
			(SELECT COUNT(*) FROM task_log tl LEFT JOIN task t ON t.id = tl.task_id WHERE t.id IS NULL)       AS orphaned_task_logs,
			(SELECT COUNT(*) FROM defect_log dl LEFT JOIN defect d ON d.id = dl.defect_id WHERE d.id IS NULL) AS orphaned_defect_logs,
			(SELECT COUNT(*) FROM task t LEFT JOIN story s ON s.id = t.story_id WHERE s.id IS NULL)            AS orphaned_tasks`)
	if err != nil {
		return Integrity{}, fmt.Errorf("store: integrity: %w", err)
	}
	return i, nil
}

// DayActivity is the number of task results recorded on one day.
type DayActivity struct {
	Date           string `db:"date" json:"date"`
	TasksCompleted int    `db:"tasks_completed" json:"tasks_completed"`
}

// RecentActivity returns per-day result counts over the last 30 days,
// newest day first, at most limit days.
func (c conn) RecentActivity(ctx context.Context, limit int) ([]DayActivity, error) {
	var out []DayActivity
	err := c.sel(ctx, &out, `
		SELECT DATE(timestamp) AS date, COUNT(*) AS tasks_completed
		FROM task_log
		WHERE log_type = 'result' AND timestamp >= datetime('now', '-30 days')
		GROUP BY DATE(timestamp)
		ORDER BY date DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent activity: %w", err)
	}
	return out, nil
}

// FileChange is the file list of one recorded task result.
type FileChange struct {
	TaskID int64    `db:"task_id" json:"task_id"`
	Files  FileList `db:"files_edited" json:"files"`
}

// FileChanges returns every task result that recorded files, newest first.
func (c conn) FileChanges(ctx context.Context) ([]FileChange, error) {
	var out []FileChange
	err := c.sel(ctx, &out, `
		SELECT task_id, files_edited FROM task_log
		WHERE files_edited IS NOT NULL AND log_type = 'result'
		ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: file changes: %w", err)
	}
	return out, nil
}

// Coverage describes how well stories are broken down and finished.
type Coverage struct {
	StoriesWithoutTasks int `db:"stories_without_tasks" json:"stories_without_tasks"`
	IncompleteStories   int `db:"incomplete_stories" json:"incomplete_stories"`
}

// Coverage returns story breakdown counts.
func (c conn) Coverage(ctx context.Context) (Coverage, error) {
	var cv Coverage
	err := c.get(ctx, &cv, `
		SELECT
			(SELECT COUNT(*) FROM story s WHERE NOT EXISTS (SELECT 1 FROM task t WHERE t.story_id = s.id)) AS stories_without_tasks,
			(SELECT COUNT(DISTINCT t.story_id) FROM task t WHERE t.status IN ('pending', 'in_progress'))  AS incomplete_stories`)
	if err != nil {
		return Coverage{}, fmt.Errorf("store: coverage: %w", err)
	}
	return cv, nil
}
