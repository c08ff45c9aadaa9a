package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Task statuses.
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
)

// Defect statuses.
const (
	DefectOpen       = "open"
	DefectInProgress = "in_progress"
	DefectResolved   = "resolved"
)

// Log entry types.
const (
	LogRun      = "run"
	LogResult   = "result"
	LogGold     = "gold"
	LogLandmine = "landmine"
)

// ─── Work items ──────────────────────────────────────────────────────────────

// Story is a top-level unit of requested work.
type Story struct {
	ID        int64  `db:"id" json:"id"`
	Message   string `db:"message" json:"message"`
	Timestamp string `db:"timestamp" json:"timestamp"`
}

// StorySummary is a story with task and defect tallies.
type StorySummary struct {
	Story
	TaskCount       int `db:"task_count" json:"task_count"`
	CompletedTasks  int `db:"completed_tasks" json:"completed_tasks"`
	InProgressTasks int `db:"in_progress_tasks" json:"in_progress_tasks"`
	OpenDefects     int `db:"open_defects" json:"open_defects"`
}

// Task is a unit of work belonging to a story.
type Task struct {
	ID          int64  `db:"id" json:"id"`
	StoryID     int64  `db:"story_id" json:"story_id"`
	Description string `db:"description" json:"description"`
	Status      string `db:"status" json:"status"`
	Timestamp   string `db:"timestamp" json:"timestamp"`
}

// TaskView is a task joined with its story's message.
type TaskView struct {
	Task
	StoryMessage string `db:"story_message" json:"story_message"`
}

// Defect is a reported problem linked to a story and optionally a task.
type Defect struct {
	ID          int64  `db:"id" json:"id"`
	StoryID     int64  `db:"story_id" json:"story_id"`
	TaskID      *int64 `db:"task_id" json:"task_id,omitempty"`
	Description string `db:"description" json:"description"`
	Status      string `db:"status" json:"status"`
	Timestamp   string `db:"timestamp" json:"timestamp"`
}

// DefectView is a defect joined with its story's message.
type DefectView struct {
	Defect
	StoryMessage string `db:"story_message" json:"story_message"`
}

// DefectParams holds the input for CreateDefect.
type DefectParams struct {
	StoryID     int64
	TaskID      *int64
	Description string
}

// TaskLog is one entry in a task's history.
type TaskLog struct {
	ID          int64    `db:"id" json:"id"`
	TaskID      int64    `db:"task_id" json:"task_id"`
	LogType     string   `db:"log_type" json:"log_type"`
	Summary     string   `db:"summary" json:"summary"`
	FilesEdited FileList `db:"files_edited" json:"files_edited,omitempty"`
	Timestamp   string   `db:"timestamp" json:"timestamp"`
}

// TaskLogParams holds the input for AppendTaskLog.
type TaskLogParams struct {
	TaskID      int64
	LogType     string
	Summary     string
	FilesEdited FileList
}

// DefectLog is one entry in a defect's history.
type DefectLog struct {
	ID          int64    `db:"id" json:"id"`
	DefectID    int64    `db:"defect_id" json:"defect_id"`
	LogType     string   `db:"log_type" json:"log_type"`
	Summary     string   `db:"summary" json:"summary"`
	FilesEdited FileList `db:"files_edited" json:"files_edited,omitempty"`
	Timestamp   string   `db:"timestamp" json:"timestamp"`
}

// Session is a work session on a task (a history row).
type Session struct {
	ID        int64   `db:"id" json:"id"`
	SessionID string  `db:"session_id" json:"session_id"`
	TaskID    int64   `db:"task_id" json:"task_id"`
	StartTime string  `db:"start_time" json:"start_time"`
	EndTime   *string `db:"end_time" json:"end_time,omitempty"`
	Summary   *string `db:"summary" json:"summary,omitempty"`
}

// WorkInProgress is the most recently started in-progress task.
type WorkInProgress struct {
	Task
	StoryMessage string  `db:"story_message" json:"story_message"`
	SessionID    *string `db:"session_id" json:"session_id,omitempty"`
	StartTime    *string `db:"start_time" json:"start_time,omitempty"`
}

// ─── Risk correlation ────────────────────────────────────────────────────────

// Landmine is an immutable record of a failure hit while working a task.
type Landmine struct {
	ID             int64  `db:"id" json:"id"`
	TaskID         int64  `db:"task_id" json:"task_id"`
	SessionID      string `db:"session_id" json:"session_id"`
	ErrorContext   string `db:"error_context" json:"error_context"`
	AttemptedFixes string `db:"attempted_fixes" json:"attempted_fixes"`
	Timestamp      string `db:"timestamp" json:"timestamp"`
}

// LandmineView is a landmine joined with its task and story.
type LandmineView struct {
	Landmine
	TaskDescription string `db:"task_description" json:"task_description"`
	StoryID         int64  `db:"story_id" json:"story_id"`
	StoryMessage    string `db:"story_message" json:"story_message"`
}

// LandmineParams holds the input for InsertLandmine.
type LandmineParams struct {
	TaskID         int64
	SessionID      string
	ErrorContext   string
	AttemptedFixes string
}

// Risk associates a keyword with the landmines relevant to it.
type Risk struct {
	ID          int64  `db:"id" json:"id"`
	Keyword     string `db:"keyword" json:"keyword"`
	Description string `db:"description" json:"description"`
	LandmineIDs IDList `db:"landmine_ids" json:"landmine_ids"`
	Version     int64  `db:"version" json:"version"`
	LastUpdated string `db:"last_updated" json:"last_updated"`
}

// RiskWeight is a keyword with the number of landmines it points at.
type RiskWeight struct {
	Keyword       string `db:"keyword" json:"keyword"`
	LandmineCount int    `db:"landmine_count" json:"landmine_count"`
}

// ─── Knowledge ───────────────────────────────────────────────────────────────

// KeyValue is one project knowledge entry.
type KeyValue struct {
	Key   string `db:"key" json:"key" yaml:"key"`
	Value string `db:"value" json:"value" yaml:"value"`
}

// Fact is a learned piece of project knowledge.
type Fact struct {
	ID         int64  `db:"id" json:"id"`
	Category   string `db:"category" json:"category"`
	Key        string `db:"key" json:"key"`
	Value      string `db:"value" json:"value"`
	Source     string `db:"source" json:"source"`
	Confidence int    `db:"confidence" json:"confidence"`
	Timestamp  string `db:"timestamp" json:"timestamp"`
}

// FactQuery filters RecallFacts. Empty fields do not filter.
type FactQuery struct {
	Category string
	Query    string
	Limit    int
}

// ─── JSON array columns ──────────────────────────────────────────────────────

// IDList is a JSON-encoded array of landmine ids stored in a text column.
// It behaves as an ordered set: Append never adds an id twice.
type IDList []int64

// Contains reports whether id is in the list.
func (l IDList) Contains(id int64) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Append returns the list with id at the end, or the list unchanged when
// id is already present.
func (l IDList) Append(id int64) IDList {
	if l.Contains(id) {
		return l
	}
	out := make(IDList, len(l), len(l)+1)
	copy(out, l)
	return append(out, id)
}

// Value encodes the list as a JSON array. A nil list encodes as "[]".
func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int64(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan decodes a JSON array column.
func (l *IDList) Scan(src any) error {
	raw, err := scanText(src)
	if err != nil {
		return fmt.Errorf("landmine ids: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		*l = nil
		return nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return fmt.Errorf("landmine ids: decode %q: %w", raw, err)
	}
	*l = ids
	return nil
}

// FileList is a JSON-encoded array of file paths. A nil list is NULL.
type FileList []string

// Value encodes the list as a JSON array, or NULL when nil.
func (l FileList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan decodes a nullable JSON array column.
func (l *FileList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	raw, err := scanText(src)
	if err != nil {
		return fmt.Errorf("files: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		*l = nil
		return nil
	}
	var files []string
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return fmt.Errorf("files: decode %q: %w", raw, err)
	}
	*l = files
	return nil
}

func scanText(src any) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported column type %T", src)
	}
}
