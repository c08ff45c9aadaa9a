package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/adestefa/ccmem/internal/store"
)

// historyLine is one log entry in a details reply.
type historyLine struct {
	logType, timestamp, summary string
	files                       store.FileList
}

// formatDetails renders "<Kind> id (status): description" followed by the
// history section.
func formatDetails(kind string, id int64, status, description string, history []historyLine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d (%s): %s\n\n--- History ---\n", kind, id, status, description)
	if len(history) == 0 {
		fmt.Fprintf(&b, "No history logs found for this %s.", strings.ToLower(kind))
		return b.String()
	}
	for i, h := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] %s: %s", strings.ToUpper(h.logType), h.timestamp, h.summary)
		if h.files != nil {
			fmt.Fprintf(&b, "\n    Files: %s", strings.Join(h.files, ", "))
		}
	}
	return b.String()
}

// ─── WriteStoryTool ─────────────────────────────────────────────────────────

// WriteStoryTool handles the write-story MCP tool.
type WriteStoryTool struct {
	store *store.Store
}

// NewWriteStoryTool creates a WriteStoryTool.
func NewWriteStoryTool(s *store.Store) *WriteStoryTool {
	return &WriteStoryTool{store: s}
}

// Definition returns the MCP tool definition for write-story.
func (t *WriteStoryTool) Definition() mcp.Tool {
	return mcp.NewTool("write-story",
		mcp.WithDescription("Writes a new story: a top-level unit of requested work."),
		mcp.WithString("message", mcp.Required(), mcp.Description("What the story asks for")),
	)
}

// Handle processes the write-story tool call.
func (t *WriteStoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := requiredString(req, "message")
	if err != nil {
		return errorResult("%v", err), nil
	}
	id, err := t.store.CreateStory(ctx, msg)
	if err != nil {
		return failure("write the story", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Saved story with ID: %d", id)), nil
}

// ─── CreateTaskTool ─────────────────────────────────────────────────────────

// CreateTaskTool handles the create-task MCP tool.
type CreateTaskTool struct {
	store *store.Store
}

// NewCreateTaskTool creates a CreateTaskTool.
func NewCreateTaskTool(s *store.Store) *CreateTaskTool {
	return &CreateTaskTool{store: s}
}

// Definition returns the MCP tool definition for create-task.
func (t *CreateTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("create-task",
		mcp.WithDescription("Creates a pending task for a story."),
		mcp.WithNumber("storyId", mcp.Required(), mcp.Description("Story the task belongs to")),
		mcp.WithString("description", mcp.Required(), mcp.Description("What the task does")),
	)
}

// Handle processes the create-task tool call.
func (t *CreateTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	storyID, err := idArg(req, "storyId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	desc, err := requiredString(req, "description")
	if err != nil {
		return errorResult("%v", err), nil
	}
	id, err := t.store.CreateTask(ctx, storyID, desc)
	if err != nil {
		return failure("create the task", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created task ID: %d", id)), nil
}

// ─── ListTasksTool ──────────────────────────────────────────────────────────

// ListTasksTool handles the list-tasks-for-story MCP tool.
type ListTasksTool struct {
	store *store.Store
}

// NewListTasksTool creates a ListTasksTool.
func NewListTasksTool(s *store.Store) *ListTasksTool {
	return &ListTasksTool{store: s}
}

// Definition returns the MCP tool definition for list-tasks-for-story.
func (t *ListTasksTool) Definition() mcp.Tool {
	return mcp.NewTool("list-tasks-for-story",
		mcp.WithDescription("Lists all tasks for a story with their status."),
		mcp.WithNumber("storyId", mcp.Required(), mcp.Description("Story ID")),
	)
}

// Handle processes the list-tasks-for-story tool call.
func (t *ListTasksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	storyID, err := idArg(req, "storyId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	tasks, err := t.store.TasksForStory(ctx, storyID)
	if err != nil {
		return failure("list tasks", err), nil
	}
	if len(tasks) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No tasks found for story %d.", storyID)), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Tasks for Story %d:", storyID)
	for _, task := range tasks {
		fmt.Fprintf(&b, "\n  - Task %d (%s): %s", task.ID, task.Status, task.Description)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── TaskDetailsTool ────────────────────────────────────────────────────────

// TaskDetailsTool handles the get-task-details MCP tool.
type TaskDetailsTool struct {
	store *store.Store
}

// NewTaskDetailsTool creates a TaskDetailsTool.
func NewTaskDetailsTool(s *store.Store) *TaskDetailsTool {
	return &TaskDetailsTool{store: s}
}

// Definition returns the MCP tool definition for get-task-details.
func (t *TaskDetailsTool) Definition() mcp.Tool {
	return mcp.NewTool("get-task-details",
		mcp.WithDescription("Retrieves full details and history for a single task."),
		mcp.WithNumber("taskId", mcp.Required(), mcp.Description("Task ID")),
	)
}

// Handle processes the get-task-details tool call.
func (t *TaskDetailsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req, "taskId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	task, err := t.store.Task(ctx, id)
	if err != nil {
		return failure("load the task", err), nil
	}
	logs, err := t.store.TaskLogs(ctx, id)
	if err != nil {
		return failure("load the task history", err), nil
	}
	history := make([]historyLine, len(logs))
	for i, l := range logs {
		history[i] = historyLine{l.LogType, l.Timestamp, l.Summary, l.FilesEdited}
	}
	return mcp.NewToolResultText(formatDetails("Task", task.ID, task.Status, task.Description, history)), nil
}

// ─── StartWorkTool ──────────────────────────────────────────────────────────

// StartWorkTool handles the start-work-on-task MCP tool.
type StartWorkTool struct {
	store *store.Store
}

// NewStartWorkTool creates a StartWorkTool.
func NewStartWorkTool(s *store.Store) *StartWorkTool {
	return &StartWorkTool{store: s}
}

// Definition returns the MCP tool definition for start-work-on-task.
func (t *StartWorkTool) Definition() mcp.Tool {
	return mcp.NewTool("start-work-on-task",
		mcp.WithDescription(
			"Begins a work session for a task: marks it in progress, logs the start and opens a session. "+
				"Omit sessionId to have one generated; pass the returned id to record-task-result and flag-landmine.",
		),
		mcp.WithNumber("taskId", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("sessionId", mcp.Description("Session identifier (generated when omitted)")),
	)
}

// Handle processes the start-work-on-task tool call.
func (t *StartWorkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req, "taskId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	session := req.GetString("sessionId", "")
	minted := session == ""
	if minted {
		session = uuid.NewString()
	}

	if err := t.store.StartWork(ctx, id, session); err != nil {
		return failure("start work", err), nil
	}
	msg := fmt.Sprintf("Work started on task %d.", id)
	if minted {
		msg += fmt.Sprintf("\nSession ID: %s", session)
	}
	return mcp.NewToolResultText(msg), nil
}

// ─── RecordTaskResultTool ───────────────────────────────────────────────────

// RecordTaskResultTool handles the record-task-result MCP tool.
type RecordTaskResultTool struct {
	store *store.Store
}

// NewRecordTaskResultTool creates a RecordTaskResultTool.
func NewRecordTaskResultTool(s *store.Store) *RecordTaskResultTool {
	return &RecordTaskResultTool{store: s}
}

// Definition returns the MCP tool definition for record-task-result.
func (t *RecordTaskResultTool) Definition() mcp.Tool {
	return mcp.NewTool("record-task-result",
		mcp.WithDescription("Records the final result of an in-progress task, completing it and closing its session."),
		mcp.WithNumber("taskId", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("sessionId", mcp.Required(), mcp.Description("Session that did the work")),
		mcp.WithString("summary", mcp.Required(), mcp.Description("What was accomplished")),
		mcp.WithArray("filesEdited", mcp.WithStringItems(), mcp.Description("Files changed")),
	)
}

// Handle processes the record-task-result tool call.
func (t *RecordTaskResultTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req, "taskId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	session, err := requiredString(req, "sessionId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	summary, err := requiredString(req, "summary")
	if err != nil {
		return errorResult("%v", err), nil
	}
	edited, err := files(req)
	if err != nil {
		return errorResult("%v", err), nil
	}

	err = t.store.RecordTaskResult(ctx, store.TaskResult{TaskID: id, SessionID: session, Summary: summary, FilesEdited: edited})
	if err != nil {
		return failure("record the task result", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Result recorded for task %d.", id)), nil
}

// ─── GoldStandardTool ───────────────────────────────────────────────────────

// GoldStandardTool handles the set-gold-standard MCP tool.
type GoldStandardTool struct {
	store *store.Store
}

// NewGoldStandardTool creates a GoldStandardTool.
func NewGoldStandardTool(s *store.Store) *GoldStandardTool {
	return &GoldStandardTool{store: s}
}

// Definition returns the MCP tool definition for set-gold-standard.
func (t *GoldStandardTool) Definition() mcp.Tool {
	return mcp.NewTool("set-gold-standard",
		mcp.WithDescription("Marks a task as a gold standard: a success worth repeating."),
		mcp.WithNumber("taskId", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("commitHash", mcp.Required(), mcp.Description("Commit holding the work")),
		mcp.WithString("summary", mcp.Required(), mcp.Description("Why this is the pattern to follow")),
		mcp.WithArray("filesEdited", mcp.WithStringItems(), mcp.Description("Files involved")),
	)
}

// Handle processes the set-gold-standard tool call.
func (t *GoldStandardTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req, "taskId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	commit, err := requiredString(req, "commitHash")
	if err != nil {
		return errorResult("%v", err), nil
	}
	summary, err := requiredString(req, "summary")
	if err != nil {
		return errorResult("%v", err), nil
	}
	edited, err := files(req)
	if err != nil {
		return errorResult("%v", err), nil
	}

	if _, err := t.store.MarkGoldStandard(ctx, id, commit, summary, edited); err != nil {
		return failure("mark the gold standard", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Task %d marked as Gold Standard.", id)), nil
}
