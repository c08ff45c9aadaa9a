package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/adestefa/ccmem/internal/store"
)

// CreateDefectTool handles the create-defect MCP tool.
type CreateDefectTool struct {
	store *store.Store
}

// NewCreateDefectTool creates a CreateDefectTool.
func NewCreateDefectTool(s *store.Store) *CreateDefectTool {
	return &CreateDefectTool{store: s}
}

// Definition returns the MCP tool definition for create-defect.
func (t *CreateDefectTool) Definition() mcp.Tool {
	return mcp.NewTool("create-defect",
		mcp.WithDescription("Logs a new defect related to a story and optionally a task."),
		mcp.WithNumber("storyId", mcp.Required(), mcp.Description("Story the defect belongs to")),
		mcp.WithNumber("taskId", mcp.Description("Task that introduced it, if known")),
		mcp.WithString("description", mcp.Required(), mcp.Description("What is wrong")),
	)
}

// Handle processes the create-defect tool call.
func (t *CreateDefectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	storyID, err := idArg(req, "storyId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	desc, err := requiredString(req, "description")
	if err != nil {
		return errorResult("%v", err), nil
	}
	p := store.DefectParams{StoryID: storyID, Description: desc}
	taskID, ok, err := optIDArg(req, "taskId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	if ok {
		p.TaskID = &taskID
	}

	id, err := t.store.CreateDefect(ctx, p)
	if err != nil {
		return failure("create the defect", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created defect ID: %d for story %d.", id, storyID)), nil
}

// ─── ListDefectsTool ────────────────────────────────────────────────────────

// ListDefectsTool handles the list-defects-for-story MCP tool.
type ListDefectsTool struct {
	store *store.Store
}

// NewListDefectsTool creates a ListDefectsTool.
func NewListDefectsTool(s *store.Store) *ListDefectsTool {
	return &ListDefectsTool{store: s}
}

// Definition returns the MCP tool definition for list-defects-for-story.
func (t *ListDefectsTool) Definition() mcp.Tool {
	return mcp.NewTool("list-defects-for-story",
		mcp.WithDescription("Lists all defects for a specific story."),
		mcp.WithNumber("storyId", mcp.Required(), mcp.Description("Story ID")),
	)
}

// Handle processes the list-defects-for-story tool call.
func (t *ListDefectsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	storyID, err := idArg(req, "storyId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	defects, err := t.store.DefectsForStory(ctx, storyID)
	if err != nil {
		return failure("list defects", err), nil
	}
	if len(defects) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No defects found for story %d.", storyID)), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Defects for Story %d:", storyID)
	for _, d := range defects {
		fmt.Fprintf(&b, "\n  - Defect %d (%s): %s", d.ID, d.Status, d.Description)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── DefectDetailsTool ──────────────────────────────────────────────────────

// DefectDetailsTool handles the get-defect-details MCP tool.
type DefectDetailsTool struct {
	store *store.Store
}

// NewDefectDetailsTool creates a DefectDetailsTool.
func NewDefectDetailsTool(s *store.Store) *DefectDetailsTool {
	return &DefectDetailsTool{store: s}
}

// Definition returns the MCP tool definition for get-defect-details.
func (t *DefectDetailsTool) Definition() mcp.Tool {
	return mcp.NewTool("get-defect-details",
		mcp.WithDescription("Retrieves full details and history for a single defect."),
		mcp.WithNumber("defectId", mcp.Required(), mcp.Description("Defect ID")),
	)
}

// Handle processes the get-defect-details tool call.
func (t *DefectDetailsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req, "defectId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	d, err := t.store.Defect(ctx, id)
	if err != nil {
		return failure("load the defect", err), nil
	}
	logs, err := t.store.DefectLogs(ctx, id)
	if err != nil {
		return failure("load the defect history", err), nil
	}
	history := make([]historyLine, len(logs))
	for i, l := range logs {
		history[i] = historyLine{l.LogType, l.Timestamp, l.Summary, l.FilesEdited}
	}
	return mcp.NewToolResultText(formatDetails("Defect", d.ID, d.Status, d.Description, history)), nil
}

// ─── RecordDefectResultTool ─────────────────────────────────────────────────

// RecordDefectResultTool handles the record-defect-result MCP tool.
type RecordDefectResultTool struct {
	store *store.Store
}

// NewRecordDefectResultTool creates a RecordDefectResultTool.
func NewRecordDefectResultTool(s *store.Store) *RecordDefectResultTool {
	return &RecordDefectResultTool{store: s}
}

// Definition returns the MCP tool definition for record-defect-result.
func (t *RecordDefectResultTool) Definition() mcp.Tool {
	return mcp.NewTool("record-defect-result",
		mcp.WithDescription("Records the fix of a defect and marks it resolved."),
		mcp.WithNumber("defectId", mcp.Required(), mcp.Description("Defect ID")),
		mcp.WithString("summary", mcp.Required(), mcp.Description("How it was fixed")),
		mcp.WithArray("filesEdited", mcp.WithStringItems(), mcp.Description("Files changed")),
	)
}

// Handle processes the record-defect-result tool call.
func (t *RecordDefectResultTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req, "defectId")
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
	if err := t.store.RecordDefectResult(ctx, id, summary, edited); err != nil {
		return failure("record the defect result", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Result recorded for defect %d.", id)), nil
}
