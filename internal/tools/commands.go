package tools

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/adestefa/ccmem/internal/briefing"
	"github.com/adestefa/ccmem/internal/store"
)

// InitTool handles the ccmem-init MCP tool.
type InitTool struct {
	briefs *briefing.Assembler
	dir    string
}

// NewInitTool creates an InitTool. dir is the project root inspected when
// no profile is given; empty means the working directory.
func NewInitTool(b *briefing.Assembler, dir string) *InitTool {
	return &InitTool{briefs: b, dir: dir}
}

// Definition returns the MCP tool definition for ccmem-init.
func (t *InitTool) Definition() mcp.Tool {
	return mcp.NewTool("ccmem-init",
		mcp.WithDescription(
			"Seeds project knowledge (general, architecture, operations, deployment, testing). "+
				"Reads a YAML profile when given, otherwise detects what it can from the project root.",
		),
		mcp.WithString("profile", mcp.Description("Path to a YAML profile with one key/value list per section")),
		mcp.WithBoolean("scanFiles", mcp.Description("Detect the stack from build files in the project root (default: true)")),
	)
}

// Handle processes the ccmem-init tool call.
func (t *InitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p *briefing.Profile
	if path := req.GetString("profile", ""); path != "" {
		var err error
		if p, err = briefing.LoadProfile(path); err != nil {
			return errorResult("%v", err), nil
		}
	} else {
		dir := t.dir
		if dir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return errorResult("resolving project root: %v", err), nil
			}
			dir = wd
		}
		if boolArg(req, "scanFiles", true) {
			p = briefing.DefaultProfile(dir)
		} else {
			p = &briefing.Profile{General: []store.KeyValue{{Key: "name", Value: filepath.Base(dir)}}}
		}
	}

	out, err := t.briefs.Init(ctx, p)
	if err != nil {
		return failure("initialize the project", err), nil
	}
	return mcp.NewToolResultText(out), nil
}

// ─── PrimeTool ──────────────────────────────────────────────────────────────

// PrimeTool handles the ccmem-prime MCP tool.
type PrimeTool struct {
	briefs *briefing.Assembler
}

// NewPrimeTool creates a PrimeTool.
func NewPrimeTool(b *briefing.Assembler) *PrimeTool {
	return &PrimeTool{briefs: b}
}

// Definition returns the MCP tool definition for ccmem-prime.
func (t *PrimeTool) Definition() mcp.Tool {
	return mcp.NewTool("ccmem-prime",
		mcp.WithDescription(
			"Start-of-session briefing: recent landmines first, then where work left off, trusted operations "+
				"and recommendations. Optionally plans a new story with suggested tasks or focuses on a task.",
		),
		mcp.WithString("command", mcp.Description("Natural-language command, e.g. 'list stories'")),
		mcp.WithString("storyDescription", mcp.Description("Create a story from this description with suggested tasks")),
		mcp.WithNumber("taskId", mcp.Description("Task to focus on")),
	)
}

// Handle processes the ccmem-prime tool call.
func (t *PrimeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, _, err := optIDArg(req, "taskId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	out, err := t.briefs.Prime(ctx, briefing.PrimeRequest{
		Command:          req.GetString("command", ""),
		StoryDescription: req.GetString("storyDescription", ""),
		TaskID:           taskID,
	})
	if err != nil {
		return failure("prepare the briefing", err), nil
	}
	return mcp.NewToolResultText(out), nil
}

// ─── BootTool ───────────────────────────────────────────────────────────────

// BootTool handles the ccmem-boot MCP tool.
type BootTool struct {
	briefs *briefing.Assembler
}

// NewBootTool creates a BootTool.
func NewBootTool(b *briefing.Assembler) *BootTool {
	return &BootTool{briefs: b}
}

// Definition returns the MCP tool definition for ccmem-boot.
func (t *BootTool) Definition() mcp.Tool {
	return mcp.NewTool("ccmem-boot",
		mcp.WithDescription("Loads the full context of a story: progress, tasks by status, defects, related risks and next actions."),
		mcp.WithNumber("storyId", mcp.Required(), mcp.Description("Story ID")),
	)
}

// Handle processes the ccmem-boot tool call.
func (t *BootTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req, "storyId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	out, err := t.briefs.Boot(ctx, id)
	if err != nil {
		return failure("load the story context", err), nil
	}
	return mcp.NewToolResultText(out), nil
}

// ─── DevTool / QATool ───────────────────────────────────────────────────────

// DevTool handles the ccmem-dev MCP tool.
type DevTool struct {
	briefs *briefing.Assembler
}

// NewDevTool creates a DevTool.
func NewDevTool(b *briefing.Assembler) *DevTool {
	return &DevTool{briefs: b}
}

// Definition returns the MCP tool definition for ccmem-dev.
func (t *DevTool) Definition() mcp.Tool {
	return mcp.NewTool("ccmem-dev",
		mcp.WithDescription("Development context for a task: environment, architecture, risks, gold standards and a checklist."),
		mcp.WithNumber("taskId", mcp.Required(), mcp.Description("Task ID")),
	)
}

// Handle processes the ccmem-dev tool call.
func (t *DevTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req, "taskId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	out, err := t.briefs.Dev(ctx, id)
	if err != nil {
		return failure("load the development context", err), nil
	}
	return mcp.NewToolResultText(out), nil
}

// QATool handles the ccmem-qa MCP tool.
type QATool struct {
	briefs *briefing.Assembler
}

// NewQATool creates a QATool.
func NewQATool(b *briefing.Assembler) *QATool {
	return &QATool{briefs: b}
}

// Definition returns the MCP tool definition for ccmem-qa.
func (t *QATool) Definition() mcp.Tool {
	return mcp.NewTool("ccmem-qa",
		mcp.WithDescription("Quality assurance context for a task: changes made, testing strategy, risk areas and quality gates."),
		mcp.WithNumber("taskId", mcp.Required(), mcp.Description("Task ID")),
	)
}

// Handle processes the ccmem-qa tool call.
func (t *QATool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req, "taskId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	out, err := t.briefs.QA(ctx, id)
	if err != nil {
		return failure("load the QA context", err), nil
	}
	return mcp.NewToolResultText(out), nil
}

// ─── DocTool / ListTool ─────────────────────────────────────────────────────

// DocTool handles the ccmem-doc MCP tool.
type DocTool struct {
	briefs *briefing.Assembler
}

// NewDocTool creates a DocTool.
func NewDocTool(b *briefing.Assembler) *DocTool {
	return &DocTool{briefs: b}
}

// Definition returns the MCP tool definition for ccmem-doc.
func (t *DocTool) Definition() mcp.Tool {
	return mcp.NewTool("ccmem-doc",
		mcp.WithDescription(
			"Audits the project memory: counts, tracked file changes, integrity (including risk entries "+
				"pointing at missing landmines), recent activity, top risks and a health score.",
		),
	)
}

// Handle processes the ccmem-doc tool call.
func (t *DocTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := t.briefs.Doc(ctx)
	if err != nil {
		return failure("audit the project memory", err), nil
	}
	return mcp.NewToolResultText(out), nil
}

// ListTool handles the ccmem-list MCP tool.
type ListTool struct {
	briefs *briefing.Assembler
}

// NewListTool creates a ListTool.
func NewListTool(b *briefing.Assembler) *ListTool {
	return &ListTool{briefs: b}
}

// Definition returns the MCP tool definition for ccmem-list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("ccmem-list",
		mcp.WithDescription("Lists stories, tasks, defects or landmines, or one story in detail."),
		mcp.WithNumber("storyId", mcp.Description("Show this story in detail")),
		mcp.WithString("filter",
			mcp.Description("What to list when no story is given"),
			mcp.Enum(briefing.FilterStories, briefing.FilterTasks, briefing.FilterDefects, briefing.FilterLandmines),
		),
	)
}

// Handle processes the ccmem-list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	storyID, _, err := optIDArg(req, "storyId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	out, err := t.briefs.List(ctx, briefing.ListRequest{
		StoryID: storyID,
		Filter:  req.GetString("filter", ""),
	})
	if err != nil {
		return failure("list project records", err), nil
	}
	return mcp.NewToolResultText(out), nil
}
