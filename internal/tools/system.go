package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/adestefa/ccmem/internal/store"
)

// RefreshDashboardTool handles the refresh-dashboard MCP tool.
type RefreshDashboardTool struct {
	store *store.Store
	url   string
}

// NewRefreshDashboardTool creates a RefreshDashboardTool. url is where
// the dashboard is served; empty means it is not running.
func NewRefreshDashboardTool(s *store.Store, url string) *RefreshDashboardTool {
	return &RefreshDashboardTool{store: s, url: url}
}

// Definition returns the MCP tool definition for refresh-dashboard.
func (t *RefreshDashboardTool) Definition() mcp.Tool {
	return mcp.NewTool("refresh-dashboard",
		mcp.WithDescription("Reports where the dashboard is served and the metrics it currently shows."),
	)
}

// Handle processes the refresh-dashboard tool call.
func (t *RefreshDashboardTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := t.store.Counts(ctx)
	if err != nil {
		return failure("read dashboard metrics", err), nil
	}

	var b strings.Builder
	if t.url == "" {
		b.WriteString("ℹ️ The dashboard is not running. Start it with `ccmem serve --dashboard` or `ccmem dashboard`.\n\n")
	} else {
		fmt.Fprintf(&b, "✅ Dashboard data is live at %s\n\n", t.url)
	}
	b.WriteString("📊 Current metrics:\n")
	fmt.Fprintf(&b, "- Stories: %d\n", n.Stories)
	fmt.Fprintf(&b, "- Tasks: %d (%d pending, %d in progress, %d completed)\n",
		n.Tasks, n.PendingTasks, n.InProgressTasks, n.CompletedTasks)
	fmt.Fprintf(&b, "- Defects: %d (%d open)\n", n.Defects, n.OpenDefects)
	fmt.Fprintf(&b, "- Landmines: %d across %d risk keywords\n", n.Landmines, n.Risks)
	fmt.Fprintf(&b, "- Backlog items: %d\n", n.BacklogItems)
	b.WriteString("\n💡 Prime can now answer questions about the kanban board based on current CCMem data.")
	return mcp.NewToolResultText(b.String()), nil
}

// TestTool handles the test MCP tool.
type TestTool struct{}

// NewTestTool creates a TestTool.
func NewTestTool() *TestTool { return &TestTool{} }

// Definition returns the MCP tool definition for test.
func (t *TestTool) Definition() mcp.Tool {
	return mcp.NewTool("test", mcp.WithDescription("A simple test tool."))
}

// Handle processes the test tool call.
func (t *TestTool) Handle(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("Test successful!"), nil
}
