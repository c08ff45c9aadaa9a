package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/adestefa/ccmem/internal/briefing"
	"github.com/adestefa/ccmem/internal/store"
)

// SummaryTool handles the get-full-project-summary MCP tool.
type SummaryTool struct {
	briefs *briefing.Assembler
}

// NewSummaryTool creates a SummaryTool.
func NewSummaryTool(b *briefing.Assembler) *SummaryTool {
	return &SummaryTool{briefs: b}
}

// Definition returns the MCP tool definition for get-full-project-summary.
func (t *SummaryTool) Definition() mcp.Tool {
	return mcp.NewTool("get-full-project-summary",
		mcp.WithDescription(
			"Retrieves a comprehensive summary of the project including architecture, "+
				"operations, testing, deployment, and metrics.",
		),
	)
}

// Handle processes the get-full-project-summary tool call.
func (t *SummaryTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := t.briefs.Summary(ctx)
	if err != nil {
		return failure("build the project summary", err), nil
	}
	return mcp.NewToolResultText(out), nil
}

// ─── InfoTool ───────────────────────────────────────────────────────────────

// infoTools maps each knowledge section to its setter tool name, the
// label used in the reply and the tool description.
var infoTools = map[store.Section]struct{ name, label, desc string }{
	store.SectionGeneral:      {"set-project-info", "project", "Sets a general project detail."},
	store.SectionArchitecture: {"set-architecture-info", "architecture", "Sets a key architectural fact."},
	store.SectionOperations:   {"set-operation-info", "operation", "Sets an operational detail."},
	store.SectionDeployment:   {"set-deployment-info", "deployment", "Sets a deployment detail."},
	store.SectionTesting:      {"set-testing-info", "testing", "Sets a testing detail."},
}

// InfoTool handles one of the set-*-info MCP tools.
type InfoTool struct {
	store   *store.Store
	section store.Section
}

// NewInfoTool creates the setter tool of a knowledge section.
func NewInfoTool(s *store.Store, section store.Section) *InfoTool {
	return &InfoTool{store: s, section: section}
}

// NewInfoTools creates the setter tools of every section.
func NewInfoTools(s *store.Store) []*InfoTool {
	out := make([]*InfoTool, 0, len(store.Sections))
	for _, sec := range store.Sections {
		out = append(out, NewInfoTool(s, sec))
	}
	return out
}

// Definition returns the MCP tool definition.
func (t *InfoTool) Definition() mcp.Tool {
	meta := infoTools[t.section]
	return mcp.NewTool(meta.name,
		mcp.WithDescription(meta.desc+" An existing key is overwritten."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Fact name (e.g. framework, start_command)")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Fact value")),
	)
}

// Handle processes the tool call.
func (t *InfoTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := requiredString(req, "key")
	if err != nil {
		return errorResult("%v", err), nil
	}
	value := req.GetString("value", "")

	if err := t.store.SetInfo(ctx, t.section, key, value); err != nil {
		return failure(fmt.Sprintf("set %s info", t.section), err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Set %s info: %s", infoTools[t.section].label, key)), nil
}
