package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/adestefa/ccmem/internal/metrics"
	"github.com/adestefa/ccmem/internal/risk"
	"github.com/adestefa/ccmem/internal/store"
)

// FlagLandmineTool handles the flag-landmine MCP tool.
type FlagLandmineTool struct {
	risks   *risk.Correlator
	metrics *metrics.Metrics
}

// NewFlagLandmineTool creates a FlagLandmineTool. m may be nil.
func NewFlagLandmineTool(c *risk.Correlator, m *metrics.Metrics) *FlagLandmineTool {
	return &FlagLandmineTool{risks: c, metrics: m}
}

// Definition returns the MCP tool definition for flag-landmine.
func (t *FlagLandmineTool) Definition() mcp.Tool {
	return mcp.NewTool("flag-landmine",
		mcp.WithDescription(
			"Flags a failure hit while working a task. Creates an immutable landmine report and "+
				"links it to every risk keyword, creating keywords seen for the first time. "+
				"Keywords match exactly: case and surrounding spaces count, and empty strings are ignored. "+
				"Nothing is stored if any part fails.",
		),
		mcp.WithNumber("taskId", mcp.Required(), mcp.Description("Task being worked")),
		mcp.WithString("sessionId", mcp.Required(), mcp.Description("Session that hit the failure")),
		mcp.WithString("errorContext", mcp.Required(), mcp.Description("What went wrong")),
		mcp.WithString("attemptedFixes", mcp.Required(), mcp.Description("What was tried")),
		mcp.WithArray("riskKeywords", mcp.Required(), mcp.WithStringItems(),
			mcp.Description("Areas this failure is a risk for (e.g. auth, migrations)")),
		mcp.WithArray("filesEdited", mcp.WithStringItems(), mcp.Description("Files involved")),
	)
}

// Handle processes the flag-landmine tool call.
func (t *FlagLandmineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := risk.Incident{}
	var err error
	if in.TaskID, err = idArg(req, "taskId"); err != nil {
		return errorResult("%v", err), nil
	}
	if in.SessionID, err = requiredString(req, "sessionId"); err != nil {
		return errorResult("%v", err), nil
	}
	if in.ErrorContext, err = presentString(req, "errorContext"); err != nil {
		return errorResult("%v", err), nil
	}
	in.AttemptedFixes = req.GetString("attemptedFixes", "")
	if in.Keywords, err = requiredStrings(req, "riskKeywords"); err != nil {
		return errorResult("%v", err), nil
	}
	if in.FilesEdited, err = files(req); err != nil {
		return errorResult("%v", err), nil
	}

	rec, err := t.risks.RecordLandmine(ctx, in)
	if err != nil {
		return failure("flag the landmine", err), nil
	}
	t.metrics.LandmineRecorded(len(rec.Created), len(rec.Updated))
	return mcp.NewToolResultText(risk.RecordedMessage(in.TaskID)), nil
}

// ─── FindRisksTool ──────────────────────────────────────────────────────────

// FindRisksTool handles the find-relevant-risks MCP tool.
type FindRisksTool struct {
	risks   *risk.Correlator
	metrics *metrics.Metrics
}

// NewFindRisksTool creates a FindRisksTool. m may be nil.
func NewFindRisksTool(c *risk.Correlator, m *metrics.Metrics) *FindRisksTool {
	return &FindRisksTool{risks: c, metrics: m}
}

// Definition returns the MCP tool definition for find-relevant-risks.
func (t *FindRisksTool) Definition() mcp.Tool {
	return mcp.NewTool("find-relevant-risks",
		mcp.WithDescription(
			"Finds landmines relevant to a term: every landmine linked to a risk keyword containing the term, "+
				"plus every landmine whose error context or attempted fixes contain it. Call before touching risky code.",
		),
		mcp.WithString("searchTerm", mcp.Required(), mcp.Description("Keyword or text to search for")),
	)
}

// Handle processes the find-relevant-risks tool call.
func (t *FindRisksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term := req.GetString("searchTerm", "")
	f, err := t.risks.FindRelevantRisks(ctx, term)
	switch {
	case err != nil:
		t.metrics.RiskSearch(metrics.SearchError)
		return failure("search risks", err), nil
	case f.Empty():
		t.metrics.RiskSearch(metrics.SearchNone)
	default:
		t.metrics.RiskSearch(metrics.SearchFound)
	}
	return mcp.NewToolResultText(risk.FormatFindings(f)), nil
}

// ─── LandmineDetailsTool ────────────────────────────────────────────────────

// LandmineDetailsTool handles the get-landmine-details MCP tool.
type LandmineDetailsTool struct {
	risks *risk.Correlator
}

// NewLandmineDetailsTool creates a LandmineDetailsTool.
func NewLandmineDetailsTool(c *risk.Correlator) *LandmineDetailsTool {
	return &LandmineDetailsTool{risks: c}
}

// Definition returns the MCP tool definition for get-landmine-details.
func (t *LandmineDetailsTool) Definition() mcp.Tool {
	return mcp.NewTool("get-landmine-details",
		mcp.WithDescription("Retrieves a specific landmine report by its ID."),
		mcp.WithNumber("landmineId", mcp.Required(), mcp.Description("Landmine ID")),
	)
}

// Handle processes the get-landmine-details tool call. An unknown id is
// an ordinary answer, not a tool error.
func (t *LandmineDetailsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req, "landmineId")
	if err != nil {
		return errorResult("%v", err), nil
	}
	l, err := t.risks.Landmine(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultText(risk.LandmineNotFound(id)), nil
	}
	if err != nil {
		return failure("load the landmine", err), nil
	}
	return mcp.NewToolResultText(risk.FormatLandmine(l)), nil
}
