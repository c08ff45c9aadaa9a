// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it builds the correlator and assemblers
// over the store and injects them into the tools, prompts and resources.
// No business logic lives here, only wiring.
package server

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/adestefa/ccmem/internal/briefing"
	"github.com/adestefa/ccmem/internal/config"
	"github.com/adestefa/ccmem/internal/metrics"
	"github.com/adestefa/ccmem/internal/prompts"
	"github.com/adestefa/ccmem/internal/resources"
	"github.com/adestefa/ccmem/internal/risk"
	"github.com/adestefa/ccmem/internal/store"
	"github.com/adestefa/ccmem/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Options tune New.
type Options struct {
	// Metrics receives tool and risk instrumentation; nil disables it.
	Metrics *metrics.Metrics
	// Dashboard reports whether the HTTP dashboard runs alongside.
	Dashboard bool
	// ProjectDir is inspected by ccmem-init; empty means the working
	// directory.
	ProjectDir string
}

// New creates the MCP server with every tool, prompt and resource
// registered against s.
func New(cfg config.Config, s *store.Store, opts Options) *server.MCPServer {
	// --- Create shared dependencies ---

	correlator := risk.New(risk.FromStore(s))
	briefs := briefing.New(s, correlator)
	m := opts.Metrics

	dashboardURL := ""
	if opts.Dashboard {
		dashboardURL = cfg.DashboardURL()
	}

	// --- Create the MCP server ---

	srv := server.NewMCPServer(
		"ccmem",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	add := func(t tools.Tool) {
		def := t.Definition()
		srv.AddTool(def, instrument(m, def.Name, t.Handle))
	}

	// --- Project knowledge ---

	add(tools.NewSummaryTool(briefs))
	for _, t := range tools.NewInfoTools(s) {
		add(t)
	}

	// --- Stories, tasks and sessions ---

	add(tools.NewWriteStoryTool(s))
	add(tools.NewCreateTaskTool(s))
	add(tools.NewListTasksTool(s))
	add(tools.NewTaskDetailsTool(s))
	add(tools.NewStartWorkTool(s))
	add(tools.NewRecordTaskResultTool(s))
	add(tools.NewGoldStandardTool(s))

	// --- Defects ---

	add(tools.NewCreateDefectTool(s))
	add(tools.NewListDefectsTool(s))
	add(tools.NewDefectDetailsTool(s))
	add(tools.NewRecordDefectResultTool(s))

	// --- Risk correlation ---

	add(tools.NewFlagLandmineTool(correlator, m))
	add(tools.NewFindRisksTool(correlator, m))
	add(tools.NewLandmineDetailsTool(correlator))

	// --- Briefings ---

	add(tools.NewInitTool(briefs, opts.ProjectDir))
	add(tools.NewPrimeTool(briefs))
	add(tools.NewBootTool(briefs))
	add(tools.NewDevTool(briefs))
	add(tools.NewQATool(briefs))
	add(tools.NewDocTool(briefs))
	add(tools.NewListTool(briefs))

	// --- Learned facts ---

	add(tools.NewLearnTool(s))
	add(tools.NewRecallTool(s))

	// --- System ---

	add(tools.NewRefreshDashboardTool(s, dashboardURL))
	add(tools.NewTestTool())

	// --- Register prompts ---

	startPrompt := prompts.NewStartPrompt()
	srv.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	srv.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(s, correlator)
	srv.AddResource(resourceHandler.SummaryResource(), resourceHandler.HandleSummary)
	srv.AddResource(resourceHandler.RisksResource(), resourceHandler.HandleRisks)

	return srv
}

// instrument times a tool handler and counts its outcome.
func instrument(m *metrics.Metrics, name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	if m == nil {
		return h
	}
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := h(ctx, req)
		outcome := metrics.OutcomeOK
		switch {
		case err != nil:
			outcome = metrics.OutcomeFailure
		case res != nil && res.IsError:
			outcome = metrics.OutcomeToolError
		}
		m.ObserveTool(name, outcome, time.Since(start))
		return res, err
	}
}

func serverInstructions() string {
	return `You have access to ccmem, a project memory for AI-assisted development.

ccmem remembers stories, tasks, defects and sessions across conversations, and
above all it remembers what went wrong: every failure flagged as a landmine is
linked to the risk keywords it is a danger for, so the next session can find
it before repeating it.

## START OF SESSION

1. Run ccmem-prime. Read the trauma alerts (recent landmines) first.
2. If the user names a story, run ccmem-boot with its id.
3. Before working a task, run ccmem-dev with its id.

## BEFORE TOUCHING RISKY CODE

Run find-relevant-risks with the area you are about to change (auth,
migrations, payments, a module name). A match returns landmine ids; read them
with get-landmine-details before you start.

## WHEN SOMETHING FAILS

Run flag-landmine with:
- taskId and sessionId of the current work
- errorContext: what went wrong, concretely
- attemptedFixes: what you tried, including what did not work
- riskKeywords: every area this failure is a risk for

Flagging is atomic: the landmine, the task log entry and every keyword link
are stored together or not at all.

## WORK TRACKING

- write-story, create-task to plan; ccmem-prime with storyDescription plans a
  story with suggested tasks in one step.
- start-work-on-task opens a session (an id is generated when omitted).
- record-task-result closes it with a summary and the files edited.
- create-defect and record-defect-result track bugs.
- set-gold-standard marks a finished task as the pattern to follow.

## PROJECT KNOWLEDGE

- ccmem-init seeds knowledge from a YAML profile or the project's build files.
- set-project-info, set-architecture-info, set-operation-info,
  set-deployment-info, set-testing-info record key/value facts.
- ccmem-prime-learn extracts facts from text or a markdown file;
  ccmem-recall-facts retrieves them.

## HEALTH

ccmem-doc audits the memory: integrity, risk entries that point at deleted
landmines, activity, top risks and a health score. ccmem-list gives overviews.`
}
