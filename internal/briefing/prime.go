package briefing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adestefa/ccmem/internal/store"
)

// PrimeRequest holds the optional inputs of the prime report.
type PrimeRequest struct {
	Command          string
	StoryDescription string
	TaskID           int64
}

// SuggestTasks proposes a task breakdown from keywords in a story
// description. Unknown areas get no suggestions.
func SuggestTasks(description string) []string {
	d := strings.ToLower(description)
	var out []string
	if containsAny(d, "auth", "login") {
		out = append(out,
			"Design authentication database schema",
			"Implement login/logout API endpoints",
			"Create authentication forms UI",
			"Add session management middleware",
		)
	}
	if containsAny(d, "ui", "frontend") {
		out = append(out,
			"Create HTML templates and structure",
			"Implement responsive CSS styling",
			"Add JavaScript functionality",
		)
	}
	if containsAny(d, "api", "backend") {
		out = append(out,
			"Design API endpoints and routes",
			"Implement business logic",
			"Add database operations",
			"Write unit tests",
		)
	}
	return out
}

// PlannedStory is a story created from a description with its suggested
// tasks.
type PlannedStory struct {
	StoryID int64
	Tasks   []store.Task
}

// PlanStory creates a story and its suggested tasks in one transaction.
func (a *Assembler) PlanStory(ctx context.Context, description string) (*PlannedStory, error) {
	var p PlannedStory
	err := a.store.WithTx(ctx, func(tx *store.Tx) error {
		id, err := tx.CreateStory(ctx, description)
		if err != nil {
			return err
		}
		p = PlannedStory{StoryID: id}
		for _, desc := range SuggestTasks(description) {
			taskID, err := tx.CreateTask(ctx, id, desc)
			if err != nil {
				return err
			}
			p.Tasks = append(p.Tasks, store.Task{ID: taskID, StoryID: id, Description: desc, Status: store.TaskPending})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("story planned", "story_id", p.StoryID, "tasks", len(p.Tasks))
	return &p, nil
}

// Prime renders the planning report: recent landmines, where work left
// off, the trusted operations and the result of any command.
func (a *Assembler) Prime(ctx context.Context, req PrimeRequest) (string, error) {
	landmines, err := a.store.RecentLandmines(ctx, 3)
	if err != nil {
		return "", err
	}
	current, err := a.store.CurrentWork(ctx)
	if err != nil {
		return "", err
	}
	defects, err := a.store.RecentDefects(ctx, true, 3)
	if err != nil {
		return "", err
	}
	ops, err := a.store.Info(ctx, store.SectionOperations)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# 🧠 Prime Agent - Your Trusted AI Development Partner\n\n")

	if len(landmines) > 0 {
		b.WriteString("## 🚨 PRIME'S TRAUMA ALERTS (Recent Landmines)\n")
		b.WriteString("*⚡ These failures still hurt. I remember every one:*\n\n")
		for _, l := range landmines {
			fmt.Fprintf(&b, "**💥 Landmine #%d** - *%s*\n", l.ID, when(l.Timestamp))
			fmt.Fprintf(&b, "- **Pain Point**: %s...\n", truncate(l.ErrorContext, 100))
			fmt.Fprintf(&b, "- **Failed Attempts**: %s...\n", truncate(l.AttemptedFixes, 80))
			fmt.Fprintf(&b, "- **Task**: #%d - %s\n\n", l.TaskID, l.TaskDescription)
		}
		b.WriteString("⚠️ **I will be EXTRA PARANOID about these areas moving forward!**\n\n")
	}

	b.WriteString("## 📍 Current Context (Where We Left Off)\n")
	switch {
	case current != nil:
		session := "Unknown"
		if current.SessionID != nil {
			session = *current.SessionID
		}
		fmt.Fprintf(&b, "🔄 **Last Working Session**: Task #%d in Story #%d\n", current.ID, current.StoryID)
		fmt.Fprintf(&b, "📖 **Story**: %s\n", current.StoryMessage)
		fmt.Fprintf(&b, "🎯 **Task**: %s\n", current.Description)
		fmt.Fprintf(&b, "⏱️ **Session**: %s", session)
		if current.StartTime != nil {
			fmt.Fprintf(&b, ", started %s", when(*current.StartTime))
		}
		b.WriteString("\n\n*Ready to continue where we left off, but let me check for landmines first...*\n\n")
	case len(defects) > 0:
		fmt.Fprintf(&b, "🐛 **Open Defects Need Attention**: %d active issues\n\n", len(defects))
		for _, d := range defects {
			fmt.Fprintf(&b, "- **Defect #%d**: %s (Story #%d)\n", d.ID, d.Description, d.StoryID)
		}
		b.WriteString("\n*Should we fix these defects before starting new work?*\n\n")
	default:
		b.WriteString("✅ **Clean Slate**: No work in progress, ready for new challenges!\n\n")
	}

	b.WriteString("## ⚙️ Trusted Operations (My Battle-Tested Knowledge)\n")
	if len(ops) == 0 {
		b.WriteString("*No operations recorded yet. Teach me with `set-operation-info`.*\n\n")
	} else {
		b.WriteString("*I will NEVER suggest dangerous shortcuts:*\n\n")
		for _, o := range ops {
			fmt.Fprintf(&b, "- **%s**: `%s`\n", o.Key, o.Value)
		}
		b.WriteString("\n")
	}

	if req.Command != "" || req.StoryDescription != "" || req.TaskID > 0 {
		b.WriteString("## 🎯 Command Processing\n")
		if err := a.processCommand(ctx, &b, req); err != nil {
			return "", err
		}
	}

	b.WriteString("## 🛡️ Risk-Aware Recommendations\n")
	b.WriteString("*Based on our painful past experiences:*\n\n")
	if len(landmines) > 0 {
		b.WriteString("1. **⚠️ LANDMINE PARANOIA MODE**: I'm being extra cautious due to recent failures\n")
		b.WriteString("2. **🔍 Always check related risks** before touching similar code\n")
		b.WriteString("3. **🏆 Reference gold standards** for proven patterns\n")
	} else {
		b.WriteString("1. **✅ Landmine-free zone**: But I'm still staying vigilant\n")
		b.WriteString("2. **📋 Follow trusted operations** - no shortcuts!\n")
		b.WriteString("3. **🧪 Test everything** - better safe than sorry\n")
	}

	b.WriteString("\n## 💬 What would you like to do?\n")
	b.WriteString("*Tell me in natural language:*\n")
	b.WriteString("- \"Create a story about [description]\"\n")
	b.WriteString("- \"Continue task [number]\"\n")
	b.WriteString("- \"Fix defect [number]\"\n")
	b.WriteString("- \"Show me all stories\"\n")
	b.WriteString("- \"What should I work on next?\"\n")
	return b.String(), nil
}

func (a *Assembler) processCommand(ctx context.Context, b *strings.Builder, req PrimeRequest) error {
	if req.StoryDescription != "" {
		p, err := a.PlanStory(ctx, req.StoryDescription)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "✅ **Story Created**: #%d - %q\n\n", p.StoryID, req.StoryDescription)
		if len(p.Tasks) > 0 {
			b.WriteString("🤖 **Auto-Generated Task Breakdown**:\n")
			for _, t := range p.Tasks {
				fmt.Fprintf(b, "- Task #%d: %s\n", t.ID, t.Description)
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(b, "🚀 **Ready to start!** Use `/ccmem-boot %d` to begin work on this story.\n\n", p.StoryID)
	}

	if req.TaskID > 0 {
		t, err := a.store.Task(ctx, req.TaskID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			fmt.Fprintf(b, "❓ **Task #%d** does not exist.\n\n", req.TaskID)
		case err != nil:
			return err
		default:
			fmt.Fprintf(b, "🎯 **Task Focus**: Loading context for Task #%d - %s\n", t.ID, t.Description)
			fmt.Fprintf(b, "Use `/ccmem-dev %d` for detailed development context.\n\n", t.ID)
		}
	}

	cmd := strings.ToLower(req.Command)
	if containsAny(cmd, "list", "show") {
		stories, err := a.store.StorySummaries(ctx, 10)
		if err != nil {
			return err
		}
		b.WriteString("📋 **Recent Stories**:\n")
		for _, s := range stories {
			fmt.Fprintf(b, "- **Story #%d**: %s (%d tasks)\n", s.ID, s.Message, s.TaskCount)
		}
		b.WriteString("\n")
	}
	return nil
}
