package briefing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adestefa/ccmem/internal/store"
)

// Boot renders the working context of one story: its tasks by status,
// active defects, related risks, gold standards and the next step.
func (a *Assembler) Boot(ctx context.Context, storyID int64) (string, error) {
	s, err := a.store.Story(ctx, storyID)
	if err != nil {
		return "", err
	}
	tasks, err := a.store.TasksForStory(ctx, storyID)
	if err != nil {
		return "", err
	}
	defects, err := a.store.DefectsForStory(ctx, storyID)
	if err != nil {
		return "", err
	}
	risks, err := a.store.Risks(ctx)
	if err != nil {
		return "", err
	}
	gold, err := a.store.GoldStandards(ctx, goldLimit)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# 🚀 CCMem Boot - Story #%d Context\n\n", s.ID)
	b.WriteString("## 📖 Story Overview\n")
	fmt.Fprintf(&b, "**Story #%d**: %s\n", s.ID, s.Message)
	fmt.Fprintf(&b, "**Created**: %s\n\n", when(s.Timestamp))

	completed, inProgress, pending := byStatus(tasks)
	b.WriteString("## 🎯 Task Breakdown\n")
	if len(tasks) == 0 {
		fmt.Fprintf(&b, "No tasks found for this story. Use `create-task storyId=%d description=\"task description\"` to add tasks.\n\n", s.ID)
	} else {
		fmt.Fprintf(&b, "**Progress**: %d/%d tasks completed\n\n", len(completed), len(tasks))
		for _, group := range []struct {
			title string
			tasks []store.Task
		}{
			{"### ✅ Completed Tasks", completed},
			{"### 🔄 In Progress Tasks", inProgress},
			{"### ⏳ Pending Tasks", pending},
		} {
			if len(group.tasks) == 0 {
				continue
			}
			b.WriteString(group.title + "\n")
			writeTaskLines(&b, group.tasks)
			b.WriteString("\n")
		}
	}

	var open []store.Defect
	for _, d := range defects {
		if d.Status != store.DefectResolved {
			open = append(open, d)
		}
	}
	if len(open) > 0 {
		b.WriteString("## 🐛 Active Defects\n")
		for _, d := range open {
			fmt.Fprintf(&b, "- Defect #%d (%s): %s\n", d.ID, d.Status, d.Description)
		}
		b.WriteString("\n")
	}

	if len(tasks) > 0 {
		descs := make([]string, len(tasks))
		for i, t := range tasks {
			descs[i] = t.Description
		}
		if related := relevantRisks(risks, strings.Join(descs, " "), "auth", "ui", "database"); len(related) > 0 {
			b.WriteString("## ⚠️ Related Risks & Landmines\n")
			for _, r := range related {
				fmt.Fprintf(&b, "- **%s**: %s\n", r.Keyword, r.Description)
			}
			b.WriteString("\n")
		}
	}

	if len(gold) > 0 {
		b.WriteString("## 🏆 Success Patterns (Gold Standards)\n")
		writeGold(&b, gold)
		b.WriteString("\n")
	}

	b.WriteString("## 🎯 Recommended Next Actions\n")
	switch {
	case len(inProgress) > 0:
		t := inProgress[0]
		fmt.Fprintf(&b, "1. **Continue Task #%d**: %s\n", t.ID, t.Description)
		fmt.Fprintf(&b, "   - Use `/ccmem-dev %d` for focused development context\n", t.ID)
	case len(pending) > 0:
		t := pending[0]
		fmt.Fprintf(&b, "1. **Start Task #%d**: %s\n", t.ID, t.Description)
		fmt.Fprintf(&b, "   - Use `start-work-on-task taskId=%d` to open a session\n", t.ID)
		fmt.Fprintf(&b, "   - Use `/ccmem-dev %d` for development context\n", t.ID)
	default:
		b.WriteString("1. **Create new tasks**: Use `create-task` to break down remaining work\n")
	}
	b.WriteString("2. **Check risks**: Review related landmines before starting work\n")
	b.WriteString("3. **Reference gold standards**: Apply proven patterns from successful tasks\n")
	return b.String(), nil
}

// List filters.
const (
	FilterStories   = "stories"
	FilterTasks     = "tasks"
	FilterDefects   = "defects"
	FilterLandmines = "landmines"
)

// ListRequest selects what List shows. A StoryID wins over Filter; an
// empty Filter lists stories.
type ListRequest struct {
	StoryID int64
	Filter  string
}

// List renders one story in detail or an overview selected by filter,
// followed by the project tallies.
func (a *Assembler) List(ctx context.Context, req ListRequest) (string, error) {
	var b strings.Builder
	b.WriteString("# 📋 CCMem List - Project Overview\n\n")

	var err error
	switch {
	case req.StoryID > 0:
		var found bool
		found, err = a.listStory(ctx, &b, req.StoryID)
		if err == nil && !found {
			return fmt.Sprintf("❌ Story #%d not found.", req.StoryID), nil
		}
	case req.Filter == "" || req.Filter == FilterStories:
		err = a.listStories(ctx, &b)
	case req.Filter == FilterTasks:
		err = a.listTasks(ctx, &b)
	case req.Filter == FilterDefects:
		err = a.listDefects(ctx, &b)
	case req.Filter == FilterLandmines:
		err = a.listLandmines(ctx, &b)
	default:
		fmt.Fprintf(&b, "*Unknown filter %q.*\n", req.Filter)
	}
	if err != nil {
		return "", err
	}

	n, err := a.store.Counts(ctx)
	if err != nil {
		return "", err
	}
	b.WriteString("\n---\n## 📊 Project Summary\n")
	fmt.Fprintf(&b, "📚 **Stories**: %d total\n", n.Stories)
	fmt.Fprintf(&b, "🎯 **Tasks**: %d/%d completed\n", n.CompletedTasks, n.Tasks)
	fmt.Fprintf(&b, "🐛 **Open Defects**: %d\n", n.OpenDefects)
	fmt.Fprintf(&b, "💥 **Landmines**: %d (lessons learned)\n", n.Landmines)

	b.WriteString("\n### 🔍 Filter Options:\n")
	b.WriteString("- `/ccmem-list` - All stories (default)\n")
	b.WriteString("- `/ccmem-list <storyId>` - Detailed story breakdown\n")
	b.WriteString("- `/ccmem-list tasks` - All tasks by status\n")
	b.WriteString("- `/ccmem-list defects` - All defects and issues\n")
	b.WriteString("- `/ccmem-list landmines` - Painful failures and lessons\n")
	return b.String(), nil
}

func (a *Assembler) listStory(ctx context.Context, b *strings.Builder, id int64) (bool, error) {
	s, err := a.store.Story(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	tasks, err := a.store.TasksForStory(ctx, id)
	if err != nil {
		return false, err
	}
	defects, err := a.store.DefectsForStory(ctx, id)
	if err != nil {
		return false, err
	}

	fmt.Fprintf(b, "## 📖 Story #%d: %s\n", s.ID, s.Message)
	fmt.Fprintf(b, "**Created**: %s\n\n", when(s.Timestamp))

	completed, inProgress, pending := byStatus(tasks)
	fmt.Fprintf(b, "### 🎯 Tasks (%d/%d completed)\n", len(completed), len(tasks))
	for _, group := range []struct {
		title string
		tasks []store.Task
	}{
		{"**✅ Completed:**", completed},
		{"**🔄 In Progress:**", inProgress},
		{"**⏳ Pending:**", pending},
	} {
		if len(group.tasks) == 0 {
			continue
		}
		b.WriteString("\n" + group.title + "\n")
		writeTaskLines(b, group.tasks)
	}

	if len(defects) > 0 {
		fmt.Fprintf(b, "\n### 🐛 Defects (%d total)\n", len(defects))
		for _, d := range defects {
			fmt.Fprintf(b, "- %s **Defect #%d** (%s): %s\n", defectMark(d.Status), d.ID, d.Status, d.Description)
		}
	}
	return true, nil
}

func (a *Assembler) listStories(ctx context.Context, b *strings.Builder) error {
	stories, err := a.store.StorySummaries(ctx, 20)
	if err != nil {
		return err
	}
	b.WriteString("## 📚 All Stories\n")
	if len(stories) == 0 {
		b.WriteString("*No stories yet. Use `/ccmem-prime` with a story description to create one!*\n\n")
	}
	for _, s := range stories {
		progress := 0
		if s.TaskCount > 0 {
			progress = (s.CompletedTasks*100 + s.TaskCount/2) / s.TaskCount
		}
		fmt.Fprintf(b, "\n**Story #%d**: %s\n", s.ID, s.Message)
		fmt.Fprintf(b, "- 📊 Progress: [%s] %d%% (%d/%d tasks)\n", progressBar(progress), progress, s.CompletedTasks, s.TaskCount)
		if s.InProgressTasks > 0 {
			fmt.Fprintf(b, "- 🔄 In Progress: %d tasks\n", s.InProgressTasks)
		}
		if s.OpenDefects > 0 {
			fmt.Fprintf(b, "- 🐛 Open Defects: %d\n", s.OpenDefects)
		}
		fmt.Fprintf(b, "- 📅 Created: %s\n", when(s.Timestamp))
	}
	b.WriteString("\n*Use `/ccmem-list <storyId>` to see detailed story breakdown*\n")
	return nil
}

func (a *Assembler) listTasks(ctx context.Context, b *strings.Builder) error {
	tasks, err := a.store.RecentTasks(ctx, 30)
	if err != nil {
		return err
	}
	b.WriteString("## 🎯 All Tasks\n")
	if len(tasks) == 0 {
		b.WriteString("*No tasks yet. Create stories first, then break them down into tasks.*\n")
		return nil
	}
	for _, group := range []struct {
		status, title string
	}{
		{store.TaskCompleted, "✅ Completed"},
		{store.TaskInProgress, "🔄 In progress"},
		{store.TaskPending, "⏳ Pending"},
	} {
		var matched []store.TaskView
		for _, t := range tasks {
			if t.Status == group.status {
				matched = append(matched, t)
			}
		}
		if len(matched) == 0 {
			continue
		}
		fmt.Fprintf(b, "\n### %s (%d)\n", group.title, len(matched))
		for i, t := range matched {
			if i == 10 {
				break
			}
			fmt.Fprintf(b, "- **Task #%d** (Story #%d): %s\n", t.ID, t.StoryID, t.Description)
		}
	}
	return nil
}

func (a *Assembler) listDefects(ctx context.Context, b *strings.Builder) error {
	defects, err := a.store.RecentDefects(ctx, false, 20)
	if err != nil {
		return err
	}
	b.WriteString("## 🐛 All Defects\n")
	if len(defects) == 0 {
		b.WriteString("*No defects recorded yet. That's good news! 🎉*\n")
		return nil
	}
	var open, resolved []store.DefectView
	for _, d := range defects {
		if d.Status == store.DefectResolved {
			resolved = append(resolved, d)
		} else {
			open = append(open, d)
		}
	}
	if len(open) > 0 {
		fmt.Fprintf(b, "\n### 🔴 Open Defects (%d)\n", len(open))
		for _, d := range open {
			fmt.Fprintf(b, "- %s **Defect #%d** (%s): %s\n", defectMark(d.Status), d.ID, d.Status, d.Description)
			fmt.Fprintf(b, "  - Story #%d: %s\n", d.StoryID, d.StoryMessage)
		}
	}
	if len(resolved) > 0 {
		fmt.Fprintf(b, "\n### ✅ Recently Resolved (%d)\n", len(resolved))
		for i, d := range resolved {
			if i == 5 {
				break
			}
			fmt.Fprintf(b, "- **Defect #%d**: %s (Story #%d)\n", d.ID, d.Description, d.StoryID)
		}
	}
	return nil
}

func (a *Assembler) listLandmines(ctx context.Context, b *strings.Builder) error {
	landmines, err := a.store.RecentLandmines(ctx, 15)
	if err != nil {
		return err
	}
	b.WriteString("## 💥 Landmine History (Learn from Pain)\n")
	if len(landmines) == 0 {
		b.WriteString("*No landmines yet.*\n")
		return nil
	}
	b.WriteString("*These are the painful failures that taught us valuable lessons:*\n\n")
	for _, l := range landmines {
		fmt.Fprintf(b, "**💥 Landmine #%d** - *%s*\n", l.ID, when(l.Timestamp))
		fmt.Fprintf(b, "- **Context**: %s...\n", truncate(l.ErrorContext, 120))
		fmt.Fprintf(b, "- **Failed Attempts**: %s...\n", truncate(l.AttemptedFixes, 100))
		fmt.Fprintf(b, "- **Task**: #%d - %s\n", l.TaskID, l.TaskDescription)
		fmt.Fprintf(b, "- **Story**: #%d - %s\n\n", l.StoryID, l.StoryMessage)
	}
	b.WriteString("*💡 These landmines make Prime extra cautious in related areas!*\n")
	return nil
}

func defectMark(status string) string {
	switch status {
	case store.DefectResolved:
		return "✅"
	case store.DefectInProgress:
		return "🔄"
	default:
		return "🔴"
	}
}

// progressBar draws a ten-cell bar for a 0-100 percentage.
func progressBar(percent int) string {
	filled := percent / 10
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}
