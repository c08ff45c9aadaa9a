package briefing

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Health is the overall record-keeping score shown at the end of Doc.
type Health struct {
	Score  int
	Issues int
}

// HealthScore rates the store by how many integrity issues it carries
// relative to its task count.
func HealthScore(tasks, issues int) Health {
	denom := tasks
	if denom < 1 {
		denom = 1
	}
	score := int(math.Round(float64(tasks-issues) / float64(denom) * 100))
	return Health{Score: score, Issues: issues}
}

// Mark is the traffic-light symbol of the score.
func (h Health) Mark() string {
	switch {
	case h.Score >= 90:
		return "🟢"
	case h.Score >= 70:
		return "🟡"
	default:
		return "🔴"
	}
}

// Verdict is the one-line reading of the score.
func (h Health) Verdict() string {
	switch {
	case h.Score >= 90:
		return "**Excellent**: CCMem database is well-maintained with comprehensive coverage!"
	case h.Score >= 70:
		return "**Good**: CCMem database is healthy with some areas for improvement."
	default:
		return "**Needs Attention**: CCMem database requires maintenance and additional documentation."
	}
}

// Doc audits the records: counts, tracked file changes, integrity
// (including risk entries pointing at missing landmines), recent activity,
// top risk areas, coverage and an overall health score.
func (a *Assembler) Doc(ctx context.Context) (string, error) {
	n, err := a.store.Counts(ctx)
	if err != nil {
		return "", err
	}
	changes, err := a.store.FileChanges(ctx)
	if err != nil {
		return "", err
	}
	integrity, err := a.store.Integrity(ctx)
	if err != nil {
		return "", err
	}
	dangling, err := a.risks.Verify(ctx)
	if err != nil {
		return "", err
	}
	activity, err := a.store.RecentActivity(ctx, 7)
	if err != nil {
		return "", err
	}
	top, err := a.store.TopRisks(ctx, 10)
	if err != nil {
		return "", err
	}
	coverage, err := a.store.Coverage(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# 📋 CCMem Doc - Codebase vs Database Analysis\n\n")
	b.WriteString("## 📊 CCMem Database Summary\n")
	fmt.Fprintf(&b, "**Stories**: %d total\n", n.Stories)
	fmt.Fprintf(&b, "**Tasks**: %d total, %d completed\n", n.Tasks, n.CompletedTasks)
	fmt.Fprintf(&b, "**Development Sessions**: %d\n", n.Sessions)
	fmt.Fprintf(&b, "**Landmines**: %d documented risks\n\n", n.Landmines)

	if len(changes) > 0 {
		unique := make(map[string]struct{})
		for _, c := range changes {
			for _, f := range c.Files {
				unique[f] = struct{}{}
			}
		}
		b.WriteString("## 📁 Tracked File Modifications\n")
		fmt.Fprintf(&b, "**Tasks with File Changes**: %d\n", len(changes))
		fmt.Fprintf(&b, "**Unique Files Modified**: %d\n", len(unique))
		b.WriteString("**Recent File Changes**:\n")
		for i, c := range changes {
			if i == 10 {
				break
			}
			fmt.Fprintf(&b, "- Task #%d: %s\n", c.TaskID, strings.Join(c.Files, ", "))
		}
		b.WriteString("\n")
	}

	issues := integrity.Total() + len(dangling)
	b.WriteString("## 🔍 Database Integrity Check\n")
	if issues == 0 {
		b.WriteString("✅ **Database Integrity**: No issues found\n")
		b.WriteString("✅ **All task logs have valid task references**\n")
		b.WriteString("✅ **All defect logs have valid defect references**\n")
		b.WriteString("✅ **All tasks have valid story references**\n")
		b.WriteString("✅ **All risk entries point at existing landmines**\n\n")
	} else {
		b.WriteString("⚠️ **Database Integrity Issues Found**:\n")
		if integrity.OrphanedTaskLogs > 0 {
			fmt.Fprintf(&b, "- %d orphaned task logs\n", integrity.OrphanedTaskLogs)
		}
		if integrity.OrphanedDefectLogs > 0 {
			fmt.Fprintf(&b, "- %d orphaned defect logs\n", integrity.OrphanedDefectLogs)
		}
		if integrity.OrphanedTasks > 0 {
			fmt.Fprintf(&b, "- %d tasks without valid stories\n", integrity.OrphanedTasks)
		}
		for _, d := range dangling {
			fmt.Fprintf(&b, "- risk %q references missing landmine #%d\n", d.Keyword, d.LandmineID)
		}
		b.WriteString("\n")
	}

	if len(activity) > 0 {
		b.WriteString("## 📈 Recent Activity\n")
		for _, d := range activity {
			fmt.Fprintf(&b, "- **%s**: %d tasks completed\n", d.Date, d.TasksCompleted)
		}
		b.WriteString("\n")
	}

	if len(top) > 0 {
		b.WriteString("## ⚠️ Top Risk Areas\n")
		for _, r := range top {
			fmt.Fprintf(&b, "- **%s**: %d related landmines\n", r.Keyword, r.LandmineCount)
		}
		b.WriteString("\n")
	}

	completion := 0
	if n.Tasks > 0 {
		completion = int(math.Round(float64(n.CompletedTasks) / float64(n.Tasks) * 100))
	}
	b.WriteString("## 📊 Knowledge Coverage Analysis\n")
	fmt.Fprintf(&b, "**Stories Without Tasks**: %d\n", coverage.StoriesWithoutTasks)
	fmt.Fprintf(&b, "**Stories With Incomplete Work**: %d\n", coverage.IncompleteStories)
	fmt.Fprintf(&b, "**Task Completion Rate**: %d%%\n\n", completion)

	b.WriteString("## 🎯 Recommendations\n")
	var recs []string
	if coverage.StoriesWithoutTasks > 0 {
		recs = append(recs, fmt.Sprintf("**Break Down Stories**: %d stories need task breakdown\n   - Use `create-task` to add specific implementation tasks", coverage.StoriesWithoutTasks))
	}
	if coverage.IncompleteStories > 0 {
		recs = append(recs, fmt.Sprintf("**Complete Work**: %d stories have pending work\n   - Use `/ccmem-boot <storyId>` to focus on story completion", coverage.IncompleteStories))
	}
	if n.Landmines > 3 {
		recs = append(recs, fmt.Sprintf("**Risk Mitigation**: %d landmines documented\n   - Review `find-relevant-risks` before starting new work\n   - Consider creating gold standards for problem areas", n.Landmines))
	}
	if issues > 0 {
		recs = append(recs, "**Database Cleanup**: Address integrity issues found\n   - Review orphaned records and clean up references")
	}
	if len(recs) == 0 {
		b.WriteString("Nothing to act on.\n")
	}
	for i, r := range recs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}

	b.WriteString("\n## 📋 Suggested Commands\n")
	b.WriteString("```\n")
	b.WriteString("# Review project health\n")
	b.WriteString("get-full-project-summary\n\n")
	b.WriteString("# Document new work\n")
	b.WriteString("write-story message=\"New feature or improvement\"\n")
	b.WriteString("create-task storyId=<id> description=\"Specific implementation task\"\n")
	b.WriteString("```\n\n")

	h := HealthScore(n.Tasks, issues)
	fmt.Fprintf(&b, "## 📈 Overall CCMem Health Score: %s %d%%\n", h.Mark(), h.Score)
	b.WriteString(h.Verdict() + "\n")
	return b.String(), nil
}
