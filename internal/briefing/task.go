package briefing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adestefa/ccmem/internal/store"
)

// taskContext is what the dev and qa reports share about a task.
type taskContext struct {
	task  *store.Task
	story *store.Story // nil when the story row is gone
	risks []store.Risk
	gold  []store.TaskLog
}

func (a *Assembler) loadTask(ctx context.Context, taskID int64) (*taskContext, error) {
	t, err := a.store.Task(ctx, taskID)
	if err != nil {
		return nil, err
	}
	tc := &taskContext{task: t}
	tc.story, err = a.store.Story(ctx, t.StoryID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if tc.risks, err = a.store.Risks(ctx); err != nil {
		return nil, err
	}
	if tc.gold, err = a.store.GoldStandards(ctx, goldLimit); err != nil {
		return nil, err
	}
	return tc, nil
}

func (tc *taskContext) writeOverview(b *strings.Builder) {
	fmt.Fprintf(b, "**Task #%d**: %s\n", tc.task.ID, tc.task.Description)
	fmt.Fprintf(b, "**Story**: #%d", tc.task.StoryID)
	if tc.story != nil {
		fmt.Fprintf(b, " - %s", tc.story.Message)
	}
	fmt.Fprintf(b, "\n**Status**: %s | **Created**: %s\n\n", tc.task.Status, when(tc.task.Timestamp))
}

// writeRisks lists risks with a pointer to their latest landmine.
func writeRisks(b *strings.Builder, risks []store.Risk, seeLabel string) {
	for _, r := range risks {
		fmt.Fprintf(b, "- **%s**: %s", r.Keyword, r.Description)
		if n := len(r.LandmineIDs); n > 0 {
			fmt.Fprintf(b, " (%s #%d)", seeLabel, r.LandmineIDs[n-1])
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeChecklist(b *strings.Builder, title string, items ...string) {
	b.WriteString(title + "\n")
	for _, it := range items {
		fmt.Fprintf(b, "- [ ] %s\n", it)
	}
	b.WriteString("\n")
}

// Dev renders the development context of a task: sessions, technical and
// environment knowledge, risks, gold standards and checklists picked from
// the task description.
func (a *Assembler) Dev(ctx context.Context, taskID int64) (string, error) {
	tc, err := a.loadTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	sessions, err := a.store.SessionsForTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	arch, err := a.store.Info(ctx, store.SectionArchitecture)
	if err != nil {
		return "", err
	}
	ops, err := a.store.Info(ctx, store.SectionOperations)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# 💻 CCMem Dev - Task #%d Development Context\n\n", taskID)
	b.WriteString("## 🎯 Task Overview\n")
	tc.writeOverview(&b)
	if len(sessions) > 0 {
		fmt.Fprintf(&b, "**Previous Sessions**: %s\n\n", strings.Join(sessions, ", "))
	}

	if len(arch) > 0 {
		b.WriteString("## 🏗️ Technical Implementation Context\n")
		for _, f := range []struct{ key, label string }{
			{"framework", "Architecture"},
			{"directory_structure", "Directory Structure"},
			{"database", "Database"},
		} {
			if v, ok := lookup(arch, f.key); ok {
				fmt.Fprintf(&b, "**%s**: %s\n", f.label, v)
			}
		}
		b.WriteString("\n")
	}

	if len(ops) > 0 {
		b.WriteString("## 🔧 Development Environment\n")
		if v, ok := lookup(ops, "start_command"); ok {
			fmt.Fprintf(&b, "**Start**: %s\n", v)
		}
		if v, ok := lookup(ops, "test_command"); ok {
			fmt.Fprintf(&b, "**Testing**: %s\n", v)
		}
		b.WriteString("\n")
	}

	desc := strings.ToLower(tc.task.Description)
	if related := relevantRisks(tc.risks, desc, "auth", "ui", "form"); len(related) > 0 {
		b.WriteString("## ⚠️ Development Risks\n")
		writeRisks(&b, related, "See Landmine")
	}

	if len(tc.gold) > 0 {
		b.WriteString("## 🏆 Success Patterns\n")
		writeGold(&b, tc.gold)
		b.WriteString("\n")
	}

	b.WriteString("## 🎯 Implementation Checklist\n")
	if containsAny(desc, "frontend", "form", "ui") {
		writeChecklist(&b, "### Frontend Development",
			"Create/update HTML templates",
			"Add JavaScript functionality",
			"Implement CSS styling",
			"Add form validation",
			"Test responsive behavior")
	}
	if containsAny(desc, "api", "endpoint", "backend") {
		writeChecklist(&b, "### Backend Development",
			"Create/update route handlers",
			"Implement business logic",
			"Add database operations",
			"Include error handling",
			"Write unit tests")
	}
	if containsAny(desc, "auth", "login", "security") {
		writeChecklist(&b, "### Security Considerations",
			"CSRF protection",
			"Input validation",
			"Session management",
			"Password security",
			"XSS prevention")
	}

	b.WriteString("## 📝 Next Actions\n")
	step := 1
	if tc.task.Status == store.TaskPending {
		fmt.Fprintf(&b, "%d. **Start work**: Use `start-work-on-task taskId=%d`\n", step, taskID)
		step++
	}
	fmt.Fprintf(&b, "%d. **Review risks**: Check related landmines and mitigation strategies\n", step)
	fmt.Fprintf(&b, "%d. **Reference gold standards**: Apply proven patterns from successful implementations\n", step+1)
	fmt.Fprintf(&b, "%d. **Complete work**: Use `record-task-result taskId=%d sessionId=\"session-id\" summary=\"what you accomplished\"`\n", step+2, taskID)
	return b.String(), nil
}

// QA renders the review context of a task: what was changed, how the
// project tests, quality risks, reference implementations, related
// defects and the checklists that gate completion.
func (a *Assembler) QA(ctx context.Context, taskID int64) (string, error) {
	tc, err := a.loadTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	logs, err := a.store.TaskLogs(ctx, taskID)
	if err != nil {
		return "", err
	}
	testInfo, err := a.store.Info(ctx, store.SectionTesting)
	if err != nil {
		return "", err
	}
	defects, err := a.store.DefectsForStory(ctx, tc.task.StoryID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# 🔍 CCMem QA - Task #%d Quality Assurance Context\n\n", taskID)
	b.WriteString("## 🎯 Task Implementation Review\n")
	tc.writeOverview(&b)

	var latest *store.TaskLog
	for i := range logs {
		if logs[i].LogType == store.LogResult {
			latest = &logs[i]
		}
	}
	if latest != nil {
		b.WriteString("## 📋 Implementation Summary\n")
		fmt.Fprintf(&b, "**Changes Made**: %s\n", latest.Summary)
		if len(latest.FilesEdited) > 0 {
			fmt.Fprintf(&b, "**Files Modified**: %s\n", strings.Join(latest.FilesEdited, ", "))
		}
		b.WriteString("\n")
	}

	if len(testInfo) > 0 {
		b.WriteString("## 🧪 Testing Strategy\n")
		for _, f := range []struct{ key, label string }{
			{"test_framework", "Test Framework"},
			{"test_location", "Test Location"},
			{"test_types", "Test Types"},
		} {
			if v, ok := lookup(testInfo, f.key); ok {
				fmt.Fprintf(&b, "**%s**: %s\n", f.label, v)
			}
		}
		b.WriteString("\n")
		writeChecklist(&b, "**Testing Checklist**:",
			"Unit tests for core functionality",
			"Integration tests for API endpoints",
			"End-to-end workflow testing",
			"Error handling and edge cases",
			"Performance and load testing")
	}

	desc := strings.ToLower(tc.task.Description)
	if related := relevantRisks(tc.risks, desc, "auth", "security", "validation"); len(related) > 0 {
		b.WriteString("## ⚠️ Quality Risk Areas\n")
		b.WriteString("**High-Risk Components** (based on landmine patterns):\n")
		writeRisks(&b, related, "Landmine")
	}

	if containsAny(desc, "auth", "login", "form", "input") {
		writeChecklist(&b, "**Security Testing Priority**:",
			"XSS prevention in form inputs",
			"CSRF protection validation",
			"Input sanitization and validation",
			"Session security testing",
			"Authorization and access control")
	}

	if len(tc.gold) > 0 {
		b.WriteString("## 🏆 Quality Standards (Gold Standard Comparison)\n")
		b.WriteString("**Reference Implementations**:\n")
		writeGold(&b, tc.gold)
		b.WriteString("\n")
		writeChecklist(&b, "**Quality Gate Criteria**:",
			"Meets or exceeds gold standard patterns",
			"Consistent with project architecture",
			"Follows established coding standards",
			"Includes appropriate error handling")
	}

	if len(defects) > 0 {
		b.WriteString("## 🐛 Related Defect Patterns\n")
		b.WriteString("**Previous Issues in This Story**:\n")
		for _, d := range defects {
			fmt.Fprintf(&b, "- Defect #%d (%s): %s\n", d.ID, d.Status, d.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("## 📋 QA Checklist\n")
	writeChecklist(&b, "### Functional Testing",
		"Core functionality works as specified",
		"All user workflows complete successfully",
		"Error scenarios handled gracefully",
		"Edge cases and boundary conditions tested",
		"Integration with existing features verified")
	if containsAny(desc, "frontend", "ui", "form") {
		writeChecklist(&b, "### UI/UX Testing",
			"Responsive design across devices",
			"Accessibility compliance (WCAG guidelines)",
			"Cross-browser compatibility",
			"User interaction feedback and validation",
			"Visual consistency with design system")
	}
	if containsAny(desc, "api", "backend", "database") {
		writeChecklist(&b, "### Backend Testing",
			"API endpoints return correct responses",
			"Database operations are atomic and consistent",
			"Error responses are properly formatted",
			"Performance meets requirements",
			"Data validation and sanitization")
	}
	writeChecklist(&b, "### Security Testing",
		"Input validation prevents injection attacks",
		"Authentication and authorization working",
		"Session management secure",
		"Sensitive data properly protected",
		"HTTPS and secure communication")

	b.WriteString("## 🎯 Quality Gate Criteria\n")
	b.WriteString("**Must Pass Before Deployment**:\n")
	b.WriteString("1. All automated tests passing\n")
	b.WriteString("2. Manual testing checklist 100% complete\n")
	b.WriteString("3. Security review completed and approved\n")
	b.WriteString("4. Performance requirements met\n")
	b.WriteString("5. Code review approved by team\n\n")

	b.WriteString("## 📝 QA Completion Actions\n")
	if tc.task.Status == store.TaskCompleted {
		b.WriteString("1. **Run Tests**: Execute automated test suite for verification\n")
		b.WriteString("2. **Manual Testing**: Complete QA checklist systematically\n")
		b.WriteString("3. **Document Results**: Record findings and any issues discovered\n")
		fmt.Fprintf(&b, "4. **Create Defects**: Use `create-defect storyId=%d taskId=%d` for any issues found\n", tc.task.StoryID, taskID)
	} else {
		b.WriteString("1. **Complete Implementation**: Task must be completed before QA\n")
		b.WriteString("2. **Request QA**: Coordinate with team for quality assurance review\n")
	}
	return b.String(), nil
}
