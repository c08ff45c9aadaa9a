// Package briefing assembles the markdown context reports an agent reads
// before planning, developing or reviewing work: the project summary and
// the prime, boot, dev, qa, doc and list views.
package briefing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/adestefa/ccmem/internal/logging"
	"github.com/adestefa/ccmem/internal/risk"
	"github.com/adestefa/ccmem/internal/store"
)

// Assembler reads the store and renders reports.
type Assembler struct {
	store  *store.Store
	risks  *risk.Correlator
	logger *slog.Logger
}

// New returns an Assembler over s. Integrity reports use c to find
// dangling risk references.
func New(s *store.Store, c *risk.Correlator) *Assembler {
	return &Assembler{store: s, risks: c, logger: logging.For("briefing")}
}

// sectionTitle is the heading a knowledge section gets in the summary.
func sectionTitle(s store.Section) string {
	if s == store.SectionGeneral {
		return "Project Info"
	}
	return s.Title()
}

// Summary renders every non-empty knowledge section followed by the
// project metrics.
func (a *Assembler) Summary(ctx context.Context) (string, error) {
	var b strings.Builder
	b.WriteString("# Project Summary\n\n")

	for _, sec := range store.Sections {
		entries, err := a.store.Info(ctx, sec)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n", sectionTitle(sec))
		for _, e := range entries {
			fmt.Fprintf(&b, "- **%s**: %s\n", e.Key, e.Value)
		}
		b.WriteString("\n")
	}

	n, err := a.store.Counts(ctx)
	if err != nil {
		return "", err
	}
	b.WriteString("## Project Metrics\n")
	fmt.Fprintf(&b, "- **Total Stories**: %d\n", n.Stories)
	fmt.Fprintf(&b, "- **Total Tasks**: %d\n", n.Tasks)
	fmt.Fprintf(&b, "- **Total Defects**: %d\n", n.Defects)
	fmt.Fprintf(&b, "- **Total Landmines**: %d\n", n.Landmines)
	fmt.Fprintf(&b, "- **Total Sessions**: %d\n", n.Sessions)
	return b.String(), nil
}

// ─── Shared helpers ──────────────────────────────────────────────────────────

// when renders a stored timestamp with its distance from now.
func when(ts string) string {
	t, err := store.ParseTime(ts)
	if err != nil {
		return ts
	}
	return fmt.Sprintf("%s (%s)", ts, humanize.Time(t))
}

// lookup returns the value stored under key in a section's entries.
func lookup(entries []store.KeyValue, key string) (string, bool) {
	for _, e := range entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// relevantRisks keeps the risks whose keyword appears in text, plus any
// whose keyword contains one of the always-watched areas.
func relevantRisks(risks []store.Risk, text string, watched ...string) []store.Risk {
	text = strings.ToLower(text)
	var out []store.Risk
	for _, r := range risks {
		k := strings.ToLower(r.Keyword)
		if k != "" && strings.Contains(text, k) {
			out = append(out, r)
			continue
		}
		for _, w := range watched {
			if strings.Contains(k, w) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// containsAny reports whether text contains any of words.
func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func writeTaskLines(b *strings.Builder, tasks []store.Task) {
	for _, t := range tasks {
		fmt.Fprintf(b, "- Task #%d: %s\n", t.ID, t.Description)
	}
}

func writeGold(b *strings.Builder, gold []store.TaskLog) {
	for _, g := range gold {
		fmt.Fprintf(b, "- Task #%d: %s\n", g.TaskID, g.Summary)
	}
}

// byStatus splits tasks into completed, in-progress and pending, keeping
// their order.
func byStatus(tasks []store.Task) (completed, inProgress, pending []store.Task) {
	for _, t := range tasks {
		switch t.Status {
		case store.TaskCompleted:
			completed = append(completed, t)
		case store.TaskInProgress:
			inProgress = append(inProgress, t)
		default:
			pending = append(pending, t)
		}
	}
	return completed, inProgress, pending
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

const goldLimit = 3
