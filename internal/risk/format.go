package risk

import (
	"fmt"
	"strings"

	"github.com/adestefa/ccmem/internal/store"
)

const (
	logSummaryLen = 50
	previewLen    = 100
)

// LandmineLogSummary is the task log line written when a landmine is hit.
func LandmineLogSummary(errorContext string) string {
	return "Landmine hit: " + truncate(errorContext, logSummaryLen) + "..."
}

// FormatFindings renders search results, or the explicit none-found line.
func FormatFindings(f *Findings) string {
	if f.Empty() {
		term := ""
		if f != nil {
			term = f.Term
		}
		return fmt.Sprintf("No risks or landmines found matching '%s'.", term)
	}
	var b strings.Builder
	b.WriteString("Found Relevant Risks:")
	for _, l := range f.Landmines {
		fmt.Fprintf(&b, "\nPotential Risk Found - See Landmine ID %d: %s...", l.ID, truncate(l.ErrorContext, previewLen))
	}
	return b.String()
}

// FormatLandmine renders the full landmine report.
func FormatLandmine(l *store.Landmine) string {
	return fmt.Sprintf("Landmine Report ID: %d\nTask: %d (Session: %s)\nTimestamp: %s\n\nContext: %s\n\nAttempted Fixes: %s",
		l.ID, l.TaskID, l.SessionID, l.Timestamp, l.ErrorContext, l.AttemptedFixes)
}

// LandmineNotFound is the reply for an unknown landmine id.
func LandmineNotFound(id int64) string {
	return fmt.Sprintf("No landmine found with ID %d.", id)
}

// RecordedMessage is the confirmation for a flagged landmine.
func RecordedMessage(taskID int64) string {
	return fmt.Sprintf("Landmine flagged for task %d and risks updated.", taskID)
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
