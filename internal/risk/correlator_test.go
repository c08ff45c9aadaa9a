package risk_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adestefa/ccmem/internal/risk"
	"github.com/adestefa/ccmem/internal/store"
)

func flag(t *testing.T, c *risk.Correlator, taskID int64, errorContext string, keywords ...string) int64 {
	t.Helper()
	rec, err := c.RecordLandmine(context.Background(), risk.Incident{
		TaskID:         taskID,
		SessionID:      "sess",
		ErrorContext:   errorContext,
		AttemptedFixes: "restarted",
		Keywords:       keywords,
	})
	require.NoError(t, err)
	return rec.LandmineID
}

func landmineIDs(f *risk.Findings) []int64 {
	var out []int64
	for _, l := range f.Landmines {
		out = append(out, l.ID)
	}
	return out
}

// ─── RecordLandmine ──────────────────────────────────────────────────────────

func TestRecordLandmine_NewKeywordCreatesSingletonRisk(t *testing.T) {
	repo := newMemRepo(1)
	c := risk.New(repo)

	rec, err := c.RecordLandmine(context.Background(), risk.Incident{
		TaskID: 1, SessionID: "s", ErrorContext: "db locked", AttemptedFixes: "retry",
		Keywords: []string{"sqlite"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sqlite"}, rec.Created)
	assert.Empty(t, rec.Updated)

	risks, _ := repo.Risks(context.Background())
	require.Len(t, risks, 1)
	assert.Equal(t, "sqlite", risks[0].Keyword)
	assert.Equal(t, "Risks related to sqlite.", risks[0].Description)
	assert.Equal(t, store.IDList{rec.LandmineID}, risks[0].LandmineIDs)
}

func TestRecordLandmine_OverlappingKeywordsStayUnique(t *testing.T) {
	repo := newMemRepo(1)
	c := risk.New(repo)

	first := flag(t, c, 1, "first failure", "auth", "auth")
	second := flag(t, c, 1, "second failure", "auth", "cache", "auth")

	risks, _ := repo.Risks(context.Background())
	require.Len(t, risks, 2)
	assert.Equal(t, store.IDList{first, second}, risks[0].LandmineIDs)
	assert.Equal(t, store.IDList{second}, risks[1].LandmineIDs)
}

func TestRecordLandmine_LogsTruncatedSummary(t *testing.T) {
	repo := newMemRepo(1)
	c := risk.New(repo)
	long := strings.Repeat("x", 80)

	_, err := c.RecordLandmine(context.Background(), risk.Incident{
		TaskID: 1, SessionID: "s", ErrorContext: long, AttemptedFixes: "none",
		FilesEdited: store.FileList{"main.go"},
	})
	require.NoError(t, err)

	require.Len(t, repo.state.logs, 1)
	logged := repo.state.logs[0]
	assert.Equal(t, store.LogLandmine, logged.LogType)
	assert.Equal(t, "Landmine hit: "+strings.Repeat("x", 50)+"...", logged.Summary)
	assert.Equal(t, store.FileList{"main.go"}, logged.FilesEdited)
}

func TestRecordLandmine_EmptyKeywordsSkipped(t *testing.T) {
	repo := newMemRepo(1)
	c := risk.New(repo)

	rec, err := c.RecordLandmine(context.Background(), risk.Incident{
		TaskID: 1, SessionID: "s", ErrorContext: "e", AttemptedFixes: "f",
		Keywords: []string{"", "deploy", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"deploy"}, rec.Created)
}

func TestRecordLandmine_KeywordsMatchExactly(t *testing.T) {
	repo := newMemRepo(1)
	c := risk.New(repo)

	rec, err := c.RecordLandmine(context.Background(), risk.Incident{
		TaskID: 1, SessionID: "s", ErrorContext: "e", AttemptedFixes: "f",
		Keywords: []string{" Auth ", "Auth", "auth", "Auth"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{" Auth ", "Auth", "auth"}, rec.Created)
	assert.Empty(t, rec.Updated)
}

func TestRecordLandmine_UnknownTaskWritesNothing(t *testing.T) {
	repo := newMemRepo(1)
	c := risk.New(repo)
	flag(t, c, 1, "existing", "auth")
	before := repo.state

	_, err := c.RecordLandmine(context.Background(), risk.Incident{
		TaskID: 99, SessionID: "s", ErrorContext: "e", AttemptedFixes: "f",
		Keywords: []string{"auth", "new"},
	})
	require.Error(t, err)
	assert.True(t, store.IsConstraint(err))
	assert.Same(t, before, repo.state, "state must be untouched")
	assert.Len(t, repo.state.landmines, 1)
	assert.Len(t, repo.state.risks, 1)
	assert.Len(t, repo.state.logs, 1)
}

func TestRecordLandmine_FailureMidwayRollsBack(t *testing.T) {
	for _, op := range []string{"InsertLandmine", "CreateRisk", "SwapRiskLandmines"} {
		t.Run(op, func(t *testing.T) {
			repo := newMemRepo(1)
			c := risk.New(repo)
			flag(t, c, 1, "seed", "auth")

			repo.failOn = op
			_, err := c.RecordLandmine(context.Background(), risk.Incident{
				TaskID: 1, SessionID: "s", ErrorContext: "e", AttemptedFixes: "f",
				Keywords: []string{"auth", "fresh"},
			})
			require.Error(t, err)

			assert.Len(t, repo.state.landmines, 1)
			assert.Len(t, repo.state.logs, 1)
			require.Len(t, repo.state.risks, 1)
			assert.Equal(t, store.IDList{1}, repo.state.risks["auth"].LandmineIDs)
		})
	}
}

// ─── FindRelevantRisks ───────────────────────────────────────────────────────

func TestFindRelevantRisks_UnionWithoutDuplicates(t *testing.T) {
	repo := newMemRepo(1)
	c := risk.New(repo)
	l1 := flag(t, c, 1, "token expired", "user-auth")
	l2 := flag(t, c, 1, "session dropped", "user-auth", "user-login")
	l3 := flag(t, c, 1, "form rejected", "user-login")
	flag(t, c, 1, "unrelated", "billing")

	f, err := c.FindRelevantRisks(context.Background(), "user")
	require.NoError(t, err)
	assert.Equal(t, []int64{l1, l2, l3}, landmineIDs(f))
}

func TestFindRelevantRisks_ContentMatchWithoutKeyword(t *testing.T) {
	repo := newMemRepo(1)
	c := risk.New(repo)
	id := flag(t, c, 1, "upstream timeout after 30s")

	f, err := c.FindRelevantRisks(context.Background(), "timeout")
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, landmineIDs(f))
}

func TestFindRelevantRisks_KeywordAndContentSameLandmine(t *testing.T) {
	repo := newMemRepo(1)
	c := risk.New(repo)
	id := flag(t, c, 1, "timeout talking to redis", "timeout")

	f, err := c.FindRelevantRisks(context.Background(), "TIMEOUT")
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, landmineIDs(f))
}

func TestFindRelevantRisks_MatchesAttemptedFixes(t *testing.T) {
	repo := newMemRepo(1)
	c := risk.New(repo)
	id := flag(t, c, 1, "crash on boot")

	f, err := c.FindRelevantRisks(context.Background(), "restarted")
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, landmineIDs(f))
}

func TestFindRelevantRisks_NoneFound(t *testing.T) {
	c := risk.New(newMemRepo(1))

	f, err := c.FindRelevantRisks(context.Background(), "nothing")
	require.NoError(t, err)
	assert.True(t, f.Empty())
	assert.Equal(t, "No risks or landmines found matching 'nothing'.", risk.FormatFindings(f))
}

func TestFindRelevantRisks_EmptyTerm(t *testing.T) {
	c := risk.New(newMemRepo())
	_, err := c.FindRelevantRisks(context.Background(), "  ")
	assert.ErrorIs(t, err, risk.ErrEmptyTerm)
}

// ─── Landmine & Verify ───────────────────────────────────────────────────────

func TestLandmine_NotFound(t *testing.T) {
	c := risk.New(newMemRepo())
	_, err := c.Landmine(context.Background(), 5)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestVerify_ReportsDanglingIDs(t *testing.T) {
	repo := newMemRepo(1)
	c := risk.New(repo)
	a := flag(t, c, 1, "a", "auth")
	b := flag(t, c, 1, "b", "auth", "db")

	refs, err := c.Verify(context.Background())
	require.NoError(t, err)
	assert.Empty(t, refs)

	repo.deleteLandmine(b)
	refs, err = c.Verify(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []risk.DanglingRef{
		{Keyword: "auth", LandmineID: b},
		{Keyword: "db", LandmineID: b},
	}, refs)
	_ = a
}

// ─── Formatting ──────────────────────────────────────────────────────────────

func TestFormatFindings_PreviewIsTruncated(t *testing.T) {
	f := &risk.Findings{Term: "x", Landmines: []store.Landmine{
		{ID: 7, ErrorContext: strings.Repeat("é", 120)},
		{ID: 9, ErrorContext: "short"},
	}}
	got := risk.FormatFindings(f)
	want := "Found Relevant Risks:\n" +
		"Potential Risk Found - See Landmine ID 7: " + strings.Repeat("é", 100) + "...\n" +
		"Potential Risk Found - See Landmine ID 9: short..."
	assert.Equal(t, want, got)
}

func TestFormatLandmine(t *testing.T) {
	got := risk.FormatLandmine(&store.Landmine{
		ID: 3, TaskID: 4, SessionID: "abc", Timestamp: "2026-01-02 03:04:05",
		ErrorContext: "boom", AttemptedFixes: "nothing worked",
	})
	want := "Landmine Report ID: 3\nTask: 4 (Session: abc)\nTimestamp: 2026-01-02 03:04:05\n\n" +
		"Context: boom\n\nAttempted Fixes: nothing worked"
	assert.Equal(t, want, got)
	assert.Equal(t, "No landmine found with ID 3.", risk.LandmineNotFound(3))
	assert.Equal(t, "Landmine flagged for task 4 and risks updated.", risk.RecordedMessage(4))
}
