package analysis_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adestefa/ccmem/internal/analysis"
)

func TestScoreAndClassify(t *testing.T) {
	tests := []struct {
		name      string
		in        analysis.Input
		wantScore int
		wantLevel string
		wantRec   string
	}{
		{
			name:      "plain feature",
			in:        analysis.Input{Title: "Dark mode", Description: "Toggle in settings", Complexity: "simple"},
			wantScore: 0, wantLevel: analysis.LevelLow, wantRec: analysis.Approve,
		},
		{
			name:      "two keywords",
			in:        analysis.Input{Title: "Admin panel", Description: "Delete users", Complexity: "moderate"},
			wantScore: 20, wantLevel: analysis.LevelLow, wantRec: analysis.Approve,
		},
		{
			name:      "keywords plus complex reaches medium",
			in:        analysis.Input{Title: "Database migration", Description: "", Complexity: "complex"},
			wantScore: 35, wantLevel: analysis.LevelMedium, wantRec: analysis.ProceedWithCaution,
		},
		{
			name: "high risk",
			in: analysis.Input{
				Title:       "Payment security",
				Description: "Remove legacy authentication",
				Complexity:  "high_risk",
			},
			wantScore: 65, wantLevel: analysis.LevelHigh, wantRec: analysis.RequiresReview,
		},
		{
			name:      "boundary at 25",
			in:        analysis.Input{Title: "x", Complexity: "high_risk"},
			wantScore: 25, wantLevel: analysis.LevelMedium, wantRec: analysis.ProceedWithCaution,
		},
		{
			name:      "just below 50",
			in:        analysis.Input{Title: "database delete", Description: "admin", Complexity: "complex"},
			wantScore: 45, wantLevel: analysis.LevelMedium, wantRec: analysis.ProceedWithCaution,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := analysis.Analyze(tt.in)
			assert.Equal(t, tt.wantScore, r.Score)
			assert.Equal(t, tt.wantLevel, r.Level)
			assert.Equal(t, tt.wantRec, r.Recommendation)
		})
	}
}

func TestClassify_Boundaries(t *testing.T) {
	for score, want := range map[int]string{0: "LOW", 24: "LOW", 25: "MEDIUM", 49: "MEDIUM", 50: "HIGH", 90: "HIGH"} {
		level, _ := analysis.Classify(score)
		assert.Equal(t, want, level, "score %d", score)
	}
}

func TestAnalyze_Texts(t *testing.T) {
	r := analysis.Analyze(analysis.Input{
		Title:           "Admin audit log",
		Description:     "Track security events",
		SuccessCriteria: "a\nb\nc",
		Complexity:      "complex",
		BusinessValue:   8,
	})

	assert.Equal(t, 35, r.Score)
	assert.Equal(t, []string{"security", "admin"}, r.MatchedKeywords)
	assert.Equal(t, "Prime Analysis: MEDIUM risk, proceed with caution - 8/10 business value", r.Summary)
	assert.True(t, strings.HasPrefix(r.RiskAssessment, "Risk Level: MEDIUM (Score: 35)"))
	assert.Contains(t, r.Report, `**Story Assessment**: "Admin audit log"`)
	assert.Contains(t, r.Report, "High impact feature with significant user value")
	assert.Contains(t, r.Report, "High complexity requiring architectural consideration")
	assert.Contains(t, r.Report, "Well-defined success criteria")
	assert.Contains(t, r.Recommendations, "**Prime Recommendation**: PROCEED_WITH_CAUTION")
	assert.Contains(t, r.Recommendations, "• Plan rollback procedures")
}
