// Package analysis scores backlog items for delivery risk with a fixed
// rule set and renders the review texts shown on the dashboard.
package analysis

import (
	"fmt"
	"strings"
)

// Risk levels.
const (
	LevelLow    = "LOW"
	LevelMedium = "MEDIUM"
	LevelHigh   = "HIGH"
)

// Recommendations.
const (
	Approve            = "APPROVE"
	ProceedWithCaution = "PROCEED_WITH_CAUTION"
	RequiresReview     = "REQUIRES_REVIEW"
)

// Keywords each add KeywordWeight to the score when found in the title or
// description.
var Keywords = []string{"database", "delete", "remove", "migration", "security", "payment", "authentication", "admin"}

const (
	KeywordWeight  = 10
	ComplexWeight  = 15
	HighRiskWeight = 25
)

// Input is the part of a backlog item the analysis reads.
type Input struct {
	Title           string
	Description     string
	SuccessCriteria string
	Complexity      string
	BusinessValue   int
}

// Result is a complete analysis.
type Result struct {
	Score           int      `json:"risk_score"`
	Level           string   `json:"risk_level"`
	Recommendation  string   `json:"recommendation"`
	MatchedKeywords []string `json:"matched_keywords"`
	Report          string   `json:"report"`
	RiskAssessment  string   `json:"risk_assessment"`
	Recommendations string   `json:"recommendations"`
	Summary         string   `json:"summary"`
}

// Score returns the risk score and the keywords that contributed to it.
func Score(in Input) (int, []string) {
	text := strings.ToLower(in.Description + " " + in.Title)
	score := 0
	var matched []string
	for _, k := range Keywords {
		if strings.Contains(text, k) {
			score += KeywordWeight
			matched = append(matched, k)
		}
	}
	switch in.Complexity {
	case "complex":
		score += ComplexWeight
	case "high_risk":
		score += HighRiskWeight
	}
	return score, matched
}

// Classify maps a score to its level and recommendation.
func Classify(score int) (level, recommendation string) {
	switch {
	case score < 25:
		return LevelLow, Approve
	case score < 50:
		return LevelMedium, ProceedWithCaution
	default:
		return LevelHigh, RequiresReview
	}
}

// Analyze scores in and renders every text of the review.
func Analyze(in Input) Result {
	score, matched := Score(in)
	level, rec := Classify(score)
	return Result{
		Score:           score,
		Level:           level,
		Recommendation:  rec,
		MatchedKeywords: matched,
		Report:          report(in),
		RiskAssessment:  assessment(level, score),
		Recommendations: recommendations(rec),
		Summary: fmt.Sprintf("Prime Analysis: %s risk, %s - %d/10 business value",
			level, strings.ReplaceAll(strings.ToLower(rec), "_", " "), in.BusinessValue),
	}
}

func report(in Input) string {
	var value string
	switch {
	case in.BusinessValue >= 8:
		value = "High impact feature with significant user value"
	case in.BusinessValue >= 6:
		value = "Moderate impact with good user benefit"
	case in.BusinessValue >= 4:
		value = "Lower impact but provides incremental value"
	default:
		value = "Limited business impact, consider prioritization"
	}

	var complexity string
	switch in.Complexity {
	case "simple":
		complexity = "Straightforward implementation with minimal risk"
	case "moderate":
		complexity = "Standard complexity requiring careful planning"
	case "complex":
		complexity = "High complexity requiring architectural consideration"
	default:
		complexity = "High risk implementation requiring extensive validation"
	}

	readiness := "Success criteria may need refinement for optimal execution"
	if len(strings.Split(in.SuccessCriteria, "\n")) >= 3 {
		readiness = "Well-defined success criteria support clear development path"
	}

	return fmt.Sprintf(`## Prime's Logical Analysis

**Story Assessment**: %q

**Business Value**: %d/10 - %s

**Technical Complexity**: %s - %s

**Implementation Readiness**: %s`,
		in.Title, in.BusinessValue, value, in.Complexity, complexity, readiness)
}

func assessment(level string, score int) string {
	var detail string
	switch level {
	case LevelLow:
		detail = "Minimal risk identified. Standard development practices sufficient."
	case LevelMedium:
		detail = "Moderate risk detected. Enhanced testing and review recommended."
	default:
		detail = "Significant risk factors present. Comprehensive planning and validation required."
	}
	return fmt.Sprintf("Risk Level: %s (Score: %d)\n\n%s", level, score, detail)
}

func recommendations(rec string) string {
	var detail, steps string
	switch rec {
	case Approve:
		detail = "This story demonstrates good value-to-risk ratio and clear implementation path. Proceed with standard development workflow."
		steps = "• Assign to development team\n• Implement standard testing protocols\n• Monitor for typical completion blockers"
	case ProceedWithCaution:
		detail = "Story has merit but contains risk factors. Recommend additional planning phase and enhanced QA protocols."
		steps = "• Conduct architecture review session\n• Implement enhanced testing strategy\n• Plan rollback procedures"
	default:
		detail = "Story requires careful analysis before implementation. Consider breaking into smaller, less risky components or implementing additional safeguards."
		steps = "• Break story into smaller components\n• Identify risk mitigation strategies\n• Consider prototype or proof-of-concept phase"
	}
	return fmt.Sprintf("**Prime Recommendation**: %s\n\n%s\n\n**Suggested Next Steps**:\n%s", rec, detail, steps)
}
