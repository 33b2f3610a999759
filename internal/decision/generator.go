package decision

import (
	"fmt"
	"strings"

	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

// Generator turns aggregate gap and coverage counts into an approval
// recommendation and a narrative report. Pure function; no I/O.
type Generator struct{}

// NewGenerator creates a decision support generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate evaluates the recommendation cascade and builds the narrative
// executive summary.
func (g *Generator) Generate(results []models.ClauseMatchResult, findings []models.GapFinding) models.DecisionReport {
	var critical, major int
	for _, f := range findings {
		switch f.Severity {
		case models.SeverityCritical:
			critical++
		case models.SeverityMajor:
			major++
		}
	}

	var covered, partial int
	for _, r := range results {
		switch r.Coverage() {
		case models.CoverageCovered:
			covered++
		case models.CoveragePartial:
			partial++
		}
	}

	recommendation := recommend(critical, major, covered, len(results))

	return models.DecisionReport{
		Recommendation:   recommendation,
		ExecutiveSummary: buildSummary(len(results), covered, partial, critical, major, recommendation),
	}
}

// recommend is an ordered cascade: the first matching rule wins.
func recommend(critical, major, covered, total int) models.ApprovalRecommendation {
	if critical > 3 {
		return models.RecommendReject
	}
	if critical > 0 || major > 5 {
		return models.RecommendMajorRevisions
	}
	if major > 0 {
		return models.RecommendMinorRevisions
	}

	if total > 0 && float64(covered)/float64(total) >= 0.95 {
		return models.RecommendApprove
	}
	return models.RecommendConditionalApproval
}

func buildSummary(total, covered, partial, critical, major int, recommendation models.ApprovalRecommendation) string {
	missing := total - covered - partial

	pct := func(n int) float64 {
		if total == 0 {
			return 0
		}
		return float64(n) / float64(total) * 100
	}

	var sb strings.Builder
	sb.WriteString("COMPLIANCE ANALYSIS SUMMARY\n\n")
	fmt.Fprintf(&sb, "Overall Assessment: %s\n\n", recommendation)
	sb.WriteString("Coverage Statistics:\n")
	fmt.Fprintf(&sb, "- Total Requirements: %d\n", total)
	fmt.Fprintf(&sb, "- Fully Covered: %d (%.0f%%)\n", covered, pct(covered))
	fmt.Fprintf(&sb, "- Partially Covered: %d (%.0f%%)\n", partial, pct(partial))
	fmt.Fprintf(&sb, "- Missing: %d (%.0f%%)\n\n", missing, pct(missing))
	sb.WriteString("Critical Findings:\n")
	fmt.Fprintf(&sb, "- Critical Gaps: %d\n", critical)
	fmt.Fprintf(&sb, "- Major Gaps: %d\n\n", major)
	fmt.Fprintf(&sb, "Recommendation: %s\n\n", recommendation)
	fmt.Fprintf(&sb, "Next Steps: %s\n", nextSteps(recommendation, critical, major))

	return sb.String()
}

func nextSteps(rec models.ApprovalRecommendation, critical, major int) string {
	switch rec {
	case models.RecommendApprove:
		return "Document approved. Proceed with certification."
	case models.RecommendConditionalApproval:
		return "Address minor findings before final approval."
	case models.RecommendMinorRevisions:
		return fmt.Sprintf("Address %d findings and resubmit.", major)
	case models.RecommendMajorRevisions:
		return fmt.Sprintf("Comprehensive revision required. %d critical and %d major gaps identified.", critical, major)
	case models.RecommendReject:
		return "Document does not meet minimum requirements. Complete restructure needed."
	}
	return ""
}
