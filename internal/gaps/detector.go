package gaps

import (
	"fmt"
	"log"
	"strings"

	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

// Detector assigns gap severities from the match results. It is a pure,
// deterministic function of (best similarity, mandatory flag).
type Detector struct{}

// NewDetector creates a gap detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect produces one finding for every clause whose best score falls
// below the covered threshold. Duplicate clause ids in the reference set
// keep their first occurrence; collisions are logged.
func (d *Detector) Detect(results []models.ClauseMatchResult, clauses []models.Clause) []models.GapFinding {
	clauseByID := make(map[string]models.Clause, len(clauses))
	for _, c := range clauses {
		if _, exists := clauseByID[c.ClauseID]; exists {
			log.Printf("gaps: duplicate clause id %s in reference set, keeping first occurrence", c.ClauseID)
			continue
		}
		clauseByID[c.ClauseID] = c
	}

	var findings []models.GapFinding
	for _, result := range results {
		clause, ok := clauseByID[result.ClauseID]
		if !ok {
			continue
		}

		severity, hasGap := severityFor(result.BestSimilarity, clause.Mandatory)
		if !hasGap {
			continue
		}

		findings = append(findings, models.GapFinding{
			ClauseID:        result.ClauseID,
			ClauseTitle:     result.ClauseTitle,
			Severity:        severity,
			Description:     describe(result, clause),
			MissingElements: missingElements(result),
			SuggestedAction: suggestActions(result, clause),
			EstimatedEffort: estimateEffort(severity),
		})
	}

	log.Printf("gaps: detected %d gaps across %d clauses", len(findings), len(results))
	return findings
}

// severityFor implements the severity table. The second return is false
// when coverage is sufficient and no gap exists.
func severityFor(similarity float64, mandatory bool) (models.GapSeverity, bool) {
	switch {
	case similarity >= 0.75:
		return "", false
	case similarity < 0.30:
		if mandatory {
			return models.SeverityCritical, true
		}
		return models.SeverityMinor, true
	case similarity < 0.60:
		if mandatory {
			return models.SeverityMajor, true
		}
		return models.SeverityMinor, true
	default:
		return models.SeverityInformational, true
	}
}

func describe(result models.ClauseMatchResult, clause models.Clause) string {
	similarity := result.BestSimilarity

	if len(result.Matches) == 0 || similarity < 0.30 {
		return fmt.Sprintf("Required clause %s not found in the document", clause.ClauseID)
	}
	if similarity < 0.60 {
		return fmt.Sprintf("Insufficient coverage of %s (%.0f%% match)", clause.ClauseID, similarity*100)
	}
	return fmt.Sprintf("Partial coverage of %s", clause.ClauseID)
}

func missingElements(result models.ClauseMatchResult) string {
	if len(result.Matches) == 0 {
		return "Complete requirement missing"
	}
	return "Specific procedures and responsibilities need clarification"
}

// suggestActions references the distinct matched section identifiers,
// deduplicated and capped at 3.
func suggestActions(result models.ClauseMatchResult, clause models.Clause) string {
	var actions []string

	if len(result.Matches) == 0 {
		actions = append(actions,
			"Add new section addressing "+clause.Title,
			"Reference regulation "+clause.ClauseID,
		)
		return strings.Join(actions, "\n")
	}

	seen := make(map[string]bool)
	var sections []string
	for _, m := range result.Matches {
		section := m.Paragraph.Section
		if section == "" || seen[section] {
			continue
		}
		seen[section] = true
		sections = append(sections, section)
		if len(sections) == 3 {
			break
		}
	}

	actions = append(actions,
		"Expand existing content in sections: "+strings.Join(sections, ", "),
		"Add explicit reference to "+clause.ClauseID,
	)
	return strings.Join(actions, "\n")
}

func estimateEffort(severity models.GapSeverity) string {
	switch severity {
	case models.SeverityCritical:
		return "1-2 weeks"
	case models.SeverityMajor:
		return "3-5 days"
	case models.SeverityMinor:
		return "1-2 days"
	case models.SeverityInformational:
		return "Few hours"
	}
	return ""
}
