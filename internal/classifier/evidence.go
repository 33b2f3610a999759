package classifier

import (
	"fmt"
	"strings"

	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

const excerptLength = 200

// noMatchResult is produced for a clause with no paragraph above the
// relevance threshold.
func noMatchResult(clause models.Clause) models.ClauseMatchResult {
	return models.ClauseMatchResult{
		ClauseID:       clause.ClauseID,
		ClauseTitle:    clause.Title,
		Matches:        []models.Match{},
		BestSimilarity: 0.0,
		Quality:        models.QualityNotFound,
		Evidence:       "No matching content found in the document for this requirement",
	}
}

// cosineOnlyResult builds a result from the embedding signal alone.
func cosineOnlyResult(clause models.Clause, matches []models.Match, bestSimilarity float64) models.ClauseMatchResult {
	var sb strings.Builder

	if len(matches) == 0 {
		sb.WriteString("No matching content identified by semantic search.")
	} else {
		sb.WriteString("Top semantic matches:\n")
		for i, m := range matches {
			if i == 3 {
				break
			}
			section := m.Paragraph.Section
			if section == "" {
				section = "N/A"
			}
			fmt.Fprintf(&sb, "  - Section %s (%.0f%%): %q\n",
				section, m.Similarity*100, truncate(m.Paragraph.Text, excerptLength))
		}
	}

	sb.WriteString("\nBased on embeddings only (not adjudicated).")

	return models.ClauseMatchResult{
		ClauseID:       clause.ClauseID,
		ClauseTitle:    clause.Title,
		Matches:        matches,
		BestSimilarity: bestSimilarity,
		Quality:        models.QualityForScore(bestSimilarity),
		Evidence:       strings.TrimSpace(sb.String()),
	}
}

// judgedResult builds a result from a validated judgement, mapping its
// compliance status to the numeric score that drives quality and
// downstream coverage.
func judgedResult(clause models.Clause, matches []models.Match, j models.Judgement) models.ClauseMatchResult {
	score := j.Score()
	jc := j

	return models.ClauseMatchResult{
		ClauseID:       clause.ClauseID,
		ClauseTitle:    clause.Title,
		Matches:        matches,
		BestSimilarity: score,
		Quality:        models.QualityForScore(score),
		Evidence:       evidenceFromJudgement(j),
		Judgement:      &jc,
	}
}

// evidenceFromJudgement renders the judgement as human-readable evidence
// text for presentation.
func evidenceFromJudgement(j models.Judgement) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Compliance status: %s\n", j.ComplianceStatus)
	if j.FindingLevel != "" {
		fmt.Fprintf(&sb, "Finding level: %s\n", j.FindingLevel)
	}
	if strings.TrimSpace(j.Justification) != "" {
		fmt.Fprintf(&sb, "Justification: %s\n", strings.TrimSpace(j.Justification))
	}

	if len(j.Evidence) > 0 {
		sb.WriteString("Evidence:\n")
		for i, ev := range j.Evidence {
			if i == 3 {
				break
			}
			fmt.Fprintf(&sb, "  - Paragraph %d (sim=%.2f): %q\n",
				ev.ParagraphID, ev.SimilarityScore, truncate(ev.RelevantExcerpt, excerptLength))
		}
	}

	if len(j.MissingElements) > 0 {
		sb.WriteString("Missing elements:\n")
		for _, m := range j.MissingElements {
			fmt.Fprintf(&sb, "  - %s\n", m)
		}
	}

	if len(j.RecommendedActions) > 0 {
		sb.WriteString("Recommended actions:\n")
		for _, a := range j.RecommendedActions {
			fmt.Fprintf(&sb, "  - %s\n", a)
		}
	}

	return strings.TrimSpace(sb.String())
}

func truncate(text string, maxLen int) string {
	t := strings.TrimSpace(text)
	if len(t) > maxLen {
		return t[:maxLen] + "..."
	}
	return t
}
