package questions

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

// fixedSeed makes template selection reproducible: identical ordered
// input yields byte-identical questions across runs.
const fixedSeed = 42

var missingTemplates = []string{
	"How does the organization address the requirement for %s (%s)?",
	"Where in the document is %s (%s) documented?",
	"What procedures are in place to ensure compliance with %s (%s)?",
}

var partialTemplates = []string{
	"Can you provide additional evidence demonstrating full compliance with %s (%s)?",
	"Please clarify how the organization fully implements %s (%s).",
	"The document partially addresses %s (%s) - what additional documentation exists?",
}

// Generator synthesizes auditor questions for clauses whose coverage is
// not covered. The PRNG is injected so reproducibility is a constructor
// contract rather than an implicit global.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator seeded with the fixed constant used
// for reproducible audit reports.
func NewGenerator() *Generator {
	return NewGeneratorWithRand(rand.New(rand.NewSource(fixedSeed)))
}

// NewGeneratorWithRand creates a generator with an explicit PRNG.
func NewGeneratorWithRand(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Generate produces one question per non-covered clause result, in input
// order. Priority is taken from the clause's gap finding when one exists,
// otherwise from its coverage status.
func (g *Generator) Generate(results []models.ClauseMatchResult, findings []models.GapFinding) []models.AuditorQuestion {
	findingByClause := make(map[string]models.GapFinding, len(findings))
	for _, f := range findings {
		if _, exists := findingByClause[f.ClauseID]; !exists {
			findingByClause[f.ClauseID] = f
		}
	}

	var questions []models.AuditorQuestion
	for _, result := range results {
		coverage := result.Coverage()
		if coverage == models.CoverageCovered {
			continue
		}

		templates := missingTemplates
		if coverage == models.CoveragePartial {
			templates = partialTemplates
		}

		template := templates[g.rng.Intn(len(templates))]
		questions = append(questions, models.AuditorQuestion{
			ClauseID:     result.ClauseID,
			QuestionText: fmt.Sprintf(template, result.ClauseTitle, result.ClauseID),
			Priority:     priorityFor(result.ClauseID, coverage, findingByClause),
			Context:      result.Evidence,
		})
	}

	log.Printf("questions: generated %d auditor questions", len(questions))
	return questions
}

func priorityFor(clauseID string, coverage models.CoverageStatus, findingByClause map[string]models.GapFinding) models.QuestionPriority {
	if f, ok := findingByClause[clauseID]; ok {
		switch f.Severity {
		case models.SeverityCritical:
			return models.PriorityCritical
		case models.SeverityMajor:
			return models.PriorityHigh
		case models.SeverityMinor:
			return models.PriorityMedium
		case models.SeverityInformational:
			return models.PriorityLow
		}
	}

	if coverage == models.CoverageMissing {
		return models.PriorityHigh
	}
	return models.PriorityMedium
}
