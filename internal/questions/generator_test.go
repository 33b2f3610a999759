package questions

import (
	"reflect"
	"strings"
	"testing"

	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

func result(clauseID string, best float64) models.ClauseMatchResult {
	return models.ClauseMatchResult{
		ClauseID:       clauseID,
		ClauseTitle:    "Clause " + clauseID,
		BestSimilarity: best,
		Quality:        models.QualityForScore(best),
		Evidence:       "evidence for " + clauseID,
	}
}

func TestGenerate_SkipsCoveredClauses(t *testing.T) {
	g := NewGenerator()

	results := []models.ClauseMatchResult{
		result("C1", 0.90),
		result("C2", 0.50),
		result("C3", 0.10),
	}

	questions := g.Generate(results, nil)

	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	for _, q := range questions {
		if q.ClauseID == "C1" {
			t.Error("covered clause must not get a question")
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	results := []models.ClauseMatchResult{
		result("C1", 0.50),
		result("C2", 0.10),
		result("C3", 0.45),
		result("C4", 0.20),
	}

	first := NewGenerator().Generate(results, nil)
	second := NewGenerator().Generate(results, nil)

	if !reflect.DeepEqual(first, second) {
		t.Error("identical ordered input must yield identical questions")
	}
}

func TestGenerate_TemplatesByCoverage(t *testing.T) {
	g := NewGenerator()

	questions := g.Generate([]models.ClauseMatchResult{
		result("C1", 0.10), // MISSING
		result("C2", 0.50), // PARTIAL
	}, nil)

	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	if !containsTemplate(questions[0].QuestionText, missingTemplates) {
		t.Errorf("expected a missing template, got %q", questions[0].QuestionText)
	}
	if !containsTemplate(questions[1].QuestionText, partialTemplates) {
		t.Errorf("expected a partial template, got %q", questions[1].QuestionText)
	}
	if !strings.Contains(questions[0].QuestionText, "C1") {
		t.Errorf("question must reference the clause id, got %q", questions[0].QuestionText)
	}
}

func containsTemplate(text string, templates []string) bool {
	for _, tmpl := range templates {
		// Match on the fixed prefix before the first placeholder.
		prefix := tmpl[:strings.Index(tmpl, "%s")]
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

func TestGenerate_PriorityFromFindings(t *testing.T) {
	g := NewGenerator()

	results := []models.ClauseMatchResult{
		result("C1", 0.10),
		result("C2", 0.50),
		result("C3", 0.65),
	}
	findings := []models.GapFinding{
		{ClauseID: "C1", Severity: models.SeverityCritical},
		{ClauseID: "C2", Severity: models.SeverityMajor},
		{ClauseID: "C3", Severity: models.SeverityInformational},
	}

	questions := g.Generate(results, findings)

	want := map[string]models.QuestionPriority{
		"C1": models.PriorityCritical,
		"C2": models.PriorityHigh,
		"C3": models.PriorityLow,
	}
	for _, q := range questions {
		if q.Priority != want[q.ClauseID] {
			t.Errorf("%s: expected priority %s, got %s", q.ClauseID, want[q.ClauseID], q.Priority)
		}
	}
}

func TestGenerate_PriorityFromCoverageWithoutFinding(t *testing.T) {
	g := NewGenerator()

	questions := g.Generate([]models.ClauseMatchResult{
		result("C1", 0.10), // MISSING
		result("C2", 0.50), // PARTIAL
	}, nil)

	if questions[0].Priority != models.PriorityHigh {
		t.Errorf("missing without finding: expected HIGH, got %s", questions[0].Priority)
	}
	if questions[1].Priority != models.PriorityMedium {
		t.Errorf("partial without finding: expected MEDIUM, got %s", questions[1].Priority)
	}
}

func TestGenerate_ContextCarriesEvidence(t *testing.T) {
	g := NewGenerator()

	questions := g.Generate([]models.ClauseMatchResult{result("C1", 0.10)}, nil)

	if questions[0].Context != "evidence for C1" {
		t.Errorf("expected result evidence as context, got %q", questions[0].Context)
	}
}
