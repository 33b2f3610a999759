package judge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

// singleResponseSchema is the Gemini response schema for one compliance
// result object.
func singleResponseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"requirement_id": map[string]any{"type": "string"},
			"evidence": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"moe_paragraph_id": map[string]any{"type": "integer"},
						"relevant_excerpt": map[string]any{"type": "string"},
						"similarity_score": map[string]any{"type": "number"},
					},
					"required": []string{"moe_paragraph_id", "relevant_excerpt"},
				},
			},
			"compliance_status": map[string]any{
				"type": "string",
				"enum": []string{"full", "partial", "non"},
			},
			"justification":       map[string]any{"type": "string"},
			"missing_elements":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"finding_level":       map[string]any{"type": "string"},
			"recommended_actions": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"requirement_id", "compliance_status", "justification"},
	}
}

// batchResponseSchema wraps the single schema into an array.
func batchResponseSchema() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": singleResponseSchema(),
	}
}

// decodeJudgements parses the raw model output into a judgement slice,
// tolerating markdown fences around the JSON.
func decodeJudgements(raw string) ([]models.Judgement, error) {
	cleaned := extractJSON(raw)
	if !strings.HasPrefix(cleaned, "[") {
		return nil, fmt.Errorf("%w: expected JSON array", ErrMalformedResponse)
	}

	var judgements []models.Judgement
	if err := json.Unmarshal([]byte(cleaned), &judgements); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return judgements, nil
}

// validateJudgement checks the structural contract of one judgement
// before it is trusted.
func validateJudgement(j models.Judgement) error {
	if j.RequirementID == "" {
		return fmt.Errorf("missing requirement_id")
	}
	switch j.ComplianceStatus {
	case "full", "partial", "non":
	default:
		return fmt.Errorf("unrecognized compliance_status %q", j.ComplianceStatus)
	}
	for i, ev := range j.Evidence {
		if ev.SimilarityScore < 0 || ev.SimilarityScore > 1 {
			return fmt.Errorf("evidence[%d] similarity_score %f out of range", i, ev.SimilarityScore)
		}
	}
	return nil
}

// extractJSON strips markdown fences and surrounding prose, keeping the
// outermost JSON array or object.
func extractJSON(raw string) string {
	cleaned := strings.NewReplacer("```json", "", "```", "", "`", "").Replace(raw)
	cleaned = strings.TrimSpace(cleaned)

	if a, b := strings.Index(cleaned, "["), strings.LastIndex(cleaned, "]"); a >= 0 && b > a {
		return cleaned[a : b+1]
	}
	if o, c := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); o >= 0 && c > o {
		return cleaned[o : c+1]
	}
	return ""
}
