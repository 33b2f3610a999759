package models

// Clause represents a single regulatory requirement clause.
// Immutable once loaded for an analysis run.
type Clause struct {
	ClauseID  string    `json:"clause_id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Mandatory bool      `json:"mandatory"`
	Embedding []float32 `json:"-"`
}

// Paragraph represents a single unit of text from the subject document.
type Paragraph struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Section   string    `json:"section"`
	Order     int       `json:"order"`
	Embedding []float32 `json:"-"`
}

// Match pairs a paragraph with its similarity score against a clause.
type Match struct {
	Paragraph  Paragraph `json:"paragraph"`
	Similarity float64   `json:"similarity"`
}

// MatchQuality grades a clause result from its best score.
type MatchQuality string

const (
	QualityExcellent MatchQuality = "EXCELLENT" // >=0.90
	QualityGood      MatchQuality = "GOOD"      // >=0.75
	QualityAdequate  MatchQuality = "ADEQUATE"  // >=0.60
	QualityWeak      MatchQuality = "WEAK"      // >=0.40
	QualityPoor      MatchQuality = "POOR"      // >=0.30
	QualityNotFound  MatchQuality = "NOT_FOUND" // <0.30
)

// QualityForScore maps a score in [0,1] to its quality band.
func QualityForScore(score float64) MatchQuality {
	switch {
	case score >= 0.90:
		return QualityExcellent
	case score >= 0.75:
		return QualityGood
	case score >= 0.60:
		return QualityAdequate
	case score >= 0.40:
		return QualityWeak
	case score >= 0.30:
		return QualityPoor
	default:
		return QualityNotFound
	}
}

// CoverageStatus classifies how well a clause is addressed.
type CoverageStatus string

const (
	CoverageCovered CoverageStatus = "COVERED" // >=0.75
	CoveragePartial CoverageStatus = "PARTIAL" // >=0.40
	CoverageMissing CoverageStatus = "MISSING" // <0.40
)

// CoverageForScore maps a score in [0,1] to its coverage status.
func CoverageForScore(score float64) CoverageStatus {
	switch {
	case score >= 0.75:
		return CoverageCovered
	case score >= 0.40:
		return CoveragePartial
	default:
		return CoverageMissing
	}
}

// EvidenceItem is one piece of supporting evidence in a judgement.
type EvidenceItem struct {
	ParagraphID     int64   `json:"moe_paragraph_id"`
	RelevantExcerpt string  `json:"relevant_excerpt"`
	SimilarityScore float64 `json:"similarity_score"`
}

// Judgement is the structured compliance opinion returned by the
// external adjudication service for one requirement.
type Judgement struct {
	RequirementID      string         `json:"requirement_id"`
	Evidence           []EvidenceItem `json:"evidence"`
	ComplianceStatus   string         `json:"compliance_status"` // full | partial | non
	Justification      string         `json:"justification"`
	MissingElements    []string       `json:"missing_elements"`
	FindingLevel       string         `json:"finding_level"`
	RecommendedActions []string       `json:"recommended_actions"`
}

// Score maps the judgement's compliance status to a numeric score.
func (j Judgement) Score() float64 {
	switch j.ComplianceStatus {
	case "full":
		return 1.0
	case "partial":
		return 0.5
	default:
		return 0.0
	}
}

// ClauseMatchResult is the per-clause outcome of the matching pipeline.
// Exactly one exists per input clause.
type ClauseMatchResult struct {
	ClauseID       string       `json:"clause_id"`
	ClauseTitle    string       `json:"clause_title"`
	Matches        []Match      `json:"matches"`
	BestSimilarity float64      `json:"best_similarity"`
	Quality        MatchQuality `json:"quality"`
	Evidence       string       `json:"evidence"`
	Judgement      *Judgement   `json:"judgement,omitempty"`
}

// Coverage returns the presentation coverage status for this result.
func (r ClauseMatchResult) Coverage() CoverageStatus {
	return CoverageForScore(r.BestSimilarity)
}

// GapSeverity ranks a detected deficiency.
type GapSeverity string

const (
	SeverityCritical      GapSeverity = "CRITICAL"
	SeverityMajor         GapSeverity = "MAJOR"
	SeverityMinor         GapSeverity = "MINOR"
	SeverityInformational GapSeverity = "INFORMATIONAL"
)

// GapFinding records a deficiency for a clause whose coverage falls
// short of covered.
type GapFinding struct {
	ClauseID        string      `json:"clause_id"`
	ClauseTitle     string      `json:"clause_title"`
	Severity        GapSeverity `json:"severity"`
	Description     string      `json:"description"`
	MissingElements string      `json:"missing_elements"`
	SuggestedAction string      `json:"suggested_actions"`
	EstimatedEffort string      `json:"estimated_effort"`
}

// QuestionPriority ranks an auditor question.
type QuestionPriority string

const (
	PriorityCritical QuestionPriority = "CRITICAL"
	PriorityHigh     QuestionPriority = "HIGH"
	PriorityMedium   QuestionPriority = "MEDIUM"
	PriorityLow      QuestionPriority = "LOW"
)

// AuditorQuestion is a clarification question for a non-covered clause.
type AuditorQuestion struct {
	ClauseID     string           `json:"clause_id"`
	QuestionText string           `json:"question_text"`
	Priority     QuestionPriority `json:"priority"`
	Context      string           `json:"context"`
}

// ApprovalRecommendation is the overall verdict for a run.
type ApprovalRecommendation string

const (
	RecommendApprove             ApprovalRecommendation = "APPROVE"
	RecommendConditionalApproval ApprovalRecommendation = "CONDITIONAL_APPROVAL"
	RecommendMinorRevisions      ApprovalRecommendation = "MINOR_REVISIONS_REQUIRED"
	RecommendMajorRevisions      ApprovalRecommendation = "MAJOR_REVISIONS_REQUIRED"
	RecommendReject              ApprovalRecommendation = "REJECT"
)

// DecisionReport combines the recommendation with a narrative summary.
type DecisionReport struct {
	Recommendation   ApprovalRecommendation `json:"recommendation"`
	ExecutiveSummary string                 `json:"executive_summary"`
}
