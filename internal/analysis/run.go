package analysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

// RunStatus is the lifecycle state of one analysis run.
// Valid transitions: PENDING -> IN_PROGRESS -> {COMPLETED | FAILED}.
type RunStatus string

const (
	StatusPending    RunStatus = "PENDING"
	StatusInProgress RunStatus = "IN_PROGRESS"
	StatusCompleted  RunStatus = "COMPLETED"
	StatusFailed     RunStatus = "FAILED"
)

// Statistics aggregates the per-clause coverage of a completed run.
type Statistics struct {
	Total   int `json:"total"`
	Covered int `json:"covered"`
	Partial int `json:"partial"`
	Missing int `json:"missing"`

	// Score is (covered + 0.5*partial)/total*100, rounded to 2 decimals.
	Score float64 `json:"score"`

	QualityDistribution map[models.MatchQuality]int `json:"quality_distribution"`
}

// Run is one analysis execution with its artifacts. A run always reaches
// a terminal status; COMPLETED carries the full artifact set, FAILED
// carries a human-readable reason plus whatever earlier stages produced
// (retained for diagnostics only).
type Run struct {
	ID           uuid.UUID  `json:"id"`
	DocumentID   uuid.UUID  `json:"document_id"`
	RegulationID uuid.UUID  `json:"regulation_id"`
	Status       RunStatus  `json:"status"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	Statistics Statistics `json:"statistics"`

	Results   []models.ClauseMatchResult `json:"results,omitempty"`
	Findings  []models.GapFinding        `json:"findings,omitempty"`
	Questions []models.AuditorQuestion   `json:"questions,omitempty"`
	Report    *models.DecisionReport     `json:"report,omitempty"`
}

func (r *Run) start() {
	now := time.Now()
	r.Status = StatusInProgress
	r.StartedAt = &now
}

func (r *Run) complete(stats Statistics) {
	now := time.Now()
	r.Status = StatusCompleted
	r.Statistics = stats
	r.CompletedAt = &now
}

func (r *Run) fail(reason string) {
	now := time.Now()
	r.Status = StatusFailed
	r.Error = reason
	r.CompletedAt = &now
}
