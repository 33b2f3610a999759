package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/complyaudit/compliance-analyzer/internal/analysis"
	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

// Artifact kinds persisted per run
const (
	ArtifactResults   = "results"
	ArtifactFindings  = "findings"
	ArtifactQuestions = "questions"
	ArtifactReport    = "report"
)

// RunRecord is the persisted view of one analysis run, without artifacts.
type RunRecord struct {
	ID           uuid.UUID
	DocumentID   uuid.UUID
	RegulationID uuid.UUID
	Status       analysis.RunStatus
	Error        string
	Statistics   analysis.Statistics
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// RunRepository defines the interface for analysis run storage operations.
// Artifact writes are append-only: one write per kind per run.
type RunRepository interface {
	SaveRun(ctx context.Context, run *analysis.Run) error
	SaveResults(ctx context.Context, runID uuid.UUID, results []models.ClauseMatchResult) error
	SaveFindings(ctx context.Context, runID uuid.UUID, findings []models.GapFinding) error
	SaveQuestions(ctx context.Context, runID uuid.UUID, qs []models.AuditorQuestion) error
	SaveReport(ctx context.Context, runID uuid.UUID, report models.DecisionReport) error

	GetRun(ctx context.Context, id uuid.UUID) (*RunRecord, error)
	GetResults(ctx context.Context, runID uuid.UUID) ([]models.ClauseMatchResult, error)
	GetFindings(ctx context.Context, runID uuid.UUID) ([]models.GapFinding, error)
	GetQuestions(ctx context.Context, runID uuid.UUID) ([]models.AuditorQuestion, error)
	GetReport(ctx context.Context, runID uuid.UUID) (*models.DecisionReport, error)
}

// PostgresRunRepository implements RunRepository using PostgreSQL.
// Artifacts are stored as JSONB payloads keyed by (run_id, kind).
type PostgresRunRepository struct {
	db *sql.DB
}

// NewPostgresRunRepository creates a new PostgresRunRepository
func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

// SaveRun upserts the run row. The pipeline calls it once per run after
// reaching a terminal status; status transitions never go backwards.
func (r *PostgresRunRepository) SaveRun(ctx context.Context, run *analysis.Run) error {
	stats, err := json.Marshal(run.Statistics)
	if err != nil {
		return fmt.Errorf("marshal statistics: %w", err)
	}

	query := `
		INSERT INTO analysis_runs (id, document_id, regulation_id, status, error, statistics, created_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    error = EXCLUDED.error,
		    statistics = EXCLUDED.statistics,
		    started_at = EXCLUDED.started_at,
		    completed_at = EXCLUDED.completed_at
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.DocumentID,
		run.RegulationID,
		string(run.Status),
		run.Error,
		stats,
		run.CreatedAt,
		run.StartedAt,
		run.CompletedAt,
	)

	return err
}

// SaveResults appends the coverage results artifact for a run
func (r *PostgresRunRepository) SaveResults(ctx context.Context, runID uuid.UUID, results []models.ClauseMatchResult) error {
	return r.saveArtifact(ctx, runID, ArtifactResults, results)
}

// SaveFindings appends the gap findings artifact for a run
func (r *PostgresRunRepository) SaveFindings(ctx context.Context, runID uuid.UUID, findings []models.GapFinding) error {
	return r.saveArtifact(ctx, runID, ArtifactFindings, findings)
}

// SaveQuestions appends the auditor questions artifact for a run
func (r *PostgresRunRepository) SaveQuestions(ctx context.Context, runID uuid.UUID, qs []models.AuditorQuestion) error {
	return r.saveArtifact(ctx, runID, ArtifactQuestions, qs)
}

// SaveReport appends the decision report artifact for a run
func (r *PostgresRunRepository) SaveReport(ctx context.Context, runID uuid.UUID, report models.DecisionReport) error {
	return r.saveArtifact(ctx, runID, ArtifactReport, report)
}

func (r *PostgresRunRepository) saveArtifact(ctx context.Context, runID uuid.UUID, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s artifact: %w", kind, err)
	}

	query := `
		INSERT INTO run_artifacts (run_id, kind, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err = r.db.ExecContext(ctx, query, runID, kind, data, time.Now())
	return err
}

// GetRun retrieves a run row by its ID
func (r *PostgresRunRepository) GetRun(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	query := `
		SELECT id, document_id, regulation_id, status, error, statistics, created_at, started_at, completed_at
		FROM analysis_runs
		WHERE id = $1
	`

	record := &RunRecord{}
	var status string
	var stats []byte

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.DocumentID,
		&record.RegulationID,
		&status,
		&record.Error,
		&stats,
		&record.CreatedAt,
		&record.StartedAt,
		&record.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record.Status = analysis.RunStatus(status)
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &record.Statistics); err != nil {
			return nil, fmt.Errorf("unmarshal statistics: %w", err)
		}
	}

	return record, nil
}

// GetResults retrieves the coverage results artifact for a run
func (r *PostgresRunRepository) GetResults(ctx context.Context, runID uuid.UUID) ([]models.ClauseMatchResult, error) {
	var results []models.ClauseMatchResult
	found, err := r.loadArtifact(ctx, runID, ArtifactResults, &results)
	if err != nil || !found {
		return nil, err
	}
	return results, nil
}

// GetFindings retrieves the gap findings artifact for a run
func (r *PostgresRunRepository) GetFindings(ctx context.Context, runID uuid.UUID) ([]models.GapFinding, error) {
	var findings []models.GapFinding
	found, err := r.loadArtifact(ctx, runID, ArtifactFindings, &findings)
	if err != nil || !found {
		return nil, err
	}
	return findings, nil
}

// GetQuestions retrieves the auditor questions artifact for a run
func (r *PostgresRunRepository) GetQuestions(ctx context.Context, runID uuid.UUID) ([]models.AuditorQuestion, error) {
	var qs []models.AuditorQuestion
	found, err := r.loadArtifact(ctx, runID, ArtifactQuestions, &qs)
	if err != nil || !found {
		return nil, err
	}
	return qs, nil
}

// GetReport retrieves the decision report artifact for a run
func (r *PostgresRunRepository) GetReport(ctx context.Context, runID uuid.UUID) (*models.DecisionReport, error) {
	var report models.DecisionReport
	found, err := r.loadArtifact(ctx, runID, ArtifactReport, &report)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &report, nil
}

func (r *PostgresRunRepository) loadArtifact(ctx context.Context, runID uuid.UUID, kind string, out any) (bool, error) {
	query := `
		SELECT payload
		FROM run_artifacts
		WHERE run_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var payload []byte
	err := r.db.QueryRowContext(ctx, query, runID, kind).Scan(&payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("unmarshal %s artifact: %w", kind, err)
	}

	return true, nil
}
