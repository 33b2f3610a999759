package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/complyaudit/compliance-analyzer/internal/analysis"
	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

func TestPostgresRunRepository_SaveRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRunRepository(db)

	run := analysis.NewRun(uuid.New(), uuid.New())

	mock.ExpectExec("INSERT INTO analysis_runs").
		WithArgs(run.ID, run.DocumentID, run.RegulationID, "PENDING", "", sqlmock.AnyArg(), sqlmock.AnyArg(), nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.SaveRun(context.Background(), run); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRunRepository_SaveReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRunRepository(db)

	runID := uuid.New()
	report := models.DecisionReport{
		Recommendation:   models.RecommendApprove,
		ExecutiveSummary: "all requirements covered",
	}

	mock.ExpectExec("INSERT INTO run_artifacts").
		WithArgs(runID, ArtifactReport, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.SaveReport(context.Background(), runID, report); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRunRepository_GetRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRunRepository(db)

	runID := uuid.New()
	documentID := uuid.New()
	regulationID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "document_id", "regulation_id", "status", "error", "statistics", "created_at", "started_at", "completed_at"}).
		AddRow(runID.String(), documentID.String(), regulationID.String(), "COMPLETED", "", []byte(`{"total":10,"covered":8,"partial":1,"missing":1,"score":85.0,"quality_distribution":{"EXCELLENT":8}}`), now, now, now)

	mock.ExpectQuery("SELECT (.+) FROM analysis_runs WHERE id").
		WithArgs(runID).
		WillReturnRows(rows)

	record, err := repo.GetRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if record == nil {
		t.Fatal("expected run record")
	}

	if record.Status != analysis.StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", record.Status)
	}
	if record.Statistics.Total != 10 || record.Statistics.Covered != 8 {
		t.Errorf("unexpected statistics %+v", record.Statistics)
	}
	if record.Statistics.Score != 85.0 {
		t.Errorf("expected score 85.0, got %f", record.Statistics.Score)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRunRepository_GetRun_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRunRepository(db)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM analysis_runs WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "regulation_id", "status", "error", "statistics", "created_at", "started_at", "completed_at"}))

	record, err := repo.GetRun(context.Background(), id)
	if err != nil {
		t.Errorf("expected no error for missing row, got %v", err)
	}
	if record != nil {
		t.Error("expected nil record for missing row")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRunRepository_GetReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRunRepository(db)

	runID := uuid.New()
	payload := []byte(`{"recommendation":"APPROVE","executive_summary":"summary"}`)

	mock.ExpectQuery("SELECT payload FROM run_artifacts").
		WithArgs(runID, ArtifactReport).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	report, err := repo.GetReport(context.Background(), runID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report == nil {
		t.Fatal("expected report")
	}
	if report.Recommendation != models.RecommendApprove {
		t.Errorf("expected APPROVE, got %s", report.Recommendation)
	}
}

func TestPostgresRunRepository_GetReport_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRunRepository(db)

	runID := uuid.New()
	mock.ExpectQuery("SELECT payload FROM run_artifacts").
		WithArgs(runID, ArtifactReport).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	report, err := repo.GetReport(context.Background(), runID)
	if err != nil {
		t.Errorf("expected no error for missing artifact, got %v", err)
	}
	if report != nil {
		t.Error("expected nil report for missing artifact")
	}
}
