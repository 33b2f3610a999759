package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/complyaudit/compliance-analyzer/internal/classifier"
	"github.com/complyaudit/compliance-analyzer/internal/decision"
	"github.com/complyaudit/compliance-analyzer/internal/gaps"
	"github.com/complyaudit/compliance-analyzer/internal/questions"
	"github.com/complyaudit/compliance-analyzer/internal/similarity"
	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

var (
	// ErrClausesNotFound means the reference clause set for the run is
	// missing. Fatal: the run fails.
	ErrClausesNotFound = errors.New("analysis: clause set not found")

	// ErrParagraphsNotFound means the subject paragraph set for the run
	// is missing. Fatal: the run fails.
	ErrParagraphsNotFound = errors.New("analysis: paragraph set not found")
)

// ClauseSource supplies the reference clause set for a regulation.
type ClauseSource interface {
	LoadClauses(ctx context.Context, regulationID uuid.UUID) ([]models.Clause, error)
}

// ParagraphSource supplies the subject paragraph set for a document.
type ParagraphSource interface {
	LoadParagraphs(ctx context.Context, documentID uuid.UUID) ([]models.Paragraph, error)
}

// Sink receives a run's artifacts. Writes are append-only, one per
// artifact kind; sinks must not mutate what they are given.
type Sink interface {
	SaveRun(ctx context.Context, run *Run) error
	SaveResults(ctx context.Context, runID uuid.UUID, results []models.ClauseMatchResult) error
	SaveFindings(ctx context.Context, runID uuid.UUID, findings []models.GapFinding) error
	SaveQuestions(ctx context.Context, runID uuid.UUID, qs []models.AuditorQuestion) error
	SaveReport(ctx context.Context, runID uuid.UUID, report models.DecisionReport) error
}

// Orchestrator sequences the pipeline stages over one analysis run.
type Orchestrator struct {
	clauses    ClauseSource
	paragraphs ParagraphSource
	sink       Sink

	engine     *similarity.Engine
	classifier *classifier.Classifier
	detector   *gaps.Detector
	decider    *decision.Generator
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(clauses ClauseSource, paragraphs ParagraphSource, sink Sink, engine *similarity.Engine, cls *classifier.Classifier) *Orchestrator {
	return &Orchestrator{
		clauses:    clauses,
		paragraphs: paragraphs,
		sink:       sink,
		engine:     engine,
		classifier: cls,
		detector:   gaps.NewDetector(),
		decider:    decision.NewGenerator(),
	}
}

// Analyze executes one full run. It never returns an error for pipeline
// failures: the run itself carries the terminal status and, on failure,
// the captured reason. Artifacts produced before a failure stay on the
// run for diagnostics but the run is not reported successful.
func (o *Orchestrator) Analyze(ctx context.Context, documentID, regulationID uuid.UUID) *Run {
	run := NewRun(documentID, regulationID)
	o.Execute(ctx, run)
	return run
}

// NewRun creates a pending run for a document/regulation pair. Callers
// that want the run ID before execution starts (async API flows) create
// the run first, then hand it to Execute.
func NewRun(documentID, regulationID uuid.UUID) *Run {
	return &Run{
		ID:           uuid.New(),
		DocumentID:   documentID,
		RegulationID: regulationID,
		Status:       StatusPending,
		CreatedAt:    time.Now(),
	}
}

// Execute drives a pending run to a terminal status and persists it.
func (o *Orchestrator) Execute(ctx context.Context, run *Run) {
	run.start()
	o.execute(ctx, run)

	if o.sink != nil {
		if err := o.sink.SaveRun(ctx, run); err != nil {
			log.Printf("analysis: run %s: persist run: %v", run.ID, err)
		}
	}
}

// execute runs the pipeline stages, catching any panic at this boundary
// so no failure escapes to the caller as an exception.
func (o *Orchestrator) execute(ctx context.Context, run *Run) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("analysis: run %s panicked: %v", run.ID, r)
			run.fail(fmt.Sprintf("analysis panicked: %v", r))
		}
	}()

	clauses, err := o.clauses.LoadClauses(ctx, run.RegulationID)
	if err != nil {
		run.fail(err.Error())
		return
	}
	if len(clauses) == 0 {
		run.fail(fmt.Sprintf("%v: regulation %s", ErrClausesNotFound, run.RegulationID))
		return
	}

	paragraphs, err := o.paragraphs.LoadParagraphs(ctx, run.DocumentID)
	if err != nil {
		run.fail(err.Error())
		return
	}
	if len(paragraphs) == 0 {
		run.fail(fmt.Sprintf("%v: document %s", ErrParagraphsNotFound, run.DocumentID))
		return
	}

	log.Printf("analysis: run %s: %d clauses vs %d paragraphs", run.ID, len(clauses), len(paragraphs))

	matches := o.engine.RankMatches(clauses, paragraphs)

	run.Results = o.classifier.Classify(ctx, clauses, matches)
	o.persist(ctx, run.ID, "results", func() error {
		return o.sink.SaveResults(ctx, run.ID, run.Results)
	})

	run.Findings = o.detector.Detect(run.Results, clauses)
	o.persist(ctx, run.ID, "findings", func() error {
		return o.sink.SaveFindings(ctx, run.ID, run.Findings)
	})

	// Fresh generator per run so template selection is reproducible for
	// identical ordered input.
	run.Questions = questions.NewGenerator().Generate(run.Results, run.Findings)
	o.persist(ctx, run.ID, "questions", func() error {
		return o.sink.SaveQuestions(ctx, run.ID, run.Questions)
	})

	report := o.decider.Generate(run.Results, run.Findings)
	run.Report = &report
	o.persist(ctx, run.ID, "report", func() error {
		return o.sink.SaveReport(ctx, run.ID, report)
	})

	run.complete(computeStatistics(run.Results))
	log.Printf("analysis: run %s completed: %d/%d covered, score %.2f, recommendation %s",
		run.ID, run.Statistics.Covered, run.Statistics.Total, run.Statistics.Score, report.Recommendation)
}

// persist writes one artifact, tolerating a nil sink. Persistence errors
// are logged, not fatal: artifact writes are independent side effects
// with no cross-stage rollback.
func (o *Orchestrator) persist(ctx context.Context, runID uuid.UUID, kind string, write func() error) {
	if o.sink == nil {
		return
	}
	if err := write(); err != nil {
		log.Printf("analysis: run %s: persist %s: %v", runID, kind, err)
	}
}

// computeStatistics derives the aggregate counts and weighted score.
func computeStatistics(results []models.ClauseMatchResult) Statistics {
	stats := Statistics{
		Total:               len(results),
		QualityDistribution: make(map[models.MatchQuality]int),
	}

	for _, r := range results {
		stats.QualityDistribution[r.Quality]++
		switch r.Coverage() {
		case models.CoverageCovered:
			stats.Covered++
		case models.CoveragePartial:
			stats.Partial++
		case models.CoverageMissing:
			stats.Missing++
		}
	}

	if stats.Total > 0 {
		score := (float64(stats.Covered) + 0.5*float64(stats.Partial)) / float64(stats.Total) * 100
		stats.Score = math.Round(score*100) / 100
	}

	return stats
}
