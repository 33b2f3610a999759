package classifier

import (
	"context"
	"log"

	"github.com/complyaudit/compliance-analyzer/internal/judge"
	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

const (
	// HighSimilarity is the bar above which the embedding signal is
	// trusted without adjudication.
	HighSimilarity = 0.90

	// LowSimilarity is the bar below which a cosine-only result is
	// produced without adjudication.
	LowSimilarity = 0.25

	// MaxCandidatesForJudge caps the nearest paragraphs sent per clause.
	MaxCandidatesForJudge = 5

	// BatchSize is the number of ambiguous clauses per judge call.
	BatchSize = 5

	// DefaultMaxConcurrentBatches bounds the judge batch pool.
	DefaultMaxConcurrentBatches = 4
)

// Classifier triages clauses into HIGH / LOW / AMBIGUOUS bands from their
// best similarity and routes ambiguous clauses to the judge in fixed-size
// batches. It guarantees exactly one ClauseMatchResult per input clause.
type Classifier struct {
	judge                judge.Judge
	maxConcurrentBatches int
}

// New creates a classifier. A nil judge disables adjudication entirely:
// every ambiguous clause degrades to its cosine-only result.
func New(j judge.Judge) *Classifier {
	return &Classifier{
		judge:                j,
		maxConcurrentBatches: DefaultMaxConcurrentBatches,
	}
}

// ambiguousClause holds everything needed to adjudicate one clause and to
// fall back if adjudication fails.
type ambiguousClause struct {
	clause     models.Clause
	matches    []models.Match
	candidates []judge.CandidateParagraph
	bestSim    float64
}

// Classify produces one result per clause, consulting the judge only for
// the ambiguous band. Results are returned in input clause order
// regardless of batch completion order.
func (c *Classifier) Classify(ctx context.Context, clauses []models.Clause, matchesByClause map[string][]models.Match) []models.ClauseMatchResult {
	resultByID := make(map[string]models.ClauseMatchResult, len(clauses))
	var ambiguous []ambiguousClause

	high, low := 0, 0
	for _, clause := range clauses {
		matches := matchesByClause[clause.ClauseID]

		if len(matches) == 0 {
			low++
			resultByID[clause.ClauseID] = noMatchResult(clause)
			continue
		}

		bestSim := matches[0].Similarity

		switch {
		case bestSim >= HighSimilarity:
			high++
			resultByID[clause.ClauseID] = cosineOnlyResult(clause, matches, bestSim)
		case bestSim <= LowSimilarity:
			low++
			resultByID[clause.ClauseID] = cosineOnlyResult(clause, matches, bestSim)
		default:
			ambiguous = append(ambiguous, ambiguousClause{
				clause:     clause,
				matches:    matches,
				candidates: toCandidates(matches),
				bestSim:    bestSim,
			})
		}
	}

	log.Printf("classifier: HIGH=%d LOW=%d AMBIGUOUS=%d", high, low, len(ambiguous))

	if len(ambiguous) > 0 {
		for id, result := range c.adjudicate(ctx, ambiguous) {
			resultByID[id] = result
		}
	}

	// Present results in input order; parallel batch completion order
	// must not leak into the output.
	results := make([]models.ClauseMatchResult, 0, len(clauses))
	for _, clause := range clauses {
		results = append(results, resultByID[clause.ClauseID])
	}

	return results
}

// adjudicate splits ambiguous clauses into fixed-size batches and
// dispatches them concurrently. A failed or slow batch degrades only its
// own clauses to cosine-only results; sibling batches are unaffected.
func (c *Classifier) adjudicate(ctx context.Context, ambiguous []ambiguousClause) map[string]models.ClauseMatchResult {
	var batches [][]ambiguousClause
	for i := 0; i < len(ambiguous); i += BatchSize {
		end := i + BatchSize
		if end > len(ambiguous) {
			end = len(ambiguous)
		}
		batches = append(batches, ambiguous[i:end])
	}

	log.Printf("classifier: dispatching %d ambiguous clauses in %d batches", len(ambiguous), len(batches))

	type batchOutcome struct {
		results map[string]models.ClauseMatchResult
	}

	sem := make(chan struct{}, c.maxConcurrentBatches)
	out := make(chan batchOutcome, len(batches))

	for _, batch := range batches {
		sem <- struct{}{}
		go func(batch []ambiguousClause) {
			defer func() { <-sem }()
			out <- batchOutcome{results: c.processBatch(ctx, batch)}
		}(batch)
	}

	merged := make(map[string]models.ClauseMatchResult, len(ambiguous))
	for range batches {
		outcome := <-out
		for id, r := range outcome.results {
			merged[id] = r
		}
	}

	return merged
}

// processBatch calls the judge once for a batch and applies the
// per-clause fallback combinator: any clause without a validated
// judgement keeps its cosine-only result.
func (c *Classifier) processBatch(ctx context.Context, batch []ambiguousClause) map[string]models.ClauseMatchResult {
	var judgements map[string]models.Judgement
	if c.judge != nil {
		items := make([]judge.BatchItem, 0, len(batch))
		for _, ac := range batch {
			items = append(items, judge.BatchItem{
				RequirementID:   ac.clause.ClauseID,
				RequirementText: ac.clause.Text,
				Candidates:      ac.candidates,
			})
		}

		var err error
		judgements, err = c.judge.JudgeBatch(ctx, items)
		if err != nil {
			log.Printf("classifier: batch of %d failed, falling back to cosine-only: %v", len(batch), err)
		}
	}

	results := make(map[string]models.ClauseMatchResult, len(batch))
	fallbacks := 0

	for _, ac := range batch {
		j, ok := judgements[ac.clause.ClauseID]
		if !ok {
			fallbacks++
			results[ac.clause.ClauseID] = cosineOnlyResult(ac.clause, ac.matches, ac.bestSim)
			continue
		}
		results[ac.clause.ClauseID] = judgedResult(ac.clause, ac.matches, j)
	}

	if fallbacks > 0 {
		log.Printf("classifier: batch done, %d adjudicated, %d cosine fallbacks", len(batch)-fallbacks, fallbacks)
	}

	return results
}

// toCandidates converts the top matches into judge candidates.
func toCandidates(matches []models.Match) []judge.CandidateParagraph {
	n := len(matches)
	if n > MaxCandidatesForJudge {
		n = MaxCandidatesForJudge
	}

	candidates := make([]judge.CandidateParagraph, 0, n)
	for _, m := range matches[:n] {
		candidates = append(candidates, judge.CandidateParagraph{
			ParagraphID:     m.Paragraph.ID,
			Text:            m.Paragraph.Text,
			SimilarityScore: m.Similarity,
			Section:         m.Paragraph.Section,
			Order:           m.Paragraph.Order,
		})
	}

	return candidates
}
