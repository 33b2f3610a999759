package similarity

import (
	"log"
	"runtime"
	"sort"

	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

const (
	// DefaultRelevanceThreshold filters out paragraph pairings with no
	// meaningful semantic relation before ranking.
	DefaultRelevanceThreshold = 0.30

	// MaxMatchesPerClause caps the ranked match list kept for presentation.
	MaxMatchesPerClause = 10
)

// Engine computes ranked, threshold-filtered paragraph matches for every
// clause in a reference set.
type Engine struct {
	threshold float64
	workers   int
}

// NewEngine creates an engine with the given relevance threshold.
// A non-positive threshold falls back to DefaultRelevanceThreshold and a
// non-positive worker count falls back to the available hardware
// parallelism.
func NewEngine(threshold float64, workers int) *Engine {
	if threshold <= 0 {
		threshold = DefaultRelevanceThreshold
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{threshold: threshold, workers: workers}
}

// clauseMatches is the unit of work a worker hands back to the reducer.
type clauseMatches struct {
	clauseID string
	matches  []models.Match
}

// RankMatches scans every paragraph for every clause and returns the
// ranked matches per clause id. Clauses and paragraphs without an
// embedding are skipped and logged, never treated as fatal. The scan is
// partitioned across a worker pool; workers return results as values over
// a channel and a single reducer assembles the final map, so there is no
// shared mutable state.
func (e *Engine) RankMatches(clauses []models.Clause, paragraphs []models.Paragraph) map[string][]models.Match {
	validClauses := make([]models.Clause, 0, len(clauses))
	for _, c := range clauses {
		if len(c.Embedding) == 0 {
			log.Printf("similarity: clause %s has no embedding, skipping", c.ClauseID)
			continue
		}
		validClauses = append(validClauses, c)
	}

	validParagraphs := make([]models.Paragraph, 0, len(paragraphs))
	for _, p := range paragraphs {
		if len(p.Embedding) == 0 {
			log.Printf("similarity: paragraph %d has no embedding, skipping", p.ID)
			continue
		}
		validParagraphs = append(validParagraphs, p)
	}

	log.Printf("similarity: scanning %d clauses x %d paragraphs on %d workers",
		len(validClauses), len(validParagraphs), e.workers)

	jobs := make(chan models.Clause)
	out := make(chan clauseMatches)

	for w := 0; w < e.workers; w++ {
		go func() {
			for clause := range jobs {
				out <- clauseMatches{
					clauseID: clause.ClauseID,
					matches:  e.scanClause(clause, validParagraphs),
				}
			}
		}()
	}

	go func() {
		for _, c := range validClauses {
			jobs <- c
		}
		close(jobs)
	}()

	// Single reducer: the only writer to the result map.
	results := make(map[string][]models.Match, len(validClauses))
	for range validClauses {
		cm := <-out
		results[cm.clauseID] = cm.matches
	}

	return results
}

// scanClause compares one clause against the full paragraph list and
// returns its ranked, threshold-filtered matches.
func (e *Engine) scanClause(clause models.Clause, paragraphs []models.Paragraph) []models.Match {
	var matches []models.Match
	for _, p := range paragraphs {
		sim := CosineSimilarity(clause.Embedding, p.Embedding)
		if sim >= e.threshold {
			matches = append(matches, models.Match{Paragraph: p, Similarity: sim})
		}
	}

	// Descending by similarity; ties broken by paragraph order within the
	// document so top-K selection is reproducible.
	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].Similarity != matches[b].Similarity {
			return matches[a].Similarity > matches[b].Similarity
		}
		return matches[a].Paragraph.Order < matches[b].Paragraph.Order
	})

	if len(matches) > MaxMatchesPerClause {
		matches = matches[:MaxMatchesPerClause]
	}

	return matches
}
