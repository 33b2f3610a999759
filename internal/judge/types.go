package judge

import (
	"context"
	"errors"

	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

// CandidateParagraph is the judge-ready view of a matched paragraph.
// It carries only what the adjudication service needs, not the full
// storage entity.
type CandidateParagraph struct {
	ParagraphID     int64   `json:"paragraph_id"`
	Text            string  `json:"text"`
	SimilarityScore float64 `json:"similarity_score"`
	Section         string  `json:"section,omitempty"`
	Order           int     `json:"order,omitempty"`
}

// BatchItem is one requirement plus its candidate paragraphs, submitted
// for adjudication.
type BatchItem struct {
	RequirementID   string
	RequirementText string
	Candidates      []CandidateParagraph
}

// Judge adjudicates requirement coverage through an external
// structured-output service. Implementations must never panic; a missing
// requirement id in the returned map means the caller should fall back
// to its similarity-only result for that clause.
type Judge interface {
	// JudgeBatch submits up to MaxBatchItems requirements in one call.
	// The returned map is keyed by requirement id and contains only
	// entries that passed schema validation; ids absent from the input
	// batch are discarded. A non-nil error means the whole call failed
	// (timeout, transport, malformed payload) and the map is empty.
	JudgeBatch(ctx context.Context, items []BatchItem) (map[string]models.Judgement, error)

	// JudgeSingle adjudicates one requirement under the single-call
	// timeout.
	JudgeSingle(ctx context.Context, item BatchItem) (*models.Judgement, error)
}

var (
	// ErrEmptyResponse is returned when the service produced no usable
	// judgement payload.
	ErrEmptyResponse = errors.New("judge: empty response")

	// ErrMalformedResponse is returned when the response body could not
	// be parsed as the expected JSON array.
	ErrMalformedResponse = errors.New("judge: malformed response")

	// ErrBatchTooLarge is returned when a batch exceeds MaxBatchItems.
	ErrBatchTooLarge = errors.New("judge: batch exceeds maximum size")
)
