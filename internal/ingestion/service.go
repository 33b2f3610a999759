package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/complyaudit/compliance-analyzer/internal/embeddings"
	"github.com/complyaudit/compliance-analyzer/internal/storage"
)

// ErrNoParagraphs means segmentation produced nothing usable from the
// supplied text.
var ErrNoParagraphs = errors.New("ingestion: no valid paragraphs extracted")

// ErrNoClauses means a clause set submission contained no clauses.
var ErrNoClauses = errors.New("ingestion: no clauses supplied")

// Service turns raw document text into embedded, stored paragraphs and
// regulation clause sets into embedded, stored clauses.
type Service struct {
	segmenter  *Segmenter
	provider   embeddings.Provider
	documents  storage.DocumentRepository
	paragraphs storage.ParagraphRepository
	clauses    storage.ClauseRepository
}

// NewService creates an ingestion Service.
func NewService(provider embeddings.Provider, documents storage.DocumentRepository, paragraphs storage.ParagraphRepository, clauses storage.ClauseRepository) *Service {
	return &Service{
		segmenter:  NewSegmenter(),
		provider:   provider,
		documents:  documents,
		paragraphs: paragraphs,
		clauses:    clauses,
	}
}

// Ingest segments the text, embeds every paragraph and persists the
// document with its paragraphs. The returned document is READY on
// success; on any failure the document row is marked FAILED before the
// error is returned.
func (s *Service) Ingest(ctx context.Context, name, text string) (*storage.Document, error) {
	document := &storage.Document{
		ID:     uuid.New(),
		Name:   name,
		Status: storage.DocumentStatusProcessing,
	}

	if err := s.documents.Create(ctx, document); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	segments := s.segmenter.Segment(text)
	if len(segments) == 0 {
		s.markFailed(ctx, document.ID)
		return nil, ErrNoParagraphs
	}

	log.Printf("ingestion: document %s: %d paragraphs", document.ID, len(segments))

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}

	vectors := s.provider.EmbedBatch(ctx, texts)

	paragraphs := make([]*storage.Paragraph, len(segments))
	for i, seg := range segments {
		paragraphs[i] = &storage.Paragraph{
			DocumentID: document.ID,
			Text:       seg.Text,
			Section:    seg.Section,
			Position:   i,
			Embedding:  pgvector.NewVector(vectors[seg.Text]),
		}
	}

	if err := s.paragraphs.CreateBatch(ctx, paragraphs); err != nil {
		s.markFailed(ctx, document.ID)
		return nil, fmt.Errorf("store paragraphs: %w", err)
	}

	document.Status = storage.DocumentStatusReady
	document.ParagraphCount = len(paragraphs)
	if err := s.documents.UpdateStatus(ctx, document.ID, storage.DocumentStatusReady, len(paragraphs)); err != nil {
		return nil, fmt.Errorf("update document status: %w", err)
	}

	return document, nil
}

// ClauseInput is one requirement clause of a submitted regulation.
type ClauseInput struct {
	ClauseID  string `json:"clause_id"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Mandatory bool   `json:"mandatory"`
}

// IngestClauses embeds and stores a regulation's clause set under a
// fresh regulation ID. Embedding input combines title and text so short
// clause bodies still carry their subject.
func (s *Service) IngestClauses(ctx context.Context, inputs []ClauseInput) (uuid.UUID, error) {
	if len(inputs) == 0 {
		return uuid.Nil, ErrNoClauses
	}

	regulationID := uuid.New()

	texts := make([]string, len(inputs))
	for i, in := range inputs {
		texts[i] = in.Title + "\n" + in.Text
	}

	vectors := s.provider.EmbedBatch(ctx, texts)

	clauses := make([]*storage.Clause, len(inputs))
	for i, in := range inputs {
		clauses[i] = &storage.Clause{
			RegulationID: regulationID,
			ClauseID:     in.ClauseID,
			Title:        in.Title,
			Text:         in.Text,
			Mandatory:    in.Mandatory,
			Embedding:    pgvector.NewVector(vectors[texts[i]]),
		}
	}

	if err := s.clauses.CreateBatch(ctx, clauses); err != nil {
		return uuid.Nil, fmt.Errorf("store clauses: %w", err)
	}

	log.Printf("ingestion: regulation %s: %d clauses", regulationID, len(clauses))
	return regulationID, nil
}

func (s *Service) markFailed(ctx context.Context, id uuid.UUID) {
	if err := s.documents.UpdateStatus(ctx, id, storage.DocumentStatusFailed, 0); err != nil {
		log.Printf("ingestion: document %s: mark failed: %v", id, err)
	}
}
