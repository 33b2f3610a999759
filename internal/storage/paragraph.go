package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

// Paragraph is a stored procedure-document paragraph.
type Paragraph struct {
	ID         int64
	DocumentID uuid.UUID
	Text       string
	Section    string
	Position   int
	Embedding  pgvector.Vector
	CreatedAt  time.Time
}

// ParagraphRepository defines the interface for paragraph storage operations
type ParagraphRepository interface {
	CreateBatch(ctx context.Context, paragraphs []*Paragraph) error
	GetByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*Paragraph, error)
	LoadParagraphs(ctx context.Context, documentID uuid.UUID) ([]models.Paragraph, error)
	DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error
}

// PostgresParagraphRepository implements ParagraphRepository using PostgreSQL with pgvector
type PostgresParagraphRepository struct {
	db *sql.DB
}

// NewPostgresParagraphRepository creates a new PostgresParagraphRepository
func NewPostgresParagraphRepository(db *sql.DB) *PostgresParagraphRepository {
	return &PostgresParagraphRepository{db: db}
}

// CreateBatch inserts multiple paragraphs in a single transaction.
// Database-assigned IDs are written back onto the given paragraphs.
func (r *PostgresParagraphRepository) CreateBatch(ctx context.Context, paragraphs []*Paragraph) error {
	if len(paragraphs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_paragraphs (document_id, text, section, position, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range paragraphs {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}

		err := stmt.QueryRowContext(ctx,
			p.DocumentID,
			p.Text,
			p.Section,
			p.Position,
			p.Embedding,
			p.CreatedAt,
		).Scan(&p.ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByDocumentID retrieves all paragraphs of a document in reading order
func (r *PostgresParagraphRepository) GetByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*Paragraph, error) {
	query := `
		SELECT id, document_id, text, section, position, embedding, created_at
		FROM document_paragraphs
		WHERE document_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paragraphs []*Paragraph
	for rows.Next() {
		paragraph := &Paragraph{}
		err := rows.Scan(
			&paragraph.ID,
			&paragraph.DocumentID,
			&paragraph.Text,
			&paragraph.Section,
			&paragraph.Position,
			&paragraph.Embedding,
			&paragraph.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		paragraphs = append(paragraphs, paragraph)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return paragraphs, nil
}

// LoadParagraphs returns the paragraph set for a document in pipeline form.
func (r *PostgresParagraphRepository) LoadParagraphs(ctx context.Context, documentID uuid.UUID) ([]models.Paragraph, error) {
	stored, err := r.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	paragraphs := make([]models.Paragraph, 0, len(stored))
	for _, p := range stored {
		paragraphs = append(paragraphs, models.Paragraph{
			ID:        p.ID,
			Text:      p.Text,
			Section:   p.Section,
			Order:     p.Position,
			Embedding: p.Embedding.Slice(),
		})
	}

	return paragraphs, nil
}

// DeleteByDocumentID removes all paragraphs of a document
func (r *PostgresParagraphRepository) DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error {
	query := `DELETE FROM document_paragraphs WHERE document_id = $1`
	_, err := r.db.ExecContext(ctx, query, documentID)
	return err
}
