package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Document processing status values
const (
	DocumentStatusProcessing = "PROCESSING"
	DocumentStatusReady      = "READY"
	DocumentStatusFailed     = "FAILED"
)

// Document represents an ingested procedure document
type Document struct {
	ID             uuid.UUID
	Name           string
	Status         string
	ParagraphCount int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DocumentRepository defines the interface for document storage operations
type DocumentRepository interface {
	Create(ctx context.Context, document *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	List(ctx context.Context) ([]*Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, paragraphCount int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PostgresDocumentRepository implements DocumentRepository using PostgreSQL
type PostgresDocumentRepository struct {
	db *sql.DB
}

// NewPostgresDocumentRepository creates a new PostgresDocumentRepository
func NewPostgresDocumentRepository(db *sql.DB) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{db: db}
}

// Create inserts a new document record
func (r *PostgresDocumentRepository) Create(ctx context.Context, document *Document) error {
	if document.ID == uuid.Nil {
		document.ID = uuid.New()
	}

	now := time.Now()
	if document.CreatedAt.IsZero() {
		document.CreatedAt = now
	}
	document.UpdatedAt = now
	if document.Status == "" {
		document.Status = DocumentStatusProcessing
	}

	query := `
		INSERT INTO documents (id, name, status, paragraph_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		document.ID,
		document.Name,
		document.Status,
		document.ParagraphCount,
		document.CreatedAt,
		document.UpdatedAt,
	)

	return err
}

// GetByID retrieves a document by its ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	query := `
		SELECT id, name, status, paragraph_count, created_at, updated_at
		FROM documents
		WHERE id = $1
	`

	document := &Document{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&document.ID,
		&document.Name,
		&document.Status,
		&document.ParagraphCount,
		&document.CreatedAt,
		&document.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return document, nil
}

// List retrieves all documents, newest first
func (r *PostgresDocumentRepository) List(ctx context.Context) ([]*Document, error) {
	query := `
		SELECT id, name, status, paragraph_count, created_at, updated_at
		FROM documents
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []*Document
	for rows.Next() {
		document := &Document{}
		err := rows.Scan(
			&document.ID,
			&document.Name,
			&document.Status,
			&document.ParagraphCount,
			&document.CreatedAt,
			&document.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		documents = append(documents, document)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return documents, nil
}

// UpdateStatus records the outcome of document processing
func (r *PostgresDocumentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, paragraphCount int) error {
	query := `
		UPDATE documents
		SET status = $2, paragraph_count = $3, updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, paragraphCount, time.Now())
	return err
}

// Delete removes a document record
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
