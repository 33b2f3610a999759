package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

// Clause is a stored regulation requirement clause.
type Clause struct {
	ID           uuid.UUID
	RegulationID uuid.UUID
	ClauseID     string
	Title        string
	Text         string
	Mandatory    bool
	Embedding    pgvector.Vector
	CreatedAt    time.Time
}

// ClauseRepository defines the interface for clause storage operations
type ClauseRepository interface {
	CreateBatch(ctx context.Context, clauses []*Clause) error
	GetByRegulationID(ctx context.Context, regulationID uuid.UUID) ([]*Clause, error)
	LoadClauses(ctx context.Context, regulationID uuid.UUID) ([]models.Clause, error)
	DeleteByRegulationID(ctx context.Context, regulationID uuid.UUID) error
}

// PostgresClauseRepository implements ClauseRepository using PostgreSQL with pgvector
type PostgresClauseRepository struct {
	db *sql.DB
}

// NewPostgresClauseRepository creates a new PostgresClauseRepository
func NewPostgresClauseRepository(db *sql.DB) *PostgresClauseRepository {
	return &PostgresClauseRepository{db: db}
}

// CreateBatch inserts multiple clauses in a single transaction
func (r *PostgresClauseRepository) CreateBatch(ctx context.Context, clauses []*Clause) error {
	if len(clauses) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO regulation_clauses (id, regulation_id, clause_id, title, text, mandatory, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, c := range clauses {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}

		_, err := stmt.ExecContext(ctx,
			c.ID,
			c.RegulationID,
			c.ClauseID,
			c.Title,
			c.Text,
			c.Mandatory,
			c.Embedding,
			c.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByRegulationID retrieves all clauses belonging to a regulation,
// ordered by their clause reference
func (r *PostgresClauseRepository) GetByRegulationID(ctx context.Context, regulationID uuid.UUID) ([]*Clause, error) {
	query := `
		SELECT id, regulation_id, clause_id, title, text, mandatory, embedding, created_at
		FROM regulation_clauses
		WHERE regulation_id = $1
		ORDER BY clause_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, regulationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clauses []*Clause
	for rows.Next() {
		clause := &Clause{}
		err := rows.Scan(
			&clause.ID,
			&clause.RegulationID,
			&clause.ClauseID,
			&clause.Title,
			&clause.Text,
			&clause.Mandatory,
			&clause.Embedding,
			&clause.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return clauses, nil
}

// LoadClauses returns the clause set for a regulation in pipeline form.
func (r *PostgresClauseRepository) LoadClauses(ctx context.Context, regulationID uuid.UUID) ([]models.Clause, error) {
	stored, err := r.GetByRegulationID(ctx, regulationID)
	if err != nil {
		return nil, err
	}

	clauses := make([]models.Clause, 0, len(stored))
	for _, c := range stored {
		clauses = append(clauses, models.Clause{
			ClauseID:  c.ClauseID,
			Title:     c.Title,
			Text:      c.Text,
			Mandatory: c.Mandatory,
			Embedding: c.Embedding.Slice(),
		})
	}

	return clauses, nil
}

// DeleteByRegulationID removes all clauses belonging to a regulation
func (r *PostgresClauseRepository) DeleteByRegulationID(ctx context.Context, regulationID uuid.UUID) error {
	query := `DELETE FROM regulation_clauses WHERE regulation_id = $1`
	_, err := r.db.ExecContext(ctx, query, regulationID)
	return err
}
