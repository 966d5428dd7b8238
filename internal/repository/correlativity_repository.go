package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ipes-academic-api/internal/models"
)

// CorrelativityRepository persists prerequisite edges between subjects.
type CorrelativityRepository struct {
	db *sqlx.DB
}

// NewCorrelativityRepository constructs the repository.
func NewCorrelativityRepository(db *sqlx.DB) *CorrelativityRepository {
	return &CorrelativityRepository{db: db}
}

const correlativitySelect = `SELECT c.id, c.subject_id, c.required_subject_id, s.name AS required_subject_name, c.kind
        FROM correlativities c
        JOIN subjects s ON s.id = c.required_subject_id`

// ListBySubject returns the edges leaving subjectID restricted to the provided kinds.
func (r *CorrelativityRepository) ListBySubject(ctx context.Context, subjectID string, kinds []models.CorrelativityKind) ([]models.Correlativity, error) {
	query := correlativitySelect + ` WHERE c.subject_id = $1`
	args := []interface{}{subjectID}
	if len(kinds) > 0 {
		marks := make([]string, len(kinds))
		for i, kind := range kinds {
			args = append(args, kind)
			marks[i] = fmt.Sprintf("$%d", len(args))
		}
		query += fmt.Sprintf(" AND c.kind IN (%s)", strings.Join(marks, ","))
	}
	query += " ORDER BY s.year ASC, s.name ASC"

	var edges []models.Correlativity
	if err := r.db.SelectContext(ctx, &edges, query, args...); err != nil {
		return nil, fmt.Errorf("list correlativities: %w", err)
	}
	return edges, nil
}

// ListByPlan returns every edge whose origin subject belongs to planID.
func (r *CorrelativityRepository) ListByPlan(ctx context.Context, planID string) ([]models.Correlativity, error) {
	query := correlativitySelect + ` JOIN subjects o ON o.id = c.subject_id WHERE o.plan_id = $1`
	var edges []models.Correlativity
	if err := r.db.SelectContext(ctx, &edges, query, planID); err != nil {
		return nil, fmt.Errorf("list plan correlativities: %w", err)
	}
	return edges, nil
}

// FindByID returns an edge by ID.
func (r *CorrelativityRepository) FindByID(ctx context.Context, id string) (*models.Correlativity, error) {
	var edge models.Correlativity
	if err := r.db.GetContext(ctx, &edge, correlativitySelect+` WHERE c.id = $1`, id); err != nil {
		return nil, err
	}
	return &edge, nil
}

// Exists checks whether the exact edge is already stored.
func (r *CorrelativityRepository) Exists(ctx context.Context, subjectID, requiredID string, kind models.CorrelativityKind) (bool, error) {
	const query = `SELECT 1 FROM correlativities WHERE subject_id = $1 AND required_subject_id = $2 AND kind = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, subjectID, requiredID, kind); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check correlativity: %w", err)
	}
	return true, nil
}

// Create inserts a new edge.
func (r *CorrelativityRepository) Create(ctx context.Context, edge *models.Correlativity) error {
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}
	const query = `INSERT INTO correlativities (id, subject_id, required_subject_id, kind)
        VALUES (:id, :subject_id, :required_subject_id, :kind)`
	if _, err := r.db.NamedExecContext(ctx, query, edge); err != nil {
		return writeError("create correlativity", err)
	}
	return nil
}

// Delete removes an edge.
func (r *CorrelativityRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM correlativities WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete correlativity: %w", err)
	}
	return nil
}
