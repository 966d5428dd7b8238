package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ipes-academic-api/internal/models"
)

// SubjectRepository reads the structural curriculum data.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = `id, plan_id, name, year, cadence, format, created_at`

// FindByID returns a subject by ID.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListByPlan returns the subjects of a plan ordered by curricular year.
func (r *SubjectRepository) ListByPlan(ctx context.Context, planID string) ([]models.Subject, error) {
	var subjects []models.Subject
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE plan_id = $1 ORDER BY year ASC, name ASC`
	if err := r.db.SelectContext(ctx, &subjects, query, planID); err != nil {
		return nil, fmt.Errorf("list plan subjects: %w", err)
	}
	return subjects, nil
}

// FindPlan returns a curriculum plan by ID.
func (r *SubjectRepository) FindPlan(ctx context.Context, id string) (*models.Plan, error) {
	const query = `SELECT id, career_id, resolution, active FROM plans WHERE id = $1`
	var plan models.Plan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}
