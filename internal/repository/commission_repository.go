package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ipes-academic-api/internal/models"
)

// CommissionRepository persists subject offerings.
type CommissionRepository struct {
	db *sqlx.DB
}

// NewCommissionRepository constructs the repository.
func NewCommissionRepository(db *sqlx.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

// FindByID returns a commission by ID.
func (r *CommissionRepository) FindByID(ctx context.Context, id string) (*models.Commission, error) {
	const query = `SELECT id, subject_id, academic_year, code, shift, capacity, created_at FROM commissions WHERE id = $1`
	var commission models.Commission
	if err := r.db.GetContext(ctx, &commission, query, id); err != nil {
		return nil, err
	}
	return &commission, nil
}

// List returns commissions with their roster size derived from CONFIRMED enrollments.
func (r *CommissionRepository) List(ctx context.Context, filter models.CommissionFilter) ([]models.CommissionDetail, int, error) {
	var conditions []string
	var args []interface{}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		conditions = append(conditions, fmt.Sprintf("c.subject_id = $%d", len(args)))
	}
	if filter.AcademicYear > 0 {
		args = append(args, filter.AcademicYear)
		conditions = append(conditions, fmt.Sprintf("c.academic_year = $%d", len(args)))
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf(`SELECT c.id, c.subject_id, c.academic_year, c.code, c.shift, c.capacity, c.created_at,
        s.name AS subject_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.commission_id = c.id AND e.status = $%d) AS roster_size
        FROM commissions c JOIN subjects s ON s.id = c.subject_id%s
        ORDER BY c.academic_year DESC, s.name ASC, c.code ASC LIMIT %d OFFSET %d`, len(args)+1, clause, size, (page-1)*size)
	listArgs := append(append([]interface{}{}, args...), models.EnrollmentStatusConfirmed)
	var commissions []models.CommissionDetail
	if err := r.db.SelectContext(ctx, &commissions, query, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list commissions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM commissions c"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count commissions: %w", err)
	}
	return commissions, total, nil
}

// Create inserts a commission.
func (r *CommissionRepository) Create(ctx context.Context, commission *models.Commission) error {
	if commission.ID == "" {
		commission.ID = uuid.NewString()
	}
	if commission.CreatedAt.IsZero() {
		commission.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO commissions (id, subject_id, academic_year, code, shift, capacity, created_at)
        VALUES (:id, :subject_id, :academic_year, :code, :shift, :capacity, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, commission); err != nil {
		return fmt.Errorf("create commission: %w", err)
	}
	return nil
}
