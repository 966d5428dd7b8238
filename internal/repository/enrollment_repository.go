package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ipes-academic-api/internal/models"
)

// EnrollmentRepository handles persistence of subject enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, student_id, subject_id, commission_id, academic_year, status, created_at, cancelled_at`

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsActiveTx checks for a non-cancelled enrollment of (student, subject, year).
func (r *EnrollmentRepository) ExistsActiveTx(ctx context.Context, tx *sqlx.Tx, studentID, subjectID string, year int) (bool, error) {
	const query = `SELECT 1 FROM enrollments
        WHERE student_id = $1 AND subject_id = $2 AND academic_year = $3 AND status <> $4 LIMIT 1`
	var exists int
	if err := tx.GetContext(ctx, &exists, query, studentID, subjectID, year, models.EnrollmentStatusCancelled); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// HasConfirmed reports whether the student is currently cursando the subject in year.
func (r *EnrollmentRepository) HasConfirmed(ctx context.Context, studentID, subjectID string, year int) (bool, error) {
	const query = `SELECT 1 FROM enrollments
        WHERE student_id = $1 AND subject_id = $2 AND academic_year = $3 AND status = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, subjectID, year, models.EnrollmentStatusConfirmed); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check confirmed enrollment: %w", err)
	}
	return true, nil
}

// CreateTx persists a new enrollment record.
func (r *EnrollmentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusConfirmed
	}
	const query = `INSERT INTO enrollments (id, student_id, subject_id, commission_id, academic_year, status, created_at, cancelled_at)
        VALUES (:id, :student_id, :subject_id, :commission_id, :academic_year, :status, :created_at, :cancelled_at)`
	if _, err := tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return writeError("create enrollment", err)
	}
	return nil
}

// UpdateStatus updates status and cancelled_at for an enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, cancelledAt *time.Time) error {
	const query = `UPDATE enrollments SET status = $2, cancelled_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, cancelledAt); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// ListConfirmedIDsByCommission returns the IDs of CONFIRMED enrollments of a commission.
func (r *EnrollmentRepository) ListConfirmedIDsByCommission(ctx context.Context, commissionID string) ([]string, error) {
	const query = `SELECT id FROM enrollments WHERE commission_id = $1 AND status = $2 ORDER BY created_at ASC, id ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, commissionID, models.EnrollmentStatusConfirmed); err != nil {
		return nil, fmt.Errorf("list commission roster: %w", err)
	}
	return ids, nil
}

// ReassignTx points the given enrollments at commissionID without touching their state.
// IDs are processed in chunks to keep the parameter list bounded.
func (r *EnrollmentRepository) ReassignTx(ctx context.Context, tx *sqlx.Tx, enrollmentIDs []string, commissionID string) (int, error) {
	const chunkSize = 100
	moved := 0
	for start := 0; start < len(enrollmentIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(enrollmentIDs) {
			end = len(enrollmentIDs)
		}
		chunk := enrollmentIDs[start:end]
		marks := make([]string, len(chunk))
		args := make([]interface{}, 0, len(chunk)+1)
		args = append(args, commissionID)
		for i, id := range chunk {
			marks[i] = fmt.Sprintf("$%d", i+2)
			args = append(args, id)
		}
		query := fmt.Sprintf("UPDATE enrollments SET commission_id = $1 WHERE id IN (%s)", strings.Join(marks, ","))
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return moved, fmt.Errorf("reassign enrollments: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return moved, fmt.Errorf("reassign enrollments rows: %w", err)
		}
		moved += int(affected)
	}
	return moved, nil
}
