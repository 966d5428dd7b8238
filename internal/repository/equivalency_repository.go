package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ipes-academic-api/internal/models"
)

// EquivalencyRepository persists equivalency dispositions, their details and the synthesized actas.
type EquivalencyRepository struct {
	db *sqlx.DB
}

// NewEquivalencyRepository constructs the repository.
func NewEquivalencyRepository(db *sqlx.DB) *EquivalencyRepository {
	return &EquivalencyRepository{db: db}
}

// CreateDispositionTx inserts the disposition header.
func (r *EquivalencyRepository) CreateDispositionTx(ctx context.Context, tx *sqlx.Tx, disposition *models.EquivalencyDisposition) error {
	if disposition.ID == "" {
		disposition.ID = uuid.NewString()
	}
	if disposition.CreatedAt.IsZero() {
		disposition.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO equivalency_dispositions (id, student_id, career_id, plan_id, resolution_number, resolved_on, created_by, created_at)
        VALUES (:id, :student_id, :career_id, :plan_id, :resolution_number, :resolved_on, :created_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, disposition); err != nil {
		return fmt.Errorf("create equivalency disposition: %w", err)
	}
	return nil
}

// CreateDetailTx inserts one recognized subject.
func (r *EquivalencyRepository) CreateDetailTx(ctx context.Context, tx *sqlx.Tx, detail *models.EquivalencyDetail) error {
	if detail.ID == "" {
		detail.ID = uuid.NewString()
	}
	const query = `INSERT INTO equivalency_details (id, disposition_id, subject_id, score)
        VALUES (:id, :disposition_id, :subject_id, :score)`
	if _, err := tx.NamedExecContext(ctx, query, detail); err != nil {
		return fmt.Errorf("create equivalency detail: %w", err)
	}
	return nil
}

// CreateActaTx inserts a grade-book line.
func (r *EquivalencyRepository) CreateActaTx(ctx context.Context, tx *sqlx.Tx, acta *models.ActaRecord) error {
	if acta.ID == "" {
		acta.ID = uuid.NewString()
	}
	if acta.CreatedAt.IsZero() {
		acta.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO acta_records (id, student_dni, subject_id, source, grade, book, folio, exam_date, equivalency_detail_id, created_at)
        VALUES (:id, :student_dni, :subject_id, :source, :grade, :book, :folio, :exam_date, :equivalency_detail_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, acta); err != nil {
		return fmt.Errorf("create acta record: %w", err)
	}
	return nil
}

// HasDetail reports whether any disposition of the student recognizes subjectID.
func (r *EquivalencyRepository) HasDetail(ctx context.Context, studentID, subjectID string) (bool, error) {
	const query = `SELECT 1 FROM equivalency_details d JOIN equivalency_dispositions p ON p.id = d.disposition_id
        WHERE p.student_id = $1 AND d.subject_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check equivalency detail: %w", err)
	}
	return true, nil
}

// ListActaGrades returns the raw grade tokens recorded for a national ID and subject.
func (r *EquivalencyRepository) ListActaGrades(ctx context.Context, dni, subjectID string) ([]string, error) {
	const query = `SELECT grade FROM acta_records WHERE student_dni = $1 AND subject_id = $2`
	var grades []string
	if err := r.db.SelectContext(ctx, &grades, query, dni, subjectID); err != nil {
		return nil, fmt.Errorf("list acta grades: %w", err)
	}
	return grades, nil
}
