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

// RegularityRepository persists the regularity ledger and its planilla locks.
type RegularityRepository struct {
	db *sqlx.DB
}

// NewRegularityRepository constructs the repository.
func NewRegularityRepository(db *sqlx.DB) *RegularityRepository {
	return &RegularityRepository{db: db}
}

const regularityColumns = `id, student_id, subject_id, commission_id, situation, closing_date, final_score,
        attendance_pct, observations, recorded_by, created_at, superseded_at`

// FindCurrent returns the non-superseded regularity for (student, subject).
func (r *RegularityRepository) FindCurrent(ctx context.Context, studentID, subjectID string) (*models.Regularity, error) {
	query := `SELECT ` + regularityColumns + ` FROM regularities
        WHERE student_id = $1 AND subject_id = $2 AND superseded_at IS NULL
        ORDER BY created_at DESC LIMIT 1`
	var regularity models.Regularity
	if err := r.db.GetContext(ctx, &regularity, query, studentID, subjectID); err != nil {
		return nil, err
	}
	return &regularity, nil
}

// History returns every row for (student, subject), newest first.
func (r *RegularityRepository) History(ctx context.Context, studentID, subjectID string) ([]models.Regularity, error) {
	query := `SELECT ` + regularityColumns + ` FROM regularities
        WHERE student_id = $1 AND subject_id = $2 ORDER BY created_at DESC`
	var rows []models.Regularity
	if err := r.db.SelectContext(ctx, &rows, query, studentID, subjectID); err != nil {
		return nil, fmt.Errorf("list regularity history: %w", err)
	}
	return rows, nil
}

// HasPassedSituation reports whether any row for (student, subject) is PROMOCIONADO or APROBADO.
func (r *RegularityRepository) HasPassedSituation(ctx context.Context, studentID, subjectID string) (bool, error) {
	const query = `SELECT 1 FROM regularities WHERE student_id = $1 AND subject_id = $2 AND situation IN ($3, $4) LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, subjectID, models.SituationPromoted, models.SituationApproved); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check passed regularity: %w", err)
	}
	return true, nil
}

// SupersedeTx marks the current row for (student, subject) as history.
func (r *RegularityRepository) SupersedeTx(ctx context.Context, tx *sqlx.Tx, studentID, subjectID string, at time.Time) error {
	const query = `UPDATE regularities SET superseded_at = $3
        WHERE student_id = $1 AND subject_id = $2 AND superseded_at IS NULL`
	if _, err := tx.ExecContext(ctx, query, studentID, subjectID, at); err != nil {
		return fmt.Errorf("supersede regularity: %w", err)
	}
	return nil
}

// CreateTx inserts a new current regularity row.
func (r *RegularityRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, regularity *models.Regularity) error {
	if regularity.ID == "" {
		regularity.ID = uuid.NewString()
	}
	if regularity.CreatedAt.IsZero() {
		regularity.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO regularities (id, student_id, subject_id, commission_id, situation, closing_date,
        final_score, attendance_pct, observations, recorded_by, created_at, superseded_at)
        VALUES (:id, :student_id, :subject_id, :commission_id, :situation, :closing_date,
        :final_score, :attendance_pct, :observations, :recorded_by, :created_at, :superseded_at)`
	if _, err := tx.NamedExecContext(ctx, query, regularity); err != nil {
		return writeError("create regularity", err)
	}
	return nil
}

const lockColumns = `id, commission_id, subject_id, virtual_year, closed_at, closed_by`

// FindLockForScopeTx returns the lock covering scope, if any. A commission write is also covered by a
// lock on its (subject, academic year) pair.
func (r *RegularityRepository) FindLockForScopeTx(ctx context.Context, tx *sqlx.Tx, scope models.LockScope) (*models.PlanillaLock, error) {
	var (
		query string
		args  []interface{}
	)
	switch {
	case scope.ByCommission():
		query = `SELECT l.id, l.commission_id, l.subject_id, l.virtual_year, l.closed_at, l.closed_by
            FROM planilla_locks l, commissions c
            WHERE c.id = $1 AND (l.commission_id = c.id OR (l.subject_id = c.subject_id AND l.virtual_year = c.academic_year))
            LIMIT 1`
		args = []interface{}{*scope.CommissionID}
	case scope.BySubjectYear():
		query = `SELECT ` + lockColumns + ` FROM planilla_locks WHERE subject_id = $1 AND virtual_year = $2 LIMIT 1`
		args = []interface{}{*scope.SubjectID, *scope.VirtualYear}
	default:
		return nil, fmt.Errorf("lock scope without mode")
	}
	var lock models.PlanillaLock
	if err := tx.GetContext(ctx, &lock, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find planilla lock: %w", err)
	}
	return &lock, nil
}

// CreateLockTx persists a planilla lock. The table carries a CHECK constraint mirroring LockScope.Valid.
func (r *RegularityRepository) CreateLockTx(ctx context.Context, tx *sqlx.Tx, lock *models.PlanillaLock) error {
	if lock.ID == "" {
		lock.ID = uuid.NewString()
	}
	if lock.ClosedAt.IsZero() {
		lock.ClosedAt = time.Now().UTC()
	}
	const query = `INSERT INTO planilla_locks (id, commission_id, subject_id, virtual_year, closed_at, closed_by)
        VALUES (:id, :commission_id, :subject_id, :virtual_year, :closed_at, :closed_by)`
	if _, err := tx.NamedExecContext(ctx, query, lock); err != nil {
		return writeError("create planilla lock", err)
	}
	return nil
}

// FindLock returns a lock by ID.
func (r *RegularityRepository) FindLock(ctx context.Context, id string) (*models.PlanillaLock, error) {
	var lock models.PlanillaLock
	if err := r.db.GetContext(ctx, &lock, `SELECT `+lockColumns+` FROM planilla_locks WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &lock, nil
}

// DeleteLock reopens a grading sheet.
func (r *RegularityRepository) DeleteLock(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM planilla_locks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete planilla lock: %w", err)
	}
	return nil
}
