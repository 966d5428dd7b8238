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

// MesaRepository persists exam boards and their sign-ups.
type MesaRepository struct {
	db *sqlx.DB
}

// NewMesaRepository constructs the repository.
func NewMesaRepository(db *sqlx.DB) *MesaRepository {
	return &MesaRepository{db: db}
}

const signupColumns = `id, mesa_id, student_id, condition, score, cuenta_para_intentos, created_at, updated_at`

// FindByID returns a mesa by ID.
func (r *MesaRepository) FindByID(ctx context.Context, id string) (*models.Mesa, error) {
	const query = `SELECT id, subject_id, type, modality, date, president_id, planilla_cerrada_en FROM mesas WHERE id = $1`
	var mesa models.Mesa
	if err := r.db.GetContext(ctx, &mesa, query, id); err != nil {
		return nil, err
	}
	return &mesa, nil
}

// CloseGradingSheet stamps planilla_cerrada_en when it is still open.
func (r *MesaRepository) CloseGradingSheet(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE mesas SET planilla_cerrada_en = $2 WHERE id = $1 AND planilla_cerrada_en IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("close mesa grading sheet: %w", err)
	}
	return nil
}

// FindSignup returns a sign-up by ID.
func (r *MesaRepository) FindSignup(ctx context.Context, id string) (*models.MesaSignup, error) {
	var signup models.MesaSignup
	if err := r.db.GetContext(ctx, &signup, `SELECT `+signupColumns+` FROM mesa_signups WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &signup, nil
}

// SignupExists reports whether the student is already signed up to the mesa.
func (r *MesaRepository) SignupExists(ctx context.Context, mesaID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM mesa_signups WHERE mesa_id = $1 AND student_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, mesaID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check mesa signup: %w", err)
	}
	return true, nil
}

// HasApprovedSignup reports whether the student holds an APROBADO sign-up on any mesa of subjectID.
func (r *MesaRepository) HasApprovedSignup(ctx context.Context, studentID, subjectID string) (bool, error) {
	const query = `SELECT 1 FROM mesa_signups ms JOIN mesas m ON m.id = ms.mesa_id
        WHERE ms.student_id = $1 AND m.subject_id = $2 AND ms.condition = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, subjectID, models.ConditionApproved); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check approved signup: %w", err)
	}
	return true, nil
}

// CreateSignup inserts a sign-up.
func (r *MesaRepository) CreateSignup(ctx context.Context, signup *models.MesaSignup) error {
	if signup.ID == "" {
		signup.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if signup.CreatedAt.IsZero() {
		signup.CreatedAt = now
	}
	signup.UpdatedAt = now
	query := `INSERT INTO mesa_signups (` + signupColumns + `)
        VALUES (:id, :mesa_id, :student_id, :condition, :score, :cuenta_para_intentos, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, signup); err != nil {
		return writeError("create mesa signup", err)
	}
	return nil
}

// UpdateResult stores the result of a PENDIENTE sign-up. It reports false when the row was no
// longer pending, so concurrent graders cannot move a terminal condition.
func (r *MesaRepository) UpdateResult(ctx context.Context, signup *models.MesaSignup) (bool, error) {
	signup.UpdatedAt = time.Now().UTC()
	const query = `UPDATE mesa_signups SET condition = $2, score = $3, cuenta_para_intentos = $4, updated_at = $5
        WHERE id = $1 AND condition = $6`
	res, err := r.db.ExecContext(ctx, query, signup.ID, signup.Condition, signup.Score, signup.CountsTowardAttempts, signup.UpdatedAt, models.ConditionPending)
	if err != nil {
		return false, fmt.Errorf("update signup result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update signup result rows: %w", err)
	}
	return affected == 1, nil
}

// DeleteSignup removes a sign-up.
func (r *MesaRepository) DeleteSignup(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM mesa_signups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete mesa signup: %w", err)
	}
	return nil
}
