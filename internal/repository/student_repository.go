package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ipes-academic-api/internal/models"
)

// StudentRepository reads students and their career admissions.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, dni, first_name, last_name, email, active, created_at, updated_at`

// FindByID returns a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByDNI returns a student by national ID.
func (r *StudentRepository) FindByDNI(ctx context.Context, dni string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, `SELECT `+studentColumns+` FROM students WHERE dni = $1`, dni); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindActiveCareerEnrollment returns the ACTIVE admission of a student to a career.
func (r *StudentRepository) FindActiveCareerEnrollment(ctx context.Context, studentID, careerID string) (*models.CareerEnrollment, error) {
	const query = `SELECT id, student_id, career_id, plan_id, status, enrolled_at
        FROM career_enrollments WHERE student_id = $1 AND career_id = $2 AND status = $3
        ORDER BY enrolled_at DESC LIMIT 1`
	var enrollment models.CareerEnrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, careerID, models.CareerEnrollmentActive); err != nil {
		return nil, err
	}
	return &enrollment, nil
}
