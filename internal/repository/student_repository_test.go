package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ipes-academic-api/internal/models"
)

func TestStudentRepositoryFindByDNI(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	now := time.Now()
	mock.ExpectQuery("FROM students WHERE dni = \\$1").
		WithArgs("30111222").
		WillReturnRows(sqlmock.NewRows([]string{"id", "dni", "first_name", "last_name", "email", "active", "created_at", "updated_at"}).
			AddRow("st-1", "30111222", "Lucía", "Ferreyra", "lucia@example.org", true, now, now))

	student, err := repo.FindByDNI(context.Background(), "30111222")
	require.NoError(t, err)
	assert.Equal(t, "st-1", student.ID)
	assert.True(t, student.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindActiveCareerEnrollment(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectQuery("FROM career_enrollments WHERE student_id = \\$1 AND career_id = \\$2 AND status = \\$3").
		WithArgs("st-1", "car-1", models.CareerEnrollmentActive).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindActiveCareerEnrollment(context.Background(), "st-1", "car-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryListByPlan(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := NewSubjectRepository(db)
	now := time.Now()
	mock.ExpectQuery("FROM subjects WHERE plan_id = \\$1 ORDER BY year ASC, name ASC").
		WithArgs("plan-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_id", "name", "year", "cadence", "format", "created_at"}).
			AddRow("subj-1", "plan-1", "Pedagogía", 1, "ANNUAL", "ASIGNATURA", now).
			AddRow("subj-2", "plan-1", "Práctica Docente II", 2, "ANNUAL", "TALLER", now))

	subjects, err := repo.ListByPlan(context.Background(), "plan-1")
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, 2, subjects[1].Year)
	require.NoError(t, mock.ExpectationsWereMet())
}
