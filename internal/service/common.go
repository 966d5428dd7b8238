package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ipes-academic-api/internal/models"
	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
)

// txRunner executes a unit of work atomically.
type txRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

// clock returns the current instant; tests replace it.
type clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// calendarDay returns the day t falls on in loc, as midnight UTC. A nil loc means UTC.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// authorize enforces that actor holds capability and may act on studentID. An empty studentID skips
// the ownership check.
func authorize(actor *models.Principal, capability models.Capability, studentID string) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing principal")
	}
	if !actor.Can(capability) {
		return appErrors.Clone(appErrors.ErrForbidden, "insufficient capability")
	}
	if studentID != "" && !actor.CanActFor(studentID) {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot act on another student's record")
	}
	return nil
}

func loadStudent(ctx context.Context, students studentReader, id string) (*models.Student, error) {
	student, err := students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

func loadSubject(ctx context.Context, subjects subjectReader, id string) (*models.Subject, error) {
	subject, err := subjects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Internal(err, "failed to load subject")
	}
	return subject, nil
}

// passthrough returns err unchanged when it is already a domain error and wraps it otherwise.
func passthrough(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, message)
}
