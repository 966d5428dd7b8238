package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
)

type enrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ExistsActiveTx(ctx context.Context, tx *sqlx.Tx, studentID, subjectID string, year int) (bool, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, cancelledAt *time.Time) error
}

const msgAlreadyEnrolled = "Ya se encuentra inscripto en la materia para el ciclo lectivo."

type windowChecker interface {
	IsOpen(ctx context.Context, kind models.WindowKind, now time.Time) (bool, error)
}

type correlativityChecker interface {
	CheckSatisfied(ctx context.Context, studentID, subjectID string, purpose models.Purpose) (bool, []models.Violation, error)
}

// EnrollmentService is the gate for subject enrollment.
type EnrollmentService struct {
	repo            enrollmentRepository
	students        studentReader
	subjects        subjectReader
	commissions     commissionReader
	windows         windowChecker
	correlativities correlativityChecker
	tx              txRunner
	metrics         *MetricsService
	now             clock
	location        *time.Location
	validator       *validator.Validate
	logger          *zap.Logger
}

// EnrollmentDeps groups the collaborators of EnrollmentService.
type EnrollmentDeps struct {
	Repo            enrollmentRepository
	Students        studentReader
	Subjects        subjectReader
	Commissions     commissionReader
	Windows         windowChecker
	Correlativities correlativityChecker
	Tx              txRunner
	Metrics         *MetricsService
	// Location decides which academic year an enrollment falls in. Nil means UTC.
	Location *time.Location
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(deps EnrollmentDeps, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:            deps.Repo,
		students:        deps.Students,
		subjects:        deps.Subjects,
		commissions:     deps.Commissions,
		windows:         deps.Windows,
		correlativities: deps.Correlativities,
		tx:              deps.Tx,
		metrics:         deps.Metrics,
		now:             systemClock,
		location:        deps.Location,
		validator:       validate,
		logger:          logger,
	}
}

// Enroll registers the student in a commission of the subject for the current academic year.
// Checks run in order: enrollment window, enroll correlativities, then a duplicate check inside the
// same transaction that creates the CONFIRMED enrollment.
func (s *EnrollmentService) Enroll(ctx context.Context, actor *models.Principal, req dto.EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if err := authorize(actor, models.CapEnroll, req.StudentID); err != nil {
		return nil, err
	}
	student, err := loadStudent(ctx, s.students, req.StudentID)
	if err != nil {
		return nil, err
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "student inactive")
	}
	if _, err := loadSubject(ctx, s.subjects, req.SubjectID); err != nil {
		return nil, err
	}
	commission, err := s.commissions.FindByID(ctx, req.CommissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "commission not found")
		}
		return nil, appErrors.Internal(err, "failed to load commission")
	}
	if commission.SubjectID != req.SubjectID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "commission does not belong to subject")
	}

	now := s.now()
	year := calendarDay(now, s.location).Year()
	if commission.AcademicYear != year {
		return nil, s.reject(req, appErrors.Clone(appErrors.ErrBusinessRule, "La comisión no corresponde al ciclo lectivo vigente."))
	}

	open, err := s.windows.IsOpen(ctx, models.WindowSubjectEnrollment, now)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, s.reject(req, appErrors.Clone(appErrors.ErrBusinessRule, "El período de inscripción a materias no está abierto."))
	}

	ok, violations, err := s.correlativities.CheckSatisfied(ctx, req.StudentID, req.SubjectID, models.PurposeEnroll)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.reject(req, appErrors.WithDetails(appErrors.Clone(appErrors.ErrBusinessRule, FormatViolations(violations)), violations))
	}

	enrollment := &models.Enrollment{
		StudentID:    req.StudentID,
		SubjectID:    req.SubjectID,
		CommissionID: req.CommissionID,
		AcademicYear: year,
		Status:       models.EnrollmentStatusConfirmed,
		CreatedAt:    now,
	}
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := s.repo.ExistsActiveTx(ctx, tx, req.StudentID, req.SubjectID, year)
		if err != nil {
			return appErrors.Internal(err, "failed to check enrollment")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, msgAlreadyEnrolled)
		}
		if err := s.repo.CreateTx(ctx, tx, enrollment); err != nil {
			if errors.Is(err, appErrors.ErrDuplicate) {
				return appErrors.Clone(appErrors.ErrConflict, msgAlreadyEnrolled)
			}
			return appErrors.Internal(err, "failed to create enrollment")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, appErrors.ErrConflict) {
			return nil, s.reject(req, err)
		}
		return nil, passthrough(err, "failed to create enrollment")
	}

	s.metrics.RecordGateDecision(GateEnrollment, true)
	s.logger.Info("enrollment confirmed",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", enrollment.StudentID),
		zap.String("subject_id", enrollment.SubjectID),
	)
	return enrollment, nil
}

func (s *EnrollmentService) reject(req dto.EnrollRequest, err error) error {
	s.metrics.RecordGateDecision(GateEnrollment, false)
	s.logger.Warn("enrollment rejected",
		zap.String("student_id", req.StudentID),
		zap.String("subject_id", req.SubjectID),
		zap.Error(err),
	)
	return err
}

// Cancel marks an enrollment CANCELLED. Cancelling twice is a no-op.
func (s *EnrollmentService) Cancel(ctx context.Context, actor *models.Principal, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}
	if err := authorize(actor, models.CapCancelEnrollment, enrollment.StudentID); err != nil {
		return nil, err
	}
	if enrollment.Status == models.EnrollmentStatusCancelled {
		return enrollment, nil
	}
	cancelledAt := s.now()
	if err := s.repo.UpdateStatus(ctx, id, models.EnrollmentStatusCancelled, &cancelledAt); err != nil {
		return nil, appErrors.Internal(err, "failed to cancel enrollment")
	}
	enrollment.Status = models.EnrollmentStatusCancelled
	enrollment.CancelledAt = &cancelledAt
	s.logger.Info("enrollment cancelled", zap.String("enrollment_id", id), zap.String("user_id", actor.UserID))
	return enrollment, nil
}
