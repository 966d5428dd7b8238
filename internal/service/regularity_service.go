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

// DefaultRegularityValidityDays is the two-year validity window of a REGULAR situation.
const DefaultRegularityValidityDays = 730

type regularityRepository interface {
	FindCurrent(ctx context.Context, studentID, subjectID string) (*models.Regularity, error)
	History(ctx context.Context, studentID, subjectID string) ([]models.Regularity, error)
	SupersedeTx(ctx context.Context, tx *sqlx.Tx, studentID, subjectID string, at time.Time) error
	CreateTx(ctx context.Context, tx *sqlx.Tx, regularity *models.Regularity) error
	FindLockForScopeTx(ctx context.Context, tx *sqlx.Tx, scope models.LockScope) (*models.PlanillaLock, error)
	CreateLockTx(ctx context.Context, tx *sqlx.Tx, lock *models.PlanillaLock) error
	FindLock(ctx context.Context, id string) (*models.PlanillaLock, error)
	DeleteLock(ctx context.Context, id string) error
}

type commissionReader interface {
	FindByID(ctx context.Context, id string) (*models.Commission, error)
}

// RegularityService is the ledger of coursework outcomes and their validity.
type RegularityService struct {
	repo         regularityRepository
	students     studentReader
	subjects     subjectReader
	commissions  commissionReader
	tx           txRunner
	validityDays int
	now          clock
	location     *time.Location
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewRegularityService constructs RegularityService.
func NewRegularityService(repo regularityRepository, students studentReader, subjects subjectReader, commissions commissionReader, tx txRunner, validityDays int, validate *validator.Validate, logger *zap.Logger) *RegularityService {
	if validityDays <= 0 {
		validityDays = DefaultRegularityValidityDays
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegularityService{
		repo:         repo,
		students:     students,
		subjects:     subjects,
		commissions:  commissions,
		tx:           tx,
		validityDays: validityDays,
		now:          systemClock,
		location:     time.UTC,
		validator:    validate,
		logger:       logger,
	}
}

// InLocation sets the time zone whose calendar decides what "today" is for regularity expiry.
func (s *RegularityService) InLocation(loc *time.Location) *RegularityService {
	if loc != nil {
		s.location = loc
	}
	return s
}

// today is the institution's current calendar day.
func (s *RegularityService) today() time.Time {
	return calendarDay(s.now(), s.location)
}

// civilDate truncates t to its UTC calendar day.
func civilDate(t time.Time) time.Time {
	return calendarDay(t, time.UTC)
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(civilDate(b).Sub(civilDate(a)).Hours() / 24)
}

// IsRegularActive reports whether reg grants regular standing on today: a REGULAR situation whose
// closing date is no more than validityDays behind. Passed situations are not regular standing; the
// completion service reports them.
func IsRegularActive(reg *models.Regularity, today time.Time, validityDays int) bool {
	if reg == nil || reg.Situation != models.SituationRegular {
		return false
	}
	return daysBetween(reg.ClosingDate, today) <= validityDays
}

// ActiveRegularity returns the current regularity when it is a REGULAR still in force, or nil.
func (s *RegularityService) ActiveRegularity(ctx context.Context, studentID, subjectID string) (*models.Regularity, error) {
	reg, err := s.current(ctx, studentID, subjectID)
	if err != nil {
		return nil, err
	}
	if !IsRegularActive(reg, s.today(), s.validityDays) {
		return nil, nil
	}
	return reg, nil
}

// Status describes the student's standing on the subject as seen by the ledger alone.
func (s *RegularityService) Status(ctx context.Context, studentID, subjectID string) (models.ActualStatus, error) {
	reg, err := s.current(ctx, studentID, subjectID)
	if err != nil {
		return "", err
	}
	switch {
	case reg == nil:
		return models.ActualNone, nil
	case reg.Situation.Passed():
		return models.ActualPassed, nil
	case reg.Situation == models.SituationRegular && IsRegularActive(reg, s.today(), s.validityDays):
		return models.ActualRegular, nil
	case reg.Situation == models.SituationRegular:
		return models.ActualExpiredRegular, nil
	default:
		return models.ActualFree, nil
	}
}

func (s *RegularityService) current(ctx context.Context, studentID, subjectID string) (*models.Regularity, error) {
	reg, err := s.repo.FindCurrent(ctx, studentID, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load regularity")
	}
	return reg, nil
}

// History lists every regularity row of the student for the subject, newest first.
func (s *RegularityService) History(ctx context.Context, actor *models.Principal, studentID, subjectID string) ([]models.Regularity, error) {
	if err := authorize(actor, models.CapViewRecord, studentID); err != nil {
		return nil, err
	}
	rows, err := s.repo.History(ctx, studentID, subjectID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list regularities")
	}
	return rows, nil
}

// Record writes a regularity sheet line, superseding the previous current row. The write is
// rejected with ErrLocked when the sheet it belongs to is closed.
func (s *RegularityService) Record(ctx context.Context, actor *models.Principal, req dto.RecordRegularityRequest) (*models.Regularity, error) {
	if err := authorize(actor, models.CapRecordRegularity, ""); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid regularity payload")
	}
	if !req.Situation.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown regularity situation")
	}
	if _, err := loadStudent(ctx, s.students, req.StudentID); err != nil {
		return nil, err
	}
	if _, err := loadSubject(ctx, s.subjects, req.SubjectID); err != nil {
		return nil, err
	}

	scope, err := s.scopeFor(ctx, req)
	if err != nil {
		return nil, err
	}

	reg := &models.Regularity{
		StudentID:     req.StudentID,
		SubjectID:     req.SubjectID,
		CommissionID:  req.CommissionID,
		Situation:     req.Situation,
		ClosingDate:   civilDate(req.ClosingDate),
		FinalScore:    req.FinalScore,
		AttendancePct: req.AttendancePct,
		Observations:  req.Observations,
		RecordedBy:    actor.UserID,
	}
	now := s.now()
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		lock, err := s.repo.FindLockForScopeTx(ctx, tx, scope)
		if err != nil {
			return appErrors.Internal(err, "failed to check planilla lock")
		}
		if lock != nil {
			return appErrors.Clone(appErrors.ErrLocked, "La planilla de regularidades se encuentra cerrada.")
		}
		if err := s.repo.SupersedeTx(ctx, tx, req.StudentID, req.SubjectID, now); err != nil {
			return appErrors.Internal(err, "failed to supersede regularity")
		}
		if err := s.repo.CreateTx(ctx, tx, reg); err != nil {
			if errors.Is(err, appErrors.ErrDuplicate) {
				return appErrors.Clone(appErrors.ErrConflict, "regularity was recorded concurrently, retry")
			}
			return appErrors.Internal(err, "failed to record regularity")
		}
		return nil
	})
	if err != nil {
		return nil, passthrough(err, "failed to record regularity")
	}
	s.logger.Info("regularity recorded",
		zap.String("student_id", reg.StudentID),
		zap.String("subject_id", reg.SubjectID),
		zap.String("situation", string(reg.Situation)),
	)
	return reg, nil
}

func (s *RegularityService) scopeFor(ctx context.Context, req dto.RecordRegularityRequest) (models.LockScope, error) {
	if req.CommissionID != nil && *req.CommissionID != "" {
		commission, err := s.commissions.FindByID(ctx, *req.CommissionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.LockScope{}, appErrors.Clone(appErrors.ErrNotFound, "commission not found")
			}
			return models.LockScope{}, appErrors.Internal(err, "failed to load commission")
		}
		if commission.SubjectID != req.SubjectID {
			return models.LockScope{}, appErrors.Clone(appErrors.ErrValidation, "commission does not belong to subject")
		}
		return models.LockScope{CommissionID: req.CommissionID}, nil
	}
	year := civilDate(req.ClosingDate).Year()
	if req.VirtualYear != nil {
		year = *req.VirtualYear
	}
	subjectID := req.SubjectID
	return models.LockScope{SubjectID: &subjectID, VirtualYear: &year}, nil
}

// CloseSheet locks a regularity grading sheet.
func (s *RegularityService) CloseSheet(ctx context.Context, actor *models.Principal, req dto.CloseSheetRequest) (*models.PlanillaLock, error) {
	if err := authorize(actor, models.CapLockSheets, ""); err != nil {
		return nil, err
	}
	scope := models.LockScope{CommissionID: req.CommissionID, SubjectID: req.SubjectID, VirtualYear: req.VirtualYear}
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lock scope requires either commission_id or subject_id with virtual_year")
	}
	lock := &models.PlanillaLock{LockScope: scope, ClosedBy: actor.UserID}
	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := s.repo.FindLockForScopeTx(ctx, tx, scope)
		if err != nil {
			return appErrors.Internal(err, "failed to check planilla lock")
		}
		if existing != nil {
			return appErrors.Clone(appErrors.ErrConflict, "planilla already closed")
		}
		if err := s.repo.CreateLockTx(ctx, tx, lock); err != nil {
			if errors.Is(err, appErrors.ErrDuplicate) {
				return appErrors.Clone(appErrors.ErrConflict, "planilla already closed")
			}
			return appErrors.Internal(err, "failed to close planilla")
		}
		return nil
	})
	if err != nil {
		return nil, passthrough(err, "failed to close planilla")
	}
	s.logger.Info("planilla closed", zap.String("lock_id", lock.ID), zap.String("closed_by", lock.ClosedBy))
	return lock, nil
}

// ReopenSheet removes a planilla lock.
func (s *RegularityService) ReopenSheet(ctx context.Context, actor *models.Principal, lockID string) error {
	if err := authorize(actor, models.CapLockSheets, ""); err != nil {
		return err
	}
	if _, err := s.repo.FindLock(ctx, lockID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "planilla lock not found")
		}
		return appErrors.Internal(err, "failed to load planilla lock")
	}
	if err := s.repo.DeleteLock(ctx, lockID); err != nil {
		return appErrors.Internal(err, "failed to reopen planilla")
	}
	s.logger.Info("planilla reopened", zap.String("lock_id", lockID), zap.String("user_id", actor.UserID))
	return nil
}
