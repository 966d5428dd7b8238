package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
)

const msgAlreadySignedUp = "Ya se encuentra inscripto en la mesa."

type mesaRepository interface {
	FindByID(ctx context.Context, id string) (*models.Mesa, error)
	CloseGradingSheet(ctx context.Context, id string, at time.Time) error
	FindSignup(ctx context.Context, id string) (*models.MesaSignup, error)
	SignupExists(ctx context.Context, mesaID, studentID string) (bool, error)
	CreateSignup(ctx context.Context, signup *models.MesaSignup) error
	UpdateResult(ctx context.Context, signup *models.MesaSignup) (bool, error)
	DeleteSignup(ctx context.Context, id string) error
}

type activeRegularityReader interface {
	ActiveRegularity(ctx context.Context, studentID, subjectID string) (*models.Regularity, error)
}

type confirmedEnrollmentReader interface {
	HasConfirmed(ctx context.Context, studentID, subjectID string, year int) (bool, error)
}

// MesaService is the gate for exam board sign-ups and their results.
type MesaService struct {
	repo            mesaRepository
	students        studentReader
	regularities    activeRegularityReader
	enrollments     confirmedEnrollmentReader
	completion      completionChecker
	correlativities correlativityChecker
	windows         windowChecker
	metrics         *MetricsService
	passingGrade    float64
	now             clock
	location        *time.Location
	logger          *zap.Logger
}

// MesaDeps groups the collaborators of MesaService.
type MesaDeps struct {
	Repo            mesaRepository
	Students        studentReader
	Regularities    activeRegularityReader
	Enrollments     confirmedEnrollmentReader
	Completion      completionChecker
	Correlativities correlativityChecker
	Windows         windowChecker
	Metrics         *MetricsService
	PassingGrade    float64
	Location        *time.Location
}

// NewMesaService constructs MesaService.
func NewMesaService(deps MesaDeps, logger *zap.Logger) *MesaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	passing := deps.PassingGrade
	if passing <= 0 {
		passing = 6
	}
	return &MesaService{
		repo:            deps.Repo,
		students:        deps.Students,
		regularities:    deps.Regularities,
		enrollments:     deps.Enrollments,
		completion:      deps.Completion,
		correlativities: deps.Correlativities,
		windows:         deps.Windows,
		metrics:         deps.Metrics,
		passingGrade:    passing,
		now:             systemClock,
		location:        deps.Location,
		logger:          logger,
	}
}

func (s *MesaService) loadMesa(ctx context.Context, id string) (*models.Mesa, error) {
	mesa, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mesa not found")
		}
		return nil, appErrors.Internal(err, "failed to load mesa")
	}
	return mesa, nil
}

func (s *MesaService) loadSignup(ctx context.Context, id string) (*models.MesaSignup, error) {
	signup, err := s.repo.FindSignup(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "signup not found")
		}
		return nil, appErrors.Internal(err, "failed to load signup")
	}
	return signup, nil
}

// SignUp registers the student to sit the mesa. The regular path requires a regularity in force;
// the free path requires its absence and that the student is not taking the course this year.
func (s *MesaService) SignUp(ctx context.Context, actor *models.Principal, mesaID, studentID string) (*models.MesaSignup, error) {
	if err := authorize(actor, models.CapExamSignup, studentID); err != nil {
		return nil, err
	}
	student, err := loadStudent(ctx, s.students, studentID)
	if err != nil {
		return nil, err
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "student inactive")
	}
	mesa, err := s.loadMesa(ctx, mesaID)
	if err != nil {
		return nil, err
	}
	if mesa.GradingClosedAt != nil {
		return nil, s.reject(mesa, studentID, appErrors.Clone(appErrors.ErrLocked, "La planilla de la mesa se encuentra cerrada."))
	}

	now := s.now()
	open, err := s.windows.IsOpen(ctx, models.WindowExamSignup, now)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, s.reject(mesa, studentID, appErrors.Clone(appErrors.ErrBusinessRule, "El período de inscripción a mesas no está abierto."))
	}

	passed, err := s.completion.IsSubjectPassed(ctx, studentID, mesa.SubjectID)
	if err != nil {
		return nil, err
	}
	if passed {
		return nil, s.reject(mesa, studentID, appErrors.Clone(appErrors.ErrBusinessRule, "La materia ya se encuentra aprobada."))
	}

	exists, err := s.repo.SignupExists(ctx, mesaID, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check signup")
	}
	if exists {
		return nil, s.reject(mesa, studentID, appErrors.Clone(appErrors.ErrConflict, msgAlreadySignedUp))
	}

	active, err := s.regularities.ActiveRegularity(ctx, studentID, mesa.SubjectID)
	if err != nil {
		return nil, err
	}
	switch mesa.Modality {
	case models.ModalityRegular:
		if active == nil {
			return nil, s.reject(mesa, studentID, appErrors.Clone(appErrors.ErrBusinessRule, "No posee regularidad vigente."))
		}
	case models.ModalityFree:
		if active != nil {
			return nil, s.reject(mesa, studentID, appErrors.Clone(appErrors.ErrBusinessRule, "Tienes regularidad vigente"))
		}
		taking, err := s.enrollments.HasConfirmed(ctx, studentID, mesa.SubjectID, calendarDay(now, s.location).Year())
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check current enrollment")
		}
		if taking {
			return nil, s.reject(mesa, studentID, appErrors.Clone(appErrors.ErrBusinessRule, "Estás cursando la materia actualmente."))
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrIntegrity, "mesa has unknown modality")
	}

	ok, violations, err := s.correlativities.CheckSatisfied(ctx, studentID, mesa.SubjectID, models.PurposeExam)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.reject(mesa, studentID, appErrors.WithDetails(appErrors.Clone(appErrors.ErrBusinessRule, FormatViolations(violations)), violations))
	}

	signup := &models.MesaSignup{
		MesaID:               mesaID,
		StudentID:            studentID,
		Condition:            models.ConditionPending,
		CountsTowardAttempts: true,
	}
	if err := s.repo.CreateSignup(ctx, signup); err != nil {
		if errors.Is(err, appErrors.ErrDuplicate) {
			return nil, s.reject(mesa, studentID, appErrors.Clone(appErrors.ErrConflict, msgAlreadySignedUp))
		}
		return nil, appErrors.Internal(err, "failed to create signup")
	}
	s.metrics.RecordGateDecision(GateExamSignup, true)
	s.logger.Info("mesa signup accepted",
		zap.String("mesa_id", mesaID),
		zap.String("student_id", studentID),
		zap.String("modality", string(mesa.Modality)),
	)
	return signup, nil
}

func (s *MesaService) reject(mesa *models.Mesa, studentID string, err error) error {
	s.metrics.RecordGateDecision(GateExamSignup, false)
	s.logger.Warn("mesa signup rejected",
		zap.String("mesa_id", mesa.ID),
		zap.String("student_id", studentID),
		zap.String("subject_id", mesa.SubjectID),
		zap.Error(err),
	)
	return err
}

// ResolveCondition derives the stored condition from a grading request. A score decides between
// APROBADO and DESAPROBADO; without a score only the absent conditions are accepted.
func ResolveCondition(req dto.RecordResultRequest, passingGrade float64) (models.SignupCondition, error) {
	if req.Score != nil {
		score := *req.Score
		if score < 0 || score > 10 {
			return "", appErrors.Clone(appErrors.ErrValidation, "score must be between 0 and 10")
		}
		derived := models.ConditionFailed
		if score >= passingGrade {
			derived = models.ConditionApproved
		}
		if req.Condition != "" && req.Condition != derived {
			return "", appErrors.Clone(appErrors.ErrValidation, "condition does not match score")
		}
		return derived, nil
	}
	switch req.Condition {
	case models.ConditionAbsent, models.ConditionJustifiedAbsent:
		return req.Condition, nil
	case models.ConditionApproved, models.ConditionFailed:
		return "", appErrors.Clone(appErrors.ErrValidation, "condition requires a score")
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "score or absent condition required")
	}
}

// RecordResult stores the outcome of a pending sign-up.
func (s *MesaService) RecordResult(ctx context.Context, actor *models.Principal, signupID string, req dto.RecordResultRequest) (*models.MesaSignup, error) {
	if err := authorize(actor, models.CapRecordExamResult, ""); err != nil {
		return nil, err
	}
	signup, err := s.loadSignup(ctx, signupID)
	if err != nil {
		return nil, err
	}
	mesa, err := s.loadMesa(ctx, signup.MesaID)
	if err != nil {
		return nil, err
	}
	if mesa.GradingClosedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrLocked, "La planilla de la mesa se encuentra cerrada.")
	}
	if signup.Condition.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "result already recorded")
	}
	condition, err := ResolveCondition(req, s.passingGrade)
	if err != nil {
		return nil, err
	}
	var score *float64
	if condition == models.ConditionApproved || condition == models.ConditionFailed {
		value := *req.Score
		score = &value
	}
	if condition == models.ConditionApproved && (score == nil || *score < s.passingGrade) {
		return nil, appErrors.Clone(appErrors.ErrIntegrity, "approved result below passing grade")
	}

	signup.Condition = condition
	signup.Score = score
	signup.CountsTowardAttempts = condition != models.ConditionJustifiedAbsent
	updated, err := s.repo.UpdateResult(ctx, signup)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to record result")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrConflict, "result already recorded")
	}
	s.logger.Info("mesa result recorded",
		zap.String("signup_id", signup.ID),
		zap.String("condition", string(condition)),
		zap.String("user_id", actor.UserID),
	)
	return signup, nil
}

// CancelSignup withdraws a pending sign-up.
func (s *MesaService) CancelSignup(ctx context.Context, actor *models.Principal, signupID string) error {
	signup, err := s.loadSignup(ctx, signupID)
	if err != nil {
		return err
	}
	if err := authorize(actor, models.CapExamSignup, signup.StudentID); err != nil {
		return err
	}
	if signup.Condition != models.ConditionPending {
		return appErrors.Clone(appErrors.ErrBusinessRule, "only pending sign-ups can be cancelled")
	}
	mesa, err := s.loadMesa(ctx, signup.MesaID)
	if err != nil {
		return err
	}
	if mesa.GradingClosedAt != nil {
		return appErrors.Clone(appErrors.ErrLocked, "La planilla de la mesa se encuentra cerrada.")
	}
	if err := s.repo.DeleteSignup(ctx, signupID); err != nil {
		return appErrors.Internal(err, "failed to cancel signup")
	}
	return nil
}

// CloseGradingSheet freezes every result of the mesa.
func (s *MesaService) CloseGradingSheet(ctx context.Context, actor *models.Principal, mesaID string) (*models.Mesa, error) {
	if err := authorize(actor, models.CapCloseExamSheet, ""); err != nil {
		return nil, err
	}
	mesa, err := s.loadMesa(ctx, mesaID)
	if err != nil {
		return nil, err
	}
	if mesa.GradingClosedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "grading sheet already closed")
	}
	at := s.now()
	if err := s.repo.CloseGradingSheet(ctx, mesaID, at); err != nil {
		return nil, appErrors.Internal(err, "failed to close grading sheet")
	}
	mesa.GradingClosedAt = &at
	s.logger.Info("mesa grading sheet closed", zap.String("mesa_id", mesaID), zap.String("user_id", actor.UserID))
	return mesa, nil
}
