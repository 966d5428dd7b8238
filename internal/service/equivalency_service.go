package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
)

type equivalencyRepository interface {
	CreateDispositionTx(ctx context.Context, tx *sqlx.Tx, disposition *models.EquivalencyDisposition) error
	CreateDetailTx(ctx context.Context, tx *sqlx.Tx, detail *models.EquivalencyDetail) error
	CreateActaTx(ctx context.Context, tx *sqlx.Tx, acta *models.ActaRecord) error
}

type careerEnrollmentReader interface {
	FindActiveCareerEnrollment(ctx context.Context, studentID, careerID string) (*models.CareerEnrollment, error)
}

type planReader interface {
	FindPlan(ctx context.Context, id string) (*models.Plan, error)
}

// EquivalencyService registers administrative equivalency dispositions.
type EquivalencyService struct {
	repo      equivalencyRepository
	students  studentReader
	careers   careerEnrollmentReader
	plans     planReader
	subjects  subjectReader
	tx        txRunner
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEquivalencyService constructs EquivalencyService.
func NewEquivalencyService(repo equivalencyRepository, students studentReader, careers careerEnrollmentReader, plans planReader, subjects subjectReader, tx txRunner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EquivalencyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquivalencyService{
		repo:      repo,
		students:  students,
		careers:   careers,
		plans:     plans,
		subjects:  subjects,
		tx:        tx,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Register creates the disposition, one detail per recognized subject and the acta line that makes
// each subject count as passed, all in one transaction.
func (s *EquivalencyService) Register(ctx context.Context, actor *models.Principal, req dto.RegisterEquivalencyRequest) (*models.EquivalencyDisposition, error) {
	if err := authorize(actor, models.CapRegisterEquivalency, ""); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid equivalency payload")
	}
	seen := make(map[string]struct{}, len(req.Details))
	for _, item := range req.Details {
		if _, dup := seen[item.SubjectID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "subject listed more than once")
		}
		seen[item.SubjectID] = struct{}{}
	}

	student, err := s.resolveContext(ctx, req)
	if err != nil {
		s.metrics.RecordGateDecision(GateEquivalency, false)
		return nil, err
	}

	disposition := &models.EquivalencyDisposition{
		StudentID:        req.StudentID,
		CareerID:         req.CareerID,
		PlanID:           req.PlanID,
		ResolutionNumber: req.ResolutionNumber,
		ResolvedOn:       civilDate(req.ResolvedOn),
		CreatedBy:        actor.UserID,
	}
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.CreateDispositionTx(ctx, tx, disposition); err != nil {
			return appErrors.Internal(err, "failed to create disposition")
		}
		details := make([]models.EquivalencyDetail, 0, len(req.Details))
		for _, item := range req.Details {
			subject, err := loadSubject(ctx, s.subjects, item.SubjectID)
			if err != nil {
				return err
			}
			if subject.PlanID != req.PlanID {
				return appErrors.Clone(appErrors.ErrBusinessRule, fmt.Sprintf("La materia %s no pertenece al plan.", subject.Name))
			}
			detail := models.EquivalencyDetail{DispositionID: disposition.ID, SubjectID: item.SubjectID, Score: item.Score}
			if err := s.repo.CreateDetailTx(ctx, tx, &detail); err != nil {
				return appErrors.Internal(err, "failed to create disposition detail")
			}
			detailID := detail.ID
			acta := &models.ActaRecord{
				StudentDNI:          student.DNI,
				SubjectID:           item.SubjectID,
				Source:              models.ActaSourceEquivalency,
				Grade:               strconv.FormatFloat(item.Score, 'f', -1, 64),
				Folio:               req.ResolutionNumber,
				ExamDate:            disposition.ResolvedOn,
				EquivalencyDetailID: &detailID,
			}
			if err := s.repo.CreateActaTx(ctx, tx, acta); err != nil {
				return appErrors.Internal(err, "failed to synthesize acta")
			}
			details = append(details, detail)
		}
		disposition.Details = details
		return nil
	})
	if err != nil {
		s.metrics.RecordGateDecision(GateEquivalency, false)
		s.logger.Warn("equivalency rejected", zap.String("student_id", req.StudentID), zap.String("resolution", req.ResolutionNumber), zap.Error(err))
		return nil, passthrough(err, "failed to register equivalency")
	}
	s.metrics.RecordGateDecision(GateEquivalency, true)
	s.logger.Info("equivalency registered",
		zap.String("disposition_id", disposition.ID),
		zap.String("student_id", disposition.StudentID),
		zap.Int("subjects", len(disposition.Details)),
	)
	return disposition, nil
}

// resolveContext checks the student is admitted to the career and the plan belongs to it.
func (s *EquivalencyService) resolveContext(ctx context.Context, req dto.RegisterEquivalencyRequest) (*models.Student, error) {
	student, err := loadStudent(ctx, s.students, req.StudentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.careers.FindActiveCareerEnrollment(ctx, req.StudentID, req.CareerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrBusinessRule, "Estudiante no inscripto en la carrera.")
		}
		return nil, appErrors.Internal(err, "failed to resolve career enrollment")
	}
	plan, err := s.plans.FindPlan(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, appErrors.Internal(err, "failed to load plan")
	}
	if plan.CareerID != req.CareerID {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "El plan no pertenece a la carrera.")
	}
	return student, nil
}
