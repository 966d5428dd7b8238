package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
)

type planSubjectReader interface {
	FindPlan(ctx context.Context, id string) (*models.Plan, error)
	ListByPlan(ctx context.Context, planID string) ([]models.Subject, error)
}

type studentDirectory interface {
	studentReader
	FindByDNI(ctx context.Context, dni string) (*models.Student, error)
}

type evidenceReader interface {
	Evidence(ctx context.Context, studentID, subjectID string) (EvidenceKind, error)
}

// EligibilityService answers read-only questions about a student's progression.
type EligibilityService struct {
	students        studentDirectory
	plans           planSubjectReader
	completion      evidenceReader
	regularities    activeRegularityReader
	correlativities correlativityChecker
	concurrency     int
	logger          *zap.Logger
}

// NewEligibilityService constructs EligibilityService.
func NewEligibilityService(students studentDirectory, plans planSubjectReader, completion evidenceReader, regularities activeRegularityReader, correlativities correlativityChecker, concurrency int, logger *zap.Logger) *EligibilityService {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{
		students:        students,
		plans:           plans,
		completion:      completion,
		regularities:    regularities,
		correlativities: correlativities,
		concurrency:     concurrency,
		logger:          logger,
	}
}

// StudentByDNI resolves a student from a national ID, for callers that do not hold internal IDs.
func (s *EligibilityService) StudentByDNI(ctx context.Context, actor *models.Principal, dni string) (*models.Student, error) {
	if err := authorize(actor, models.CapViewRecord, ""); err != nil {
		return nil, err
	}
	if dni == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dni is required")
	}
	student, err := s.students.FindByDNI(ctx, dni)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load student")
	}
	// Another student's DNI reads as unknown.
	if err != nil || !actor.CanActFor(student.ID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

// IsPassed reports whether the subject is passed and by which evidence.
func (s *EligibilityService) IsPassed(ctx context.Context, actor *models.Principal, studentID, subjectID string) (*dto.PassedStatus, error) {
	if err := authorize(actor, models.CapViewRecord, studentID); err != nil {
		return nil, err
	}
	kind, err := s.completion.Evidence(ctx, studentID, subjectID)
	if err != nil {
		return nil, err
	}
	return &dto.PassedStatus{StudentID: studentID, SubjectID: subjectID, Passed: kind != "", Evidence: string(kind)}, nil
}

// Overview evaluates every subject of the plan for the student.
func (s *EligibilityService) Overview(ctx context.Context, actor *models.Principal, studentID, planID string) (*dto.EligibilityOverview, error) {
	if err := authorize(actor, models.CapViewRecord, studentID); err != nil {
		return nil, err
	}
	if _, err := loadStudent(ctx, s.students, studentID); err != nil {
		return nil, err
	}
	if _, err := s.plans.FindPlan(ctx, planID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, appErrors.Internal(err, "failed to load plan")
	}
	subjects, err := s.plans.ListByPlan(ctx, planID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list plan subjects")
	}

	results := make([]dto.SubjectEligibility, len(subjects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range subjects {
		i := i
		g.Go(func() error {
			entry, err := s.evaluate(gctx, studentID, subjects[i])
			if err != nil {
				return err
			}
			results[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("eligibility overview failed", zap.String("student_id", studentID), zap.String("plan_id", planID), zap.Error(err))
		return nil, passthrough(err, "failed to evaluate eligibility")
	}
	return &dto.EligibilityOverview{StudentID: studentID, PlanID: planID, Subjects: results}, nil
}

func (s *EligibilityService) evaluate(ctx context.Context, studentID string, subject models.Subject) (dto.SubjectEligibility, error) {
	entry := dto.SubjectEligibility{SubjectID: subject.ID, SubjectName: subject.Name, Year: subject.Year}
	kind, err := s.completion.Evidence(ctx, studentID, subject.ID)
	if err != nil {
		return entry, err
	}
	entry.Passed = kind != ""
	if entry.Passed {
		return entry, nil
	}
	active, err := s.regularities.ActiveRegularity(ctx, studentID, subject.ID)
	if err != nil {
		return entry, err
	}
	entry.ActiveRegularity = active

	enrollOK, enrollViolations, err := s.correlativities.CheckSatisfied(ctx, studentID, subject.ID, models.PurposeEnroll)
	if err != nil {
		return entry, err
	}
	entry.CanEnroll = enrollOK
	entry.EnrollViolations = enrollViolations

	examOK, examViolations, err := s.correlativities.CheckSatisfied(ctx, studentID, subject.ID, models.PurposeExam)
	if err != nil {
		return entry, err
	}
	entry.CanSitRegular = active != nil && examOK
	entry.ExamViolations = examViolations
	return entry, nil
}
