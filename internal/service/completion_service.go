package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/ipes-academic-api/internal/models"
	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
)

// EvidenceKind names a source of "subject passed" evidence.
type EvidenceKind string

const (
	EvidenceRegularity  EvidenceKind = "REGULARITY"
	EvidenceMesa        EvidenceKind = "MESA"
	EvidenceActa        EvidenceKind = "ACTA"
	EvidenceEquivalency EvidenceKind = "EQUIVALENCY"
)

// EvidenceSource answers whether one kind of record proves the subject passed.
type EvidenceSource interface {
	Kind() EvidenceKind
	Satisfied(ctx context.Context, student *models.Student, subjectID string) (bool, error)
}

type passedRegularityReader interface {
	HasPassedSituation(ctx context.Context, studentID, subjectID string) (bool, error)
}

type approvedSignupReader interface {
	HasApprovedSignup(ctx context.Context, studentID, subjectID string) (bool, error)
}

type actaGradeReader interface {
	ListActaGrades(ctx context.Context, dni, subjectID string) ([]string, error)
}

type equivalencyDetailReader interface {
	HasDetail(ctx context.Context, studentID, subjectID string) (bool, error)
}

// RegularityEvidence is satisfied by any PROMOCIONADO or APROBADO regularity row.
type RegularityEvidence struct{ repo passedRegularityReader }

// Kind implements EvidenceSource.
func (RegularityEvidence) Kind() EvidenceKind { return EvidenceRegularity }

// Satisfied implements EvidenceSource.
func (e RegularityEvidence) Satisfied(ctx context.Context, student *models.Student, subjectID string) (bool, error) {
	return e.repo.HasPassedSituation(ctx, student.ID, subjectID)
}

// MesaEvidence is satisfied by an APROBADO exam sign-up for any mesa of the subject.
type MesaEvidence struct{ repo approvedSignupReader }

// Kind implements EvidenceSource.
func (MesaEvidence) Kind() EvidenceKind { return EvidenceMesa }

// Satisfied implements EvidenceSource.
func (e MesaEvidence) Satisfied(ctx context.Context, student *models.Student, subjectID string) (bool, error) {
	return e.repo.HasApprovedSignup(ctx, student.ID, subjectID)
}

// ActaEvidence is satisfied by a grade book line, matched by national ID, whose grade parses as a
// passing number. Unparsable legacy codes never pass.
type ActaEvidence struct {
	repo         actaGradeReader
	passingGrade float64
}

// Kind implements EvidenceSource.
func (ActaEvidence) Kind() EvidenceKind { return EvidenceActa }

// Satisfied implements EvidenceSource.
func (e ActaEvidence) Satisfied(ctx context.Context, student *models.Student, subjectID string) (bool, error) {
	if strings.TrimSpace(student.DNI) == "" {
		return false, nil
	}
	grades, err := e.repo.ListActaGrades(ctx, student.DNI, subjectID)
	if err != nil {
		return false, err
	}
	for _, grade := range grades {
		if IsPassingGrade(grade, e.passingGrade) {
			return true, nil
		}
	}
	return false, nil
}

// EquivalencyEvidence is satisfied by any equivalency detail recognizing the subject.
type EquivalencyEvidence struct{ repo equivalencyDetailReader }

// Kind implements EvidenceSource.
func (EquivalencyEvidence) Kind() EvidenceKind { return EvidenceEquivalency }

// Satisfied implements EvidenceSource.
func (e EquivalencyEvidence) Satisfied(ctx context.Context, student *models.Student, subjectID string) (bool, error) {
	return e.repo.HasDetail(ctx, student.ID, subjectID)
}

var gradePattern = regexp.MustCompile(`^\d{1,2}([.,]\d{1,2})?$`)

// ParseGrade converts a grade book token into a number on the 0-10 scale.
func ParseGrade(raw string) (float64, bool) {
	token := strings.TrimSpace(raw)
	if !gradePattern.MatchString(token) {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.Replace(token, ",", ".", 1), 64)
	if err != nil || value > 10 {
		return 0, false
	}
	return value, true
}

// IsPassingGrade reports whether raw parses and reaches the passing threshold.
func IsPassingGrade(raw string, passingGrade float64) bool {
	value, ok := ParseGrade(raw)
	return ok && value >= passingGrade
}

// CompletionService decides whether a student already passed a subject.
type CompletionService struct {
	students studentReader
	sources  []EvidenceSource
	logger   *zap.Logger
}

// CompletionSources groups the repositories backing the default evidence sources.
type CompletionSources struct {
	Regularities passedRegularityReader
	Mesas        approvedSignupReader
	Actas        actaGradeReader
	Equivalences equivalencyDetailReader
	PassingGrade float64
}

// DefaultEvidenceSources returns the four sources in evaluation order.
func DefaultEvidenceSources(src CompletionSources) []EvidenceSource {
	passing := src.PassingGrade
	if passing <= 0 {
		passing = 6
	}
	return []EvidenceSource{
		RegularityEvidence{repo: src.Regularities},
		MesaEvidence{repo: src.Mesas},
		ActaEvidence{repo: src.Actas, passingGrade: passing},
		EquivalencyEvidence{repo: src.Equivalences},
	}
}

// NewCompletionService constructs the oracle over the provided sources.
func NewCompletionService(students studentReader, sources []EvidenceSource, logger *zap.Logger) *CompletionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionService{students: students, sources: sources, logger: logger}
}

// IsSubjectPassed reports whether any evidence source proves the subject passed.
func (s *CompletionService) IsSubjectPassed(ctx context.Context, studentID, subjectID string) (bool, error) {
	kind, err := s.Evidence(ctx, studentID, subjectID)
	if err != nil {
		return false, err
	}
	return kind != "", nil
}

// Evidence returns the first satisfied evidence kind, or "" when the subject is not passed.
func (s *CompletionService) Evidence(ctx context.Context, studentID, subjectID string) (EvidenceKind, error) {
	student, err := loadStudent(ctx, s.students, studentID)
	if err != nil {
		return "", err
	}
	for _, source := range s.sources {
		ok, err := source.Satisfied(ctx, student, subjectID)
		if err != nil {
			s.logger.Error("evidence lookup failed", zap.String("source", string(source.Kind())), zap.String("student_id", studentID), zap.Error(err))
			return "", appErrors.Internal(err, "failed to evaluate subject completion")
		}
		if ok {
			return source.Kind(), nil
		}
	}
	return "", nil
}
