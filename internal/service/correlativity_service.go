package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
)

type correlativityRepository interface {
	ListBySubject(ctx context.Context, subjectID string, kinds []models.CorrelativityKind) ([]models.Correlativity, error)
	ListByPlan(ctx context.Context, planID string) ([]models.Correlativity, error)
	FindByID(ctx context.Context, id string) (*models.Correlativity, error)
	Exists(ctx context.Context, subjectID, requiredID string, kind models.CorrelativityKind) (bool, error)
	Create(ctx context.Context, edge *models.Correlativity) error
	Delete(ctx context.Context, id string) error
}

type edgeCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type completionChecker interface {
	IsSubjectPassed(ctx context.Context, studentID, subjectID string) (bool, error)
}

type regularityStatusReader interface {
	Status(ctx context.Context, studentID, subjectID string) (models.ActualStatus, error)
}

// CorrelativityService evaluates and administers the prerequisite graph.
type CorrelativityService struct {
	repo       correlativityRepository
	subjects   subjectReader
	completion completionChecker
	regularity regularityStatusReader
	cache      edgeCache
	cacheTTL   time.Duration
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCorrelativityService constructs CorrelativityService. cache may be nil.
func NewCorrelativityService(repo correlativityRepository, subjects subjectReader, completion completionChecker, regularity regularityStatusReader, cache edgeCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *CorrelativityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorrelativityService{
		repo:       repo,
		subjects:   subjects,
		completion: completion,
		regularity: regularity,
		cache:      cache,
		cacheTTL:   cacheTTL,
		validator:  validate,
		logger:     logger,
	}
}

func edgeCacheKey(subjectID string, purpose models.Purpose) string {
	return fmt.Sprintf("correlativities:%s:%s", subjectID, purpose)
}

// RequiredEdges returns the edges of subjectID guarding purpose.
func (s *CorrelativityService) RequiredEdges(ctx context.Context, subjectID string, purpose models.Purpose) ([]models.Correlativity, error) {
	key := edgeCacheKey(subjectID, purpose)
	if s.cache != nil {
		var cached []models.Correlativity
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}
	edges, err := s.repo.ListBySubject(ctx, subjectID, models.KindsFor(purpose))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load correlativities")
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, edges, s.cacheTTL)
	}
	return edges, nil
}

// CheckSatisfied evaluates every edge of subjectID for purpose. A subject without edges is satisfied.
// A "regular" requirement is also met when the prerequisite is already passed.
func (s *CorrelativityService) CheckSatisfied(ctx context.Context, studentID, subjectID string, purpose models.Purpose) (bool, []models.Violation, error) {
	edges, err := s.RequiredEdges(ctx, subjectID, purpose)
	if err != nil {
		return false, nil, err
	}
	var violations []models.Violation
	for _, edge := range edges {
		passed, err := s.completion.IsSubjectPassed(ctx, studentID, edge.RequiredSubjectID)
		if err != nil {
			return false, nil, err
		}
		if passed {
			continue
		}
		status, err := s.regularity.Status(ctx, studentID, edge.RequiredSubjectID)
		if err != nil {
			return false, nil, err
		}
		expected := models.RequiredRegular
		if edge.Kind.RequiresPassed() {
			expected = models.RequiredPassed
		} else if status == models.ActualRegular {
			continue
		}
		violations = append(violations, models.Violation{
			RequiredSubjectID:   edge.RequiredSubjectID,
			RequiredSubjectName: edge.RequiredSubjectName,
			Kind:                edge.Kind,
			Expected:            expected,
			Actual:              status,
		})
	}
	return len(violations) == 0, violations, nil
}

// FormatViolations renders violations as the message shown to students.
func FormatViolations(violations []models.Violation) string {
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		parts = append(parts, fmt.Sprintf("%s (requiere %s, estado actual: %s)", v.RequiredSubjectName, v.Expected, v.Actual))
	}
	return "Correlatividades no cumplidas: " + strings.Join(parts, "; ")
}

// ListForSubject returns every edge leaving subjectID.
func (s *CorrelativityService) ListForSubject(ctx context.Context, actor *models.Principal, subjectID string) ([]models.Correlativity, error) {
	if err := authorize(actor, models.CapViewRecord, ""); err != nil {
		return nil, err
	}
	if _, err := loadSubject(ctx, s.subjects, subjectID); err != nil {
		return nil, err
	}
	edges, err := s.repo.ListBySubject(ctx, subjectID, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list correlativities")
	}
	return edges, nil
}

// AddEdge stores a prerequisite edge after checking it keeps the graph acyclic within one plan.
func (s *CorrelativityService) AddEdge(ctx context.Context, actor *models.Principal, req dto.CreateCorrelativityRequest) (*models.Correlativity, error) {
	if err := authorize(actor, models.CapManageCorrelativities, ""); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid correlativity payload")
	}
	if !req.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown correlativity kind")
	}
	if req.SubjectID == req.RequiredSubjectID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a subject cannot require itself")
	}
	origin, err := loadSubject(ctx, s.subjects, req.SubjectID)
	if err != nil {
		return nil, err
	}
	required, err := loadSubject(ctx, s.subjects, req.RequiredSubjectID)
	if err != nil {
		return nil, err
	}
	if origin.PlanID != required.PlanID {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "correlative subjects must belong to the same plan")
	}
	exists, err := s.repo.Exists(ctx, req.SubjectID, req.RequiredSubjectID, req.Kind)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check correlativity")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "correlativity already exists")
	}
	planEdges, err := s.repo.ListByPlan(ctx, origin.PlanID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load plan correlativities")
	}
	if createsCycle(planEdges, req.SubjectID, req.RequiredSubjectID, req.Kind.Purpose()) {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "correlativity would create a cycle")
	}

	edge := &models.Correlativity{
		SubjectID:           req.SubjectID,
		RequiredSubjectID:   req.RequiredSubjectID,
		RequiredSubjectName: required.Name,
		Kind:                req.Kind,
	}
	if err := s.repo.Create(ctx, edge); err != nil {
		if errors.Is(err, appErrors.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "correlativity already exists")
		}
		return nil, appErrors.Internal(err, "failed to create correlativity")
	}
	s.invalidate(ctx, req.SubjectID)
	s.logger.Info("correlativity added",
		zap.String("subject_id", edge.SubjectID),
		zap.String("required_subject_id", edge.RequiredSubjectID),
		zap.String("kind", string(edge.Kind)),
	)
	return edge, nil
}

// RemoveEdge deletes a prerequisite edge.
func (s *CorrelativityService) RemoveEdge(ctx context.Context, actor *models.Principal, id string) error {
	if err := authorize(actor, models.CapManageCorrelativities, ""); err != nil {
		return err
	}
	edge, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "correlativity not found")
		}
		return appErrors.Internal(err, "failed to load correlativity")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete correlativity")
	}
	s.invalidate(ctx, edge.SubjectID)
	return nil
}

func (s *CorrelativityService) invalidate(ctx context.Context, subjectID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("correlativities:%s:*", subjectID)); err != nil {
		s.logger.Warn("correlativity cache invalidation failed", zap.String("subject_id", subjectID), zap.Error(err))
	}
}

// createsCycle reports whether adding origin -> required closes a loop among edges of the same purpose.
func createsCycle(edges []models.Correlativity, origin, required string, purpose models.Purpose) bool {
	graph := make(map[string][]string)
	for _, e := range edges {
		if e.Kind.Purpose() != purpose {
			continue
		}
		graph[e.SubjectID] = append(graph[e.SubjectID], e.RequiredSubjectID)
	}
	seen := make(map[string]bool)
	stack := []string{required}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == origin {
			return true
		}
		if seen[node] {
			continue
		}
		seen[node] = true
		stack = append(stack, graph[node]...)
	}
	return false
}
