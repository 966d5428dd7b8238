package service

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
)

type commissionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Commission, error)
	List(ctx context.Context, filter models.CommissionFilter) ([]models.CommissionDetail, int, error)
	Create(ctx context.Context, commission *models.Commission) error
}

type rosterRepository interface {
	ListConfirmedIDsByCommission(ctx context.Context, commissionID string) ([]string, error)
	ReassignTx(ctx context.Context, tx *sqlx.Tx, enrollmentIDs []string, commissionID string) (int, error)
}

// CommissionService administers course sections and bulk roster moves. Roster moves operate on
// already validated enrollments and never re-run the enrollment gate.
type CommissionService struct {
	repo      commissionRepository
	rosters   rosterRepository
	subjects  subjectReader
	tx        txRunner
	intn      func(n int) int
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCommissionService constructs CommissionService.
func NewCommissionService(repo commissionRepository, rosters rosterRepository, subjects subjectReader, tx txRunner, validate *validator.Validate, logger *zap.Logger) *CommissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommissionService{
		repo:      repo,
		rosters:   rosters,
		subjects:  subjects,
		tx:        tx,
		intn:      rand.Intn,
		validator: validate,
		logger:    logger,
	}
}

func (s *CommissionService) load(ctx context.Context, id, label string) (*models.Commission, error) {
	commission, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, label+" commission not found")
		}
		return nil, appErrors.Internal(err, "failed to load commission")
	}
	return commission, nil
}

// Create registers a commission for a subject.
func (s *CommissionService) Create(ctx context.Context, actor *models.Principal, req dto.CreateCommissionRequest) (*models.Commission, error) {
	if err := authorize(actor, models.CapManageRoster, ""); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid commission payload")
	}
	if _, err := loadSubject(ctx, s.subjects, req.SubjectID); err != nil {
		return nil, err
	}
	commission := &models.Commission{
		SubjectID:    req.SubjectID,
		AcademicYear: req.AcademicYear,
		Code:         strings.ToUpper(strings.TrimSpace(req.Code)),
		Shift:        req.Shift,
		Capacity:     req.Capacity,
	}
	if err := s.repo.Create(ctx, commission); err != nil {
		return nil, appErrors.Internal(err, "failed to create commission")
	}
	return commission, nil
}

// List returns commissions with derived roster sizes.
func (s *CommissionService) List(ctx context.Context, actor *models.Principal, filter models.CommissionFilter) ([]models.CommissionDetail, *models.Pagination, error) {
	if err := authorize(actor, models.CapViewRecord, ""); err != nil {
		return nil, nil, err
	}
	commissions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list commissions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return commissions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Distribute moves floor(roster*percentage/100) randomly chosen CONFIRMED enrollments from origin
// to destination and returns how many moved.
func (s *CommissionService) Distribute(ctx context.Context, actor *models.Principal, originID string, req dto.DistributeRequest) (int, error) {
	if err := authorize(actor, models.CapManageRoster, ""); err != nil {
		return 0, err
	}
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid distribution payload")
	}
	if originID == req.DestinationCommissionID {
		return 0, appErrors.Clone(appErrors.ErrValidation, "origin and destination must differ")
	}
	origin, err := s.load(ctx, originID, "origin")
	if err != nil {
		return 0, err
	}
	destination, err := s.load(ctx, req.DestinationCommissionID, "destination")
	if err != nil {
		return 0, err
	}
	if origin.SubjectID != destination.SubjectID {
		return 0, appErrors.Clone(appErrors.ErrBusinessRule, "commissions belong to different subjects")
	}

	roster, err := s.rosters.ListConfirmedIDsByCommission(ctx, originID)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to load roster")
	}
	selected := sampleWithoutReplacement(roster, len(roster)*req.Percentage/100, s.intn)
	if len(selected) == 0 {
		return 0, nil
	}
	moved, err := s.reassign(ctx, selected, destination.ID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("roster distributed",
		zap.String("origin_id", originID),
		zap.String("destination_id", destination.ID),
		zap.Int("percentage", req.Percentage),
		zap.Int("moved", moved),
	)
	return moved, nil
}

// Move reassigns the listed enrollments to destination without any eligibility check.
func (s *CommissionService) Move(ctx context.Context, actor *models.Principal, destinationID string, req dto.MoveRequest) (int, error) {
	if err := authorize(actor, models.CapManageRoster, ""); err != nil {
		return 0, err
	}
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}
	if _, err := s.load(ctx, destinationID, "destination"); err != nil {
		return 0, err
	}
	moved, err := s.reassign(ctx, req.EnrollmentIDs, destinationID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("enrollments moved", zap.String("destination_id", destinationID), zap.Int("moved", moved))
	return moved, nil
}

func (s *CommissionService) reassign(ctx context.Context, ids []string, destinationID string) (int, error) {
	var moved int
	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		n, err := s.rosters.ReassignTx(ctx, tx, ids, destinationID)
		if err != nil {
			return err
		}
		moved = n
		return nil
	})
	if err != nil {
		return 0, appErrors.Internal(err, "failed to reassign enrollments")
	}
	return moved, nil
}

// sampleWithoutReplacement picks k distinct items uniformly with a partial Fisher-Yates shuffle.
func sampleWithoutReplacement(items []string, k int, intn func(int) int) []string {
	if k <= 0 {
		return nil
	}
	pool := append([]string(nil), items...)
	if k > len(pool) {
		k = len(pool)
	}
	for i := 0; i < k; i++ {
		j := i + intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
