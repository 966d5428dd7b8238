// Package bootstrap assembles the eligibility engine from its storage dependencies.
package bootstrap

import (
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/ipes-academic-api/internal/repository"
	"github.com/noah-isme/ipes-academic-api/internal/service"
	"github.com/noah-isme/ipes-academic-api/pkg/config"
)

// Engine groups the services shared by the API server and the operator CLI.
type Engine struct {
	Completion      *service.CompletionService
	Regularity      *service.RegularityService
	Correlativities *service.CorrelativityService
	Windows         *service.WindowService
	Enrollments     *service.EnrollmentService
	Mesas           *service.MesaService
	Equivalencies   *service.EquivalencyService
	Commissions     *service.CommissionService
	Eligibility     *service.EligibilityService
	Metrics         *service.MetricsService
	Tokens          *service.TokenVerifier
}

// NewEngine wires repositories and services. redisClient may be nil, which disables the edge cache.
func NewEngine(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, metrics *service.MetricsService, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := validator.New()

	students := repository.NewStudentRepository(db)
	subjects := repository.NewSubjectRepository(db)
	commissions := repository.NewCommissionRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	regularities := repository.NewRegularityRepository(db)
	mesas := repository.NewMesaRepository(db)
	equivalencies := repository.NewEquivalencyRepository(db)
	correlativities := repository.NewCorrelativityRepository(db)
	configurations := repository.NewConfigurationRepository(db)
	tx := repository.NewTransactor(db)

	cache := service.NewCacheService(
		repository.NewCacheRepository(redisClient, logger.Named("cache")),
		metrics,
		cfg.Correlative.CacheTTL,
		logger.Named("cache"),
		cfg.Correlative.CacheEnabled && redisClient != nil,
	)

	completion := service.NewCompletionService(students, service.DefaultEvidenceSources(service.CompletionSources{
		Regularities: regularities,
		Mesas:        mesas,
		Actas:        equivalencies,
		Equivalences: equivalencies,
		PassingGrade: cfg.Academic.PassingGrade,
	}), logger.Named("completion"))

	regularity := service.NewRegularityService(regularities, students, subjects, commissions, tx,
		cfg.Academic.RegularityValidityDays, validate, logger.Named("regularity")).InLocation(cfg.Academic.Location)

	correlativity := service.NewCorrelativityService(correlativities, subjects, completion, regularity,
		cache, cfg.Correlative.CacheTTL, validate, logger.Named("correlativity"))

	windows := service.NewWindowService(configurations, cfg.Windows, logger.Named("windows"))

	return &Engine{
		Completion:      completion,
		Regularity:      regularity,
		Correlativities: correlativity,
		Windows:         windows,
		Enrollments: service.NewEnrollmentService(service.EnrollmentDeps{
			Repo:            enrollments,
			Students:        students,
			Subjects:        subjects,
			Commissions:     commissions,
			Windows:         windows,
			Correlativities: correlativity,
			Tx:              tx,
			Metrics:         metrics,
			Location:        cfg.Academic.Location,
		}, validate, logger.Named("enrollment")),
		Mesas: service.NewMesaService(service.MesaDeps{
			Repo:            mesas,
			Students:        students,
			Regularities:    regularity,
			Enrollments:     enrollments,
			Completion:      completion,
			Correlativities: correlativity,
			Windows:         windows,
			Metrics:         metrics,
			PassingGrade:    cfg.Academic.PassingGrade,
			Location:        cfg.Academic.Location,
		}, logger.Named("mesa")),
		Equivalencies: service.NewEquivalencyService(equivalencies, students, students, subjects, subjects, tx,
			metrics, validate, logger.Named("equivalency")),
		Commissions: service.NewCommissionService(commissions, enrollments, subjects, tx, validate, logger.Named("commission")),
		Eligibility: service.NewEligibilityService(students, subjects, completion, regularity, correlativity,
			cfg.Eligibility.Concurrency, logger.Named("eligibility")),
		Metrics: metrics,
		Tokens:  service.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer),
	}
}
