package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/ipes-academic-api/internal/bootstrap"
	"github.com/noah-isme/ipes-academic-api/internal/handler"
	"github.com/noah-isme/ipes-academic-api/internal/middleware"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	"github.com/noah-isme/ipes-academic-api/pkg/config"
	"github.com/noah-isme/ipes-academic-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ipes-academic-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ipes-academic-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, engine *bootstrap.Engine, db *sqlx.DB, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(engine.Metrics))

	metricsHandler := handler.NewMetricsHandler(engine.Metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	enrollments := handler.NewEnrollmentHandler(engine.Enrollments)
	mesas := handler.NewMesaHandler(engine.Mesas)
	regularities := handler.NewRegularityHandler(engine.Regularity)
	equivalencies := handler.NewEquivalencyHandler(engine.Equivalencies)
	commissions := handler.NewCommissionHandler(engine.Commissions)
	correlativities := handler.NewCorrelativityHandler(engine.Correlativities)
	eligibility := handler.NewEligibilityHandler(engine.Eligibility)
	windows := handler.NewWindowHandler(engine.Windows)

	api := r.Group(cfg.APIPrefix, middleware.JWT(engine.Tokens), middleware.Capabilities(), middleware.Audit(logr.Named("audit")))

	api.POST("/enrollments", enrollments.Create)
	api.POST("/enrollments/:id/cancel", enrollments.Cancel)

	api.POST("/mesas/:id/signups", mesas.SignUp)
	api.POST("/mesas/:id/close", mesas.Close)
	api.DELETE("/signups/:id", mesas.CancelSignup)
	api.PUT("/signups/:id/result", mesas.RecordResult)

	api.POST("/regularities", regularities.Record)
	api.POST("/planilla-locks", regularities.CloseSheet)
	api.DELETE("/planilla-locks/:id", regularities.ReopenSheet)

	api.POST("/equivalencies", equivalencies.Register)

	api.GET("/commissions", commissions.List)
	roster := api.Group("/commissions", middleware.RequireCapability(models.CapManageRoster))
	roster.POST("", commissions.Create)
	roster.POST("/:id/distribute", commissions.Distribute)
	roster.POST("/:id/move", commissions.Move)

	api.POST("/correlativities", correlativities.Create)
	api.DELETE("/correlativities/:id", correlativities.Delete)
	api.GET("/subjects/:id/correlativities", correlativities.ListForSubject)

	api.GET("/windows/:kind", windows.Get)
	api.PUT("/windows/:kind", windows.Set)

	api.GET("/students/:studentId/eligibility", eligibility.Overview)
	api.GET("/students/:studentId/subjects/:subjectId/passed", eligibility.Passed)
	api.GET("/students/:studentId/subjects/:subjectId/regularities", regularities.History)

	return r
}
