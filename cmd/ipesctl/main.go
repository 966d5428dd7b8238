// Command ipesctl runs operator tasks against the academic record: eligibility checks, roster
// distribution, correlativity plan loads, enrollment window changes and schema setup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/ipes-academic-api/internal/bootstrap"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	"github.com/noah-isme/ipes-academic-api/internal/service"
	"github.com/noah-isme/ipes-academic-api/pkg/cache"
	"github.com/noah-isme/ipes-academic-api/pkg/config"
	"github.com/noah-isme/ipes-academic-api/pkg/database"
	"github.com/noah-isme/ipes-academic-api/pkg/logger"
)

// session is what a subcommand needs at run time.
type session struct {
	db     *sqlx.DB
	engine *bootstrap.Engine
	actor  *models.Principal
	close  func()
}

type sessionFactory func(ctx context.Context, operator string) (*session, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(openSession).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(open sessionFactory) *cobra.Command {
	var operator string
	root := &cobra.Command{
		Use:           "ipesctl",
		Short:         "Operator tooling for the IPES academic record",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&operator, "operator", "ipesctl", "user ID recorded as the acting operator")

	withSession := func(run func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), operator)
			if err != nil {
				return err
			}
			defer s.close()
			return run(cmd, args, s)
		}
	}

	root.AddCommand(
		newEligibilityCmd(withSession),
		newDistributeCmd(withSession),
		newCorrelativitiesCmd(withSession),
		newWindowsCmd(withSession),
		newSchemaCmd(withSession),
	)
	return root
}

// operatorPrincipal acts with administrator capabilities under the operator's user ID.
func operatorPrincipal(operator string) *models.Principal {
	return models.PrincipalFromClaims(&models.JWTClaims{UserID: operator, Role: models.RoleAdmin})
}

func openSession(ctx context.Context, operator string) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without edge cache", zap.Error(err))
		redisClient = nil
	}

	engine := bootstrap.NewEngine(cfg, db, redisClient, service.NewMetricsService(), logr)
	return &session{
		db:     db,
		engine: engine,
		actor:  operatorPrincipal(operator),
		close: func() {
			if redisClient != nil {
				_ = redisClient.Close()
			}
			_ = db.Close()
			_ = logr.Sync()
		},
	}, nil
}
