package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/auth"
	"github.com/learnmarket/backend/internal/config"
	"github.com/learnmarket/backend/internal/database"
	"github.com/learnmarket/backend/internal/models"
	"github.com/learnmarket/backend/internal/notify"
	"github.com/learnmarket/backend/internal/repositories"
	"github.com/learnmarket/backend/internal/services"
)

// PayoutService settles creator earnings
type PayoutService interface {
	ProcessPayouts(ctx context.Context, creatorID int) (*models.Payout, error)
	ProcessAllPayouts(ctx context.Context) ([]models.Payout, error)
}

// MaintenanceService runs the administrative sweeps
type MaintenanceService interface {
	SweepStalePayments(ctx context.Context) (int64, error)
	ReconcileEnrollmentCounts(ctx context.Context) (int64, error)
}

// TokenIssuer issues access tokens
type TokenIssuer interface {
	GenerateAccessToken(userID, role int, name string) (string, error)
}

// Runtime opens the dependencies a command needs
type Runtime interface {
	Migrate(dir string) (uint, bool, error)
	Payouts() (PayoutService, error)
	Maintenance() (MaintenanceService, error)
	Tokens() (TokenIssuer, error)
	Close()
}

// liveRuntime connects to the configured database and queue on first use
type liveRuntime struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sql.DB
	asynq  *asynq.Client
}

func newLiveRuntime(cfg *config.Config, logger *zap.Logger) *liveRuntime {
	return &liveRuntime{cfg: cfg, logger: logger}
}

func (r *liveRuntime) database() (*sql.DB, error) {
	if r.db == nil {
		db, err := database.Connect(r.cfg.DSN())
		if err != nil {
			return nil, err
		}
		r.db = db
	}
	return r.db, nil
}

func (r *liveRuntime) Migrate(dir string) (uint, bool, error) {
	db, err := r.database()
	if err != nil {
		return 0, false, err
	}
	return database.Migrate(db, database.MigrationSource(dir))
}

func (r *liveRuntime) Payouts() (PayoutService, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	if r.asynq == nil {
		r.asynq = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     r.cfg.RedisAddr(),
			Password: r.cfg.Redis.Password,
			DB:       r.cfg.Redis.DB,
		})
	}
	return services.NewPayoutService(repositories.NewPayoutRepository(db), notify.NewNotifier(r.asynq), r.logger), nil
}

func (r *liveRuntime) Maintenance() (MaintenanceService, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return services.NewMaintenanceService(
		repositories.NewPaymentRepository(db),
		repositories.NewCourseRepository(db),
		r.cfg.Commerce.PendingPaymentTTL,
		r.logger,
	), nil
}

func (r *liveRuntime) Tokens() (TokenIssuer, error) {
	if r.cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not configured")
	}
	return auth.NewTokenGenerator(r.cfg.JWT.Secret, r.cfg.JWT.AccessTokenExpiry), nil
}

func (r *liveRuntime) Close() {
	if r.asynq != nil {
		r.asynq.Close()
	}
	if r.db != nil {
		r.db.Close()
	}
}
