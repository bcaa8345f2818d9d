package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/config"
	"github.com/learnmarket/backend/internal/database"
	"github.com/learnmarket/backend/internal/logger"
	"github.com/learnmarket/backend/internal/repositories"
	"github.com/learnmarket/backend/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting LearnMarket scheduler")

	// Connect to database
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	maintenance := services.NewMaintenanceService(
		repositories.NewPaymentRepository(db),
		repositories.NewCourseRepository(db),
		cfg.Commerce.PendingPaymentTTL,
		logger.Logger,
	)

	scheduler, err := NewScheduler(maintenance, cfg.Scheduler.SweepSchedule, cfg.Scheduler.ReconcileSchedule, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to create scheduler", zap.Error(err))
	}

	scheduler.Start()
	defer func() {
		logger.Logger.Info("Shutting down scheduler...")
		scheduler.Stop()
		logger.Logger.Info("Scheduler exited")
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
