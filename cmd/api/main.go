package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/auth"
	"github.com/learnmarket/backend/internal/cache"
	"github.com/learnmarket/backend/internal/config"
	"github.com/learnmarket/backend/internal/database"
	"github.com/learnmarket/backend/internal/gateway"
	"github.com/learnmarket/backend/internal/handlers"
	"github.com/learnmarket/backend/internal/logger"
	"github.com/learnmarket/backend/internal/notify"
	"github.com/learnmarket/backend/internal/repositories"
	"github.com/learnmarket/backend/internal/server"
	"github.com/learnmarket/backend/internal/services"
)

// @title LearnMarket Core API
// @version 1.0
// @description Course marketplace core: checkout, enrollment, progress, certificates, refunds and payouts

// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Shared key sent by the payment gateway on callbacks
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
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

	logger.Logger.Info("Starting LearnMarket API")

	// Connect to database
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	version, applied, err := database.Migrate(db, database.MigrationSource(os.Getenv("MIGRATIONS_DIR")))
	if err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	logger.Logger.Info("Schema ready", zap.Uint("version", version), zap.Bool("applied", applied))

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Create Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	tokenGenerator := auth.NewTokenGenerator(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// Initialize external clients
	gatewayClient := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.KeyID, cfg.Gateway.KeySecret, cfg.Gateway.Timeout)
	signer := gateway.NewSigner(cfg.Gateway.KeySecret)
	renderer := gateway.NewRenderer(cfg.Renderer.BaseURL, cfg.Renderer.Timeout)
	sessions := cache.NewOrderSessionStore(rdb, cfg.Commerce.OrderSessionTTL)
	notifier := notify.NewNotifier(asynqClient)

	// Initialize repositories
	courseRepo := repositories.NewCourseRepository(db)
	lessonRepo := repositories.NewLessonRepository(db)
	enrollmentRepo := repositories.NewEnrollmentRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	progressRepo := repositories.NewProgressRepository(db)
	certificateRepo := repositories.NewCertificateRepository(db)
	payoutRepo := repositories.NewPayoutRepository(db)

	// Initialize services
	courseService := services.NewCourseLifecycleService(courseRepo, lessonRepo, logger.Logger)
	enrollmentService := services.NewEnrollmentService(courseRepo, enrollmentRepo, logger.Logger)
	orderService := services.NewOrderService(
		courseRepo,
		enrollmentRepo,
		paymentRepo,
		gatewayClient,
		signer,
		sessions,
		notifier,
		services.OrderSettings{
			Currency:        cfg.Commerce.Currency,
			MinorUnitFactor: cfg.Commerce.MinorUnitFactor,
			PlatformFeeRate: cfg.Commerce.PlatformFeeRate,
			GatewayKeyID:    cfg.Gateway.KeyID,
			GatewayTimeout:  cfg.Gateway.Timeout,
		},
		logger.Logger,
	)
	progressService := services.NewProgressService(
		courseRepo,
		lessonRepo,
		enrollmentRepo,
		progressRepo,
		services.ProgressSettings{
			QuizPassingScore:       cfg.Progress.QuizPassingScore,
			AssignmentAutoComplete: cfg.Progress.AssignmentAutoComplete,
		},
		logger.Logger,
	)
	certificateService := services.NewCertificateService(courseRepo, enrollmentRepo, certificateRepo, renderer, logger.Logger)
	refundService := services.NewRefundService(enrollmentRepo, paymentRepo, notifier, cfg.Commerce.RefundWindowDays, logger.Logger)
	payoutService := services.NewPayoutService(payoutRepo, notifier, logger.Logger)
	maintenanceService := services.NewMaintenanceService(paymentRepo, courseRepo, cfg.Commerce.PendingPaymentTTL, logger.Logger)

	// Setup router
	r := server.NewRouter(
		server.Options{
			AllowedOrigins:    cfg.CORS.AllowedOrigins,
			WebhookKey:        cfg.Gateway.WebhookKey,
			SwaggerURL:        fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port),
			RequestsPerMinute: 100,
		},
		tokenGenerator,
		server.Handlers{
			Checkout:    handlers.NewCheckoutHandler(orderService, logger.Logger),
			Enrollments: handlers.NewEnrollmentHandler(enrollmentService, logger.Logger),
			Progress:    handlers.NewProgressHandler(progressService, logger.Logger),
			Certificate: handlers.NewCertificateHandler(certificateService, logger.Logger),
			Refunds:     handlers.NewRefundHandler(refundService, logger.Logger),
			Courses:     handlers.NewCourseHandler(courseService, logger.Logger),
			Admin:       handlers.NewAdminHandler(payoutService, maintenanceService, logger.Logger),
		},
		logger.Logger,
	)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}
