package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/auth"
	"github.com/learnmarket/backend/internal/cache"
	"github.com/learnmarket/backend/internal/config"
	"github.com/learnmarket/backend/internal/database"
	"github.com/learnmarket/backend/internal/gateway"
	"github.com/learnmarket/backend/internal/handlers"
	"github.com/learnmarket/backend/internal/notify"
	"github.com/learnmarket/backend/internal/repositories"
	"github.com/learnmarket/backend/internal/server"
	"github.com/learnmarket/backend/internal/services"
)

const (
	adminID   = 1
	creatorID = 2
	learnerID = 5
)

var (
	testDB     *sql.DB
	testRouter chi.Router
	testTokens *auth.TokenGenerator
	testSigner *gateway.Signer
	testLogger *zap.Logger
	enqueued   atomic.Int64
)

// recordingEnqueuer counts notification tasks instead of sending them to Redis
type recordingEnqueuer struct{}

func (recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	enqueued.Add(1)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

// newFakeGateway opens orders with sequential ids
func newFakeGateway() *httptest.Server {
	var orders atomic.Int64
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"id": fmt.Sprintf("order_it_%d_%d", os.Getpid(), orders.Add(1)),
		})
	}))
}

// newFakeRenderer renders every certificate to a URL derived from its id
func newFakeRenderer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CertificateID string `json:"certificateId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"url": "https://certs.learnmarket.test/" + req.CertificateID + ".pdf",
		})
	}))
}

// setupTestRouter wires the full API against the test database and fake external services
func setupTestRouter(cfg *config.Config, db *sql.DB, rdb *redis.Client, gatewayURL, rendererURL string, logger *zap.Logger) chi.Router {
	testTokens = auth.NewTokenGenerator(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	testSigner = gateway.NewSigner(cfg.Gateway.KeySecret)
	notifier := notify.NewNotifier(recordingEnqueuer{})

	courseRepo := repositories.NewCourseRepository(db)
	lessonRepo := repositories.NewLessonRepository(db)
	enrollmentRepo := repositories.NewEnrollmentRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)

	orderService := services.NewOrderService(
		courseRepo,
		enrollmentRepo,
		paymentRepo,
		gateway.NewClient(gatewayURL, cfg.Gateway.KeyID, cfg.Gateway.KeySecret, cfg.Gateway.Timeout),
		testSigner,
		cache.NewOrderSessionStore(rdb, cfg.Commerce.OrderSessionTTL),
		notifier,
		services.OrderSettings{
			Currency:        cfg.Commerce.Currency,
			MinorUnitFactor: cfg.Commerce.MinorUnitFactor,
			PlatformFeeRate: cfg.Commerce.PlatformFeeRate,
			GatewayKeyID:    cfg.Gateway.KeyID,
			GatewayTimeout:  cfg.Gateway.Timeout,
		},
		logger,
	)
	progressService := services.NewProgressService(
		courseRepo,
		lessonRepo,
		enrollmentRepo,
		repositories.NewProgressRepository(db),
		services.ProgressSettings{
			QuizPassingScore:       cfg.Progress.QuizPassingScore,
			AssignmentAutoComplete: cfg.Progress.AssignmentAutoComplete,
		},
		logger,
	)
	certificateService := services.NewCertificateService(
		courseRepo,
		enrollmentRepo,
		repositories.NewCertificateRepository(db),
		gateway.NewRenderer(rendererURL, cfg.Renderer.Timeout),
		logger,
	)

	return server.NewRouter(
		server.Options{AllowedOrigins: cfg.CORS.AllowedOrigins},
		testTokens,
		server.Handlers{
			Checkout:    handlers.NewCheckoutHandler(orderService, logger),
			Enrollments: handlers.NewEnrollmentHandler(services.NewEnrollmentService(courseRepo, enrollmentRepo, logger), logger),
			Progress:    handlers.NewProgressHandler(progressService, logger),
			Certificate: handlers.NewCertificateHandler(certificateService, logger),
			Refunds:     handlers.NewRefundHandler(services.NewRefundService(enrollmentRepo, paymentRepo, notifier, cfg.Commerce.RefundWindowDays, logger), logger),
			Courses:     handlers.NewCourseHandler(services.NewCourseLifecycleService(courseRepo, lessonRepo, logger), logger),
			Admin: handlers.NewAdminHandler(
				services.NewPayoutService(repositories.NewPayoutRepository(db), notifier, logger),
				services.NewMaintenanceService(paymentRepo, courseRepo, cfg.Commerce.PendingPaymentTTL, logger),
				logger,
			),
		},
		logger,
	)
}

// TestMain sets up and tears down the test environment
func TestMain(m *testing.M) {
	var err error
	testLogger, err = zap.NewDevelopment()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := config.LoadTestConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load test config: %v", err))
	}
	if cfg.Database.Host == "" {
		fmt.Println("TEST_DB_* not set, skipping integration tests")
		os.Exit(0)
	}

	testDB, err = database.Connect(cfg.DSN())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to test database: %v", err))
	}

	if _, _, err := database.Migrate(testDB, database.MigrationSource("../../migrations")); err != nil {
		panic(fmt.Sprintf("Failed to migrate test database: %v", err))
	}

	// Session writes only warn when Redis is unreachable; payments fall back to the database
	redisAddr := os.Getenv("TEST_REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})

	gatewayServer := newFakeGateway()
	rendererServer := newFakeRenderer()

	testRouter = setupTestRouter(cfg, testDB, rdb, gatewayServer.URL, rendererServer.URL, testLogger)

	code := m.Run()

	gatewayServer.Close()
	rendererServer.Close()
	rdb.Close()
	testDB.Close()
	os.Exit(code)
}

// cleanupTestData removes every row written by the tests
func cleanupTestData(t *testing.T, db *sql.DB) {
	t.Helper()
	tables := []string{
		"certificates",
		"assignment_submissions",
		"quiz_attempts",
		"enrollment_lessons",
		"enrollments",
		"payments",
		"payouts",
		"lessons",
		"modules",
		"courses",
	}
	for _, table := range tables {
		_, err := db.Exec("DELETE FROM " + table)
		require.NoError(t, err, "Failed to clear %s", table)
	}
}

// call performs an API request as the given user and decodes the JSON response into out
func call(t *testing.T, method, path string, userID, role int, body any, out any) int {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}

	req := httptest.NewRequest(method, "/api/v1"+path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		token, err := testTokens.GenerateAccessToken(userID, role, fmt.Sprintf("User %d", userID))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	testRouter.ServeHTTP(w, req)

	if out != nil && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), "response: %s", w.Body.String())
	}
	return w.Code
}

type idResponse struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
}

// publishCourse creates, publishes and approves a course with a text lesson and a quiz.
// Returns the course id and the two lesson ids.
func publishCourse(t *testing.T, price string) (int, int, int) {
	t.Helper()

	var course idResponse
	status := call(t, http.MethodPost, "/creator/courses", creatorID, auth.RoleCreator, map[string]any{
		"title":        "Distributed Systems in Go",
		"description":  "Consensus, replication and failure handling",
		"thumbnailUrl": "https://cdn.learnmarket.test/ds.png",
		"category":     "programming",
		"price":        price,
	}, &course)
	require.Equal(t, http.StatusCreated, status)

	var module idResponse
	status = call(t, http.MethodPost, fmt.Sprintf("/creator/courses/%d/modules", course.ID), creatorID, auth.RoleCreator, map[string]any{
		"title":    "Foundations",
		"position": 1,
	}, &module)
	require.Equal(t, http.StatusCreated, status)

	var text idResponse
	status = call(t, http.MethodPost, fmt.Sprintf("/creator/modules/%d/lessons", module.ID), creatorID, auth.RoleCreator, map[string]any{
		"title":    "Why consensus is hard",
		"type":     "text",
		"position": 1,
		"content":  map[string]string{"html": "<p>FLP impossibility</p>"},
	}, &text)
	require.Equal(t, http.StatusCreated, status)

	var quiz idResponse
	status = call(t, http.MethodPost, fmt.Sprintf("/creator/modules/%d/lessons", module.ID), creatorID, auth.RoleCreator, map[string]any{
		"title":    "Check yourself",
		"type":     "quiz",
		"position": 2,
		"content": map[string]any{
			"questions": []map[string]any{
				{"question": "Raft elects a", "options": []string{"leader", "quorum of leaders"}, "correctIndex": 0},
				{"question": "A majority of 5 nodes is", "options": []string{"2", "3"}, "correctIndex": 1},
			},
		},
	}, &quiz)
	require.Equal(t, http.StatusCreated, status)

	status = call(t, http.MethodPost, fmt.Sprintf("/creator/courses/%d/publish", course.ID), creatorID, auth.RoleCreator, nil, &course)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "pending_review", course.Status)

	status = call(t, http.MethodPost, fmt.Sprintf("/admin/courses/%d/approve", course.ID), adminID, auth.RoleAdmin, nil, &course)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "approved", course.Status)

	return course.ID, text.ID, quiz.ID
}
