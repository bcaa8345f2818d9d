package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/auth"
	"github.com/learnmarket/backend/internal/middleware"
	"github.com/learnmarket/backend/internal/models"
)

var testLogger = zap.NewNop()

// performRequest routes a request through r, attaching identity when it is not nil
func performRequest(t *testing.T, r chi.Router, method, path string, body any, identity *auth.Identity) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if identity != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), identity))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decodeBody decodes the JSON response body into v
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

var learner = &auth.Identity{UserID: 5, Role: auth.RoleStudent, Name: "Ada Lovelace"}

// mockOrderService is a mock implementation of OrderService
type mockOrderService struct {
	order      *models.OrderResponse
	enrollment *models.Enrollment
	err        error

	lastUserID    int
	lastCourseID  int
	lastPaymentID int
	lastVerify    *models.VerifyPaymentRequest
}

func (m *mockOrderService) CreateOrder(ctx context.Context, userID, courseID int) (*models.OrderResponse, error) {
	m.lastUserID, m.lastCourseID = userID, courseID
	return m.order, m.err
}

func (m *mockOrderService) VerifyPayment(ctx context.Context, userID, paymentID int, req *models.VerifyPaymentRequest) (*models.Enrollment, error) {
	m.lastUserID, m.lastPaymentID, m.lastVerify = userID, paymentID, req
	return m.enrollment, m.err
}

func (m *mockOrderService) HandleGatewayCallback(ctx context.Context, req *models.VerifyPaymentRequest) (*models.Enrollment, error) {
	m.lastVerify = req
	return m.enrollment, m.err
}

// mockEnrollmentService is a mock implementation of EnrollmentService
type mockEnrollmentService struct {
	enrollment  *models.Enrollment
	enrollments []models.Enrollment
	err         error

	lastUserID   int
	lastCourseID int
}

func (m *mockEnrollmentService) EnrollFree(ctx context.Context, userID, courseID int) (*models.Enrollment, error) {
	m.lastUserID, m.lastCourseID = userID, courseID
	return m.enrollment, m.err
}

func (m *mockEnrollmentService) GetEnrollment(ctx context.Context, userID, courseID int) (*models.Enrollment, error) {
	m.lastUserID, m.lastCourseID = userID, courseID
	return m.enrollment, m.err
}

func (m *mockEnrollmentService) ListEnrollments(ctx context.Context, userID int) ([]models.Enrollment, error) {
	m.lastUserID = userID
	return m.enrollments, m.err
}

// mockProgressService is a mock implementation of ProgressService
type mockProgressService struct {
	update     *models.ProgressUpdate
	quiz       *models.QuizResult
	submission *models.AssignmentSubmission
	view       *models.LessonView
	enrollment *models.Enrollment
	err        error

	lastEnrollmentID int
	lastLessonID     int
	lastAnswers      []int
}

func (m *mockProgressService) CompleteLesson(ctx context.Context, userID, enrollmentID, lessonID int) (*models.ProgressUpdate, error) {
	m.lastEnrollmentID, m.lastLessonID = enrollmentID, lessonID
	return m.update, m.err
}

func (m *mockProgressService) SubmitQuiz(ctx context.Context, userID, enrollmentID, lessonID int, req *models.SubmitQuizRequest) (*models.QuizResult, error) {
	m.lastEnrollmentID, m.lastLessonID, m.lastAnswers = enrollmentID, lessonID, req.Answers
	return m.quiz, m.err
}

func (m *mockProgressService) SubmitAssignment(ctx context.Context, userID, enrollmentID, lessonID int, req *models.SubmitAssignmentRequest) (*models.AssignmentSubmission, error) {
	m.lastEnrollmentID, m.lastLessonID = enrollmentID, lessonID
	return m.submission, m.err
}

func (m *mockProgressService) AccessLesson(ctx context.Context, userID, lessonID int) (*models.LessonView, error) {
	m.lastLessonID = lessonID
	return m.view, m.err
}

func (m *mockProgressService) GetProgress(ctx context.Context, userID, courseID int) (*models.Enrollment, error) {
	return m.enrollment, m.err
}

// mockCertificateService is a mock implementation of CertificateService
type mockCertificateService struct {
	certificate *models.Certificate
	err         error

	lastEnrollmentID int
	lastUserName     string
}

func (m *mockCertificateService) GetCertificate(ctx context.Context, userID, enrollmentID int, userName string) (*models.Certificate, error) {
	m.lastEnrollmentID, m.lastUserName = enrollmentID, userName
	return m.certificate, m.err
}

func (m *mockCertificateService) IssueCertificate(ctx context.Context, enrollmentID int, userName string) (*models.Certificate, error) {
	m.lastEnrollmentID, m.lastUserName = enrollmentID, userName
	return m.certificate, m.err
}

// mockRefundService is a mock implementation of RefundService
type mockRefundService struct {
	payment *models.Payment
	err     error

	lastPaymentID int
	lastRequest   *models.RefundRequest
	lastDecision  *models.RefundDecisionRequest
}

func (m *mockRefundService) RequestRefund(ctx context.Context, userID int, req *models.RefundRequest) (*models.Payment, error) {
	m.lastRequest = req
	return m.payment, m.err
}

func (m *mockRefundService) DecideRefund(ctx context.Context, paymentID int, req *models.RefundDecisionRequest) (*models.Payment, error) {
	m.lastPaymentID, m.lastDecision = paymentID, req
	return m.payment, m.err
}

// mockCourseLifecycleService is a mock implementation of CourseLifecycleService
type mockCourseLifecycleService struct {
	course *models.Course
	module *models.Module
	lesson *models.Lesson
	err    error

	lastCreatorID int
	lastID        int
	featured      []bool
}

func (m *mockCourseLifecycleService) CreateCourse(ctx context.Context, creatorID int, req *models.CreateCourseRequest) (*models.Course, error) {
	m.lastCreatorID = creatorID
	return m.course, m.err
}

func (m *mockCourseLifecycleService) AddModule(ctx context.Context, creatorID, courseID int, req *models.CreateModuleRequest) (*models.Module, error) {
	m.lastCreatorID, m.lastID = creatorID, courseID
	return m.module, m.err
}

func (m *mockCourseLifecycleService) AddLesson(ctx context.Context, creatorID, moduleID int, req *models.CreateLessonRequest) (*models.Lesson, error) {
	m.lastCreatorID, m.lastID = creatorID, moduleID
	return m.lesson, m.err
}

func (m *mockCourseLifecycleService) DeleteModule(ctx context.Context, creatorID, moduleID int) error {
	m.lastCreatorID, m.lastID = creatorID, moduleID
	return m.err
}

func (m *mockCourseLifecycleService) DeleteLesson(ctx context.Context, creatorID, lessonID int) error {
	m.lastCreatorID, m.lastID = creatorID, lessonID
	return m.err
}

func (m *mockCourseLifecycleService) Publish(ctx context.Context, creatorID, courseID int) (*models.Course, error) {
	m.lastCreatorID, m.lastID = creatorID, courseID
	return m.course, m.err
}

func (m *mockCourseLifecycleService) Approve(ctx context.Context, courseID int) (*models.Course, error) {
	m.lastID = courseID
	return m.course, m.err
}

func (m *mockCourseLifecycleService) Reject(ctx context.Context, courseID int) (*models.Course, error) {
	m.lastID = courseID
	return m.course, m.err
}

func (m *mockCourseLifecycleService) Feature(ctx context.Context, courseID int) error {
	m.lastID = courseID
	m.featured = append(m.featured, true)
	return m.err
}

func (m *mockCourseLifecycleService) Unfeature(ctx context.Context, courseID int) error {
	m.lastID = courseID
	m.featured = append(m.featured, false)
	return m.err
}

// mockPayoutService is a mock implementation of PayoutService
type mockPayoutService struct {
	payout  *models.Payout
	payouts []models.Payout
	err     error

	lastCreatorID int
}

func (m *mockPayoutService) ProcessPayouts(ctx context.Context, creatorID int) (*models.Payout, error) {
	m.lastCreatorID = creatorID
	return m.payout, m.err
}

func (m *mockPayoutService) ProcessAllPayouts(ctx context.Context) ([]models.Payout, error) {
	return m.payouts, m.err
}

// mockMaintenanceService is a mock implementation of MaintenanceService
type mockMaintenanceService struct {
	count int64
	err   error
}

func (m *mockMaintenanceService) SweepStalePayments(ctx context.Context) (int64, error) {
	return m.count, m.err
}

func (m *mockMaintenanceService) ReconcileEnrollmentCounts(ctx context.Context) (int64, error) {
	return m.count, m.err
}
