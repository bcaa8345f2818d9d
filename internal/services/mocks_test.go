package services

import (
	"context"
	"time"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/models"
)

// mockCourseRepository is a mock implementation of CourseRepository
type mockCourseRepository struct {
	course          *models.Course
	structure       *models.CourseStructure
	err             error
	createErr       error
	updateStatusErr error
	statusUpdates   []models.CourseStatus
	featured        []bool
	featureErr      error
	created         *models.Course
}

func (m *mockCourseRepository) GetByID(ctx context.Context, id int) (*models.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.course == nil {
		return nil, apperrors.NotFound("course not found")
	}
	course := *m.course
	return &course, nil
}

func (m *mockCourseRepository) Create(ctx context.Context, course *models.Course) error {
	if m.createErr != nil {
		return m.createErr
	}
	course.ID = 1
	course.Status = models.CourseStatusDraft
	m.created = course
	return nil
}

func (m *mockCourseRepository) UpdateStatus(ctx context.Context, id int, from []models.CourseStatus, to models.CourseStatus) error {
	if m.updateStatusErr != nil {
		return m.updateStatusErr
	}
	m.statusUpdates = append(m.statusUpdates, to)
	return nil
}

func (m *mockCourseRepository) SetFeatured(ctx context.Context, id int, featured bool) error {
	if m.featureErr != nil {
		return m.featureErr
	}
	m.featured = append(m.featured, featured)
	return nil
}

func (m *mockCourseRepository) GetStructure(ctx context.Context, id int) (*models.CourseStructure, error) {
	if m.structure == nil {
		return &models.CourseStructure{}, nil
	}
	return m.structure, nil
}

// mockLessonRepository is a mock implementation of LessonRepository
type mockLessonRepository struct {
	module         *models.Module
	lesson         *models.Lesson
	createErr      error
	deleteErr      error
	createdModule  *models.Module
	createdLesson  *models.Lesson
	deletedModules []int
	deletedLessons []int
}

func (m *mockLessonRepository) CreateModule(ctx context.Context, module *models.Module) error {
	if m.createErr != nil {
		return m.createErr
	}
	module.ID = 10
	m.createdModule = module
	return nil
}

func (m *mockLessonRepository) GetModuleByID(ctx context.Context, id int) (*models.Module, error) {
	if m.module == nil {
		return nil, apperrors.NotFound("module not found")
	}
	return m.module, nil
}

func (m *mockLessonRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	if m.createErr != nil {
		return m.createErr
	}
	lesson.ID = 20
	m.createdLesson = lesson
	return nil
}

func (m *mockLessonRepository) GetLessonByID(ctx context.Context, id int) (*models.Lesson, error) {
	if m.lesson == nil {
		return nil, apperrors.NotFound("lesson not found")
	}
	return m.lesson, nil
}

func (m *mockLessonRepository) DeleteModule(ctx context.Context, id int) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedModules = append(m.deletedModules, id)
	return nil
}

func (m *mockLessonRepository) DeleteLesson(ctx context.Context, id int) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedLessons = append(m.deletedLessons, id)
	return nil
}

// mockEnrollmentRepository is a mock implementation of EnrollmentRepository
type mockEnrollmentRepository struct {
	enrollment   *models.Enrollment
	enrollments  []models.Enrollment
	completedIDs []int
	exists       bool
	alreadyIn    bool
	err          error
	created      *models.Enrollment
	lastAccessed []int
}

func (m *mockEnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.alreadyIn {
		return false, nil
	}
	enrollment.ID = 30
	m.created = enrollment
	return true, nil
}

func (m *mockEnrollmentRepository) get() (*models.Enrollment, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.enrollment == nil {
		return nil, apperrors.NotFound("enrollment not found")
	}
	enrollment := *m.enrollment
	return &enrollment, nil
}

func (m *mockEnrollmentRepository) GetByID(ctx context.Context, id int) (*models.Enrollment, error) {
	return m.get()
}

func (m *mockEnrollmentRepository) GetByUserAndCourse(ctx context.Context, userID, courseID int) (*models.Enrollment, error) {
	return m.get()
}

func (m *mockEnrollmentRepository) Exists(ctx context.Context, userID, courseID int) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.exists, nil
}

func (m *mockEnrollmentRepository) ListByUser(ctx context.Context, userID int) ([]models.Enrollment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.enrollments, nil
}

func (m *mockEnrollmentRepository) GetCompletedLessonIDs(ctx context.Context, enrollmentID int) ([]int, error) {
	return m.completedIDs, nil
}

func (m *mockEnrollmentRepository) UpdateLastAccessed(ctx context.Context, enrollmentID, lessonID int, at time.Time) error {
	m.lastAccessed = append(m.lastAccessed, lessonID)
	return nil
}

// mockPaymentRepository is a mock implementation of PaymentRepository, RefundRepository and StalePaymentRepository
type mockPaymentRepository struct {
	payment  *models.Payment
	reloaded *models.Payment
	getErr   error

	createErr      error
	created        *models.Payment
	gatewayOrderID string

	markFailedResult bool
	markFailedCalls  int

	completeEnrollment   *models.Enrollment
	completeTransitioned bool
	completeErr          error
	completeCalls        int

	requestErr     error
	refundReason   string
	approveRemoved bool
	approveErr     error
	approveCalls   int
	rejectErr      error
	rejectReason   string

	staleCount  int64
	staleBefore time.Time
}

func (m *mockPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if err := payment.CheckSplit(); err != nil {
		return err
	}
	payment.ID = 11
	payment.Status = models.PaymentStatusPending
	m.created = payment
	return nil
}

func (m *mockPaymentRepository) GetByID(ctx context.Context, id int) (*models.Payment, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.completeCalls > 0 && m.reloaded != nil {
		return m.reloaded, nil
	}
	if m.payment == nil {
		return nil, apperrors.NotFound("payment not found")
	}
	payment := *m.payment
	return &payment, nil
}

func (m *mockPaymentRepository) GetByGatewayOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	if m.payment == nil || m.payment.GatewayOrderID != orderID {
		return nil, apperrors.NotFound("payment not found")
	}
	payment := *m.payment
	return &payment, nil
}

func (m *mockPaymentRepository) SetGatewayOrder(ctx context.Context, id int, orderID string) error {
	m.gatewayOrderID = orderID
	return nil
}

func (m *mockPaymentRepository) MarkFailed(ctx context.Context, id int, gatewayPaymentID, signature string) (bool, error) {
	m.markFailedCalls++
	return m.markFailedResult, nil
}

func (m *mockPaymentRepository) CompleteAndEnroll(ctx context.Context, id int, gatewayPaymentID, signature string, at time.Time) (*models.Enrollment, bool, error) {
	m.completeCalls++
	if m.completeErr != nil {
		return nil, false, m.completeErr
	}
	return m.completeEnrollment, m.completeTransitioned, nil
}

func (m *mockPaymentRepository) RequestRefund(ctx context.Context, id int, reason string) error {
	if m.requestErr != nil {
		return m.requestErr
	}
	m.refundReason = reason
	return nil
}

func (m *mockPaymentRepository) ApproveRefund(ctx context.Context, id int) (bool, error) {
	m.approveCalls++
	if m.approveErr != nil {
		return false, m.approveErr
	}
	return m.approveRemoved, nil
}

func (m *mockPaymentRepository) RejectRefund(ctx context.Context, id int, reason string) error {
	if m.rejectErr != nil {
		return m.rejectErr
	}
	m.rejectReason = reason
	return nil
}

func (m *mockPaymentRepository) FailStalePending(ctx context.Context, before time.Time) (int64, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	m.staleBefore = before
	return m.staleCount, nil
}

// mockGateway is a mock implementation of GatewayClient
type mockGateway struct {
	orderID     string
	err         error
	amountMinor int64
	currency    string
	receipt     string
	hadDeadline bool
}

func (m *mockGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error) {
	_, m.hadDeadline = ctx.Deadline()
	m.amountMinor = amountMinor
	m.currency = currency
	m.receipt = receipt
	if m.err != nil {
		return "", m.err
	}
	return m.orderID, nil
}

// mockVerifier is a mock implementation of SignatureVerifier
type mockVerifier struct {
	valid bool
}

func (m *mockVerifier) Verify(orderID, paymentID, signature string) bool {
	return m.valid
}

// mockSessionStore is a mock implementation of OrderSessionStore
type mockSessionStore struct {
	sessions  map[string]int
	saveErr   error
	lookupErr error
	deleted   []string
}

func (m *mockSessionStore) Save(ctx context.Context, gatewayOrderID string, paymentID int) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.sessions == nil {
		m.sessions = map[string]int{}
	}
	m.sessions[gatewayOrderID] = paymentID
	return nil
}

func (m *mockSessionStore) Lookup(ctx context.Context, gatewayOrderID string) (int, bool, error) {
	if m.lookupErr != nil {
		return 0, false, m.lookupErr
	}
	id, ok := m.sessions[gatewayOrderID]
	return id, ok, nil
}

func (m *mockSessionStore) Delete(ctx context.Context, gatewayOrderID string) error {
	m.deleted = append(m.deleted, gatewayOrderID)
	return nil
}

// mockNotifier is a mock implementation of Notifier
type mockNotifier struct {
	err               error
	paymentsCompleted int
	refundsDecided    []bool
	payoutsProcessed  int
}

func (m *mockNotifier) PaymentCompleted(ctx context.Context, payment *models.Payment) error {
	m.paymentsCompleted++
	return m.err
}

func (m *mockNotifier) RefundDecided(ctx context.Context, payment *models.Payment, approved bool) error {
	m.refundsDecided = append(m.refundsDecided, approved)
	return m.err
}

func (m *mockNotifier) PayoutProcessed(ctx context.Context, payout *models.Payout) error {
	m.payoutsProcessed++
	return m.err
}

// mockProgressRepository is a mock implementation of ProgressRepository
type mockProgressRepository struct {
	progress      float64
	newly         bool
	err           error
	completeCalls int
	attempts      []*models.QuizAttempt
	submissions   []*models.AssignmentSubmission
}

func (m *mockProgressRepository) CompleteLesson(ctx context.Context, enrollmentID, courseID, lessonID int, at time.Time) (float64, bool, error) {
	if m.err != nil {
		return 0, false, m.err
	}
	m.completeCalls++
	return m.progress, m.newly, nil
}

func (m *mockProgressRepository) CreateQuizAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	if m.err != nil {
		return m.err
	}
	attempt.ID = len(m.attempts) + 1
	m.attempts = append(m.attempts, attempt)
	return nil
}

func (m *mockProgressRepository) CreateAssignmentSubmission(ctx context.Context, submission *models.AssignmentSubmission) error {
	if m.err != nil {
		return m.err
	}
	submission.ID = len(m.submissions) + 1
	m.submissions = append(m.submissions, submission)
	return nil
}

// mockCertificateRepository is a mock implementation of CertificateRepository
type mockCertificateRepository struct {
	existing *models.Certificate
	raced    *models.Certificate
	getErr   error
	stored   *models.Certificate
}

func (m *mockCertificateRepository) GetByEnrollmentID(ctx context.Context, enrollmentID int) (*models.Certificate, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.existing == nil {
		return nil, apperrors.NotFound("certificate not found")
	}
	return m.existing, nil
}

func (m *mockCertificateRepository) CreateForEnrollment(ctx context.Context, certificate *models.Certificate) (*models.Certificate, bool, error) {
	if m.raced != nil {
		return m.raced, false, nil
	}
	certificate.ID = 1
	m.stored = certificate
	return certificate, true, nil
}

// mockRenderer is a mock implementation of CertificateRenderer
type mockRenderer struct {
	url     string
	err     error
	calls   int
	lastReq models.CertificateRenderRequest
}

func (m *mockRenderer) Render(ctx context.Context, req models.CertificateRenderRequest) (string, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return "", m.err
	}
	return m.url, nil
}

// mockPayoutRepository is a mock implementation of PayoutRepository
type mockPayoutRepository struct {
	payouts  map[int]*models.Payout
	errs     map[int]error
	creators []int
	listErr  error
}

func (m *mockPayoutRepository) SettleCreator(ctx context.Context, creatorID int, processedAt time.Time) (*models.Payout, error) {
	if err := m.errs[creatorID]; err != nil {
		return nil, err
	}
	if payout, ok := m.payouts[creatorID]; ok {
		return payout, nil
	}
	return &models.Payout{CreatorID: creatorID, PaymentIDs: []int{}, ProcessedAt: processedAt}, nil
}

func (m *mockPayoutRepository) ListCreatorsWithUnpaid(ctx context.Context) ([]int, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.creators, nil
}

// mockCounterRepository is a mock implementation of EnrollmentCounterRepository
type mockCounterRepository struct {
	fixed int64
	err   error
}

func (m *mockCounterRepository) ReconcileEnrollmentCounts(ctx context.Context) (int64, error) {
	return m.fixed, m.err
}
