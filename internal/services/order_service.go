package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/models"
)

// PaymentRepository is the interface that wraps methods for payments table data access used by checkout
type PaymentRepository interface {
	// Create inserts a pending payment. The amount must equal platform fee plus creator payout.
	//
	// "ctx" is the context for the request.
	// "payment" is the payment to insert; its ID and status are set on success.
	//
	// Returns an error if any.
	Create(ctx context.Context, payment *models.Payment) error
	// GetByID retrieves a payment by its ID, or a NotFound error.
	GetByID(ctx context.Context, id int) (*models.Payment, error)
	// GetByGatewayOrderID retrieves a payment by the gateway's order ID, or a NotFound error.
	GetByGatewayOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	// SetGatewayOrder stores the gateway order ID on a pending payment.
	SetGatewayOrder(ctx context.Context, id int, orderID string) error
	// MarkFailed moves a pending payment to failed.
	//
	// "ctx" is the context for the request.
	// "id" is the payment ID.
	// "gatewayPaymentID" and "signature" are the rejected gateway values, kept for audit.
	//
	// Returns false when the payment was no longer pending, and an error if any.
	MarkFailed(ctx context.Context, id int, gatewayPaymentID, signature string) (bool, error)
	// CompleteAndEnroll completes a pending payment and enrolls its learner in one transaction.
	//
	// "ctx" is the context for the request.
	// "id" is the payment ID.
	// "gatewayPaymentID" and "signature" are the verified gateway values.
	// "at" is the enrollment time.
	//
	// Returns the new or already existing enrollment, whether the payment transitioned,
	// and an error if any. A payment that is no longer pending yields (nil, false, nil).
	// A payment made while the learner was already enrolled is left refund_requested
	// with models.DuplicatePaymentReason.
	CompleteAndEnroll(ctx context.Context, id int, gatewayPaymentID, signature string, at time.Time) (*models.Enrollment, bool, error)
}

// GatewayClient is the interface that wraps order creation on the payment gateway
type GatewayClient interface {
	// CreateOrder opens a gateway order for an amount in minor currency units and returns its ID.
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error)
}

// SignatureVerifier is the interface that wraps gateway signature verification
type SignatureVerifier interface {
	// Verify reports whether the signature matches the order and payment, comparing in constant time.
	Verify(orderID, paymentID, signature string) bool
}

// OrderSessionStore is the interface that wraps the short-lived gateway order to payment mapping
type OrderSessionStore interface {
	// Save records the payment behind a gateway order.
	Save(ctx context.Context, gatewayOrderID string, paymentID int) error
	// Lookup returns the payment behind a gateway order; found is false when there is no session.
	Lookup(ctx context.Context, gatewayOrderID string) (int, bool, error)
	// Delete removes the session of a gateway order.
	Delete(ctx context.Context, gatewayOrderID string) error
}

// OrderSettings holds the commerce settings of checkout
type OrderSettings struct {
	Currency        string
	MinorUnitFactor int64
	PlatformFeeRate decimal.Decimal
	GatewayKeyID    string
	GatewayTimeout  time.Duration
}

type orderService struct {
	courseRepo     CourseReader
	enrollmentRepo EnrollmentRepository
	paymentRepo    PaymentRepository
	gateway        GatewayClient
	verifier       SignatureVerifier
	sessions       OrderSessionStore
	notifier       Notifier
	settings       OrderSettings
	logger         *zap.Logger
	now            func() time.Time
}

// NewOrderService creates a new service for orders and payment verification
func NewOrderService(
	courseRepo CourseReader,
	enrollmentRepo EnrollmentRepository,
	paymentRepo PaymentRepository,
	gateway GatewayClient,
	verifier SignatureVerifier,
	sessions OrderSessionStore,
	notifier Notifier,
	settings OrderSettings,
	logger *zap.Logger,
) *orderService {
	return &orderService{
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		paymentRepo:    paymentRepo,
		gateway:        gateway,
		verifier:       verifier,
		sessions:       sessions,
		notifier:       notifier,
		settings:       settings,
		logger:         logger,
		now:            time.Now,
	}
}

// CreateOrder creates a pending payment for a paid course and opens the matching gateway order.
// The payment is stored before the gateway is called, so a gateway failure leaves it pending without an order id.
func (s *orderService) CreateOrder(ctx context.Context, userID, courseID int) (*models.OrderResponse, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsApproved() {
		return nil, apperrors.Precondition("course is not available for purchase")
	}

	price := course.EffectivePrice(s.now())
	if !price.IsPositive() {
		return nil, apperrors.Precondition("course is free, enroll directly")
	}

	enrolled, err := s.enrollmentRepo.Exists(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return nil, apperrors.Conflict("already enrolled")
	}

	platformFee, creatorPayout := models.SplitAmount(price, s.settings.PlatformFeeRate)
	payment := &models.Payment{
		UserID:        userID,
		CourseID:      courseID,
		Amount:        price,
		Currency:      s.settings.Currency,
		PlatformFee:   platformFee,
		CreatorPayout: creatorPayout,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	amountMinor := models.MinorUnits(price, s.settings.MinorUnitFactor)
	gatewayCtx, cancel := context.WithTimeout(ctx, s.settings.GatewayTimeout)
	defer cancel()

	orderID, err := s.gateway.CreateOrder(gatewayCtx, amountMinor, s.settings.Currency, strconv.Itoa(payment.ID))
	if err != nil {
		s.logger.Error("failed to open gateway order",
			zap.Int("payment_id", payment.ID),
			zap.Error(err))
		return nil, apperrors.External("payment gateway is unavailable, try again", err)
	}

	if err := s.paymentRepo.SetGatewayOrder(ctx, payment.ID, orderID); err != nil {
		return nil, fmt.Errorf("failed to store gateway order: %w", err)
	}
	if err := s.sessions.Save(ctx, orderID, payment.ID); err != nil {
		s.logger.Warn("failed to save order session",
			zap.Int("payment_id", payment.ID),
			zap.String("gateway_order_id", orderID),
			zap.Error(err))
	}

	s.logger.Info("order created",
		zap.Int("payment_id", payment.ID),
		zap.Int("user_id", userID),
		zap.Int("course_id", courseID),
		zap.String("amount", price.StringFixed(2)))

	return &models.OrderResponse{
		PaymentID:      payment.ID,
		GatewayOrderID: orderID,
		Amount:         price,
		AmountMinor:    amountMinor,
		Currency:       s.settings.Currency,
		KeyID:          s.settings.GatewayKeyID,
	}, nil
}

// VerifyPayment checks the checkout result the learner's client received from the gateway.
// A valid signature completes the payment and enrolls the learner; an invalid one fails the payment.
func (s *orderService) VerifyPayment(ctx context.Context, userID, paymentID int, req *models.VerifyPaymentRequest) (*models.Enrollment, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, apperrors.Forbidden("payment belongs to another user")
	}

	return s.settle(ctx, payment, req)
}

// HandleGatewayCallback is the server-to-server form of VerifyPayment.
// The payment is found through the order session, or by gateway order id once the session expired.
func (s *orderService) HandleGatewayCallback(ctx context.Context, req *models.VerifyPaymentRequest) (*models.Enrollment, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	paymentID, found, err := s.sessions.Lookup(ctx, req.GatewayOrderID)
	if err != nil {
		s.logger.Warn("failed to read order session", zap.String("gateway_order_id", req.GatewayOrderID), zap.Error(err))
		found = false
	}

	var payment *models.Payment
	if found {
		payment, err = s.paymentRepo.GetByID(ctx, paymentID)
	} else {
		payment, err = s.paymentRepo.GetByGatewayOrderID(ctx, req.GatewayOrderID)
	}
	if err != nil {
		return nil, err
	}

	return s.settle(ctx, payment, req)
}

func (s *orderService) settle(ctx context.Context, payment *models.Payment, req *models.VerifyPaymentRequest) (*models.Enrollment, error) {
	switch {
	case payment.Status == models.PaymentStatusCompleted, heldAsDuplicate(payment):
		return s.enrollmentRepo.GetByUserAndCourse(ctx, payment.UserID, payment.CourseID)
	case payment.Status == models.PaymentStatusPending:
	default:
		return nil, apperrors.Precondition(fmt.Sprintf("payment is %s", payment.Status))
	}

	if payment.GatewayOrderID == "" || payment.GatewayOrderID != req.GatewayOrderID ||
		!s.verifier.Verify(req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature) {
		return nil, s.reject(ctx, payment, req)
	}

	enrollment, transitioned, err := s.paymentRepo.CompleteAndEnroll(ctx, payment.ID, req.GatewayPaymentID, req.GatewaySignature, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to complete payment: %w", err)
	}
	if !transitioned {
		// Another request settled the payment first.
		current, err := s.paymentRepo.GetByID(ctx, payment.ID)
		if err != nil {
			return nil, err
		}
		if current.Status != models.PaymentStatusCompleted && !heldAsDuplicate(current) {
			return nil, apperrors.Precondition(fmt.Sprintf("payment is %s", current.Status))
		}
		return s.enrollmentRepo.GetByUserAndCourse(ctx, payment.UserID, payment.CourseID)
	}

	if enrollment.PaymentID == nil || *enrollment.PaymentID != payment.ID {
		// The repository held the charge for refund; no receipt goes out for it.
		payment.Status = models.PaymentStatusRefundRequested
		payment.RefundReason = models.DuplicatePaymentReason
		if err := s.sessions.Delete(ctx, payment.GatewayOrderID); err != nil {
			s.logger.Warn("failed to delete order session", zap.Int("payment_id", payment.ID), zap.Error(err))
		}
		s.logger.Warn("duplicate payment held for refund",
			zap.Int("payment_id", payment.ID),
			zap.Int("user_id", payment.UserID),
			zap.Int("enrollment_id", enrollment.ID))
		return enrollment, nil
	}

	payment.Status = models.PaymentStatusCompleted
	payment.GatewayPaymentID = req.GatewayPaymentID
	s.afterSettle(ctx, payment)

	s.logger.Info("payment completed",
		zap.Int("payment_id", payment.ID),
		zap.Int("enrollment_id", enrollment.ID))
	return enrollment, nil
}

// heldAsDuplicate reports whether a payment was completed for an existing enrollment
// and parked for refund
func heldAsDuplicate(payment *models.Payment) bool {
	return payment.Status == models.PaymentStatusRefundRequested && payment.RefundReason == models.DuplicatePaymentReason
}

// reject fails a pending payment whose gateway values did not verify
func (s *orderService) reject(ctx context.Context, payment *models.Payment, req *models.VerifyPaymentRequest) error {
	s.logger.Warn("payment signature mismatch",
		zap.Int("payment_id", payment.ID),
		zap.Int("user_id", payment.UserID),
		zap.String("gateway_order_id", req.GatewayOrderID),
		zap.String("gateway_payment_id", req.GatewayPaymentID))

	failed, err := s.paymentRepo.MarkFailed(ctx, payment.ID, req.GatewayPaymentID, req.GatewaySignature)
	if err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	if failed && payment.GatewayOrderID != "" {
		if err := s.sessions.Delete(ctx, payment.GatewayOrderID); err != nil {
			s.logger.Warn("failed to delete order session", zap.Int("payment_id", payment.ID), zap.Error(err))
		}
	}

	return apperrors.Security("payment failed")
}

func (s *orderService) afterSettle(ctx context.Context, payment *models.Payment) {
	if err := s.sessions.Delete(ctx, payment.GatewayOrderID); err != nil {
		s.logger.Warn("failed to delete order session", zap.Int("payment_id", payment.ID), zap.Error(err))
	}
	if err := s.notifier.PaymentCompleted(ctx, payment); err != nil {
		s.logger.Error("failed to enqueue payment notification", zap.Int("payment_id", payment.ID), zap.Error(err))
	}
}
