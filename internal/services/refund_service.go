package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/models"
)

// RefundRepository is the interface that wraps the payment transitions of the refund flow
type RefundRepository interface {
	// GetByID retrieves a payment by its ID, or a NotFound error.
	GetByID(ctx context.Context, id int) (*models.Payment, error)
	// RequestRefund moves a completed payment to refund_requested.
	//
	// Returns a Conflict error when the payment is no longer completed, or another error if any.
	RequestRefund(ctx context.Context, id int, reason string) error
	// ApproveRefund refunds a payment, removes the enrollment it paid for and decrements
	// the course counter in one transaction. Approving a refunded payment changes nothing.
	//
	// Returns whether an enrollment was removed, a Precondition error when no refund
	// was requested, or another error if any.
	ApproveRefund(ctx context.Context, id int) (bool, error)
	// RejectRefund returns a refund_requested payment to completed with the given reason.
	//
	// Returns a Conflict error when the request was already decided, or another error if any.
	RejectRefund(ctx context.Context, id int, reason string) error
}

type refundService struct {
	enrollmentRepo EnrollmentRepository
	paymentRepo    RefundRepository
	notifier       Notifier
	refundWindow   time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewRefundService creates a new refund service.
// Refunds can be requested for refundWindowDays days after enrollment.
func NewRefundService(enrollmentRepo EnrollmentRepository, paymentRepo RefundRepository, notifier Notifier, refundWindowDays int, logger *zap.Logger) *refundService {
	return &refundService{
		enrollmentRepo: enrollmentRepo,
		paymentRepo:    paymentRepo,
		notifier:       notifier,
		refundWindow:   time.Duration(refundWindowDays) * 24 * time.Hour,
		logger:         logger,
		now:            time.Now,
	}
}

// RequestRefund asks for a refund of the payment behind the user's enrollment in a course
func (s *refundService) RequestRefund(ctx context.Context, userID int, req *models.RefundRequest) (*models.Payment, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, apperrors.Validation("reason is required")
	}

	enrollment, err := s.enrollmentRepo.GetByUserAndCourse(ctx, userID, req.CourseID)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return nil, apperrors.Precondition("not enrolled in this course")
	}
	if err != nil {
		return nil, err
	}
	if enrollment.PaymentID == nil {
		return nil, apperrors.Precondition("free enrollments cannot be refunded")
	}
	if s.now().Sub(enrollment.EnrolledAt) > s.refundWindow {
		return nil, apperrors.Precondition(fmt.Sprintf("refunds are only possible within %d days of enrollment", int(s.refundWindow.Hours()/24)))
	}
	if enrollment.CertificateIssued {
		return nil, apperrors.Precondition("a certificate has already been issued for this course")
	}

	payment, err := s.paymentRepo.GetByID(ctx, *enrollment.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, apperrors.Precondition(fmt.Sprintf("payment is %s", payment.Status))
	}

	if err := s.paymentRepo.RequestRefund(ctx, payment.ID, reason); err != nil {
		return nil, fmt.Errorf("failed to request refund: %w", err)
	}

	payment.Status = models.PaymentStatusRefundRequested
	payment.RefundReason = reason
	s.logger.Info("refund requested", zap.Int("payment_id", payment.ID), zap.Int("user_id", userID))
	return payment, nil
}

// DecideRefund approves or rejects a refund request.
// Approving an already refunded payment returns it unchanged.
func (s *refundService) DecideRefund(ctx context.Context, paymentID int, req *models.RefundDecisionRequest) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if req.Approve {
		if payment.Status == models.PaymentStatusRefunded {
			return payment, nil
		}
		removed, err := s.paymentRepo.ApproveRefund(ctx, paymentID)
		if err != nil {
			return nil, fmt.Errorf("failed to approve refund: %w", err)
		}
		payment.Status = models.PaymentStatusRefunded
		s.logger.Info("refund approved", zap.Int("payment_id", paymentID), zap.Bool("enrollment_removed", removed))
	} else {
		if payment.Status != models.PaymentStatusRefundRequested {
			return nil, apperrors.Precondition("no refund has been requested for this payment")
		}
		note := strings.TrimSpace(req.Note)
		if note == "" {
			note = payment.RefundReason
		}
		reason := models.RejectedRefundPrefix + note
		if err := s.paymentRepo.RejectRefund(ctx, paymentID, reason); err != nil {
			return nil, fmt.Errorf("failed to reject refund: %w", err)
		}
		payment.Status = models.PaymentStatusCompleted
		payment.RefundReason = reason
		s.logger.Info("refund rejected", zap.Int("payment_id", paymentID))
	}

	if err := s.notifier.RefundDecided(ctx, payment, req.Approve); err != nil {
		s.logger.Error("failed to enqueue refund notification", zap.Int("payment_id", paymentID), zap.Error(err))
	}
	return payment, nil
}
