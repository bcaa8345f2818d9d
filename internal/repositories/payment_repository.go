package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/models"
)

const paymentColumns = `
	id, user_id, course_id, amount, currency, status, platform_fee, creator_payout,
	gateway_order_id, gateway_payment_id, gateway_signature, creator_paid, payout_id,
	refund_reason, created_at, updated_at
`

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sql.DB) *paymentRepository {
	return &paymentRepository{
		db: db,
	}
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var orderID, gatewayPaymentID, signature, refundReason sql.NullString
	var payoutID sql.NullInt64
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.CourseID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.PlatformFee,
		&p.CreatorPayout,
		&orderID,
		&gatewayPaymentID,
		&signature,
		&p.CreatorPaid,
		&payoutID,
		&refundReason,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.GatewayOrderID = orderID.String
	p.GatewayPaymentID = gatewayPaymentID.String
	p.GatewaySignature = signature.String
	p.RefundReason = refundReason.String
	p.PayoutID = intPtr(payoutID)
	return &p, nil
}

// Create inserts a pending payment after checking that the split balances
func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if err := payment.CheckSplit(); err != nil {
		return err
	}

	query := `
		INSERT INTO payments (user_id, course_id, amount, currency, status, platform_fee, creator_payout)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		payment.UserID,
		payment.CourseID,
		payment.Amount,
		payment.Currency,
		models.PaymentStatusPending,
		payment.PlatformFee,
		payment.CreatorPayout,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	payment.ID = int(id)
	payment.Status = models.PaymentStatusPending
	return nil
}

// GetByID retrieves a payment by its ID
func (r *paymentRepository) GetByID(ctx context.Context, id int) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ? LIMIT 1`

	payment, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("payment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by id: %w", err)
	}

	return payment, nil
}

// GetByGatewayOrderID retrieves a payment by the gateway's order ID
func (r *paymentRepository) GetByGatewayOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_order_id = ? LIMIT 1`

	payment, err := scanPayment(r.db.QueryRowContext(ctx, query, orderID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("payment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by gateway order id: %w", err)
	}

	return payment, nil
}

// SetGatewayOrder stores the gateway order ID on a pending payment
func (r *paymentRepository) SetGatewayOrder(ctx context.Context, id int, orderID string) error {
	query := `UPDATE payments SET gateway_order_id = ? WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query, orderID, id, models.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("failed to set gateway order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.Conflict("payment is no longer pending")
	}

	return nil
}

// MarkFailed moves a pending payment to failed, keeping the rejected gateway values for audit.
// Returns false when the payment was not pending anymore.
func (r *paymentRepository) MarkFailed(ctx context.Context, id int, gatewayPaymentID, signature string) (bool, error) {
	query := `
		UPDATE payments
		SET status = ?, gateway_payment_id = ?, gateway_signature = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		models.PaymentStatusFailed,
		nullString(gatewayPaymentID),
		nullString(signature),
		id,
		models.PaymentStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment failed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// CompleteAndEnroll completes a pending payment and enrolls its learner in one transaction.
// Returns transitioned=false without changes when the payment is not pending anymore.
// When the learner is already enrolled through another payment the existing enrollment is returned
// and this payment is moved to refund_requested with DuplicatePaymentReason.
func (r *paymentRepository) CompleteAndEnroll(ctx context.Context, id int, gatewayPaymentID, signature string, at time.Time) (*models.Enrollment, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID, courseID int
	var status models.PaymentStatus
	lockQuery := `SELECT user_id, course_id, status FROM payments WHERE id = ? FOR UPDATE`
	err = tx.QueryRowContext(ctx, lockQuery, id).Scan(&userID, &courseID, &status)
	if err == sql.ErrNoRows {
		return nil, false, apperrors.NotFound("payment not found")
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock payment: %w", err)
	}
	if status != models.PaymentStatusPending {
		return nil, false, nil
	}

	updateQuery := `
		UPDATE payments
		SET status = ?, gateway_payment_id = ?, gateway_signature = ?
		WHERE id = ? AND status = ?
	`
	result, err := tx.ExecContext(ctx, updateQuery,
		models.PaymentStatusCompleted,
		gatewayPaymentID,
		signature,
		id,
		models.PaymentStatusPending,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to complete payment: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, false, nil
	}

	enrollment := &models.Enrollment{
		UserID:           userID,
		CourseID:         courseID,
		PaymentID:        &id,
		CompletedLessons: []int{},
		EnrolledAt:       at,
	}
	created, err := insertEnrollmentTx(ctx, tx, enrollment)
	if err != nil {
		return nil, false, err
	}
	if !created {
		existingQuery := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = ? AND course_id = ?`
		enrollment, err = scanEnrollment(tx.QueryRowContext(ctx, existingQuery, userID, courseID))
		if err != nil {
			return nil, false, fmt.Errorf("failed to load existing enrollment: %w", err)
		}
		if enrollment.PaymentID == nil || *enrollment.PaymentID != id {
			// Enrolled through another payment: hold this charge for refund, out of creator payouts.
			holdQuery := `UPDATE payments SET status = ?, refund_reason = ? WHERE id = ?`
			if _, err := tx.ExecContext(ctx, holdQuery, models.PaymentStatusRefundRequested, models.DuplicatePaymentReason, id); err != nil {
				return nil, false, fmt.Errorf("failed to hold duplicate payment: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return enrollment, true, nil
}

// RequestRefund moves a completed payment to refund_requested
func (r *paymentRepository) RequestRefund(ctx context.Context, id int, reason string) error {
	query := `UPDATE payments SET status = ?, refund_reason = ? WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query,
		models.PaymentStatusRefundRequested,
		reason,
		id,
		models.PaymentStatusCompleted,
	)
	if err != nil {
		return fmt.Errorf("failed to request refund: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.Conflict("payment is not refundable anymore")
	}

	return nil
}

// ApproveRefund refunds a payment, removes the enrollment it paid for and
// decrements the course counter, all under a lock on the payment row.
// Approving an already refunded payment changes nothing and an enrollment
// that already earned its certificate blocks the refund.
// Returns whether an enrollment was removed.
func (r *paymentRepository) ApproveRefund(ctx context.Context, id int) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID, courseID int
	var status models.PaymentStatus
	lockQuery := `SELECT user_id, course_id, status FROM payments WHERE id = ? FOR UPDATE`
	err = tx.QueryRowContext(ctx, lockQuery, id).Scan(&userID, &courseID, &status)
	if err == sql.ErrNoRows {
		return false, apperrors.NotFound("payment not found")
	}
	if err != nil {
		return false, fmt.Errorf("failed to lock payment: %w", err)
	}

	switch status {
	case models.PaymentStatusRefunded:
		return false, nil
	case models.PaymentStatusRefundRequested:
	default:
		return false, apperrors.Precondition("no refund has been requested for this payment")
	}

	var certified bool
	enrollmentQuery := `SELECT certificate_issued FROM enrollments WHERE user_id = ? AND course_id = ? AND payment_id = ? FOR UPDATE`
	err = tx.QueryRowContext(ctx, enrollmentQuery, userID, courseID, id).Scan(&certified)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to lock enrollment: %w", err)
	}
	if certified {
		return false, apperrors.Precondition("a certificate has been issued for this enrollment")
	}

	if _, err := tx.ExecContext(ctx, `UPDATE payments SET status = ? WHERE id = ?`, models.PaymentStatusRefunded, id); err != nil {
		return false, fmt.Errorf("failed to mark payment refunded: %w", err)
	}

	deleteQuery := `DELETE FROM enrollments WHERE user_id = ? AND course_id = ? AND payment_id = ?`
	result, err := tx.ExecContext(ctx, deleteQuery, userID, courseID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete enrollment: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if deleted > 0 {
		counterQuery := `UPDATE courses SET enrolled_students = GREATEST(enrolled_students - 1, 0) WHERE id = ?`
		if _, err := tx.ExecContext(ctx, counterQuery, courseID); err != nil {
			return false, fmt.Errorf("failed to decrement enrolled students: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return deleted > 0, nil
}

// RejectRefund returns a refund_requested payment to completed with the annotated reason
func (r *paymentRepository) RejectRefund(ctx context.Context, id int, reason string) error {
	query := `UPDATE payments SET status = ?, refund_reason = ? WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query,
		models.PaymentStatusCompleted,
		reason,
		id,
		models.PaymentStatusRefundRequested,
	)
	if err != nil {
		return fmt.Errorf("failed to reject refund: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.Conflict("refund request has already been decided")
	}

	return nil
}

// FailStalePending fails pending payments created before the cutoff
func (r *paymentRepository) FailStalePending(ctx context.Context, before time.Time) (int64, error) {
	query := `UPDATE payments SET status = ? WHERE status = ? AND created_at < ?`

	result, err := r.db.ExecContext(ctx, query, models.PaymentStatusFailed, models.PaymentStatusPending, before)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale payments: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
