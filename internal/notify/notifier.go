// Package notify turns committed money events into asynq tasks for the worker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/learnmarket/backend/internal/models"
)

// Task types handled by the worker
const (
	TypePaymentCompleted = "notify:payment_completed"
	TypeRefundDecided    = "notify:refund_decided"
	TypePayoutProcessed  = "notify:payout_processed"
)

// QueueNotifications is the asynq queue notification tasks go to
const QueueNotifications = "notifications"

const maxRetry = 5

// Enqueuer is the part of *asynq.Client the notifier needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// PaymentCompletedPayload is the payload of TypePaymentCompleted
type PaymentCompletedPayload struct {
	PaymentID int    `json:"paymentId"`
	UserID    int    `json:"userId"`
	CourseID  int    `json:"courseId"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

// RefundDecidedPayload is the payload of TypeRefundDecided
type RefundDecidedPayload struct {
	PaymentID int    `json:"paymentId"`
	UserID    int    `json:"userId"`
	CourseID  int    `json:"courseId"`
	Approved  bool   `json:"approved"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Reason    string `json:"reason,omitempty"`
}

// PayoutProcessedPayload is the payload of TypePayoutProcessed
type PayoutProcessedPayload struct {
	PayoutID     int    `json:"payoutId"`
	CreatorID    int    `json:"creatorId"`
	Amount       string `json:"amount"`
	PaymentCount int    `json:"paymentCount"`
}

// Notifier enqueues notification tasks
type Notifier struct {
	client Enqueuer
}

// NewNotifier creates a notifier on top of an asynq client
func NewNotifier(client Enqueuer) *Notifier {
	return &Notifier{
		client: client,
	}
}

// PaymentCompleted enqueues the payment receipt for the learner
func (n *Notifier) PaymentCompleted(ctx context.Context, payment *models.Payment) error {
	return n.enqueue(ctx, TypePaymentCompleted, PaymentCompletedPayload{
		PaymentID: payment.ID,
		UserID:    payment.UserID,
		CourseID:  payment.CourseID,
		Amount:    payment.Amount.StringFixed(2),
		Currency:  payment.Currency,
	})
}

// RefundDecided enqueues the refund decision for the learner
func (n *Notifier) RefundDecided(ctx context.Context, payment *models.Payment, approved bool) error {
	return n.enqueue(ctx, TypeRefundDecided, RefundDecidedPayload{
		PaymentID: payment.ID,
		UserID:    payment.UserID,
		CourseID:  payment.CourseID,
		Approved:  approved,
		Amount:    payment.Amount.StringFixed(2),
		Currency:  payment.Currency,
		Reason:    payment.RefundReason,
	})
}

// PayoutProcessed enqueues the payout statement for the creator
func (n *Notifier) PayoutProcessed(ctx context.Context, payout *models.Payout) error {
	return n.enqueue(ctx, TypePayoutProcessed, PayoutProcessedPayload{
		PayoutID:     payout.ID,
		CreatorID:    payout.CreatorID,
		Amount:       payout.Amount.StringFixed(2),
		PaymentCount: payout.PaymentCount,
	})
}

func (n *Notifier) enqueue(ctx context.Context, taskType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", taskType, err)
	}

	task := asynq.NewTask(taskType, data)
	if _, err := n.client.EnqueueContext(ctx, task, asynq.Queue(QueueNotifications), asynq.MaxRetry(maxRetry)); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", taskType, err)
	}

	return nil
}
