// Package services holds the business rules of the marketplace core: the course
// lifecycle gate, orders and payments, enrollment, progress, certificates, refunds
// and creator payouts.
package services

import (
	"context"

	"github.com/learnmarket/backend/internal/models"
)

// CourseReader is the interface that wraps read access to courses
type CourseReader interface {
	// GetByID retrieves a course by its ID.
	//
	// "ctx" is the context for the request.
	// "id" is the course ID.
	//
	// Returns the course, a NotFound error when it does not exist, or another error if any.
	GetByID(ctx context.Context, id int) (*models.Course, error)
}

// Notifier is the interface that wraps the notifications sent after money state changes.
// Implementations only enqueue; a failure is logged by the caller and never undoes the change.
type Notifier interface {
	// PaymentCompleted notifies the learner about a completed payment
	PaymentCompleted(ctx context.Context, payment *models.Payment) error
	// RefundDecided notifies the learner about an approved or rejected refund
	RefundDecided(ctx context.Context, payment *models.Payment, approved bool) error
	// PayoutProcessed notifies the creator about a settled payout
	PayoutProcessed(ctx context.Context, payout *models.Payout) error
}
