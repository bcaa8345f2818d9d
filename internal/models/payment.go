package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the state of a payment
type PaymentStatus string

const (
	PaymentStatusPending         PaymentStatus = "pending"
	PaymentStatusCompleted       PaymentStatus = "completed"
	PaymentStatusFailed          PaymentStatus = "failed"
	PaymentStatusRefundRequested PaymentStatus = "refund_requested"
	PaymentStatusRefunded        PaymentStatus = "refunded"
)

// RejectedRefundPrefix marks the refund reason of a payment whose refund was rejected
const RejectedRefundPrefix = "rejected: "

// DuplicatePaymentReason is the refund reason recorded on a payment completed for a learner
// who was already enrolled in the course
const DuplicatePaymentReason = "duplicate payment: learner already enrolled"

// Payment represents a learner's payment for a course
type Payment struct {
	ID               int             `json:"id"`
	UserID           int             `json:"userId"`
	CourseID         int             `json:"courseId"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           PaymentStatus   `json:"status"`
	PlatformFee      decimal.Decimal `json:"platformFee"`
	CreatorPayout    decimal.Decimal `json:"creatorPayout"`
	GatewayOrderID   string          `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string          `json:"gatewayPaymentId,omitempty"`
	GatewaySignature string          `json:"-"`
	CreatorPaid      bool            `json:"creatorPaid"`
	PayoutID         *int            `json:"payoutId,omitempty"`
	RefundReason     string          `json:"refundReason,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// CheckSplit verifies that the amount equals platform fee plus creator payout
func (p *Payment) CheckSplit() error {
	if !p.Amount.Equal(p.PlatformFee.Add(p.CreatorPayout)) {
		return fmt.Errorf("payment split mismatch: amount %s != fee %s + payout %s",
			p.Amount.StringFixed(2), p.PlatformFee.StringFixed(2), p.CreatorPayout.StringFixed(2))
	}
	return nil
}

// SplitAmount splits a price into the platform fee, rounded half away from zero
// to whole currency units, and the creator's share of the remainder.
func SplitAmount(price, feeRate decimal.Decimal) (platformFee, creatorPayout decimal.Decimal) {
	platformFee = price.Mul(feeRate).Round(0)
	creatorPayout = price.Sub(platformFee)
	return platformFee, creatorPayout
}

// MinorUnits converts an amount to the gateway's smallest currency unit
func MinorUnits(amount decimal.Decimal, factor int64) int64 {
	return amount.Mul(decimal.NewFromInt(factor)).Round(0).IntPart()
}

// CreateOrderRequest represents the request body for creating a payment order
type CreateOrderRequest struct {
	CourseID int `json:"courseId"`
}

// OrderResponse is returned to the client to open the gateway checkout
type OrderResponse struct {
	PaymentID      int             `json:"paymentId"`
	GatewayOrderID string          `json:"gatewayOrderId"`
	Amount         decimal.Decimal `json:"amount"`
	AmountMinor    int64           `json:"amountMinor"`
	Currency       string          `json:"currency"`
	KeyID          string          `json:"keyId"`
}

// VerifyPaymentRequest carries the gateway's checkout result
type VerifyPaymentRequest struct {
	GatewayPaymentID string `json:"gatewayPaymentId"`
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewaySignature string `json:"gatewaySignature"`
}

// Validate checks that all gateway fields are present
func (r *VerifyPaymentRequest) Validate() error {
	if r.GatewayPaymentID == "" || r.GatewayOrderID == "" || r.GatewaySignature == "" {
		return fmt.Errorf("gatewayPaymentId, gatewayOrderId and gatewaySignature are required")
	}
	return nil
}

// RefundRequest represents the request body for requesting a refund
type RefundRequest struct {
	CourseID int    `json:"courseId"`
	Reason   string `json:"reason"`
}

// RefundDecisionRequest represents an admin decision on a refund request
type RefundDecisionRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}
