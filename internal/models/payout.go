package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payout is a settled batch of creator earnings
type Payout struct {
	ID           int             `json:"id"`
	CreatorID    int             `json:"creatorId"`
	Amount       decimal.Decimal `json:"amount"`
	PaymentCount int             `json:"paymentCount"`
	PaymentIDs   []int           `json:"paymentIds"`
	ProcessedAt  time.Time       `json:"processedAt"`
}

// UnpaidEarning is a completed payment whose creator share has not been paid out yet
type UnpaidEarning struct {
	PaymentID     int
	CreatorPayout decimal.Decimal
}
