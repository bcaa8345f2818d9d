package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/models"
)

// PayoutRepository is the interface that wraps methods for creator payout settlement
type PayoutRepository interface {
	// SettleCreator pays out every completed, unpaid payment of the creator's courses in one transaction.
	//
	// "ctx" is the context for the request.
	// "creatorID" is the creator to settle.
	// "processedAt" is the settlement time.
	//
	// Returns the payout, with a zero amount and no stored row when nothing was due, and an error if any.
	SettleCreator(ctx context.Context, creatorID int, processedAt time.Time) (*models.Payout, error)
	// ListCreatorsWithUnpaid lists creators that have completed payments awaiting payout.
	ListCreatorsWithUnpaid(ctx context.Context) ([]int, error)
}

type payoutService struct {
	payoutRepo PayoutRepository
	notifier   Notifier
	logger     *zap.Logger
	now        func() time.Time
}

// NewPayoutService creates a new payout service
func NewPayoutService(payoutRepo PayoutRepository, notifier Notifier, logger *zap.Logger) *payoutService {
	return &payoutService{
		payoutRepo: payoutRepo,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessPayouts settles the unpaid earnings of a creator
func (s *payoutService) ProcessPayouts(ctx context.Context, creatorID int) (*models.Payout, error) {
	payout, err := s.payoutRepo.SettleCreator(ctx, creatorID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to settle creator %d: %w", creatorID, err)
	}
	if payout.PaymentCount == 0 {
		return payout, nil
	}

	s.logger.Info("payout processed",
		zap.Int("payout_id", payout.ID),
		zap.Int("creator_id", creatorID),
		zap.String("amount", payout.Amount.StringFixed(2)),
		zap.Int("payments", payout.PaymentCount))

	if err := s.notifier.PayoutProcessed(ctx, payout); err != nil {
		s.logger.Error("failed to enqueue payout notification", zap.Int("payout_id", payout.ID), zap.Error(err))
	}
	return payout, nil
}

// ProcessAllPayouts settles every creator with unpaid earnings.
// A failing creator does not stop the others; the number of failures is reported in the error.
func (s *payoutService) ProcessAllPayouts(ctx context.Context) ([]models.Payout, error) {
	creatorIDs, err := s.payoutRepo.ListCreatorsWithUnpaid(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list creators: %w", err)
	}

	payouts := []models.Payout{}
	failed := 0
	for _, creatorID := range creatorIDs {
		payout, err := s.ProcessPayouts(ctx, creatorID)
		if err != nil {
			s.logger.Error("failed to process payout", zap.Int("creator_id", creatorID), zap.Error(err))
			failed++
			continue
		}
		if payout.PaymentCount > 0 {
			payouts = append(payouts, *payout)
		}
	}

	if failed > 0 {
		return payouts, fmt.Errorf("failed to process payouts for %d of %d creators", failed, len(creatorIDs))
	}
	return payouts, nil
}
