package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StalePaymentRepository is the interface that wraps the sweep of abandoned checkouts
type StalePaymentRepository interface {
	// FailStalePending fails pending payments created before the cutoff and returns how many were failed.
	FailStalePending(ctx context.Context, before time.Time) (int64, error)
}

// EnrollmentCounterRepository is the interface that wraps the repair of denormalized enrollment counters
type EnrollmentCounterRepository interface {
	// ReconcileEnrollmentCounts rewrites drifted enrolled_students counters and returns how many courses changed.
	ReconcileEnrollmentCounts(ctx context.Context) (int64, error)
}

type maintenanceService struct {
	paymentRepo StalePaymentRepository
	courseRepo  EnrollmentCounterRepository
	pendingTTL  time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewMaintenanceService creates a new service for administrative sweeps.
// Pending payments older than pendingTTL are considered abandoned.
func NewMaintenanceService(paymentRepo StalePaymentRepository, courseRepo EnrollmentCounterRepository, pendingTTL time.Duration, logger *zap.Logger) *maintenanceService {
	return &maintenanceService{
		paymentRepo: paymentRepo,
		courseRepo:  courseRepo,
		pendingTTL:  pendingTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// SweepStalePayments fails pending payments whose checkout was abandoned
func (s *maintenanceService) SweepStalePayments(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.pendingTTL)

	failed, err := s.paymentRepo.FailStalePending(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale payments: %w", err)
	}

	if failed > 0 {
		s.logger.Info("stale payments failed", zap.Int64("count", failed), zap.Time("cutoff", cutoff))
	}
	return failed, nil
}

// ReconcileEnrollmentCounts repairs enrolled student counters that drifted from the enrollments table
func (s *maintenanceService) ReconcileEnrollmentCounts(ctx context.Context) (int64, error) {
	fixed, err := s.courseRepo.ReconcileEnrollmentCounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile enrollment counts: %w", err)
	}

	if fixed > 0 {
		s.logger.Warn("enrollment counters corrected", zap.Int64("courses", fixed))
	}
	return fixed, nil
}
