package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// sweepTimeout bounds a single sweep run
const sweepTimeout = 5 * time.Minute

// MaintenanceService defines the sweeps the scheduler runs
type MaintenanceService interface {
	// SweepStalePayments fails pending payments older than the pending lifetime
	SweepStalePayments(ctx context.Context) (int64, error)
	// ReconcileEnrollmentCounts repairs enrolled-student counters that drifted from the enrollments
	ReconcileEnrollmentCounts(ctx context.Context) (int64, error)
}

// Scheduler runs the maintenance sweeps on cron schedules
type Scheduler struct {
	cron        *cron.Cron
	maintenance MaintenanceService
	logger      *zap.Logger
}

// NewScheduler creates a scheduler; the schedules are standard five-field cron expressions
func NewScheduler(maintenance MaintenanceService, sweepSchedule, reconcileSchedule string, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:        cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		maintenance: maintenance,
		logger:      logger,
	}

	if _, err := s.cron.AddFunc(sweepSchedule, s.sweepStalePayments); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", sweepSchedule, err)
	}
	if _, err := s.cron.AddFunc(reconcileSchedule, s.reconcileEnrollmentCounts); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", reconcileSchedule, err)
	}

	return s, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop stops the scheduler and waits for running sweeps to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) sweepStalePayments() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	failed, err := s.maintenance.SweepStalePayments(ctx)
	if err != nil {
		s.logger.Error("Failed to sweep stale payments", zap.Error(err))
		return
	}
	if failed > 0 {
		s.logger.Info("Stale payments failed", zap.Int64("count", failed))
	}
}

func (s *Scheduler) reconcileEnrollmentCounts() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	fixed, err := s.maintenance.ReconcileEnrollmentCounts(ctx)
	if err != nil {
		s.logger.Error("Failed to reconcile enrollment counts", zap.Error(err))
		return
	}
	s.logger.Info("Enrollment counts reconciled", zap.Int64("fixed", fixed))
}
