package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/models"
)

// PayoutService is the interface that wraps methods for creator payouts
type PayoutService interface {
	// ProcessPayouts settles the unpaid earnings of a creator.
	//
	// "ctx" is the context for the request.
	// "creatorID" is the ID of the creator.
	//
	// Returns the payout, with a zero amount when nothing was due, and an error if any.
	ProcessPayouts(ctx context.Context, creatorID int) (*models.Payout, error)
	// ProcessAllPayouts settles every creator with unpaid earnings.
	//
	// Returns the payouts made, and an error counting the creators that failed.
	ProcessAllPayouts(ctx context.Context) ([]models.Payout, error)
}

// MaintenanceService is the interface that wraps the administrative sweeps
type MaintenanceService interface {
	// SweepStalePayments fails abandoned pending payments and returns how many were failed.
	SweepStalePayments(ctx context.Context) (int64, error)
	// ReconcileEnrollmentCounts repairs drifted enrollment counters and returns how many courses changed.
	ReconcileEnrollmentCounts(ctx context.Context) (int64, error)
}

// AdminHandler handles admin HTTP requests for payouts and maintenance
type AdminHandler struct {
	BaseHandler
	payoutService      PayoutService
	maintenanceService MaintenanceService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(payoutService PayoutService, maintenanceService MaintenanceService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler:        BaseHandler{Logger: logger},
		payoutService:      payoutService,
		maintenanceService: maintenanceService,
	}
}

// RegisterRoutes registers all admin handler routes
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/admin/payouts", h.ProcessAllPayouts)
	r.Post("/admin/payouts/{creatorId}", h.ProcessPayouts)
	r.Post("/admin/maintenance/stale-payments", h.SweepStalePayments)
	r.Post("/admin/maintenance/enrollment-counts", h.ReconcileEnrollmentCounts)
}

// ProcessPayouts handles POST /api/v1/admin/payouts/{creatorId}
// @Summary Pay out a creator
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param creatorId path int true "Creator ID"
// @Success 200 {object} models.Payout
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /admin/payouts/{creatorId} [post]
func (h *AdminHandler) ProcessPayouts(w http.ResponseWriter, r *http.Request) {
	creatorID, err := pathID(r, "creatorId")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid creator id")
		return
	}

	payout, err := h.payoutService.ProcessPayouts(r.Context(), creatorID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to process payouts")
		return
	}

	h.RespondJSON(w, http.StatusOK, payout)
}

// ProcessAllPayouts handles POST /api/v1/admin/payouts
// @Summary Pay out every creator
// @Description Creators that fail are skipped; the response lists the payouts that were made
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Payout
// @Failure 500 {object} map[string]any
// @Router /admin/payouts [post]
func (h *AdminHandler) ProcessAllPayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := h.payoutService.ProcessAllPayouts(r.Context())
	if err != nil {
		h.Logger.Error("failed to process all payouts", zap.Error(err))
		h.RespondJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "failed to process some payouts",
			"payouts": payouts,
		})
		return
	}

	h.RespondJSON(w, http.StatusOK, payouts)
}

// SweepStalePayments handles POST /api/v1/admin/maintenance/stale-payments
// @Summary Fail abandoned pending payments
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int64
// @Failure 500 {object} map[string]string
// @Router /admin/maintenance/stale-payments [post]
func (h *AdminHandler) SweepStalePayments(w http.ResponseWriter, r *http.Request) {
	failed, err := h.maintenanceService.SweepStalePayments(r.Context())
	if err != nil {
		h.RespondServiceError(w, err, "failed to sweep stale payments")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]int64{"failed": failed})
}

// ReconcileEnrollmentCounts handles POST /api/v1/admin/maintenance/enrollment-counts
// @Summary Repair enrollment counters
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int64
// @Failure 500 {object} map[string]string
// @Router /admin/maintenance/enrollment-counts [post]
func (h *AdminHandler) ReconcileEnrollmentCounts(w http.ResponseWriter, r *http.Request) {
	fixed, err := h.maintenanceService.ReconcileEnrollmentCounts(r.Context())
	if err != nil {
		h.RespondServiceError(w, err, "failed to reconcile enrollment counts")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]int64{"fixed": fixed})
}
