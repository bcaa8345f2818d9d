package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/models"
)

// RefundService is the interface that wraps methods for the refund flow
type RefundService interface {
	// RequestRefund asks for a refund of the payment behind the learner's enrollment.
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the learner.
	// "req" names the course and the reason.
	//
	// Returns the payment in refund_requested status and an error if any.
	RequestRefund(ctx context.Context, userID int, req *models.RefundRequest) (*models.Payment, error)
	// DecideRefund approves or rejects a refund request.
	//
	// "ctx" is the context for the request.
	// "paymentID" is the ID of the payment.
	// "req" holds the decision and an optional note.
	//
	// Returns the updated payment and an error if any.
	DecideRefund(ctx context.Context, paymentID int, req *models.RefundDecisionRequest) (*models.Payment, error)
}

// RefundHandler handles HTTP requests for refunds
type RefundHandler struct {
	BaseHandler
	service RefundService
}

// NewRefundHandler creates a new refund handler
func NewRefundHandler(svc RefundService, logger *zap.Logger) *RefundHandler {
	return &RefundHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers the learner refund routes
func (h *RefundHandler) RegisterRoutes(r chi.Router) {
	r.Post("/refunds", h.RequestRefund)
}

// RegisterAdminRoutes registers the admin refund routes
func (h *RefundHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/admin/refunds/{paymentId}/decision", h.DecideRefund)
}

// RequestRefund handles POST /api/v1/refunds
// @Summary Request a refund
// @Tags refunds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.RefundRequest true "Course and reason"
// @Success 201 {object} models.Payment
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /refunds [post]
func (h *RefundHandler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req models.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CourseID <= 0 {
		h.RespondError(w, http.StatusBadRequest, "courseId is required")
		return
	}

	payment, err := h.service.RequestRefund(r.Context(), identity.UserID, &req)
	if err != nil {
		h.RespondServiceError(w, err, "failed to request refund")
		return
	}

	h.RespondJSON(w, http.StatusCreated, payment)
}

// DecideRefund handles POST /api/v1/admin/refunds/{paymentId}/decision
// @Summary Decide a refund request
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paymentId path int true "Payment ID"
// @Param request body models.RefundDecisionRequest true "Decision"
// @Success 200 {object} models.Payment
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/refunds/{paymentId}/decision [post]
func (h *RefundHandler) DecideRefund(w http.ResponseWriter, r *http.Request) {
	paymentID, err := pathID(r, "paymentId")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	var req models.RefundDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, err := h.service.DecideRefund(r.Context(), paymentID, &req)
	if err != nil {
		h.RespondServiceError(w, err, "failed to decide refund")
		return
	}

	h.RespondJSON(w, http.StatusOK, payment)
}
