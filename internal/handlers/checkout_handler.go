package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/models"
)

// OrderService is the interface that wraps methods for checkout and payment verification
type OrderService interface {
	// CreateOrder creates a pending payment for a paid course and opens a gateway order for it.
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the paying learner.
	// "courseID" is the ID of the course to buy.
	//
	// Returns the data the client needs to open the gateway checkout and an error if any.
	CreateOrder(ctx context.Context, userID, courseID int) (*models.OrderResponse, error)
	// VerifyPayment verifies the gateway signature of a checkout and enrolls the learner.
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the learner that owns the payment.
	// "paymentID" is the ID of the payment.
	// "req" carries the gateway order, payment and signature.
	//
	// Returns the enrollment and an error if any.
	VerifyPayment(ctx context.Context, userID, paymentID int, req *models.VerifyPaymentRequest) (*models.Enrollment, error)
	// HandleGatewayCallback settles a payment reported by the gateway.
	//
	// "ctx" is the context for the request.
	// "req" carries the gateway order, payment and signature.
	//
	// Returns the enrollment and an error if any.
	HandleGatewayCallback(ctx context.Context, req *models.VerifyPaymentRequest) (*models.Enrollment, error)
}

// CheckoutHandler handles HTTP requests for orders and payments
type CheckoutHandler struct {
	BaseHandler
	service OrderService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(svc OrderService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers the learner checkout routes
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.CreateOrder)
	r.Post("/payments/{id}/verify", h.VerifyPayment)
}

// RegisterWebhookRoutes registers the gateway callback route
func (h *CheckoutHandler) RegisterWebhookRoutes(r chi.Router) {
	r.Post("/webhooks/gateway", h.GatewayCallback)
}

// CreateOrder handles POST /api/v1/orders
// @Summary Create a payment order
// @Description Create a pending payment for a paid course and open the gateway order
// @Tags checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateOrderRequest true "Course to buy"
// @Success 201 {object} models.OrderResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /orders [post]
func (h *CheckoutHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CourseID <= 0 {
		h.RespondError(w, http.StatusBadRequest, "courseId is required")
		return
	}

	order, err := h.service.CreateOrder(r.Context(), identity.UserID, req.CourseID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to create order")
		return
	}

	h.RespondJSON(w, http.StatusCreated, order)
}

// VerifyPayment handles POST /api/v1/payments/{id}/verify
// @Summary Verify a payment
// @Description Verify the gateway signature of a checkout and enroll the learner
// @Tags checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Param request body models.VerifyPaymentRequest true "Gateway checkout result"
// @Success 200 {object} models.Enrollment
// @Failure 400 {object} map[string]string
// @Failure 402 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /payments/{id}/verify [post]
func (h *CheckoutHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}

	paymentID, err := pathID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	var req models.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	enrollment, err := h.service.VerifyPayment(r.Context(), identity.UserID, paymentID, &req)
	if err != nil {
		h.RespondServiceError(w, err, "failed to verify payment")
		return
	}

	h.RespondJSON(w, http.StatusOK, enrollment)
}

// GatewayCallback handles POST /api/v1/webhooks/gateway
// @Summary Gateway payment callback
// @Description Settle a payment reported by the payment gateway
// @Tags checkout
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body models.VerifyPaymentRequest true "Gateway payment result"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 402 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /webhooks/gateway [post]
func (h *CheckoutHandler) GatewayCallback(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	enrollment, err := h.service.HandleGatewayCallback(r.Context(), &req)
	if err != nil {
		h.RespondServiceError(w, err, "failed to handle gateway callback")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"enrollmentId": enrollment.ID,
	})
}
