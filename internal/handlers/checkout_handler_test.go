package handlers

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/models"
)

func setupCheckoutRouter(svc *mockOrderService) chi.Router {
	h := NewCheckoutHandler(svc, testLogger)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	h.RegisterWebhookRoutes(r)
	return r
}

func TestCheckoutHandler_CreateOrder(t *testing.T) {
	order := &models.OrderResponse{
		PaymentID:      3,
		GatewayOrderID: "order_abc",
		Amount:         decimal.RequireFromString("999.00"),
		AmountMinor:    99900,
		Currency:       "INR",
		KeyID:          "key_1",
	}

	tests := []struct {
		name           string
		body           any
		anonymous      bool
		svc            *mockOrderService
		expectedStatus int
	}{
		{
			name:           "success",
			body:           models.CreateOrderRequest{CourseID: 1},
			svc:            &mockOrderService{order: order},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "unauthenticated",
			body:           models.CreateOrderRequest{CourseID: 1},
			anonymous:      true,
			svc:            &mockOrderService{order: order},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "malformed body",
			body:           "{",
			svc:            &mockOrderService{order: order},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing course",
			body:           models.CreateOrderRequest{},
			svc:            &mockOrderService{order: order},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "already enrolled",
			body:           models.CreateOrderRequest{CourseID: 1},
			svc:            &mockOrderService{err: apperrors.Conflict("already enrolled")},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "gateway down",
			body:           models.CreateOrderRequest{CourseID: 1},
			svc:            &mockOrderService{err: apperrors.External("payment gateway unavailable", assert.AnError)},
			expectedStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := learner
			if tt.anonymous {
				identity = nil
			}

			w := performRequest(t, setupCheckoutRouter(tt.svc), http.MethodPost, "/orders", tt.body, identity)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusCreated {
				var resp models.OrderResponse
				decodeBody(t, w, &resp)
				assert.Equal(t, "order_abc", resp.GatewayOrderID)
				assert.Equal(t, int64(99900), resp.AmountMinor)
				assert.Equal(t, learner.UserID, tt.svc.lastUserID)
				assert.Equal(t, 1, tt.svc.lastCourseID)
			}
		})
	}
}

func TestCheckoutHandler_VerifyPayment(t *testing.T) {
	body := models.VerifyPaymentRequest{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_1",
		GatewaySignature: "sig",
	}

	tests := []struct {
		name           string
		path           string
		svc            *mockOrderService
		expectedStatus int
	}{
		{
			name:           "success",
			path:           "/payments/3/verify",
			svc:            &mockOrderService{enrollment: &models.Enrollment{ID: 9, CourseID: 1}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid payment id",
			path:           "/payments/abc/verify",
			svc:            &mockOrderService{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "signature mismatch",
			path:           "/payments/3/verify",
			svc:            &mockOrderService{err: apperrors.Security("invalid payment signature")},
			expectedStatus: http.StatusPaymentRequired,
		},
		{
			name:           "foreign payment",
			path:           "/payments/3/verify",
			svc:            &mockOrderService{err: apperrors.Forbidden("payment belongs to another user")},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(t, setupCheckoutRouter(tt.svc), http.MethodPost, tt.path, body, learner)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, 3, tt.svc.lastPaymentID)
				require.NotNil(t, tt.svc.lastVerify)
				assert.Equal(t, "pay_1", tt.svc.lastVerify.GatewayPaymentID)
			}
		})
	}
}

func TestCheckoutHandler_GatewayCallback(t *testing.T) {
	svc := &mockOrderService{enrollment: &models.Enrollment{ID: 9}}
	body := models.VerifyPaymentRequest{GatewayOrderID: "order_abc", GatewayPaymentID: "pay_1", GatewaySignature: "sig"}

	w := performRequest(t, setupCheckoutRouter(svc), http.MethodPost, "/webhooks/gateway", body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	decodeBody(t, w, &resp)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, float64(9), resp["enrollmentId"])

	svc.err = apperrors.NotFound("payment not found")
	w = performRequest(t, setupCheckoutRouter(svc), http.MethodPost, "/webhooks/gateway", body, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
