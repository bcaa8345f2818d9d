package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/models"
)

// defaultHolderName is printed when the access token carries no name
const defaultHolderName = "Learner"

// CertificateService is the interface that wraps methods for certificate business logic
type CertificateService interface {
	// GetCertificate returns the certificate of the learner's enrollment, issuing it when the course is complete.
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the learner that owns the enrollment.
	// "enrollmentID" is the ID of the enrollment.
	// "userName" is the name printed on the certificate.
	//
	// Returns the certificate and an error if any.
	GetCertificate(ctx context.Context, userID, enrollmentID int, userName string) (*models.Certificate, error)
	// IssueCertificate issues the certificate of a completed enrollment on behalf of its learner.
	IssueCertificate(ctx context.Context, enrollmentID int, userName string) (*models.Certificate, error)
}

// IssueCertificateRequest represents the request body for issuing a certificate as an admin
type IssueCertificateRequest struct {
	UserName string `json:"userName"`
}

// CertificateHandler handles HTTP requests for certificates
type CertificateHandler struct {
	BaseHandler
	service CertificateService
}

// NewCertificateHandler creates a new certificate handler
func NewCertificateHandler(svc CertificateService, logger *zap.Logger) *CertificateHandler {
	return &CertificateHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers the learner certificate routes
func (h *CertificateHandler) RegisterRoutes(r chi.Router) {
	r.Get("/enrollments/{id}/certificate", h.GetCertificate)
}

// RegisterAdminRoutes registers the admin certificate routes
func (h *CertificateHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/admin/enrollments/{id}/certificate", h.IssueCertificate)
}

// GetCertificate handles GET /api/v1/enrollments/{id}/certificate
// @Summary Get the course certificate
// @Description Returns the certificate of a completed enrollment, issuing it on first request
// @Tags certificates
// @Produce json
// @Security BearerAuth
// @Param id path int true "Enrollment ID"
// @Success 200 {object} models.Certificate
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /enrollments/{id}/certificate [get]
func (h *CertificateHandler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}

	enrollmentID, err := pathID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid enrollment id")
		return
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = defaultHolderName
	}

	certificate, err := h.service.GetCertificate(r.Context(), identity.UserID, enrollmentID, name)
	if err != nil {
		h.RespondServiceError(w, err, "failed to get certificate")
		return
	}

	h.RespondJSON(w, http.StatusOK, certificate)
}

// IssueCertificate handles POST /api/v1/admin/enrollments/{id}/certificate
// @Summary Issue a certificate
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Enrollment ID"
// @Param request body IssueCertificateRequest true "Holder name"
// @Success 200 {object} models.Certificate
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /admin/enrollments/{id}/certificate [post]
func (h *CertificateHandler) IssueCertificate(w http.ResponseWriter, r *http.Request) {
	enrollmentID, err := pathID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid enrollment id")
		return
	}

	var req IssueCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserName) == "" {
		h.RespondError(w, http.StatusBadRequest, "userName is required")
		return
	}

	certificate, err := h.service.IssueCertificate(r.Context(), enrollmentID, strings.TrimSpace(req.UserName))
	if err != nil {
		h.RespondServiceError(w, err, "failed to issue certificate")
		return
	}

	h.RespondJSON(w, http.StatusOK, certificate)
}
