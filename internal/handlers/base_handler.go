// Package handlers exposes the marketplace services over HTTP
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/auth"
	"github.com/learnmarket/backend/internal/middleware"
)

// BaseHandler provides common handler functionality
type BaseHandler struct {
	Logger *zap.Logger
}

// RespondJSON sends a JSON response
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondError sends an error JSON response
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, message string) {
	h.RespondJSON(w, status, map[string]string{"error": message})
}

// RespondServiceError sends the HTTP status matching the kind of a service error.
// Unclassified errors are logged and answered with the generic message.
func (h *BaseHandler) RespondServiceError(w http.ResponseWriter, err error, message string) {
	var status int
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindPrecondition, apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindForbidden:
		status = http.StatusForbidden
	case apperrors.KindExternal:
		h.Logger.Warn(message, zap.Error(err))
		status = http.StatusBadGateway
	case apperrors.KindSecurity:
		status = http.StatusPaymentRequired
	default:
		h.Logger.Error(message, zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, message)
		return
	}

	h.RespondError(w, status, apperrors.Reason(err))
}

// caller returns the authenticated identity, answering 401 when there is none
func (h *BaseHandler) caller(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return identity, true
}

// pathID parses a positive integer URL parameter
func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
