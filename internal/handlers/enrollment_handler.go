package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/models"
)

// EnrollmentService is the interface that wraps methods for enrollment business logic
type EnrollmentService interface {
	// EnrollFree enrolls a learner in an approved course whose effective price is zero.
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the learner.
	// "courseID" is the ID of the course.
	//
	// Returns the new enrollment and an error if any.
	EnrollFree(ctx context.Context, userID, courseID int) (*models.Enrollment, error)
	// GetEnrollment retrieves the learner's enrollment in a course with its completed lessons.
	GetEnrollment(ctx context.Context, userID, courseID int) (*models.Enrollment, error)
	// ListEnrollments retrieves every enrollment of the learner.
	ListEnrollments(ctx context.Context, userID int) ([]models.Enrollment, error)
}

// EnrollmentHandler handles HTTP requests for enrollments
type EnrollmentHandler struct {
	BaseHandler
	service EnrollmentService
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(svc EnrollmentService, logger *zap.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers all enrollment handler routes
func (h *EnrollmentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/courses/{id}/enroll", h.EnrollFree)
	r.Get("/courses/{id}/enrollment", h.GetEnrollment)
	r.Get("/enrollments", h.ListEnrollments)
}

// EnrollFree handles POST /api/v1/courses/{id}/enroll
// @Summary Enroll in a free course
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 201 {object} models.Enrollment
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /courses/{id}/enroll [post]
func (h *EnrollmentHandler) EnrollFree(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}

	courseID, err := pathID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid course id")
		return
	}

	enrollment, err := h.service.EnrollFree(r.Context(), identity.UserID, courseID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to enroll")
		return
	}

	h.RespondJSON(w, http.StatusCreated, enrollment)
}

// GetEnrollment handles GET /api/v1/courses/{id}/enrollment
// @Summary Get the enrollment in a course
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} models.Enrollment
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /courses/{id}/enrollment [get]
func (h *EnrollmentHandler) GetEnrollment(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}

	courseID, err := pathID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid course id")
		return
	}

	enrollment, err := h.service.GetEnrollment(r.Context(), identity.UserID, courseID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to get enrollment")
		return
	}

	h.RespondJSON(w, http.StatusOK, enrollment)
}

// ListEnrollments handles GET /api/v1/enrollments
// @Summary List my enrollments
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Enrollment
// @Failure 500 {object} map[string]string
// @Router /enrollments [get]
func (h *EnrollmentHandler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}

	enrollments, err := h.service.ListEnrollments(r.Context(), identity.UserID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to list enrollments")
		return
	}

	h.RespondJSON(w, http.StatusOK, enrollments)
}
