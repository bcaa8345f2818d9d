package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/models"
)

// CourseLifecycleService is the interface that wraps methods for course authoring and review
type CourseLifecycleService interface {
	// CreateCourse creates a draft course.
	//
	// "ctx" is the context for the request.
	// "creatorID" is the ID of the creator that owns the course.
	// "req" is the request to create a course.
	//
	// Returns the created course and an error if any.
	CreateCourse(ctx context.Context, creatorID int, req *models.CreateCourseRequest) (*models.Course, error)
	// AddModule adds a module to a course of the creator.
	AddModule(ctx context.Context, creatorID, courseID int, req *models.CreateModuleRequest) (*models.Module, error)
	// AddLesson adds a lesson to a module of a course of the creator.
	AddLesson(ctx context.Context, creatorID, moduleID int, req *models.CreateLessonRequest) (*models.Lesson, error)
	// DeleteModule deletes a module of a draft or rejected course.
	DeleteModule(ctx context.Context, creatorID, moduleID int) error
	// DeleteLesson deletes a lesson of a draft or rejected course.
	DeleteLesson(ctx context.Context, creatorID, lessonID int) error
	// Publish submits a course for review.
	//
	// "ctx" is the context for the request.
	// "creatorID" is the ID of the creator that owns the course.
	// "courseID" is the ID of the course.
	//
	// Returns the course in pending_review status and an error if any.
	Publish(ctx context.Context, creatorID, courseID int) (*models.Course, error)
	// Approve approves a course pending review.
	Approve(ctx context.Context, courseID int) (*models.Course, error)
	// Reject rejects a course pending review.
	Reject(ctx context.Context, courseID int) (*models.Course, error)
	// Feature marks an approved course as featured.
	Feature(ctx context.Context, courseID int) error
	// Unfeature clears the featured flag of a course.
	Unfeature(ctx context.Context, courseID int) error
}

// CourseHandler handles HTTP requests for course authoring and review
type CourseHandler struct {
	BaseHandler
	service CourseLifecycleService
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(svc CourseLifecycleService, logger *zap.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterCreatorRoutes registers the course authoring routes
func (h *CourseHandler) RegisterCreatorRoutes(r chi.Router) {
	r.Post("/creator/courses", h.CreateCourse)
	r.Post("/creator/courses/{id}/modules", h.AddModule)
	r.Post("/creator/courses/{id}/publish", h.Publish)
	r.Post("/creator/modules/{id}/lessons", h.AddLesson)
	r.Delete("/creator/modules/{id}", h.DeleteModule)
	r.Delete("/creator/lessons/{id}", h.DeleteLesson)
}

// RegisterAdminRoutes registers the course review routes
func (h *CourseHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/admin/courses/{id}/approve", h.Approve)
	r.Post("/admin/courses/{id}/reject", h.Reject)
	r.Post("/admin/courses/{id}/feature", h.Feature)
	r.Delete("/admin/courses/{id}/feature", h.Unfeature)
}

// CreateCourse handles POST /api/v1/creator/courses
// @Summary Create a course
// @Tags creator
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateCourseRequest true "Course"
// @Success 201 {object} models.Course
// @Failure 400 {object} map[string]string
// @Router /creator/courses [post]
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req models.CreateCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	course, err := h.service.CreateCourse(r.Context(), identity.UserID, &req)
	if err != nil {
		h.RespondServiceError(w, err, "failed to create course")
		return
	}

	h.RespondJSON(w, http.StatusCreated, course)
}

// AddModule handles POST /api/v1/creator/courses/{id}/modules
// @Summary Add a module
// @Tags creator
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param request body models.CreateModuleRequest true "Module"
// @Success 201 {object} models.Module
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /creator/courses/{id}/modules [post]
func (h *CourseHandler) AddModule(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}

	courseID, err := pathID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid course id")
		return
	}

	var req models.CreateModuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	module, err := h.service.AddModule(r.Context(), identity.UserID, courseID, &req)
	if err != nil {
		h.RespondServiceError(w, err, "failed to add module")
		return
	}

	h.RespondJSON(w, http.StatusCreated, module)
}

// AddLesson handles POST /api/v1/creator/modules/{id}/lessons
// @Summary Add a lesson
// @Tags creator
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Module ID"
// @Param request body models.CreateLessonRequest true "Lesson"
// @Success 201 {object} models.Lesson
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /creator/modules/{id}/lessons [post]
func (h *CourseHandler) AddLesson(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}

	moduleID, err := pathID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid module id")
		return
	}

	var req models.CreateLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lesson, err := h.service.AddLesson(r.Context(), identity.UserID, moduleID, &req)
	if err != nil {
		h.RespondServiceError(w, err, "failed to add lesson")
		return
	}

	h.RespondJSON(w, http.StatusCreated, lesson)
}

// DeleteModule handles DELETE /api/v1/creator/modules/{id}
// @Summary Delete a module
// @Tags creator
// @Security BearerAuth
// @Param id path int true "Module ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /creator/modules/{id} [delete]
func (h *CourseHandler) DeleteModule(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}

	moduleID, err := pathID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid module id")
		return
	}

	if err := h.service.DeleteModule(r.Context(), identity.UserID, moduleID); err != nil {
		h.RespondServiceError(w, err, "failed to delete module")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteLesson handles DELETE /api/v1/creator/lessons/{id}
// @Summary Delete a lesson
// @Tags creator
// @Security BearerAuth
// @Param id path int true "Lesson ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /creator/lessons/{id} [delete]
func (h *CourseHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}

	lessonID, err := pathID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid lesson id")
		return
	}

	if err := h.service.DeleteLesson(r.Context(), identity.UserID, lessonID); err != nil {
		h.RespondServiceError(w, err, "failed to delete lesson")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Publish handles POST /api/v1/creator/courses/{id}/publish
// @Summary Submit a course for review
// @Tags creator
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} models.Course
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /creator/courses/{id}/publish [post]
func (h *CourseHandler) Publish(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}

	courseID, err := pathID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid course id")
		return
	}

	course, err := h.service.Publish(r.Context(), identity.UserID, courseID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to publish course")
		return
	}

	h.RespondJSON(w, http.StatusOK, course)
}

// Approve handles POST /api/v1/admin/courses/{id}/approve
// @Summary Approve a course
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} models.Course
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/courses/{id}/approve [post]
func (h *CourseHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Approve)
}

// Reject handles POST /api/v1/admin/courses/{id}/reject
// @Summary Reject a course
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} models.Course
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/courses/{id}/reject [post]
func (h *CourseHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Reject)
}

func (h *CourseHandler) review(w http.ResponseWriter, r *http.Request, decide func(context.Context, int) (*models.Course, error)) {
	courseID, err := pathID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid course id")
		return
	}

	course, err := decide(r.Context(), courseID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to review course")
		return
	}

	h.RespondJSON(w, http.StatusOK, course)
}

// Feature handles POST /api/v1/admin/courses/{id}/feature
// @Summary Feature a course
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/courses/{id}/feature [post]
func (h *CourseHandler) Feature(w http.ResponseWriter, r *http.Request) {
	h.setFeatured(w, r, h.service.Feature)
}

// Unfeature handles DELETE /api/v1/admin/courses/{id}/feature
// @Summary Unfeature a course
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /admin/courses/{id}/feature [delete]
func (h *CourseHandler) Unfeature(w http.ResponseWriter, r *http.Request) {
	h.setFeatured(w, r, h.service.Unfeature)
}

func (h *CourseHandler) setFeatured(w http.ResponseWriter, r *http.Request, apply func(context.Context, int) error) {
	courseID, err := pathID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid course id")
		return
	}

	if err := apply(r.Context(), courseID); err != nil {
		h.RespondServiceError(w, err, "failed to update featured flag")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
