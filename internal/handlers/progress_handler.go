package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/models"
)

// ProgressService is the interface that wraps methods for lesson access and completion
type ProgressService interface {
	// CompleteLesson marks a lesson of the enrollment completed.
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the learner that owns the enrollment.
	// "enrollmentID" is the ID of the enrollment.
	// "lessonID" is the ID of the lesson.
	//
	// Returns the recomputed progress and an error if any.
	CompleteLesson(ctx context.Context, userID, enrollmentID, lessonID int) (*models.ProgressUpdate, error)
	// SubmitQuiz grades quiz answers and completes the lesson when the quiz is passed.
	//
	// "req" holds one answer index per question.
	//
	// Returns the graded result and an error if any.
	SubmitQuiz(ctx context.Context, userID, enrollmentID, lessonID int, req *models.SubmitQuizRequest) (*models.QuizResult, error)
	// SubmitAssignment records an assignment submission.
	//
	// Returns the stored submission and an error if any.
	SubmitAssignment(ctx context.Context, userID, enrollmentID, lessonID int, req *models.SubmitAssignmentRequest) (*models.AssignmentSubmission, error)
	// AccessLesson returns a lesson as shown to the learner.
	//
	// Returns the lesson view and an error if any.
	AccessLesson(ctx context.Context, userID, lessonID int) (*models.LessonView, error)
	// GetProgress returns the learner's enrollment in a course with its completed lessons.
	GetProgress(ctx context.Context, userID, courseID int) (*models.Enrollment, error)
}

// ProgressHandler handles HTTP requests for learner progress
type ProgressHandler struct {
	BaseHandler
	service ProgressService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(svc ProgressService, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers all progress handler routes
func (h *ProgressHandler) RegisterRoutes(r chi.Router) {
	r.Post("/enrollments/{id}/lessons/{lessonId}/complete", h.CompleteLesson)
	r.Post("/enrollments/{id}/lessons/{lessonId}/quiz", h.SubmitQuiz)
	r.Post("/enrollments/{id}/lessons/{lessonId}/assignment", h.SubmitAssignment)
	r.Get("/lessons/{id}", h.AccessLesson)
	r.Get("/courses/{id}/progress", h.GetProgress)
}

// enrollmentLesson parses the enrollment and lesson IDs of a lesson route
func (h *ProgressHandler) enrollmentLesson(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	enrollmentID, err := pathID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid enrollment id")
		return 0, 0, false
	}
	lessonID, err := pathID(r, "lessonId")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid lesson id")
		return 0, 0, false
	}
	return enrollmentID, lessonID, true
}

// CompleteLesson handles POST /api/v1/enrollments/{id}/lessons/{lessonId}/complete
// @Summary Complete a lesson
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param id path int true "Enrollment ID"
// @Param lessonId path int true "Lesson ID"
// @Success 200 {object} models.ProgressUpdate
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /enrollments/{id}/lessons/{lessonId}/complete [post]
func (h *ProgressHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}
	enrollmentID, lessonID, ok := h.enrollmentLesson(w, r)
	if !ok {
		return
	}

	update, err := h.service.CompleteLesson(r.Context(), identity.UserID, enrollmentID, lessonID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to complete lesson")
		return
	}

	h.RespondJSON(w, http.StatusOK, update)
}

// SubmitQuiz handles POST /api/v1/enrollments/{id}/lessons/{lessonId}/quiz
// @Summary Submit quiz answers
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Enrollment ID"
// @Param lessonId path int true "Lesson ID"
// @Param request body models.SubmitQuizRequest true "Answer indices"
// @Success 200 {object} models.QuizResult
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /enrollments/{id}/lessons/{lessonId}/quiz [post]
func (h *ProgressHandler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}
	enrollmentID, lessonID, ok := h.enrollmentLesson(w, r)
	if !ok {
		return
	}

	var req models.SubmitQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.SubmitQuiz(r.Context(), identity.UserID, enrollmentID, lessonID, &req)
	if err != nil {
		h.RespondServiceError(w, err, "failed to submit quiz")
		return
	}

	h.RespondJSON(w, http.StatusOK, result)
}

// SubmitAssignment handles POST /api/v1/enrollments/{id}/lessons/{lessonId}/assignment
// @Summary Submit an assignment
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Enrollment ID"
// @Param lessonId path int true "Lesson ID"
// @Param request body models.SubmitAssignmentRequest true "Submission"
// @Success 201 {object} models.AssignmentSubmission
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /enrollments/{id}/lessons/{lessonId}/assignment [post]
func (h *ProgressHandler) SubmitAssignment(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}
	enrollmentID, lessonID, ok := h.enrollmentLesson(w, r)
	if !ok {
		return
	}

	var req models.SubmitAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	submission, err := h.service.SubmitAssignment(r.Context(), identity.UserID, enrollmentID, lessonID, &req)
	if err != nil {
		h.RespondServiceError(w, err, "failed to submit assignment")
		return
	}

	h.RespondJSON(w, http.StatusCreated, submission)
}

// AccessLesson handles GET /api/v1/lessons/{id}
// @Summary Open a lesson
// @Description Preview lessons are open to everyone; other lessons require an enrollment
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lesson ID"
// @Success 200 {object} models.LessonView
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /lessons/{id} [get]
func (h *ProgressHandler) AccessLesson(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}

	lessonID, err := pathID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid lesson id")
		return
	}

	view, err := h.service.AccessLesson(r.Context(), identity.UserID, lessonID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to open lesson")
		return
	}

	h.RespondJSON(w, http.StatusOK, view)
}

// GetProgress handles GET /api/v1/courses/{id}/progress
// @Summary Get course progress
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} models.Enrollment
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /courses/{id}/progress [get]
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}

	courseID, err := pathID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid course id")
		return
	}

	enrollment, err := h.service.GetProgress(r.Context(), identity.UserID, courseID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to get progress")
		return
	}

	h.RespondJSON(w, http.StatusOK, enrollment)
}
