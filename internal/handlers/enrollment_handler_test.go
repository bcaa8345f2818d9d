package handlers

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/models"
)

func setupEnrollmentRouter(svc *mockEnrollmentService) chi.Router {
	r := chi.NewRouter()
	NewEnrollmentHandler(svc, testLogger).RegisterRoutes(r)
	return r
}

func TestEnrollmentHandler_EnrollFree(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		svc            *mockEnrollmentService
		expectedStatus int
	}{
		{
			name:           "success",
			path:           "/courses/1/enroll",
			svc:            &mockEnrollmentService{enrollment: &models.Enrollment{ID: 9, UserID: 5, CourseID: 1}},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "zero id",
			path:           "/courses/0/enroll",
			svc:            &mockEnrollmentService{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "paid course",
			path:           "/courses/1/enroll",
			svc:            &mockEnrollmentService{err: apperrors.Precondition("course is not free")},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "unknown course",
			path:           "/courses/1/enroll",
			svc:            &mockEnrollmentService{err: apperrors.NotFound("course not found")},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(t, setupEnrollmentRouter(tt.svc), http.MethodPost, tt.path, nil, learner)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusCreated {
				assert.Equal(t, 5, tt.svc.lastUserID)
				assert.Equal(t, 1, tt.svc.lastCourseID)
			}
		})
	}
}

func TestEnrollmentHandler_GetEnrollment(t *testing.T) {
	svc := &mockEnrollmentService{enrollment: &models.Enrollment{ID: 9, CompletedLessons: []int{3, 5}}}

	w := performRequest(t, setupEnrollmentRouter(svc), http.MethodGet, "/courses/1/enrollment", nil, learner)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.Enrollment
	decodeBody(t, w, &resp)
	assert.Equal(t, []int{3, 5}, resp.CompletedLessons)

	w = performRequest(t, setupEnrollmentRouter(svc), http.MethodGet, "/courses/1/enrollment", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEnrollmentHandler_ListEnrollments(t *testing.T) {
	svc := &mockEnrollmentService{enrollments: []models.Enrollment{{ID: 1}, {ID: 2}}}

	w := performRequest(t, setupEnrollmentRouter(svc), http.MethodGet, "/enrollments", nil, learner)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []models.Enrollment
	decodeBody(t, w, &resp)
	assert.Len(t, resp, 2)
	assert.Equal(t, 5, svc.lastUserID)
}
