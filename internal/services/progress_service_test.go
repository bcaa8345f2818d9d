package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/models"
)

const twoQuestionQuiz = `{"questions":[
	{"question":"2+2","options":["3","4"],"correctIndex":1},
	{"question":"capital of France","options":["Paris","Rome","Oslo"],"correctIndex":0}
]}`

var testProgressSettings = ProgressSettings{QuizPassingScore: 70}

func quizLesson() *models.Lesson {
	return &models.Lesson{ID: 22, CourseID: 1, Type: models.LessonTypeQuiz, Content: json.RawMessage(twoQuestionQuiz)}
}

func setupProgressTestService(lesson *models.Lesson, progress *mockProgressRepository, settings ProgressSettings) (*progressService, *mockEnrollmentRepository) {
	enrollmentRepo := &mockEnrollmentRepository{
		enrollment: &models.Enrollment{ID: 9, UserID: 5, CourseID: 1, Progress: 25},
	}
	courseRepo := &mockCourseRepository{course: &models.Course{ID: 1, Status: models.CourseStatusApproved}}
	svc := NewProgressService(courseRepo, &mockLessonRepository{lesson: lesson}, enrollmentRepo, progress, settings, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, enrollmentRepo
}

func TestProgressService_CompleteLesson(t *testing.T) {
	tests := []struct {
		name             string
		userID           int
		lesson           *models.Lesson
		expectedKind     apperrors.Kind
		expectedProgress float64
	}{
		{
			name:             "video lesson",
			userID:           5,
			lesson:           &models.Lesson{ID: 20, CourseID: 1, Type: models.LessonTypeVideo},
			expectedProgress: 50,
		},
		{
			name:             "assignment lesson",
			userID:           5,
			lesson:           &models.Lesson{ID: 21, CourseID: 1, Type: models.LessonTypeAssignment},
			expectedProgress: 50,
		},
		{
			name:         "quiz lesson",
			userID:       5,
			lesson:       quizLesson(),
			expectedKind: apperrors.KindPrecondition,
		},
		{
			name:         "lesson of another course",
			userID:       5,
			lesson:       &models.Lesson{ID: 40, CourseID: 2, Type: models.LessonTypeText},
			expectedKind: apperrors.KindPrecondition,
		},
		{
			name:         "enrollment of another user",
			userID:       6,
			lesson:       &models.Lesson{ID: 20, CourseID: 1, Type: models.LessonTypeVideo},
			expectedKind: apperrors.KindPrecondition,
		},
		{
			name:         "missing lesson",
			userID:       5,
			expectedKind: apperrors.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			progressRepo := &mockProgressRepository{progress: 50, newly: true}
			svc, _ := setupProgressTestService(tt.lesson, progressRepo, testProgressSettings)
			lessonID := 20
			if tt.lesson != nil {
				lessonID = tt.lesson.ID
			}

			update, err := svc.CompleteLesson(context.Background(), tt.userID, 9, lessonID)

			if tt.expectedKind != apperrors.KindInternal {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedKind, apperrors.KindOf(err))
				assert.Zero(t, progressRepo.completeCalls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedProgress, update.Progress)
			assert.True(t, update.Completed)
			assert.Equal(t, 1, progressRepo.completeCalls)
		})
	}
}

func TestProgressService_SubmitQuiz(t *testing.T) {
	tests := []struct {
		name             string
		answers          []int
		expectedKind     apperrors.Kind
		expectedScore    float64
		expectedPassed   bool
		expectedProgress float64
		expectedResults  []bool
	}{
		{
			name:             "all correct passes",
			answers:          []int{1, 0},
			expectedScore:    100,
			expectedPassed:   true,
			expectedProgress: 75,
			expectedResults:  []bool{true, true},
		},
		{
			name:             "half correct fails",
			answers:          []int{1, 2},
			expectedScore:    50,
			expectedPassed:   false,
			expectedProgress: 25,
			expectedResults:  []bool{true, false},
		},
		{
			name:         "wrong answer count",
			answers:      []int{1},
			expectedKind: apperrors.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			progressRepo := &mockProgressRepository{progress: 75, newly: true}
			svc, _ := setupProgressTestService(quizLesson(), progressRepo, testProgressSettings)

			result, err := svc.SubmitQuiz(context.Background(), 5, 9, 22, &models.SubmitQuizRequest{Answers: tt.answers})

			if tt.expectedKind != apperrors.KindInternal {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedKind, apperrors.KindOf(err))
				assert.Empty(t, progressRepo.attempts)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedScore, result.Score)
			assert.Equal(t, tt.expectedPassed, result.Passed)
			assert.Equal(t, tt.expectedProgress, result.Progress)
			assert.Equal(t, tt.expectedResults, result.Results)
			assert.Equal(t, 2, result.QuestionCount)
			require.Len(t, progressRepo.attempts, 1)
			assert.Equal(t, tt.expectedPassed, progressRepo.attempts[0].Passed)
			if tt.expectedPassed {
				assert.Equal(t, 1, progressRepo.completeCalls)
			} else {
				assert.Zero(t, progressRepo.completeCalls)
			}
		})
	}

	t.Run("not a quiz", func(t *testing.T) {
		svc, _ := setupProgressTestService(&models.Lesson{ID: 20, CourseID: 1, Type: models.LessonTypeVideo}, &mockProgressRepository{}, testProgressSettings)

		_, err := svc.SubmitQuiz(context.Background(), 5, 9, 20, &models.SubmitQuizRequest{Answers: []int{0}})

		assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	})
}

func TestProgressService_SubmitAssignment(t *testing.T) {
	assignment := &models.Lesson{ID: 21, CourseID: 1, Type: models.LessonTypeAssignment}
	req := &models.SubmitAssignmentRequest{Submission: "https://github.com/learner/solution", SubmissionType: models.SubmissionTypeLink}

	t.Run("recorded without completion", func(t *testing.T) {
		progressRepo := &mockProgressRepository{}
		svc, _ := setupProgressTestService(assignment, progressRepo, testProgressSettings)

		submission, err := svc.SubmitAssignment(context.Background(), 5, 9, 21, req)

		require.NoError(t, err)
		assert.Equal(t, models.SubmissionStatusSubmitted, submission.Status)
		assert.Len(t, progressRepo.submissions, 1)
		assert.Zero(t, progressRepo.completeCalls)
	})

	t.Run("auto completion", func(t *testing.T) {
		progressRepo := &mockProgressRepository{progress: 100}
		settings := testProgressSettings
		settings.AssignmentAutoComplete = true
		svc, _ := setupProgressTestService(assignment, progressRepo, settings)

		_, err := svc.SubmitAssignment(context.Background(), 5, 9, 21, req)

		require.NoError(t, err)
		assert.Equal(t, 1, progressRepo.completeCalls)
	})

	t.Run("invalid submission type", func(t *testing.T) {
		svc, _ := setupProgressTestService(assignment, &mockProgressRepository{}, testProgressSettings)

		_, err := svc.SubmitAssignment(context.Background(), 5, 9, 21, &models.SubmitAssignmentRequest{Submission: "x", SubmissionType: "video"})

		assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	})

	t.Run("empty submission", func(t *testing.T) {
		svc, _ := setupProgressTestService(assignment, &mockProgressRepository{}, testProgressSettings)

		_, err := svc.SubmitAssignment(context.Background(), 5, 9, 21, &models.SubmitAssignmentRequest{SubmissionType: models.SubmissionTypeText})

		assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	})
}

func TestProgressService_AccessLesson(t *testing.T) {
	t.Run("enrolled learner is tracked", func(t *testing.T) {
		lesson := &models.Lesson{ID: 20, CourseID: 1, Type: models.LessonTypeText, Content: json.RawMessage(`{"html":"<p>hi</p>"}`)}
		svc, enrollmentRepo := setupProgressTestService(lesson, &mockProgressRepository{}, testProgressSettings)

		view, err := svc.AccessLesson(context.Background(), 5, 20)

		require.NoError(t, err)
		assert.JSONEq(t, `{"html":"<p>hi</p>"}`, string(view.Content))
		assert.Equal(t, []int{20}, enrollmentRepo.lastAccessed)
	})

	t.Run("quiz answers are hidden", func(t *testing.T) {
		svc, _ := setupProgressTestService(quizLesson(), &mockProgressRepository{}, testProgressSettings)

		view, err := svc.AccessLesson(context.Background(), 5, 22)

		require.NoError(t, err)
		assert.NotContains(t, string(view.Content), "correctIndex")
		assert.Contains(t, string(view.Content), "capital of France")
	})

	t.Run("preview without enrollment", func(t *testing.T) {
		lesson := &models.Lesson{ID: 20, CourseID: 1, Type: models.LessonTypeText, IsPreview: true, Content: json.RawMessage(`{"html":"free"}`)}
		svc, enrollmentRepo := setupProgressTestService(lesson, &mockProgressRepository{}, testProgressSettings)
		enrollmentRepo.enrollment = nil

		view, err := svc.AccessLesson(context.Background(), 6, 20)

		require.NoError(t, err)
		assert.True(t, view.IsPreview)
		assert.Empty(t, enrollmentRepo.lastAccessed)
	})

	t.Run("not enrolled", func(t *testing.T) {
		lesson := &models.Lesson{ID: 20, CourseID: 1, Type: models.LessonTypeText, Content: json.RawMessage(`{"html":"paid"}`)}
		svc, enrollmentRepo := setupProgressTestService(lesson, &mockProgressRepository{}, testProgressSettings)
		enrollmentRepo.enrollment = nil

		_, err := svc.AccessLesson(context.Background(), 6, 20)

		assert.True(t, apperrors.Is(err, apperrors.KindPrecondition))
	})
}

func TestProgressService_GetProgress(t *testing.T) {
	svc, enrollmentRepo := setupProgressTestService(nil, &mockProgressRepository{}, testProgressSettings)
	enrollmentRepo.completedIDs = []int{20}

	enrollment, err := svc.GetProgress(context.Background(), 5, 1)

	require.NoError(t, err)
	assert.Equal(t, 25.0, enrollment.Progress)
	assert.Equal(t, []int{20}, enrollment.CompletedLessons)
}
