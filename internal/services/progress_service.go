package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/models"
)

// LessonReader is the interface that wraps read access to lessons
type LessonReader interface {
	// GetLessonByID retrieves a lesson by its ID, or a NotFound error.
	GetLessonByID(ctx context.Context, id int) (*models.Lesson, error)
}

// ProgressRepository is the interface that wraps methods for learner progress data access
type ProgressRepository interface {
	// CompleteLesson adds a lesson to the enrollment's completed set and recomputes
	// progress from the lessons that still belong to the course, in one transaction.
	//
	// "ctx" is the context for the request.
	// "enrollmentID", "courseID" and "lessonID" identify the completion.
	// "at" is the completion time.
	//
	// Returns the new progress, whether the lesson was newly completed, and an error if any.
	CompleteLesson(ctx context.Context, enrollmentID, courseID, lessonID int, at time.Time) (float64, bool, error)
	// CreateQuizAttempt appends a graded quiz attempt.
	CreateQuizAttempt(ctx context.Context, attempt *models.QuizAttempt) error
	// CreateAssignmentSubmission appends an assignment submission.
	CreateAssignmentSubmission(ctx context.Context, submission *models.AssignmentSubmission) error
}

// ProgressSettings holds the completion rules
type ProgressSettings struct {
	// QuizPassingScore is the minimum score, in percent, that completes a quiz lesson
	QuizPassingScore float64
	// AssignmentAutoComplete completes an assignment lesson on submission
	AssignmentAutoComplete bool
}

type progressService struct {
	courseRepo     CourseReader
	lessonRepo     LessonReader
	enrollmentRepo EnrollmentRepository
	progressRepo   ProgressRepository
	settings       ProgressSettings
	logger         *zap.Logger
	now            func() time.Time
}

// NewProgressService creates a new service for lesson access and completion
func NewProgressService(
	courseRepo CourseReader,
	lessonRepo LessonReader,
	enrollmentRepo EnrollmentRepository,
	progressRepo ProgressRepository,
	settings ProgressSettings,
	logger *zap.Logger,
) *progressService {
	return &progressService{
		courseRepo:     courseRepo,
		lessonRepo:     lessonRepo,
		enrollmentRepo: enrollmentRepo,
		progressRepo:   progressRepo,
		settings:       settings,
		logger:         logger,
		now:            time.Now,
	}
}

// enrolledLesson loads an enrollment of the user and a lesson of the enrollment's course
func (s *progressService) enrolledLesson(ctx context.Context, userID, enrollmentID, lessonID int) (*models.Enrollment, *models.Lesson, error) {
	enrollment, err := s.enrollmentRepo.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, nil, err
	}
	if enrollment.UserID != userID {
		return nil, nil, apperrors.Precondition("enrollment belongs to another user")
	}

	lesson, err := s.lessonRepo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return nil, nil, err
	}
	if lesson.CourseID != enrollment.CourseID {
		return nil, nil, apperrors.Precondition("lesson does not belong to the enrolled course")
	}

	return enrollment, lesson, nil
}

// CompleteLesson marks a lesson completed and returns the recomputed progress.
// Completing a lesson twice changes nothing. Quiz lessons are completed by passing the quiz.
func (s *progressService) CompleteLesson(ctx context.Context, userID, enrollmentID, lessonID int) (*models.ProgressUpdate, error) {
	enrollment, lesson, err := s.enrolledLesson(ctx, userID, enrollmentID, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.Type == models.LessonTypeQuiz {
		return nil, apperrors.Precondition("quiz lessons are completed by passing the quiz")
	}

	return s.complete(ctx, enrollment, lessonID)
}

func (s *progressService) complete(ctx context.Context, enrollment *models.Enrollment, lessonID int) (*models.ProgressUpdate, error) {
	progress, newlyCompleted, err := s.progressRepo.CompleteLesson(ctx, enrollment.ID, enrollment.CourseID, lessonID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to complete lesson: %w", err)
	}

	if newlyCompleted {
		s.logger.Info("lesson completed",
			zap.Int("enrollment_id", enrollment.ID),
			zap.Int("lesson_id", lessonID),
			zap.Float64("progress", progress))
	}

	return &models.ProgressUpdate{
		EnrollmentID: enrollment.ID,
		LessonID:     lessonID,
		Progress:     progress,
		Completed:    true,
	}, nil
}

// SubmitQuiz grades quiz answers and records the attempt.
// A score at or above the passing score completes the lesson. The graded result is always returned.
func (s *progressService) SubmitQuiz(ctx context.Context, userID, enrollmentID, lessonID int, req *models.SubmitQuizRequest) (*models.QuizResult, error) {
	enrollment, lesson, err := s.enrolledLesson(ctx, userID, enrollmentID, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.Type != models.LessonTypeQuiz {
		return nil, apperrors.Validation("lesson is not a quiz")
	}

	quiz, err := lesson.Quiz()
	if err != nil {
		return nil, fmt.Errorf("failed to decode quiz: %w", err)
	}
	if len(req.Answers) != len(quiz.Questions) {
		return nil, apperrors.Validationf("expected %d answers, got %d", len(quiz.Questions), len(req.Answers))
	}

	grade := quiz.Grade(req.Answers)
	passed := grade.Score >= s.settings.QuizPassingScore

	attempt := &models.QuizAttempt{
		EnrollmentID: enrollment.ID,
		LessonID:     lessonID,
		Answers:      req.Answers,
		Results:      grade.Results,
		Score:        grade.Score,
		Passed:       passed,
		AttemptedAt:  s.now(),
	}
	if err := s.progressRepo.CreateQuizAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to record quiz attempt: %w", err)
	}

	result := &models.QuizResult{
		AttemptID:     attempt.ID,
		Score:         grade.Score,
		Passed:        passed,
		CorrectCount:  grade.CorrectCount,
		QuestionCount: grade.QuestionCount,
		Results:       grade.Results,
		Progress:      enrollment.Progress,
	}
	if passed {
		update, err := s.complete(ctx, enrollment, lessonID)
		if err != nil {
			return nil, err
		}
		result.Progress = update.Progress
	}

	return result, nil
}

// SubmitAssignment records an assignment submission.
// The lesson is completed on submission only when assignment auto-completion is enabled.
func (s *progressService) SubmitAssignment(ctx context.Context, userID, enrollmentID, lessonID int, req *models.SubmitAssignmentRequest) (*models.AssignmentSubmission, error) {
	if strings.TrimSpace(req.Submission) == "" {
		return nil, apperrors.Validation("submission is required")
	}
	if !req.SubmissionType.IsValid() {
		return nil, apperrors.Validation("submission type must be text, link or file")
	}

	enrollment, lesson, err := s.enrolledLesson(ctx, userID, enrollmentID, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.Type != models.LessonTypeAssignment {
		return nil, apperrors.Validation("lesson is not an assignment")
	}

	submission := &models.AssignmentSubmission{
		EnrollmentID:   enrollment.ID,
		LessonID:       lessonID,
		Submission:     req.Submission,
		SubmissionType: req.SubmissionType,
		Status:         models.SubmissionStatusSubmitted,
		SubmittedAt:    s.now(),
	}
	if err := s.progressRepo.CreateAssignmentSubmission(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to record submission: %w", err)
	}

	if s.settings.AssignmentAutoComplete {
		if _, err := s.complete(ctx, enrollment, lessonID); err != nil {
			return nil, err
		}
	}

	return submission, nil
}

// AccessLesson returns a lesson for a learner.
// Preview lessons of approved courses are open to everyone and are not tracked.
// Other lessons require an enrollment and update the last accessed lesson.
func (s *progressService) AccessLesson(ctx context.Context, userID, lessonID int) (*models.LessonView, error) {
	lesson, err := s.lessonRepo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	if lesson.IsPreview {
		course, err := s.courseRepo.GetByID(ctx, lesson.CourseID)
		if err != nil {
			return nil, err
		}
		if !course.IsApproved() {
			return nil, apperrors.NotFound("lesson not found")
		}
	} else {
		enrollment, err := s.enrollmentRepo.GetByUserAndCourse(ctx, userID, lesson.CourseID)
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.Precondition("enroll in the course to access this lesson")
		}
		if err != nil {
			return nil, err
		}
		if err := s.enrollmentRepo.UpdateLastAccessed(ctx, enrollment.ID, lesson.ID, s.now()); err != nil {
			return nil, fmt.Errorf("failed to track lesson access: %w", err)
		}
	}

	content, err := lesson.LearnerContent()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare lesson content: %w", err)
	}

	return &models.LessonView{
		ID:        lesson.ID,
		CourseID:  lesson.CourseID,
		ModuleID:  lesson.ModuleID,
		Title:     lesson.Title,
		Type:      lesson.Type,
		IsPreview: lesson.IsPreview,
		Duration:  lesson.Duration,
		Content:   content,
	}, nil
}

// GetProgress returns the user's enrollment in a course with its completed lessons
func (s *progressService) GetProgress(ctx context.Context, userID, courseID int) (*models.Enrollment, error) {
	return loadEnrollmentWithLessons(ctx, s.enrollmentRepo, userID, courseID)
}
