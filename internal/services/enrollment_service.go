package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/models"
)

// EnrollmentRepository is the interface that wraps methods for enrollments table data access
type EnrollmentRepository interface {
	// Create inserts an enrollment and increments the course counter in one transaction.
	//
	// "ctx" is the context for the request.
	// "enrollment" is the enrollment to insert; its ID is set on success.
	//
	// Returns false without error when the user is already enrolled in the course.
	Create(ctx context.Context, enrollment *models.Enrollment) (bool, error)
	// GetByID retrieves an enrollment by its ID.
	//
	// Returns a NotFound error when it does not exist, or another error if any.
	GetByID(ctx context.Context, id int) (*models.Enrollment, error)
	// GetByUserAndCourse retrieves the enrollment of a user in a course.
	//
	// Returns a NotFound error when the user is not enrolled, or another error if any.
	GetByUserAndCourse(ctx context.Context, userID, courseID int) (*models.Enrollment, error)
	// Exists reports whether a user is enrolled in a course.
	Exists(ctx context.Context, userID, courseID int) (bool, error)
	// ListByUser retrieves all enrollments of a user, newest first.
	ListByUser(ctx context.Context, userID int) ([]models.Enrollment, error)
	// GetCompletedLessonIDs lists the lessons an enrollment has completed.
	GetCompletedLessonIDs(ctx context.Context, enrollmentID int) ([]int, error)
	// UpdateLastAccessed records the lesson a learner opened last.
	//
	// "enrollmentID" is the enrollment ID.
	// "lessonID" is the opened lesson.
	// "at" is the access time.
	//
	// Returns an error if any.
	UpdateLastAccessed(ctx context.Context, enrollmentID, lessonID int, at time.Time) error
}

type enrollmentService struct {
	courseRepo     CourseReader
	enrollmentRepo EnrollmentRepository
	logger         *zap.Logger
	now            func() time.Time
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(courseRepo CourseReader, enrollmentRepo EnrollmentRepository, logger *zap.Logger) *enrollmentService {
	return &enrollmentService{
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		logger:         logger,
		now:            time.Now,
	}
}

// EnrollFree enrolls a user in an approved course whose effective price is zero
func (s *enrollmentService) EnrollFree(ctx context.Context, userID, courseID int) (*models.Enrollment, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsApproved() {
		return nil, apperrors.Precondition("course is not available for enrollment")
	}
	now := s.now()
	if course.EffectivePrice(now).IsPositive() {
		return nil, apperrors.Precondition("course requires payment")
	}

	enrollment := &models.Enrollment{
		UserID:           userID,
		CourseID:         courseID,
		CompletedLessons: []int{},
		EnrolledAt:       now,
	}
	created, err := s.enrollmentRepo.Create(ctx, enrollment)
	if err != nil {
		return nil, fmt.Errorf("failed to enroll: %w", err)
	}
	if !created {
		return nil, apperrors.Conflict("already enrolled")
	}

	s.logger.Info("free enrollment created",
		zap.Int("enrollment_id", enrollment.ID),
		zap.Int("user_id", userID),
		zap.Int("course_id", courseID))
	return enrollment, nil
}

// GetEnrollment returns the user's enrollment in a course with its completed lessons
func (s *enrollmentService) GetEnrollment(ctx context.Context, userID, courseID int) (*models.Enrollment, error) {
	return loadEnrollmentWithLessons(ctx, s.enrollmentRepo, userID, courseID)
}

// ListEnrollments returns every enrollment of the user
func (s *enrollmentService) ListEnrollments(ctx context.Context, userID int) ([]models.Enrollment, error) {
	enrollments, err := s.enrollmentRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}

func loadEnrollmentWithLessons(ctx context.Context, repo EnrollmentRepository, userID, courseID int) (*models.Enrollment, error) {
	enrollment, err := repo.GetByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	lessonIDs, err := repo.GetCompletedLessonIDs(ctx, enrollment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed lessons: %w", err)
	}
	enrollment.CompletedLessons = lessonIDs

	return enrollment, nil
}
