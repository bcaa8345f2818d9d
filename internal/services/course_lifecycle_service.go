package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/models"
)

// CourseRepository is the interface that wraps methods for courses table data access
type CourseRepository interface {
	CourseReader
	// Create inserts a new course in draft status.
	//
	// "ctx" is the context for the request.
	// "course" is the course to insert; its ID and status are set on success.
	//
	// Returns an error if any.
	Create(ctx context.Context, course *models.Course) error
	// UpdateStatus moves a course to a new status only while its current status is one of "from".
	// The featured flag is cleared on every transition.
	//
	// "ctx" is the context for the request.
	// "id" is the course ID.
	// "from" are the statuses the course may currently have.
	// "to" is the new status.
	//
	// Returns a Conflict error when the status changed in the meantime, or another error if any.
	UpdateStatus(ctx context.Context, id int, from []models.CourseStatus, to models.CourseStatus) error
	// SetFeatured sets or clears the featured flag. Only approved courses can be featured.
	//
	// "ctx" is the context for the request.
	// "id" is the course ID.
	// "featured" is the new flag value.
	//
	// Returns a conflict error when featuring a course that is no longer approved, and an error if any.
	SetFeatured(ctx context.Context, id int, featured bool) error
	// GetStructure counts the modules and lessons of a course.
	//
	// "ctx" is the context for the request.
	// "id" is the course ID.
	//
	// Returns the counts and an error if any.
	GetStructure(ctx context.Context, id int) (*models.CourseStructure, error)
}

// LessonRepository is the interface that wraps methods for modules and lessons tables data access
type LessonRepository interface {
	// CreateModule inserts a module. A taken position yields a Conflict error.
	CreateModule(ctx context.Context, module *models.Module) error
	// GetModuleByID retrieves a module by its ID, or a NotFound error.
	GetModuleByID(ctx context.Context, id int) (*models.Module, error)
	// CreateLesson inserts a lesson and adds it to the course totals in one transaction.
	// A taken position yields a Conflict error.
	CreateLesson(ctx context.Context, lesson *models.Lesson) error
	// GetLessonByID retrieves a lesson by its ID, or a NotFound error.
	GetLessonByID(ctx context.Context, id int) (*models.Lesson, error)
	// DeleteModule removes a module and its lessons.
	// Returns a Precondition error unless the course is draft or rejected.
	DeleteModule(ctx context.Context, id int) error
	// DeleteLesson removes a lesson.
	// Returns a Precondition error unless the course is draft or rejected.
	DeleteLesson(ctx context.Context, id int) error
}

type courseLifecycleService struct {
	courseRepo CourseRepository
	lessonRepo LessonRepository
	logger     *zap.Logger
}

// NewCourseLifecycleService creates a new service for course authoring and review
func NewCourseLifecycleService(courseRepo CourseRepository, lessonRepo LessonRepository, logger *zap.Logger) *courseLifecycleService {
	return &courseLifecycleService{
		courseRepo: courseRepo,
		lessonRepo: lessonRepo,
		logger:     logger,
	}
}

// CreateCourse creates a draft course owned by the creator
func (s *courseLifecycleService) CreateCourse(ctx context.Context, creatorID int, req *models.CreateCourseRequest) (*models.Course, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.Validation("title is required")
	}
	if req.Price.IsNegative() {
		return nil, apperrors.Validation("price must not be negative")
	}
	if req.DiscountPrice != nil && req.DiscountPrice.IsNegative() {
		return nil, apperrors.Validation("discount price must not be negative")
	}
	if req.DiscountPrice == nil && req.DiscountValidUntil != nil {
		return nil, apperrors.Validation("discount expiry needs a discount price")
	}

	course := &models.Course{
		CreatorID:          creatorID,
		Title:              strings.TrimSpace(req.Title),
		Description:        req.Description,
		ThumbnailURL:       req.ThumbnailURL,
		Category:           req.Category,
		Price:              req.Price.Round(2),
		DiscountValidUntil: req.DiscountValidUntil,
	}
	if req.DiscountPrice != nil {
		course.DiscountPrice = decimal.NewNullDecimal(req.DiscountPrice.Round(2))
	}

	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.Info("course created", zap.Int("course_id", course.ID), zap.Int("creator_id", creatorID))
	return course, nil
}

// ownedCourse loads a course and checks that the creator owns it
func (s *courseLifecycleService) ownedCourse(ctx context.Context, creatorID, courseID int) (*models.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.CreatorID != creatorID {
		return nil, apperrors.Forbidden("only the course creator can change this course")
	}
	return course, nil
}

// AddModule adds a module to a course owned by the creator
func (s *courseLifecycleService) AddModule(ctx context.Context, creatorID, courseID int, req *models.CreateModuleRequest) (*models.Module, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.Validation("module title is required")
	}
	if req.Position < 1 {
		return nil, apperrors.Validation("module position must be positive")
	}
	if _, err := s.ownedCourse(ctx, creatorID, courseID); err != nil {
		return nil, err
	}

	module := &models.Module{
		CourseID: courseID,
		Title:    strings.TrimSpace(req.Title),
		Position: req.Position,
	}
	if err := s.lessonRepo.CreateModule(ctx, module); err != nil {
		return nil, fmt.Errorf("failed to add module: %w", err)
	}

	return module, nil
}

// AddLesson adds a lesson to a module of a course owned by the creator.
// The content is validated against the lesson type; video lessons add their duration to the course.
func (s *courseLifecycleService) AddLesson(ctx context.Context, creatorID, moduleID int, req *models.CreateLessonRequest) (*models.Lesson, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.Validation("lesson title is required")
	}
	if req.Position < 1 {
		return nil, apperrors.Validation("lesson position must be positive")
	}
	content, err := models.DecodeLessonContent(req.Type, req.Content)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	module, err := s.lessonRepo.GetModuleByID(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedCourse(ctx, creatorID, module.CourseID); err != nil {
		return nil, err
	}

	duration := 0
	if video, ok := content.(*models.VideoContent); ok {
		duration = video.DurationSeconds
	}

	lesson := &models.Lesson{
		CourseID:  module.CourseID,
		ModuleID:  module.ID,
		Title:     strings.TrimSpace(req.Title),
		Type:      req.Type,
		Position:  req.Position,
		IsPreview: req.IsPreview,
		Duration:  duration,
		Content:   req.Content,
	}
	if err := s.lessonRepo.CreateLesson(ctx, lesson); err != nil {
		return nil, fmt.Errorf("failed to add lesson: %w", err)
	}

	return lesson, nil
}

// DeleteModule deletes a module of an editable course owned by the creator
func (s *courseLifecycleService) DeleteModule(ctx context.Context, creatorID, moduleID int) error {
	module, err := s.lessonRepo.GetModuleByID(ctx, moduleID)
	if err != nil {
		return err
	}
	if _, err := s.ownedCourse(ctx, creatorID, module.CourseID); err != nil {
		return err
	}

	if err := s.lessonRepo.DeleteModule(ctx, moduleID); err != nil {
		return fmt.Errorf("failed to delete module: %w", err)
	}
	return nil
}

// DeleteLesson deletes a lesson of an editable course owned by the creator
func (s *courseLifecycleService) DeleteLesson(ctx context.Context, creatorID, lessonID int) error {
	lesson, err := s.lessonRepo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return err
	}
	if _, err := s.ownedCourse(ctx, creatorID, lesson.CourseID); err != nil {
		return err
	}

	if err := s.lessonRepo.DeleteLesson(ctx, lessonID); err != nil {
		return fmt.Errorf("failed to delete lesson: %w", err)
	}
	return nil
}

// Publish submits a draft or rejected course for review.
// The course needs a title, description, thumbnail, category, a module and a lesson.
func (s *courseLifecycleService) Publish(ctx context.Context, creatorID, courseID int) (*models.Course, error) {
	course, err := s.ownedCourse(ctx, creatorID, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsEditable() {
		return nil, apperrors.Precondition(fmt.Sprintf("course in status %s cannot be published", course.Status))
	}

	missing := course.MissingPublishRequirements()
	structure, err := s.courseRepo.GetStructure(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check course structure: %w", err)
	}
	if structure.Modules == 0 {
		missing = append(missing, "at least one module")
	}
	if structure.Lessons == 0 {
		missing = append(missing, "at least one lesson")
	}
	if len(missing) > 0 {
		return nil, apperrors.Validation("course is missing " + strings.Join(missing, ", "))
	}

	from := []models.CourseStatus{models.CourseStatusDraft, models.CourseStatusRejected}
	if err := s.courseRepo.UpdateStatus(ctx, courseID, from, models.CourseStatusPendingReview); err != nil {
		return nil, fmt.Errorf("failed to publish course: %w", err)
	}

	course.Status = models.CourseStatusPendingReview
	course.IsFeatured = false
	s.logger.Info("course submitted for review", zap.Int("course_id", courseID))
	return course, nil
}

// Approve approves a course that is pending review
func (s *courseLifecycleService) Approve(ctx context.Context, courseID int) (*models.Course, error) {
	return s.review(ctx, courseID, models.CourseStatusApproved)
}

// Reject rejects a course that is pending review
func (s *courseLifecycleService) Reject(ctx context.Context, courseID int) (*models.Course, error) {
	return s.review(ctx, courseID, models.CourseStatusRejected)
}

func (s *courseLifecycleService) review(ctx context.Context, courseID int, to models.CourseStatus) (*models.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != models.CourseStatusPendingReview {
		return nil, apperrors.Precondition(fmt.Sprintf("course in status %s is not pending review", course.Status))
	}

	from := []models.CourseStatus{models.CourseStatusPendingReview}
	if err := s.courseRepo.UpdateStatus(ctx, courseID, from, to); err != nil {
		return nil, fmt.Errorf("failed to review course: %w", err)
	}

	course.Status = to
	course.IsFeatured = false
	s.logger.Info("course reviewed", zap.Int("course_id", courseID), zap.String("status", string(to)))
	return course, nil
}

// Feature marks an approved course as featured
func (s *courseLifecycleService) Feature(ctx context.Context, courseID int) error {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return err
	}
	if !course.IsApproved() {
		return apperrors.Precondition("only approved courses can be featured")
	}

	if err := s.courseRepo.SetFeatured(ctx, courseID, true); err != nil {
		return fmt.Errorf("failed to feature course: %w", err)
	}
	return nil
}

// Unfeature clears the featured flag of a course
func (s *courseLifecycleService) Unfeature(ctx context.Context, courseID int) error {
	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		return err
	}

	if err := s.courseRepo.SetFeatured(ctx, courseID, false); err != nil {
		return fmt.Errorf("failed to unfeature course: %w", err)
	}
	return nil
}
