package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/models"
)

type courseRepository struct {
	db *sql.DB
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *sql.DB) *courseRepository {
	return &courseRepository{
		db: db,
	}
}

// GetByID retrieves a course by its ID
func (r *courseRepository) GetByID(ctx context.Context, id int) (*models.Course, error) {
	query := `
		SELECT id, creator_id, title, description, thumbnail_url, category,
			price, discount_price, discount_valid_until, status, is_featured,
			enrolled_students, total_lessons, total_duration, created_at, updated_at
		FROM courses
		WHERE id = ?
		LIMIT 1
	`

	var course models.Course
	var validUntil sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&course.ID,
		&course.CreatorID,
		&course.Title,
		&course.Description,
		&course.ThumbnailURL,
		&course.Category,
		&course.Price,
		&course.DiscountPrice,
		&validUntil,
		&course.Status,
		&course.IsFeatured,
		&course.EnrolledStudents,
		&course.TotalLessons,
		&course.TotalDuration,
		&course.CreatedAt,
		&course.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("course not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course by id: %w", err)
	}

	course.DiscountValidUntil = timePtr(validUntil)
	return &course, nil
}

// Create inserts a new draft course
func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	query := `
		INSERT INTO courses (creator_id, title, description, thumbnail_url, category,
			price, discount_price, discount_valid_until, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		course.CreatorID,
		course.Title,
		course.Description,
		course.ThumbnailURL,
		course.Category,
		course.Price,
		course.DiscountPrice,
		nullTime(course.DiscountValidUntil),
		models.CourseStatusDraft,
	)
	if err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	course.ID = int(id)
	course.Status = models.CourseStatusDraft
	return nil
}

// UpdateStatus moves a course to "to" only while its status is one of "from".
// The featured flag is cleared on every transition.
func (r *courseRepository) UpdateStatus(ctx context.Context, id int, from []models.CourseStatus, to models.CourseStatus) error {
	if len(from) == 0 {
		return fmt.Errorf("no source statuses given")
	}

	placeholders := make([]string, len(from))
	args := []any{to, id}
	for i, status := range from {
		placeholders[i] = "?"
		args = append(args, status)
	}

	query := fmt.Sprintf(`
		UPDATE courses
		SET status = ?, is_featured = 0
		WHERE id = ? AND status IN (%s)
	`, strings.Join(placeholders, ", "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update course status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.Conflict("course status has changed, reload and retry")
	}

	return nil
}

// SetFeatured sets the featured flag. Only approved courses can be featured.
// Featuring a course that left approved between load and update is a conflict.
func (r *courseRepository) SetFeatured(ctx context.Context, id int, featured bool) error {
	query := `UPDATE courses SET is_featured = ? WHERE id = ? AND (status = ? OR ? = 0)`

	result, err := r.db.ExecContext(ctx, query, featured, id, models.CourseStatusApproved, featured)
	if err != nil {
		return fmt.Errorf("failed to update featured flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// MySQL reports changed rows only, so an unchanged flag also lands here.
	var status models.CourseStatus
	var isFeatured bool
	err = r.db.QueryRowContext(ctx, `SELECT status, is_featured FROM courses WHERE id = ?`, id).Scan(&status, &isFeatured)
	if err == sql.ErrNoRows {
		return apperrors.NotFound("course not found")
	}
	if err != nil {
		return fmt.Errorf("failed to get featured flag: %w", err)
	}
	if featured && (status != models.CourseStatusApproved || !isFeatured) {
		return apperrors.Conflict("course is no longer approved")
	}

	return nil
}

// GetStructure counts the modules and lessons of a course
func (r *courseRepository) GetStructure(ctx context.Context, id int) (*models.CourseStructure, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM modules WHERE course_id = ?),
			(SELECT COUNT(*) FROM lessons WHERE course_id = ?)
	`

	var structure models.CourseStructure
	if err := r.db.QueryRowContext(ctx, query, id, id).Scan(&structure.Modules, &structure.Lessons); err != nil {
		return nil, fmt.Errorf("failed to count course structure: %w", err)
	}

	return &structure, nil
}

// ReconcileEnrollmentCounts rewrites enrolled_students from the enrollments table
// for every course whose counter drifted. Returns the number of corrected courses.
func (r *courseRepository) ReconcileEnrollmentCounts(ctx context.Context) (int64, error) {
	query := `
		UPDATE courses c
		LEFT JOIN (
			SELECT course_id, COUNT(*) AS cnt FROM enrollments GROUP BY course_id
		) e ON e.course_id = c.id
		SET c.enrolled_students = COALESCE(e.cnt, 0)
		WHERE c.enrolled_students <> COALESCE(e.cnt, 0)
	`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile enrollment counts: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
