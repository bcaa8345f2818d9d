package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/models"
)

const enrollmentColumns = `
	id, user_id, course_id, payment_id, progress, last_accessed_lesson_id,
	last_accessed_at, certificate_issued, certificate_url, enrolled_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

type enrollmentRepository struct {
	db *sql.DB
}

// NewEnrollmentRepository creates a new enrollment repository
func NewEnrollmentRepository(db *sql.DB) *enrollmentRepository {
	return &enrollmentRepository{
		db: db,
	}
}

func scanEnrollment(row rowScanner) (*models.Enrollment, error) {
	var e models.Enrollment
	var paymentID, lastLessonID sql.NullInt64
	var lastAccessedAt sql.NullTime
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.CourseID,
		&paymentID,
		&e.Progress,
		&lastLessonID,
		&lastAccessedAt,
		&e.CertificateIssued,
		&e.CertificateURL,
		&e.EnrolledAt,
	)
	if err != nil {
		return nil, err
	}

	e.PaymentID = intPtr(paymentID)
	e.LastAccessedLessonID = intPtr(lastLessonID)
	e.LastAccessedAt = timePtr(lastAccessedAt)
	return &e, nil
}

// insertEnrollmentTx is the single write path for enrollments. It inserts the
// enrollment and bumps the course counter only when the row was actually inserted.
// A concurrent or earlier enrollment for the same user and course yields (false, nil).
func insertEnrollmentTx(ctx context.Context, tx *sql.Tx, enrollment *models.Enrollment) (bool, error) {
	// Lock the course row before the insert: the foreign key check would otherwise take a
	// shared lock on it, and concurrent enrollments would deadlock on the counter update.
	var courseID int
	lockQuery := `SELECT id FROM courses WHERE id = ? FOR UPDATE`
	err := tx.QueryRowContext(ctx, lockQuery, enrollment.CourseID).Scan(&courseID)
	if err == sql.ErrNoRows {
		return false, apperrors.NotFound("course not found")
	}
	if err != nil {
		return false, fmt.Errorf("failed to lock course: %w", err)
	}

	query := `
		INSERT INTO enrollments (user_id, course_id, payment_id, progress, enrolled_at)
		VALUES (?, ?, ?, 0, ?)
	`
	result, err := tx.ExecContext(ctx, query,
		enrollment.UserID,
		enrollment.CourseID,
		nullInt(enrollment.PaymentID),
		enrollment.EnrolledAt,
	)
	if isDuplicateKey(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert enrollment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get last insert id: %w", err)
	}
	enrollment.ID = int(id)

	counterQuery := `UPDATE courses SET enrolled_students = enrolled_students + 1 WHERE id = ?`
	if _, err := tx.ExecContext(ctx, counterQuery, enrollment.CourseID); err != nil {
		return false, fmt.Errorf("failed to increment enrolled students: %w", err)
	}

	return true, nil
}

// Create inserts an enrollment. Returns false when the user is already enrolled.
func (r *enrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	created, err := insertEnrollmentTx(ctx, tx, enrollment)
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// GetByID retrieves an enrollment by its ID
func (r *enrollmentRepository) GetByID(ctx context.Context, id int) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = ? LIMIT 1`

	enrollment, err := scanEnrollment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("enrollment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment by id: %w", err)
	}

	return enrollment, nil
}

// GetByUserAndCourse retrieves the enrollment of a user in a course
func (r *enrollmentRepository) GetByUserAndCourse(ctx context.Context, userID, courseID int) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = ? AND course_id = ? LIMIT 1`

	enrollment, err := scanEnrollment(r.db.QueryRowContext(ctx, query, userID, courseID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("enrollment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	return enrollment, nil
}

// Exists checks whether a user is enrolled in a course
func (r *enrollmentRepository) Exists(ctx context.Context, userID, courseID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM enrollments WHERE user_id = ? AND course_id = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, courseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}

	return exists, nil
}

// ListByUser retrieves all enrollments of a user, newest first
func (r *enrollmentRepository) ListByUser(ctx context.Context, userID int) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = ? ORDER BY enrolled_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	enrollments := []models.Enrollment{}
	for rows.Next() {
		enrollment, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		enrollments = append(enrollments, *enrollment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return enrollments, nil
}

// GetCompletedLessonIDs lists the lessons an enrollment has completed
func (r *enrollmentRepository) GetCompletedLessonIDs(ctx context.Context, enrollmentID int) ([]int, error) {
	query := `SELECT lesson_id FROM enrollment_lessons WHERE enrollment_id = ? ORDER BY completed_at, lesson_id`

	rows, err := r.db.QueryContext(ctx, query, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed lessons: %w", err)
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan lesson id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return ids, nil
}

// UpdateLastAccessed records the lesson a learner opened last
func (r *enrollmentRepository) UpdateLastAccessed(ctx context.Context, enrollmentID, lessonID int, at time.Time) error {
	query := `UPDATE enrollments SET last_accessed_lesson_id = ?, last_accessed_at = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, lessonID, at, enrollmentID); err != nil {
		return fmt.Errorf("failed to update last accessed lesson: %w", err)
	}

	return nil
}
