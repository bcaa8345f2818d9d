package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/models"
)

type lessonRepository struct {
	db *sql.DB
}

// NewLessonRepository creates a new repository for course modules and lessons
func NewLessonRepository(db *sql.DB) *lessonRepository {
	return &lessonRepository{
		db: db,
	}
}

// CreateModule inserts a module at a position unique within its course
func (r *lessonRepository) CreateModule(ctx context.Context, module *models.Module) error {
	query := `INSERT INTO modules (course_id, title, position) VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, module.CourseID, module.Title, module.Position)
	if isDuplicateKey(err) {
		return apperrors.Conflict(fmt.Sprintf("module position %d is already taken", module.Position))
	}
	if err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	module.ID = int(id)
	return nil
}

// GetModuleByID retrieves a module by its ID
func (r *lessonRepository) GetModuleByID(ctx context.Context, id int) (*models.Module, error) {
	query := `SELECT id, course_id, title, position, created_at FROM modules WHERE id = ? LIMIT 1`

	var module models.Module
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&module.ID,
		&module.CourseID,
		&module.Title,
		&module.Position,
		&module.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("module not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module by id: %w", err)
	}

	return &module, nil
}

// CreateLesson inserts a lesson and adds it to the course totals in one transaction
func (r *lessonRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO lessons (course_id, module_id, title, type, position, is_preview, duration, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, query,
		lesson.CourseID,
		lesson.ModuleID,
		lesson.Title,
		lesson.Type,
		lesson.Position,
		lesson.IsPreview,
		lesson.Duration,
		[]byte(lesson.Content),
	)
	if isDuplicateKey(err) {
		return apperrors.Conflict(fmt.Sprintf("lesson position %d is already taken", lesson.Position))
	}
	if err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	totalsQuery := `
		UPDATE courses
		SET total_lessons = total_lessons + 1, total_duration = total_duration + ?
		WHERE id = ?
	`
	if _, err := tx.ExecContext(ctx, totalsQuery, lesson.Duration, lesson.CourseID); err != nil {
		return fmt.Errorf("failed to update course totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	lesson.ID = int(id)
	return nil
}

// GetLessonByID retrieves a lesson by its ID
func (r *lessonRepository) GetLessonByID(ctx context.Context, id int) (*models.Lesson, error) {
	query := `
		SELECT id, course_id, module_id, title, type, position, is_preview, duration, content, created_at
		FROM lessons
		WHERE id = ?
		LIMIT 1
	`

	var lesson models.Lesson
	var content []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lesson.ID,
		&lesson.CourseID,
		&lesson.ModuleID,
		&lesson.Title,
		&lesson.Type,
		&lesson.Position,
		&lesson.IsPreview,
		&lesson.Duration,
		&content,
		&lesson.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("lesson not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson by id: %w", err)
	}

	lesson.Content = content
	return &lesson, nil
}

// DeleteModule removes a module with its lessons and subtracts them from the course totals.
// Nothing is deleted unless the course is draft or rejected.
func (r *lessonRepository) DeleteModule(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var courseID, lessonCount, duration int
	selectQuery := `
		SELECT m.course_id, COUNT(l.id), COALESCE(SUM(l.duration), 0)
		FROM modules m
		JOIN courses c ON c.id = m.course_id
		LEFT JOIN lessons l ON l.module_id = m.id
		WHERE m.id = ? AND c.status IN (?, ?)
		GROUP BY m.course_id
		FOR UPDATE
	`
	err = tx.QueryRowContext(ctx, selectQuery, id, models.CourseStatusDraft, models.CourseStatusRejected).
		Scan(&courseID, &lessonCount, &duration)
	if err == sql.ErrNoRows {
		return apperrors.Precondition("modules can only be deleted while the course is draft or rejected")
	}
	if err != nil {
		return fmt.Errorf("failed to lock module: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM modules WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete module: %w", err)
	}

	totalsQuery := `
		UPDATE courses
		SET total_lessons = GREATEST(total_lessons - ?, 0), total_duration = GREATEST(total_duration - ?, 0)
		WHERE id = ?
	`
	if _, err := tx.ExecContext(ctx, totalsQuery, lessonCount, duration, courseID); err != nil {
		return fmt.Errorf("failed to update course totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteLesson removes a lesson and subtracts it from the course totals.
// Nothing is deleted unless the course is draft or rejected.
func (r *lessonRepository) DeleteLesson(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var courseID, duration int
	selectQuery := `
		SELECT l.course_id, l.duration
		FROM lessons l
		JOIN courses c ON c.id = l.course_id
		WHERE l.id = ? AND c.status IN (?, ?)
		FOR UPDATE
	`
	err = tx.QueryRowContext(ctx, selectQuery, id, models.CourseStatusDraft, models.CourseStatusRejected).
		Scan(&courseID, &duration)
	if err == sql.ErrNoRows {
		return apperrors.Precondition("lessons can only be deleted while the course is draft or rejected")
	}
	if err != nil {
		return fmt.Errorf("failed to lock lesson: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete lesson: %w", err)
	}

	totalsQuery := `
		UPDATE courses
		SET total_lessons = GREATEST(total_lessons - 1, 0), total_duration = GREATEST(total_duration - ?, 0)
		WHERE id = ?
	`
	if _, err := tx.ExecContext(ctx, totalsQuery, duration, courseID); err != nil {
		return fmt.Errorf("failed to update course totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
