package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/learnmarket/backend/internal/models"
)

type progressRepository struct {
	db *sql.DB
}

// NewProgressRepository creates a new repository for lesson completions, quiz attempts and assignment submissions
func NewProgressRepository(db *sql.DB) *progressRepository {
	return &progressRepository{
		db: db,
	}
}

// CompleteLesson adds a lesson to the enrollment's completed set and recomputes
// progress from the lessons that still belong to the course, in one transaction.
// Returns the new progress and whether the lesson was newly completed.
func (r *progressRepository) CompleteLesson(ctx context.Context, enrollmentID, courseID, lessonID int, at time.Time) (float64, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT IGNORE INTO enrollment_lessons (enrollment_id, lesson_id, completed_at)
		VALUES (?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, insertQuery, enrollmentID, lessonID, at)
	if err != nil {
		return 0, false, fmt.Errorf("failed to record lesson completion: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	countQuery := `
		SELECT c.total_lessons, (
			SELECT COUNT(*)
			FROM enrollment_lessons el
			JOIN lessons l ON l.id = el.lesson_id
			WHERE el.enrollment_id = ? AND l.course_id = c.id
		)
		FROM courses c
		WHERE c.id = ?
	`
	var total, completed int
	if err := tx.QueryRowContext(ctx, countQuery, enrollmentID, courseID).Scan(&total, &completed); err != nil {
		return 0, false, fmt.Errorf("failed to count completed lessons: %w", err)
	}

	progress := models.CalculateProgress(completed, total)
	if _, err := tx.ExecContext(ctx, `UPDATE enrollments SET progress = ? WHERE id = ?`, progress, enrollmentID); err != nil {
		return 0, false, fmt.Errorf("failed to update progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return progress, rowsAffected > 0, nil
}

// CreateQuizAttempt appends a graded quiz attempt
func (r *progressRepository) CreateQuizAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}
	results, err := json.Marshal(attempt.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	query := `
		INSERT INTO quiz_attempts (enrollment_id, lesson_id, answers, results, score, passed, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		attempt.EnrollmentID,
		attempt.LessonID,
		answers,
		results,
		attempt.Score,
		attempt.Passed,
		attempt.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create quiz attempt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	attempt.ID = int(id)
	return nil
}

// CreateAssignmentSubmission appends an assignment submission
func (r *progressRepository) CreateAssignmentSubmission(ctx context.Context, submission *models.AssignmentSubmission) error {
	query := `
		INSERT INTO assignment_submissions (enrollment_id, lesson_id, submission, submission_type, status, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		submission.EnrollmentID,
		submission.LessonID,
		submission.Submission,
		submission.SubmissionType,
		submission.Status,
		submission.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create assignment submission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	submission.ID = int(id)
	return nil
}
