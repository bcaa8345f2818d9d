package models

import (
	"time"
)

// Enrollment grants a learner access to a course and tracks progress through it
type Enrollment struct {
	ID                   int        `json:"id"`
	UserID               int        `json:"userId"`
	CourseID             int        `json:"courseId"`
	PaymentID            *int       `json:"paymentId,omitempty"`
	Progress             float64    `json:"progress"`
	CompletedLessons     []int      `json:"completedLessons"`
	LastAccessedLessonID *int       `json:"lastAccessedLessonId,omitempty"`
	LastAccessedAt       *time.Time `json:"lastAccessedAt,omitempty"`
	CertificateIssued    bool       `json:"certificateIssued"`
	CertificateURL       string     `json:"certificateUrl,omitempty"`
	EnrolledAt           time.Time  `json:"enrolledAt"`
}

// IsComplete reports whether every lesson of the course has been completed
func (e *Enrollment) IsComplete() bool {
	return e.Progress >= 100
}

// CalculateProgress returns the completion percentage rounded to two decimals.
// A course without lessons has zero progress.
func CalculateProgress(completed, totalLessons int) float64 {
	if totalLessons <= 0 {
		return 0
	}
	return RoundPercent(float64(completed) / float64(totalLessons) * 100)
}

// SubmissionType is the form of an assignment submission
type SubmissionType string

const (
	SubmissionTypeText SubmissionType = "text"
	SubmissionTypeLink SubmissionType = "link"
	SubmissionTypeFile SubmissionType = "file"
)

// IsValid reports whether the submission type is known
func (t SubmissionType) IsValid() bool {
	switch t {
	case SubmissionTypeText, SubmissionTypeLink, SubmissionTypeFile:
		return true
	}
	return false
}

// QuizAttempt is a graded quiz submission. Attempts are append-only.
type QuizAttempt struct {
	ID           int       `json:"id"`
	EnrollmentID int       `json:"enrollmentId"`
	LessonID     int       `json:"lessonId"`
	Answers      []int     `json:"answers"`
	Results      []bool    `json:"results"`
	Score        float64   `json:"score"`
	Passed       bool      `json:"passed"`
	AttemptedAt  time.Time `json:"attemptedAt"`
}

// AssignmentSubmission is a learner's answer to an assignment. Submissions are append-only.
type AssignmentSubmission struct {
	ID             int            `json:"id"`
	EnrollmentID   int            `json:"enrollmentId"`
	LessonID       int            `json:"lessonId"`
	Submission     string         `json:"submission"`
	SubmissionType SubmissionType `json:"submissionType"`
	Status         string         `json:"status"`
	SubmittedAt    time.Time      `json:"submittedAt"`
}

// SubmissionStatusSubmitted is the status of every new assignment submission
const SubmissionStatusSubmitted = "submitted"

// SubmitQuizRequest represents the request body for submitting quiz answers
type SubmitQuizRequest struct {
	Answers []int `json:"answers"`
}

// SubmitAssignmentRequest represents the request body for submitting an assignment
type SubmitAssignmentRequest struct {
	Submission     string         `json:"submission"`
	SubmissionType SubmissionType `json:"submissionType"`
}

// QuizResult is returned after a quiz submission, whether it passed or not
type QuizResult struct {
	AttemptID     int     `json:"attemptId"`
	Score         float64 `json:"score"`
	Passed        bool    `json:"passed"`
	CorrectCount  int     `json:"correctCount"`
	QuestionCount int     `json:"questionCount"`
	Results       []bool  `json:"results"`
	Progress      float64 `json:"progress"`
}

// ProgressUpdate is returned after a lesson completion
type ProgressUpdate struct {
	EnrollmentID int     `json:"enrollmentId"`
	LessonID     int     `json:"lessonId"`
	Progress     float64 `json:"progress"`
	Completed    bool    `json:"completed"`
}
