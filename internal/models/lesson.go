package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// LessonType is the kind of content a lesson carries
type LessonType string

const (
	LessonTypeVideo      LessonType = "video"
	LessonTypeText       LessonType = "text"
	LessonTypeQuiz       LessonType = "quiz"
	LessonTypeAssignment LessonType = "assignment"
)

// Module is an ordered group of lessons inside a course
type Module struct {
	ID        int       `json:"id"`
	CourseID  int       `json:"courseId"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// Lesson represents a lesson entity. Content holds the JSON of the variant named by Type.
type Lesson struct {
	ID        int             `json:"id"`
	CourseID  int             `json:"courseId"`
	ModuleID  int             `json:"moduleId"`
	Title     string          `json:"title"`
	Type      LessonType      `json:"type"`
	Position  int             `json:"position"`
	IsPreview bool            `json:"isPreview"`
	Duration  int             `json:"duration"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"createdAt"`
}

// LessonContent is implemented by every lesson content variant
type LessonContent interface {
	// Validate checks the variant's own invariants
	Validate() error
}

// VideoContent is the content of a video lesson
type VideoContent struct {
	URL             string `json:"url"`
	DurationSeconds int    `json:"durationSeconds"`
}

func (c *VideoContent) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("video url is required")
	}
	if c.DurationSeconds < 0 {
		return fmt.Errorf("video duration must not be negative")
	}
	return nil
}

// TextContent is the content of a text lesson
type TextContent struct {
	HTML string `json:"html"`
}

func (c *TextContent) Validate() error {
	if strings.TrimSpace(c.HTML) == "" {
		return fmt.Errorf("text body is required")
	}
	return nil
}

// QuizQuestion is a single choice question
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// QuizContent is the content of a quiz lesson
type QuizContent struct {
	Questions []QuizQuestion `json:"questions"`
}

func (c *QuizContent) Validate() error {
	if len(c.Questions) == 0 {
		return fmt.Errorf("quiz must have at least one question")
	}
	for i, q := range c.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("question %d has no text", i+1)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d must have at least two options", i+1)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("question %d has correct index out of range", i+1)
		}
	}
	return nil
}

// Grade compares answers with the correct indices.
// The caller must check that len(answers) equals the number of questions.
func (c *QuizContent) Grade(answers []int) *QuizGrade {
	grade := &QuizGrade{
		Results:       make([]bool, len(c.Questions)),
		QuestionCount: len(c.Questions),
	}
	for i, q := range c.Questions {
		if i < len(answers) && answers[i] == q.CorrectIndex {
			grade.Results[i] = true
			grade.CorrectCount++
		}
	}
	if grade.QuestionCount > 0 {
		grade.Score = RoundPercent(float64(grade.CorrectCount) / float64(grade.QuestionCount) * 100)
	}
	return grade
}

// QuizGrade is the outcome of grading a set of answers
type QuizGrade struct {
	Score         float64
	CorrectCount  int
	QuestionCount int
	Results       []bool
}

// AssignmentContent is the content of an assignment lesson
type AssignmentContent struct {
	Instructions string `json:"instructions"`
}

func (c *AssignmentContent) Validate() error {
	if strings.TrimSpace(c.Instructions) == "" {
		return fmt.Errorf("assignment instructions are required")
	}
	return nil
}

// DecodeLessonContent decodes and validates raw content for the given lesson type
func DecodeLessonContent(lessonType LessonType, raw json.RawMessage) (LessonContent, error) {
	var content LessonContent
	switch lessonType {
	case LessonTypeVideo:
		content = &VideoContent{}
	case LessonTypeText:
		content = &TextContent{}
	case LessonTypeQuiz:
		content = &QuizContent{}
	case LessonTypeAssignment:
		content = &AssignmentContent{}
	default:
		return nil, fmt.Errorf("unknown lesson type %q", lessonType)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("lesson content is required")
	}
	if err := json.Unmarshal(raw, content); err != nil {
		return nil, fmt.Errorf("invalid %s content: %w", lessonType, err)
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}
	return content, nil
}

// Quiz decodes the lesson's quiz content
func (l *Lesson) Quiz() (*QuizContent, error) {
	if l.Type != LessonTypeQuiz {
		return nil, fmt.Errorf("lesson %d is not a quiz", l.ID)
	}
	content, err := DecodeLessonContent(l.Type, l.Content)
	if err != nil {
		return nil, err
	}
	return content.(*QuizContent), nil
}

// LearnerContent returns the content as shown to learners. Quiz answers are removed.
func (l *Lesson) LearnerContent() (json.RawMessage, error) {
	if l.Type != LessonTypeQuiz {
		return l.Content, nil
	}
	quiz, err := l.Quiz()
	if err != nil {
		return nil, err
	}

	type publicQuestion struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
	}
	questions := make([]publicQuestion, len(quiz.Questions))
	for i, q := range quiz.Questions {
		questions[i] = publicQuestion{Question: q.Question, Options: q.Options}
	}
	return json.Marshal(map[string]any{"questions": questions})
}

// RoundPercent rounds a percentage to two decimals and clamps it to [0, 100]
func RoundPercent(v float64) float64 {
	v = math.Round(v*100) / 100
	return math.Max(0, math.Min(100, v))
}

// CreateModuleRequest represents the request body for adding a module
type CreateModuleRequest struct {
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// CreateLessonRequest represents the request body for adding a lesson
type CreateLessonRequest struct {
	Title     string          `json:"title"`
	Type      LessonType      `json:"type"`
	Position  int             `json:"position"`
	IsPreview bool            `json:"isPreview"`
	Content   json.RawMessage `json:"content" swaggertype:"object"`
}

// LessonView is a lesson as returned to a learner
type LessonView struct {
	ID        int             `json:"id"`
	CourseID  int             `json:"courseId"`
	ModuleID  int             `json:"moduleId"`
	Title     string          `json:"title"`
	Type      LessonType      `json:"type"`
	IsPreview bool            `json:"isPreview"`
	Duration  int             `json:"duration"`
	Content   json.RawMessage `json:"content" swaggertype:"object"`
}
