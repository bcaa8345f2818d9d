package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCourse_EffectivePrice(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name       string
		discount   decimal.NullDecimal
		validUntil *time.Time
		expected   string
	}{
		{name: "no discount", expected: "2000"},
		{name: "open ended discount", discount: decimal.NewNullDecimal(dec("1500")), expected: "1500"},
		{name: "discount valid in future", discount: decimal.NewNullDecimal(dec("1500")), validUntil: &future, expected: "1500"},
		{name: "expired discount", discount: decimal.NewNullDecimal(dec("1500")), validUntil: &past, expected: "2000"},
		{name: "discount expiring now", discount: decimal.NewNullDecimal(dec("1500")), validUntil: &now, expected: "2000"},
		{name: "discount not below price", discount: decimal.NewNullDecimal(dec("2500")), expected: "2000"},
		{name: "zero discount makes course free", discount: decimal.NewNullDecimal(dec("0")), expected: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			course := &Course{Price: dec("2000"), DiscountPrice: tt.discount, DiscountValidUntil: tt.validUntil}

			assert.True(t, course.EffectivePrice(now).Equal(dec(tt.expected)), "got %s", course.EffectivePrice(now))
		})
	}
}

func TestCourse_StatusFlags(t *testing.T) {
	tests := []struct {
		status    CourseStatus
		published bool
		approved  bool
		editable  bool
	}{
		{status: CourseStatusDraft, editable: true},
		{status: CourseStatusPendingReview, published: true},
		{status: CourseStatusApproved, published: true, approved: true},
		{status: CourseStatusRejected, editable: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			c := &Course{Status: tt.status}

			assert.Equal(t, tt.published, c.IsPublished())
			assert.Equal(t, tt.approved, c.IsApproved())
			assert.Equal(t, tt.editable, c.IsEditable())
			// approved implies published
			if c.IsApproved() {
				assert.True(t, c.IsPublished())
			}
		})
	}
}

func TestCourse_MissingPublishRequirements(t *testing.T) {
	c := &Course{Title: "Go", Category: "programming"}

	assert.Equal(t, []string{"description", "thumbnail"}, c.MissingPublishRequirements())

	c.Description = "d"
	c.ThumbnailURL = "https://cdn/x.png"
	assert.Empty(t, c.MissingPublishRequirements())
}

func TestSplitAmount(t *testing.T) {
	tests := []struct {
		name           string
		price          string
		rate           string
		expectedFee    string
		expectedPayout string
	}{
		{name: "whole fee", price: "2000", rate: "0.20", expectedFee: "400", expectedPayout: "1600"},
		{name: "rounds half away from zero", price: "1999", rate: "0.20", expectedFee: "400", expectedPayout: "1599"},
		{name: "rounds down", price: "1997", rate: "0.20", expectedFee: "399", expectedPayout: "1598"},
		{name: "fractional price", price: "499.99", rate: "0.20", expectedFee: "100", expectedPayout: "399.99"},
		{name: "zero rate", price: "100", rate: "0", expectedFee: "0", expectedPayout: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, payout := SplitAmount(dec(tt.price), dec(tt.rate))

			assert.True(t, fee.Equal(dec(tt.expectedFee)), "fee %s", fee)
			assert.True(t, payout.Equal(dec(tt.expectedPayout)), "payout %s", payout)
			// money balances
			assert.True(t, fee.Add(payout).Equal(dec(tt.price)))
		})
	}
}

func TestPayment_CheckSplit(t *testing.T) {
	ok := &Payment{Amount: dec("2000"), PlatformFee: dec("400"), CreatorPayout: dec("1600")}
	bad := &Payment{Amount: dec("2000"), PlatformFee: dec("400"), CreatorPayout: dec("1500")}

	assert.NoError(t, ok.CheckSplit())
	assert.Error(t, bad.CheckSplit())
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(200000), MinorUnits(dec("2000"), 100))
	assert.Equal(t, int64(49999), MinorUnits(dec("499.99"), 100))
	assert.Equal(t, int64(2000), MinorUnits(dec("2000"), 1))
}

func TestCalculateProgress(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		total     int
		expected  float64
	}{
		{name: "no lessons", completed: 0, total: 0, expected: 0},
		{name: "none completed", completed: 0, total: 4, expected: 0},
		{name: "one of three", completed: 1, total: 3, expected: 33.33},
		{name: "two of three", completed: 2, total: 3, expected: 66.67},
		{name: "all completed", completed: 3, total: 3, expected: 100},
		{name: "clamped", completed: 5, total: 3, expected: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculateProgress(tt.completed, tt.total))
		})
	}
}

func TestDecodeLessonContent(t *testing.T) {
	tests := []struct {
		name          string
		lessonType    LessonType
		raw           string
		expectedError bool
		errorContains string
	}{
		{name: "video", lessonType: LessonTypeVideo, raw: `{"url":"https://v/1.mp4","durationSeconds":600}`},
		{name: "video without url", lessonType: LessonTypeVideo, raw: `{"durationSeconds":600}`, expectedError: true, errorContains: "video url is required"},
		{name: "text", lessonType: LessonTypeText, raw: `{"html":"<p>hi</p>"}`},
		{name: "empty text", lessonType: LessonTypeText, raw: `{"html":" "}`, expectedError: true, errorContains: "text body is required"},
		{name: "quiz", lessonType: LessonTypeQuiz, raw: `{"questions":[{"question":"2+2","options":["3","4"],"correctIndex":1}]}`},
		{name: "quiz without questions", lessonType: LessonTypeQuiz, raw: `{"questions":[]}`, expectedError: true, errorContains: "at least one question"},
		{name: "quiz with one option", lessonType: LessonTypeQuiz, raw: `{"questions":[{"question":"q","options":["a"],"correctIndex":0}]}`, expectedError: true, errorContains: "at least two options"},
		{name: "quiz index out of range", lessonType: LessonTypeQuiz, raw: `{"questions":[{"question":"q","options":["a","b"],"correctIndex":2}]}`, expectedError: true, errorContains: "out of range"},
		{name: "assignment", lessonType: LessonTypeAssignment, raw: `{"instructions":"Build a CLI"}`},
		{name: "unknown type", lessonType: LessonType("podcast"), raw: `{}`, expectedError: true, errorContains: "unknown lesson type"},
		{name: "malformed json", lessonType: LessonTypeText, raw: `{"html":`, expectedError: true, errorContains: "invalid text content"},
		{name: "missing content", lessonType: LessonTypeText, raw: ``, expectedError: true, errorContains: "content is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := DecodeLessonContent(tt.lessonType, json.RawMessage(tt.raw))

			if tt.expectedError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				assert.Nil(t, content)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, content)
		})
	}
}

func TestQuizContent_Grade(t *testing.T) {
	quiz := &QuizContent{Questions: []QuizQuestion{
		{Question: "a", Options: []string{"x", "y"}, CorrectIndex: 0},
		{Question: "b", Options: []string{"x", "y"}, CorrectIndex: 1},
		{Question: "c", Options: []string{"x", "y", "z"}, CorrectIndex: 2},
	}}

	grade := quiz.Grade([]int{0, 0, 2})

	assert.Equal(t, 2, grade.CorrectCount)
	assert.Equal(t, 3, grade.QuestionCount)
	assert.Equal(t, []bool{true, false, true}, grade.Results)
	assert.Equal(t, 66.67, grade.Score)
}

func TestLesson_LearnerContent(t *testing.T) {
	quizLesson := &Lesson{
		ID:      1,
		Type:    LessonTypeQuiz,
		Content: json.RawMessage(`{"questions":[{"question":"2+2","options":["3","4"],"correctIndex":1}]}`),
	}

	raw, err := quizLesson.LearnerContent()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "correctIndex")
	assert.Contains(t, string(raw), "2+2")

	textLesson := &Lesson{Type: LessonTypeText, Content: json.RawMessage(`{"html":"x"}`)}
	raw, err = textLesson.LearnerContent()
	require.NoError(t, err)
	assert.JSONEq(t, `{"html":"x"}`, string(raw))

	_, err = textLesson.Quiz()
	assert.Error(t, err)
}
