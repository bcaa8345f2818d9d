package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CourseStatus is the review status of a course
type CourseStatus string

const (
	CourseStatusDraft         CourseStatus = "draft"
	CourseStatusPendingReview CourseStatus = "pending_review"
	CourseStatusApproved      CourseStatus = "approved"
	CourseStatusRejected      CourseStatus = "rejected"
)

// Course represents a course entity
type Course struct {
	ID                 int                 `json:"id"`
	CreatorID          int                 `json:"creatorId"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	ThumbnailURL       string              `json:"thumbnailUrl"`
	Category           string              `json:"category"`
	Price              decimal.Decimal     `json:"price"`
	DiscountPrice      decimal.NullDecimal `json:"discountPrice"`
	DiscountValidUntil *time.Time          `json:"discountValidUntil,omitempty"`
	Status             CourseStatus        `json:"status"`
	IsFeatured         bool                `json:"isFeatured"`
	EnrolledStudents   int                 `json:"enrolledStudents"`
	TotalLessons       int                 `json:"totalLessons"`
	TotalDuration      int                 `json:"totalDuration"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// IsPublished reports whether the course has been submitted for review or approved
func (c *Course) IsPublished() bool {
	return c.Status == CourseStatusPendingReview || c.Status == CourseStatusApproved
}

// IsApproved reports whether the course is visible for purchase
func (c *Course) IsApproved() bool {
	return c.Status == CourseStatusApproved
}

// IsEditable reports whether modules and lessons may still be removed
func (c *Course) IsEditable() bool {
	return c.Status == CourseStatusDraft || c.Status == CourseStatusRejected
}

// EffectivePrice returns the discount price when it is set, lower than the list
// price and not expired at "now"; otherwise the list price.
func (c *Course) EffectivePrice(now time.Time) decimal.Decimal {
	if !c.DiscountPrice.Valid {
		return c.Price
	}
	if c.DiscountPrice.Decimal.IsNegative() || !c.DiscountPrice.Decimal.LessThan(c.Price) {
		return c.Price
	}
	if c.DiscountValidUntil != nil && !c.DiscountValidUntil.After(now) {
		return c.Price
	}
	return c.DiscountPrice.Decimal
}

// MissingPublishRequirements lists the descriptive fields that must be filled before publishing
func (c *Course) MissingPublishRequirements() []string {
	var missing []string
	if c.Title == "" {
		missing = append(missing, "title")
	}
	if c.Description == "" {
		missing = append(missing, "description")
	}
	if c.ThumbnailURL == "" {
		missing = append(missing, "thumbnail")
	}
	if c.Category == "" {
		missing = append(missing, "category")
	}
	return missing
}

// CreateCourseRequest represents the request body for creating a course
type CreateCourseRequest struct {
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	ThumbnailURL       string           `json:"thumbnailUrl"`
	Category           string           `json:"category"`
	Price              decimal.Decimal  `json:"price"`
	DiscountPrice      *decimal.Decimal `json:"discountPrice,omitempty"`
	DiscountValidUntil *time.Time       `json:"discountValidUntil,omitempty"`
}

// CourseStructure holds the number of modules and lessons in a course
type CourseStructure struct {
	Modules int
	Lessons int
}
