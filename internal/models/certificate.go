package models

import (
	"time"
)

// Certificate is issued once per enrollment after the course is completed
type Certificate struct {
	ID            int       `json:"id"`
	CertificateID string    `json:"certificateId"`
	UserID        int       `json:"userId"`
	CourseID      int       `json:"courseId"`
	EnrollmentID  int       `json:"enrollmentId"`
	URL           string    `json:"url"`
	IssuedAt      time.Time `json:"issuedAt"`
}

// CertificateRenderRequest is sent to the certificate renderer
type CertificateRenderRequest struct {
	CertificateID string    `json:"certificateId"`
	UserName      string    `json:"userName"`
	CourseTitle   string    `json:"courseTitle"`
	IssuedAt      time.Time `json:"issuedAt"`
}
