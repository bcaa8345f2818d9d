package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/models"
)

// CertificateRepository is the interface that wraps methods for certificates table data access
type CertificateRepository interface {
	// GetByEnrollmentID retrieves the certificate of an enrollment, or a NotFound error.
	GetByEnrollmentID(ctx context.Context, enrollmentID int) (*models.Certificate, error)
	// CreateForEnrollment stores a certificate and marks its enrollment as certified in one transaction.
	//
	// "ctx" is the context for the request.
	// "certificate" is the certificate to store.
	//
	// Returns the stored certificate and true, or the already existing certificate and false
	// when another request issued it first, and an error if any.
	CreateForEnrollment(ctx context.Context, certificate *models.Certificate) (*models.Certificate, bool, error)
}

// CertificateRenderer is the interface that wraps the external certificate renderer
type CertificateRenderer interface {
	// Render produces the certificate document and returns its URL.
	Render(ctx context.Context, req models.CertificateRenderRequest) (string, error)
}

type certificateService struct {
	courseRepo      CourseReader
	enrollmentRepo  EnrollmentRepository
	certificateRepo CertificateRepository
	renderer        CertificateRenderer
	logger          *zap.Logger
	now             func() time.Time
	newID           func() string
}

// NewCertificateService creates a new certificate service
func NewCertificateService(
	courseRepo CourseReader,
	enrollmentRepo EnrollmentRepository,
	certificateRepo CertificateRepository,
	renderer CertificateRenderer,
	logger *zap.Logger,
) *certificateService {
	return &certificateService{
		courseRepo:      courseRepo,
		enrollmentRepo:  enrollmentRepo,
		certificateRepo: certificateRepo,
		renderer:        renderer,
		logger:          logger,
		now:             time.Now,
		newID:           uuid.NewString,
	}
}

// GetCertificate returns the certificate of the user's enrollment, issuing it when the course is complete
func (s *certificateService) GetCertificate(ctx context.Context, userID, enrollmentID int, userName string) (*models.Certificate, error) {
	enrollment, err := s.enrollmentRepo.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.UserID != userID {
		return nil, apperrors.Forbidden("enrollment belongs to another user")
	}

	return s.issue(ctx, enrollment, userName)
}

// IssueCertificate issues the certificate of a completed enrollment.
// Issuing twice returns the first certificate.
func (s *certificateService) IssueCertificate(ctx context.Context, enrollmentID int, userName string) (*models.Certificate, error) {
	enrollment, err := s.enrollmentRepo.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, enrollment, userName)
}

func (s *certificateService) issue(ctx context.Context, enrollment *models.Enrollment, userName string) (*models.Certificate, error) {
	existing, err := s.certificateRepo.GetByEnrollmentID(ctx, enrollment.ID)
	if err == nil {
		return existing, nil
	}
	if !apperrors.Is(err, apperrors.KindNotFound) {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	if !enrollment.IsComplete() {
		return nil, apperrors.Precondition(fmt.Sprintf("course is %.2f%% complete, certificates are issued at 100%%", enrollment.Progress))
	}

	course, err := s.courseRepo.GetByID(ctx, enrollment.CourseID)
	if err != nil {
		return nil, err
	}

	issuedAt := s.now().UTC()
	certificateID := s.newID()
	url, err := s.renderer.Render(ctx, models.CertificateRenderRequest{
		CertificateID: certificateID,
		UserName:      userName,
		CourseTitle:   course.Title,
		IssuedAt:      issuedAt,
	})
	if err != nil {
		s.logger.Error("failed to render certificate", zap.Int("enrollment_id", enrollment.ID), zap.Error(err))
		return nil, apperrors.External("certificate renderer is unavailable, try again", err)
	}

	certificate, created, err := s.certificateRepo.CreateForEnrollment(ctx, &models.Certificate{
		CertificateID: certificateID,
		UserID:        enrollment.UserID,
		CourseID:      enrollment.CourseID,
		EnrollmentID:  enrollment.ID,
		URL:           url,
		IssuedAt:      issuedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store certificate: %w", err)
	}

	if created {
		s.logger.Info("certificate issued",
			zap.Int("enrollment_id", enrollment.ID),
			zap.String("certificate_id", certificate.CertificateID))
	}
	return certificate, nil
}
