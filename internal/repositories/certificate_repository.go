package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/learnmarket/backend/internal/apperrors"
	"github.com/learnmarket/backend/internal/models"
)

const certificateColumns = `id, certificate_id, user_id, course_id, enrollment_id, url, issued_at`

type certificateRepository struct {
	db *sql.DB
}

// NewCertificateRepository creates a new certificate repository
func NewCertificateRepository(db *sql.DB) *certificateRepository {
	return &certificateRepository{
		db: db,
	}
}

func scanCertificate(row rowScanner) (*models.Certificate, error) {
	var c models.Certificate
	err := row.Scan(
		&c.ID,
		&c.CertificateID,
		&c.UserID,
		&c.CourseID,
		&c.EnrollmentID,
		&c.URL,
		&c.IssuedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByEnrollmentID retrieves the certificate issued for an enrollment
func (r *certificateRepository) GetByEnrollmentID(ctx context.Context, enrollmentID int) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE enrollment_id = ? LIMIT 1`

	certificate, err := scanCertificate(r.db.QueryRowContext(ctx, query, enrollmentID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("certificate not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}

	return certificate, nil
}

// CreateForEnrollment stores a certificate and marks its enrollment as certified in one transaction.
// When the enrollment already has a certificate, that certificate is returned with created=false.
func (r *certificateRepository) CreateForEnrollment(ctx context.Context, certificate *models.Certificate) (*models.Certificate, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT INTO certificates (certificate_id, user_id, course_id, enrollment_id, url, issued_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, insertQuery,
		certificate.CertificateID,
		certificate.UserID,
		certificate.CourseID,
		certificate.EnrollmentID,
		certificate.URL,
		certificate.IssuedAt,
	)
	if isDuplicateKey(err) {
		existingQuery := `SELECT ` + certificateColumns + ` FROM certificates WHERE enrollment_id = ? LIMIT 1`
		existing, err := scanCertificate(tx.QueryRowContext(ctx, existingQuery, certificate.EnrollmentID))
		if err != nil {
			return nil, false, fmt.Errorf("failed to load existing certificate: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create certificate: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get last insert id: %w", err)
	}

	updateQuery := `UPDATE enrollments SET certificate_issued = 1, certificate_url = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, updateQuery, certificate.URL, certificate.EnrollmentID); err != nil {
		return nil, false, fmt.Errorf("failed to mark enrollment certified: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	certificate.ID = int(id)
	return certificate, true, nil
}
