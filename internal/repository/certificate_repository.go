package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formacademy/formacademy-api/internal/models"
)

// CertificateRepository handles persistence of issued certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs the repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Create persists a certificate row.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	if cert.IssuedAt.IsZero() {
		cert.IssuedAt = time.Now().UTC()
	}
	const query = `INSERT INTO certificates (id, student_id, course_id, serial_number, file_path, issued_at)
        VALUES (:id, :student_id, :course_id, :serial_number, :file_path, :issued_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

// FindByID returns a certificate by identifier.
func (r *CertificateRepository) FindByID(ctx context.Context, id string) (*models.Certificate, error) {
	const query = `SELECT id, student_id, course_id, serial_number, file_path, issued_at FROM certificates WHERE id = $1`
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return &cert, nil
}

// FindByStudentAndCourse returns the certificate issued for the pair, if any.
func (r *CertificateRepository) FindByStudentAndCourse(ctx context.Context, studentID string, courseID int64) (*models.Certificate, error) {
	const query = `SELECT id, student_id, course_id, serial_number, file_path, issued_at FROM certificates WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find certificate by student and course: %w", err)
	}
	return &cert, nil
}

// ListByStudent returns a student's certificates with course context.
func (r *CertificateRepository) ListByStudent(ctx context.Context, studentID string) ([]models.CertificateDetail, error) {
	const query = `SELECT ce.id, ce.student_id, ce.course_id, ce.serial_number, ce.file_path, ce.issued_at,
        COALESCE(u.full_name, '') AS student_name, COALESCE(c.title, '') AS course_title
        FROM certificates ce
        LEFT JOIN users u ON u.id = ce.student_id
        LEFT JOIN courses c ON c.id = ce.course_id
        WHERE ce.student_id = $1
        ORDER BY ce.issued_at DESC`
	var certs []models.CertificateDetail
	if err := r.db.SelectContext(ctx, &certs, query, studentID); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}
