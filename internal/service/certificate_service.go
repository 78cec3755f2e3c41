package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formacademy/formacademy-api/internal/models"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
	"github.com/formacademy/formacademy-api/pkg/export"
	"github.com/formacademy/formacademy-api/pkg/jobs"
	"github.com/formacademy/formacademy-api/pkg/storage"
)

// JobTypeCertificate identifies certificate generation jobs on the queue.
const JobTypeCertificate = "certificate.generate"

type certificateRepository interface {
	Create(ctx context.Context, cert *models.Certificate) error
	FindByID(ctx context.Context, id string) (*models.Certificate, error)
	FindByStudentAndCourse(ctx context.Context, studentID string, courseID int64) (*models.Certificate, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.CertificateDetail, error)
}

// CertificateJobPayload is carried by queued generation jobs.
type CertificateJobPayload struct {
	StudentID string
	CourseID  int64
}

// SignedDownload describes a time-limited certificate download.
type SignedDownload struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CertificateService issues completion certificates and serves their
// downloads through signed URLs. Generation runs on a background queue so a
// slow PDF render never blocks the progress request that triggered it.
type CertificateService struct {
	repo       certificateRepository
	courses    moduleCourseLookup
	users      courseUserLookup
	renderer   *export.CertificateRenderer
	store      *storage.LocalStorage
	signer     *storage.SignedURLSigner
	queue      *jobs.Queue
	metrics    *MetricsService
	issuerName string
	logger     *zap.Logger
}

// NewCertificateService constructs a CertificateService. Attach the queue
// with AttachQueue once it is built around HandleJob.
func NewCertificateService(repo certificateRepository, courses moduleCourseLookup, users courseUserLookup, renderer *export.CertificateRenderer, store *storage.LocalStorage, signer *storage.SignedURLSigner, metrics *MetricsService, issuerName string, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		repo:       repo,
		courses:    courses,
		users:      users,
		renderer:   renderer,
		store:      store,
		signer:     signer,
		metrics:    metrics,
		issuerName: issuerName,
		logger:     logger,
	}
}

// AttachQueue wires the background queue used for asynchronous generation.
func (s *CertificateService) AttachQueue(queue *jobs.Queue) {
	s.queue = queue
}

// OnCourseCompleted enqueues certificate generation for the completed
// course. It falls back to synchronous generation when no queue is attached.
func (s *CertificateService) OnCourseCompleted(ctx context.Context, studentID string, courseID int64) {
	payload := CertificateJobPayload{StudentID: studentID, CourseID: courseID}

	if s.queue != nil {
		job := jobs.Job{
			ID:      uuid.NewString(),
			Type:    JobTypeCertificate,
			Payload: payload,
		}
		err := s.queue.Enqueue(job)
		if err == nil {
			return
		}
		s.logger.Warn("failed to enqueue certificate job, generating inline",
			zap.String("student_id", studentID), zap.Int64("course_id", courseID), zap.Error(err))
	}

	if _, err := s.Generate(ctx, studentID, courseID); err != nil {
		s.logger.Error("certificate generation failed",
			zap.String("student_id", studentID), zap.Int64("course_id", courseID), zap.Error(err))
	}
}

// HandleJob processes one queued generation job.
func (s *CertificateService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(CertificateJobPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}
	_, err := s.Generate(ctx, payload.StudentID, payload.CourseID)
	return err
}

// Generate renders and stores the certificate for a (student, course) pair.
// The operation is idempotent: an existing certificate is returned as is.
func (s *CertificateService) Generate(ctx context.Context, studentID string, courseID int64) (*models.Certificate, error) {
	if existing, err := s.repo.FindByStudentAndCourse(ctx, studentID, courseID); err == nil {
		return existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup existing certificate: %w", err)
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course %d: %w", courseID, err)
	}
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load student %s: %w", studentID, err)
	}

	trainerName := ""
	if trainer, err := s.users.FindByID(ctx, course.TeacherID); err == nil {
		trainerName = trainer.FullName
	}

	certID := uuid.NewString()
	serial := fmt.Sprintf("FA-%d-%s", courseID, strings.ToUpper(certID[:8]))
	issuedAt := time.Now().UTC()

	pdfBytes, err := s.renderer.Render(export.CertificateData{
		SerialNumber: serial,
		StudentName:  student.FullName,
		CourseTitle:  course.Title,
		TrainerName:  trainerName,
		IssuerName:   s.issuerName,
		CompletedAt:  issuedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}

	relPath := fmt.Sprintf("%s/%s.pdf", studentID, certID)
	if _, err := s.store.Save(relPath, pdfBytes); err != nil {
		return nil, fmt.Errorf("store certificate: %w", err)
	}

	cert := &models.Certificate{
		ID:           certID,
		StudentID:    studentID,
		CourseID:     courseID,
		SerialNumber: serial,
		FilePath:     relPath,
		IssuedAt:     issuedAt,
	}

	if err := s.repo.Create(ctx, cert); err != nil {
		if cleanupErr := s.store.Delete(relPath); cleanupErr != nil {
			s.logger.Warn("failed to remove orphan certificate file", zap.String("path", relPath), zap.Error(cleanupErr))
		}
		return nil, fmt.Errorf("persist certificate: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordCertificateGenerated()
	}
	s.logger.Info("certificate issued",
		zap.String("certificate_id", certID), zap.String("student_id", studentID), zap.Int64("course_id", courseID))

	return cert, nil
}

// Get returns a certificate. Students can only access their own.
func (s *CertificateService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.Certificate, error) {
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificat introuvable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement du certificat")
	}

	if claims != nil && claims.Role == models.RoleStudent && cert.StudentID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "ce certificat appartient à un autre apprenant")
	}
	return cert, nil
}

// ListForStudent returns a student's certificates. Students can only list
// their own.
func (s *CertificateService) ListForStudent(ctx context.Context, studentID string, claims *models.JWTClaims) ([]models.CertificateDetail, error) {
	if claims != nil && claims.Role == models.RoleStudent && studentID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "ces certificats appartiennent à un autre apprenant")
	}

	certs, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération des certificats")
	}
	return certs, nil
}

// DownloadURL issues a time-limited signed token for downloading the PDF.
func (s *CertificateService) DownloadURL(ctx context.Context, id string, claims *models.JWTClaims) (*SignedDownload, error) {
	cert, err := s.Get(ctx, id, claims)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(cert.ID, cert.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la signature du lien de téléchargement")
	}
	return &SignedDownload{Token: token, ExpiresAt: expiresAt}, nil
}

// ResolveDownload validates a signed token and opens the underlying file.
// The caller owns the returned handle.
func (s *CertificateService) ResolveDownload(ctx context.Context, token string) (*os.File, *models.Certificate, error) {
	certID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "lien de téléchargement invalide ou expiré")
	}

	cert, err := s.repo.FindByID(ctx, certID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "certificat introuvable")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement du certificat")
	}
	if cert.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "lien de téléchargement invalide")
	}

	file, err := s.store.Open(cert.FilePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de l'ouverture du certificat")
	}
	return file, cert, nil
}
