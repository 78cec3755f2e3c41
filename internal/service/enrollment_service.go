package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formacademy/formacademy-api/internal/models"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByStudentAndCourse(ctx context.Context, studentID string, courseID int64) (*models.Enrollment, error)
	Exists(ctx context.Context, studentID string, courseID int64) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, enrollment *models.Enrollment) error
}

// EnrollRequest is the payload for enrolling a student. StudentID is ignored
// for students, who can only enroll themselves.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"omitempty,uuid4"`
	CourseID  int64  `json:"course_id" validate:"required,gt=0"`
}

// EnrollmentService manages course enrollments.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   moduleCourseLookup
	users     courseUserLookup
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses moduleCourseLookup, users courseUserLookup, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{repo: repo, courses: courses, users: users, audit: audit, validator: validate, logger: logger}
}

// List returns enrollments visible to the caller. Students only see their
// own; trainers only see enrollments in their own courses.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter, claims *models.JWTClaims) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if claims != nil {
		switch claims.Role {
		case models.RoleStudent:
			filter.StudentID = claims.UserID
		case models.RoleTrainer:
			if filter.CourseID <= 0 {
				return nil, nil, appErrors.Clone(appErrors.ErrValidation, "un identifiant de formation est requis")
			}
			course, err := s.courses.FindByID(ctx, filter.CourseID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "formation introuvable")
				}
				return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement de la formation")
			}
			if course.TeacherID != claims.UserID {
				return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "cette formation appartient à un autre formateur")
			}
		}
	}

	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération des inscriptions")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return enrollments, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Enroll registers a student on an active course. Enrolling twice on the
// same course is a conflict.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest, claims *models.JWTClaims, meta models.LoginRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "données d'inscription invalides")
	}

	studentID := req.StudentID
	if claims != nil && claims.Role == models.RoleStudent {
		studentID = claims.UserID
	}
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "un identifiant d'apprenant est requis")
	}

	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "apprenant introuvable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement de l'apprenant")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "seul un apprenant peut être inscrit à une formation")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ce compte apprenant est désactivé")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "formation introuvable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement de la formation")
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cette formation n'est pas ouverte aux inscriptions")
	}

	exists, err := s.repo.Exists(ctx, studentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la vérification de l'inscription")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "cet apprenant est déjà inscrit à cette formation")
	}

	enrollment := &models.Enrollment{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		CourseID:   req.CourseID,
		EnrolledAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de l'inscription")
	}

	s.recordAudit(ctx, claims, models.AuditActionEnroll, enrollment, meta)
	return enrollment, nil
}

// Unenroll removes an enrollment and the student's progress in the course,
// returning the removed row. Students may only withdraw themselves.
func (s *EnrollmentService) Unenroll(ctx context.Context, id string, claims *models.JWTClaims, meta models.LoginRequest) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "inscription introuvable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement de l'inscription")
	}

	if claims != nil && claims.Role == models.RoleStudent && enrollment.StudentID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cette inscription appartient à un autre apprenant")
	}

	if err := s.repo.Delete(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la désinscription")
	}

	s.recordAudit(ctx, claims, models.AuditActionUnenroll, enrollment, meta)
	return enrollment, nil
}

func (s *EnrollmentService) recordAudit(ctx context.Context, claims *models.JWTClaims, action string, enrollment *models.Enrollment, meta models.LoginRequest) {
	if s.audit == nil {
		return
	}
	var actorID *string
	if claims != nil {
		actorID = &claims.UserID
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"student_id": enrollment.StudentID,
		"course_id":  fmt.Sprintf("%d", enrollment.CourseID),
	})

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   "enrollments",
		ResourceID: &enrollment.ID,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record enrollment audit log", zap.Error(err))
	}
}
