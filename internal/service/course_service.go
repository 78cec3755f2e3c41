package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/formacademy/formacademy-api/internal/models"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	FindBySlug(ctx context.Context, slug string) (*models.Course, error)
	ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	CountEnrollments(ctx context.Context, id int64) (int, error)
	DeleteCascade(ctx context.Context, id int64) error
}

type courseDomainLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Domain, error)
}

type courseUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Slug        string `json:"slug" validate:"omitempty,max=220"`
	Description string `json:"description"`
	DomainID    int64  `json:"domain_id" validate:"required,gt=0"`
	TeacherID   string `json:"teacher_id" validate:"required,uuid4"`
	Active      bool   `json:"active"`
}

// UpdateCourseRequest is the payload for updating a course.
type UpdateCourseRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Slug        string `json:"slug" validate:"omitempty,max=220"`
	Description string `json:"description"`
	DomainID    int64  `json:"domain_id" validate:"required,gt=0"`
	TeacherID   string `json:"teacher_id" validate:"required,uuid4"`
	Active      *bool  `json:"active"`
}

// CourseService manages the course catalog.
type CourseService struct {
	repo      courseRepository
	domains   courseDomainLookup
	users     courseUserLookup
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, domains courseDomainLookup, users courseUserLookup, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{repo: repo, domains: domains, users: users, audit: audit, validator: validate, logger: logger}
}

// List returns the catalog filtered by the caller's visibility. Students only
// ever see active courses.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter, claims *models.JWTClaims) ([]models.CourseDetail, *models.Pagination, error) {
	if claims != nil && claims.Role == models.RoleStudent {
		active := true
		filter.Active = &active
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération du catalogue")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return courses, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a course by ID. Inactive courses are hidden from students.
func (s *CourseService) Get(ctx context.Context, id int64, claims *models.JWTClaims) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "formation introuvable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement de la formation")
	}

	if claims != nil && claims.Role == models.RoleStudent && !course.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "formation introuvable")
	}

	return course, nil
}

// GetBySlug returns a course by its slug with the same visibility rules as Get.
func (s *CourseService) GetBySlug(ctx context.Context, slug string, claims *models.JWTClaims) (*models.Course, error) {
	course, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "formation introuvable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement de la formation")
	}

	if claims != nil && claims.Role == models.RoleStudent && !course.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "formation introuvable")
	}

	return course, nil
}

// Create adds a course to the catalog after validating its domain and trainer.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest, claims *models.JWTClaims, meta models.LoginRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "données de la formation invalides")
	}

	if claims != nil && claims.Role == models.RoleTrainer && req.TeacherID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "un formateur ne peut créer que ses propres formations")
	}

	if _, err := s.domains.FindByID(ctx, req.DomainID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "le domaine indiqué n'existe pas")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la vérification du domaine")
	}

	teacher, err := s.users.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "le formateur indiqué n'existe pas")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la vérification du formateur")
	}
	if teacher.Role != models.RoleTrainer {
		return nil, appErrors.Clone(appErrors.ErrValidation, "l'utilisateur indiqué n'est pas un formateur")
	}

	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Title)
	}

	exists, err := s.repo.ExistsBySlug(ctx, slug, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la vérification du slug")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "une formation avec ce slug existe déjà")
	}

	course := &models.Course{
		Title:       req.Title,
		Slug:        slug,
		Description: req.Description,
		DomainID:    req.DomainID,
		TeacherID:   req.TeacherID,
		Active:      req.Active,
	}

	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la création de la formation")
	}

	s.recordAudit(ctx, claims, models.AuditActionCourseCreate, course.ID, nil, course, meta)
	return course, nil
}

// Update modifies a course. Trainers may only touch their own courses.
func (s *CourseService) Update(ctx context.Context, id int64, req UpdateCourseRequest, claims *models.JWTClaims, meta models.LoginRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "données de la formation invalides")
	}

	course, err := s.Get(ctx, id, nil)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeOwnership(claims, course); err != nil {
		return nil, err
	}

	if claims != nil && claims.Role == models.RoleTrainer && req.TeacherID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "un formateur ne peut pas réattribuer ses formations")
	}

	if _, err := s.domains.FindByID(ctx, req.DomainID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "le domaine indiqué n'existe pas")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la vérification du domaine")
	}

	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Title)
	}

	exists, err := s.repo.ExistsBySlug(ctx, slug, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la vérification du slug")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "une formation avec ce slug existe déjà")
	}

	before := *course

	course.Title = req.Title
	course.Slug = slug
	course.Description = req.Description
	course.DomainID = req.DomainID
	course.TeacherID = req.TeacherID
	if req.Active != nil {
		course.Active = *req.Active
	}

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la mise à jour de la formation")
	}

	s.recordAudit(ctx, claims, models.AuditActionCourseUpdate, course.ID, &before, course, meta)
	return course, nil
}

// Delete removes a course and its entire content tree. The removal is refused
// while students are still enrolled.
func (s *CourseService) Delete(ctx context.Context, id int64, claims *models.JWTClaims, meta models.LoginRequest) error {
	course, err := s.Get(ctx, id, nil)
	if err != nil {
		return err
	}

	if err := s.authorizeOwnership(claims, course); err != nil {
		return err
	}

	count, err := s.repo.CountEnrollments(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du comptage des inscriptions")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrHasEnrollments, "")
	}

	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "formation introuvable")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la suppression de la formation")
	}

	s.recordAudit(ctx, claims, models.AuditActionCourseDelete, id, course, nil, meta)
	return nil
}

func (s *CourseService) authorizeOwnership(claims *models.JWTClaims, course *models.Course) error {
	if claims == nil {
		return nil
	}
	if claims.Role == models.RoleTrainer && course.TeacherID != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "cette formation appartient à un autre formateur")
	}
	return nil
}

func (s *CourseService) recordAudit(ctx context.Context, claims *models.JWTClaims, action string, courseID int64, before, after *models.Course, meta models.LoginRequest) {
	if s.audit == nil {
		return
	}
	var actorID *string
	if claims != nil {
		actorID = &claims.UserID
	}
	resourceID := fmt.Sprintf("%d", courseID)

	var oldPayload, newPayload []byte
	if before != nil {
		oldPayload, _ = json.Marshal(map[string]interface{}{"title": before.Title, "domain_id": before.DomainID, "active": before.Active})
	}
	if after != nil {
		newPayload, _ = json.Marshal(map[string]interface{}{"title": after.Title, "domain_id": after.DomainID, "active": after.Active})
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   "courses",
		ResourceID: &resourceID,
		OldValues:  oldPayload,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record course audit log", zap.Error(err))
	}
}
