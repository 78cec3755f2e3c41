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

type moduleRepository interface {
	ListByCourse(ctx context.Context, courseID int64) ([]models.Module, error)
	ListIDsByCourse(ctx context.Context, courseID int64) ([]int64, error)
	FindByID(ctx context.Context, id int64) (*models.Module, error)
	Create(ctx context.Context, module *models.Module) error
	Update(ctx context.Context, module *models.Module) error
	Reorder(ctx context.Context, courseID int64, ids []int64) error
	CountChapters(ctx context.Context, id int64) (int, error)
	DeleteCascade(ctx context.Context, id int64) (int, error)
}

type moduleChapterLookup interface {
	ListByCourse(ctx context.Context, courseID int64) ([]models.Chapter, error)
}

type moduleCourseLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

// ModuleRequest is the payload for creating or updating a module.
type ModuleRequest struct {
	Title       string `json:"title" validate:"required,min=2,max=200"`
	Description string `json:"description"`
}

// ReorderRequest carries the complete ordered set of sibling IDs. Position in
// the slice becomes the new order index.
type ReorderRequest struct {
	OrderedIDs []int64 `json:"ordered_ids" validate:"required,min=1"`
}

// DeleteModuleResult reports what a module removal took with it.
type DeleteModuleResult struct {
	ModuleID        int64 `json:"module_id"`
	ChaptersRemoved int   `json:"chapters_removed"`
}

// ModuleService manages modules within a course, including sibling ordering
// and cascaded removal.
type ModuleService struct {
	repo      moduleRepository
	chapters  moduleChapterLookup
	courses   moduleCourseLookup
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewModuleService constructs a ModuleService.
func NewModuleService(repo moduleRepository, chapters moduleChapterLookup, courses moduleCourseLookup, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *ModuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ModuleService{repo: repo, chapters: chapters, courses: courses, audit: audit, validator: validate, logger: logger}
}

// ListByCourse returns the ordered modules of a course.
func (s *ModuleService) ListByCourse(ctx context.Context, courseID int64, claims *models.JWTClaims) ([]models.Module, error) {
	if _, err := s.loadCourse(ctx, courseID, claims); err != nil {
		return nil, err
	}

	modules, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération des modules")
	}
	return modules, nil
}

// Outline returns the full ordered content tree of a course, modules with
// their chapters nested.
func (s *ModuleService) Outline(ctx context.Context, courseID int64, claims *models.JWTClaims) ([]models.ModuleWithChapters, error) {
	modules, err := s.ListByCourse(ctx, courseID, claims)
	if err != nil {
		return nil, err
	}

	chapters, err := s.chapters.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération des chapitres")
	}

	byModule := make(map[int64][]models.Chapter, len(modules))
	for _, ch := range chapters {
		byModule[ch.ModuleID] = append(byModule[ch.ModuleID], ch)
	}

	outline := make([]models.ModuleWithChapters, 0, len(modules))
	for _, m := range modules {
		entry := models.ModuleWithChapters{Module: m, Chapters: byModule[m.ID]}
		if entry.Chapters == nil {
			entry.Chapters = []models.Chapter{}
		}
		outline = append(outline, entry)
	}
	return outline, nil
}

// Get returns a module by ID.
func (s *ModuleService) Get(ctx context.Context, id int64) (*models.Module, error) {
	module, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module introuvable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement du module")
	}
	return module, nil
}

// Create appends a module at the end of the course's module list.
func (s *ModuleService) Create(ctx context.Context, courseID int64, req ModuleRequest, claims *models.JWTClaims, meta models.LoginRequest) (*models.Module, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "données du module invalides")
	}

	course, err := s.loadCourse(ctx, courseID, nil)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwnership(claims, course); err != nil {
		return nil, err
	}

	module := &models.Module{
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
	}

	if err := s.repo.Create(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la création du module")
	}

	s.recordAudit(ctx, claims, models.AuditActionContentChange, "modules", module.ID, map[string]interface{}{"title": module.Title, "course_id": courseID}, meta)
	return module, nil
}

// Update modifies a module's title and description. Order is changed through
// Reorder only.
func (s *ModuleService) Update(ctx context.Context, id int64, req ModuleRequest, claims *models.JWTClaims, meta models.LoginRequest) (*models.Module, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "données du module invalides")
	}

	module, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	course, err := s.loadCourse(ctx, module.CourseID, nil)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwnership(claims, course); err != nil {
		return nil, err
	}

	module.Title = req.Title
	module.Description = req.Description

	if err := s.repo.Update(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la mise à jour du module")
	}

	s.recordAudit(ctx, claims, models.AuditActionContentChange, "modules", module.ID, map[string]interface{}{"title": module.Title}, meta)
	return module, nil
}

// Reorder replaces the sibling order of a course's modules. The request must
// name every module of the course exactly once; position in the list becomes
// the new order index. The whole set is rewritten in one transaction, so a
// failed reorder leaves the previous order intact.
func (s *ModuleService) Reorder(ctx context.Context, courseID int64, req ReorderRequest, claims *models.JWTClaims, meta models.LoginRequest) ([]models.Module, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "liste d'identifiants invalide")
	}

	course, err := s.loadCourse(ctx, courseID, nil)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwnership(claims, course); err != nil {
		return nil, err
	}

	currentIDs, err := s.repo.ListIDsByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération des modules")
	}

	if err := validateCompleteSet(currentIDs, req.OrderedIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "la liste doit contenir chaque module de la formation exactement une fois")
	}

	if err := s.repo.Reorder(ctx, courseID, req.OrderedIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la réorganisation des modules")
	}

	s.recordAudit(ctx, claims, models.AuditActionContentReorder, "modules", courseID, map[string]interface{}{"ordered_ids": req.OrderedIDs}, meta)

	modules, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération des modules")
	}
	return modules, nil
}

// Delete removes a module together with its chapters and their progress and
// quiz records. Sibling order indexes are left untouched; gaps are allowed
// and the relative order of survivors is preserved.
func (s *ModuleService) Delete(ctx context.Context, id int64, claims *models.JWTClaims, meta models.LoginRequest) (*DeleteModuleResult, error) {
	module, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	course, err := s.loadCourse(ctx, module.CourseID, nil)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwnership(claims, course); err != nil {
		return nil, err
	}

	removed, err := s.repo.DeleteCascade(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module introuvable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la suppression du module")
	}

	s.recordAudit(ctx, claims, models.AuditActionContentDelete, "modules", id, map[string]interface{}{"chapters_removed": removed}, meta)
	return &DeleteModuleResult{ModuleID: id, ChaptersRemoved: removed}, nil
}

func (s *ModuleService) loadCourse(ctx context.Context, courseID int64, claims *models.JWTClaims) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
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

func (s *ModuleService) authorizeOwnership(claims *models.JWTClaims, course *models.Course) error {
	if claims == nil {
		return nil
	}
	if claims.Role == models.RoleTrainer && course.TeacherID != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "cette formation appartient à un autre formateur")
	}
	return nil
}

func (s *ModuleService) recordAudit(ctx context.Context, claims *models.JWTClaims, action, resource string, resourceNum int64, payload map[string]interface{}, meta models.LoginRequest) {
	if s.audit == nil {
		return
	}
	var actorID *string
	if claims != nil {
		actorID = &claims.UserID
	}
	resourceID := fmt.Sprintf("%d", resourceNum)
	raw, _ := json.Marshal(payload)

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		NewValues:  raw,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record content audit log", zap.Error(err))
	}
}

// validateCompleteSet checks that proposed is a permutation of current: same
// length, no duplicates, no unknown IDs.
func validateCompleteSet(current, proposed []int64) error {
	if len(proposed) != len(current) {
		return fmt.Errorf("expected %d ids, got %d", len(current), len(proposed))
	}

	known := make(map[int64]bool, len(current))
	for _, id := range current {
		known[id] = true
	}

	seen := make(map[int64]bool, len(proposed))
	for _, id := range proposed {
		if !known[id] {
			return fmt.Errorf("id %d does not belong to this parent", id)
		}
		if seen[id] {
			return fmt.Errorf("id %d appears more than once", id)
		}
		seen[id] = true
	}
	return nil
}
