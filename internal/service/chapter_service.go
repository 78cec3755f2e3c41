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

type chapterRepository interface {
	ListByModule(ctx context.Context, moduleID int64) ([]models.Chapter, error)
	ListIDsByModule(ctx context.Context, moduleID int64) ([]int64, error)
	FindByID(ctx context.Context, id int64) (*models.Chapter, error)
	Create(ctx context.Context, chapter *models.Chapter) error
	Update(ctx context.Context, chapter *models.Chapter) error
	Reorder(ctx context.Context, moduleID int64, ids []int64) error
	DeleteCascade(ctx context.Context, id int64) error
}

type chapterModuleLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Module, error)
}

// ChapterRequest is the payload for creating or updating a chapter.
type ChapterRequest struct {
	Title       string                    `json:"title" validate:"required,min=2,max=200"`
	Description string                    `json:"description"`
	ContentType models.ChapterContentType `json:"content_type" validate:"required"`
	Payload     json.RawMessage           `json:"payload"`
}

// ChapterService manages chapters within a module.
type ChapterService struct {
	repo      chapterRepository
	modules   chapterModuleLookup
	courses   moduleCourseLookup
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChapterService constructs a ChapterService.
func NewChapterService(repo chapterRepository, modules chapterModuleLookup, courses moduleCourseLookup, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *ChapterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ChapterService{repo: repo, modules: modules, courses: courses, audit: audit, validator: validate, logger: logger}
}

// ListByModule returns the ordered chapters of a module.
func (s *ChapterService) ListByModule(ctx context.Context, moduleID int64, claims *models.JWTClaims) ([]models.Chapter, error) {
	if _, _, err := s.loadHierarchy(ctx, moduleID, claims); err != nil {
		return nil, err
	}

	chapters, err := s.repo.ListByModule(ctx, moduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération des chapitres")
	}
	return chapters, nil
}

// Get returns a chapter by ID.
func (s *ChapterService) Get(ctx context.Context, id int64) (*models.Chapter, error) {
	chapter, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "chapitre introuvable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement du chapitre")
	}
	return chapter, nil
}

// Create appends a chapter at the end of the module's chapter list. The
// payload must match the declared content type.
func (s *ChapterService) Create(ctx context.Context, moduleID int64, req ChapterRequest, claims *models.JWTClaims, meta models.LoginRequest) (*models.Chapter, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "données du chapitre invalides")
	}
	if err := s.validatePayload(req.ContentType, req.Payload); err != nil {
		return nil, err
	}

	_, course, err := s.loadHierarchy(ctx, moduleID, nil)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwnership(claims, course); err != nil {
		return nil, err
	}

	chapter := &models.Chapter{
		ModuleID:    moduleID,
		Title:       req.Title,
		Description: req.Description,
		ContentType: req.ContentType,
		Payload:     req.Payload,
	}

	if err := s.repo.Create(ctx, chapter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la création du chapitre")
	}

	s.recordAudit(ctx, claims, models.AuditActionContentChange, chapter.ID, map[string]interface{}{"title": chapter.Title, "module_id": moduleID, "content_type": chapter.ContentType}, meta)
	return chapter, nil
}

// Update modifies a chapter. Order is changed through Reorder only.
func (s *ChapterService) Update(ctx context.Context, id int64, req ChapterRequest, claims *models.JWTClaims, meta models.LoginRequest) (*models.Chapter, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "données du chapitre invalides")
	}
	if err := s.validatePayload(req.ContentType, req.Payload); err != nil {
		return nil, err
	}

	chapter, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	_, course, err := s.loadHierarchy(ctx, chapter.ModuleID, nil)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwnership(claims, course); err != nil {
		return nil, err
	}

	chapter.Title = req.Title
	chapter.Description = req.Description
	chapter.ContentType = req.ContentType
	chapter.Payload = req.Payload

	if err := s.repo.Update(ctx, chapter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la mise à jour du chapitre")
	}

	s.recordAudit(ctx, claims, models.AuditActionContentChange, chapter.ID, map[string]interface{}{"title": chapter.Title, "content_type": chapter.ContentType}, meta)
	return chapter, nil
}

// Reorder replaces the sibling order of a module's chapters. The request must
// name every chapter of the module exactly once.
func (s *ChapterService) Reorder(ctx context.Context, moduleID int64, req ReorderRequest, claims *models.JWTClaims, meta models.LoginRequest) ([]models.Chapter, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "liste d'identifiants invalide")
	}

	_, course, err := s.loadHierarchy(ctx, moduleID, nil)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwnership(claims, course); err != nil {
		return nil, err
	}

	currentIDs, err := s.repo.ListIDsByModule(ctx, moduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération des chapitres")
	}

	if err := validateCompleteSet(currentIDs, req.OrderedIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "la liste doit contenir chaque chapitre du module exactement une fois")
	}

	if err := s.repo.Reorder(ctx, moduleID, req.OrderedIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la réorganisation des chapitres")
	}

	s.recordAudit(ctx, claims, models.AuditActionContentReorder, moduleID, map[string]interface{}{"ordered_ids": req.OrderedIDs}, meta)

	chapters, err := s.repo.ListByModule(ctx, moduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération des chapitres")
	}
	return chapters, nil
}

// Delete removes a chapter along with its progress records, quiz questions
// and quiz attempts.
func (s *ChapterService) Delete(ctx context.Context, id int64, claims *models.JWTClaims, meta models.LoginRequest) error {
	chapter, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	_, course, err := s.loadHierarchy(ctx, chapter.ModuleID, nil)
	if err != nil {
		return err
	}
	if err := s.authorizeOwnership(claims, course); err != nil {
		return err
	}

	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "chapitre introuvable")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la suppression du chapitre")
	}

	s.recordAudit(ctx, claims, models.AuditActionContentDelete, id, map[string]interface{}{"title": chapter.Title}, meta)
	return nil
}

func (s *ChapterService) validatePayload(contentType models.ChapterContentType, payload json.RawMessage) error {
	if !models.ValidContentType(contentType) {
		return appErrors.Clone(appErrors.ErrValidation, "type de contenu inconnu")
	}

	switch contentType {
	case models.ContentTypeText:
		var p models.TextPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "contenu texte invalide")
		}
		if err := s.validator.Struct(p); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "contenu texte invalide")
		}
	case models.ContentTypeVideo:
		var p models.VideoPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "contenu vidéo invalide")
		}
		if err := s.validator.Struct(p); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "contenu vidéo invalide")
		}
	default:
		if len(payload) == 0 {
			return nil
		}
		var p models.AssessmentPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "paramètres d'évaluation invalides")
		}
		if err := s.validator.Struct(p); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "paramètres d'évaluation invalides")
		}
	}
	return nil
}

func (s *ChapterService) loadHierarchy(ctx context.Context, moduleID int64, claims *models.JWTClaims) (*models.Module, *models.Course, error) {
	module, err := s.modules.FindByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "module introuvable")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement du module")
	}

	course, err := s.courses.FindByID(ctx, module.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "formation introuvable")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement de la formation")
	}

	if claims != nil && claims.Role == models.RoleStudent && !course.Active {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "formation introuvable")
	}

	return module, course, nil
}

func (s *ChapterService) authorizeOwnership(claims *models.JWTClaims, course *models.Course) error {
	if claims == nil {
		return nil
	}
	if claims.Role == models.RoleTrainer && course.TeacherID != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "cette formation appartient à un autre formateur")
	}
	return nil
}

func (s *ChapterService) recordAudit(ctx context.Context, claims *models.JWTClaims, action string, resourceNum int64, payload map[string]interface{}, meta models.LoginRequest) {
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
		Resource:   "chapters",
		ResourceID: &resourceID,
		NewValues:  raw,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record chapter audit log", zap.Error(err))
	}
}
