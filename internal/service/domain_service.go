package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/formacademy/formacademy-api/internal/models"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
)

type domainRepository interface {
	List(ctx context.Context) ([]models.Domain, error)
	FindByID(ctx context.Context, id int64) (*models.Domain, error)
	ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error)
	Create(ctx context.Context, domain *models.Domain) error
	Update(ctx context.Context, domain *models.Domain) error
	Delete(ctx context.Context, id int64) error
	CountCourses(ctx context.Context, id int64) (int, error)
}

// DomainRequest is the payload for creating or updating a domain.
type DomainRequest struct {
	Name string `json:"name" validate:"required,min=2,max=120"`
	Slug string `json:"slug" validate:"omitempty,max=140"`
}

// DomainService manages thematic domains of the catalog.
type DomainService struct {
	repo      domainRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDomainService constructs a DomainService.
func NewDomainService(repo domainRepository, validate *validator.Validate, logger *zap.Logger) *DomainService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DomainService{repo: repo, validator: validate, logger: logger}
}

// List returns every domain ordered by name.
func (s *DomainService) List(ctx context.Context) ([]models.Domain, error) {
	domains, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération des domaines")
	}
	return domains, nil
}

// Get returns a domain by ID.
func (s *DomainService) Get(ctx context.Context, id int64) (*models.Domain, error) {
	domain, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "domaine introuvable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement du domaine")
	}
	return domain, nil
}

// Create adds a new domain. The slug is derived from the name when omitted.
func (s *DomainService) Create(ctx context.Context, req DomainRequest) (*models.Domain, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "données du domaine invalides")
	}

	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Name)
	}

	exists, err := s.repo.ExistsBySlug(ctx, slug, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la vérification du slug")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "un domaine avec ce slug existe déjà")
	}

	domain := &models.Domain{Name: req.Name, Slug: slug}
	if err := s.repo.Create(ctx, domain); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la création du domaine")
	}
	return domain, nil
}

// Update renames a domain.
func (s *DomainService) Update(ctx context.Context, id int64, req DomainRequest) (*models.Domain, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "données du domaine invalides")
	}

	domain, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Name)
	}

	exists, err := s.repo.ExistsBySlug(ctx, slug, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la vérification du slug")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "un domaine avec ce slug existe déjà")
	}

	domain.Name = req.Name
	domain.Slug = slug
	if err := s.repo.Update(ctx, domain); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la mise à jour du domaine")
	}
	return domain, nil
}

// Delete removes an empty domain. A domain still referenced by courses is
// kept and the call is rejected.
func (s *DomainService) Delete(ctx context.Context, id int64) error {
	count, err := s.repo.CountCourses(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du comptage des formations")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "des formations sont rattachées à ce domaine")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "domaine introuvable")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la suppression du domaine")
	}
	return nil
}

// Slugify produces a URL-safe slug from a display name. Accented letters are
// mapped to their ASCII counterparts so French titles produce stable slugs.
func Slugify(name string) string {
	replacer := strings.NewReplacer(
		"à", "a", "â", "a", "ä", "a",
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"î", "i", "ï", "i",
		"ô", "o", "ö", "o",
		"ù", "u", "û", "u", "ü", "u",
		"ç", "c", "œ", "oe", "'", "-",
	)
	lowered := replacer.Replace(strings.ToLower(strings.TrimSpace(name)))

	var b strings.Builder
	lastDash := false
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII, unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
