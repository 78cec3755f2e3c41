package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/formacademy/formacademy-api/internal/models"
)

// DomainRepository handles persistence of course domains.
type DomainRepository struct {
	db *sqlx.DB
}

// NewDomainRepository constructs the repository.
func NewDomainRepository(db *sqlx.DB) *DomainRepository {
	return &DomainRepository{db: db}
}

// List returns all domains ordered by name.
func (r *DomainRepository) List(ctx context.Context) ([]models.Domain, error) {
	const query = `SELECT id, name, slug, created_at, updated_at FROM domains ORDER BY name ASC`
	var domains []models.Domain
	if err := r.db.SelectContext(ctx, &domains, query); err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	return domains, nil
}

// FindByID returns a domain by identifier.
func (r *DomainRepository) FindByID(ctx context.Context, id int64) (*models.Domain, error) {
	const query = `SELECT id, name, slug, created_at, updated_at FROM domains WHERE id = $1`
	var domain models.Domain
	if err := r.db.GetContext(ctx, &domain, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find domain: %w", err)
	}
	return &domain, nil
}

// ExistsBySlug checks slug uniqueness, optionally excluding one id.
func (r *DomainRepository) ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error) {
	query := `SELECT 1 FROM domains WHERE slug = $1`
	args := []interface{}{slug}
	if excludeID > 0 {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += ` LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check domain slug: %w", err)
	}
	return true, nil
}

// Create persists a new domain and fills the generated id.
func (r *DomainRepository) Create(ctx context.Context, domain *models.Domain) error {
	now := time.Now().UTC()
	domain.CreatedAt = now
	domain.UpdatedAt = now
	const query = `INSERT INTO domains (name, slug, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &domain.ID, query, domain.Name, domain.Slug, domain.CreatedAt, domain.UpdatedAt); err != nil {
		return fmt.Errorf("create domain: %w", err)
	}
	return nil
}

// Update rewrites a domain's mutable fields.
func (r *DomainRepository) Update(ctx context.Context, domain *models.Domain) error {
	domain.UpdatedAt = time.Now().UTC()
	const query = `UPDATE domains SET name = $2, slug = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, domain.ID, domain.Name, domain.Slug, domain.UpdatedAt); err != nil {
		return fmt.Errorf("update domain: %w", err)
	}
	return nil
}

// Delete removes a domain. Courses referencing it block the delete at the
// database level.
func (r *DomainRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM domains WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete domain: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountCourses returns the number of courses attached to a domain.
func (r *DomainRepository) CountCourses(ctx context.Context, id int64) (int, error) {
	const query = `SELECT COUNT(*) FROM courses WHERE domain_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count domain courses: %w", err)
	}
	return count, nil
}
