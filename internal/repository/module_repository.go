package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/formacademy/formacademy-api/internal/models"
)

// ModuleRepository handles persistence of course modules and their ordering.
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository constructs the repository.
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// ListByCourse returns the modules of a course in display order.
func (r *ModuleRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Module, error) {
	const query = `SELECT id, course_id, title, description, order_index, created_at, updated_at
        FROM modules WHERE course_id = $1 ORDER BY order_index ASC, id ASC`
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query, courseID); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

// ListIDsByCourse returns the sibling id set of a course.
func (r *ModuleRepository) ListIDsByCourse(ctx context.Context, courseID int64) ([]int64, error) {
	const query = `SELECT id FROM modules WHERE course_id = $1 ORDER BY order_index ASC, id ASC`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list module ids: %w", err)
	}
	return ids, nil
}

// FindByID returns a module by identifier.
func (r *ModuleRepository) FindByID(ctx context.Context, id int64) (*models.Module, error) {
	const query = `SELECT id, course_id, title, description, order_index, created_at, updated_at FROM modules WHERE id = $1`
	var module models.Module
	if err := r.db.GetContext(ctx, &module, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find module: %w", err)
	}
	return &module, nil
}

// Create appends a module at the end of the course order. The next order
// index is computed and the row inserted inside one transaction so two
// concurrent creates cannot claim the same position.
func (r *ModuleRepository) Create(ctx context.Context, module *models.Module) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin module create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const nextQuery = `SELECT COALESCE(MAX(order_index) + 1, 0) FROM modules WHERE course_id = $1`
	if err = tx.GetContext(ctx, &module.OrderIndex, nextQuery, module.CourseID); err != nil {
		return fmt.Errorf("next module order index: %w", err)
	}

	now := time.Now().UTC()
	module.CreatedAt = now
	module.UpdatedAt = now
	const insertQuery = `INSERT INTO modules (course_id, title, description, order_index, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err = tx.GetContext(ctx, &module.ID, insertQuery,
		module.CourseID, module.Title, module.Description, module.OrderIndex, module.CreatedAt, module.UpdatedAt); err != nil {
		return fmt.Errorf("create module: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit module create: %w", err)
	}
	return nil
}

// Update rewrites a module's mutable fields (title, description).
func (r *ModuleRepository) Update(ctx context.Context, module *models.Module) error {
	module.UpdatedAt = time.Now().UTC()
	const query = `UPDATE modules SET title = $2, description = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, module.ID, module.Title, module.Description, module.UpdatedAt); err != nil {
		return fmt.Errorf("update module: %w", err)
	}
	return nil
}

// Reorder rewrites the order_index of every listed module to its position
// in the slice, atomically. Callers must have validated that ids is exactly
// the sibling set of courseID; the per-row course_id guard below keeps a
// stray id from touching another course even so.
func (r *ModuleRepository) Reorder(ctx context.Context, courseID int64, ids []int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin module reorder: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const query = `UPDATE modules SET order_index = $1, updated_at = $2 WHERE id = $3 AND course_id = $4`
	for position, id := range ids {
		var result sql.Result
		result, err = tx.ExecContext(ctx, query, position, now, id, courseID)
		if err != nil {
			return fmt.Errorf("reorder module %d: %w", id, err)
		}
		if affected, raErr := result.RowsAffected(); raErr == nil && affected == 0 {
			err = fmt.Errorf("module %d does not belong to course %d", id, courseID)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit module reorder: %w", err)
	}
	return nil
}

// CountChapters returns the number of chapters under a module.
func (r *ModuleRepository) CountChapters(ctx context.Context, id int64) (int, error) {
	const query = `SELECT COUNT(*) FROM chapters WHERE module_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count module chapters: %w", err)
	}
	return count, nil
}

// DeleteCascade removes a module and its subtree (chapters, their quiz data
// and progress rows) inside one transaction, returning the number of
// chapters that were removed with it.
func (r *ModuleRepository) DeleteCascade(ctx context.Context, id int64) (chaptersRemoved int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin module delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const countQuery = `SELECT COUNT(*) FROM chapters WHERE module_id = $1`
	if err = tx.GetContext(ctx, &chaptersRemoved, countQuery, id); err != nil {
		return 0, fmt.Errorf("count chapters for delete: %w", err)
	}

	statements := []string{
		`DELETE FROM quiz_attempts WHERE chapter_id IN (SELECT id FROM chapters WHERE module_id = $1)`,
		`DELETE FROM chapter_progress WHERE chapter_id IN (SELECT id FROM chapters WHERE module_id = $1)`,
		`DELETE FROM quiz_questions WHERE chapter_id IN (SELECT id FROM chapters WHERE module_id = $1)`,
		`DELETE FROM chapters WHERE module_id = $1`,
	}
	for _, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt, id); err != nil {
			return 0, fmt.Errorf("cascade module delete: %w", err)
		}
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx, `DELETE FROM modules WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete module: %w", err)
	}
	if affected, raErr := result.RowsAffected(); raErr == nil && affected == 0 {
		err = sql.ErrNoRows
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit module delete: %w", err)
	}
	return chaptersRemoved, nil
}
