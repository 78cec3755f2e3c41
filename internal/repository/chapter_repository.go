package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/formacademy/formacademy-api/internal/models"
)

// ChapterRepository handles persistence of chapters and their ordering
// within a module.
type ChapterRepository struct {
	db *sqlx.DB
}

// NewChapterRepository constructs the repository.
func NewChapterRepository(db *sqlx.DB) *ChapterRepository {
	return &ChapterRepository{db: db}
}

// ListByModule returns the chapters of a module in display order.
func (r *ChapterRepository) ListByModule(ctx context.Context, moduleID int64) ([]models.Chapter, error) {
	const query = `SELECT id, module_id, title, description, order_index, content_type, payload, created_at, updated_at
        FROM chapters WHERE module_id = $1 ORDER BY order_index ASC, id ASC`
	var chapters []models.Chapter
	if err := r.db.SelectContext(ctx, &chapters, query, moduleID); err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	return chapters, nil
}

// ListByCourse returns every chapter of a course, module order first.
func (r *ChapterRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Chapter, error) {
	const query = `SELECT ch.id, ch.module_id, ch.title, ch.description, ch.order_index, ch.content_type, ch.payload, ch.created_at, ch.updated_at
        FROM chapters ch
        JOIN modules m ON m.id = ch.module_id
        WHERE m.course_id = $1
        ORDER BY m.order_index ASC, ch.order_index ASC, ch.id ASC`
	var chapters []models.Chapter
	if err := r.db.SelectContext(ctx, &chapters, query, courseID); err != nil {
		return nil, fmt.Errorf("list course chapters: %w", err)
	}
	return chapters, nil
}

// ListIDsByModule returns the sibling id set of a module.
func (r *ChapterRepository) ListIDsByModule(ctx context.Context, moduleID int64) ([]int64, error) {
	const query = `SELECT id FROM chapters WHERE module_id = $1 ORDER BY order_index ASC, id ASC`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, moduleID); err != nil {
		return nil, fmt.Errorf("list chapter ids: %w", err)
	}
	return ids, nil
}

// FindByID returns a chapter by identifier.
func (r *ChapterRepository) FindByID(ctx context.Context, id int64) (*models.Chapter, error) {
	const query = `SELECT id, module_id, title, description, order_index, content_type, payload, created_at, updated_at FROM chapters WHERE id = $1`
	var chapter models.Chapter
	if err := r.db.GetContext(ctx, &chapter, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find chapter: %w", err)
	}
	return &chapter, nil
}

// Create appends a chapter at the end of the module order inside one
// transaction.
func (r *ChapterRepository) Create(ctx context.Context, chapter *models.Chapter) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chapter create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const nextQuery = `SELECT COALESCE(MAX(order_index) + 1, 0) FROM chapters WHERE module_id = $1`
	if err = tx.GetContext(ctx, &chapter.OrderIndex, nextQuery, chapter.ModuleID); err != nil {
		return fmt.Errorf("next chapter order index: %w", err)
	}

	now := time.Now().UTC()
	chapter.CreatedAt = now
	chapter.UpdatedAt = now
	const insertQuery = `INSERT INTO chapters (module_id, title, description, order_index, content_type, payload, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err = tx.GetContext(ctx, &chapter.ID, insertQuery,
		chapter.ModuleID, chapter.Title, chapter.Description, chapter.OrderIndex, chapter.ContentType, chapter.Payload, chapter.CreatedAt, chapter.UpdatedAt); err != nil {
		return fmt.Errorf("create chapter: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit chapter create: %w", err)
	}
	return nil
}

// Update rewrites a chapter's mutable fields.
func (r *ChapterRepository) Update(ctx context.Context, chapter *models.Chapter) error {
	chapter.UpdatedAt = time.Now().UTC()
	const query = `UPDATE chapters SET title = $2, description = $3, content_type = $4, payload = $5, updated_at = $6 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		chapter.ID, chapter.Title, chapter.Description, chapter.ContentType, chapter.Payload, chapter.UpdatedAt); err != nil {
		return fmt.Errorf("update chapter: %w", err)
	}
	return nil
}

// Reorder rewrites the order_index of every listed chapter to its position
// in the slice, atomically. Same contract as ModuleRepository.Reorder.
func (r *ChapterRepository) Reorder(ctx context.Context, moduleID int64, ids []int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chapter reorder: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const query = `UPDATE chapters SET order_index = $1, updated_at = $2 WHERE id = $3 AND module_id = $4`
	for position, id := range ids {
		var result sql.Result
		result, err = tx.ExecContext(ctx, query, position, now, id, moduleID)
		if err != nil {
			return fmt.Errorf("reorder chapter %d: %w", id, err)
		}
		if affected, raErr := result.RowsAffected(); raErr == nil && affected == 0 {
			err = fmt.Errorf("chapter %d does not belong to module %d", id, moduleID)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit chapter reorder: %w", err)
	}
	return nil
}

// DeleteCascade removes a chapter with its quiz data and progress rows
// inside one transaction.
func (r *ChapterRepository) DeleteCascade(ctx context.Context, id int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chapter delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	statements := []string{
		`DELETE FROM quiz_attempts WHERE chapter_id = $1`,
		`DELETE FROM chapter_progress WHERE chapter_id = $1`,
		`DELETE FROM quiz_questions WHERE chapter_id = $1`,
	}
	for _, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("cascade chapter delete: %w", err)
		}
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx, `DELETE FROM chapters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	if affected, raErr := result.RowsAffected(); raErr == nil && affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit chapter delete: %w", err)
	}
	return nil
}
