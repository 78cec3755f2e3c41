package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/formacademy/formacademy-api/internal/models"
)

// ProgressRepository handles chapter completion tracking.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs the repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// MarkCompleted records completion of a chapter by a student. Repeated
// completions are idempotent.
func (r *ProgressRepository) MarkCompleted(ctx context.Context, studentID string, chapterID int64) error {
	const query = `INSERT INTO chapter_progress (student_id, chapter_id, completed_at)
        VALUES ($1, $2, $3) ON CONFLICT (student_id, chapter_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, studentID, chapterID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark chapter completed: %w", err)
	}
	return nil
}

// CourseCounts returns total and completed chapter counts for a student in
// a course.
func (r *ProgressRepository) CourseCounts(ctx context.Context, studentID string, courseID int64) (total, completed int, err error) {
	const query = `SELECT
        COUNT(ch.id) AS total,
        COUNT(cp.chapter_id) AS completed
        FROM chapters ch
        JOIN modules m ON m.id = ch.module_id
        LEFT JOIN chapter_progress cp ON cp.chapter_id = ch.id AND cp.student_id = $1
        WHERE m.course_id = $2`
	row := struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
	}{}
	if err := r.db.GetContext(ctx, &row, query, studentID, courseID); err != nil {
		return 0, 0, fmt.Errorf("course progress counts: %w", err)
	}
	return row.Total, row.Completed, nil
}

// ModuleCounts returns per-module chapter tallies for a student in a course,
// in module display order.
func (r *ProgressRepository) ModuleCounts(ctx context.Context, studentID string, courseID int64) ([]models.ModuleChapterCount, error) {
	const query = `SELECT
        m.id AS module_id,
        m.title AS module_title,
        COUNT(ch.id) AS total,
        COUNT(cp.chapter_id) AS completed
        FROM modules m
        LEFT JOIN chapters ch ON ch.module_id = m.id
        LEFT JOIN chapter_progress cp ON cp.chapter_id = ch.id AND cp.student_id = $1
        WHERE m.course_id = $2
        GROUP BY m.id, m.title, m.order_index
        ORDER BY m.order_index ASC`
	var counts []models.ModuleChapterCount
	if err := r.db.SelectContext(ctx, &counts, query, studentID, courseID); err != nil {
		return nil, fmt.Errorf("module progress counts: %w", err)
	}
	return counts, nil
}

// CompletedChapterIDs returns the chapters a student has completed in a course.
func (r *ProgressRepository) CompletedChapterIDs(ctx context.Context, studentID string, courseID int64) ([]int64, error) {
	const query = `SELECT cp.chapter_id
        FROM chapter_progress cp
        JOIN chapters ch ON ch.id = cp.chapter_id
        JOIN modules m ON m.id = ch.module_id
        WHERE cp.student_id = $1 AND m.course_id = $2`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, studentID, courseID); err != nil {
		return nil, fmt.Errorf("completed chapter ids: %w", err)
	}
	return ids, nil
}
