package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/formacademy/formacademy-api/internal/models"
)

// CourseRepository handles persistence of courses, the root of the content
// hierarchy.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses filtered by the provided criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	base := `FROM courses c
LEFT JOIN domains d ON d.id = c.domain_id
LEFT JOIN users u ON u.id = c.teacher_id`
	var conditions []string
	var args []interface{}

	if filter.DomainID > 0 {
		conditions = append(conditions, fmt.Sprintf("c.domain_id = $%d", len(args)+1))
		args = append(args, filter.DomainID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("c.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.title) LIKE $%d OR LOWER(c.description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"title":      "c.title",
		"created_at": "c.created_at",
		"domain":     "d.name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.title, c.slug, c.description, c.domain_id, c.teacher_id, c.active, c.created_at, c.updated_at,
        COALESCE(d.name, '') AS domain_name, COALESCE(u.full_name, '') AS teacher_name,
        (SELECT COUNT(*) FROM modules m WHERE m.course_id = c.id) AS module_count,
        (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS enrollment_count
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	const query = `SELECT id, title, slug, description, domain_id, teacher_id, active, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// FindBySlug returns a course by its unique slug.
func (r *CourseRepository) FindBySlug(ctx context.Context, slug string) (*models.Course, error) {
	const query = `SELECT id, title, slug, description, domain_id, teacher_id, active, created_at, updated_at FROM courses WHERE slug = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by slug: %w", err)
	}
	return &course, nil
}

// ExistsBySlug checks slug uniqueness, optionally excluding one id.
func (r *CourseRepository) ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error) {
	query := `SELECT 1 FROM courses WHERE slug = $1`
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
		return false, fmt.Errorf("check course slug: %w", err)
	}
	return true, nil
}

// Create persists a new course and fills the generated id.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (title, slug, description, domain_id, teacher_id, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := r.db.GetContext(ctx, &course.ID, query,
		course.Title, course.Slug, course.Description, course.DomainID, course.TeacherID, course.Active, course.CreatedAt, course.UpdatedAt); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update rewrites a course's mutable fields.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = $2, slug = $3, description = $4, domain_id = $5, teacher_id = $6, active = $7, updated_at = $8 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		course.ID, course.Title, course.Slug, course.Description, course.DomainID, course.TeacherID, course.Active, course.UpdatedAt); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// CountEnrollments returns the number of enrollments referencing a course.
func (r *CourseRepository) CountEnrollments(ctx context.Context, id int64) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count course enrollments: %w", err)
	}
	return count, nil
}

// DeleteCascade removes a course and its whole subtree (modules, chapters,
// quiz data, progress, certificates and any remaining enrollments) inside a
// single transaction, so no half-deleted hierarchy is ever observable.
func (r *CourseRepository) DeleteCascade(ctx context.Context, id int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin course delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	statements := []string{
		`DELETE FROM quiz_attempts WHERE chapter_id IN (
            SELECT ch.id FROM chapters ch JOIN modules m ON m.id = ch.module_id WHERE m.course_id = $1)`,
		`DELETE FROM chapter_progress WHERE chapter_id IN (
            SELECT ch.id FROM chapters ch JOIN modules m ON m.id = ch.module_id WHERE m.course_id = $1)`,
		`DELETE FROM quiz_questions WHERE chapter_id IN (
            SELECT ch.id FROM chapters ch JOIN modules m ON m.id = ch.module_id WHERE m.course_id = $1)`,
		`DELETE FROM chapters WHERE module_id IN (SELECT id FROM modules WHERE course_id = $1)`,
		`DELETE FROM modules WHERE course_id = $1`,
		`DELETE FROM certificates WHERE course_id = $1`,
		`DELETE FROM enrollments WHERE course_id = $1`,
	}
	for _, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("cascade course delete: %w", err)
		}
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if affected, raErr := result.RowsAffected(); raErr == nil && affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit course delete: %w", err)
	}
	return nil
}
