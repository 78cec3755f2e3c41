package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/formacademy/formacademy-api/internal/models"
)

const (
	adminDashboardQuery = `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM users WHERE role = 'STUDENT') AS total_students,
			(SELECT COUNT(*) FROM users WHERE role = 'TRAINER') AS total_trainers,
			(SELECT COUNT(*) FROM courses) AS total_courses,
			(SELECT COUNT(*) FROM courses WHERE active = TRUE) AS active_courses,
			(SELECT COUNT(*) FROM enrollments) AS total_enrollments,
			(SELECT COUNT(*) FROM enrollments WHERE completed_at IS NOT NULL) AS completed_enrollments,
			(SELECT COUNT(*) FROM certificates) AS issued_certificates`

	trainerCourseStatsQuery = `
		SELECT c.id AS course_id,
		       c.title AS course_title,
		       c.active,
		       (SELECT COUNT(*) FROM modules m WHERE m.course_id = c.id) AS module_count,
		       (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS enrollment_count,
		       (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id AND e.completed_at IS NOT NULL) AS completed_count
		FROM courses c
		WHERE c.teacher_id = $1
		ORDER BY c.title`
)

type adminDashboardRow struct {
	TotalUsers           int `db:"total_users"`
	TotalStudents        int `db:"total_students"`
	TotalTrainers        int `db:"total_trainers"`
	TotalCourses         int `db:"total_courses"`
	ActiveCourses        int `db:"active_courses"`
	TotalEnrollments     int `db:"total_enrollments"`
	CompletedEnrollments int `db:"completed_enrollments"`
	IssuedCertificates   int `db:"issued_certificates"`
}

// StatsRepository aggregates counters used by the dashboard endpoints.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs a stats repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// AdminDashboard collects platform-wide counters in a single round trip.
func (r *StatsRepository) AdminDashboard(ctx context.Context) (*models.AdminDashboard, error) {
	var row adminDashboardRow
	if err := r.db.GetContext(ctx, &row, adminDashboardQuery); err != nil {
		return nil, fmt.Errorf("query admin dashboard: %w", err)
	}

	return &models.AdminDashboard{
		TotalUsers:           row.TotalUsers,
		TotalStudents:        row.TotalStudents,
		TotalTrainers:        row.TotalTrainers,
		TotalCourses:         row.TotalCourses,
		ActiveCourses:        row.ActiveCourses,
		TotalEnrollments:     row.TotalEnrollments,
		CompletedEnrollments: row.CompletedEnrollments,
		IssuedCertificates:   row.IssuedCertificates,
	}, nil
}

// TrainerCourseStats collects per-course counters for one trainer.
func (r *StatsRepository) TrainerCourseStats(ctx context.Context, trainerID string) ([]models.TrainerCourseStats, error) {
	stats := []models.TrainerCourseStats{}
	if err := r.db.SelectContext(ctx, &stats, trainerCourseStatsQuery, trainerID); err != nil {
		return nil, fmt.Errorf("query trainer course stats: %w", err)
	}
	return stats, nil
}
