package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/formacademy/formacademy-api/internal/models"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
)

type dashboardStatsRepository interface {
	AdminDashboard(ctx context.Context) (*models.AdminDashboard, error)
	TrainerCourseStats(ctx context.Context, trainerID string) ([]models.TrainerCourseStats, error)
}

type dashboardEnrollmentLister interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type dashboardProgressReader interface {
	CourseCounts(ctx context.Context, studentID string, courseID int64) (int, int, error)
}

// DashboardService assembles role-specific dashboards. Results are cached
// for a short TTL since the underlying counters are expensive aggregates.
type DashboardService struct {
	stats       dashboardStatsRepository
	enrollments dashboardEnrollmentLister
	progress    dashboardProgressReader
	cache       *CacheService
	ttl         time.Duration
	logger      *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(stats dashboardStatsRepository, enrollments dashboardEnrollmentLister, progress dashboardProgressReader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &DashboardService{stats: stats, enrollments: enrollments, progress: progress, cache: cache, ttl: ttl, logger: logger}
}

// Admin returns the platform-wide dashboard.
func (s *DashboardService) Admin(ctx context.Context) (*models.AdminDashboard, error) {
	const key = "dashboard:admin"

	var cached models.AdminDashboard
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	dashboard, err := s.stats.AdminDashboard(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du calcul du tableau de bord")
	}

	if err := s.cache.Set(ctx, key, dashboard, s.ttl); err != nil {
		s.logger.Warn("failed to cache admin dashboard", zap.Error(err))
	}
	return dashboard, nil
}

// Trainer returns per-course activity for one trainer.
func (s *DashboardService) Trainer(ctx context.Context, trainerID string) (*models.TrainerDashboard, error) {
	key := fmt.Sprintf("dashboard:trainer:%s", trainerID)

	var cached models.TrainerDashboard
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	stats, err := s.stats.TrainerCourseStats(ctx, trainerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du calcul du tableau de bord")
	}

	dashboard := &models.TrainerDashboard{Courses: stats}
	if err := s.cache.Set(ctx, key, dashboard, s.ttl); err != nil {
		s.logger.Warn("failed to cache trainer dashboard", zap.Error(err))
	}
	return dashboard, nil
}

// Student returns progress across every course the student is enrolled in.
func (s *DashboardService) Student(ctx context.Context, studentID string) (*models.StudentDashboard, error) {
	key := fmt.Sprintf("dashboard:student:%s", studentID)

	var cached models.StudentDashboard
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	enrollments, _, err := s.enrollments.List(ctx, models.EnrollmentFilter{StudentID: studentID, PageSize: 200})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération des inscriptions")
	}

	dashboard := &models.StudentDashboard{Courses: make([]models.StudentCourseProgress, 0, len(enrollments))}
	for _, e := range enrollments {
		total, completed, err := s.progress.CourseCounts(ctx, studentID, e.CourseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du calcul de la progression")
		}

		entry := models.StudentCourseProgress{
			CourseID:          e.CourseID,
			CourseTitle:       e.CourseTitle,
			CourseSlug:        e.CourseSlug,
			TotalChapters:     total,
			CompletedChapters: completed,
			Completed:         e.CompletedAt != nil,
		}
		if total > 0 {
			entry.Percentage = float64(completed) / float64(total) * 100
		}
		dashboard.Courses = append(dashboard.Courses, entry)
	}

	if err := s.cache.Set(ctx, key, dashboard, s.ttl); err != nil {
		s.logger.Warn("failed to cache student dashboard", zap.Error(err))
	}
	return dashboard, nil
}

// InvalidateStudent drops the cached dashboard after progress changes.
func (s *DashboardService) InvalidateStudent(ctx context.Context, studentID string) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("dashboard:student:%s", studentID)); err != nil {
		s.logger.Warn("failed to invalidate student dashboard cache", zap.Error(err))
	}
}

// InvalidateCourseStats drops the cached admin and trainer dashboards after
// enrollments or completion counts change.
func (s *DashboardService) InvalidateCourseStats(ctx context.Context) {
	for _, pattern := range []string{"dashboard:admin", "dashboard:trainer:*"} {
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			s.logger.Warn("failed to invalidate dashboard cache", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}
