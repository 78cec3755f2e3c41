package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formacademy/formacademy-api/internal/models"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
)

type memoryCacheRepo struct {
	entries  map[string][]byte
	patterns []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (r *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.entries[key] = raw
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	r.patterns = append(r.patterns, pattern)
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		for key := range r.entries {
			if strings.HasPrefix(key, prefix) {
				delete(r.entries, key)
			}
		}
		return nil
	}
	delete(r.entries, pattern)
	return nil
}

type stubDashboardStats struct {
	adminCalls   int
	trainerCalls int
}

func (s *stubDashboardStats) AdminDashboard(context.Context) (*models.AdminDashboard, error) {
	s.adminCalls++
	return &models.AdminDashboard{TotalUsers: 12, TotalCourses: 3}, nil
}

func (s *stubDashboardStats) TrainerCourseStats(context.Context, string) ([]models.TrainerCourseStats, error) {
	s.trainerCalls++
	return nil, nil
}

type stubDashboardEnrollments struct{}

func (stubDashboardEnrollments) List(context.Context, models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

type stubDashboardProgress struct{}

func (stubDashboardProgress) CourseCounts(context.Context, string, int64) (int, int, error) {
	return 0, 0, nil
}

func newDashboardFixture() (*DashboardService, *stubDashboardStats, *memoryCacheRepo) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	stats := &stubDashboardStats{}
	svc := NewDashboardService(stats, stubDashboardEnrollments{}, stubDashboardProgress{}, cache, time.Minute, nil)
	return svc, stats, repo
}

func TestDashboardServiceAdminUsesCache(t *testing.T) {
	svc, stats, _ := newDashboardFixture()

	first, err := svc.Admin(context.Background())
	require.NoError(t, err)
	second, err := svc.Admin(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, stats.adminCalls)
}

func TestDashboardServiceInvalidateCourseStats(t *testing.T) {
	svc, stats, repo := newDashboardFixture()

	_, err := svc.Admin(context.Background())
	require.NoError(t, err)
	_, err = svc.Trainer(context.Background(), "trainer-1")
	require.NoError(t, err)
	require.Contains(t, repo.entries, "dashboard:admin")
	require.Contains(t, repo.entries, "dashboard:trainer:trainer-1")

	svc.InvalidateCourseStats(context.Background())

	assert.ElementsMatch(t, []string{"dashboard:admin", "dashboard:trainer:*"}, repo.patterns)
	assert.NotContains(t, repo.entries, "dashboard:admin")
	assert.NotContains(t, repo.entries, "dashboard:trainer:trainer-1")

	_, err = svc.Admin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.adminCalls)
}
