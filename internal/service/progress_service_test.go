package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formacademy/formacademy-api/internal/models"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
)

type mockProgressRepo struct {
	marked    []int64
	total     int
	completed int
	modules   []models.ModuleChapterCount
}

func (m *mockProgressRepo) MarkCompleted(_ context.Context, _ string, chapterID int64) error {
	m.marked = append(m.marked, chapterID)
	return nil
}

func (m *mockProgressRepo) CourseCounts(_ context.Context, _ string, _ int64) (int, int, error) {
	return m.total, m.completed, nil
}

func (m *mockProgressRepo) ModuleCounts(_ context.Context, _ string, _ int64) ([]models.ModuleChapterCount, error) {
	return m.modules, nil
}

func (m *mockProgressRepo) CompletedChapterIDs(_ context.Context, _ string, _ int64) ([]int64, error) {
	return m.marked, nil
}

type mockEnrollmentLookup struct {
	enrollment     *models.Enrollment
	completedID    string
	completedCalls int
}

func (m *mockEnrollmentLookup) FindByStudentAndCourse(_ context.Context, _ string, _ int64) (*models.Enrollment, error) {
	if m.enrollment == nil {
		return nil, sql.ErrNoRows
	}
	return m.enrollment, nil
}

func (m *mockEnrollmentLookup) MarkCompleted(_ context.Context, id string, _ time.Time) error {
	m.completedCalls++
	m.completedID = id
	return nil
}

type recordingListener struct {
	courseIDs []int64
}

func (r *recordingListener) OnCourseCompleted(_ context.Context, _ string, courseID int64) {
	r.courseIDs = append(r.courseIDs, courseID)
}

func newProgressFixture() (*ProgressService, *mockProgressRepo, *mockEnrollmentLookup, *recordingListener) {
	repo := &mockProgressRepo{total: 5, completed: 1}
	enrollments := &mockEnrollmentLookup{enrollment: &models.Enrollment{ID: "enr-1", StudentID: "student-1", CourseID: 10}}
	chapters := &stubChapterLookup{chapters: map[int64]*models.Chapter{
		30: {ID: 30, ModuleID: 5, Title: "Lecture", ContentType: models.ContentTypeText},
		31: {ID: 31, ModuleID: 5, Title: "Quiz", ContentType: models.ContentTypeQuiz},
	}}
	modules := &stubModuleLookup{modules: map[int64]*models.Module{
		5: {ID: 5, CourseID: 10},
	}}
	listener := &recordingListener{}
	svc := NewProgressService(repo, enrollments, chapters, modules, listener, zap.NewNop())
	return svc, repo, enrollments, listener
}

func TestProgressServiceMarkChapterCompleted(t *testing.T) {
	svc, repo, enrollments, listener := newProgressFixture()

	progress, err := svc.MarkChapterCompleted(context.Background(), "student-1", 30)
	require.NoError(t, err)

	assert.Equal(t, []int64{30}, repo.marked)
	assert.Equal(t, int64(10), progress.CourseID)
	assert.InDelta(t, 20.0, progress.Percentage, 0.01)
	assert.Zero(t, enrollments.completedCalls)
	assert.Empty(t, listener.courseIDs)
}

func TestProgressServiceMarkChapterCompletedRejectsAssessable(t *testing.T) {
	svc, repo, _, _ := newProgressFixture()

	_, err := svc.MarkChapterCompleted(context.Background(), "student-1", 31)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.marked)
}

func TestProgressServiceMarkChapterCompletedRequiresEnrollment(t *testing.T) {
	svc, repo, enrollments, _ := newProgressFixture()
	enrollments.enrollment = nil

	_, err := svc.MarkChapterCompleted(context.Background(), "student-1", 30)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.marked)
}

func TestProgressServiceLastChapterCompletesCourse(t *testing.T) {
	svc, repo, enrollments, listener := newProgressFixture()
	repo.total = 5
	repo.completed = 5

	progress, err := svc.MarkChapterCompleted(context.Background(), "student-1", 30)
	require.NoError(t, err)

	assert.InDelta(t, 100.0, progress.Percentage, 0.01)
	assert.Equal(t, 1, enrollments.completedCalls)
	assert.Equal(t, "enr-1", enrollments.completedID)
	assert.Equal(t, []int64{10}, listener.courseIDs)
}

func TestProgressServiceAlreadyCompletedCourseDoesNotNotifyAgain(t *testing.T) {
	svc, repo, enrollments, listener := newProgressFixture()
	repo.total = 5
	repo.completed = 5
	done := time.Now().UTC()
	enrollments.enrollment.CompletedAt = &done

	_, err := svc.MarkChapterCompleted(context.Background(), "student-1", 30)
	require.NoError(t, err)
	assert.Zero(t, enrollments.completedCalls)
	assert.Empty(t, listener.courseIDs)
}

func TestProgressServiceCompleteAssessedChapter(t *testing.T) {
	svc, repo, _, _ := newProgressFixture()

	chapter := &models.Chapter{ID: 31, ModuleID: 5, ContentType: models.ContentTypeQuiz}
	_, err := svc.CompleteAssessedChapter(context.Background(), "student-1", chapter)
	require.NoError(t, err)
	assert.Equal(t, []int64{31}, repo.marked)
}

func TestProgressServiceCourseProgressPerModule(t *testing.T) {
	svc, repo, _, _ := newProgressFixture()
	repo.modules = []models.ModuleChapterCount{
		{ModuleID: 5, ModuleTitle: "Bases", Total: 4, Completed: 2},
		{ModuleID: 6, ModuleTitle: "Avancé", Total: 2, Completed: 0},
	}

	progress, err := svc.CourseProgress(context.Background(), "student-1", 10)
	require.NoError(t, err)

	require.Len(t, progress.Modules, 2)
	assert.InDelta(t, 50.0, progress.Modules[0].Percentage, 0.01)
	assert.Zero(t, progress.Modules[1].Percentage)
	assert.Equal(t, 6, progress.TotalChapters)
	assert.Equal(t, 2, progress.CompletedChapters)
	assert.InDelta(t, 33.33, progress.Percentage, 0.01)
}
