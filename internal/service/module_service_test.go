package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formacademy/formacademy-api/internal/models"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
)

type mockModuleRepo struct {
	modules        []models.Module
	ids            []int64
	created        *models.Module
	updated        *models.Module
	reorderedIDs   []int64
	reorderCalls   int
	cascadeRemoved int
	cascadeCalls   int
}

func (m *mockModuleRepo) ListByCourse(_ context.Context, _ int64) ([]models.Module, error) {
	return m.modules, nil
}

func (m *mockModuleRepo) ListIDsByCourse(_ context.Context, _ int64) ([]int64, error) {
	return m.ids, nil
}

func (m *mockModuleRepo) FindByID(_ context.Context, id int64) (*models.Module, error) {
	for i := range m.modules {
		if m.modules[i].ID == id {
			return &m.modules[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockModuleRepo) Create(_ context.Context, module *models.Module) error {
	module.ID = int64(len(m.modules) + 1)
	m.created = module
	return nil
}

func (m *mockModuleRepo) Update(_ context.Context, module *models.Module) error {
	m.updated = module
	return nil
}

func (m *mockModuleRepo) Reorder(_ context.Context, _ int64, ids []int64) error {
	m.reorderCalls++
	m.reorderedIDs = ids
	return nil
}

func (m *mockModuleRepo) CountChapters(_ context.Context, _ int64) (int, error) {
	return 0, nil
}

func (m *mockModuleRepo) DeleteCascade(_ context.Context, _ int64) (int, error) {
	m.cascadeCalls++
	return m.cascadeRemoved, nil
}

type stubCourseLookup struct {
	courses map[int64]*models.Course
}

func (s *stubCourseLookup) FindByID(_ context.Context, id int64) (*models.Course, error) {
	course, ok := s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

type stubChapterLister struct {
	chapters []models.Chapter
}

func (s *stubChapterLister) ListByCourse(_ context.Context, _ int64) ([]models.Chapter, error) {
	return s.chapters, nil
}

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func trainerClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleTrainer}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func newModuleFixture() (*ModuleService, *mockModuleRepo, *recordingAudit) {
	repo := &mockModuleRepo{
		modules: []models.Module{
			{ID: 1, CourseID: 10, Title: "Introduction", OrderIndex: 0},
			{ID: 2, CourseID: 10, Title: "Bases", OrderIndex: 1},
			{ID: 3, CourseID: 10, Title: "Avancé", OrderIndex: 2},
		},
		ids: []int64{1, 2, 3},
	}
	courses := &stubCourseLookup{courses: map[int64]*models.Course{
		10: {ID: 10, Title: "Go avancé", TeacherID: "trainer-1", Active: true},
	}}
	audit := &recordingAudit{}
	svc := NewModuleService(repo, &stubChapterLister{}, courses, audit, nil, zap.NewNop())
	return svc, repo, audit
}

func TestModuleServiceReorder(t *testing.T) {
	svc, repo, audit := newModuleFixture()

	_, err := svc.Reorder(context.Background(), 10, ReorderRequest{OrderedIDs: []int64{3, 1, 2}}, adminClaims(), models.LoginRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.reorderCalls)
	assert.Equal(t, []int64{3, 1, 2}, repo.reorderedIDs)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionContentReorder, audit.logs[0].Action)
}

func TestModuleServiceReorderRejectsIncompleteSet(t *testing.T) {
	svc, repo, _ := newModuleFixture()

	_, err := svc.Reorder(context.Background(), 10, ReorderRequest{OrderedIDs: []int64{3, 1}}, adminClaims(), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.reorderCalls)
}

func TestModuleServiceReorderRejectsDuplicates(t *testing.T) {
	svc, repo, _ := newModuleFixture()

	_, err := svc.Reorder(context.Background(), 10, ReorderRequest{OrderedIDs: []int64{1, 1, 2}}, adminClaims(), models.LoginRequest{})
	require.Error(t, err)
	assert.Zero(t, repo.reorderCalls)
}

func TestModuleServiceReorderRejectsForeignID(t *testing.T) {
	svc, repo, _ := newModuleFixture()

	_, err := svc.Reorder(context.Background(), 10, ReorderRequest{OrderedIDs: []int64{1, 2, 99}}, adminClaims(), models.LoginRequest{})
	require.Error(t, err)
	assert.Zero(t, repo.reorderCalls)
}

func TestModuleServiceReorderRejectsForeignTrainer(t *testing.T) {
	svc, repo, _ := newModuleFixture()

	_, err := svc.Reorder(context.Background(), 10, ReorderRequest{OrderedIDs: []int64{3, 1, 2}}, trainerClaims("trainer-2"), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.reorderCalls)
}

func TestModuleServiceReorderAllowsOwningTrainer(t *testing.T) {
	svc, repo, _ := newModuleFixture()

	_, err := svc.Reorder(context.Background(), 10, ReorderRequest{OrderedIDs: []int64{2, 3, 1}}, trainerClaims("trainer-1"), models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 1}, repo.reorderedIDs)
}

func TestModuleServiceCreateAppendsAtEnd(t *testing.T) {
	svc, repo, _ := newModuleFixture()

	module, err := svc.Create(context.Background(), 10, ModuleRequest{Title: "Conclusion"}, adminClaims(), models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Conclusion", module.Title)
	assert.Equal(t, int64(10), module.CourseID)
	require.NotNil(t, repo.created)
}

func TestModuleServiceCreateUnknownCourse(t *testing.T) {
	svc, _, _ := newModuleFixture()

	_, err := svc.Create(context.Background(), 404, ModuleRequest{Title: "Orphelin"}, adminClaims(), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestModuleServiceDeleteReportsCascade(t *testing.T) {
	svc, repo, audit := newModuleFixture()
	repo.cascadeRemoved = 4

	result, err := svc.Delete(context.Background(), 2, adminClaims(), models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.ModuleID)
	assert.Equal(t, 4, result.ChaptersRemoved)
	assert.Equal(t, 1, repo.cascadeCalls)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionContentDelete, audit.logs[0].Action)
}

func TestModuleServiceOutlineGroupsChapters(t *testing.T) {
	svc, _, _ := newModuleFixture()
	svc.chapters = &stubChapterLister{chapters: []models.Chapter{
		{ID: 100, ModuleID: 1, Title: "Présentation", OrderIndex: 0},
		{ID: 101, ModuleID: 1, Title: "Installation", OrderIndex: 1},
		{ID: 102, ModuleID: 3, Title: "Concurrence", OrderIndex: 0},
	}}

	outline, err := svc.Outline(context.Background(), 10, adminClaims())
	require.NoError(t, err)
	require.Len(t, outline, 3)
	assert.Len(t, outline[0].Chapters, 2)
	assert.Empty(t, outline[1].Chapters)
	assert.NotNil(t, outline[1].Chapters)
	assert.Len(t, outline[2].Chapters, 1)
}

func TestModuleServiceListHidesInactiveCourseFromStudents(t *testing.T) {
	svc, _, _ := newModuleFixture()
	svc.courses = &stubCourseLookup{courses: map[int64]*models.Course{
		10: {ID: 10, TeacherID: "trainer-1", Active: false},
	}}

	student := &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent}
	_, err := svc.ListByCourse(context.Background(), 10, student)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestValidateCompleteSet(t *testing.T) {
	current := []int64{1, 2, 3}

	assert.NoError(t, validateCompleteSet(current, []int64{3, 2, 1}))
	assert.Error(t, validateCompleteSet(current, []int64{1, 2}))
	assert.Error(t, validateCompleteSet(current, []int64{1, 2, 2}))
	assert.Error(t, validateCompleteSet(current, []int64{1, 2, 4}))
}
