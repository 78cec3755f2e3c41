package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formacademy/formacademy-api/internal/models"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
)

type mockChapterRepo struct {
	chapters     []models.Chapter
	ids          []int64
	created      *models.Chapter
	reorderedIDs []int64
	reorderCalls int
	deleteCalls  int
}

func (m *mockChapterRepo) ListByModule(_ context.Context, _ int64) ([]models.Chapter, error) {
	return m.chapters, nil
}

func (m *mockChapterRepo) ListIDsByModule(_ context.Context, _ int64) ([]int64, error) {
	return m.ids, nil
}

func (m *mockChapterRepo) FindByID(_ context.Context, id int64) (*models.Chapter, error) {
	for i := range m.chapters {
		if m.chapters[i].ID == id {
			return &m.chapters[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockChapterRepo) Create(_ context.Context, chapter *models.Chapter) error {
	chapter.ID = int64(len(m.chapters) + 1)
	m.created = chapter
	return nil
}

func (m *mockChapterRepo) Update(_ context.Context, _ *models.Chapter) error {
	return nil
}

func (m *mockChapterRepo) Reorder(_ context.Context, _ int64, ids []int64) error {
	m.reorderCalls++
	m.reorderedIDs = ids
	return nil
}

func (m *mockChapterRepo) DeleteCascade(_ context.Context, _ int64) error {
	m.deleteCalls++
	return nil
}

type stubModuleLookup struct {
	modules map[int64]*models.Module
}

func (s *stubModuleLookup) FindByID(_ context.Context, id int64) (*models.Module, error) {
	module, ok := s.modules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return module, nil
}

func newChapterFixture() (*ChapterService, *mockChapterRepo) {
	repo := &mockChapterRepo{
		chapters: []models.Chapter{
			{ID: 1, ModuleID: 5, Title: "Présentation", ContentType: models.ContentTypeText, OrderIndex: 0},
			{ID: 2, ModuleID: 5, Title: "Quiz final", ContentType: models.ContentTypeQuiz, OrderIndex: 1},
		},
		ids: []int64{1, 2},
	}
	modules := &stubModuleLookup{modules: map[int64]*models.Module{
		5: {ID: 5, CourseID: 10, Title: "Bases"},
	}}
	courses := &stubCourseLookup{courses: map[int64]*models.Course{
		10: {ID: 10, TeacherID: "trainer-1", Active: true},
	}}
	svc := NewChapterService(repo, modules, courses, &recordingAudit{}, nil, zap.NewNop())
	return svc, repo
}

func TestChapterServiceCreateTextChapter(t *testing.T) {
	svc, repo := newChapterFixture()

	payload, _ := json.Marshal(models.TextPayload{Body: "Bienvenue dans ce cours."})
	chapter, err := svc.Create(context.Background(), 5, ChapterRequest{
		Title:       "Introduction",
		ContentType: models.ContentTypeText,
		Payload:     payload,
	}, adminClaims(), models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.ContentTypeText, chapter.ContentType)
	require.NotNil(t, repo.created)
}

func TestChapterServiceCreateRejectsEmptyTextBody(t *testing.T) {
	svc, _ := newChapterFixture()

	_, err := svc.Create(context.Background(), 5, ChapterRequest{
		Title:       "Vide",
		ContentType: models.ContentTypeText,
		Payload:     json.RawMessage(`{"body": ""}`),
	}, adminClaims(), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestChapterServiceCreateRejectsInvalidVideoURL(t *testing.T) {
	svc, _ := newChapterFixture()

	_, err := svc.Create(context.Background(), 5, ChapterRequest{
		Title:       "Démo",
		ContentType: models.ContentTypeVideo,
		Payload:     json.RawMessage(`{"url": "pas-une-url"}`),
	}, adminClaims(), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestChapterServiceCreateRejectsUnknownContentType(t *testing.T) {
	svc, _ := newChapterFixture()

	_, err := svc.Create(context.Background(), 5, ChapterRequest{
		Title:       "Mystère",
		ContentType: "PODCAST",
		Payload:     json.RawMessage(`{}`),
	}, adminClaims(), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestChapterServiceCreateQuizWithoutPayload(t *testing.T) {
	svc, _ := newChapterFixture()

	chapter, err := svc.Create(context.Background(), 5, ChapterRequest{
		Title:       "Évaluation",
		ContentType: models.ContentTypeQuiz,
	}, adminClaims(), models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.ContentTypeQuiz, chapter.ContentType)
}

func TestChapterServiceCreateQuizRejectsBadPassingScore(t *testing.T) {
	svc, _ := newChapterFixture()

	_, err := svc.Create(context.Background(), 5, ChapterRequest{
		Title:       "Évaluation",
		ContentType: models.ContentTypeExam,
		Payload:     json.RawMessage(`{"passing_score": 150}`),
	}, adminClaims(), models.LoginRequest{})
	require.Error(t, err)
}

func TestChapterServiceReorder(t *testing.T) {
	svc, repo := newChapterFixture()

	_, err := svc.Reorder(context.Background(), 5, ReorderRequest{OrderedIDs: []int64{2, 1}}, trainerClaims("trainer-1"), models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, repo.reorderedIDs)
}

func TestChapterServiceReorderRejectsPartialSet(t *testing.T) {
	svc, repo := newChapterFixture()

	_, err := svc.Reorder(context.Background(), 5, ReorderRequest{OrderedIDs: []int64{2}}, adminClaims(), models.LoginRequest{})
	require.Error(t, err)
	assert.Zero(t, repo.reorderCalls)
}

func TestChapterServiceDeleteForeignTrainer(t *testing.T) {
	svc, repo := newChapterFixture()

	err := svc.Delete(context.Background(), 1, trainerClaims("trainer-2"), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.deleteCalls)
}

func TestChapterServiceDelete(t *testing.T) {
	svc, repo := newChapterFixture()

	err := svc.Delete(context.Background(), 1, trainerClaims("trainer-1"), models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.deleteCalls)
}
