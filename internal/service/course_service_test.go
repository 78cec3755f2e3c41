package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formacademy/formacademy-api/internal/models"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
)

type mockCourseRepo struct {
	courses     map[int64]*models.Course
	slugs       map[string]bool
	enrollments int
	created     *models.Course
	updated     *models.Course
	deleteCalls int
}

func (m *mockCourseRepo) List(_ context.Context, _ models.CourseFilter) ([]models.CourseDetail, int, error) {
	return nil, 0, nil
}

func (m *mockCourseRepo) FindByID(_ context.Context, id int64) (*models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

func (m *mockCourseRepo) FindBySlug(_ context.Context, slug string) (*models.Course, error) {
	for _, course := range m.courses {
		if course.Slug == slug {
			return course, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ExistsBySlug(_ context.Context, slug string, excludeID int64) (bool, error) {
	for _, course := range m.courses {
		if course.Slug == slug && course.ID != excludeID {
			return true, nil
		}
	}
	return m.slugs[slug], nil
}

func (m *mockCourseRepo) Create(_ context.Context, course *models.Course) error {
	course.ID = int64(len(m.courses) + 1)
	m.created = course
	return nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *models.Course) error {
	m.updated = course
	return nil
}

func (m *mockCourseRepo) CountEnrollments(_ context.Context, _ int64) (int, error) {
	return m.enrollments, nil
}

func (m *mockCourseRepo) DeleteCascade(_ context.Context, _ int64) error {
	m.deleteCalls++
	return nil
}

type stubDomainLookup struct {
	domains map[int64]*models.Domain
}

func (s *stubDomainLookup) FindByID(_ context.Context, id int64) (*models.Domain, error) {
	domain, ok := s.domains[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return domain, nil
}

type stubUserLookup struct {
	users map[string]*models.User
}

func (s *stubUserLookup) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func newCourseFixture(trainerID string) (*CourseService, *mockCourseRepo) {
	repo := &mockCourseRepo{
		courses: map[int64]*models.Course{
			1: {ID: 1, Title: "Go avancé", Slug: "go-avance", DomainID: 7, TeacherID: trainerID, Active: true},
		},
	}
	domains := &stubDomainLookup{domains: map[int64]*models.Domain{
		7: {ID: 7, Name: "Développement web", Slug: "developpement-web"},
	}}
	users := &stubUserLookup{users: map[string]*models.User{
		trainerID: {ID: trainerID, Role: models.RoleTrainer, Active: true},
	}}
	svc := NewCourseService(repo, domains, users, &recordingAudit{}, nil, zap.NewNop())
	return svc, repo
}

func TestCourseServiceCreateDerivesSlug(t *testing.T) {
	trainerID := uuid.NewString()
	svc, repo := newCourseFixture(trainerID)

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:     "Initiation à Python",
		DomainID:  7,
		TeacherID: trainerID,
		Active:    true,
	}, adminClaims(), models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "initiation-a-python", course.Slug)
	require.NotNil(t, repo.created)
}

func TestCourseServiceCreateSlugConflict(t *testing.T) {
	trainerID := uuid.NewString()
	svc, _ := newCourseFixture(trainerID)

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:     "Go avancé",
		Slug:      "go-avance",
		DomainID:  7,
		TeacherID: trainerID,
	}, adminClaims(), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceCreateUnknownDomain(t *testing.T) {
	trainerID := uuid.NewString()
	svc, _ := newCourseFixture(trainerID)

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:     "Sans domaine",
		DomainID:  99,
		TeacherID: trainerID,
	}, adminClaims(), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceCreateTrainerForOtherTrainer(t *testing.T) {
	trainerID := uuid.NewString()
	otherID := uuid.NewString()
	svc, _ := newCourseFixture(trainerID)

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:     "Pas la mienne",
		DomainID:  7,
		TeacherID: otherID,
	}, trainerClaims(trainerID), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceUpdateTrainerCannotReassign(t *testing.T) {
	trainerID := uuid.NewString()
	otherID := uuid.NewString()
	svc, _ := newCourseFixture(trainerID)

	_, err := svc.Update(context.Background(), 1, UpdateCourseRequest{
		Title:     "Go avancé",
		DomainID:  7,
		TeacherID: otherID,
	}, trainerClaims(trainerID), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceDeleteRefusedWithEnrollments(t *testing.T) {
	trainerID := uuid.NewString()
	svc, repo := newCourseFixture(trainerID)
	repo.enrollments = 3

	err := svc.Delete(context.Background(), 1, adminClaims(), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrHasEnrollments.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.deleteCalls)
}

func TestCourseServiceDeleteCascades(t *testing.T) {
	trainerID := uuid.NewString()
	svc, repo := newCourseFixture(trainerID)

	err := svc.Delete(context.Background(), 1, adminClaims(), models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.deleteCalls)
}

func TestCourseServiceGetHidesInactiveFromStudents(t *testing.T) {
	trainerID := uuid.NewString()
	svc, repo := newCourseFixture(trainerID)
	repo.courses[1].Active = false

	student := &models.JWTClaims{UserID: uuid.NewString(), Role: models.RoleStudent}
	_, err := svc.Get(context.Background(), 1, student)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	course, err := svc.Get(context.Background(), 1, adminClaims())
	require.NoError(t, err)
	assert.False(t, course.Active)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "initiation-a-python", Slugify("Initiation à Python"))
	assert.Equal(t, "developpement-web", Slugify("Développement Web"))
	assert.Equal(t, "francais-des-affaires", Slugify("Français des affaires"))
	assert.Equal(t, "c-oeuvre", Slugify("Ç'œuvre"))
}
