package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formacademy/formacademy-api/internal/models"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]*models.Enrollment
	existing    map[string]bool
	lastFilter  models.EnrollmentFilter
	created     *models.Enrollment
	deleted     []*models.Enrollment
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{
		enrollments: map[string]*models.Enrollment{},
		existing:    map[string]bool{},
	}
}

func enrollmentKey(studentID string, courseID int64) string {
	return fmt.Sprintf("%s/%d", studentID, courseID)
}

func (m *mockEnrollmentRepo) List(_ context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	m.lastFilter = filter
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	enrollment, ok := m.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return enrollment, nil
}

func (m *mockEnrollmentRepo) FindByStudentAndCourse(_ context.Context, _ string, _ int64) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Exists(_ context.Context, studentID string, courseID int64) (bool, error) {
	return m.existing[enrollmentKey(studentID, courseID)], nil
}

func (m *mockEnrollmentRepo) Create(_ context.Context, enrollment *models.Enrollment) error {
	m.created = enrollment
	m.enrollments[enrollment.ID] = enrollment
	return nil
}

func (m *mockEnrollmentRepo) Delete(_ context.Context, enrollment *models.Enrollment) error {
	m.deleted = append(m.deleted, enrollment)
	delete(m.enrollments, enrollment.ID)
	return nil
}

func newEnrollmentFixture(studentID, trainerID string) (*EnrollmentService, *mockEnrollmentRepo) {
	repo := newMockEnrollmentRepo()
	courses := &stubCourseLookup{courses: map[int64]*models.Course{
		1: {ID: 1, Title: "Go avancé", TeacherID: trainerID, Active: true},
		2: {ID: 2, Title: "Archivée", TeacherID: trainerID, Active: false},
	}}
	users := &stubUserLookup{users: map[string]*models.User{
		studentID: {ID: studentID, Role: models.RoleStudent, Active: true},
		trainerID: {ID: trainerID, Role: models.RoleTrainer, Active: true},
	}}
	svc := NewEnrollmentService(repo, courses, users, &recordingAudit{}, nil, zap.NewNop())
	return svc, repo
}

func studentClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleStudent}
}

func TestEnrollmentServiceStudentEnrollsSelf(t *testing.T) {
	studentID := uuid.NewString()
	svc, repo := newEnrollmentFixture(studentID, uuid.NewString())

	enrollment, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: 1}, studentClaims(studentID), models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, studentID, enrollment.StudentID)
	assert.NotEmpty(t, enrollment.ID)
	require.NotNil(t, repo.created)
}

func TestEnrollmentServiceStudentCannotEnrollSomeoneElse(t *testing.T) {
	studentID := uuid.NewString()
	otherID := uuid.NewString()
	svc, _ := newEnrollmentFixture(studentID, uuid.NewString())

	enrollment, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: otherID, CourseID: 1}, studentClaims(studentID), models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, studentID, enrollment.StudentID)
}

func TestEnrollmentServiceDuplicateEnrollment(t *testing.T) {
	studentID := uuid.NewString()
	svc, repo := newEnrollmentFixture(studentID, uuid.NewString())
	repo.existing[enrollmentKey(studentID, 1)] = true

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: 1}, studentClaims(studentID), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceInactiveCourse(t *testing.T) {
	studentID := uuid.NewString()
	svc, _ := newEnrollmentFixture(studentID, uuid.NewString())

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: 2}, studentClaims(studentID), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceRejectsNonStudentTarget(t *testing.T) {
	studentID := uuid.NewString()
	trainerID := uuid.NewString()
	svc, _ := newEnrollmentFixture(studentID, trainerID)

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: trainerID, CourseID: 1}, adminClaims(), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceListScopesStudents(t *testing.T) {
	studentID := uuid.NewString()
	svc, repo := newEnrollmentFixture(studentID, uuid.NewString())

	_, _, err := svc.List(context.Background(), models.EnrollmentFilter{}, studentClaims(studentID))
	require.NoError(t, err)
	assert.Equal(t, studentID, repo.lastFilter.StudentID)
}

func TestEnrollmentServiceListTrainerNeedsOwnCourse(t *testing.T) {
	studentID := uuid.NewString()
	trainerID := uuid.NewString()
	svc, _ := newEnrollmentFixture(studentID, trainerID)

	_, _, err := svc.List(context.Background(), models.EnrollmentFilter{}, trainerClaims(trainerID))
	require.Error(t, err)

	_, _, err = svc.List(context.Background(), models.EnrollmentFilter{CourseID: 1}, trainerClaims(uuid.NewString()))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, _, err = svc.List(context.Background(), models.EnrollmentFilter{CourseID: 1}, trainerClaims(trainerID))
	require.NoError(t, err)
}

func TestEnrollmentServiceUnenrollOwnershipCheck(t *testing.T) {
	studentID := uuid.NewString()
	svc, repo := newEnrollmentFixture(studentID, uuid.NewString())
	repo.enrollments["enr-1"] = &models.Enrollment{ID: "enr-1", StudentID: studentID, CourseID: 1}

	_, err := svc.Unenroll(context.Background(), "enr-1", studentClaims(uuid.NewString()), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)

	removed, err := svc.Unenroll(context.Background(), "enr-1", studentClaims(studentID), models.LoginRequest{})
	require.NoError(t, err)
	require.Len(t, repo.deleted, 1)
	require.NotNil(t, removed)
	assert.Equal(t, studentID, removed.StudentID)
}
