package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formacademy/formacademy-api/internal/models"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCourseRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "slug", "description", "domain_id", "teacher_id", "active", "created_at", "updated_at", "domain_name", "teacher_name", "module_count", "enrollment_count"}).
		AddRow(1, "Go avancé", "go-avance", "", 7, "trainer-1", true, now, now, "Développement web", "Marie Dupont", 4, 12)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT c.id, c.title, c.slug")).
		WithArgs(int64(7), true).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(int64(7), true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	active := true
	courses, total, err := repo.List(context.Background(), models.CourseFilter{DomainID: 7, Active: &active})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Marie Dupont", courses[0].TeacherName)
	assert.Equal(t, 4, courses[0].ModuleCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryExistsBySlugExcludesID(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM courses WHERE slug = $1 AND id <> $2")).
		WithArgs("go-avance", int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsBySlug(context.Background(), "go-avance", 3)
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDeleteCascade(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectBegin()
	for _, table := range []string{"quiz_attempts", "chapter_progress", "quiz_questions", "chapters", "modules", "certificates", "enrollments"} {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM " + table)).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(context.Background(), 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDeleteCascadeUnknownCourse(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectBegin()
	for _, table := range []string{"quiz_attempts", "chapter_progress", "quiz_questions", "chapters", "modules", "certificates", "enrollments"} {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM " + table)).
			WithArgs(int64(404)).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses")).
		WithArgs(int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteCascade(context.Background(), 404)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
