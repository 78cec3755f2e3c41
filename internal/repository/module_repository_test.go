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

func newModuleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestModuleRepositoryListByCourse(t *testing.T) {
	db, mock, cleanup := newModuleRepoMock(t)
	defer cleanup()

	repo := NewModuleRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "course_id", "title", "description", "order_index", "created_at", "updated_at"}).
		AddRow(1, 10, "Introduction", "", 0, now, now).
		AddRow(2, 10, "Bases", "", 1, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, title, description, order_index")).
		WithArgs(int64(10)).
		WillReturnRows(rows)

	modules, err := repo.ListByCourse(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "Introduction", modules[0].Title)
	assert.Equal(t, 1, modules[1].OrderIndex)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestModuleRepositoryCreateAssignsNextOrderIndex(t *testing.T) {
	db, mock, cleanup := newModuleRepoMock(t)
	defer cleanup()

	repo := NewModuleRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(order_index) + 1, 0) FROM modules")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO modules")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	module := &models.Module{CourseID: 10, Title: "Conclusion"}
	require.NoError(t, repo.Create(context.Background(), module))
	assert.Equal(t, int64(7), module.ID)
	assert.Equal(t, 3, module.OrderIndex)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestModuleRepositoryReorderRewritesPositions(t *testing.T) {
	db, mock, cleanup := newModuleRepoMock(t)
	defer cleanup()

	repo := NewModuleRepository(db)
	mock.ExpectBegin()
	for position, id := range []int64{3, 1, 2} {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE modules SET order_index")).
			WithArgs(position, sqlmock.AnyArg(), id, int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.Reorder(context.Background(), 10, []int64{3, 1, 2}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestModuleRepositoryReorderRollsBackOnForeignModule(t *testing.T) {
	db, mock, cleanup := newModuleRepoMock(t)
	defer cleanup()

	repo := NewModuleRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE modules SET order_index")).
		WithArgs(0, sqlmock.AnyArg(), int64(99), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Reorder(context.Background(), 10, []int64{99})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestModuleRepositoryDeleteCascade(t *testing.T) {
	db, mock, cleanup := newModuleRepoMock(t)
	defer cleanup()

	repo := NewModuleRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM chapters")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM quiz_attempts")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM chapter_progress")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 6))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM quiz_questions")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM chapters")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM modules")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := repo.DeleteCascade(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 4, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestModuleRepositoryDeleteCascadeMissingModule(t *testing.T) {
	db, mock, cleanup := newModuleRepoMock(t)
	defer cleanup()

	repo := NewModuleRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM chapters")).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	for _, table := range []string{"quiz_attempts", "chapter_progress", "quiz_questions", "chapters"} {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM " + table)).
			WithArgs(int64(404)).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM modules")).
		WithArgs(int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.DeleteCascade(context.Background(), 404)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
