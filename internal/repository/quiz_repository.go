package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formacademy/formacademy-api/internal/models"
)

// QuizRepository handles persistence of quiz questions and attempts.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository constructs the repository.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// ListQuestions returns the questions of a chapter in display order.
func (r *QuizRepository) ListQuestions(ctx context.Context, chapterID int64) ([]models.QuizQuestion, error) {
	const query = `SELECT id, chapter_id, prompt, options, correct_index, points, order_index, created_at, updated_at
        FROM quiz_questions WHERE chapter_id = $1 ORDER BY order_index ASC, id ASC`
	var questions []models.QuizQuestion
	if err := r.db.SelectContext(ctx, &questions, query, chapterID); err != nil {
		return nil, fmt.Errorf("list quiz questions: %w", err)
	}
	return questions, nil
}

// FindQuestion returns a question by identifier.
func (r *QuizRepository) FindQuestion(ctx context.Context, id int64) (*models.QuizQuestion, error) {
	const query = `SELECT id, chapter_id, prompt, options, correct_index, points, order_index, created_at, updated_at FROM quiz_questions WHERE id = $1`
	var question models.QuizQuestion
	if err := r.db.GetContext(ctx, &question, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find quiz question: %w", err)
	}
	return &question, nil
}

// CreateQuestion appends a question at the end of the chapter's question
// order inside one transaction.
func (r *QuizRepository) CreateQuestion(ctx context.Context, question *models.QuizQuestion) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin question create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const nextQuery = `SELECT COALESCE(MAX(order_index) + 1, 0) FROM quiz_questions WHERE chapter_id = $1`
	if err = tx.GetContext(ctx, &question.OrderIndex, nextQuery, question.ChapterID); err != nil {
		return fmt.Errorf("next question order index: %w", err)
	}

	now := time.Now().UTC()
	question.CreatedAt = now
	question.UpdatedAt = now
	const insertQuery = `INSERT INTO quiz_questions (chapter_id, prompt, options, correct_index, points, order_index, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err = tx.GetContext(ctx, &question.ID, insertQuery,
		question.ChapterID, question.Prompt, question.Options, question.CorrectIndex, question.Points, question.OrderIndex, question.CreatedAt, question.UpdatedAt); err != nil {
		return fmt.Errorf("create quiz question: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit question create: %w", err)
	}
	return nil
}

// UpdateQuestion rewrites a question's mutable fields.
func (r *QuizRepository) UpdateQuestion(ctx context.Context, question *models.QuizQuestion) error {
	question.UpdatedAt = time.Now().UTC()
	const query = `UPDATE quiz_questions SET prompt = $2, options = $3, correct_index = $4, points = $5, updated_at = $6 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		question.ID, question.Prompt, question.Options, question.CorrectIndex, question.Points, question.UpdatedAt); err != nil {
		return fmt.Errorf("update quiz question: %w", err)
	}
	return nil
}

// DeleteQuestion removes a question.
func (r *QuizRepository) DeleteQuestion(ctx context.Context, id int64) error {
	const query = `DELETE FROM quiz_questions WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete quiz question: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateAttempt persists a graded attempt.
func (r *QuizRepository) CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.SubmittedAt.IsZero() {
		attempt.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO quiz_attempts (id, student_id, chapter_id, answers, score, max_score, passed, submitted_at)
        VALUES (:id, :student_id, :chapter_id, :answers, :score, :max_score, :passed, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attempt); err != nil {
		return fmt.Errorf("create quiz attempt: %w", err)
	}
	return nil
}

// ListAttempts returns a student's attempts for a chapter, newest first.
func (r *QuizRepository) ListAttempts(ctx context.Context, studentID string, chapterID int64) ([]models.QuizAttempt, error) {
	const query = `SELECT id, student_id, chapter_id, answers, score, max_score, passed, submitted_at
        FROM quiz_attempts WHERE student_id = $1 AND chapter_id = $2 ORDER BY submitted_at DESC`
	var attempts []models.QuizAttempt
	if err := r.db.SelectContext(ctx, &attempts, query, studentID, chapterID); err != nil {
		return nil, fmt.Errorf("list quiz attempts: %w", err)
	}
	return attempts, nil
}
