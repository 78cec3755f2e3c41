package models

import (
	"encoding/json"
	"time"
)

// QuizQuestion belongs to an assessable chapter (QUIZ, TEST or EXAM).
// Options is a JSON array of strings; CorrectIndex points into it and is
// never serialized towards students.
type QuizQuestion struct {
	ID           int64           `db:"id" json:"id"`
	ChapterID    int64           `db:"chapter_id" json:"chapter_id"`
	Prompt       string          `db:"prompt" json:"prompt"`
	Options      json.RawMessage `db:"options" json:"options"`
	CorrectIndex int             `db:"correct_index" json:"-"`
	Points       int             `db:"points" json:"points"`
	OrderIndex   int             `db:"order_index" json:"order_index"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// QuizAttempt stores one graded submission by a student for a chapter.
type QuizAttempt struct {
	ID          string          `db:"id" json:"id"`
	StudentID   string          `db:"student_id" json:"student_id"`
	ChapterID   int64           `db:"chapter_id" json:"chapter_id"`
	Answers     json.RawMessage `db:"answers" json:"answers"`
	Score       int             `db:"score" json:"score"`
	MaxScore    int             `db:"max_score" json:"max_score"`
	Passed      bool            `db:"passed" json:"passed"`
	SubmittedAt time.Time       `db:"submitted_at" json:"submitted_at"`
}

// QuizResult is returned to the student after grading.
type QuizResult struct {
	AttemptID  string  `json:"attempt_id"`
	Score      int     `json:"score"`
	MaxScore   int     `json:"max_score"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
}
