package models

import (
	"encoding/json"
	"time"
)

// ChapterContentType discriminates the payload carried by a chapter.
type ChapterContentType string

const (
	ContentTypeText  ChapterContentType = "TEXT"
	ContentTypeVideo ChapterContentType = "VIDEO"
	ContentTypeQuiz  ChapterContentType = "QUIZ"
	ContentTypeTest  ChapterContentType = "TEST"
	ContentTypeExam  ChapterContentType = "EXAM"
)

// ValidContentType reports whether raw names a known content type.
func ValidContentType(raw ChapterContentType) bool {
	switch raw {
	case ContentTypeText, ContentTypeVideo, ContentTypeQuiz, ContentTypeTest, ContentTypeExam:
		return true
	}
	return false
}

// Assessable reports whether the content type carries quiz questions.
func (t ChapterContentType) Assessable() bool {
	return t == ContentTypeQuiz || t == ContentTypeTest || t == ContentTypeExam
}

// Chapter is the smallest content unit within a module. Payload is a JSONB
// document whose shape depends on ContentType.
type Chapter struct {
	ID          int64              `db:"id" json:"id"`
	ModuleID    int64              `db:"module_id" json:"module_id"`
	Title       string             `db:"title" json:"title"`
	Description string             `db:"description" json:"description"`
	OrderIndex  int                `db:"order_index" json:"order_index"`
	ContentType ChapterContentType `db:"content_type" json:"content_type"`
	Payload     json.RawMessage    `db:"payload" json:"payload,omitempty"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
}

// TextPayload is the payload shape for TEXT chapters.
type TextPayload struct {
	Body string `json:"body" validate:"required"`
}

// VideoPayload is the payload shape for VIDEO chapters.
type VideoPayload struct {
	URL             string `json:"url" validate:"required,url"`
	DurationSeconds int    `json:"duration_seconds" validate:"omitempty,min=0"`
}

// AssessmentPayload is the payload shape for QUIZ, TEST and EXAM chapters.
type AssessmentPayload struct {
	PassingScore int  `json:"passing_score" validate:"omitempty,min=0,max=100"`
	TimeLimitMin int  `json:"time_limit_min" validate:"omitempty,min=0"`
	ShuffleOrder bool `json:"shuffle_order"`
}
