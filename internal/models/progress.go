package models

import "time"

// ChapterProgress records completion of a single chapter by a student.
type ChapterProgress struct {
	StudentID   string    `db:"student_id" json:"student_id"`
	ChapterID   int64     `db:"chapter_id" json:"chapter_id"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}

// CourseProgress aggregates a student's completion within one course.
type CourseProgress struct {
	CourseID          int64            `json:"course_id"`
	TotalChapters     int              `json:"total_chapters"`
	CompletedChapters int              `json:"completed_chapters"`
	Percentage        float64          `json:"percentage"`
	Modules           []ModuleProgress `json:"modules,omitempty"`
}

// ModuleProgress aggregates completion within one module.
type ModuleProgress struct {
	ModuleID          int64   `json:"module_id"`
	ModuleTitle       string  `json:"module_title"`
	TotalChapters     int     `json:"total_chapters"`
	CompletedChapters int     `json:"completed_chapters"`
	Percentage        float64 `json:"percentage"`
}

// ModuleChapterCount is a per-module chapter tally used when aggregating
// progress, with the completed count scoped to one student.
type ModuleChapterCount struct {
	ModuleID    int64  `db:"module_id"`
	ModuleTitle string `db:"module_title"`
	Total       int    `db:"total"`
	Completed   int    `db:"completed"`
}
