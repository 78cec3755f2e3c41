package models

import "time"

// Module is a thematic grouping of chapters within a course, ordered
// relative to its sibling modules by OrderIndex. Sibling order indexes are
// unique after a reorder; display order is the only meaning they carry.
type Module struct {
	ID          int64     `db:"id" json:"id"`
	CourseID    int64     `db:"course_id" json:"course_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	OrderIndex  int       `db:"order_index" json:"order_index"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ModuleWithChapters bundles a module with its ordered chapters for the
// course outline view.
type ModuleWithChapters struct {
	Module
	Chapters []Chapter `json:"chapters"`
}
