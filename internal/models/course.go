package models

import "time"

// Domain is a thematic category grouping courses (développement web,
// bureautique, langues...).
type Domain struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Course is the top node of the content hierarchy. It owns modules, which in
// turn own chapters.
type Course struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Slug        string    `db:"slug" json:"slug"`
	Description string    `db:"description" json:"description"`
	DomainID    int64     `db:"domain_id" json:"domain_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail augments a course with joined context for list/detail views.
type CourseDetail struct {
	Course
	DomainName      string `db:"domain_name" json:"domain_name"`
	TeacherName     string `db:"teacher_name" json:"teacher_name"`
	ModuleCount     int    `db:"module_count" json:"module_count"`
	EnrollmentCount int    `db:"enrollment_count" json:"enrollment_count"`
}

// CourseFilter captures filtering criteria for the catalog listing.
type CourseFilter struct {
	DomainID  int64
	TeacherID string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
