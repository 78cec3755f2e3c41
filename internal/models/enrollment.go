package models

import "time"

// Enrollment links a student to a course they joined. CompletedAt is set
// once every chapter of the course has been completed.
type Enrollment struct {
	ID          string     `db:"id" json:"id"`
	StudentID   string     `db:"student_id" json:"student_id"`
	CourseID    int64      `db:"course_id" json:"course_id"`
	EnrolledAt  time.Time  `db:"enrolled_at" json:"enrolled_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// EnrollmentDetail augments an enrollment with joined context.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	CourseTitle  string `db:"course_title" json:"course_title"`
	CourseSlug   string `db:"course_slug" json:"course_slug"`
}

// EnrollmentFilter captures filtering criteria for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  int64
	Completed *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
