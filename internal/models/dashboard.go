package models

// AdminDashboard summarises platform-wide activity for administrators.
type AdminDashboard struct {
	TotalUsers           int `json:"total_users"`
	TotalStudents        int `json:"total_students"`
	TotalTrainers        int `json:"total_trainers"`
	TotalCourses         int `json:"total_courses"`
	ActiveCourses        int `json:"active_courses"`
	TotalEnrollments     int `json:"total_enrollments"`
	CompletedEnrollments int `json:"completed_enrollments"`
	IssuedCertificates   int `json:"issued_certificates"`
}

// TrainerCourseStats carries per-course activity for a trainer dashboard.
type TrainerCourseStats struct {
	CourseID        int64  `db:"course_id" json:"course_id"`
	CourseTitle     string `db:"course_title" json:"course_title"`
	Active          bool   `db:"active" json:"active"`
	ModuleCount     int    `db:"module_count" json:"module_count"`
	EnrollmentCount int    `db:"enrollment_count" json:"enrollment_count"`
	CompletedCount  int    `db:"completed_count" json:"completed_count"`
}

// TrainerDashboard summarises a trainer's own courses.
type TrainerDashboard struct {
	Courses []TrainerCourseStats `json:"courses"`
}

// StudentCourseProgress carries progress for one enrolled course.
type StudentCourseProgress struct {
	CourseID          int64   `json:"course_id"`
	CourseTitle       string  `json:"course_title"`
	CourseSlug        string  `json:"course_slug"`
	TotalChapters     int     `json:"total_chapters"`
	CompletedChapters int     `json:"completed_chapters"`
	Percentage        float64 `json:"percentage"`
	Completed         bool    `json:"completed"`
}

// StudentDashboard summarises a student's active learning.
type StudentDashboard struct {
	Courses []StudentCourseProgress `json:"courses"`
}
