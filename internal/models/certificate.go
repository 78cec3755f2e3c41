package models

import "time"

// Certificate is issued once per (student, course) when the course is
// completed. FilePath is relative to the certificate storage directory.
type Certificate struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	CourseID     int64     `db:"course_id" json:"course_id"`
	SerialNumber string    `db:"serial_number" json:"serial_number"`
	FilePath     string    `db:"file_path" json:"-"`
	IssuedAt     time.Time `db:"issued_at" json:"issued_at"`
}

// CertificateDetail augments a certificate with joined context.
type CertificateDetail struct {
	Certificate
	StudentName string `db:"student_name" json:"student_name"`
	CourseTitle string `db:"course_title" json:"course_title"`
}
