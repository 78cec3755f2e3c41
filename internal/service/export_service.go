package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/formacademy/formacademy-api/internal/models"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
	"github.com/formacademy/formacademy-api/pkg/export"
)

type exportProgressReader interface {
	CourseCounts(ctx context.Context, studentID string, courseID int64) (int, int, error)
}

// ExportService renders tabular exports of platform data.
type ExportService struct {
	enrollments dashboardEnrollmentLister
	courses     moduleCourseLookup
	progress    exportProgressReader
	csv         *export.CSVExporter
	logger      *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(enrollments dashboardEnrollmentLister, courses moduleCourseLookup, progress exportProgressReader, csv *export.CSVExporter, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{enrollments: enrollments, courses: courses, progress: progress, csv: csv, logger: logger}
}

// CourseRoster renders the enrollment roster of a course as CSV, one row per
// student with their progress. Trainers may only export their own courses.
func (s *ExportService) CourseRoster(ctx context.Context, courseID int64, claims *models.JWTClaims) ([]byte, string, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "formation introuvable")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement de la formation")
	}

	if claims != nil && claims.Role == models.RoleTrainer && course.TeacherID != claims.UserID {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "cette formation appartient à un autre formateur")
	}

	enrollments, _, err := s.enrollments.List(ctx, models.EnrollmentFilter{CourseID: courseID, PageSize: 10000})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération des inscriptions")
	}

	dataset := export.Dataset{
		Headers: []string{"nom", "email", "inscrit_le", "chapitres_termines", "chapitres_total", "progression", "termine_le"},
		Rows:    make([]map[string]string, 0, len(enrollments)),
	}

	for _, e := range enrollments {
		total, completed, err := s.progress.CourseCounts(ctx, e.StudentID, courseID)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du calcul de la progression")
		}

		percentage := ""
		if total > 0 {
			percentage = fmt.Sprintf("%.0f%%", float64(completed)/float64(total)*100)
		}
		completedAt := ""
		if e.CompletedAt != nil {
			completedAt = e.CompletedAt.Format("02/01/2006")
		}

		dataset.Rows = append(dataset.Rows, map[string]string{
			"nom":                e.StudentName,
			"email":              e.StudentEmail,
			"inscrit_le":         e.EnrolledAt.Format("02/01/2006"),
			"chapitres_termines": fmt.Sprintf("%d", completed),
			"chapitres_total":    fmt.Sprintf("%d", total),
			"progression":        percentage,
			"termine_le":         completedAt,
		})
	}

	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la génération du fichier CSV")
	}

	filename := fmt.Sprintf("inscriptions-%s-%s.csv", course.Slug, time.Now().UTC().Format("20060102"))
	return data, filename, nil
}
