package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/formacademy/formacademy-api/internal/models"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
)

type progressRepository interface {
	MarkCompleted(ctx context.Context, studentID string, chapterID int64) error
	CourseCounts(ctx context.Context, studentID string, courseID int64) (int, int, error)
	ModuleCounts(ctx context.Context, studentID string, courseID int64) ([]models.ModuleChapterCount, error)
	CompletedChapterIDs(ctx context.Context, studentID string, courseID int64) ([]int64, error)
}

type progressEnrollmentRepository interface {
	FindByStudentAndCourse(ctx context.Context, studentID string, courseID int64) (*models.Enrollment, error)
	MarkCompleted(ctx context.Context, id string, completedAt time.Time) error
}

type progressChapterLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Chapter, error)
}

// CourseCompletionListener is notified when a student finishes the last
// chapter of a course.
type CourseCompletionListener interface {
	OnCourseCompleted(ctx context.Context, studentID string, courseID int64)
}

// ProgressService tracks chapter completion and derives course completion
// from it.
type ProgressService struct {
	repo        progressRepository
	enrollments progressEnrollmentRepository
	chapters    progressChapterLookup
	modules     chapterModuleLookup
	listener    CourseCompletionListener
	logger      *zap.Logger
}

// NewProgressService constructs a ProgressService. The listener may be nil.
func NewProgressService(repo progressRepository, enrollments progressEnrollmentRepository, chapters progressChapterLookup, modules chapterModuleLookup, listener CourseCompletionListener, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{repo: repo, enrollments: enrollments, chapters: chapters, modules: modules, listener: listener, logger: logger}
}

// MarkChapterCompleted records completion of a chapter by the calling
// student. Assessable chapters cannot be completed this way; they complete
// through a passing quiz attempt. Marking an already completed chapter is a
// no-op.
func (s *ProgressService) MarkChapterCompleted(ctx context.Context, studentID string, chapterID int64) (*models.CourseProgress, error) {
	chapter, err := s.chapters.FindByID(ctx, chapterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "chapitre introuvable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement du chapitre")
	}

	if chapter.ContentType.Assessable() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ce chapitre se valide en réussissant son évaluation")
	}

	return s.complete(ctx, studentID, chapter)
}

// CompleteAssessedChapter records completion after a passing quiz attempt.
func (s *ProgressService) CompleteAssessedChapter(ctx context.Context, studentID string, chapter *models.Chapter) (*models.CourseProgress, error) {
	return s.complete(ctx, studentID, chapter)
}

// CourseProgress returns the student's completion breakdown for a course.
func (s *ProgressService) CourseProgress(ctx context.Context, studentID string, courseID int64) (*models.CourseProgress, error) {
	if _, err := s.requireEnrollment(ctx, studentID, courseID); err != nil {
		return nil, err
	}

	counts, err := s.repo.ModuleCounts(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du calcul de la progression")
	}

	progress := &models.CourseProgress{CourseID: courseID, Modules: make([]models.ModuleProgress, 0, len(counts))}
	for _, c := range counts {
		mp := models.ModuleProgress{
			ModuleID:          c.ModuleID,
			ModuleTitle:       c.ModuleTitle,
			TotalChapters:     c.Total,
			CompletedChapters: c.Completed,
		}
		if c.Total > 0 {
			mp.Percentage = float64(c.Completed) / float64(c.Total) * 100
		}
		progress.Modules = append(progress.Modules, mp)
		progress.TotalChapters += c.Total
		progress.CompletedChapters += c.Completed
	}
	if progress.TotalChapters > 0 {
		progress.Percentage = float64(progress.CompletedChapters) / float64(progress.TotalChapters) * 100
	}

	return progress, nil
}

// CompletedChapterIDs lists the chapters the student finished in a course.
func (s *ProgressService) CompletedChapterIDs(ctx context.Context, studentID string, courseID int64) ([]int64, error) {
	ids, err := s.repo.CompletedChapterIDs(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération de la progression")
	}
	return ids, nil
}

func (s *ProgressService) complete(ctx context.Context, studentID string, chapter *models.Chapter) (*models.CourseProgress, error) {
	module, err := s.modules.FindByID(ctx, chapter.ModuleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module introuvable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement du module")
	}

	enrollment, err := s.requireEnrollment(ctx, studentID, module.CourseID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkCompleted(ctx, studentID, chapter.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de l'enregistrement de la progression")
	}

	total, completed, err := s.repo.CourseCounts(ctx, studentID, module.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du calcul de la progression")
	}

	progress := &models.CourseProgress{
		CourseID:          module.CourseID,
		TotalChapters:     total,
		CompletedChapters: completed,
	}
	if total > 0 {
		progress.Percentage = float64(completed) / float64(total) * 100
	}

	if total > 0 && completed == total && enrollment.CompletedAt == nil {
		if err := s.enrollments.MarkCompleted(ctx, enrollment.ID, time.Now().UTC()); err != nil {
			s.logger.Warn("failed to mark enrollment completed",
				zap.String("enrollment_id", enrollment.ID), zap.Error(err))
		} else if s.listener != nil {
			s.listener.OnCourseCompleted(ctx, studentID, module.CourseID)
		}
	}

	return progress, nil
}

func (s *ProgressService) requireEnrollment(ctx context.Context, studentID string, courseID int64) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "vous n'êtes pas inscrit à cette formation")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la vérification de l'inscription")
	}
	return enrollment, nil
}
