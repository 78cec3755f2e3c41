package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formacademy/formacademy-api/internal/models"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
)

// defaultPassingScore applies when an assessable chapter does not configure
// its own threshold.
const defaultPassingScore = 60

type quizRepository interface {
	ListQuestions(ctx context.Context, chapterID int64) ([]models.QuizQuestion, error)
	FindQuestion(ctx context.Context, id int64) (*models.QuizQuestion, error)
	CreateQuestion(ctx context.Context, question *models.QuizQuestion) error
	UpdateQuestion(ctx context.Context, question *models.QuizQuestion) error
	DeleteQuestion(ctx context.Context, id int64) error
	CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error
	ListAttempts(ctx context.Context, studentID string, chapterID int64) ([]models.QuizAttempt, error)
}

type attemptProgressRecorder interface {
	CompleteAssessedChapter(ctx context.Context, studentID string, chapter *models.Chapter) (*models.CourseProgress, error)
}

type attemptEnrollmentChecker interface {
	Exists(ctx context.Context, studentID string, courseID int64) (bool, error)
}

// QuizQuestionRequest is the payload for creating or updating a question.
type QuizQuestionRequest struct {
	Prompt       string   `json:"prompt" validate:"required,min=3"`
	Options      []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectIndex int      `json:"correct_index" validate:"gte=0"`
	Points       int      `json:"points" validate:"omitempty,gt=0"`
}

// SubmitAttemptRequest carries a student's answers, indexed by question
// order. -1 marks an unanswered question.
type SubmitAttemptRequest struct {
	Answers []int `json:"answers" validate:"required,min=1"`
}

// QuizService manages quiz questions and grades attempts.
type QuizService struct {
	repo        quizRepository
	chapters    progressChapterLookup
	modules     chapterModuleLookup
	courses     moduleCourseLookup
	enrollments attemptEnrollmentChecker
	progress    attemptProgressRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewQuizService constructs a QuizService.
func NewQuizService(repo quizRepository, chapters progressChapterLookup, modules chapterModuleLookup, courses moduleCourseLookup, enrollments attemptEnrollmentChecker, progress attemptProgressRecorder, validate *validator.Validate, logger *zap.Logger) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &QuizService{repo: repo, chapters: chapters, modules: modules, courses: courses, enrollments: enrollments, progress: progress, validator: validate, logger: logger}
}

// ListQuestions returns the ordered questions of an assessable chapter. The
// correct answers are never serialized in responses.
func (s *QuizService) ListQuestions(ctx context.Context, chapterID int64, claims *models.JWTClaims) ([]models.QuizQuestion, error) {
	if _, err := s.loadAssessableChapter(ctx, chapterID); err != nil {
		return nil, err
	}

	questions, err := s.repo.ListQuestions(ctx, chapterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération des questions")
	}
	return questions, nil
}

// CreateQuestion appends a question to an assessable chapter.
func (s *QuizService) CreateQuestion(ctx context.Context, chapterID int64, req QuizQuestionRequest, claims *models.JWTClaims) (*models.QuizQuestion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "données de la question invalides")
	}
	if req.CorrectIndex >= len(req.Options) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "l'indice de la bonne réponse est hors limites")
	}

	chapter, err := s.loadAssessableChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeChapter(ctx, chapter, claims); err != nil {
		return nil, err
	}

	points := req.Points
	if points <= 0 {
		points = 1
	}

	options, _ := json.Marshal(req.Options)
	question := &models.QuizQuestion{
		ChapterID:    chapterID,
		Prompt:       req.Prompt,
		Options:      options,
		CorrectIndex: req.CorrectIndex,
		Points:       points,
	}

	if err := s.repo.CreateQuestion(ctx, question); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la création de la question")
	}
	return question, nil
}

// UpdateQuestion modifies an existing question.
func (s *QuizService) UpdateQuestion(ctx context.Context, id int64, req QuizQuestionRequest, claims *models.JWTClaims) (*models.QuizQuestion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "données de la question invalides")
	}
	if req.CorrectIndex >= len(req.Options) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "l'indice de la bonne réponse est hors limites")
	}

	question, err := s.repo.FindQuestion(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question introuvable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement de la question")
	}

	chapter, err := s.loadAssessableChapter(ctx, question.ChapterID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeChapter(ctx, chapter, claims); err != nil {
		return nil, err
	}

	options, _ := json.Marshal(req.Options)
	question.Prompt = req.Prompt
	question.Options = options
	question.CorrectIndex = req.CorrectIndex
	if req.Points > 0 {
		question.Points = req.Points
	}

	if err := s.repo.UpdateQuestion(ctx, question); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la mise à jour de la question")
	}
	return question, nil
}

// DeleteQuestion removes a question.
func (s *QuizService) DeleteQuestion(ctx context.Context, id int64, claims *models.JWTClaims) error {
	question, err := s.repo.FindQuestion(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "question introuvable")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement de la question")
	}

	chapter, err := s.loadAssessableChapter(ctx, question.ChapterID)
	if err != nil {
		return err
	}
	if err := s.authorizeChapter(ctx, chapter, claims); err != nil {
		return err
	}

	if err := s.repo.DeleteQuestion(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "question introuvable")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la suppression de la question")
	}
	return nil
}

// SubmitAttempt grades the student's answers against the chapter's questions
// and records the attempt. The student must be enrolled in the owning course.
// A passing attempt also completes the chapter.
func (s *QuizService) SubmitAttempt(ctx context.Context, chapterID int64, studentID string, req SubmitAttemptRequest) (*models.QuizResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "réponses invalides")
	}

	chapter, err := s.loadAssessableChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	module, err := s.modules.FindByID(ctx, chapter.ModuleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement du module")
	}
	enrolled, err := s.enrollments.Exists(ctx, studentID, module.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la vérification de l'inscription")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "vous n'êtes pas inscrit à cette formation")
	}

	questions, err := s.repo.ListQuestions(ctx, chapterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération des questions")
	}
	if len(questions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ce chapitre ne contient aucune question")
	}
	if len(req.Answers) != len(questions) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "le nombre de réponses ne correspond pas au nombre de questions")
	}

	score, maxScore := 0, 0
	for i, q := range questions {
		maxScore += q.Points
		if req.Answers[i] == q.CorrectIndex {
			score += q.Points
		}
	}

	percentage := float64(0)
	if maxScore > 0 {
		percentage = float64(score) / float64(maxScore) * 100
	}
	passed := percentage >= float64(passingScore(chapter))

	answers, _ := json.Marshal(req.Answers)
	attempt := &models.QuizAttempt{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		ChapterID:   chapterID,
		Answers:     answers,
		Score:       score,
		MaxScore:    maxScore,
		Passed:      passed,
		SubmittedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateAttempt(ctx, attempt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de l'enregistrement de la tentative")
	}

	if passed && s.progress != nil {
		if _, err := s.progress.CompleteAssessedChapter(ctx, studentID, chapter); err != nil {
			s.logger.Warn("failed to complete chapter after passing attempt",
				zap.Int64("chapter_id", chapterID), zap.String("student_id", studentID), zap.Error(err))
		}
	}

	return &models.QuizResult{
		AttemptID:  attempt.ID,
		Score:      score,
		MaxScore:   maxScore,
		Percentage: percentage,
		Passed:     passed,
	}, nil
}

// ListAttempts returns a student's attempts on a chapter, newest first.
func (s *QuizService) ListAttempts(ctx context.Context, chapterID int64, studentID string) ([]models.QuizAttempt, error) {
	attempts, err := s.repo.ListAttempts(ctx, studentID, chapterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la récupération des tentatives")
	}
	return attempts, nil
}

func (s *QuizService) loadAssessableChapter(ctx context.Context, chapterID int64) (*models.Chapter, error) {
	chapter, err := s.chapters.FindByID(ctx, chapterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "chapitre introuvable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement du chapitre")
	}
	if !chapter.ContentType.Assessable() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ce chapitre ne comporte pas d'évaluation")
	}
	return chapter, nil
}

func (s *QuizService) authorizeChapter(ctx context.Context, chapter *models.Chapter, claims *models.JWTClaims) error {
	if claims == nil || claims.Role != models.RoleTrainer {
		return nil
	}

	module, err := s.modules.FindByID(ctx, chapter.ModuleID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement du module")
	}
	course, err := s.courses.FindByID(ctx, module.CourseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec du chargement de la formation")
	}
	if course.TeacherID != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "cette formation appartient à un autre formateur")
	}
	return nil
}

// passingScore reads the threshold from the chapter payload, falling back to
// the platform default.
func passingScore(chapter *models.Chapter) int {
	if len(chapter.Payload) == 0 {
		return defaultPassingScore
	}
	var p models.AssessmentPayload
	if err := json.Unmarshal(chapter.Payload, &p); err != nil || p.PassingScore <= 0 {
		return defaultPassingScore
	}
	return p.PassingScore
}
