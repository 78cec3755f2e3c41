package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formacademy/formacademy-api/internal/service"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
	"github.com/formacademy/formacademy-api/pkg/response"
)

// QuizHandler exposes quiz question and attempt endpoints.
type QuizHandler struct {
	service *service.QuizService
}

// NewQuizHandler creates a new handler.
func NewQuizHandler(svc *service.QuizService) *QuizHandler {
	return &QuizHandler{service: svc}
}

// ListQuestions godoc
// @Summary List chapter questions
// @Description List the questions of an assessable chapter; correct answers are never returned
// @Tags Quizzes
// @Produce json
// @Param id path int true "Chapter ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /chapters/{id}/questions [get]
func (h *QuizHandler) ListQuestions(c *gin.Context) {
	chapterID, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de chapitre invalide"))
		return
	}

	questions, err := h.service.ListQuestions(c.Request.Context(), chapterID, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, questions, nil)
}

// CreateQuestion godoc
// @Summary Create question
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param id path int true "Chapter ID"
// @Param payload body service.QuizQuestionRequest true "Question payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /chapters/{id}/questions [post]
func (h *QuizHandler) CreateQuestion(c *gin.Context) {
	chapterID, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de chapitre invalide"))
		return
	}

	var req service.QuizQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "données de la question invalides"))
		return
	}

	question, err := h.service.CreateQuestion(c.Request.Context(), chapterID, req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, question)
}

// UpdateQuestion godoc
// @Summary Update question
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param id path int true "Question ID"
// @Param payload body service.QuizQuestionRequest true "Question payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /questions/{id} [put]
func (h *QuizHandler) UpdateQuestion(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de question invalide"))
		return
	}

	var req service.QuizQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "données de la question invalides"))
		return
	}

	question, err := h.service.UpdateQuestion(c.Request.Context(), id, req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, question, nil)
}

// DeleteQuestion godoc
// @Summary Delete question
// @Tags Quizzes
// @Produce json
// @Param id path int true "Question ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /questions/{id} [delete]
func (h *QuizHandler) DeleteQuestion(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de question invalide"))
		return
	}

	if err := h.service.DeleteQuestion(c.Request.Context(), id, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SubmitAttempt godoc
// @Summary Submit quiz attempt
// @Description Grade the student's answers; a passing attempt completes the chapter
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param id path int true "Chapter ID"
// @Param payload body service.SubmitAttemptRequest true "Answers indexed by question order"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /chapters/{id}/attempts [post]
func (h *QuizHandler) SubmitAttempt(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	chapterID, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de chapitre invalide"))
		return
	}

	var req service.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "réponses invalides"))
		return
	}

	result, err := h.service.SubmitAttempt(c.Request.Context(), chapterID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListAttempts godoc
// @Summary List quiz attempts
// @Description List the calling student's attempts on a chapter
// @Tags Quizzes
// @Produce json
// @Param id path int true "Chapter ID"
// @Success 200 {object} response.Envelope
// @Router /chapters/{id}/attempts [get]
func (h *QuizHandler) ListAttempts(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	chapterID, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de chapitre invalide"))
		return
	}

	attempts, err := h.service.ListAttempts(c.Request.Context(), chapterID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempts, nil)
}
