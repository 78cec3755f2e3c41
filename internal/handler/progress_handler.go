package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formacademy/formacademy-api/internal/models"
	"github.com/formacademy/formacademy-api/internal/service"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
	"github.com/formacademy/formacademy-api/pkg/response"
)

// ProgressHandler exposes chapter completion and progress endpoints.
type ProgressHandler struct {
	service    *service.ProgressService
	dashboards *service.DashboardService
}

// NewProgressHandler creates a new handler.
func NewProgressHandler(svc *service.ProgressService, dashboards *service.DashboardService) *ProgressHandler {
	return &ProgressHandler{service: svc, dashboards: dashboards}
}

// CompleteChapter godoc
// @Summary Mark chapter completed
// @Description Record completion of a chapter by the calling student; idempotent
// @Tags Progress
// @Produce json
// @Param id path int true "Chapter ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /chapters/{id}/complete [post]
func (h *ProgressHandler) CompleteChapter(c *gin.Context) {
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

	progress, err := h.service.MarkChapterCompleted(c.Request.Context(), claims.UserID, chapterID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.dashboards != nil {
		h.dashboards.InvalidateStudent(c.Request.Context(), claims.UserID)
		h.dashboards.InvalidateCourseStats(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// CourseProgress godoc
// @Summary Course progress
// @Description Per-module completion breakdown for the calling student
// @Tags Progress
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/progress [get]
func (h *ProgressHandler) CourseProgress(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	courseID, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de formation invalide"))
		return
	}

	studentID := claims.UserID
	if claims.Role != models.RoleStudent {
		if requested := c.Query("student_id"); requested != "" {
			studentID = requested
		}
	}

	progress, err := h.service.CourseProgress(c.Request.Context(), studentID, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}
