package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formacademy/formacademy-api/internal/service"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
	"github.com/formacademy/formacademy-api/pkg/response"
)

// ChapterHandler exposes chapter endpoints within a module.
type ChapterHandler struct {
	service *service.ChapterService
}

// NewChapterHandler creates a new handler.
func NewChapterHandler(svc *service.ChapterService) *ChapterHandler {
	return &ChapterHandler{service: svc}
}

// ListByModule godoc
// @Summary List module chapters
// @Tags Chapters
// @Produce json
// @Param id path int true "Module ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /modules/{id}/chapters [get]
func (h *ChapterHandler) ListByModule(c *gin.Context) {
	moduleID, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de module invalide"))
		return
	}

	chapters, err := h.service.ListByModule(c.Request.Context(), moduleID, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, chapters, nil)
}

// Get godoc
// @Summary Get chapter
// @Tags Chapters
// @Produce json
// @Param id path int true "Chapter ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /chapters/{id} [get]
func (h *ChapterHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de chapitre invalide"))
		return
	}

	chapter, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, chapter, nil)
}

// Create godoc
// @Summary Create chapter
// @Description Append a chapter at the end of the module
// @Tags Chapters
// @Accept json
// @Produce json
// @Param id path int true "Module ID"
// @Param payload body service.ChapterRequest true "Chapter payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /modules/{id}/chapters [post]
func (h *ChapterHandler) Create(c *gin.Context) {
	moduleID, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de module invalide"))
		return
	}

	var req service.ChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "données du chapitre invalides"))
		return
	}

	chapter, err := h.service.Create(c.Request.Context(), moduleID, req, claimsFromContext(c), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, chapter)
}

// Update godoc
// @Summary Update chapter
// @Tags Chapters
// @Accept json
// @Produce json
// @Param id path int true "Chapter ID"
// @Param payload body service.ChapterRequest true "Chapter payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /chapters/{id} [put]
func (h *ChapterHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de chapitre invalide"))
		return
	}

	var req service.ChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "données du chapitre invalides"))
		return
	}

	chapter, err := h.service.Update(c.Request.Context(), id, req, claimsFromContext(c), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, chapter, nil)
}

// Reorder godoc
// @Summary Reorder module chapters
// @Description Replace the sibling order; the list must contain every chapter of the module exactly once
// @Tags Chapters
// @Accept json
// @Produce json
// @Param id path int true "Module ID"
// @Param payload body service.ReorderRequest true "Ordered chapter IDs"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /modules/{id}/chapters/reorder [put]
func (h *ChapterHandler) Reorder(c *gin.Context) {
	moduleID, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de module invalide"))
		return
	}

	var req service.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "liste d'identifiants invalide"))
		return
	}

	chapters, err := h.service.Reorder(c.Request.Context(), moduleID, req, claimsFromContext(c), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, chapters, nil)
}

// Delete godoc
// @Summary Delete chapter
// @Description Delete a chapter with its progress records and quiz data
// @Tags Chapters
// @Produce json
// @Param id path int true "Chapter ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /chapters/{id} [delete]
func (h *ChapterHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de chapitre invalide"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, claimsFromContext(c), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
