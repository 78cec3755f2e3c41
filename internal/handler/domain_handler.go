package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formacademy/formacademy-api/internal/service"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
	"github.com/formacademy/formacademy-api/pkg/response"
)

// DomainHandler exposes catalog domain endpoints.
type DomainHandler struct {
	service *service.DomainService
}

// NewDomainHandler creates a new handler.
func NewDomainHandler(svc *service.DomainService) *DomainHandler {
	return &DomainHandler{service: svc}
}

// List godoc
// @Summary List domains
// @Tags Domains
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /domains [get]
func (h *DomainHandler) List(c *gin.Context) {
	domains, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, domains, nil)
}

// Get godoc
// @Summary Get domain
// @Tags Domains
// @Produce json
// @Param id path int true "Domain ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /domains/{id} [get]
func (h *DomainHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de domaine invalide"))
		return
	}

	domain, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, domain, nil)
}

// Create godoc
// @Summary Create domain
// @Tags Domains
// @Accept json
// @Produce json
// @Param payload body service.DomainRequest true "Domain payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /domains [post]
func (h *DomainHandler) Create(c *gin.Context) {
	var req service.DomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "données du domaine invalides"))
		return
	}

	domain, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, domain)
}

// Update godoc
// @Summary Update domain
// @Tags Domains
// @Accept json
// @Produce json
// @Param id path int true "Domain ID"
// @Param payload body service.DomainRequest true "Domain payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /domains/{id} [put]
func (h *DomainHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de domaine invalide"))
		return
	}

	var req service.DomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "données du domaine invalides"))
		return
	}

	domain, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, domain, nil)
}

// Delete godoc
// @Summary Delete domain
// @Description Delete an empty domain
// @Tags Domains
// @Produce json
// @Param id path int true "Domain ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /domains/{id} [delete]
func (h *DomainHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de domaine invalide"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
