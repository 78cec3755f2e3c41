package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formacademy/formacademy-api/internal/models"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
	"github.com/formacademy/formacademy-api/pkg/response"
)

type dashboardService interface {
	Admin(ctx context.Context) (*models.AdminDashboard, error)
	Trainer(ctx context.Context, trainerID string) (*models.TrainerDashboard, error)
	Student(ctx context.Context, studentID string) (*models.StudentDashboard, error)
}

type rosterExporter interface {
	CourseRoster(ctx context.Context, courseID int64, claims *models.JWTClaims) ([]byte, string, error)
}

// DashboardHandler exposes role-specific dashboard endpoints.
type DashboardHandler struct {
	service dashboardService
	export  rosterExporter
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc dashboardService, export rosterExporter) *DashboardHandler {
	return &DashboardHandler{service: svc, export: export}
}

// Admin godoc
// @Summary Admin dashboard
// @Description Platform-wide activity counters
// @Tags Dashboards
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboards/admin [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if claims.Role != models.RoleAdmin && claims.Role != models.RoleSubAdmin {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	dashboard, err := h.service.Admin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// Trainer godoc
// @Summary Trainer dashboard
// @Description Per-course activity for the calling trainer
// @Tags Dashboards
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboards/trainer [get]
func (h *DashboardHandler) Trainer(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if claims.Role == models.RoleStudent {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	trainerID := claims.UserID
	if claims.Role == models.RoleAdmin || claims.Role == models.RoleSubAdmin {
		if requested := c.Query("trainer_id"); requested != "" {
			trainerID = requested
		}
	}

	dashboard, err := h.service.Trainer(c.Request.Context(), trainerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// Student godoc
// @Summary Student dashboard
// @Description Progress across every course the calling student is enrolled in
// @Tags Dashboards
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboards/student [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	dashboard, err := h.service.Student(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// ExportRoster godoc
// @Summary Export course roster
// @Description Download the enrollment roster of a course as CSV
// @Tags Dashboards
// @Produce text/csv
// @Param id path int true "Course ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/roster.csv [get]
func (h *DashboardHandler) ExportRoster(c *gin.Context) {
	courseID, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identifiant de formation invalide"))
		return
	}

	data, filename, err := h.export.CourseRoster(c.Request.Context(), courseID, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
