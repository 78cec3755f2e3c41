package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formacademy/formacademy-api/internal/models"
	"github.com/formacademy/formacademy-api/internal/service"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
	"github.com/formacademy/formacademy-api/pkg/response"
)

// CertificateHandler exposes certificate endpoints.
type CertificateHandler struct {
	service *service.CertificateService
}

// NewCertificateHandler creates a new handler.
func NewCertificateHandler(svc *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{service: svc}
}

// ListMine godoc
// @Summary List certificates
// @Description List the certificates of a student; students only see their own
// @Tags Certificates
// @Produce json
// @Param student_id query string false "Student ID (admins only)"
// @Success 200 {object} response.Envelope
// @Router /certificates [get]
func (h *CertificateHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	studentID := claims.UserID
	if claims.Role != models.RoleStudent {
		if requested := c.Query("student_id"); requested != "" {
			studentID = requested
		}
	}

	certs, err := h.service.ListForStudent(c.Request.Context(), studentID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, certs, nil)
}

// Get godoc
// @Summary Get certificate
// @Tags Certificates
// @Produce json
// @Param id path string true "Certificate ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificates/{id} [get]
func (h *CertificateHandler) Get(c *gin.Context) {
	cert, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cert, nil)
}

// DownloadURL godoc
// @Summary Signed download link
// @Description Issue a time-limited signed token for downloading the PDF
// @Tags Certificates
// @Produce json
// @Param id path string true "Certificate ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /certificates/{id}/download-url [get]
func (h *CertificateHandler) DownloadURL(c *gin.Context) {
	download, err := h.service.DownloadURL(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, download, nil)
}

// Download godoc
// @Summary Download certificate PDF
// @Description Stream the PDF referenced by a signed token; no session required
// @Tags Certificates
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /certificates/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "jeton de téléchargement manquant"))
		return
	}

	file, cert, err := h.service.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "échec de la lecture du certificat"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=certificat-%s.pdf", cert.SerialNumber))
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", file, nil)
}
