// internal/handlers/license.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/botscript-backend/internal/i18n"
	"github.com/javajoker/botscript-backend/internal/services"
	"github.com/javajoker/botscript-backend/internal/session"
	"github.com/javajoker/botscript-backend/internal/utils"
)

type LicenseHandler struct {
	licenseService *services.LicenseService
}

func NewLicenseHandler(licenseService *services.LicenseService) *LicenseHandler {
	return &LicenseHandler{
		licenseService: licenseService,
	}
}

// GET /licenses
func (h *LicenseHandler) GetUserLicenses(c *gin.Context) {
	licenses, err := h.licenseService.GetUserLicenses(c.Request.Context(), session.Current(c))
	if err != nil {
		respondError(c, err, i18n.KeyLicenseNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"licenses": licenses,
		"total":    len(licenses),
	})
}

// GET /licenses/:id/download
func (h *LicenseHandler) Download(c *gin.Context) {
	licenseID, ok := paramID(c, "id", i18n.KeyLicenseNotFound)
	if !ok {
		return
	}

	link, err := h.licenseService.Download(c.Request.Context(), session.Current(c), licenseID)
	if err != nil {
		respondError(c, err, i18n.KeyLicenseNotFound)
		return
	}

	utils.SuccessResponse(c, link)
}
