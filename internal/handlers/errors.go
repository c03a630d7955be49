// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/botscript-backend/internal/i18n"
	"github.com/javajoker/botscript-backend/internal/services"
	"github.com/javajoker/botscript-backend/internal/utils"
)

// respondError maps a service error onto the response envelope.
// notFoundKey names the resource for 404 messages.
func respondError(c *gin.Context, err error, notFoundKey string) {
	lang := utils.GetLangFromContext(c)

	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		utils.ValidationErrorResponse(c, validationErr.Fields)
	case errors.Is(err, services.ErrAuthenticationRequired):
		utils.UnauthorizedResponse(c, "")
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.ErrorResponse(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", i18n.T(lang, i18n.KeyAuthInvalidCredentials), nil)
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, notFoundKey)
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, "")
	case errors.Is(err, services.ErrCheckoutInProgress):
		utils.ErrorResponse(c, http.StatusConflict, "CHECKOUT_IN_PROGRESS", i18n.T(lang, i18n.KeyCheckoutInProgress), nil)
	case errors.Is(err, services.ErrConflict):
		utils.ConflictResponse(c, "", err.Error())
	case errors.Is(err, services.ErrPaymentFailed):
		utils.ErrorResponse(c, http.StatusPaymentRequired, "PAYMENT_FAILED", i18n.T(lang, i18n.KeyPaymentFailed), nil)
	case errors.Is(err, services.ErrOrderCreation):
		utils.ErrorResponse(c, http.StatusInternalServerError, "ORDER_CREATION_FAILED", i18n.T(lang, i18n.KeyOrderCreationFailed), nil)
	case errors.Is(err, services.ErrLicenseCreation):
		utils.ErrorResponse(c, http.StatusInternalServerError, "LICENSE_CREATION_FAILED", i18n.T(lang, i18n.KeyLicenseCreationFailed), nil)
	case errors.Is(err, services.ErrInventoryUpdate):
		utils.ErrorResponse(c, http.StatusInternalServerError, "INVENTORY_UPDATE_FAILED", i18n.T(lang, i18n.KeyInventoryUpdateFailed), nil)
	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled service error")
		utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyInternal))
	}
}

// paramID parses a UUID path parameter. A malformed id is answered as not
// found.
func paramID(c *gin.Context, name, notFoundKey string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.NotFoundResponse(c, notFoundKey)
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}
