// internal/handlers/auth.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/botscript-backend/internal/i18n"
	"github.com/javajoker/botscript-backend/internal/services"
	"github.com/javajoker/botscript-backend/internal/session"
	"github.com/javajoker/botscript-backend/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// POST /auth/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.SignUpRequest
	if !bindJSON(c, &req) {
		return
	}

	authResponse, err := h.authService.SignUp(c.Request.Context(), &req)
	if errors.Is(err, services.ErrConflict) {
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyAuthUserExists), err.Error())
		return
	}
	if err != nil {
		respondError(c, err, i18n.KeyNotFound)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyAuthSignUpSuccess),
		"user":       authResponse.User,
		"profile":    authResponse.Profile,
		"token":      authResponse.AccessToken,
		"token_type": authResponse.TokenType,
		"expires_in": authResponse.ExpiresIn,
		"expires_at": authResponse.ExpiresAt,
	})
}

// POST /auth/signin
func (h *AuthHandler) SignIn(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.SignInRequest
	if !bindJSON(c, &req) {
		return
	}

	authResponse, err := h.authService.SignIn(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, i18n.KeyNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyAuthSignInSuccess),
		"user":       authResponse.User,
		"profile":    authResponse.Profile,
		"token":      authResponse.AccessToken,
		"token_type": authResponse.TokenType,
		"expires_in": authResponse.ExpiresIn,
		"expires_at": authResponse.ExpiresAt,
	})
}

// POST /auth/signout
func (h *AuthHandler) SignOut(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	if err := h.authService.SignOut(c.Request.Context(), session.Current(c)); err != nil {
		respondError(c, err, i18n.KeyNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthSignOutSuccess),
	})
}

// GET /auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	view, err := h.authService.CurrentSession(c.Request.Context(), session.Current(c))
	if err != nil {
		respondError(c, err, i18n.KeyUserNotFound)
		return
	}

	utils.SuccessResponse(c, view)
}
