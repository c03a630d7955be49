// internal/handlers/favorite.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/botscript-backend/internal/i18n"
	"github.com/javajoker/botscript-backend/internal/services"
	"github.com/javajoker/botscript-backend/internal/session"
	"github.com/javajoker/botscript-backend/internal/utils"
)

type FavoriteHandler struct {
	favoriteService *services.FavoriteService
}

func NewFavoriteHandler(favoriteService *services.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{
		favoriteService: favoriteService,
	}
}

// GET /favorites
func (h *FavoriteHandler) List(c *gin.Context) {
	favorites, err := h.favoriteService.List(c.Request.Context(), session.Current(c))
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"favorites": favorites,
		"total":     len(favorites),
	})
}

// POST /favorites/:product_id
func (h *FavoriteHandler) Add(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	productID, ok := paramID(c, "product_id", i18n.KeyProductNotFound)
	if !ok {
		return
	}

	if err := h.favoriteService.Add(c.Request.Context(), session.Current(c), productID); err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyFavoriteAdded),
	})
}

// DELETE /favorites/:product_id
func (h *FavoriteHandler) Remove(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	productID, ok := paramID(c, "product_id", i18n.KeyProductNotFound)
	if !ok {
		return
	}

	if err := h.favoriteService.Remove(c.Request.Context(), session.Current(c), productID); err != nil {
		respondError(c, err, i18n.KeyNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyFavoriteRemoved),
	})
}
