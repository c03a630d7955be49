// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/botscript-backend/internal/i18n"
	"github.com/javajoker/botscript-backend/internal/services"
	"github.com/javajoker/botscript-backend/internal/session"
	"github.com/javajoker/botscript-backend/internal/utils"
)

// IdempotencyHeader carries the client's checkout attempt key.
const IdempotencyHeader = "Idempotency-Key"

type CheckoutHandler struct {
	checkoutService *services.CheckoutService
}

func NewCheckoutHandler(checkoutService *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// POST /products/:id/checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	productID, ok := paramID(c, "id", i18n.KeyProductNotFound)
	if !ok {
		return
	}

	var req services.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyHeader)

	result, err := h.checkoutService.Checkout(c.Request.Context(), session.Current(c), productID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	response := gin.H{
		"message":           i18n.T(lang, i18n.KeyCheckoutSuccess),
		"order":             result.Order,
		"license":           result.License,
		"replayed":          result.Replayed,
		"redirect":          result.Redirect,
		"redirect_after_ms": result.RedirectAfterMs,
	}

	// A replay returns the original purchase without creating anything
	if result.Replayed {
		utils.SuccessResponse(c, response)
		return
	}
	utils.CreatedResponse(c, response)
}
