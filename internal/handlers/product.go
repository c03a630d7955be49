// internal/handlers/product.go
package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/botscript-backend/internal/i18n"
	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/services"
	"github.com/javajoker/botscript-backend/internal/session"
	"github.com/javajoker/botscript-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
	storageService *services.StorageService
}

func NewProductHandler(productService *services.ProductService, storageService *services.StorageService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		storageService: storageService,
	}
}

// GET /products
func (h *ProductHandler) Catalog(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	query := services.CatalogQuery{
		Category: c.Query("category"),
		Sort:     c.Query("sort"),
		Search:   c.Query("search"),
	}

	var invalid []utils.ValidationError
	for _, bound := range []struct {
		name string
		dst  **float64
	}{
		{"price_min", &query.PriceMin},
		{"price_max", &query.PriceMax},
	} {
		raw := strings.TrimSpace(c.Query(bound.name))
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value < 0 {
			invalid = append(invalid, utils.ValidationError{
				Field:   bound.name,
				Tag:     "numeric",
				Message: bound.name + " must be a non-negative number",
			})
			continue
		}
		*bound.dst = &value
	}
	if len(invalid) > 0 {
		utils.ValidationErrorResponse(c, invalid)
		return
	}

	products, err := h.productService.Catalog(c.Request.Context(), query)
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	response := gin.H{
		"products": products,
		"total":    len(products),
	}
	if len(products) == 0 {
		response["message"] = i18n.T(lang, i18n.KeyCatalogEmpty)
	}

	utils.SuccessResponse(c, response)
}

// GET /categories
func (h *ProductHandler) Categories(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{
		"categories": models.Categories,
	})
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	productID, ok := paramID(c, "id", i18n.KeyProductNotFound)
	if !ok {
		return
	}

	detail, err := h.productService.GetProduct(c.Request.Context(), session.Current(c), productID)
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	utils.SuccessResponse(c, detail)
}

// POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), session.Current(c), &req)
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductCreated),
		"product": product,
	})
}

// PUT /products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	productID, ok := paramID(c, "id", i18n.KeyProductNotFound)
	if !ok {
		return
	}

	var req services.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), session.Current(c), productID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductUpdated),
		"product": product,
	})
}

// POST /products/uploads
func (h *ProductHandler) UploadFiles(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	// Parse multipart form
	form, err := c.MultipartForm()
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
		return
	}

	kind := c.PostForm("kind")
	options, ok := h.storageService.SellerUploadOptions(kind, session.Current(c).UserID)
	if !ok {
		utils.ValidationErrorResponse(c, []utils.ValidationError{{
			Field:   "kind",
			Tag:     "oneof",
			Message: "kind must be one of: " + services.UploadKindImage + " " + services.UploadKindArchive,
		}})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "files"), nil)
		return
	}

	uploaded := make([]*services.UploadResult, 0, len(files))
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
			return
		}

		result, err := h.storageService.UploadFile(c.Request.Context(), file, fileHeader.Filename, fileHeader.Size,
			fileHeader.Header.Get("Content-Type"), options)
		file.Close()
		if err != nil {
			logrus.WithError(err).WithField("filename", fileHeader.Filename).Warn("Upload rejected")
			respondError(c, err, i18n.KeyNotFound)
			return
		}

		uploaded = append(uploaded, result)
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyFileUploadSuccess),
		"files":   uploaded,
	})
}

// GET /seller/products
func (h *ProductHandler) SellerProducts(c *gin.Context) {
	products, err := h.productService.ListSellerProducts(c.Request.Context(), session.Current(c))
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"products": products,
		"total":    len(products),
	})
}

// GET /seller/stats
func (h *ProductHandler) SellerStats(c *gin.Context) {
	stats, err := h.productService.SellerStats(c.Request.Context(), session.Current(c))
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	utils.SuccessResponse(c, stats)
}
