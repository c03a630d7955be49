// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/session"
	"github.com/javajoker/botscript-backend/internal/utils"
)

// FileStore removes files a product no longer references.
type FileStore interface {
	DeleteFile(ctx context.Context, key string) error
	KeyFromURL(rawURL string) (string, bool)
}

type ProductService struct {
	store repository.Store
	files FileStore
}

// CatalogQuery mirrors the catalog query string. Nil bounds are open.
type CatalogQuery struct {
	Category string
	Sort     string
	Search   string
	PriceMin *float64
	PriceMax *float64
}

type CreateProductRequest struct {
	Title       string               `json:"title" validate:"required,min=3,max=255"`
	Subtitle    string               `json:"subtitle,omitempty" validate:"omitempty,max=255"`
	Description string               `json:"description" validate:"required,min=10"`
	Category    string               `json:"category" validate:"required,oneof=discord chrome twitch"`
	Price       *float64             `json:"price" validate:"required,gte=0"`
	Version     string               `json:"version" validate:"required,max=50"`
	Tags        string               `json:"tags,omitempty"`
	ImageURL    string               `json:"image_url,omitempty" validate:"omitempty,url"`
	GalleryURLs []string             `json:"gallery_urls,omitempty" validate:"omitempty,dive,url"`
	FileURL     string               `json:"file_url,omitempty" validate:"omitempty,url"`
	FileKey     string               `json:"file_key,omitempty"`
	Status      models.ProductStatus `json:"status,omitempty" validate:"omitempty,oneof=draft pending published"`
}

type UpdateProductRequest struct {
	Title       *string               `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Subtitle    *string               `json:"subtitle,omitempty" validate:"omitempty,max=255"`
	Description *string               `json:"description,omitempty" validate:"omitempty,min=10"`
	Category    *string               `json:"category,omitempty" validate:"omitempty,oneof=discord chrome twitch"`
	Price       *float64              `json:"price,omitempty" validate:"omitempty,gte=0"`
	Version     *string               `json:"version,omitempty" validate:"omitempty,max=50"`
	Tags        *string               `json:"tags,omitempty"`
	ImageURL    *string               `json:"image_url,omitempty" validate:"omitempty,url"`
	GalleryURLs []string              `json:"gallery_urls,omitempty" validate:"omitempty,dive,url"`
	FileURL     *string               `json:"file_url,omitempty" validate:"omitempty,url"`
	FileKey     *string               `json:"file_key,omitempty"`
	Status      *models.ProductStatus `json:"status,omitempty" validate:"omitempty,oneof=draft pending published"`
}

type ProductDetail struct {
	Product *models.Product `json:"product"`
	Reviews []models.Review `json:"reviews"`
}

type SellerStats struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalSales    int64   `json:"total_sales"`
	AverageRating float64 `json:"average_rating"`
	ProductCount  int     `json:"product_count"`
}

// NewProductService wires the catalog. files may be nil, in which case
// replaced files are left in place.
func NewProductService(store repository.Store, files FileStore) *ProductService {
	return &ProductService{store: store, files: files}
}

// Catalog returns published products. Category and sort are applied by the
// store; search and price bounds narrow the result afterwards. An empty
// result is not an error.
func (s *ProductService) Catalog(ctx context.Context, q CatalogQuery) ([]models.Product, error) {
	category, ok := repository.ParseCategory(q.Category)
	if !ok {
		return nil, newValidationError("category", "oneof", "category must be one of: all discord chrome twitch")
	}

	products, err := s.store.Products().ListPublished(ctx, repository.ProductFilter{
		Category: category,
		Sort:     repository.ParseProductSort(q.Sort),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return FilterProducts(products, q.Search, q.PriceMin, q.PriceMax), nil
}

// FilterProducts keeps products whose title or description contains search
// (case-insensitive) and whose price lies in [min, max]. Order is preserved.
func FilterProducts(products []models.Product, search string, min, max *float64) []models.Product {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			continue
		}
		if min != nil && p.Price < *min {
			continue
		}
		if max != nil && p.Price > *max {
			continue
		}
		out = append(out, p)
	}
	return out
}

// GetProduct returns a published product with its reviews, newest first.
// The owning seller may also see their unpublished products.
func (s *ProductService) GetProduct(ctx context.Context, sess *session.Session, id uuid.UUID) (*ProductDetail, error) {
	product, err := s.store.Products().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	if !product.IsPublished() && (sess == nil || sess.UserID != product.SellerID) {
		return nil, ErrNotFound
	}

	reviews, err := s.store.Reviews().ListByProduct(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}

	return &ProductDetail{Product: product, Reviews: reviews}, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, sess *session.Session, req *CreateProductRequest) (*models.Product, error) {
	if err := requireSeller(sess); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := checkFileKey(sess.UserID, req.FileKey); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.ProductStatusPublished
	}

	product := &models.Product{
		SellerID:    sess.UserID,
		Title:       strings.TrimSpace(req.Title),
		Subtitle:    strings.TrimSpace(req.Subtitle),
		Description: strings.TrimSpace(req.Description),
		Category:    models.ProductCategory(req.Category),
		Price:       utils.RoundMoney(*req.Price),
		ImageURL:    req.ImageURL,
		GalleryURLs: pq.StringArray(req.GalleryURLs),
		FileURL:     req.FileURL,
		FileKey:     req.FileKey,
		Version:     strings.TrimSpace(req.Version),
		Status:      status,
		Tags:        ParseTags(req.Tags),
	}

	if err := s.store.Products().Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"product_id": product.ID,
		"seller_id":  product.SellerID,
		"status":     product.Status,
	}).Info("Product created")

	return product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, sess *session.Session, id uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	if err := requireSeller(sess); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.FileKey != nil {
		if err := checkFileKey(sess.UserID, *req.FileKey); err != nil {
			return nil, err
		}
	}

	product, err := s.store.Products().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product.SellerID != sess.UserID {
		return nil, ErrForbidden
	}
	previousFileKey, previousImageURL := product.FileKey, product.ImageURL

	if req.Title != nil {
		product.Title = strings.TrimSpace(*req.Title)
	}
	if req.Subtitle != nil {
		product.Subtitle = strings.TrimSpace(*req.Subtitle)
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		product.Category = models.ProductCategory(*req.Category)
	}
	if req.Price != nil {
		product.Price = utils.RoundMoney(*req.Price)
	}
	if req.Version != nil {
		product.Version = strings.TrimSpace(*req.Version)
	}
	if req.Tags != nil {
		product.Tags = ParseTags(*req.Tags)
	}
	if req.ImageURL != nil {
		product.ImageURL = *req.ImageURL
	}
	if req.GalleryURLs != nil {
		product.GalleryURLs = pq.StringArray(req.GalleryURLs)
	}
	if req.FileURL != nil {
		product.FileURL = *req.FileURL
	}
	if req.FileKey != nil {
		product.FileKey = *req.FileKey
	}
	if req.Status != nil {
		product.Status = *req.Status
	}

	if err := s.store.Products().Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	if previousFileKey != product.FileKey {
		s.discard(ctx, product.ID, previousFileKey)
	}
	if previousImageURL != product.ImageURL && s.files != nil {
		if key, ok := s.files.KeyFromURL(previousImageURL); ok && strings.HasPrefix(key, imageFolder+"/") {
			s.discard(ctx, product.ID, key)
		}
	}

	return product, nil
}

// discard deletes a file the product stopped referencing. Failures leave an
// orphaned object and are only logged.
func (s *ProductService) discard(ctx context.Context, productID uuid.UUID, key string) {
	if s.files == nil || key == "" {
		return
	}
	logger := logrus.WithFields(logrus.Fields{"product_id": productID, "key": key})
	if err := s.files.DeleteFile(ctx, key); err != nil {
		logger.WithError(err).Warn("Failed to delete replaced product file")
		return
	}
	logger.Info("Replaced product file deleted")
}

// checkFileKey accepts only keys from the seller's own archive uploads.
func checkFileKey(sellerID uuid.UUID, key string) error {
	if key == "" {
		return nil
	}
	prefix := ArchiveKeyPrefix(sellerID)
	if !strings.HasPrefix(key, prefix) || len(key) == len(prefix) || strings.Contains(key, "..") {
		return newValidationError("file_key", "startswith", "file_key must reference one of your uploaded archives")
	}
	return nil
}

func (s *ProductService) ListSellerProducts(ctx context.Context, sess *session.Session) ([]models.Product, error) {
	if err := requireSeller(sess); err != nil {
		return nil, err
	}

	products, err := s.store.Products().ListBySeller(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seller products: %w", err)
	}
	return products, nil
}

// SellerStats aggregates the seller's products. Revenue is sales x price per
// product; the average rating counts unrated products as 0.
func (s *ProductService) SellerStats(ctx context.Context, sess *session.Session) (*SellerStats, error) {
	products, err := s.ListSellerProducts(ctx, sess)
	if err != nil {
		return nil, err
	}
	return ComputeSellerStats(products), nil
}

func ComputeSellerStats(products []models.Product) *SellerStats {
	stats := &SellerStats{ProductCount: len(products)}
	if len(products) == 0 {
		return stats
	}

	prices := make([]float64, len(products))
	sales := make([]int64, len(products))
	var ratingSum float64
	for i, p := range products {
		prices[i] = p.Price
		sales[i] = p.Sales
		stats.TotalSales += p.Sales
		ratingSum += p.RatingAvg
	}

	stats.TotalRevenue = utils.Revenue(prices, sales)
	stats.AverageRating = utils.RoundMoney(ratingSum / float64(len(products)))
	return stats
}

// ParseTags splits a comma separated list, trimming blanks.
func ParseTags(raw string) pq.StringArray {
	tags := pq.StringArray{}
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func requireSeller(sess *session.Session) error {
	if sess == nil {
		return ErrAuthenticationRequired
	}
	if !sess.IsSeller() {
		return ErrForbidden
	}
	return nil
}
