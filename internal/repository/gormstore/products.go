package gormstore

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
)

// productColumns are the seller-editable columns written by Update.
var productColumns = []string{
	"title", "subtitle", "description", "category", "price", "image_url",
	"gallery_urls", "file_url", "file_key", "version", "status", "tags",
}

type productRepo struct{ db *gorm.DB }

func (r productRepo) Create(ctx context.Context, product *models.Product) error {
	return create(ctx, r.db, product)
}

func (r productRepo) Update(ctx context.Context, product *models.Product) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", product.ID).
		Select(productColumns).
		Updates(product)
	return affected(result)
}

func (r productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Seller").First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r productRepo) ListPublished(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Preload("Seller").
		Where("status = ?", models.ProductStatusPublished)

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	products := []models.Product{}
	err := query.Order(filter.Sort.OrderClause()).Order("created_at ASC").Find(&products).Error
	return products, translate(err)
}

func (r productRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	products := []models.Product{}
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&products).Error
	return products, translate(err)
}

func (r productRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Product{}).Order("created_at ASC").Pluck("id", &ids).Error
	return ids, translate(err)
}

func (r productRepo) IncrementSales(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sales":     gorm.Expr("sales + 1"),
			"downloads": gorm.Expr("downloads + 1"),
		})
	return affected(result)
}

func (r productRepo) UpdateRating(ctx context.Context, id uuid.UUID, avg float64, count int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"rating_avg":   avg,
			"rating_count": count,
		})
	return affected(result)
}
