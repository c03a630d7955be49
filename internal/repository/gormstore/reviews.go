package gormstore

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/botscript-backend/internal/models"
)

type reviewRepo struct{ db *gorm.DB }

func (r reviewRepo) Create(ctx context.Context, review *models.Review) error {
	return create(ctx, r.db, review)
}

func (r reviewRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	reviews := []models.Review{}
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, translate(err)
}

func (r reviewRepo) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).Where("order_id = ?", orderID).Count(&count).Error
	return count > 0, translate(err)
}

func (r reviewRepo) Aggregate(ctx context.Context, productID uuid.UUID) (float64, int64, error) {
	var row struct {
		Avg   float64
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Scan(&row).Error
	return row.Avg, row.Count, translate(err)
}

type favoriteRepo struct{ db *gorm.DB }

func (r favoriteRepo) Add(ctx context.Context, favorite *models.Favorite) error {
	return create(ctx, r.db, favorite)
}

// Remove hard-deletes so the unique (profile, product) pair can be added again.
func (r favoriteRepo) Remove(ctx context.Context, profileID, productID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("profile_id = ? AND product_id = ?", profileID, productID).
		Delete(&models.Favorite{})
	return affected(result)
}

func (r favoriteRepo) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Favorite, error) {
	favorites := []models.Favorite{}
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Find(&favorites).Error
	return favorites, translate(err)
}
