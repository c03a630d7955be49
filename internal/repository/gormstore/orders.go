package gormstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/utils"
)

type orderRepo struct{ db *gorm.DB }

func (r orderRepo) Create(ctx context.Context, order *models.Order) error {
	return create(ctx, r.db, order)
}

func (r orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("License").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r orderRepo) GetByIdempotencyKey(ctx context.Context, buyerID uuid.UUID, key string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("License").
		Where("buyer_id = ? AND idempotency_key = ?", buyerID, key).
		First(&order).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r orderRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, page utils.PaginationParams) ([]models.Order, int64, error) {
	byBuyer := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Order{}).Where("buyer_id = ?", buyerID)
	}

	var total int64
	if err := byBuyer().Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	orders := []models.Order{}
	err := byBuyer().
		Preload("Product").
		Preload("License").
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&orders).Error
	return orders, total, translate(err)
}

func (r orderRepo) FindCompleted(ctx context.Context, buyerID, productID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND product_id = ? AND status = ?", buyerID, productID, models.OrderStatusCompleted).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, translate(err)
}

func (r orderRepo) ListCompletedWithoutLicense(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", models.OrderStatusCompleted).
		Where("NOT EXISTS (SELECT 1 FROM licenses l WHERE l.order_id = orders.id AND l.deleted_at IS NULL)").
		Order("created_at ASC").
		Find(&orders).Error
	return orders, translate(err)
}

func (r orderRepo) MarkRefunded(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderStatusCompleted).
		Updates(map[string]interface{}{
			"status":        models.OrderStatusRefunded,
			"refund_reason": reason,
			"refunded_at":   at,
		})
	return affected(result)
}

type licenseRepo struct{ db *gorm.DB }

func (r licenseRepo) Create(ctx context.Context, license *models.License) error {
	return create(ctx, r.db, license)
}

func (r licenseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.License, error) {
	var license models.License
	if err := r.db.WithContext(ctx).Preload("Product").First(&license, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &license, nil
}

func (r licenseRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.License, error) {
	var license models.License
	if err := r.db.WithContext(ctx).Preload("Product").First(&license, "order_id = ?", orderID).Error; err != nil {
		return nil, translate(err)
	}
	return &license, nil
}

func (r licenseRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.License, error) {
	licenses := []models.License{}
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&licenses).Error
	return licenses, translate(err)
}

func (r licenseRepo) Deactivate(ctx context.Context, orderID uuid.UUID) error {
	return affected(r.db.WithContext(ctx).Model(&models.License{}).Where("order_id = ?", orderID).Update("is_active", false))
}
