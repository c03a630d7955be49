package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/utils"
)

type orderRepo struct{ s *Store }

func (r orderRepo) Create(_ context.Context, order *models.Order) error {
	return r.s.update(func(d *dataset) error {
		for _, existing := range d.orders {
			if existing.OrderNumber == order.OrderNumber {
				return repository.ErrDuplicate
			}
			if order.IdempotencyKey != nil && existing.IdempotencyKey != nil &&
				existing.BuyerID == order.BuyerID && *existing.IdempotencyKey == *order.IdempotencyKey {
				return repository.ErrDuplicate
			}
		}
		if order.ID == uuid.Nil {
			order.ID = uuid.New()
		}
		now := d.stamp()
		order.CreatedAt, order.UpdatedAt = now, now
		stored := *order
		stored.Product, stored.License = nil, nil
		d.orders[order.ID] = stored
		d.orderSeq = append(d.orderSeq, order.ID)
		return nil
	})
}

func (r orderRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	var out models.Order
	err := r.s.view(func(d *dataset) error {
		order, ok := d.orders[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = d.withOrderRelations(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r orderRepo) GetByIdempotencyKey(_ context.Context, buyerID uuid.UUID, key string) (*models.Order, error) {
	var out *models.Order
	err := r.s.view(func(d *dataset) error {
		for _, id := range d.orderSeq {
			order := d.orders[id]
			if order.BuyerID == buyerID && order.IdempotencyKey != nil && *order.IdempotencyKey == key {
				found := d.withOrderRelations(order)
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r orderRepo) ListByBuyer(_ context.Context, buyerID uuid.UUID, page utils.PaginationParams) ([]models.Order, int64, error) {
	orders := []models.Order{}
	var total int64
	err := r.s.view(func(d *dataset) error {
		offset := page.Offset()
		for i := len(d.orderSeq) - 1; i >= 0; i-- {
			order := d.orders[d.orderSeq[i]]
			if order.BuyerID != buyerID {
				continue
			}
			total++
			if total <= int64(offset) || len(orders) >= page.Limit {
				continue
			}
			orders = append(orders, d.withOrderRelations(order))
		}
		return nil
	})
	return orders, total, err
}

func (r orderRepo) FindCompleted(_ context.Context, buyerID, productID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.s.view(func(d *dataset) error {
		for _, id := range d.orderSeq {
			order := d.orders[id]
			if order.BuyerID == buyerID && order.ProductID == productID && order.Status == models.OrderStatusCompleted {
				orders = append(orders, order)
			}
		}
		return nil
	})
	return orders, err
}

func (r orderRepo) ListCompletedWithoutLicense(_ context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.s.view(func(d *dataset) error {
		licensed := make(map[uuid.UUID]bool, len(d.licenses))
		for _, license := range d.licenses {
			licensed[license.OrderID] = true
		}
		for _, id := range d.orderSeq {
			order := d.orders[id]
			if order.Status == models.OrderStatusCompleted && !licensed[order.ID] {
				orders = append(orders, order)
			}
		}
		return nil
	})
	return orders, err
}

func (r orderRepo) MarkRefunded(_ context.Context, id uuid.UUID, reason string, at time.Time) error {
	return r.s.update(func(d *dataset) error {
		order, ok := d.orders[id]
		if !ok || order.Status != models.OrderStatusCompleted {
			return repository.ErrNotFound
		}
		order.Status = models.OrderStatusRefunded
		order.RefundReason = reason
		order.RefundedAt = &at
		order.UpdatedAt = d.stamp()
		d.orders[id] = order
		return nil
	})
}

func (d *dataset) withOrderRelations(order models.Order) models.Order {
	if product, ok := d.products[order.ProductID]; ok {
		order.Product = &product
	}
	for _, license := range d.licenses {
		if license.OrderID == order.ID {
			license := license
			order.License = &license
			break
		}
	}
	return order
}

type licenseRepo struct{ s *Store }

func (r licenseRepo) Create(_ context.Context, license *models.License) error {
	return r.s.update(func(d *dataset) error {
		for _, existing := range d.licenses {
			if existing.OrderID == license.OrderID || existing.LicenseKey == license.LicenseKey {
				return repository.ErrDuplicate
			}
		}
		if license.ID == uuid.Nil {
			license.ID = uuid.New()
		}
		now := d.stamp()
		license.CreatedAt, license.UpdatedAt = now, now
		stored := *license
		stored.Product = nil
		d.licenses[license.ID] = stored
		d.licenseSeq = append(d.licenseSeq, license.ID)
		return nil
	})
}

func (r licenseRepo) GetByID(_ context.Context, id uuid.UUID) (*models.License, error) {
	var out models.License
	err := r.s.view(func(d *dataset) error {
		license, ok := d.licenses[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = d.withLicenseProduct(license)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r licenseRepo) GetByOrderID(_ context.Context, orderID uuid.UUID) (*models.License, error) {
	var out *models.License
	err := r.s.view(func(d *dataset) error {
		for _, license := range d.licenses {
			if license.OrderID == orderID {
				found := d.withLicenseProduct(license)
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r licenseRepo) ListByBuyer(_ context.Context, buyerID uuid.UUID) ([]models.License, error) {
	licenses := []models.License{}
	err := r.s.view(func(d *dataset) error {
		for i := len(d.licenseSeq) - 1; i >= 0; i-- {
			license := d.licenses[d.licenseSeq[i]]
			if license.BuyerID == buyerID {
				licenses = append(licenses, d.withLicenseProduct(license))
			}
		}
		return nil
	})
	return licenses, err
}

func (r licenseRepo) Deactivate(_ context.Context, orderID uuid.UUID) error {
	return r.s.update(func(d *dataset) error {
		for id, license := range d.licenses {
			if license.OrderID == orderID {
				license.IsActive = false
				license.UpdatedAt = d.stamp()
				d.licenses[id] = license
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (d *dataset) withLicenseProduct(license models.License) models.License {
	if product, ok := d.products[license.ProductID]; ok {
		license.Product = &product
	}
	return license
}
