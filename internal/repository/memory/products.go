package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
)

type productRepo struct{ s *Store }

func (r productRepo) Create(_ context.Context, product *models.Product) error {
	return r.s.update(func(d *dataset) error {
		if product.ID == uuid.Nil {
			product.ID = uuid.New()
		}
		if _, exists := d.products[product.ID]; exists {
			return repository.ErrDuplicate
		}
		now := d.stamp()
		product.CreatedAt, product.UpdatedAt = now, now
		stored := *product
		stored.Seller = nil
		d.products[product.ID] = stored
		d.productSeq = append(d.productSeq, product.ID)
		return nil
	})
}

func (r productRepo) Update(_ context.Context, product *models.Product) error {
	return r.s.update(func(d *dataset) error {
		stored, ok := d.products[product.ID]
		if !ok {
			return repository.ErrNotFound
		}
		// Counters and ratings are owned by checkout and reviews
		stored.Title = product.Title
		stored.Subtitle = product.Subtitle
		stored.Description = product.Description
		stored.Category = product.Category
		stored.Price = product.Price
		stored.ImageURL = product.ImageURL
		stored.GalleryURLs = product.GalleryURLs
		stored.FileURL = product.FileURL
		stored.FileKey = product.FileKey
		stored.Version = product.Version
		stored.Status = product.Status
		stored.Tags = product.Tags
		stored.UpdatedAt = d.stamp()
		d.products[product.ID] = stored
		product.CreatedAt, product.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
		return nil
	})
}

func (r productRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	var out models.Product
	err := r.s.view(func(d *dataset) error {
		product, ok := d.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = d.withSeller(product)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r productRepo) ListPublished(_ context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	products := []models.Product{}
	err := r.s.view(func(d *dataset) error {
		for _, id := range d.productSeq {
			product := d.products[id]
			if product.Status != models.ProductStatusPublished {
				continue
			}
			if filter.Category != "" && product.Category != filter.Category {
				continue
			}
			products = append(products, d.withSeller(product))
		}
		return nil
	})
	repository.SortProducts(products, filter.Sort)
	return products, err
}

func (r productRepo) ListBySeller(_ context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	products := []models.Product{}
	err := r.s.view(func(d *dataset) error {
		for i := len(d.productSeq) - 1; i >= 0; i-- {
			product := d.products[d.productSeq[i]]
			if product.SellerID == sellerID {
				products = append(products, product)
			}
		}
		return nil
	})
	return products, err
}

func (r productRepo) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.s.view(func(d *dataset) error {
		ids = append(ids, d.productSeq...)
		return nil
	})
	return ids, err
}

func (r productRepo) IncrementSales(_ context.Context, id uuid.UUID) error {
	return r.s.update(func(d *dataset) error {
		product, ok := d.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		product.Sales++
		product.Downloads++
		product.UpdatedAt = d.stamp()
		d.products[id] = product
		return nil
	})
}

func (r productRepo) UpdateRating(_ context.Context, id uuid.UUID, avg float64, count int64) error {
	return r.s.update(func(d *dataset) error {
		product, ok := d.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		product.RatingAvg = avg
		product.RatingCount = count
		product.UpdatedAt = d.stamp()
		d.products[id] = product
		return nil
	})
}

func (d *dataset) withSeller(product models.Product) models.Product {
	if seller, ok := d.profiles[product.SellerID]; ok {
		product.Seller = &seller
	}
	return product
}
