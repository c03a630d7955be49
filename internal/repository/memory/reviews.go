package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
)

type reviewRepo struct{ s *Store }

func (r reviewRepo) Create(_ context.Context, review *models.Review) error {
	return r.s.update(func(d *dataset) error {
		for _, existing := range d.reviews {
			if existing.OrderID == review.OrderID {
				return repository.ErrDuplicate
			}
		}
		if review.ID == uuid.Nil {
			review.ID = uuid.New()
		}
		now := d.stamp()
		review.CreatedAt, review.UpdatedAt = now, now
		d.reviews[review.ID] = *review
		d.reviewSeq = append(d.reviewSeq, review.ID)
		return nil
	})
}

func (r reviewRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]models.Review, error) {
	reviews := []models.Review{}
	err := r.s.view(func(d *dataset) error {
		for i := len(d.reviewSeq) - 1; i >= 0; i-- {
			review := d.reviews[d.reviewSeq[i]]
			if review.ProductID == productID {
				reviews = append(reviews, review)
			}
		}
		return nil
	})
	return reviews, err
}

func (r reviewRepo) ExistsForOrder(_ context.Context, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := r.s.view(func(d *dataset) error {
		for _, review := range d.reviews {
			if review.OrderID == orderID {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

func (r reviewRepo) Aggregate(_ context.Context, productID uuid.UUID) (float64, int64, error) {
	var sum, count int64
	err := r.s.view(func(d *dataset) error {
		for _, review := range d.reviews {
			if review.ProductID == productID {
				sum += int64(review.Rating)
				count++
			}
		}
		return nil
	})
	if err != nil || count == 0 {
		return 0, 0, err
	}
	return float64(sum) / float64(count), count, nil
}

type favoriteRepo struct{ s *Store }

func (r favoriteRepo) Add(_ context.Context, favorite *models.Favorite) error {
	return r.s.update(func(d *dataset) error {
		for _, existing := range d.favorites {
			if existing.ProfileID == favorite.ProfileID && existing.ProductID == favorite.ProductID {
				return repository.ErrDuplicate
			}
		}
		if favorite.ID == uuid.Nil {
			favorite.ID = uuid.New()
		}
		now := d.stamp()
		favorite.CreatedAt, favorite.UpdatedAt = now, now
		stored := *favorite
		stored.Product = nil
		d.favorites[favorite.ID] = stored
		d.favoriteSeq = append(d.favoriteSeq, favorite.ID)
		return nil
	})
}

func (r favoriteRepo) Remove(_ context.Context, profileID, productID uuid.UUID) error {
	return r.s.update(func(d *dataset) error {
		for i, id := range d.favoriteSeq {
			favorite := d.favorites[id]
			if favorite.ProfileID == profileID && favorite.ProductID == productID {
				delete(d.favorites, id)
				d.favoriteSeq = append(d.favoriteSeq[:i:i], d.favoriteSeq[i+1:]...)
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r favoriteRepo) ListByProfile(_ context.Context, profileID uuid.UUID) ([]models.Favorite, error) {
	favorites := []models.Favorite{}
	err := r.s.view(func(d *dataset) error {
		for i := len(d.favoriteSeq) - 1; i >= 0; i-- {
			favorite := d.favorites[d.favoriteSeq[i]]
			if favorite.ProfileID != profileID {
				continue
			}
			if product, ok := d.products[favorite.ProductID]; ok {
				favorite.Product = &product
			}
			favorites = append(favorites, favorite)
		}
		return nil
	})
	return favorites, err
}
