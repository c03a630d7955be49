// internal/services/favorite_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/session"
)

type FavoriteService struct {
	store repository.Store
}

func NewFavoriteService(store repository.Store) *FavoriteService {
	return &FavoriteService{store: store}
}

func (s *FavoriteService) List(ctx context.Context, sess *session.Session) ([]models.Favorite, error) {
	if sess == nil {
		return nil, ErrAuthenticationRequired
	}

	favorites, err := s.store.Favorites().ListByProfile(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return favorites, nil
}

// Add is idempotent: favoriting twice keeps one entry.
func (s *FavoriteService) Add(ctx context.Context, sess *session.Session, productID uuid.UUID) error {
	if sess == nil {
		return ErrAuthenticationRequired
	}

	product, err := s.store.Products().GetByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load product: %w", err)
	}
	if !product.IsPublished() {
		return ErrNotFound
	}

	err = s.store.Favorites().Add(ctx, &models.Favorite{ProfileID: sess.UserID, ProductID: productID})
	if err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (s *FavoriteService) Remove(ctx context.Context, sess *session.Session, productID uuid.UUID) error {
	if sess == nil {
		return ErrAuthenticationRequired
	}

	err := s.store.Favorites().Remove(ctx, sess.UserID, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}
