// internal/services/review_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/session"
	"github.com/javajoker/botscript-backend/internal/utils"
)

type ReviewService struct {
	store repository.Store
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Title   string `json:"title,omitempty" validate:"omitempty,max=255"`
	Comment string `json:"comment" validate:"required,max=5000"`
}

func NewReviewService(store repository.Store) *ReviewService {
	return &ReviewService{store: store}
}

// CreateReview attaches the review to the buyer's first completed, not yet
// reviewed order of the product and recomputes the product rating in the same
// transaction.
func (s *ReviewService) CreateReview(ctx context.Context, sess *session.Session, productID uuid.UUID, req *CreateReviewRequest) (*models.Review, error) {
	if sess == nil {
		return nil, ErrAuthenticationRequired
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	if _, err := s.store.Products().GetByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	review := &models.Review{
		ProductID: productID,
		BuyerID:   sess.UserID,
		Rating:    req.Rating,
		Title:     strings.TrimSpace(req.Title),
		Comment:   strings.TrimSpace(req.Comment),
	}

	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		orderID, err := s.reviewableOrder(ctx, tx, sess.UserID, productID)
		if err != nil {
			return err
		}
		review.OrderID = orderID

		if err := tx.Reviews().Create(ctx, review); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: order already reviewed", ErrConflict)
			}
			return fmt.Errorf("failed to create review: %w", err)
		}

		return RecomputeRating(ctx, tx, productID)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"review_id":  review.ID,
		"product_id": productID,
		"rating":     review.Rating,
	}).Info("Review created")

	return review, nil
}

func (s *ReviewService) ListReviews(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	reviews, err := s.store.Reviews().ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

func (s *ReviewService) reviewableOrder(ctx context.Context, tx repository.Store, buyerID, productID uuid.UUID) (uuid.UUID, error) {
	orders, err := tx.Orders().FindCompleted(ctx, buyerID, productID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load orders: %w", err)
	}
	if len(orders) == 0 {
		return uuid.Nil, fmt.Errorf("%w: only buyers of this product can review it", ErrForbidden)
	}

	for _, order := range orders {
		reviewed, err := tx.Reviews().ExistsForOrder(ctx, order.ID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to check reviews: %w", err)
		}
		if !reviewed {
			return order.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("%w: every order of this product is already reviewed", ErrConflict)
}

// RecomputeRating stores the rating average (2 decimals) and count derived
// from the product's reviews.
func RecomputeRating(ctx context.Context, store repository.Store, productID uuid.UUID) error {
	avg, count, err := store.Reviews().Aggregate(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	if err := store.Products().UpdateRating(ctx, productID, utils.RoundMoney(avg), count); err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	return nil
}
