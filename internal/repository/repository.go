// internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/utils"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Store groups the repositories backed by one database handle. Inside
// WithinTransaction the callback receives a Store bound to the transaction;
// returning an error from the callback rolls back every write made through it.
type Store interface {
	Users() UserRepository
	Profiles() ProfileRepository
	Products() ProductRepository
	Orders() OrderRepository
	Licenses() LicenseRepository
	Reviews() ReviewRepository
	Favorites() FavoriteRepository
	AuditLogs() AuditLogRepository

	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	// Update writes the editable profile fields (username, full name,
	// avatar, bio).
	Update(ctx context.Context, profile *models.Profile) error
	UsernameTaken(ctx context.Context, username string) (bool, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// ListPublished returns published products matching the filter, ordered
	// by filter.Sort.
	ListPublished(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	// IncrementSales adds one sale and one download in a single statement.
	IncrementSales(ctx context.Context, id uuid.UUID) error
	UpdateRating(ctx context.Context, id uuid.UUID, avg float64, count int64) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByIdempotencyKey(ctx context.Context, buyerID uuid.UUID, key string) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, page utils.PaginationParams) ([]models.Order, int64, error)
	FindCompleted(ctx context.Context, buyerID, productID uuid.UUID) ([]models.Order, error)
	// ListCompletedWithoutLicense returns completed orders no license points to.
	ListCompletedWithoutLicense(ctx context.Context) ([]models.Order, error)
	// MarkRefunded moves a completed order to refunded. It returns ErrNotFound
	// when no completed order has that id.
	MarkRefunded(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
}

type LicenseRepository interface {
	Create(ctx context.Context, license *models.License) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.License, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.License, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.License, error)
	Deactivate(ctx context.Context, orderID uuid.UUID) error
}

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error)
	ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	Aggregate(ctx context.Context, productID uuid.UUID) (avg float64, count int64, err error)
}

type FavoriteRepository interface {
	Add(ctx context.Context, favorite *models.Favorite) error
	Remove(ctx context.Context, profileID, productID uuid.UUID) error
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Favorite, error)
}

type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}
