package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/utils"
)

func seedProduct(t *testing.T, store *Store, title string, price float64, sales int64, status models.ProductStatus) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID: uuid.New(),
		Title:    title,
		Category: models.CategoryDiscord,
		Price:    price,
		Sales:    sales,
		Status:   status,
	}
	require.NoError(t, store.Products().Create(context.Background(), product))
	return product
}

func TestListPublishedFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	store := New()

	seedProduct(t, store, "a", 9.99, 5, models.ProductStatusPublished)
	seedProduct(t, store, "b", 4.99, 50, models.ProductStatusPublished)
	seedProduct(t, store, "c", 19.99, 1, models.ProductStatusPublished)
	seedProduct(t, store, "draft", 1.00, 500, models.ProductStatusDraft)

	products, err := store.Products().ListPublished(ctx, repository.ProductFilter{Sort: repository.SortPopular})
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, []int64{50, 5, 1}, []int64{products[0].Sales, products[1].Sales, products[2].Sales})

	products, err = store.Products().ListPublished(ctx, repository.ProductFilter{Sort: repository.SortPriceAsc})
	require.NoError(t, err)
	assert.Equal(t, []float64{4.99, 9.99, 19.99}, []float64{products[0].Price, products[1].Price, products[2].Price})

	products, err = store.Products().ListPublished(ctx, repository.ProductFilter{Sort: repository.SortRecent})
	require.NoError(t, err)
	assert.Equal(t, "c", products[0].Title)

	products, err = store.Products().ListPublished(ctx, repository.ProductFilter{Category: models.CategoryTwitch})
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestWithinTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := New()
	product := seedProduct(t, store, "bot", 19.99, 0, models.ProductStatusPublished)
	boom := errors.New("boom")

	err := store.WithinTransaction(ctx, func(tx repository.Store) error {
		order := &models.Order{
			BuyerID:     uuid.New(),
			SellerID:    product.SellerID,
			ProductID:   product.ID,
			OrderNumber: "ORD-1-A",
			Status:      models.OrderStatusCompleted,
		}
		require.NoError(t, tx.Orders().Create(ctx, order))
		require.NoError(t, tx.Products().IncrementSales(ctx, product.ID))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	orders, err := store.Orders().ListCompletedWithoutLicense(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	reloaded, err := store.Products().GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Zero(t, reloaded.Sales)
	assert.Zero(t, reloaded.Downloads)
}

func TestWithinTransactionCommits(t *testing.T) {
	ctx := context.Background()
	store := New()
	product := seedProduct(t, store, "bot", 19.99, 0, models.ProductStatusPublished)
	buyerID := uuid.New()

	var orderID uuid.UUID
	err := store.WithinTransaction(ctx, func(tx repository.Store) error {
		order := &models.Order{BuyerID: buyerID, ProductID: product.ID, OrderNumber: "ORD-1-B", Status: models.OrderStatusCompleted}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		orderID = order.ID
		license := &models.License{OrderID: order.ID, ProductID: product.ID, BuyerID: buyerID, LicenseKey: "AAAAA-BBBBB-CCCCC-DDDDD", IsActive: true}
		if err := tx.Licenses().Create(ctx, license); err != nil {
			return err
		}
		return tx.Products().IncrementSales(ctx, product.ID)
	})
	require.NoError(t, err)

	order, err := store.Orders().GetByID(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, order.License)
	require.NotNil(t, order.Product)
	assert.Equal(t, "AAAAA-BBBBB-CCCCC-DDDDD", order.License.LicenseKey)
	assert.Equal(t, int64(1), order.Product.Sales)
}

func TestOrderUniqueness(t *testing.T) {
	ctx := context.Background()
	store := New()
	buyerID := uuid.New()
	key := "idem-1"

	first := &models.Order{BuyerID: buyerID, OrderNumber: "ORD-X-1", IdempotencyKey: &key}
	require.NoError(t, store.Orders().Create(ctx, first))

	dupNumber := &models.Order{BuyerID: uuid.New(), OrderNumber: "ORD-X-1"}
	assert.ErrorIs(t, store.Orders().Create(ctx, dupNumber), repository.ErrDuplicate)

	dupKey := &models.Order{BuyerID: buyerID, OrderNumber: "ORD-X-2", IdempotencyKey: &key}
	assert.ErrorIs(t, store.Orders().Create(ctx, dupKey), repository.ErrDuplicate)

	found, err := store.Orders().GetByIdempotencyKey(ctx, buyerID, key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = store.Orders().GetByIdempotencyKey(ctx, uuid.New(), key)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMarkRefundedOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := New()
	at := time.Now().UTC()

	order := &models.Order{BuyerID: uuid.New(), OrderNumber: "ORD-R-1", Status: models.OrderStatusCompleted}
	require.NoError(t, store.Orders().Create(ctx, order))

	require.NoError(t, store.Orders().MarkRefunded(ctx, order.ID, "first", at))
	assert.ErrorIs(t, store.Orders().MarkRefunded(ctx, order.ID, "second", at), repository.ErrNotFound)
	assert.ErrorIs(t, store.Orders().MarkRefunded(ctx, uuid.New(), "missing", at), repository.ErrNotFound)

	stored, err := store.Orders().GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, stored.Status)
	assert.Equal(t, "first", stored.RefundReason)
}

func TestListByBuyerPaginatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := New()
	buyerID := uuid.New()

	for _, number := range []string{"ORD-1", "ORD-2", "ORD-3"} {
		require.NoError(t, store.Orders().Create(ctx, &models.Order{BuyerID: buyerID, OrderNumber: number}))
	}
	require.NoError(t, store.Orders().Create(ctx, &models.Order{BuyerID: uuid.New(), OrderNumber: "ORD-OTHER"}))

	orders, total, err := store.Orders().ListByBuyer(ctx, buyerID, utils.PaginationParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, orders, 2)
	assert.Equal(t, "ORD-3", orders[0].OrderNumber)
	assert.Equal(t, "ORD-2", orders[1].OrderNumber)

	orders, _, err = store.Orders().ListByBuyer(ctx, buyerID, utils.PaginationParams{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ORD-1", orders[0].OrderNumber)
}

func TestFavorites(t *testing.T) {
	ctx := context.Background()
	store := New()
	product := seedProduct(t, store, "bot", 1, 0, models.ProductStatusPublished)
	profileID := uuid.New()

	require.NoError(t, store.Favorites().Add(ctx, &models.Favorite{ProfileID: profileID, ProductID: product.ID}))
	assert.ErrorIs(t, store.Favorites().Add(ctx, &models.Favorite{ProfileID: profileID, ProductID: product.ID}), repository.ErrDuplicate)

	favorites, err := store.Favorites().ListByProfile(ctx, profileID)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	require.NotNil(t, favorites[0].Product)
	assert.Equal(t, "bot", favorites[0].Product.Title)

	require.NoError(t, store.Favorites().Remove(ctx, profileID, product.ID))
	assert.ErrorIs(t, store.Favorites().Remove(ctx, profileID, product.ID), repository.ErrNotFound)
}

func TestReviewAggregate(t *testing.T) {
	ctx := context.Background()
	store := New()
	productID := uuid.New()

	avg, count, err := store.Reviews().Aggregate(ctx, productID)
	require.NoError(t, err)
	assert.Zero(t, avg)
	assert.Zero(t, count)

	for _, rating := range []int{5, 4, 3} {
		require.NoError(t, store.Reviews().Create(ctx, &models.Review{ProductID: productID, OrderID: uuid.New(), Rating: rating}))
	}
	avg, count, err = store.Reviews().Aggregate(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, int64(3), count)
}
