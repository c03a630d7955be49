package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/botscript-backend/internal/cache"
	"github.com/javajoker/botscript-backend/internal/config"
	"github.com/javajoker/botscript-backend/internal/events"
	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/repository/memory"
	"github.com/javajoker/botscript-backend/internal/session"
	"github.com/javajoker/botscript-backend/internal/utils"
)

var errInjected = errors.New("injected failure")

type fixture struct {
	store    *memory.Store
	cache    *cache.MemoryCache
	events   *events.Recorder
	payments *fakeProcessor
	cfg      *config.Config
	seller   *session.Session
	buyer    *session.Session
	product  *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.New(),
		cache:    cache.NewMemory(),
		events:   events.NewRecorder(),
		payments: &fakeProcessor{},
		cfg: &config.Config{
			JWT:     config.JWTConfig{SecretKey: "test-secret", AccessTokenTTL: 1},
			Payment: config.PaymentConfig{Currency: "eur", CommissionPercent: 10},
		},
	}
	utils.SetJWTSecret(f.cfg.JWT.SecretKey)

	f.seller = f.createAccount(t, "seller@example.com", "studio", models.UserTypeSeller)
	f.buyer = f.createAccount(t, "buyer@example.com", "jean", models.UserTypeBuyer)
	f.product = f.createProduct(t, "Productivity Booster", 19.99, models.ProductStatusPublished)
	return f
}

func (f *fixture) createAccount(t *testing.T, email, username string, userType models.UserType) *session.Session {
	t.Helper()
	ctx := context.Background()

	user := &models.User{Email: email}
	require.NoError(t, user.SetPassword("password123"))
	require.NoError(t, f.store.Users().Create(ctx, user))

	profile := &models.Profile{UserType: userType, Username: username}
	profile.ID = user.ID
	require.NoError(t, f.store.Profiles().Create(ctx, profile))

	return &session.Session{
		UserID:    user.ID,
		Username:  username,
		UserType:  userType,
		TokenID:   uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func (f *fixture) createProduct(t *testing.T, title string, price float64, status models.ProductStatus) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID:    f.seller.UserID,
		Title:       title,
		Description: title + " description",
		Category:    models.CategoryChrome,
		Price:       price,
		Version:     "1.0.0",
		Status:      status,
		FileKey:     "products/files/" + uuid.NewString() + ".zip",
	}
	require.NoError(t, f.store.Products().Create(context.Background(), product))
	return product
}

func (f *fixture) checkout(store repository.Store) *CheckoutService {
	return NewCheckoutService(store, f.payments, f.cache, f.events, nil, f.cfg.Payment)
}

func (f *fixture) buyerOrders(t *testing.T) []models.Order {
	t.Helper()
	orders, _, err := f.store.Orders().ListByBuyer(context.Background(), f.buyer.UserID, utils.PaginationParams{Page: 1, Limit: 100})
	require.NoError(t, err)
	return orders
}

func (f *fixture) buyerLicenses(t *testing.T) []models.License {
	t.Helper()
	licenses, err := f.store.Licenses().ListByBuyer(context.Background(), f.buyer.UserID)
	require.NoError(t, err)
	return licenses
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.Product {
	t.Helper()
	product, err := f.store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return product
}

func validCard() *CheckoutRequest {
	return &CheckoutRequest{
		CardNumber: "4242 4242 4242 4242",
		CardName:   "Jean Dupont",
		ExpiryDate: "12/30",
		CVV:        "123",
	}
}

// fakeProcessor records charges and refunds.
type fakeProcessor struct {
	mu        sync.Mutex
	chargeErr error
	refundErr error
	charges   []ChargeRequest
	refunds   []string
}

func (p *fakeProcessor) Name() string { return "fake" }

func (p *fakeProcessor) Charge(_ context.Context, req ChargeRequest) (*Charge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chargeErr != nil {
		return nil, p.chargeErr
	}
	p.charges = append(p.charges, req)
	return &Charge{Reference: fmt.Sprintf("ch_%d", len(p.charges)), Status: "succeeded"}, nil
}

func (p *fakeProcessor) Refund(_ context.Context, reference string, _ int64, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refundErr != nil {
		return p.refundErr
	}
	p.refunds = append(p.refunds, reference)
	return nil
}

func (p *fakeProcessor) chargeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.charges)
}

func (p *fakeProcessor) refundRefs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.refunds...)
}

// Checkout steps a faultyStore can break.
const (
	failOrder = iota + 1
	failLicense
	failCounters
)

// faultyStore fails one checkout step inside transactions.
type faultyStore struct {
	repository.Store
	failAt int
	inTx   bool
}

func (s *faultyStore) WithinTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTransaction(ctx, func(tx repository.Store) error {
		return fn(&faultyStore{Store: tx, failAt: s.failAt, inTx: true})
	})
}

func (s *faultyStore) Orders() repository.OrderRepository {
	if s.inTx && s.failAt == failOrder {
		return failingOrders{s.Store.Orders()}
	}
	return s.Store.Orders()
}

func (s *faultyStore) Licenses() repository.LicenseRepository {
	if s.inTx && s.failAt == failLicense {
		return failingLicenses{s.Store.Licenses()}
	}
	return s.Store.Licenses()
}

func (s *faultyStore) Products() repository.ProductRepository {
	if s.inTx && s.failAt == failCounters {
		return failingProducts{s.Store.Products()}
	}
	return s.Store.Products()
}

type failingOrders struct{ repository.OrderRepository }

func (failingOrders) Create(context.Context, *models.Order) error { return errInjected }

type failingLicenses struct{ repository.LicenseRepository }

func (failingLicenses) Create(context.Context, *models.License) error { return errInjected }

type failingProducts struct{ repository.ProductRepository }

func (failingProducts) IncrementSales(context.Context, uuid.UUID) error { return errInjected }
