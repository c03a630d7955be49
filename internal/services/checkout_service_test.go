package services

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/botscript-backend/internal/cache"
	"github.com/javajoker/botscript-backend/internal/events"
	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/utils"
)

var (
	orderNumberPattern = regexp.MustCompile(`^ORD-[0-9A-Z]+-[0-9A-Z]+$`)
	licenseKeyPattern  = regexp.MustCompile(`^[0-9A-Z]{5}-[0-9A-Z]{5}-[0-9A-Z]{5}-[0-9A-Z]{5}$`)
)

func TestCheckoutCompletesPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.checkout(f.store).Checkout(ctx, f.buyer, f.product.ID, validCard())
	require.NoError(t, err)

	order := result.Order
	assert.Equal(t, 19.99, order.Amount)
	assert.Equal(t, 2.00, order.Commission)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.Equal(t, f.buyer.UserID, order.BuyerID)
	assert.Equal(t, f.seller.UserID, order.SellerID)
	assert.Equal(t, "ch_1", order.PaymentReference)
	assert.Regexp(t, orderNumberPattern, order.OrderNumber)

	license := result.License
	assert.Equal(t, order.ID, license.OrderID)
	assert.Regexp(t, licenseKeyPattern, license.LicenseKey)
	assert.Equal(t, 1, license.ActivationsLimit)
	assert.True(t, license.IsActive)

	assert.Equal(t, utils.RedirectPurchase, result.Redirect)
	assert.Equal(t, int64(3000), result.RedirectAfterMs)
	assert.False(t, result.Replayed)

	product := f.reload(t, f.product.ID)
	assert.Equal(t, f.product.Sales+1, product.Sales)
	assert.Equal(t, f.product.Downloads+1, product.Downloads)

	require.Len(t, f.payments.charges, 1)
	assert.Equal(t, int64(1999), f.payments.charges[0].AmountCents)
	assert.Equal(t, "eur", f.payments.charges[0].Currency)
	assert.Empty(t, f.payments.refundRefs())

	require.Eventually(t, func() bool {
		return len(f.events.Events(events.TopicOrderCompleted)) == 1
	}, time.Second, 10*time.Millisecond)
	published := f.events.Events(events.TopicOrderCompleted)
	payload, err := events.UnwrapPayload[events.OrderCompletedPayload](published[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, order.ID.String(), payload.OrderID)
	assert.Equal(t, license.ID.String(), payload.LicenseID)
	assert.Equal(t, int64(1999), payload.AmountCents)
	assert.Equal(t, int64(200), payload.CommissionCents)
}

// stalledPublisher blocks every publish until release is closed.
type stalledPublisher struct {
	*events.Recorder
	release chan struct{}
}

func (p *stalledPublisher) Publish(ctx context.Context, topic string, event events.Envelope) error {
	<-p.release
	return p.Recorder.Publish(ctx, topic, event)
}

func TestCheckoutDoesNotWaitForBroker(t *testing.T) {
	f := newFixture(t)
	publisher := &stalledPublisher{Recorder: f.events, release: make(chan struct{})}
	svc := NewCheckoutService(f.store, f.payments, f.cache, publisher, nil, f.cfg.Payment)

	result, err := svc.Checkout(context.Background(), f.buyer, f.product.ID, validCard())
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, result.Order.Status)
	assert.Empty(t, f.events.Events(events.TopicOrderCompleted))

	close(publisher.release)
	assert.Eventually(t, func() bool {
		return len(f.events.Events(events.TopicOrderCompleted)) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCheckoutRequiresSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkout(f.store).Checkout(context.Background(), nil, f.product.ID, validCard())
	assert.ErrorIs(t, err, ErrAuthenticationRequired)

	assert.Zero(t, f.payments.chargeCount())
	assert.Empty(t, f.buyerOrders(t))
	assert.Equal(t, f.product.Sales, f.reload(t, f.product.ID).Sales)
}

func TestCheckoutValidatesCardBeforeCharging(t *testing.T) {
	f := newFixture(t)

	req := &CheckoutRequest{
		CardNumber: "4242 4242",
		CardName:   "Jean Dupont",
		ExpiryDate: "13/30",
		CVV:        "12a",
	}
	_, err := f.checkout(f.store).Checkout(context.Background(), f.buyer, f.product.ID, req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Fields))
	for _, field := range verr.Fields {
		fields = append(fields, field.Field)
	}
	assert.ElementsMatch(t, []string{"card_number", "expiry_date", "cvv"}, fields)
	assert.Zero(t, f.payments.chargeCount())
	assert.Empty(t, f.buyerOrders(t))
}

func TestCheckoutChecksProductBeforeCard(t *testing.T) {
	f := newFixture(t)
	draft := f.createProduct(t, "Work in progress", 9.99, models.ProductStatusDraft)
	svc := f.checkout(f.store)

	_, err := svc.Checkout(context.Background(), f.buyer, draft.ID, &CheckoutRequest{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Checkout(context.Background(), f.buyer, uuid.New(), &CheckoutRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, f.payments.chargeCount())
}

func TestCheckoutRejectsUnavailableProducts(t *testing.T) {
	f := newFixture(t)
	draft := f.createProduct(t, "Work in progress", 9.99, models.ProductStatusDraft)

	for name, id := range map[string]uuid.UUID{"draft": draft.ID, "missing": uuid.New()} {
		t.Run(name, func(t *testing.T) {
			_, err := f.checkout(f.store).Checkout(context.Background(), f.buyer, id, validCard())
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}

	assert.Zero(t, f.payments.chargeCount())
	assert.Empty(t, f.buyerOrders(t))
}

func TestCheckoutRollsBackEveryStep(t *testing.T) {
	tests := []struct {
		name    string
		failAt  int
		wantErr error
	}{
		{"order", failOrder, ErrOrderCreation},
		{"license", failLicense, ErrLicenseCreation},
		{"counters", failCounters, ErrInventoryUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			store := &faultyStore{Store: f.store, failAt: tt.failAt}

			result, err := f.checkout(store).Checkout(context.Background(), f.buyer, f.product.ID, validCard())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, errInjected)

			assert.Empty(t, f.buyerOrders(t))
			assert.Empty(t, f.buyerLicenses(t))
			product := f.reload(t, f.product.ID)
			assert.Equal(t, f.product.Sales, product.Sales)
			assert.Equal(t, f.product.Downloads, product.Downloads)

			assert.Equal(t, []string{"ch_1"}, f.payments.refundRefs())
			assert.Empty(t, f.events.Events(events.TopicOrderCompleted))
		})
	}
}

func TestCheckoutPaymentFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.payments.chargeErr = errInjected

	_, err := f.checkout(f.store).Checkout(context.Background(), f.buyer, f.product.ID, validCard())
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.ErrorIs(t, err, errInjected)

	assert.Empty(t, f.buyerOrders(t))
	assert.Empty(t, f.payments.refundRefs())
}

func TestCheckoutReplaysIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	svc := f.checkout(f.store)
	ctx := context.Background()

	req := validCard()
	req.IdempotencyKey = "attempt-1"
	first, err := svc.Checkout(ctx, f.buyer, f.product.ID, req)
	require.NoError(t, err)

	second, err := svc.Checkout(ctx, f.buyer, f.product.ID, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	require.NotNil(t, second.License)
	assert.Equal(t, first.License.LicenseKey, second.License.LicenseKey)

	assert.Equal(t, 1, f.payments.chargeCount())
	assert.Len(t, f.buyerOrders(t), 1)
	assert.Equal(t, f.product.Sales+1, f.reload(t, f.product.ID).Sales)

	other := f.createProduct(t, "Stream Alerts Plus", 24.99, models.ProductStatusPublished)
	_, err = svc.Checkout(ctx, f.buyer, other.ID, req)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCheckoutInProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	acquired, err := f.cache.SetNX(ctx, cache.IdemCheckoutKey(f.buyer.UserID.String(), "attempt-1"), cache.IdemPending, cache.TTLCheckoutLock)
	require.NoError(t, err)
	require.True(t, acquired)

	req := validCard()
	req.IdempotencyKey = "attempt-1"
	_, err = f.checkout(f.store).Checkout(ctx, f.buyer, f.product.ID, req)
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
	assert.Zero(t, f.payments.chargeCount())
}

func TestCheckoutFailureReleasesIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := validCard()
	req.IdempotencyKey = "attempt-1"
	_, err := f.checkout(&faultyStore{Store: f.store, failAt: failLicense}).Checkout(ctx, f.buyer, f.product.ID, req)
	require.ErrorIs(t, err, ErrLicenseCreation)

	exists, err := f.cache.Exists(ctx, cache.IdemCheckoutKey(f.buyer.UserID.String(), "attempt-1"))
	require.NoError(t, err)
	assert.False(t, exists)

	result, err := f.checkout(f.store).Checkout(ctx, f.buyer, f.product.ID, req)
	require.NoError(t, err)
	assert.False(t, result.Replayed)
}

// replayingProcessor returns the stored charge for a repeated idempotency
// key, the way card processors do.
type replayingProcessor struct {
	*fakeProcessor
	mu    sync.Mutex
	byKey map[string]*Charge
}

func (p *replayingProcessor) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if charge, ok := p.byKey[req.IdempotencyKey]; ok {
		return charge, nil
	}
	charge, err := p.fakeProcessor.Charge(ctx, req)
	if err == nil && req.IdempotencyKey != "" {
		p.byKey[req.IdempotencyKey] = charge
	}
	return charge, err
}

func TestCheckoutRetryAfterRollbackChargesAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	processor := &replayingProcessor{fakeProcessor: f.payments, byKey: map[string]*Charge{}}

	req := validCard()
	req.IdempotencyKey = "attempt-1"
	failing := NewCheckoutService(&faultyStore{Store: f.store, failAt: failLicense}, processor, f.cache, f.events, nil, f.cfg.Payment)
	_, err := failing.Checkout(ctx, f.buyer, f.product.ID, req)
	require.ErrorIs(t, err, ErrLicenseCreation)
	refunded := f.payments.refundRefs()
	require.Len(t, refunded, 1)

	result, err := NewCheckoutService(f.store, processor, f.cache, f.events, nil, f.cfg.Payment).Checkout(ctx, f.buyer, f.product.ID, req)
	require.NoError(t, err)
	assert.NotEqual(t, refunded[0], result.Order.PaymentReference)
	assert.Equal(t, refunded, f.payments.refundRefs())

	require.Len(t, f.payments.charges, 2)
	assert.NotEqual(t, f.payments.charges[0].IdempotencyKey, f.payments.charges[1].IdempotencyKey)
	for _, charge := range f.payments.charges {
		assert.True(t, strings.HasPrefix(charge.IdempotencyKey, f.buyer.UserID.String()+":"))
		assert.Equal(t, "attempt-1", charge.Metadata["idempotency_key"])
	}
}

// lateOrders misses the first idempotency lookup, like an instance that read
// before a concurrent checkout committed.
type lateOrders struct {
	repository.OrderRepository
	missed bool
}

func (r *lateOrders) GetByIdempotencyKey(ctx context.Context, buyerID uuid.UUID, key string) (*models.Order, error) {
	if !r.missed {
		r.missed = true
		return nil, repository.ErrNotFound
	}
	return r.OrderRepository.GetByIdempotencyKey(ctx, buyerID, key)
}

type lateStore struct {
	repository.Store
	orders *lateOrders
}

func (s *lateStore) Orders() repository.OrderRepository { return s.orders }

func TestCheckoutLostRaceRefundsOnlyItsOwnCharge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	processor := &replayingProcessor{fakeProcessor: f.payments, byKey: map[string]*Charge{}}

	req := validCard()
	req.IdempotencyKey = "attempt-1"
	winner, err := NewCheckoutService(f.store, processor, f.cache, f.events, nil, f.cfg.Payment).Checkout(ctx, f.buyer, f.product.ID, req)
	require.NoError(t, err)
	require.NoError(t, f.cache.Delete(ctx, cache.IdemCheckoutKey(f.buyer.UserID.String(), "attempt-1")))

	store := &lateStore{Store: f.store, orders: &lateOrders{OrderRepository: f.store.Orders()}}
	loser, err := NewCheckoutService(store, processor, f.cache, f.events, nil, f.cfg.Payment).Checkout(ctx, f.buyer, f.product.ID, req)
	require.NoError(t, err)
	assert.True(t, loser.Replayed)
	assert.Equal(t, winner.Order.ID, loser.Order.ID)

	refunds := f.payments.refundRefs()
	require.Len(t, refunds, 1)
	assert.NotEqual(t, winner.Order.PaymentReference, refunds[0])
	assert.Len(t, f.buyerOrders(t), 1)
}

func TestCheckoutFreeProductSkipsProcessor(t *testing.T) {
	f := newFixture(t)
	free := f.createProduct(t, "Starter Kit", 0, models.ProductStatusPublished)

	result, err := f.checkout(f.store).Checkout(context.Background(), f.buyer, free.ID, validCard())
	require.NoError(t, err)
	assert.Equal(t, "free", result.Order.PaymentReference)
	assert.Zero(t, result.Order.Commission)
	assert.Zero(t, f.payments.chargeCount())
}
