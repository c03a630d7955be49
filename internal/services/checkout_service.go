// internal/services/checkout_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/botscript-backend/internal/cache"
	"github.com/javajoker/botscript-backend/internal/config"
	"github.com/javajoker/botscript-backend/internal/events"
	"github.com/javajoker/botscript-backend/internal/metrics"
	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/session"
	"github.com/javajoker/botscript-backend/internal/utils"
)

// RedirectDelay is how long the client shows the confirmation before
// navigating to the buyer dashboard.
const RedirectDelay = 3 * time.Second

const refundReasonRollback = "checkout rolled back"

type CheckoutService struct {
	store     repository.Store
	payments  PaymentProcessor
	cache     cache.Cache
	publisher events.Publisher
	notifier  *NotificationService
	cfg       config.PaymentConfig
	now       func() time.Time
}

// CheckoutRequest is the card form. Card data is only validated; it is
// never stored.
type CheckoutRequest struct {
	CardNumber      string `json:"card_number" validate:"required,card_number"`
	CardName        string `json:"card_name" validate:"required,max=255"`
	ExpiryDate      string `json:"expiry_date" validate:"required,card_expiry"`
	CVV             string `json:"cvv" validate:"required,cvv"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`

	// IdempotencyKey comes from the Idempotency-Key header.
	IdempotencyKey string `json:"-" validate:"omitempty,max=255"`
}

type CheckoutResult struct {
	Order           *models.Order   `json:"order"`
	License         *models.License `json:"license"`
	Replayed        bool            `json:"replayed"`
	Redirect        string          `json:"redirect"`
	RedirectAfterMs int64           `json:"redirect_after_ms"`
}

// NewCheckoutService wires the checkout. notifier may be nil.
func NewCheckoutService(store repository.Store, payments PaymentProcessor, c cache.Cache, publisher events.Publisher, notifier *NotificationService, cfg config.PaymentConfig) *CheckoutService {
	return &CheckoutService{
		store:     store,
		payments:  payments,
		cache:     c,
		publisher: publisher,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Checkout purchases one license of productID for the session's buyer.
//
// The order, the license and the product counters are written in one store
// transaction; if any of the three fails nothing is kept and the payment is
// refunded. Failures are never retried.
func (s *CheckoutService) Checkout(ctx context.Context, sess *session.Session, productID uuid.UUID, req *CheckoutRequest) (*CheckoutResult, error) {
	start := s.now()
	result, err := s.checkout(ctx, sess, productID, req)
	metrics.RecordCheckout(checkoutOutcome(result, err), s.now().Sub(start))
	return result, err
}

func (s *CheckoutService) checkout(ctx context.Context, sess *session.Session, productID uuid.UUID, req *CheckoutRequest) (*CheckoutResult, error) {
	if sess == nil {
		return nil, ErrAuthenticationRequired
	}

	product, err := s.store.Products().GetByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if !product.IsPublished() {
		return nil, ErrNotFound
	}

	// The card is checked before any write
	if err := validate(req); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		replay, err := s.acquire(ctx, sess.UserID, product.ID, key)
		if err != nil || replay != nil {
			return replay, err
		}
	}

	result, err := s.purchase(ctx, sess, product, req, key)
	if key != "" {
		s.release(ctx, sess.UserID, key, result)
	}

	// Lost the race on the idempotency key inside the store
	if err != nil && key != "" && errors.Is(err, ErrOrderCreation) && errors.Is(err, repository.ErrDuplicate) {
		if replay, lookupErr := s.replay(ctx, sess.UserID, product.ID, key); lookupErr == nil && replay != nil {
			return replay, nil
		}
	}
	return result, err
}

func (s *CheckoutService) purchase(ctx context.Context, sess *session.Session, product *models.Product, req *CheckoutRequest, key string) (*CheckoutResult, error) {
	logger := logrus.WithFields(logrus.Fields{
		"buyer_id":   sess.UserID,
		"product_id": product.ID,
	})

	amountCents := utils.ToMinorUnits(product.Price)
	charge, err := s.charge(ctx, sess, product, req, key, amountCents)
	if err != nil {
		logger.WithError(err).Warn("Checkout payment failed")
		return nil, err
	}

	now := s.now()
	orderNumber, err := utils.GenerateOrderNumber(now)
	if err != nil {
		s.compensate(ctx, logger, charge, amountCents)
		return nil, fmt.Errorf("%w: %w", ErrOrderCreation, err)
	}
	licenseKey, err := utils.GenerateLicenseKey()
	if err != nil {
		s.compensate(ctx, logger, charge, amountCents)
		return nil, fmt.Errorf("%w: %w", ErrLicenseCreation, err)
	}

	order := &models.Order{
		BuyerID:          sess.UserID,
		SellerID:         product.SellerID,
		ProductID:        product.ID,
		OrderNumber:      orderNumber,
		Amount:           product.Price,
		Commission:       utils.CalculateCommission(product.Price, s.cfg.CommissionPercent),
		Status:           models.OrderStatusCompleted,
		PaymentReference: charge.Reference,
	}
	if key != "" {
		order.IdempotencyKey = &key
	}

	license := &models.License{
		ProductID:        product.ID,
		BuyerID:          sess.UserID,
		LicenseKey:       licenseKey,
		ActivationsLimit: 1,
		IsActive:         true,
	}

	err = s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		// Step 1: order
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("%w: %w", ErrOrderCreation, err)
		}

		// Step 2: license
		license.OrderID = order.ID
		if err := tx.Licenses().Create(ctx, license); err != nil {
			return fmt.Errorf("%w: %w", ErrLicenseCreation, err)
		}

		// Step 3: counters
		if err := tx.Products().IncrementSales(ctx, product.ID); err != nil {
			return fmt.Errorf("%w: %w", ErrInventoryUpdate, err)
		}
		return nil
	})
	if err != nil {
		logger.WithError(err).Error("Checkout transaction rolled back")
		s.compensate(ctx, logger, charge, amountCents)
		return nil, err
	}

	product.Sales++
	product.Downloads++
	license.Product = product
	order.Product = product
	order.License = license

	logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"amount":       order.Amount,
	}).Info("Checkout completed")

	metrics.RecordRevenue(string(product.Category), amountCents)
	s.publishCompleted(ctx, order, license, amountCents)
	if s.notifier != nil {
		s.notifier.OrderCompleted(ctx, order)
	}

	return &CheckoutResult{
		Order:           order,
		License:         license,
		Redirect:        utils.RedirectPurchase,
		RedirectAfterMs: RedirectDelay.Milliseconds(),
	}, nil
}

// charge skips the processor for free products.
func (s *CheckoutService) charge(ctx context.Context, sess *session.Session, product *models.Product, req *CheckoutRequest, key string, amountCents int64) (*Charge, error) {
	if amountCents == 0 {
		return &Charge{Reference: "free", Status: "succeeded"}, nil
	}

	chargeReq := ChargeRequest{
		AmountCents:     amountCents,
		Currency:        s.cfg.Currency,
		Description:     product.Title,
		PaymentMethodID: req.PaymentMethodID,
		Metadata: map[string]string{
			"buyer_id":   sess.UserID.String(),
			"product_id": product.ID.String(),
		},
	}
	// The processor key is scoped to this attempt. A retry after a rollback
	// must not replay the charge that was just refunded; order-level
	// idempotency is kept by the store's unique index.
	chargeReq.IdempotencyKey = sess.UserID.String() + ":" + uuid.NewString()
	if key != "" {
		chargeReq.Metadata["idempotency_key"] = key
	}

	charge, err := s.payments.Charge(ctx, chargeReq)
	if err != nil {
		if errors.Is(err, ErrPaymentFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	return charge, nil
}

// compensate refunds a charge whose order was not persisted. The refund runs
// even if the request context was cancelled.
func (s *CheckoutService) compensate(ctx context.Context, logger *logrus.Entry, charge *Charge, amountCents int64) {
	if amountCents == 0 {
		return
	}
	if err := s.payments.Refund(context.WithoutCancel(ctx), charge.Reference, amountCents, refundReasonRollback); err != nil {
		logger.WithError(err).WithField("payment_reference", charge.Reference).
			Error("Failed to refund payment after rollback, manual action required")
		return
	}
	logger.WithField("payment_reference", charge.Reference).Info("Payment refunded after rollback")
}

// acquire claims the idempotency key. It returns a replayed result when the
// key already produced an order.
func (s *CheckoutService) acquire(ctx context.Context, buyerID, productID uuid.UUID, key string) (*CheckoutResult, error) {
	if replay, err := s.replay(ctx, buyerID, productID, key); err != nil || replay != nil {
		return replay, err
	}

	acquired, err := s.cache.SetNX(ctx, cache.IdemCheckoutKey(buyerID.String(), key), cache.IdemPending, cache.TTLCheckoutLock)
	if err != nil {
		// The unique index on (buyer_id, idempotency_key) still guards us
		logrus.WithError(err).Warn("Idempotency cache unavailable")
		return nil, nil
	}
	if acquired {
		return nil, nil
	}

	if replay, err := s.replay(ctx, buyerID, productID, key); err != nil || replay != nil {
		return replay, err
	}
	return nil, ErrCheckoutInProgress
}

func (s *CheckoutService) release(ctx context.Context, buyerID uuid.UUID, key string, result *CheckoutResult) {
	cacheKey := cache.IdemCheckoutKey(buyerID.String(), key)
	var err error
	if result != nil {
		err = s.cache.Set(ctx, cacheKey, result.Order.ID.String(), cache.TTLIdempotency)
	} else {
		err = s.cache.Delete(ctx, cacheKey)
	}
	if err != nil {
		logrus.WithError(err).Warn("Failed to update idempotency key")
	}
}

func (s *CheckoutService) replay(ctx context.Context, buyerID, productID uuid.UUID, key string) (*CheckoutResult, error) {
	order, err := s.store.Orders().GetByIdempotencyKey(ctx, buyerID, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	if order.ProductID != productID {
		return nil, fmt.Errorf("%w: idempotency key already used for another product", ErrConflict)
	}

	return &CheckoutResult{
		Order:           order,
		License:         order.License,
		Replayed:        true,
		Redirect:        utils.RedirectPurchase,
		RedirectAfterMs: RedirectDelay.Milliseconds(),
	}, nil
}

func (s *CheckoutService) publishCompleted(ctx context.Context, order *models.Order, license *models.License, amountCents int64) {
	env, err := events.NewEnvelope(events.EventOrderCompleted, order.ID.String(), events.OrderCompletedPayload{
		OrderID:         order.ID.String(),
		OrderNumber:     order.OrderNumber,
		BuyerID:         order.BuyerID.String(),
		SellerID:        order.SellerID.String(),
		ProductID:       order.ProductID.String(),
		LicenseID:       license.ID.String(),
		AmountCents:     amountCents,
		CommissionCents: utils.ToMinorUnits(order.Commission),
		PaymentRef:      order.PaymentReference,
	})
	if err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to build order.completed")
		return
	}

	// Broker latency stays off the checkout response
	ctx = context.WithoutCancel(ctx)
	orderID := order.ID
	go func() {
		if err := s.publisher.Publish(ctx, events.TopicOrderCompleted, env); err != nil {
			logrus.WithError(err).WithField("order_id", orderID).Error("Failed to publish order.completed")
		}
	}()
}

func checkoutOutcome(result *CheckoutResult, err error) string {
	var verr *ValidationError
	switch {
	case err == nil && result != nil && result.Replayed:
		return "replayed"
	case err == nil:
		return "completed"
	case errors.As(err, &verr):
		return "validation_error"
	case errors.Is(err, ErrAuthenticationRequired):
		return "authentication_required"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPaymentFailed):
		return "payment_failed"
	case errors.Is(err, ErrOrderCreation):
		return "order_creation_error"
	case errors.Is(err, ErrLicenseCreation):
		return "license_creation_error"
	case errors.Is(err, ErrInventoryUpdate):
		return "inventory_update_error"
	case errors.Is(err, ErrCheckoutInProgress):
		return "in_progress"
	default:
		return "error"
	}
}
