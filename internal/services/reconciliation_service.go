// internal/services/reconciliation_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/botscript-backend/internal/events"
	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/utils"
)

// ReasonLicenseMissing marks orders compensated by the reconciliation sweep.
const ReasonLicenseMissing = "license missing"

type ReconciliationService struct {
	store     repository.Store
	payments  PaymentProcessor
	publisher events.Publisher
	now       func() time.Time
}

type ReconcileReport struct {
	OrdersCompensated int `json:"orders_compensated"`
	ProductsRerated   int `json:"products_rerated"`
}

func NewReconciliationService(store repository.Store, payments PaymentProcessor, publisher events.Publisher) *ReconciliationService {
	return &ReconciliationService{
		store:     store,
		payments:  payments,
		publisher: publisher,
		now:       time.Now,
	}
}

// Reconcile repairs data the checkout transaction can no longer produce:
// completed orders without a license are refunded, and product rating
// aggregates are recomputed from reviews. One failing item does not stop the
// sweep; the first error is returned at the end.
func (s *ReconciliationService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}
	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	orders, err := s.store.Orders().ListCompletedWithoutLicense(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list unlicensed orders: %w", err)
	}

	for i := range orders {
		order := &orders[i]
		logger := logrus.WithFields(logrus.Fields{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
		})

		now := s.now()
		err := s.store.Orders().MarkRefunded(ctx, order.ID, ReasonLicenseMissing, now)
		if errors.Is(err, repository.ErrNotFound) {
			// Refunded by the seller since it was listed
			logger.Debug("Unlicensed order already refunded")
			continue
		}
		if err != nil {
			logger.WithError(err).Error("Failed to compensate unlicensed order")
			keep(err)
			continue
		}
		order.RefundReason = ReasonLicenseMissing
		order.RefundedAt = &now
		report.OrdersCompensated++

		amountCents := utils.ToMinorUnits(order.Amount)
		if amountCents > 0 && order.PaymentReference != "" {
			if err := s.payments.Refund(ctx, order.PaymentReference, amountCents, ReasonLicenseMissing); err != nil {
				logger.WithError(err).Error("Failed to refund unlicensed order, manual action required")
			}
		}
		publishRefunded(ctx, s.publisher, order, amountCents)
		logger.Warn("Unlicensed order compensated")
	}

	ids, err := s.store.Products().ListIDs(ctx)
	if err != nil {
		keep(fmt.Errorf("failed to list products: %w", err))
		return report, firstErr
	}
	for _, id := range ids {
		// Products without reviews keep their imported aggregates
		avg, count, err := s.store.Reviews().Aggregate(ctx, id)
		if err == nil && count == 0 {
			continue
		}
		if err == nil {
			err = s.store.Products().UpdateRating(ctx, id, utils.RoundMoney(avg), count)
		}
		if err != nil {
			logrus.WithError(err).WithField("product_id", id).Error("Failed to recompute rating")
			keep(err)
			continue
		}
		report.ProductsRerated++
	}

	return report, firstErr
}
