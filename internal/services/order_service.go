// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/botscript-backend/internal/events"
	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/session"
	"github.com/javajoker/botscript-backend/internal/utils"
)

const defaultRefundReason = "refunded by seller"

type OrderService struct {
	store     repository.Store
	payments  PaymentProcessor
	publisher events.Publisher
	notifier  *NotificationService
	now       func() time.Time
}

type RefundRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// NewOrderService wires buyer order history and seller refunds. notifier may
// be nil.
func NewOrderService(store repository.Store, payments PaymentProcessor, publisher events.Publisher, notifier *NotificationService) *OrderService {
	return &OrderService{
		store:     store,
		payments:  payments,
		publisher: publisher,
		notifier:  notifier,
		now:       time.Now,
	}
}

// ListOrders returns the buyer's orders with product, newest first.
func (s *OrderService) ListOrders(ctx context.Context, sess *session.Session, page utils.PaginationParams) ([]models.Order, int64, error) {
	if sess == nil {
		return nil, 0, ErrAuthenticationRequired
	}

	orders, total, err := s.store.Orders().ListByBuyer(ctx, sess.UserID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// GetOrder is visible to the order's buyer and seller only.
func (s *OrderService) GetOrder(ctx context.Context, sess *session.Session, id uuid.UUID) (*models.Order, error) {
	if sess == nil {
		return nil, ErrAuthenticationRequired
	}

	order, err := s.store.Orders().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order.BuyerID != sess.UserID && order.SellerID != sess.UserID {
		return nil, ErrNotFound
	}
	return order, nil
}

// RefundOrder lets the seller refund a completed order. The order becomes
// refunded and its license inactive; product counters keep the sale. The
// processor refund runs last inside the transaction so a failed refund leaves
// the order untouched.
func (s *OrderService) RefundOrder(ctx context.Context, sess *session.Session, id uuid.UUID, req *RefundRequest) (*models.Order, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	order, err := s.GetOrder(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if order.SellerID != sess.UserID {
		return nil, fmt.Errorf("%w: only the seller can refund an order", ErrForbidden)
	}
	if order.Status != models.OrderStatusCompleted {
		return nil, fmt.Errorf("%w: order is %s", ErrConflict, order.Status)
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = defaultRefundReason
	}
	amountCents := utils.ToMinorUnits(order.Amount)
	now := s.now()

	err = s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		// The status guard makes one of two racing refunds lose here,
		// before the processor is called
		if err := tx.Orders().MarkRefunded(ctx, order.ID, reason, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: order is no longer completed", ErrConflict)
			}
			return fmt.Errorf("failed to mark order refunded: %w", err)
		}
		// Orders written before licenses were transactional may lack one
		if err := tx.Licenses().Deactivate(ctx, order.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to deactivate license: %w", err)
		}
		if amountCents == 0 {
			return nil
		}
		if err := s.payments.Refund(ctx, order.PaymentReference, amountCents, reason); err != nil {
			return fmt.Errorf("%w: %w", ErrPaymentFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatusRefunded
	order.RefundReason = reason
	order.RefundedAt = &now
	if order.License != nil {
		order.License.IsActive = false
	}

	logrus.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"seller_id": sess.UserID,
		"reason":    reason,
	}).Info("Order refunded")

	publishRefunded(ctx, s.publisher, order, amountCents)
	if s.notifier != nil {
		s.notifier.OrderRefunded(ctx, order)
	}

	return order, nil
}

func publishRefunded(ctx context.Context, publisher events.Publisher, order *models.Order, amountCents int64) {
	env, err := events.NewEnvelope(events.EventOrderRefunded, order.ID.String(), events.OrderRefundedPayload{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Reason:      order.RefundReason,
		AmountCents: amountCents,
	})
	if err == nil {
		err = publisher.Publish(context.WithoutCancel(ctx), events.TopicOrderRefunded, env)
	}
	if err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to publish order.refunded")
	}
}
