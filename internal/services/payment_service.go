// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"

	"github.com/javajoker/botscript-backend/internal/config"
)

type ChargeRequest struct {
	AmountCents     int64
	Currency        string
	Description     string
	PaymentMethodID string
	IdempotencyKey  string
	Metadata        map[string]string
}

type Charge struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// PaymentProcessor charges buyers and reverses charges. Refund is used both
// for seller-initiated refunds and to compensate a checkout whose store
// transaction rolled back.
type PaymentProcessor interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
	Refund(ctx context.Context, reference string, amountCents int64, reason string) error
}

// NewPaymentProcessor picks Stripe when a secret key is configured and the
// simulated processor otherwise.
func NewPaymentProcessor(cfg config.PaymentConfig) PaymentProcessor {
	if cfg.StripeSecretKey != "" {
		return NewStripeProcessor(cfg.StripeSecretKey)
	}
	logrus.Warn("STRIPE_SECRET_KEY not set, using simulated payments")
	return NewSimulatedProcessor()
}

// SimulatedProcessor accepts every charge, matching the demo checkout.
type SimulatedProcessor struct {
	now func() time.Time
}

func NewSimulatedProcessor() *SimulatedProcessor {
	return &SimulatedProcessor{now: time.Now}
}

func (p *SimulatedProcessor) Name() string { return "simulated" }

func (p *SimulatedProcessor) Charge(_ context.Context, req ChargeRequest) (*Charge, error) {
	if req.AmountCents < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrPaymentFailed)
	}
	return &Charge{
		Reference: fmt.Sprintf("sim_%d", p.now().UnixMilli()),
		Status:    "succeeded",
	}, nil
}

func (p *SimulatedProcessor) Refund(_ context.Context, reference string, amountCents int64, reason string) error {
	logrus.WithFields(logrus.Fields{
		"reference":    reference,
		"amount_cents": amountCents,
		"reason":       reason,
	}).Info("Simulated refund issued")
	return nil
}

// StripeProcessor confirms a PaymentIntent synchronously with a payment
// method collected by the client (Stripe Elements).
type StripeProcessor struct{}

func NewStripeProcessor(secretKey string) *StripeProcessor {
	stripe.Key = secretKey
	return &StripeProcessor{}
}

func (p *StripeProcessor) Name() string { return "stripe" }

func (p *StripeProcessor) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if req.PaymentMethodID == "" {
		return nil, fmt.Errorf("%w: payment_method_id is required", ErrPaymentFailed)
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.AmountCents),
		Currency:           stripe.String(req.Currency),
		Description:        stripe.String(req.Description),
		PaymentMethod:      stripe.String(req.PaymentMethodID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, stripeErr.Msg)
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("%w: payment intent %s is %s", ErrPaymentFailed, pi.ID, pi.Status)
	}

	return &Charge{Reference: pi.ID, Status: string(pi.Status)}, nil
}

func (p *StripeProcessor) Refund(ctx context.Context, reference string, amountCents int64, reason string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(reference),
		Amount:        stripe.Int64(amountCents),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.AddMetadata("reason", reason)

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("failed to process refund: %w", err)
	}
	return nil
}
