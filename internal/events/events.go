// Package events publishes order lifecycle events for downstream consumers
// (seller notifications, analytics).
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TopicOrderCompleted = "order.completed"
	TopicOrderRefunded  = "order.refunded"
)

const (
	EventOrderCompleted = "OrderCompleted"
	EventOrderRefunded  = "OrderRefunded"
)

const producerName = "botscript-api"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload. correlationID is the order id so that every
// event of one order lands on the same partition.
func NewEnvelope(eventType, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producerName,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

type OrderCompletedPayload struct {
	OrderID         string `json:"order_id"`
	OrderNumber     string `json:"order_number"`
	BuyerID         string `json:"buyer_id"`
	SellerID        string `json:"seller_id"`
	ProductID       string `json:"product_id"`
	LicenseID       string `json:"license_id"`
	AmountCents     int64  `json:"amount_cents"`
	CommissionCents int64  `json:"commission_cents"`
	PaymentRef      string `json:"payment_ref"`
}

type OrderRefundedPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason"`
	AmountCents int64  `json:"amount_cents"`
}

// UnwrapPayload decodes the payload of an envelope.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
