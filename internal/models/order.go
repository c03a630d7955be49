// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	BaseModel
	BuyerID          uuid.UUID   `json:"buyer_id" gorm:"type:uuid;not null;index"`
	SellerID         uuid.UUID   `json:"seller_id" gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID   `json:"product_id" gorm:"type:uuid;not null;index"`
	OrderNumber      string      `json:"order_number" gorm:"size:64;uniqueIndex;not null"`
	Amount           float64     `json:"amount" gorm:"type:decimal(10,2);not null"`
	Commission       float64     `json:"commission" gorm:"type:decimal(10,2);not null"`
	Status           OrderStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	PaymentReference string      `json:"payment_reference" gorm:"size:255"`
	IdempotencyKey   *string     `json:"-" gorm:"size:255"`
	RefundedAt       *time.Time  `json:"refunded_at,omitempty"`
	RefundReason     string      `json:"refund_reason,omitempty" gorm:"type:text"`

	// Relationships
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	License *License `json:"license,omitempty" gorm:"foreignKey:OrderID"`
}
