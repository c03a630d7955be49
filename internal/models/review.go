// internal/models/review.go
package models

import (
	"github.com/google/uuid"
)

type Review struct {
	BaseModel
	ProductID      uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	BuyerID        uuid.UUID `json:"buyer_id" gorm:"type:uuid;not null;index"`
	OrderID        uuid.UUID `json:"order_id" gorm:"type:uuid;not null;uniqueIndex"`
	Rating         int       `json:"rating" gorm:"not null"`
	Title          string    `json:"title,omitempty" gorm:"size:255"`
	Comment        string    `json:"comment" gorm:"type:text"`
	SellerResponse string    `json:"seller_response,omitempty" gorm:"type:text"`
	HelpfulCount   int64     `json:"helpful_count" gorm:"default:0"`
}
