// internal/models/common.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns the identifier on the client side so that callers can
// reference a row (order -> license) before the insert returns.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Enums
type UserType string

const (
	UserTypeBuyer  UserType = "buyer"
	UserTypeSeller UserType = "seller"
)

func (t UserType) Valid() bool {
	return t == UserTypeBuyer || t == UserTypeSeller
}

type ProductCategory string

const (
	CategoryDiscord ProductCategory = "discord"
	CategoryChrome  ProductCategory = "chrome"
	CategoryTwitch  ProductCategory = "twitch"
)

// Categories lists the catalog categories in display order.
var Categories = []ProductCategory{CategoryDiscord, CategoryChrome, CategoryTwitch}

func (c ProductCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "draft"
	ProductStatusPending   ProductStatus = "pending"
	ProductStatusPublished ProductStatus = "published"
)

func (s ProductStatus) Valid() bool {
	return s == ProductStatusDraft || s == ProductStatusPending || s == ProductStatusPublished
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusRefunded  OrderStatus = "refunded"
)
