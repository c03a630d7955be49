// internal/models/license.go
package models

import (
	"github.com/google/uuid"
)

// License is issued exactly once per completed order.
type License struct {
	BaseModel
	OrderID          uuid.UUID `json:"order_id" gorm:"type:uuid;not null;uniqueIndex"`
	ProductID        uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	BuyerID          uuid.UUID `json:"buyer_id" gorm:"type:uuid;not null;index"`
	LicenseKey       string    `json:"license_key" gorm:"size:32;uniqueIndex;not null"`
	ActivationsLimit int       `json:"activations_limit" gorm:"default:1"`
	ActivationsCount int       `json:"activations_count" gorm:"default:0"`
	IsActive         bool      `json:"is_active" gorm:"default:true"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
