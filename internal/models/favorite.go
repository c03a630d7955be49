// internal/models/favorite.go
package models

import (
	"github.com/google/uuid"
)

type Favorite struct {
	BaseModel
	ProfileID uuid.UUID `json:"profile_id" gorm:"type:uuid;not null;uniqueIndex:idx_favorites_profile_product"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_favorites_profile_product"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
