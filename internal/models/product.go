// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Product struct {
	BaseModel
	SellerID    uuid.UUID       `json:"seller_id" gorm:"type:uuid;not null;index"`
	Title       string          `json:"title" gorm:"size:255;not null"`
	Subtitle    string          `json:"subtitle,omitempty" gorm:"size:255"`
	Description string          `json:"description" gorm:"type:text"`
	Category    ProductCategory `json:"category" gorm:"type:varchar(20);not null;index"`
	Price       float64         `json:"price" gorm:"type:decimal(10,2);not null"`
	ImageURL    string          `json:"image_url,omitempty" gorm:"size:1024"`
	GalleryURLs pq.StringArray  `json:"gallery_urls" gorm:"type:text[]"`
	FileURL     string          `json:"file_url,omitempty" gorm:"size:1024"`
	FileKey     string          `json:"-" gorm:"size:512"`
	Version     string          `json:"version" gorm:"size:50;default:'1.0.0'"`
	Status      ProductStatus   `json:"status" gorm:"type:varchar(20);default:'draft';index"`
	Downloads   int64           `json:"downloads" gorm:"default:0"`
	Sales       int64           `json:"sales" gorm:"default:0"`
	RatingAvg   float64         `json:"rating_avg" gorm:"type:decimal(3,2);default:0"`
	RatingCount int64           `json:"rating_count" gorm:"default:0"`
	Tags        pq.StringArray  `json:"tags" gorm:"type:text[]"`

	// Relationships
	Seller *Profile `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
}

func (p *Product) IsPublished() bool {
	return p.Status == ProductStatusPublished
}
