package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents the canonical seller listing.
type Product struct {
	ID                  uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID            uuid.UUID      `gorm:"column:seller_id;type:uuid;not null"`
	SKU                 string         `gorm:"column:sku;not null"`
	Title               string         `gorm:"column:title;not null"`
	Description         *string        `gorm:"column:description"`
	Category            string         `gorm:"column:category;not null"`
	PriceCents          int            `gorm:"column:price_cents;not null"`
	CompareAtPriceCents *int           `gorm:"column:compare_at_price_cents"`
	ImageURL            *string        `gorm:"column:image_url"`
	Rating              float64        `gorm:"column:rating;type:numeric(2,1);not null;default:0"`
	ReviewsCount        int            `gorm:"column:reviews_count;not null;default:0"`
	IsActive            bool           `gorm:"column:is_active;not null;default:true"`
	Inventory           *InventoryItem `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
