package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/pagination"
)

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID                  uuid.UUID     `json:"id"`
	SellerID            uuid.UUID     `json:"seller_id"`
	SKU                 string        `json:"sku"`
	Title               string        `json:"title"`
	Description         *string       `json:"description,omitempty"`
	Category            string        `json:"category"`
	PriceCents          int           `json:"price_cents"`
	CompareAtPriceCents *int          `json:"compare_at_price_cents,omitempty"`
	ImageURL            *string       `json:"image_url,omitempty"`
	Rating              float64       `json:"rating"`
	ReviewsCount        int           `json:"reviews_count"`
	IsActive            bool          `json:"is_active"`
	Inventory           *InventoryDTO `json:"inventory,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// InventoryDTO exposes the stock counter.
type InventoryDTO struct {
	AvailableQty int       `json:"available_qty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewProductDTO maps the model to the response payload.
func NewProductDTO(product *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:                  product.ID,
		SellerID:            product.SellerID,
		SKU:                 product.SKU,
		Title:               product.Title,
		Description:         product.Description,
		Category:            product.Category,
		PriceCents:          product.PriceCents,
		CompareAtPriceCents: product.CompareAtPriceCents,
		ImageURL:            product.ImageURL,
		Rating:              product.Rating,
		ReviewsCount:        product.ReviewsCount,
		IsActive:            product.IsActive,
		CreatedAt:           product.CreatedAt,
		UpdatedAt:           product.UpdatedAt,
	}
	if product.Inventory != nil {
		dto.Inventory = &InventoryDTO{
			AvailableQty: product.Inventory.AvailableQty,
			UpdatedAt:    product.Inventory.UpdatedAt,
		}
	}
	return dto
}

// ProductSummary is the browse-list projection.
type ProductSummary struct {
	ID                  uuid.UUID `json:"id"`
	SellerID            uuid.UUID `json:"seller_id"`
	SKU                 string    `json:"sku"`
	Title               string    `json:"title"`
	Category            string    `json:"category"`
	PriceCents          int       `json:"price_cents"`
	CompareAtPriceCents *int      `json:"compare_at_price_cents,omitempty"`
	ImageURL            *string   `json:"image_url,omitempty"`
	Rating              float64   `json:"rating"`
	ReviewsCount        int       `json:"reviews_count"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ProductListResult is one cursor page of summaries.
type ProductListResult struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// ProductListFilters describe the supported filter knobs for the browse
// endpoint.
type ProductListFilters struct {
	Category      *string `json:"category,omitempty"`
	PriceMinCents *int    `json:"price_min_cents,omitempty"`
	PriceMaxCents *int    `json:"price_max_cents,omitempty"`
	Query         string  `json:"q,omitempty"`
}

// ListProductsInput captures the inputs needed to paginate and filter the
// catalog. SellerID scopes the list to a seller's own products, inactive
// included.
type ListProductsInput struct {
	SellerID   *uuid.UUID
	Filters    ProductListFilters
	Pagination pagination.Params
}
