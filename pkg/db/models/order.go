package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is the immutable record produced by a successful checkout. Line
// totals and the confirmation code are snapshots; edits after placement are
// limited to the status timeline.
type Order struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID          uuid.UUID          `gorm:"column:buyer_id;type:uuid;not null;index"`
	CartID           uuid.UUID          `gorm:"column:cart_id;type:uuid;not null"`
	ConfirmationCode string             `gorm:"column:confirmation_code;not null;uniqueIndex:idx_orders_confirmation_code"`
	TotalCents       int                `gorm:"column:total_cents;not null"`
	ShippingAddress  string             `gorm:"column:shipping_address;not null"`
	PaymentMethod    string             `gorm:"column:payment_method;not null"`
	IdempotencyKey   *string            `gorm:"column:idempotency_key;uniqueIndex:idx_orders_idempotency_key"`
	PlacedAt         time.Time          `gorm:"column:placed_at;not null"`
	Lines            []OrderLine        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusEntries    []OrderStatusEntry `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
