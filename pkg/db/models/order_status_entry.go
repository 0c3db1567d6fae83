package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
)

// OrderStatusEntry is one row of an order's fulfillment timeline. Scheduled
// entries are written at checkout with future start times; override entries
// are appended by admin updates and take effect immediately.
type OrderStatusEntry struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index:idx_order_status_entries_order_start"`
	Status    enums.OrderStatus  `gorm:"column:status;type:order_status;not null"`
	Source    enums.StatusSource `gorm:"column:source;type:status_source;not null;default:'scheduled'"`
	StartAt   time.Time          `gorm:"column:start_at;not null;index:idx_order_status_entries_order_start"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}
