package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
)

// OrderPlacedEvent signals a successfully committed checkout.
type OrderPlacedEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	BuyerID          uuid.UUID `json:"buyer_id"`
	CartID           uuid.UUID `json:"cart_id"`
	ConfirmationCode string    `json:"confirmation_code"`
	TotalCents       int       `json:"total_cents"`
	LineCount        int       `json:"line_count"`
	PlacedAt         time.Time `json:"placed_at"`
}

// OrderStatusChangedEvent is emitted when an admin overrides the timeline.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	BuyerID    uuid.UUID         `json:"buyer_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	ChangedAt  time.Time         `json:"changed_at"`
}

// OrderCancelledEvent is emitted when an order reaches the cancelled state.
type OrderCancelledEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	BuyerID       uuid.UUID `json:"buyer_id"`
	CancelledAt   time.Time `json:"cancelled_at"`
	StockReleased bool      `json:"stock_released"`
}

// InventoryRestockedEvent records a seller-initiated stock increase.
type InventoryRestockedEvent struct {
	ProductID    uuid.UUID `json:"product_id"`
	AddedQty     int       `json:"added_qty"`
	AvailableQty int       `json:"available_qty"`
}

// ReviewSubmittedEvent carries the refreshed product rating aggregate.
type ReviewSubmittedEvent struct {
	ReviewID      uuid.UUID `json:"review_id"`
	ProductID     uuid.UUID `json:"product_id"`
	BuyerID       uuid.UUID `json:"buyer_id"`
	OrderID       uuid.UUID `json:"order_id"`
	Rating        int       `json:"rating"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int       `json:"review_count"`
}
