package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/orders"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
)

type orderLineDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	Title          string    `json:"title"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int       `json:"line_total_cents"`
}

type timelineEntryDTO struct {
	Status  enums.OrderStatus  `json:"status"`
	Source  enums.StatusSource `json:"source"`
	StartAt time.Time          `json:"start_at"`
}

type orderDTO struct {
	ID               uuid.UUID          `json:"id"`
	ConfirmationCode string             `json:"confirmation_code"`
	Status           enums.OrderStatus  `json:"status"`
	TotalCents       int                `json:"total_cents"`
	ShippingAddress  string             `json:"shipping_address"`
	PaymentMethod    string             `json:"payment_method"`
	PlacedAt         time.Time          `json:"placed_at"`
	Lines            []orderLineDTO     `json:"lines"`
	Timeline         []timelineEntryDTO `json:"timeline"`
}

type orderPageDTO struct {
	Items      []orderDTO `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func newOrderDTO(detail *orders.Detail) orderDTO {
	order := detail.Order
	lines := make([]orderLineDTO, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineDTO{
			ProductID:      line.ProductID,
			Title:          line.Title,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
			LineTotalCents: line.LineTotalCents,
		})
	}
	timeline := make([]timelineEntryDTO, 0, len(detail.Timeline))
	for _, entry := range detail.Timeline {
		timeline = append(timeline, timelineEntryDTO{
			Status:  entry.Status,
			Source:  entry.Source,
			StartAt: entry.StartAt,
		})
	}
	return orderDTO{
		ID:               order.ID,
		ConfirmationCode: order.ConfirmationCode,
		Status:           detail.Status,
		TotalCents:       order.TotalCents,
		ShippingAddress:  order.ShippingAddress,
		PaymentMethod:    order.PaymentMethod,
		PlacedAt:         order.PlacedAt,
		Lines:            lines,
		Timeline:         timeline,
	}
}

func newPlacedOrderDTO(order *models.Order, now time.Time) orderDTO {
	return newOrderDTO(&orders.Detail{
		Order:    order,
		Status:   orders.CurrentStatus(order.StatusEntries, now),
		Timeline: orders.Timeline(order.StatusEntries),
	})
}
