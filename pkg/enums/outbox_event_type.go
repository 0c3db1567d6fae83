package enums

import "fmt"

// OutboxEventType names the domain events recorded for asynchronous delivery.
type OutboxEventType string

const (
	OutboxEventOrderPlaced        OutboxEventType = "order.placed"
	OutboxEventOrderStatusChanged OutboxEventType = "order.status_changed"
	OutboxEventOrderCancelled     OutboxEventType = "order.cancelled"
	OutboxEventInventoryRestocked OutboxEventType = "inventory.restocked"
	OutboxEventReviewSubmitted    OutboxEventType = "review.submitted"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxEventOrderPlaced,
	OutboxEventOrderStatusChanged,
	OutboxEventOrderCancelled,
	OutboxEventInventoryRestocked,
	OutboxEventReviewSubmitted,
}

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
