package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/errors"
)

// StockCheckInput describes the data required to verify a line against stock.
type StockCheckInput struct {
	ProductID    uuid.UUID
	ProductTitle string
	AvailableQty int
	Quantity     int
}

// StockViolationDetail exposes the data returned to callers when a reservation fails.
type StockViolationDetail struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductTitle string    `json:"product_title,omitempty"`
	AvailableQty int       `json:"available_qty"`
	RequestedQty int       `json:"requested_qty"`
}

// ValidateStock ensures every provided line can be covered by current stock.
func ValidateStock(items []StockCheckInput) error {
	var violations []StockViolationDetail
	for _, item := range items {
		if item.Quantity <= item.AvailableQty {
			continue
		}
		violations = append(violations, StockViolationDetail{
			ProductID:    item.ProductID,
			ProductTitle: item.ProductTitle,
			AvailableQty: item.AvailableQty,
			RequestedQty: item.Quantity,
		})
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for %d item(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}

// ValidateQuantities rejects non-positive line quantities before any stock work.
func ValidateQuantities(items []StockCheckInput) error {
	for _, item := range items {
		if item.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be at least 1 for product %s", item.ProductID)).WithDetails(map[string]any{
				"product_id":    item.ProductID,
				"requested_qty": item.Quantity,
			})
		}
	}
	return nil
}
