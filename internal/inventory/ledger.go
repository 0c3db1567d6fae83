package inventory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgcheckout "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/checkout"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	pkgerrors "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/errors"
)

// ReservationRequest asks the ledger to set aside qty units of a product.
type ReservationRequest struct {
	ProductID    uuid.UUID
	ProductTitle string
	Qty          int
}

// Ledger owns all mutations of inventory_items. Quantities only move through
// conditional SQL, so available_qty can never go negative.
type Ledger struct {
	db *gorm.DB
}

// NewLedger binds the ledger to the provided GORM handle.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Reserve decrements stock for every request or none of them. Requests are
// processed in product-id order so concurrent checkouts acquire row locks in
// a stable sequence. The first shortfall aborts the caller's transaction with
// the product named.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory reserve")
	}

	checks := make([]pkgcheckout.StockCheckInput, len(requests))
	for i, req := range requests {
		checks[i] = pkgcheckout.StockCheckInput{
			ProductID:    req.ProductID,
			ProductTitle: req.ProductTitle,
			Quantity:     req.Qty,
		}
	}
	if err := pkgcheckout.ValidateQuantities(checks); err != nil {
		return err
	}

	ordered := make([]ReservationRequest, len(requests))
	copy(ordered, requests)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ProductID.String() < ordered[j].ProductID.String()
	})

	for _, req := range ordered {
		res := tx.WithContext(ctx).Exec(`
			UPDATE inventory_items
			SET available_qty = available_qty - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE product_id = ? AND available_qty >= ?
		`, req.Qty, req.ProductID, req.Qty)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
		}
		if res.RowsAffected > 0 {
			continue
		}

		available := 0
		item, err := l.getTx(ctx, tx, req.ProductID)
		if err == nil {
			available = item.AvailableQty
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory after failed reserve")
		}

		return pkgcheckout.ValidateStock([]pkgcheckout.StockCheckInput{{
			ProductID:    req.ProductID,
			ProductTitle: req.ProductTitle,
			AvailableQty: available,
			Quantity:     req.Qty,
		}})
	}

	return nil
}

// Release returns previously reserved stock, used when an order is cancelled
// before shipping.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory release")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET available_qty = available_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?
	`, qty, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release inventory")
	}
	return nil
}

// AddStockTx increments stock inside the caller's transaction and returns the
// resulting quantity.
func (l *Ledger) AddStockTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (int, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for restock")
	}
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET available_qty = available_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?
	`, qty, productID)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restock inventory")
	}
	if res.RowsAffected == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	}

	item, err := l.getTx(ctx, tx, productID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory after restock")
	}
	return item.AvailableQty, nil
}

// GetByProductID returns the inventory row for the product.
func (l *Ledger) GetByProductID(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error) {
	return l.getTx(ctx, l.db, productID)
}

func (l *Ledger) getTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := tx.WithContext(ctx).First(&item, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}
