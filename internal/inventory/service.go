package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
	pkgerrors "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/errors"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/outbox"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the external restock entry point on top of the ledger.
type Service struct {
	ledger *Ledger
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds the inventory service.
func NewService(ledger *Ledger, tx txRunner, publisher outboxPublisher) (*Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Service{ledger: ledger, tx: tx, outbox: publisher}, nil
}

// RestockInput carries an external stock delivery.
type RestockInput struct {
	ProductID uuid.UUID
	Qty       int
	Actor     *outbox.ActorRef
}

// Restock adds stock for a product and records the event in the same
// transaction.
func (s *Service) Restock(ctx context.Context, input RestockInput) (*models.InventoryItem, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}

	var result *models.InventoryItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		available, err := s.ledger.AddStockTx(ctx, tx, input.ProductID, input.Qty)
		if err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventInventoryRestocked,
			AggregateType: enums.OutboxAggregateInventory,
			AggregateID:   input.ProductID,
			Version:       1,
			Actor:         input.Actor,
			Data: payloads.InventoryRestockedEvent{
				ProductID:    input.ProductID,
				AddedQty:     input.Qty,
				AvailableQty: available,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		result, err = s.ledger.getTx(ctx, tx, input.ProductID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns current stock for a product.
func (s *Service) Get(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	item, err := s.ledger.GetByProductID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
	}
	return item, nil
}
