package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
	pkgerrors "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/errors"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/outbox"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/outbox/payloads"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type captureOutbox struct {
	events []outbox.DomainEvent
}

func (c *captureOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func TestServiceRestock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	publisher := &captureOutbox{}
	svc, err := NewService(NewLedger(db), gormTxRunner{db: db}, publisher)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	product := uuid.New()
	if err := db.Create(&models.InventoryItem{ProductID: product, AvailableQty: 3}).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}

	item, err := svc.Restock(ctx, RestockInput{ProductID: product, Qty: 7})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if item.AvailableQty != 10 {
		t.Fatalf("expected 10 available, got %d", item.AvailableQty)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.EventType != enums.OutboxEventInventoryRestocked {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	if event.AggregateType != enums.OutboxAggregateInventory {
		t.Fatalf("unexpected aggregate type %s", event.AggregateType)
	}
	payload, ok := event.Data.(payloads.InventoryRestockedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Data)
	}
	if payload.AddedQty != 7 || payload.AvailableQty != 10 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestServiceRestockValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc, err := NewService(NewLedger(db), gormTxRunner{db: db}, &captureOutbox{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Restock(ctx, RestockInput{ProductID: uuid.Nil, Qty: 1})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.Restock(ctx, RestockInput{ProductID: uuid.New(), Qty: 0})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.Restock(ctx, RestockInput{ProductID: uuid.New(), Qty: 5})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
