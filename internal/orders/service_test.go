package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
	pkgerrors "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/errors"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/outbox"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/outbox/payloads"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type releaseCall struct {
	productID uuid.UUID
	qty       int
}

type stubReleaser struct {
	calls []releaseCall
}

func (s *stubReleaser) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	s.calls = append(s.calls, releaseCall{productID: productID, qty: qty})
	return nil
}

type captureOutbox struct {
	events []outbox.DomainEvent
}

func (c *captureOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func newTestService(t *testing.T, db *gorm.DB) (*Service, *stubReleaser, *captureOutbox) {
	t.Helper()
	releaser := &stubReleaser{}
	publisher := &captureOutbox{}
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, releaser, publisher)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, releaser, publisher
}

func TestServiceSetStatusForward(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	order := seedOrder(t, db, uuid.New(), placedAt)
	svc, _, publisher := newTestService(t, db)
	svc.now = func() time.Time { return placedAt.Add(time.Minute) }
	admin := Actor{UserID: uuid.New(), Role: enums.MemberRoleAdmin}

	detail, err := svc.SetStatus(ctx, order.ID, enums.OrderStatusShipped, admin)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if detail.Status != enums.OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", detail.Status)
	}
	if len(detail.Timeline) != 5 {
		t.Fatalf("expected appended override entry, got %d entries", len(detail.Timeline))
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.EventType != enums.OutboxEventOrderStatusChanged {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	payload, ok := event.Data.(payloads.OrderStatusChangedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Data)
	}
	if payload.FromStatus != enums.OrderStatusPending || payload.ToStatus != enums.OrderStatusShipped {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestServiceSetStatusRejectsBackward(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	order := seedOrder(t, db, uuid.New(), placedAt)
	svc, _, _ := newTestService(t, db)
	svc.now = func() time.Time { return placedAt.Add(40 * time.Minute) }
	admin := Actor{UserID: uuid.New(), Role: enums.MemberRoleAdmin}

	_, err := svc.SetStatus(ctx, order.ID, enums.OrderStatusProcessing, admin)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for backward move, got %v", err)
	}

	_, err = svc.SetStatus(ctx, order.ID, enums.OrderStatusPending, admin)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for pending target, got %v", err)
	}

	_, err = svc.SetStatus(ctx, order.ID, enums.OrderStatusCancelled, admin)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict cancelling a delivered order, got %v", err)
	}
}

func TestServiceSetStatusCancelReleasesStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	order := seedOrder(t, db, uuid.New(), placedAt)
	svc, releaser, publisher := newTestService(t, db)
	svc.now = func() time.Time { return placedAt.Add(6 * time.Minute) }
	admin := Actor{UserID: uuid.New(), Role: enums.MemberRoleAdmin}

	detail, err := svc.SetStatus(ctx, order.ID, enums.OrderStatusCancelled, admin)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if detail.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", detail.Status)
	}

	if len(releaser.calls) != 1 {
		t.Fatalf("expected 1 release call, got %d", len(releaser.calls))
	}
	var found bool
	loaded, err := svc.repo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	for _, l := range loaded.Lines {
		if releaser.calls[0].productID == l.ProductID && releaser.calls[0].qty == l.Quantity {
			found = true
		}
	}
	if !found {
		t.Fatalf("release call %+v does not match any order line", releaser.calls[0])
	}

	if len(publisher.events) != 2 {
		t.Fatalf("expected status_changed and cancelled events, got %d", len(publisher.events))
	}
	cancelled, ok := publisher.events[1].Data.(payloads.OrderCancelledEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", publisher.events[1].Data)
	}
	if !cancelled.StockReleased {
		t.Fatal("expected stock release to be recorded on the event")
	}

	_, err = svc.SetStatus(ctx, order.ID, enums.OrderStatusShipped, admin)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected cancelled order to be terminal, got %v", err)
	}
}

func TestServiceSetStatusCancelAfterShipKeepsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	order := seedOrder(t, db, uuid.New(), placedAt)
	svc, releaser, publisher := newTestService(t, db)
	svc.now = func() time.Time { return placedAt.Add(20 * time.Minute) }
	admin := Actor{UserID: uuid.New(), Role: enums.MemberRoleAdmin}

	detail, err := svc.SetStatus(ctx, order.ID, enums.OrderStatusCancelled, admin)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if detail.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", detail.Status)
	}
	if len(releaser.calls) != 0 {
		t.Fatalf("expected no stock release after shipping, got %d calls", len(releaser.calls))
	}
	cancelled := publisher.events[len(publisher.events)-1].Data.(payloads.OrderCancelledEvent)
	if cancelled.StockReleased {
		t.Fatal("expected stock release flag to be false after shipping")
	}
}

func TestServiceSetStatusAuthorization(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	order := seedOrder(t, db, uuid.New(), placedAt)
	svc, _, _ := newTestService(t, db)
	svc.now = func() time.Time { return placedAt.Add(time.Minute) }

	_, err := svc.SetStatus(ctx, order.ID, enums.OrderStatusShipped, Actor{UserID: uuid.New(), Role: enums.MemberRoleBuyer})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for buyer, got %v", err)
	}

	admin := Actor{UserID: uuid.New(), Role: enums.MemberRoleAdmin}
	_, err = svc.SetStatus(ctx, order.ID, enums.OrderStatus("returned"), admin)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation for unknown status, got %v", err)
	}

	_, err = svc.SetStatus(ctx, uuid.New(), enums.OrderStatusShipped, admin)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown order, got %v", err)
	}
}

func TestServiceGetByIDAccess(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	buyerID := uuid.New()
	order := seedOrder(t, db, buyerID, placedAt)
	svc, _, _ := newTestService(t, db)
	svc.now = func() time.Time { return placedAt.Add(6 * time.Minute) }

	detail, err := svc.GetByID(ctx, order.ID, Actor{UserID: buyerID, Role: enums.MemberRoleBuyer})
	if err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if detail.Status != enums.OrderStatusProcessing {
		t.Fatalf("expected processing at six minutes, got %s", detail.Status)
	}

	if _, err := svc.GetByID(ctx, order.ID, Actor{UserID: uuid.New(), Role: enums.MemberRoleAdmin}); err != nil {
		t.Fatalf("admin get: %v", err)
	}

	_, err = svc.GetByID(ctx, order.ID, Actor{UserID: uuid.New(), Role: enums.MemberRoleBuyer})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for another buyer, got %v", err)
	}
}

func TestServiceListByBuyer(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	buyerID := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedOrder(t, db, buyerID, base.Add(time.Duration(i)*time.Hour))
	}
	svc, _, _ := newTestService(t, db)
	svc.now = func() time.Time { return base.Add(3 * time.Hour) }

	page, err := svc.ListByBuyer(ctx, buyerID, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	if page.NextCursor == "" {
		t.Fatal("expected a next cursor")
	}
	if !page.Items[0].Order.PlacedAt.After(page.Items[1].Order.PlacedAt) {
		t.Fatal("expected newest order first")
	}

	rest, err := svc.ListByBuyer(ctx, buyerID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("list rest: %v", err)
	}
	if len(rest.Items) != 1 || rest.NextCursor != "" {
		t.Fatalf("expected final page of 1, got %d items cursor %q", len(rest.Items), rest.NextCursor)
	}

	_, err = svc.ListByBuyer(ctx, buyerID, pagination.Params{Cursor: "not-base64"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation for bad cursor, got %v", err)
	}
}
