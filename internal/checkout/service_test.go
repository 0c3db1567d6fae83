package checkout

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/cart"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/inventory"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/orders"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/config"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
	pkgerrors "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/errors"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/metrics"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/outbox"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/outbox/payloads"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubResolver struct {
	record *models.CartRecord
	lines  []cart.ResolvedLine
	err    error
}

func (s stubResolver) Resolve(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, []cart.ResolvedLine, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.record, s.lines, nil
}

type captureOutbox struct {
	events []outbox.DomainEvent
}

func (c *captureOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

type fixture struct {
	db        *gorm.DB
	svc       *Service
	registry  *prometheus.Registry
	met       *metrics.CheckoutMetrics
	publisher *captureOutbox
	buyerID   uuid.UUID
	cartID    uuid.UUID
	productID uuid.UUID
}

func testConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		ProcessingOffset: 5 * time.Minute,
		ShippedOffset:    15 * time.Minute,
		DeliveredOffset:  30 * time.Minute,
	}
}

// newFixture seeds an active cart resolving to 2 x 1250 cents of a product
// with the given stock and wires the coordinator against sqlite.
func newFixture(t *testing.T, stock int) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:        db,
		registry:  prometheus.NewRegistry(),
		publisher: &captureOutbox{},
		buyerID:   uuid.New(),
		cartID:    uuid.New(),
		productID: uuid.New(),
	}
	f.met = metrics.NewCheckoutMetrics(f.registry)

	if err := db.Create(&models.InventoryItem{ProductID: f.productID, AvailableQty: stock}).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	record := &models.CartRecord{ID: f.cartID, BuyerID: f.buyerID, Status: enums.CartStatusActive}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	resolver := stubResolver{
		record: record,
		lines: []cart.ResolvedLine{{
			ProductID:      f.productID,
			Title:          "Widget",
			UnitPriceCents: 1250,
			Quantity:       2,
			LineTotalCents: 2500,
		}},
	}

	svc, err := NewService(
		testConfig(),
		gormTxRunner{db: db},
		resolver,
		NewCartConverter(cart.NewRepository(db)),
		inventory.NewLedger(db),
		orders.NewRepository(db),
		f.publisher,
		f.met,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func validInput() Input {
	return Input{ShippingAddress: "12 Harbor Lane", PaymentMethod: "card"}
}

func TestServiceExecutePlacesOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5)
	ctx := context.Background()

	order, err := f.svc.Execute(ctx, f.buyerID, validInput())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if order.TotalCents != 2500 {
		t.Fatalf("expected total 2500 cents, got %d", order.TotalCents)
	}
	if !strings.HasPrefix(order.ConfirmationCode, "CONF") || len(order.ConfirmationCode) != 10 {
		t.Fatalf("unexpected confirmation code %q", order.ConfirmationCode)
	}
	if len(order.Lines) != 1 || order.Lines[0].LineTotalCents != 2500 {
		t.Fatalf("unexpected lines %+v", order.Lines)
	}
	if len(order.StatusEntries) != 4 {
		t.Fatalf("expected 4 scheduled entries, got %d", len(order.StatusEntries))
	}
	for i, want := range []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
	} {
		entry := order.StatusEntries[i]
		if entry.Status != want || entry.Source != enums.StatusSourceScheduled {
			t.Fatalf("entry %d: expected scheduled %s, got %+v", i, want, entry)
		}
	}
	wantOffsets := []time.Duration{0, 5 * time.Minute, 15 * time.Minute, 30 * time.Minute}
	for i, offset := range wantOffsets {
		if got := order.StatusEntries[i].StartAt.Sub(order.PlacedAt); got != offset {
			t.Fatalf("entry %d: expected offset %s, got %s", i, offset, got)
		}
	}

	var item models.InventoryItem
	if err := f.db.First(&item, "product_id = ?", f.productID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	if item.AvailableQty != 3 {
		t.Fatalf("expected stock 3 after reservation, got %d", item.AvailableQty)
	}

	var cartRow models.CartRecord
	if err := f.db.First(&cartRow, "id = ?", f.cartID).Error; err != nil {
		t.Fatalf("load cart: %v", err)
	}
	if cartRow.Status != enums.CartStatusConverted || cartRow.OrderID == nil || *cartRow.OrderID != order.ID {
		t.Fatalf("expected converted cart linked to order, got %+v", cartRow)
	}

	if len(f.publisher.events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(f.publisher.events))
	}
	payload, ok := f.publisher.events[0].Data.(payloads.OrderPlacedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", f.publisher.events[0].Data)
	}
	if payload.OrderID != order.ID || payload.TotalCents != 2500 {
		t.Fatalf("unexpected payload %+v", payload)
	}

	if got := counterValue(t, f.registry, "checkout_success_total"); got != 1 {
		t.Fatalf("expected success counter 1, got %v", got)
	}
}

func TestServiceExecuteInsufficientStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.Execute(ctx, f.buyerID, validInput())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var item models.InventoryItem
	if err := f.db.First(&item, "product_id = ?", f.productID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	if item.AvailableQty != 1 {
		t.Fatalf("expected rollback to keep stock at 1, got %d", item.AvailableQty)
	}

	var orderCount int64
	if err := f.db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("expected no orders after abort, got %d", orderCount)
	}

	var cartRow models.CartRecord
	if err := f.db.First(&cartRow, "id = ?", f.cartID).Error; err != nil {
		t.Fatalf("load cart: %v", err)
	}
	if cartRow.Status != enums.CartStatusActive {
		t.Fatalf("expected cart to stay active, got %s", cartRow.Status)
	}

	if got := counterValue(t, f.registry, "checkout_insufficient_stock_total"); got != 1 {
		t.Fatalf("expected insufficient stock counter 1, got %v", got)
	}
}

func TestServiceExecuteIdempotentReplay(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5)
	ctx := context.Background()
	key := "checkout-" + uuid.NewString()
	input := validInput()
	input.IdempotencyKey = &key

	first, err := f.svc.Execute(ctx, f.buyerID, input)
	if err != nil {
		t.Fatalf("first execute: %v", err)
	}

	second, err := f.svc.Execute(ctx, f.buyerID, input)
	if err != nil {
		t.Fatalf("replay execute: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected replay to return order %s, got %s", first.ID, second.ID)
	}

	var item models.InventoryItem
	if err := f.db.First(&item, "product_id = ?", f.productID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	if item.AvailableQty != 3 {
		t.Fatalf("expected stock reserved once, got %d", item.AvailableQty)
	}

	_, err = f.svc.Execute(ctx, uuid.New(), input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeIdempotency {
		t.Fatalf("expected idempotency conflict for another buyer, got %v", err)
	}
}

func TestServiceExecuteCartAlreadyConverted(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5)
	ctx := context.Background()

	if err := f.db.Model(&models.CartRecord{}).
		Where("id = ?", f.cartID).
		Update("status", enums.CartStatusConverted).Error; err != nil {
		t.Fatalf("convert cart: %v", err)
	}

	_, err := f.svc.Execute(ctx, f.buyerID, validInput())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	var item models.InventoryItem
	if err := f.db.First(&item, "product_id = ?", f.productID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	if item.AvailableQty != 5 {
		t.Fatalf("expected reservation rollback, got %d", item.AvailableQty)
	}
}

func TestServiceExecuteValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5)
	ctx := context.Background()

	for _, input := range []Input{
		{ShippingAddress: "", PaymentMethod: "card"},
		{ShippingAddress: "12 Harbor Lane", PaymentMethod: "  "},
	} {
		_, err := f.svc.Execute(ctx, f.buyerID, input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}

	_, err := f.svc.Execute(ctx, uuid.Nil, validInput())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for nil buyer, got %v", err)
	}
}

// counterValue sums the samples of a counter family on the registry.
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.InventoryItem{}); err != nil {
		t.Fatalf("migrate inventory: %v", err)
	}
	statements := []string{
		`CREATE TABLE cart_records (
			id TEXT PRIMARY KEY,
			buyer_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			order_id TEXT,
			converted_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE orders (
			id TEXT PRIMARY KEY,
			buyer_id TEXT NOT NULL,
			cart_id TEXT NOT NULL,
			confirmation_code TEXT NOT NULL UNIQUE,
			total_cents INTEGER NOT NULL,
			shipping_address TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			idempotency_key TEXT,
			placed_at DATETIME NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE UNIQUE INDEX idx_orders_idempotency_key ON orders (idempotency_key) WHERE idempotency_key IS NOT NULL`,
		`CREATE TABLE order_lines (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			title TEXT NOT NULL,
			unit_price_cents INTEGER NOT NULL,
			quantity INTEGER NOT NULL,
			line_total_cents INTEGER NOT NULL,
			created_at DATETIME
		)`,
		`CREATE TABLE order_status_entries (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			status TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'scheduled',
			start_at DATETIME NOT NULL,
			created_at DATETIME
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}
