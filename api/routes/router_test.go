package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/cart"
	checkoutsvc "github.com/Abdallah-AbouHamdan/SHOP-4U/internal/checkout"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/inventory"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/orders"
	product "github.com/Abdallah-AbouHamdan/SHOP-4U/internal/products"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/reviews"
	pkgauth "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/auth"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/config"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/metrics"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type noopOutbox struct{}

func (noopOutbox) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return nil
}

type fixture struct {
	db      *gorm.DB
	handler http.Handler
	cfg     *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	tx := gormTxRunner{db: db}

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{Secret: "router-test-secret", Issuer: "shop4u-test", ExpirationMinutes: 30}
	cfg.Checkout = config.CheckoutConfig{
		ProcessingOffset: 5 * time.Minute,
		ShippedOffset:    15 * time.Minute,
		DeliveredOffset:  30 * time.Minute,
		IdempotencyTTL:   24 * time.Hour,
	}
	cfg.Reviews = config.ReviewsConfig{QuotaScope: config.ReviewQuotaScopeProduct, QuotaLimit: 2}

	productRepo := product.NewRepository(db)
	productSvc, err := product.NewService(productRepo, tx)
	if err != nil {
		t.Fatalf("product service: %v", err)
	}

	cartRepo := cart.NewRepository(db)
	cartSvc, err := cart.NewService(cartRepo, tx, productRepo)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}

	ledger := inventory.NewLedger(db)
	inventorySvc, err := inventory.NewService(ledger, tx, noopOutbox{})
	if err != nil {
		t.Fatalf("inventory service: %v", err)
	}

	ordersRepo := orders.NewRepository(db)
	ordersSvc, err := orders.NewService(ordersRepo, tx, ledger, noopOutbox{})
	if err != nil {
		t.Fatalf("orders service: %v", err)
	}

	registry := prometheus.NewRegistry()
	checkoutSvc, err := checkoutsvc.NewService(
		cfg.Checkout,
		tx,
		cartSvc,
		checkoutsvc.NewCartConverter(cartRepo),
		ledger,
		ordersRepo,
		noopOutbox{},
		metrics.NewCheckoutMetrics(registry),
	)
	if err != nil {
		t.Fatalf("checkout service: %v", err)
	}

	reviewsRepo := reviews.NewRepository(db)
	reviewsSvc, err := reviews.NewService(cfg.Reviews, reviewsRepo, tx, ordersRepo, noopOutbox{})
	if err != nil {
		t.Fatalf("reviews service: %v", err)
	}

	handler := NewRouter(cfg, nil, nil, nil, registry, Services{
		Cart:      cartSvc,
		Checkout:  checkoutSvc,
		Orders:    ordersSvc,
		Products:  productSvc,
		Reviews:   reviewsSvc,
		Inventory: inventorySvc,
	})

	return &fixture{db: db, handler: handler, cfg: cfg}
}

func (f *fixture) token(t *testing.T, userID uuid.UUID, role enums.MemberRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(f.cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body.String(), err)
	}
	return envelope.Data
}

func (f *fixture) seedProduct(t *testing.T, sellerID uuid.UUID, priceCents, stock int) uuid.UUID {
	t.Helper()
	row := &models.Product{
		ID:         uuid.New(),
		SellerID:   sellerID,
		SKU:        "SKU-" + uuid.NewString()[:8],
		Title:      "Router Widget",
		Category:   "gadgets",
		PriceCents: priceCents,
		IsActive:   true,
	}
	if err := f.db.Create(row).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	item := &models.InventoryItem{ProductID: row.ID, AvailableQty: stock}
	if err := f.db.Create(item).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return row.ID
}

func TestRouterHealthLive(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health/live", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if data := decodeData(t, rec); data["status"] != "ok" {
		t.Fatalf("unexpected body %v", data)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouterRequiresAuth(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/cart", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/cart", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestRouterPublicCatalog(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedProduct(t, uuid.New(), 1500, 3)

	rec := f.do(t, http.MethodGet, "/api/v1/products", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	products, ok := data["products"].([]any)
	if !ok || len(products) != 1 {
		t.Fatalf("expected one product, got %v", data)
	}
}

func TestRouterBuyerCheckoutFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buyerID := uuid.New()
	adminID := uuid.New()
	buyerToken := f.token(t, buyerID, enums.MemberRoleBuyer)
	adminToken := f.token(t, adminID, enums.MemberRoleAdmin)
	productID := f.seedProduct(t, uuid.New(), 1250, 5)

	rec := f.do(t, http.MethodPost, "/api/v1/cart/items", buyerToken, map[string]any{
		"product_id": productID.String(),
		"quantity":   2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("add item: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/v1/checkout", buyerToken, map[string]any{
		"shipping_address": "12 Harbor Lane",
		"payment_method":   "card",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	order := decodeData(t, rec)
	if order["total_cents"] != float64(2500) {
		t.Fatalf("expected total 2500, got %v", order["total_cents"])
	}
	orderID := order["id"].(string)

	rec = f.do(t, http.MethodGet, "/api/v1/orders", buyerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list orders: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	page := decodeData(t, rec)
	if items, ok := page["items"].([]any); !ok || len(items) != 1 {
		t.Fatalf("expected one order, got %v", page)
	}

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/orders/%s/status", orderID), buyerToken, map[string]any{
		"status": "processing",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer on admin route, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/orders/%s/status", orderID), adminToken, map[string]any{
		"status": "processing",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	updated := decodeData(t, rec)
	if updated["status"] != "processing" {
		t.Fatalf("expected processing, got %v", updated["status"])
	}

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/inventory/%s/restock", productID), adminToken, map[string]any{
		"quantity": 7,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("restock: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	stock := decodeData(t, rec)
	if stock["available_qty"] != float64(10) {
		t.Fatalf("expected qty 10 after restock, got %v", stock["available_qty"])
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	statements := []string{
		`CREATE TABLE products (
			id TEXT PRIMARY KEY,
			seller_id TEXT NOT NULL,
			sku TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			category TEXT NOT NULL,
			price_cents INTEGER NOT NULL,
			compare_at_price_cents INTEGER,
			image_url TEXT,
			rating REAL NOT NULL DEFAULT 0,
			reviews_count INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE cart_records (
			id TEXT PRIMARY KEY,
			buyer_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			order_id TEXT,
			converted_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE cart_items (
			id TEXT PRIMARY KEY,
			cart_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (cart_id, product_id)
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
		`CREATE TABLE reviews (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL,
			buyer_id TEXT NOT NULL,
			order_id TEXT NOT NULL,
			rating INTEGER NOT NULL,
			comment TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	if err := db.AutoMigrate(&models.InventoryItem{}); err != nil {
		t.Fatalf("migrate inventory: %v", err)
	}
	return db
}
