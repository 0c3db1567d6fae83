package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	statements := []string{
		`CREATE TABLE orders (
			id TEXT PRIMARY KEY,
			buyer_id TEXT NOT NULL,
			cart_id TEXT NOT NULL,
			confirmation_code TEXT NOT NULL UNIQUE,
			total_cents INTEGER NOT NULL,
			shipping_address TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			idempotency_key TEXT UNIQUE,
			placed_at DATETIME NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
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

func seedOrder(t *testing.T, db *gorm.DB, buyerID uuid.UUID, placedAt time.Time) *models.Order {
	t.Helper()
	ctx := context.Background()
	repo := NewRepository(db)

	order := &models.Order{
		ID:               uuid.New(),
		BuyerID:          buyerID,
		CartID:           uuid.New(),
		ConfirmationCode: "CONF" + uuid.NewString()[:6],
		TotalCents:       2500,
		ShippingAddress:  "12 Harbor Lane",
		PaymentMethod:    "card",
		PlacedAt:         placedAt,
		CreatedAt:        placedAt,
	}
	require.NoError(t, repo.CreateOrder(ctx, order))

	lines := []models.OrderLine{{
		ID:             uuid.New(),
		OrderID:        order.ID,
		ProductID:      uuid.New(),
		Title:          "Widget",
		UnitPriceCents: 1250,
		Quantity:       2,
		LineTotalCents: 2500,
	}}
	require.NoError(t, repo.CreateLines(ctx, lines))

	entries := []models.OrderStatusEntry{
		{ID: uuid.New(), OrderID: order.ID, Status: enums.OrderStatusPending, Source: enums.StatusSourceScheduled, StartAt: placedAt},
		{ID: uuid.New(), OrderID: order.ID, Status: enums.OrderStatusProcessing, Source: enums.StatusSourceScheduled, StartAt: placedAt.Add(5 * time.Minute)},
		{ID: uuid.New(), OrderID: order.ID, Status: enums.OrderStatusShipped, Source: enums.StatusSourceScheduled, StartAt: placedAt.Add(15 * time.Minute)},
		{ID: uuid.New(), OrderID: order.ID, Status: enums.OrderStatusDelivered, Source: enums.StatusSourceScheduled, StartAt: placedAt.Add(30 * time.Minute)},
	}
	require.NoError(t, repo.CreateStatusEntries(ctx, entries))
	return order
}

func TestRepositoryFindByID(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)
	buyerID := uuid.New()
	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seeded := seedOrder(t, db, buyerID, placedAt)

	order, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.Equal(t, seeded.ConfirmationCode, order.ConfirmationCode)
	require.Len(t, order.Lines, 1)
	require.Len(t, order.StatusEntries, 4)
	require.Equal(t, enums.OrderStatusPending, order.StatusEntries[0].Status)
	require.Equal(t, enums.OrderStatusDelivered, order.StatusEntries[3].Status)

	_, err = repo.FindByID(ctx, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryFindByIdempotencyKey(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)
	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seeded := seedOrder(t, db, uuid.New(), placedAt)

	key := "checkout-" + uuid.NewString()
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", seeded.ID).Update("idempotency_key", key).Error)

	order, err := repo.FindByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	require.Equal(t, seeded.ID, order.ID)

	_, err = repo.FindByIdempotencyKey(ctx, "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListByBuyerPagination(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)
	buyerID := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var seeded []*models.Order
	for i := 0; i < 3; i++ {
		seeded = append(seeded, seedOrder(t, db, buyerID, base.Add(time.Duration(i)*time.Hour)))
	}
	seedOrder(t, db, uuid.New(), base)

	rows, err := repo.ListByBuyer(ctx, buyerID, nil, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, seeded[2].ID, rows[0].ID)
	require.Equal(t, seeded[1].ID, rows[1].ID)

	cursor := &pagination.Cursor{CreatedAt: rows[1].CreatedAt, ID: rows[1].ID}
	rest, err := repo.ListByBuyer(ctx, buyerID, cursor, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, seeded[0].ID, rest[0].ID)
}
