package checkout

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/cart"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/inventory"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/orders"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/config"
	dbpkg "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
	pkgerrors "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/errors"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/metrics"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/outbox"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartResolver interface {
	Resolve(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, []cart.ResolvedLine, error)
}

type cartConverter interface {
	MarkConverted(ctx context.Context, tx *gorm.DB, cartID, orderID uuid.UUID, at time.Time) (int64, error)
}

type stockReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CartRepoConverter adapts the cart repository to the converter the
// coordinator needs inside its transaction.
type CartRepoConverter struct {
	repo *cart.Repository
}

// NewCartConverter wraps the cart repository.
func NewCartConverter(repo *cart.Repository) CartRepoConverter {
	return CartRepoConverter{repo: repo}
}

func (c CartRepoConverter) MarkConverted(ctx context.Context, tx *gorm.DB, cartID, orderID uuid.UUID, at time.Time) (int64, error) {
	return c.repo.WithTx(tx).MarkConverted(ctx, cartID, orderID, at)
}

// Input carries the buyer-provided checkout payload.
type Input struct {
	ShippingAddress string
	PaymentMethod   string
	IdempotencyKey  *string
	Actor           *outbox.ActorRef
}

// Service coordinates the single checkout transaction: reserve stock, snapshot
// the cart into an order, precompute the fulfillment timeline, convert the
// cart and queue the placement event.
type Service struct {
	cfg     config.CheckoutConfig
	tx      txRunner
	carts   cartResolver
	convert cartConverter
	stock   stockReserver
	orders  *orders.Repository
	outbox  outboxPublisher
	metrics *metrics.CheckoutMetrics
	now     func() time.Time
}

// NewService builds the checkout coordinator.
func NewService(
	cfg config.CheckoutConfig,
	tx txRunner,
	carts cartResolver,
	convert cartConverter,
	stock stockReserver,
	ordersRepo *orders.Repository,
	publisher outboxPublisher,
	checkoutMetrics *metrics.CheckoutMetrics,
) (*Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart resolver required")
	}
	if convert == nil {
		return nil, fmt.Errorf("cart converter required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock reserver required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Service{
		cfg:     cfg,
		tx:      tx,
		carts:   carts,
		convert: convert,
		stock:   stock,
		orders:  ordersRepo,
		outbox:  publisher,
		metrics: checkoutMetrics,
		now:     time.Now,
	}, nil
}

// errIdempotentReplay signals that the insert lost a race against another
// request carrying the same idempotency key.
var errIdempotentReplay = errors.New("idempotency key already used")

// Execute runs checkout for the buyer's active cart. A repeated idempotency
// key returns the previously placed order without touching stock.
func (s *Service) Execute(ctx context.Context, buyerID uuid.UUID, input Input) (*models.Order, error) {
	start := s.now()
	order, err := s.execute(ctx, buyerID, input)
	s.metrics.ObserveDuration(outcomeFor(err), s.now().Sub(start))
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}
	s.metrics.IncSuccess()
	return order, nil
}

func (s *Service) execute(ctx context.Context, buyerID uuid.UUID, input Input) (*models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if strings.TrimSpace(input.ShippingAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}
	if strings.TrimSpace(input.PaymentMethod) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	}

	if existing, err := s.findReplay(ctx, buyerID, input.IdempotencyKey); existing != nil || err != nil {
		return existing, err
	}

	record, lines, err := s.carts.Resolve(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		ID:               uuid.New(),
		BuyerID:          buyerID,
		CartID:           record.ID,
		ConfirmationCode: newConfirmationCode(),
		TotalCents:       totalOf(lines),
		ShippingAddress:  strings.TrimSpace(input.ShippingAddress),
		PaymentMethod:    strings.TrimSpace(input.PaymentMethod),
		IdempotencyKey:   normalizeKey(input.IdempotencyKey),
		PlacedAt:         now,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.stock.Reserve(ctx, tx, reservationsFor(lines)); err != nil {
			return err
		}

		repo := s.orders.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			if order.IdempotencyKey != nil && dbpkg.IsUniqueViolation(err, "idx_orders_idempotency_key") {
				return errIdempotentReplay
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.CreateLines(ctx, linesFor(order, lines)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order lines")
		}
		if err := repo.CreateStatusEntries(ctx, s.timelineFor(order)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create status timeline")
		}

		converted, err := s.convert.MarkConverted(ctx, tx, record.ID, order.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert cart")
		}
		if converted == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart already processed")
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderPlaced,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderPlacedEvent{
				OrderID:          order.ID,
				BuyerID:          order.BuyerID,
				CartID:           order.CartID,
				ConfirmationCode: order.ConfirmationCode,
				TotalCents:       order.TotalCents,
				LineCount:        len(lines),
				PlacedAt:         now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit placement event")
		}
		return nil
	})
	if errors.Is(err, errIdempotentReplay) {
		return s.findReplay(ctx, buyerID, input.IdempotencyKey)
	}
	if err != nil {
		return nil, err
	}

	placed, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return placed, nil
}

// findReplay returns the order previously placed under the key, when one
// exists. A key replayed by a different buyer is rejected.
func (s *Service) findReplay(ctx context.Context, buyerID uuid.UUID, key *string) (*models.Order, error) {
	normalized := normalizeKey(key)
	if normalized == nil {
		return nil, nil
	}
	existing, err := s.orders.FindByIdempotencyKey(ctx, *normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up idempotency key")
	}
	if existing.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key belongs to another buyer")
	}
	return existing, nil
}

func (s *Service) timelineFor(order *models.Order) []models.OrderStatusEntry {
	offsets := []struct {
		status enums.OrderStatus
		after  time.Duration
	}{
		{enums.OrderStatusPending, 0},
		{enums.OrderStatusProcessing, s.cfg.ProcessingOffset},
		{enums.OrderStatusShipped, s.cfg.ShippedOffset},
		{enums.OrderStatusDelivered, s.cfg.DeliveredOffset},
	}
	entries := make([]models.OrderStatusEntry, 0, len(offsets))
	for _, o := range offsets {
		entries = append(entries, models.OrderStatusEntry{
			ID:      uuid.New(),
			OrderID: order.ID,
			Status:  o.status,
			Source:  enums.StatusSourceScheduled,
			StartAt: order.PlacedAt.Add(o.after),
		})
	}
	return entries
}

func (s *Service) recordFailure(err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		s.metrics.IncFailure("internal")
		return
	}
	if typed.Code() == pkgerrors.CodeInsufficientStock {
		s.metrics.IncInsufficientStock()
	}
	s.metrics.IncFailure(strings.ToLower(string(typed.Code())))
}

func outcomeFor(err error) string {
	if err == nil {
		return "success"
	}
	return "failure"
}

func reservationsFor(lines []cart.ResolvedLine) []inventory.ReservationRequest {
	requests := make([]inventory.ReservationRequest, 0, len(lines))
	for _, line := range lines {
		requests = append(requests, inventory.ReservationRequest{
			ProductID:    line.ProductID,
			ProductTitle: line.Title,
			Qty:          line.Quantity,
		})
	}
	return requests
}

func linesFor(order *models.Order, lines []cart.ResolvedLine) []models.OrderLine {
	out := make([]models.OrderLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, models.OrderLine{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      line.ProductID,
			Title:          line.Title,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
			LineTotalCents: line.LineTotalCents,
		})
	}
	return out
}

func totalOf(lines []cart.ResolvedLine) int {
	total := 0
	for _, line := range lines {
		total += line.LineTotalCents
	}
	return total
}

func normalizeKey(key *string) *string {
	if key == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*key)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// newConfirmationCode produces the short human-facing code printed on the
// confirmation page.
func newConfirmationCode() string {
	const digits = 6
	var sb strings.Builder
	sb.WriteString("CONF")
	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			sb.WriteString("0")
			continue
		}
		sb.WriteString(n.String())
	}
	return sb.String()
}
