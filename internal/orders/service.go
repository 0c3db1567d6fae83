package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
	pkgerrors "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/errors"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/outbox"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/outbox/payloads"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockReleaser interface {
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor identifies the authenticated caller for access checks and event
// attribution.
type Actor struct {
	UserID uuid.UUID
	Role   enums.MemberRole
}

// Detail pairs an order with its resolved status and ordered timeline.
type Detail struct {
	Order    *models.Order             `json:"order"`
	Status   enums.OrderStatus         `json:"status"`
	Timeline []models.OrderStatusEntry `json:"timeline"`
}

// Page is one cursor page of the buyer's order history.
type Page struct {
	Items      []Detail `json:"items"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// Service exposes order queries and the administrative status override.
type Service struct {
	repo      *Repository
	tx        txRunner
	inventory stockReleaser
	outbox    outboxPublisher
	now       func() time.Time
}

// NewService builds an order service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, inventory stockReleaser, publisher outboxPublisher) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("stock releaser required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Service{
		repo:      repo,
		tx:        tx,
		inventory: inventory,
		outbox:    publisher,
		now:       time.Now,
	}, nil
}

// GetByID loads an order for its owner or an admin.
func (s *Service) GetByID(ctx context.Context, orderID uuid.UUID, actor Actor) (*Detail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerID != actor.UserID && actor.Role != enums.MemberRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
	}
	return s.detail(order), nil
}

// ListByBuyer returns the buyer's order history, newest first.
func (s *Service) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*Page, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListByBuyer(ctx, buyerID, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	page := &Page{Items: make([]Detail, 0, len(rows))}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for i := range rows {
		page.Items = append(page.Items, *s.detail(&rows[i]))
	}
	if hasMore {
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

// SetStatus appends an administrative override to the order's timeline.
// Backward transitions are rejected; cancellation is allowed from any state
// that has not shipped its final outcome, and releases reserved stock when
// the order has not shipped yet.
func (s *Service) SetStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actor Actor) (*Detail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actor.Role != enums.MemberRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}
	if status == enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "orders cannot return to pending")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	now := s.now()
	current := CurrentStatus(order.StatusEntries, now)
	if err := validateTransition(current, status); err != nil {
		return nil, err
	}

	releaseStock := status == enums.OrderStatusCancelled && !hasShipped(current)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entry := &models.OrderStatusEntry{
			ID:      uuid.New(),
			OrderID: order.ID,
			Status:  status,
			Source:  enums.StatusSourceOverride,
			StartAt: now,
		}
		if err := repo.AppendStatusEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status entry")
		}

		if releaseStock {
			for _, line := range order.Lines {
				if err := s.inventory.Release(ctx, tx, line.ProductID, line.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release reserved stock")
				}
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderStatusChanged,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Actor:         buildActor(actor),
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				BuyerID:    order.BuyerID,
				FromStatus: current,
				ToStatus:   status,
				ChangedAt:  now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status event")
		}

		if status == enums.OrderStatusCancelled {
			cancelled := outbox.DomainEvent{
				EventType:     enums.OutboxEventOrderCancelled,
				AggregateType: enums.OutboxAggregateOrder,
				AggregateID:   order.ID,
				Actor:         buildActor(actor),
				Version:       1,
				OccurredAt:    now,
				Data: payloads.OrderCancelledEvent{
					OrderID:       order.ID,
					BuyerID:       order.BuyerID,
					CancelledAt:   now,
					StockReleased: releaseStock,
				},
			}
			if err := s.outbox.Emit(ctx, tx, cancelled); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit cancellation event")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reloaded, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return s.detail(reloaded), nil
}

func (s *Service) detail(order *models.Order) *Detail {
	return &Detail{
		Order:    order,
		Status:   CurrentStatus(order.StatusEntries, s.now()),
		Timeline: Timeline(order.StatusEntries),
	}
}

// validateTransition enforces the forward-only lifecycle. Cancellation is the
// one sideways move; it is blocked once the order is delivered or already
// cancelled.
func validateTransition(current, target enums.OrderStatus) error {
	if current.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}
	if target == enums.OrderStatusCancelled {
		if current == enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivered orders cannot be cancelled")
		}
		return nil
	}

	currentRank, _ := current.Rank()
	targetRank, ok := target.Rank()
	if !ok || targetRank <= currentRank {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", current, target))
	}
	return nil
}

func hasShipped(current enums.OrderStatus) bool {
	rank, ok := current.Rank()
	if !ok {
		return false
	}
	shippedRank, _ := enums.OrderStatusShipped.Rank()
	return rank >= shippedRank
}

func buildActor(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
}
