package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/orders"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/config"
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

type orderLoader interface {
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SubmitInput is the review payload.
type SubmitInput struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Rating    int
	Comment   *string
	Actor     *outbox.ActorRef
}

// Page is one cursor page of a product's reviews.
type Page struct {
	Items      []models.Review `json:"items"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

// Service gates review submission on a delivered purchase and keeps the
// product's rating aggregate in step with its reviews.
type Service struct {
	cfg    config.ReviewsConfig
	repo   *Repository
	tx     txRunner
	orders orderLoader
	outbox outboxPublisher
	now    func() time.Time
}

// NewService builds a review service backed by the provided stack.
func NewService(cfg config.ReviewsConfig, repo *Repository, tx txRunner, orderSource orderLoader, publisher outboxPublisher) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if orderSource == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Service{
		cfg:    cfg,
		repo:   repo,
		tx:     tx,
		orders: orderSource,
		outbox: publisher,
		now:    time.Now,
	}, nil
}

// CanReview reports whether the buyer currently holds a delivered order for
// the product with review quota remaining.
func (s *Service) CanReview(ctx context.Context, buyerID, productID uuid.UUID, now time.Time) (bool, error) {
	if buyerID == uuid.Nil || productID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "buyer id and product id required")
	}

	candidates, err := s.repo.ListOrdersWithProduct(ctx, buyerID, productID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase history")
	}

	for i := range candidates {
		order := &candidates[i]
		if orders.CurrentStatus(order.StatusEntries, now) != enums.OrderStatusDelivered {
			continue
		}
		remaining, err := s.quotaRemaining(ctx, s.repo, buyerID, productID, order.ID)
		if err != nil {
			return false, err
		}
		if remaining {
			return true, nil
		}
	}
	return false, nil
}

// Submit validates eligibility, persists the review and recomputes the
// product's mean rating and count in the same transaction.
func (s *Service) Submit(ctx context.Context, buyerID uuid.UUID, input SubmitInput) (*models.Review, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.OrderID == uuid.Nil || input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and product id required")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeReviewNotEligible, "product was not purchased in this order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerID != buyerID || !orderContains(order, input.ProductID) {
		return nil, pkgerrors.New(pkgerrors.CodeReviewNotEligible, "product was not purchased in this order")
	}
	if orders.CurrentStatus(order.StatusEntries, s.now()) != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeReviewNotEligible, "order has not been delivered")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	remaining, err := s.quotaRemaining(ctx, s.repo, buyerID, input.ProductID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !remaining {
		return nil, pkgerrors.New(pkgerrors.CodeQuotaExceeded, "review limit reached for this product")
	}

	review := &models.Review{
		ID:        uuid.New(),
		ProductID: input.ProductID,
		BuyerID:   buyerID,
		OrderID:   input.OrderID,
		Rating:    input.Rating,
		Comment:   input.Comment,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// The product row lock serializes concurrent submissions;
		// without it two transactions could both count under the quota
		// and both insert.
		if err := repo.LockProduct(ctx, input.ProductID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
		}
		remaining, err := s.quotaRemaining(ctx, repo, buyerID, input.ProductID, input.OrderID)
		if err != nil {
			return err
		}
		if !remaining {
			return pkgerrors.New(pkgerrors.CodeQuotaExceeded, "review limit reached for this product")
		}

		if err := repo.Create(ctx, review); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
		}

		total, count, err := repo.RatingStats(ctx, input.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute rating stats")
		}
		average := meanRating(total, count)
		if err := repo.UpdateProductAggregate(ctx, input.ProductID, average, int(count)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product aggregate")
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventReviewSubmitted,
			AggregateType: enums.OutboxAggregateReview,
			AggregateID:   review.ID,
			Actor:         input.Actor,
			Version:       1,
			OccurredAt:    s.now(),
			Data: payloads.ReviewSubmittedEvent{
				ReviewID:      review.ID,
				ProductID:     review.ProductID,
				BuyerID:       review.BuyerID,
				OrderID:       review.OrderID,
				Rating:        review.Rating,
				AverageRating: average,
				ReviewCount:   int(count),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit review event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// ListByProduct returns the product's reviews, newest first.
func (s *Service) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*Page, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListByProduct(ctx, productID, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}

	page := &Page{}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	page.Items = rows
	if hasMore {
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

// quotaRemaining applies the configured scope: per product counts every
// review of the product by the buyer, per order counts only reviews tied to
// the order at hand.
func (s *Service) quotaRemaining(ctx context.Context, repo *Repository, buyerID, productID, orderID uuid.UUID) (bool, error) {
	var (
		count int64
		err   error
	)
	switch s.cfg.QuotaScope {
	case config.ReviewQuotaScopeOrder:
		count, err = repo.CountByBuyerProductOrder(ctx, buyerID, productID, orderID)
	default:
		count, err = repo.CountByBuyerProduct(ctx, buyerID, productID)
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count reviews")
	}
	return count < int64(s.cfg.QuotaLimit), nil
}

func orderContains(order *models.Order, productID uuid.UUID) bool {
	for _, line := range order.Lines {
		if line.ProductID == productID {
			return true
		}
	}
	return false
}

// meanRating rounds the mean to one decimal place.
func meanRating(total, count int64) float64 {
	if count == 0 {
		return 0
	}
	mean := decimal.NewFromInt(total).Div(decimal.NewFromInt(count)).Round(1)
	value, _ := mean.Float64()
	return value
}
