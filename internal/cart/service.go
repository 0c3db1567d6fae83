package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
	pkgerrors "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// ResolvedLine is a cart line priced against the current catalog.
type ResolvedLine struct {
	ProductID      uuid.UUID `json:"productId"`
	Title          string    `json:"title"`
	UnitPriceCents int       `json:"unitPriceCents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int       `json:"lineTotalCents"`
}

// View is the buyer-facing cart read model.
type View struct {
	CartID     uuid.UUID        `json:"cartId"`
	Status     enums.CartStatus `json:"status"`
	Lines      []ResolvedLine   `json:"lines"`
	TotalCents int              `json:"totalCents"`
}

// Service exposes cart operations for the buyer.
type Service struct {
	repo     *Repository
	tx       txRunner
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, products productLoader) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &Service{repo: repo, tx: tx, products: products}, nil
}

// Get returns the buyer's active cart priced against the catalog. A buyer
// with no cart yet sees an empty one.
func (s *Service) Get(ctx context.Context, buyerID uuid.UUID) (*View, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}

	record, err := s.repo.FindActiveByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &View{Status: enums.CartStatusActive, Lines: []ResolvedLine{}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	lines, total, err := s.priceLines(ctx, record.Items)
	if err != nil {
		return nil, err
	}
	return &View{
		CartID:     record.ID,
		Status:     record.Status,
		Lines:      lines,
		TotalCents: total,
	}, nil
}

// AddItem adds a product to the active cart; quantity accumulates when the
// product is already present.
func (s *Service) AddItem(ctx context.Context, buyerID, productID uuid.UUID, qty int) (*View, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	if _, err := s.loadAvailableProduct(ctx, productID); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindOrCreateActive(ctx, buyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		item, err := repo.FindItem(ctx, record.ID, productID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
			}
			_, err := repo.CreateItem(ctx, &models.CartItem{
				ID:        uuid.New(),
				CartID:    record.ID,
				ProductID: productID,
				Quantity:  qty,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
			}
			return nil
		}

		if err := repo.UpdateItemQty(ctx, item.ID, item.Quantity+qty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, buyerID)
}

// UpdateItem replaces the quantity of a product already in the cart.
func (s *Service) UpdateItem(ctx context.Context, buyerID, productID uuid.UUID, qty int) (*View, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindActiveByBuyer(ctx, buyerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "active cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		item, err := repo.FindItem(ctx, record.ID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}
		if err := repo.UpdateItemQty(ctx, item.ID, qty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, buyerID)
}

// RemoveItem drops a product from the cart.
func (s *Service) RemoveItem(ctx context.Context, buyerID, productID uuid.UUID) (*View, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	record, err := s.repo.FindActiveByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "active cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	removed, err := s.repo.RemoveItem(ctx, record.ID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	if removed == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	return s.Get(ctx, buyerID)
}

// Resolve loads the active cart and prices every line for checkout. An empty
// or missing cart fails; a missing or inactive product fails naming it.
func (s *Service) Resolve(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, []ResolvedLine, error) {
	if buyerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}

	record, err := s.repo.FindActiveByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(record.Items) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}

	lines, _, err := s.priceLines(ctx, record.Items)
	if err != nil {
		return nil, nil, err
	}
	return record, lines, nil
}

func (s *Service) priceLines(ctx context.Context, items []models.CartItem) ([]ResolvedLine, int, error) {
	lines := make([]ResolvedLine, 0, len(items))
	total := 0
	for _, item := range items {
		product, err := s.loadAvailableProduct(ctx, item.ProductID)
		if err != nil {
			return nil, 0, err
		}
		lineTotal := product.PriceCents * item.Quantity
		lines = append(lines, ResolvedLine{
			ProductID:      product.ID,
			Title:          product.Title,
			UnitPriceCents: product.PriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: lineTotal,
		})
		total += lineTotal
	}
	return lines, total, nil
}

func (s *Service) loadAvailableProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product is not available").WithDetails(map[string]any{
				"product_id": productID,
			})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product is not available").WithDetails(map[string]any{
			"product_id": product.ID,
			"title":      product.Title,
		})
	}
	return product, nil
}
