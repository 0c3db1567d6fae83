package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
	pkgerrors "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Actor identifies the authenticated caller for role checks.
type Actor struct {
	UserID uuid.UUID
	Role   enums.MemberRole
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	SKU                 string
	Title               string
	Description         *string
	Category            string
	PriceCents          int
	CompareAtPriceCents *int
	ImageURL            *string
	IsActive            bool
	InitialQty          int
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	SKU                 *string
	Title               *string
	Description         *string
	Category            *string
	PriceCents          *int
	CompareAtPriceCents *int
	ImageURL            *string
	IsActive            *bool
}

// Service exposes the catalog: public reads plus seller-gated writes.
type Service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx txRunner) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Service{repo: repo, tx: tx}, nil
}

// CreateProduct creates the listing and its inventory row in one transaction.
func (s *Service) CreateProduct(ctx context.Context, actor Actor, input CreateProductInput) (*ProductDTO, error) {
	if err := ensureSellerRole(actor); err != nil {
		return nil, err
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	productID := uuid.New()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		row := &models.Product{
			ID:                  productID,
			SellerID:            actor.UserID,
			SKU:                 strings.TrimSpace(input.SKU),
			Title:               strings.TrimSpace(input.Title),
			Description:         input.Description,
			Category:            strings.TrimSpace(input.Category),
			PriceCents:          input.PriceCents,
			CompareAtPriceCents: input.CompareAtPriceCents,
			ImageURL:            input.ImageURL,
			IsActive:            input.IsActive,
		}
		if _, err := txRepo.CreateProduct(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
		}

		item := &models.InventoryItem{
			ProductID:    productID,
			AvailableQty: input.InitialQty,
		}
		if _, err := txRepo.UpsertInventory(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert inventory")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	detail, err := s.repo.GetProductDetail(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product detail")
	}
	return NewProductDTO(detail), nil
}

// UpdateProduct applies partial changes to a listing the actor owns.
func (s *Service) UpdateProduct(ctx context.Context, actor Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if err := ensureSellerRole(actor); err != nil {
		return nil, err
	}

	row, err := s.loadOwned(ctx, actor, productID)
	if err != nil {
		return nil, err
	}

	applyUpdate(row, input)
	if row.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_cents must be non-negative")
	}
	if _, err := s.repo.UpdateProduct(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	detail, err := s.repo.GetProductDetail(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product detail")
	}
	return NewProductDTO(detail), nil
}

// DeleteProduct removes a listing the actor owns. The FK cascade clears the
// inventory row.
func (s *Service) DeleteProduct(ctx context.Context, actor Actor, productID uuid.UUID) error {
	if err := ensureSellerRole(actor); err != nil {
		return err
	}

	if _, err := s.loadOwned(ctx, actor, productID); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

// GetDetail returns a product with its stock. Buyers only see active
// listings; the owning seller and admins see everything.
func (s *Service) GetDetail(ctx context.Context, productID uuid.UUID, actor Actor) (*ProductDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	row, err := s.repo.GetProductDetail(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !row.IsActive && row.SellerID != actor.UserID && actor.Role != enums.MemberRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return NewProductDTO(row), nil
}

// ListProducts pages through the catalog. With a SellerID the listing is
// scoped to that seller and includes inactive rows; the caller must be the
// seller themselves or an admin.
func (s *Service) ListProducts(ctx context.Context, actor Actor, input ListProductsInput) (*ProductListResult, error) {
	if input.SellerID != nil {
		if *input.SellerID != actor.UserID && actor.Role != enums.MemberRoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list another seller's products")
		}
	}

	result, err := s.repo.ListProductSummaries(ctx, productListQuery{
		Pagination: input.Pagination,
		Filters:    input.Filters,
		SellerID:   input.SellerID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return result, nil
}

func (s *Service) loadOwned(ctx context.Context, actor Actor, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	row, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if row.SellerID != actor.UserID && actor.Role != enums.MemberRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another seller")
	}
	return row, nil
}

func ensureSellerRole(actor Actor) error {
	switch actor.Role {
	case enums.MemberRoleSeller, enums.MemberRoleAdmin:
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "seller role required")
	}
}

func validateCreate(input CreateProductInput) error {
	if strings.TrimSpace(input.SKU) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sku required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "category required")
	}
	if input.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price_cents must be non-negative")
	}
	if input.InitialQty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "initial quantity must be non-negative")
	}
	return nil
}

func applyUpdate(product *models.Product, input UpdateProductInput) {
	if input.SKU != nil {
		product.SKU = strings.TrimSpace(*input.SKU)
	}
	if input.Title != nil {
		product.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.PriceCents != nil {
		product.PriceCents = *input.PriceCents
	}
	if input.CompareAtPriceCents != nil {
		product.CompareAtPriceCents = input.CompareAtPriceCents
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
}
