package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/api/responses"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/api/validators"
	product "github.com/Abdallah-AbouHamdan/SHOP-4U/internal/products"
	pkgerrors "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/errors"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/logger"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/pagination"
)

type createProductRequest struct {
	SKU                 string  `json:"sku" validate:"required,max=100"`
	Title               string  `json:"title" validate:"required,max=255"`
	Description         *string `json:"description,omitempty"`
	Category            string  `json:"category" validate:"required,max=100"`
	PriceCents          int     `json:"price_cents" validate:"min=0"`
	CompareAtPriceCents *int    `json:"compare_at_price_cents,omitempty"`
	ImageURL            *string `json:"image_url,omitempty"`
	IsActive            bool    `json:"is_active"`
	InitialQty          int     `json:"initial_qty" validate:"min=0"`
}

type updateProductRequest struct {
	SKU                 *string `json:"sku,omitempty"`
	Title               *string `json:"title,omitempty"`
	Description         *string `json:"description,omitempty"`
	Category            *string `json:"category,omitempty"`
	PriceCents          *int    `json:"price_cents,omitempty"`
	CompareAtPriceCents *int    `json:"compare_at_price_cents,omitempty"`
	ImageURL            *string `json:"image_url,omitempty"`
	IsActive            *bool   `json:"is_active,omitempty"`
}

// ProductsList pages through the catalog with optional filters.
func ProductsList(svc *product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := optionalActorFromRequest(r)

		input, err := listInputFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), product.Actor{UserID: actor.UserID, Role: actor.Role}, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProductDetail returns one listing with its stock.
func ProductDetail(svc *product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := optionalActorFromRequest(r)
		productID, err := pathUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetDetail(r.Context(), productID, product.Actor{UserID: actor.UserID, Role: actor.Role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// SellerCreateProduct creates a listing with its opening stock.
func SellerCreateProduct(svc *product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreateProduct(r.Context(), product.Actor{UserID: actor.UserID, Role: actor.Role}, product.CreateProductInput{
			SKU:                 req.SKU,
			Title:               req.Title,
			Description:         req.Description,
			Category:            req.Category,
			PriceCents:          req.PriceCents,
			CompareAtPriceCents: req.CompareAtPriceCents,
			ImageURL:            req.ImageURL,
			IsActive:            req.IsActive,
			InitialQty:          req.InitialQty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// SellerUpdateProduct applies partial changes to an owned listing.
func SellerUpdateProduct(svc *product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateProduct(r.Context(), product.Actor{UserID: actor.UserID, Role: actor.Role}, productID, product.UpdateProductInput{
			SKU:                 req.SKU,
			Title:               req.Title,
			Description:         req.Description,
			Category:            req.Category,
			PriceCents:          req.PriceCents,
			CompareAtPriceCents: req.CompareAtPriceCents,
			ImageURL:            req.ImageURL,
			IsActive:            req.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// SellerDeleteProduct removes an owned listing.
func SellerDeleteProduct(svc *product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), product.Actor{UserID: actor.UserID, Role: actor.Role}, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func listInputFromQuery(r *http.Request) (product.ListProductsInput, error) {
	input := product.ListProductsInput{
		Pagination: pagination.Params{Cursor: r.URL.Query().Get("cursor")},
	}

	limit, err := parseLimit(r)
	if err != nil {
		return input, err
	}
	input.Pagination.Limit = limit

	query := r.URL.Query()
	if category := strings.TrimSpace(query.Get("category")); category != "" {
		input.Filters.Category = &category
	}
	if raw := strings.TrimSpace(query.Get("price_min_cents")); raw != "" {
		value, err := validators.ParseQueryInt(r, "price_min_cents", 0, 0, 1<<30)
		if err != nil {
			return input, err
		}
		input.Filters.PriceMinCents = &value
	}
	if raw := strings.TrimSpace(query.Get("price_max_cents")); raw != "" {
		value, err := validators.ParseQueryInt(r, "price_max_cents", 0, 0, 1<<30)
		if err != nil {
			return input, err
		}
		input.Filters.PriceMaxCents = &value
	}
	input.Filters.Query = validators.SanitizeString(query.Get("q"), 200)

	if raw := strings.TrimSpace(query.Get("seller_id")); raw != "" {
		sellerID, err := uuid.Parse(raw)
		if err != nil {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "seller_id must be a valid uuid")
		}
		input.SellerID = &sellerID
	}
	return input, nil
}
