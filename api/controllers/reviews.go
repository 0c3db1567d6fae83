package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/api/responses"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/api/validators"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/reviews"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/logger"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/pagination"
)

type submitReviewRequest struct {
	OrderID   string  `json:"order_id" validate:"required,uuid"`
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Rating    int     `json:"rating" validate:"required,min=1,max=5"`
	Comment   *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

type reviewDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	OrderID   uuid.UUID `json:"order_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type reviewPageDTO struct {
	Items      []reviewDTO `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

type reviewEligibilityDTO struct {
	ProductID uuid.UUID `json:"product_id"`
	Eligible  bool      `json:"eligible"`
}

func newReviewDTO(review *models.Review) reviewDTO {
	return reviewDTO{
		ID:        review.ID,
		ProductID: review.ProductID,
		BuyerID:   review.BuyerID,
		OrderID:   review.OrderID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
	}
}

// ProductReviewsList pages through a product's reviews, newest first.
func ProductReviewsList(svc *reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{Cursor: r.URL.Query().Get("cursor")}
		if limit, err := parseLimit(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else {
			params.Limit = limit
		}

		page, err := svc.ListByProduct(r.Context(), productID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]reviewDTO, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, newReviewDTO(&page.Items[i]))
		}
		responses.WriteSuccess(w, reviewPageDTO{Items: items, NextCursor: page.NextCursor})
	}
}

// ReviewEligibility tells the caller whether they can review the product now.
func ReviewEligibility(svc *reviews.Service, logg *logger.Logger) http.HandlerFunc {
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

		eligible, err := svc.CanReview(r.Context(), actor.UserID, productID, time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reviewEligibilityDTO{ProductID: productID, Eligible: eligible})
	}
}

// ReviewSubmit records a review for a delivered purchase.
func ReviewSubmit(svc *reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req submitReviewRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(req.OrderID, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(req.ProductID, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		review, err := svc.Submit(r.Context(), actor.UserID, reviews.SubmitInput{
			OrderID:   orderID,
			ProductID: productID,
			Rating:    req.Rating,
			Comment:   req.Comment,
			Actor:     actor.ref(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newReviewDTO(review))
	}
}
