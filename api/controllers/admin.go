package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/api/responses"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/api/validators"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/inventory"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/orders"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
	pkgerrors "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/errors"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/logger"
)

type setOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type restockRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type inventoryDTO struct {
	ProductID    string `json:"product_id"`
	AvailableQty int    `json:"available_qty"`
}

// AdminSetOrderStatus overrides an order's fulfillment status.
func AdminSetOrderStatus(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		detail, err := svc.SetStatus(r.Context(), orderID, status, orders.Actor{UserID: actor.UserID, Role: actor.Role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderDTO(detail))
	}
}

// AdminRestock adds stock for a product.
func AdminRestock(svc *inventory.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req restockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Restock(r.Context(), inventory.RestockInput{
			ProductID: productID,
			Qty:       req.Quantity,
			Actor:     actor.ref(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inventoryDTO{
			ProductID:    item.ProductID.String(),
			AvailableQty: item.AvailableQty,
		})
	}
}
