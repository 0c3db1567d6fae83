package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/api/responses"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/orders"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/logger"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/pagination"
)

// OrdersList pages through the caller's order history, newest first.
func OrdersList(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
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

		page, err := svc.ListByBuyer(r.Context(), actor.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderDTO, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, newOrderDTO(&page.Items[i]))
		}
		responses.WriteSuccess(w, orderPageDTO{Items: items, NextCursor: page.NextCursor})
	}
}

// OrderDetail returns one order with its resolved status and timeline.
func OrderDetail(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
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

		detail, err := svc.GetByID(r.Context(), orderID, orders.Actor{UserID: actor.UserID, Role: actor.Role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderDTO(detail))
	}
}
