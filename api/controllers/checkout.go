package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/api/responses"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/api/validators"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/checkout"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/logger"
)

type checkoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required,max=500"`
	PaymentMethod   string `json:"payment_method" validate:"required,max=100"`
}

// Checkout converts the buyer's active cart into an order. The optional
// Idempotency-Key header makes retries return the original order.
func Checkout(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkout.Input{
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
			Actor:           actor.ref(),
		}
		if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
			input.IdempotencyKey = &key
		}

		order, err := svc.Execute(r.Context(), actor.UserID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newPlacedOrderDTO(order, time.Now()))
	}
}
