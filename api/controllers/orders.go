package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/silkroute/storefront-backend/api/responses"
	"github.com/silkroute/storefront-backend/api/validators"
	"github.com/silkroute/storefront-backend/internal/orders"
	"github.com/silkroute/storefront-backend/pkg/enums"
	pkgerrors "github.com/silkroute/storefront-backend/pkg/errors"
	"github.com/silkroute/storefront-backend/pkg/logger"
	"github.com/silkroute/storefront-backend/pkg/types"
)

type createOrderRequest struct {
	UserID          *uuid.UUID             `json:"user_id,omitempty"`
	Guest           *orders.GuestContact   `json:"guest,omitempty"`
	Items           []orders.LineItemInput `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.Address          `json:"shipping_address" validate:"required"`
	BillingAddress  *types.Address         `json:"billing_address,omitempty"`
}

// CreateOrder handles checkout submission for both authenticated and guest
// callers.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), orders.CreateOrderInput{
			UserID:          req.UserID,
			Guest:           req.Guest,
			Items:           req.Items,
			ShippingAddress: req.ShippingAddress,
			BillingAddress:  req.BillingAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// LookupGuestOrder serves the customer-facing order lookup by order number
// and guest email.
func LookupGuestOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber := strings.TrimSpace(r.URL.Query().Get("order_number"))
		email := strings.TrimSpace(r.URL.Query().Get("email"))
		if orderNumber == "" || email == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order_number and email are required"))
			return
		}

		order, err := svc.LookupGuestOrder(r.Context(), orderNumber, email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

type overrideStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OverrideOrderStatus is the admin-only manual status transition.
func OverrideOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order id must be a uuid"))
			return
		}

		var req overrideStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
					WithDetails(map[string]any{"status": req.Status}))
			return
		}

		order, err := svc.OverrideStatus(r.Context(), orderID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}
