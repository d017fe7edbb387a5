package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/silkroute/storefront-backend/api/responses"
	"github.com/silkroute/storefront-backend/api/validators"
	"github.com/silkroute/storefront-backend/internal/payments"
	"github.com/silkroute/storefront-backend/pkg/logger"
)

type verifyPaymentRequest struct {
	OrderID           uuid.UUID `json:"order_id" validate:"required"`
	ProviderOrderID   string    `json:"provider_order_id" validate:"required"`
	ProviderPaymentID string    `json:"provider_payment_id" validate:"required"`
	ProviderSignature string    `json:"provider_signature" validate:"required"`
}

type verifyPaymentResponse struct {
	Verified bool `json:"verified"`
	IsNew    bool `json:"is_new"`
	Order    any  `json:"order"`
	Payment  any  `json:"payment"`
}

// VerifyPayment handles the client-side confirmation after the provider
// checkout widget completes. Redelivered confirmations return the same
// success shape as first-time processing.
func VerifyPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Verify(r.Context(), payments.VerifyInput{
			OrderID:           req.OrderID,
			ProviderOrderID:   req.ProviderOrderID,
			ProviderPaymentID: req.ProviderPaymentID,
			ProviderSignature: req.ProviderSignature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, verifyPaymentResponse{
			Verified: true,
			IsNew:    result.IsNew,
			Order:    result.Order,
			Payment:  result.Payment,
		})
	}
}
