package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/silkroute/storefront-backend/pkg/db/models"
)

// VerifyInput is the client-verify path payload, supplied after the provider
// checkout widget completes on the client.
type VerifyInput struct {
	OrderID           uuid.UUID
	ProviderOrderID   string
	ProviderPaymentID string
	ProviderSignature string
}

// ConfirmResult reports the outcome of a confirmation attempt. IsNew is false
// for duplicate or redelivered confirmations, which are still successes.
type ConfirmResult struct {
	IsNew   bool
	Order   *models.Order
	Payment *models.Payment
}

// WebhookEvent is the provider push payload. The provider delivers events
// at-least-once; redeliveries are routine, not errors.
type WebhookEvent struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

type WebhookPayload struct {
	Payment WebhookPaymentWrapper `json:"payment"`
}

type WebhookPaymentWrapper struct {
	Entity WebhookPaymentEntity `json:"entity"`
}

// WebhookPaymentEntity mirrors the provider's payment entity. Amount arrives
// in the smallest currency unit.
type WebhookPaymentEntity struct {
	ID      string          `json:"id"`
	OrderID string          `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
	Method  string          `json:"method"`
	Status  string          `json:"status"`
}

// Provider event names this core reacts to; everything else is acknowledged
// and ignored.
const (
	WebhookEventPaymentCaptured = "payment.captured"
	WebhookEventPaymentFailed   = "payment.failed"
)
