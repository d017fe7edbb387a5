package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/silkroute/storefront-backend/pkg/enums"
)

// UniquePaymentPerProviderPayment names the constraint that guarantees at
// most one payment row per (order, provider payment id) pair. The reconciler
// matches violations against this name.
const UniquePaymentPerProviderPayment = "uq_payments_order_provider_payment"

// Payment records one attempt to settle an order through the provider. A row
// is inserted on first confirmation of a provider payment id and never
// mutated afterwards, except for marking that same attempt failed.
type Payment struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uq_payments_order_provider_payment"`

	Amount decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Method enums.PaymentMethod `gorm:"column:method;type:text;not null;default:'razorpay'"`
	Status enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`

	ProviderOrderID   string `gorm:"column:provider_order_id;not null;index"`
	ProviderPaymentID string `gorm:"column:provider_payment_id;not null;uniqueIndex:uq_payments_order_provider_payment"`
	// Stored raw for audit; never used to re-verify after the fact.
	ProviderSignature string `gorm:"column:provider_signature;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
