package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/silkroute/storefront-backend/pkg/types"
)

// LineItemInput is one cart line submitted at checkout.
type LineItemInput struct {
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// GuestContact carries the contact fields required for unauthenticated
// checkout.
type GuestContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateOrderInput is everything the order builder needs to persist an order.
type CreateOrderInput struct {
	UserID          *uuid.UUID
	Guest           *GuestContact
	Items           []LineItemInput
	ShippingAddress types.Address
	BillingAddress  *types.Address
}

// Totals are the derived money fields on an order. Discount, tax and shipping
// stay zero unless an external coupon/tax collaborator supplies them.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}
