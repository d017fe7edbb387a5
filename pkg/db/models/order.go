package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/silkroute/storefront-backend/pkg/enums"
	"github.com/silkroute/storefront-backend/pkg/types"
)

// Order is the purchase aggregate. Rows are append-only history: they are
// created once and only the payment reconciler (or an explicit admin
// override) mutates status fields afterwards.
type Order struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string    `gorm:"column:order_number;not null;uniqueIndex:uq_orders_order_number"`

	UserID     *uuid.UUID `gorm:"column:user_id;type:uuid;index"`
	GuestName  *string    `gorm:"column:guest_name"`
	GuestEmail *string    `gorm:"column:guest_email"`
	GuestPhone *string    `gorm:"column:guest_phone"`

	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`

	Subtotal decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Tax      decimal.Decimal `gorm:"column:tax;type:numeric(12,2);not null;default:0"`
	Shipping decimal.Decimal `gorm:"column:shipping;type:numeric(12,2);not null;default:0"`
	Total    decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`

	ShippingAddress types.Address  `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	BillingAddress  *types.Address `gorm:"column:billing_address;type:jsonb;serializer:json"`

	ProviderOrderID *string `gorm:"column:provider_order_id;index"`

	Items    []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments []Payment   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
