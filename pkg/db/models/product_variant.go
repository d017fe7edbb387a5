package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is a sellable variation of a product, addressable by its
// scan code or barcode during warehouse stock movement.
type ProductVariant struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	Code      string           `gorm:"column:code;not null;uniqueIndex"`
	Barcode   *string          `gorm:"column:barcode;index"`
	Price     *decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	IsActive  bool             `gorm:"column:is_active;not null"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
