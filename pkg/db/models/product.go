package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog listing. This core only reads products; catalog
// management lives outside it.
type Product struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string           `gorm:"column:name;not null"`
	SKU       string           `gorm:"column:sku;not null;uniqueIndex"`
	Barcode   *string          `gorm:"column:barcode;index"`
	Price     decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive  bool             `gorm:"column:is_active;not null"`
	Variants  []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
