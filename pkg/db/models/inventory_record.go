package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/silkroute/storefront-backend/pkg/enums"
)

// InventoryRecord caches the current on-hand quantity per
// (product, variant, stock channel). The stock log is the source of truth;
// quantity only ever changes by applying a logged delta.
type InventoryRecord struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:uq_inventory_product_variant_stock"`
	VariantID *uuid.UUID      `gorm:"column:variant_id;type:uuid;uniqueIndex:uq_inventory_product_variant_stock"`
	StockType enums.StockType `gorm:"column:stock_type;type:text;not null;uniqueIndex:uq_inventory_product_variant_stock"`
	Quantity  int             `gorm:"column:quantity;not null;default:0"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
