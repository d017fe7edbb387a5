package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/silkroute/storefront-backend/pkg/enums"
)

// StockLogEntry is the append-only audit record of one inventory movement.
// Rows are never updated or deleted.
type StockLogEntry struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID       uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index"`
	VariantID       *uuid.UUID            `gorm:"column:variant_id;type:uuid;index"`
	TransactionType enums.TransactionType `gorm:"column:transaction_type;type:text;not null"`
	// Quantity is the magnitude of the movement; the direction lives in
	// TransactionType.
	Quantity  int             `gorm:"column:quantity;not null"`
	StockType enums.StockType `gorm:"column:stock_type;type:text;not null"`
	Reason    *string         `gorm:"column:reason"`
	Operator  string          `gorm:"column:operator;not null"`
	Notes     *string         `gorm:"column:notes"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
