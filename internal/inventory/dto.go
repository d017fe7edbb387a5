package inventory

import (
	"github.com/google/uuid"

	"github.com/silkroute/storefront-backend/pkg/db/models"
	"github.com/silkroute/storefront-backend/pkg/enums"
	"github.com/silkroute/storefront-backend/pkg/pagination"
)

// ScanInput is one operator-initiated stock movement.
type ScanInput struct {
	Code            string                `json:"code" validate:"required"`
	Quantity        int                   `json:"quantity" validate:"required,gt=0"`
	TransactionType enums.TransactionType `json:"transaction_type" validate:"required"`
	StockType       enums.StockType       `json:"stock_type" validate:"required"`
	Reason          *string               `json:"reason,omitempty"`
	Operator        string                `json:"operator" validate:"required"`
	Notes           *string               `json:"notes,omitempty"`
}

// ScanResult reports the applied movement.
type ScanResult struct {
	Product     *models.Product        `json:"product"`
	Variant     *models.ProductVariant `json:"variant,omitempty"`
	NewQuantity int                    `json:"new_quantity"`
	LogEntry    *models.StockLogEntry  `json:"stock_log_entry"`
}

// LogFilter narrows the stock log listing.
type LogFilter struct {
	ProductID *uuid.UUID
	VariantID *uuid.UUID
	StockType *enums.StockType
	Page      pagination.Params
}

// LogPage is one page of stock log entries.
type LogPage struct {
	Entries    []models.StockLogEntry `json:"entries"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}
