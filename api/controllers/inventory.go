package controllers

import (
	"net/http"
	"strings"

	"github.com/silkroute/storefront-backend/api/responses"
	"github.com/silkroute/storefront-backend/api/validators"
	"github.com/silkroute/storefront-backend/internal/inventory"
	"github.com/silkroute/storefront-backend/pkg/enums"
	pkgerrors "github.com/silkroute/storefront-backend/pkg/errors"
	"github.com/silkroute/storefront-backend/pkg/logger"
	"github.com/silkroute/storefront-backend/pkg/pagination"
)

type scanRequest struct {
	Code            string  `json:"code" validate:"required"`
	Quantity        int     `json:"quantity" validate:"required,gt=0"`
	TransactionType string  `json:"transaction_type" validate:"required"`
	StockType       string  `json:"stock_type" validate:"required"`
	Reason          *string `json:"reason,omitempty"`
	Operator        string  `json:"operator" validate:"required"`
	Notes           *string `json:"notes,omitempty"`
}

// ScanStock applies one operator stock movement.
func ScanStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scanRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transactionType, err := enums.ParseTransactionType(req.TransactionType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type").
					WithDetails(map[string]any{"transaction_type": req.TransactionType}))
			return
		}
		stockType, err := enums.ParseStockType(req.StockType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "invalid stock type").
					WithDetails(map[string]any{"stock_type": req.StockType}))
			return
		}

		result, err := svc.Scan(r.Context(), inventory.ScanInput{
			Code:            validators.SanitizeString(req.Code, 64),
			Quantity:        req.Quantity,
			TransactionType: transactionType,
			StockType:       stockType,
			Reason:          validators.SanitizeOptional(req.Reason, 255),
			Operator:        validators.SanitizeString(req.Operator, 64),
			Notes:           validators.SanitizeOptional(req.Notes, 1000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ListStockLogs pages the stock movement audit log, filterable by product,
// variant and stock channel.
func ListStockLogs(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseQueryUUID(r, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := validators.ParseQueryUUID(r, "variant_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := inventory.LogFilter{
			ProductID: productID,
			VariantID: variantID,
			Page: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("stock_type")); raw != "" {
			stockType, err := enums.ParseStockType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "invalid stock type").
						WithDetails(map[string]any{"stock_type": raw}))
				return
			}
			filter.StockType = &stockType
		}

		page, err := svc.ListLogs(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}
