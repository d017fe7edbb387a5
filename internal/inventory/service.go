package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/silkroute/storefront-backend/internal/catalog"
	"github.com/silkroute/storefront-backend/internal/hooks"
	"github.com/silkroute/storefront-backend/pkg/db/models"
	"github.com/silkroute/storefront-backend/pkg/enums"
	pkgerrors "github.com/silkroute/storefront-backend/pkg/errors"
	"github.com/silkroute/storefront-backend/pkg/logger"
	"github.com/silkroute/storefront-backend/pkg/metrics"
	"github.com/silkroute/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service applies operator scan movements and serves the audit log.
type Service interface {
	Scan(ctx context.Context, input ScanInput) (*ScanResult, error)
	ListLogs(ctx context.Context, filter LogFilter) (*LogPage, error)
}

type service struct {
	repo    Repository
	catalog catalog.Reader
	tx      txRunner
	hooks   *hooks.Registry
	metrics *metrics.CoreMetrics
	logg    *logger.Logger
}

// ServiceParams wires the inventory ledger dependencies.
type ServiceParams struct {
	Repo    Repository
	Catalog catalog.Reader
	Tx      txRunner
	Hooks   *hooks.Registry
	Metrics *metrics.CoreMetrics
	Logger  *logger.Logger
}

// NewService builds the inventory ledger.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    params.Repo,
		catalog: params.Catalog,
		tx:      params.Tx,
		hooks:   params.Hooks,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// Scan resolves the scanned code and applies the movement. The quantity
// update and the log append commit as one transaction.
func (s *service) Scan(ctx context.Context, input ScanInput) (*ScanResult, error) {
	if err := validateScan(input); err != nil {
		return nil, err
	}

	product, variant, err := s.catalog.ResolveScanCode(ctx, strings.TrimSpace(input.Code))
	if err != nil {
		return nil, err
	}

	var record *models.InventoryRecord
	var entry *models.StockLogEntry
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		variantRef := variantIDOf(variant)
		found, ferr := repo.FindRecordForUpdate(ctx, product.ID, variantRef, input.StockType)
		if ferr != nil {
			if !errors.Is(ferr, gorm.ErrRecordNotFound) {
				return ferr
			}
			found = &models.InventoryRecord{
				ProductID: product.ID,
				VariantID: variantRef,
				StockType: input.StockType,
				Quantity:  0,
			}
			if cerr := repo.CreateRecord(ctx, found); cerr != nil {
				return cerr
			}
		}

		if input.TransactionType == enums.TransactionTypeOut && found.Quantity < input.Quantity {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{
					"available": found.Quantity,
					"requested": input.Quantity,
				})
		}

		delta := input.Quantity
		if input.TransactionType == enums.TransactionTypeOut {
			delta = -delta
		}
		next := found.Quantity + delta
		if next < 0 {
			// Floor guard. The sufficiency check above already rejects
			// over-draws, so this should be unreachable.
			next = 0
		}
		found.Quantity = next

		logEntry := &models.StockLogEntry{
			ProductID:       product.ID,
			VariantID:       variantRef,
			TransactionType: input.TransactionType,
			Quantity:        input.Quantity,
			StockType:       input.StockType,
			Reason:          input.Reason,
			Operator:        input.Operator,
			Notes:           input.Notes,
		}
		if cerr := repo.CreateLogEntry(ctx, logEntry); cerr != nil {
			return cerr
		}
		if serr := repo.SaveRecord(ctx, found); serr != nil {
			return serr
		}

		record = found
		entry = logEntry
		return nil
	})
	if err != nil {
		var coded *pkgerrors.Error
		if errors.As(err, &coded) {
			return nil, coded
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply stock movement")
	}

	if s.logg != nil {
		mctx := s.logg.WithOperator(ctx, input.Operator)
		mctx = s.logg.WithFields(mctx, map[string]any{
			"product_id":   product.ID,
			"type":         input.TransactionType.String(),
			"quantity":     input.Quantity,
			"new_quantity": record.Quantity,
		})
		s.logg.Info(mctx, "stock movement applied")
	}
	s.metrics.IncStockMovement(input.TransactionType.String())
	s.hooks.Fire(ctx, hooks.Event{Name: hooks.EventStockMoved, Payload: entry.ID})

	return &ScanResult{
		Product:     product,
		Variant:     variant,
		NewQuantity: record.Quantity,
		LogEntry:    entry,
	}, nil
}

// ListLogs pages the stock movement audit log.
func (s *service) ListLogs(ctx context.Context, filter LogFilter) (*LogPage, error) {
	entries, err := s.repo.ListLogEntries(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock log")
	}

	limit := pagination.NormalizeLimit(filter.Page.Limit)
	page := &LogPage{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		last := page.Entries[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func validateScan(input ScanInput) error {
	if strings.TrimSpace(input.Code) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "scan code required")
	}
	if input.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if !input.TransactionType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type").
			WithDetails(map[string]any{"transaction_type": string(input.TransactionType)})
	}
	if !input.StockType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid stock type").
			WithDetails(map[string]any{"stock_type": string(input.StockType)})
	}
	if strings.TrimSpace(input.Operator) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "operator required")
	}
	return nil
}

func variantIDOf(variant *models.ProductVariant) *uuid.UUID {
	if variant == nil {
		return nil
	}
	id := variant.ID
	return &id
}
