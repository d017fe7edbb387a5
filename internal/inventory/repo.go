package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/silkroute/storefront-backend/pkg/db/models"
	"github.com/silkroute/storefront-backend/pkg/enums"
	"github.com/silkroute/storefront-backend/pkg/pagination"
)

// Repository is the persistence surface of the inventory ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindRecordForUpdate(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, stockType enums.StockType) (*models.InventoryRecord, error)
	CreateRecord(ctx context.Context, record *models.InventoryRecord) error
	SaveRecord(ctx context.Context, record *models.InventoryRecord) error
	CreateLogEntry(ctx context.Context, entry *models.StockLogEntry) error
	ListLogEntries(ctx context.Context, filter LogFilter) ([]models.StockLogEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindRecordForUpdate loads the record under a row-level lock so the
// read-check-write sequence is serialized per record.
func (r *repository) FindRecordForUpdate(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, stockType enums.StockType) (*models.InventoryRecord, error) {
	query := r.db.WithContext(ctx)
	// sqlite (tests) has no FOR UPDATE; its single-writer lock serializes
	// transactions anyway.
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	query = query.Where("product_id = ? AND stock_type = ?", productID, stockType)
	if variantID != nil {
		query = query.Where("variant_id = ?", *variantID)
	} else {
		query = query.Where("variant_id IS NULL")
	}

	var record models.InventoryRecord
	if err := query.First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) CreateRecord(ctx context.Context, record *models.InventoryRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) SaveRecord(ctx context.Context, record *models.InventoryRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *repository) CreateLogEntry(ctx context.Context, entry *models.StockLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListLogEntries pages the append-only log newest first.
func (r *repository) ListLogEntries(ctx context.Context, filter LogFilter) ([]models.StockLogEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.StockLogEntry{})
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.VariantID != nil {
		query = query.Where("variant_id = ?", *filter.VariantID)
	}
	if filter.StockType != nil {
		query = query.Where("stock_type = ?", *filter.StockType)
	}

	cursor, err := pagination.ParseCursor(filter.Page.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var entries []models.StockLogEntry
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(filter.Page.Limit)).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
