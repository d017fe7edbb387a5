package inventory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/silkroute/storefront-backend/internal/catalog"
	"github.com/silkroute/storefront-backend/pkg/db/models"
	"github.com/silkroute/storefront-backend/pkg/enums"
	pkgerrors "github.com/silkroute/storefront-backend/pkg/errors"
	"github.com/silkroute/storefront-backend/pkg/pagination"
)

type gormTx struct {
	db *gorm.DB
}

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openTestDB(t, "file:inventory_"+uuid.NewString()+"?mode=memory&cache=shared")
}

// newFileTestDB opens a file-backed database whose transactions take the
// write lock at Begin, so two goroutines scanning concurrently serialize the
// way postgres row locks would.
func newFileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.db")
	return openTestDB(t, "file:"+path+"?_txlock=immediate&_busy_timeout=5000")
}

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	schema := []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  sku TEXT NOT NULL UNIQUE,
  barcode TEXT,
  price NUMERIC NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  code TEXT NOT NULL UNIQUE,
  barcode TEXT,
  price NUMERIC,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS inventory_records (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  stock_type TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME,
  UNIQUE (product_id, variant_id, stock_type)
);`,
		`CREATE TABLE IF NOT EXISTS stock_log_entries (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  transaction_type TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  stock_type TEXT NOT NULL,
  reason TEXT,
  operator TEXT NOT NULL,
  notes TEXT,
  created_at DATETIME
);`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newInventoryService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(db),
		Catalog: catalog.NewReader(db),
		Tx:      gormTx{db: db},
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc
}

func seedCatalog(t *testing.T, db *gorm.DB) (*models.Product, *models.ProductVariant) {
	t.Helper()
	productBarcode := "8901234567890"
	variantBarcode := "8909876543210"
	product := &models.Product{
		ID:       uuid.New(),
		Name:     "Silk Scarf",
		SKU:      "SKU-SCARF-01",
		Barcode:  &productBarcode,
		Price:    decimal.RequireFromString("499.50"),
		IsActive: true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: product.ID,
		Code:      "SR-SILK-RED-001",
		Barcode:   &variantBarcode,
		IsActive:  true,
	}
	if err := db.Create(variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return product, variant
}

func scan(code string, qty int, txType enums.TransactionType) ScanInput {
	return ScanInput{
		Code:            code,
		Quantity:        qty,
		TransactionType: txType,
		StockType:       enums.StockTypeOffline,
		Operator:        "warehouse-1",
	}
}

func TestScanCreatesRecordLazily(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	_, variant := seedCatalog(t, db)
	svc := newInventoryService(t, db)

	result, err := svc.Scan(context.Background(), scan(variant.Code, 7, enums.TransactionTypeIn))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NewQuantity != 7 {
		t.Fatalf("new quantity = %d, want 7", result.NewQuantity)
	}
	if result.Variant == nil || result.Variant.ID != variant.ID {
		t.Fatal("expected scan to resolve the variant")
	}
	if result.LogEntry == nil || result.LogEntry.TransactionType != enums.TransactionTypeIn {
		t.Fatalf("unexpected log entry: %+v", result.LogEntry)
	}

	var record models.InventoryRecord
	if err := db.First(&record, "variant_id = ?", variant.ID).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if record.Quantity != 7 {
		t.Fatalf("stored quantity = %d, want 7", record.Quantity)
	}
}

func TestScanResolutionOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product, variant := seedCatalog(t, db)
	svc := newInventoryService(t, db)

	byCode, err := svc.Scan(context.Background(), scan(variant.Code, 1, enums.TransactionTypeIn))
	if err != nil {
		t.Fatalf("variant code scan: %v", err)
	}
	if byCode.Variant == nil {
		t.Fatal("variant code must resolve to the variant")
	}

	byVariantBarcode, err := svc.Scan(context.Background(), scan(*variant.Barcode, 1, enums.TransactionTypeIn))
	if err != nil {
		t.Fatalf("variant barcode scan: %v", err)
	}
	if byVariantBarcode.Variant == nil || byVariantBarcode.Variant.ID != variant.ID {
		t.Fatal("variant barcode must resolve to the variant")
	}

	byProductBarcode, err := svc.Scan(context.Background(), scan(*product.Barcode, 1, enums.TransactionTypeIn))
	if err != nil {
		t.Fatalf("product barcode scan: %v", err)
	}
	if byProductBarcode.Variant != nil {
		t.Fatal("product barcode must resolve product-level, without a variant")
	}
	if byProductBarcode.Product.ID != product.ID {
		t.Fatal("wrong product resolved")
	}
}

func TestScanUnknownCode(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	seedCatalog(t, db)
	svc := newInventoryService(t, db)

	_, err := svc.Scan(context.Background(), scan("NO-SUCH-CODE", 1, enums.TransactionTypeIn))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestScanInactiveVariantDoesNotResolve(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	_, variant := seedCatalog(t, db)
	if err := db.Model(variant).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate variant: %v", err)
	}
	svc := newInventoryService(t, db)

	_, err := svc.Scan(context.Background(), scan(variant.Code, 1, enums.TransactionTypeIn))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found for inactive variant, got %v", err)
	}
}

func TestScanOutInsufficientStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	_, variant := seedCatalog(t, db)
	svc := newInventoryService(t, db)

	if _, err := svc.Scan(context.Background(), scan(variant.Code, 3, enums.TransactionTypeIn)); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	_, err := svc.Scan(context.Background(), scan(variant.Code, 5, enums.TransactionTypeOut))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient-stock, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	if details["available"] != 3 || details["requested"] != 5 {
		t.Fatalf("unexpected details: %+v", details)
	}

	// No partial effect: quantity untouched, no log row for the rejection.
	var record models.InventoryRecord
	if err := db.First(&record, "variant_id = ?", variant.ID).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if record.Quantity != 3 {
		t.Fatalf("quantity = %d, want 3 after rejected OUT", record.Quantity)
	}
	var logCount int64
	if err := db.Model(&models.StockLogEntry{}).Count(&logCount).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if logCount != 1 {
		t.Fatalf("log rows = %d, want 1 (the IN only)", logCount)
	}
}

func TestScanOutReducesStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	_, variant := seedCatalog(t, db)
	svc := newInventoryService(t, db)

	if _, err := svc.Scan(context.Background(), scan(variant.Code, 10, enums.TransactionTypeIn)); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	result, err := svc.Scan(context.Background(), scan(variant.Code, 4, enums.TransactionTypeOut))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NewQuantity != 6 {
		t.Fatalf("new quantity = %d, want 6", result.NewQuantity)
	}
}

func TestScanSeparatesStockChannels(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	_, variant := seedCatalog(t, db)
	svc := newInventoryService(t, db)

	offline := scan(variant.Code, 5, enums.TransactionTypeIn)
	online := scan(variant.Code, 2, enums.TransactionTypeIn)
	online.StockType = enums.StockTypeOnline

	if _, err := svc.Scan(context.Background(), offline); err != nil {
		t.Fatalf("offline scan: %v", err)
	}
	if _, err := svc.Scan(context.Background(), online); err != nil {
		t.Fatalf("online scan: %v", err)
	}

	var records []models.InventoryRecord
	if err := db.Find(&records, "variant_id = ?", variant.ID).Error; err != nil {
		t.Fatalf("load records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want one per stock channel", len(records))
	}
}

func TestScanValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	seedCatalog(t, db)
	svc := newInventoryService(t, db)

	cases := []ScanInput{
		{},
		{Code: "X", Quantity: 0, TransactionType: enums.TransactionTypeIn, StockType: enums.StockTypeOffline, Operator: "op"},
		{Code: "X", Quantity: 1, TransactionType: "SIDEWAYS", StockType: enums.StockTypeOffline, Operator: "op"},
		{Code: "X", Quantity: 1, TransactionType: enums.TransactionTypeIn, StockType: "WAREHOUSE", Operator: "op"},
		{Code: "X", Quantity: 1, TransactionType: enums.TransactionTypeIn, StockType: enums.StockTypeOffline},
	}
	for i, input := range cases {
		_, err := svc.Scan(context.Background(), input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestListLogsPaginates(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product, variant := seedCatalog(t, db)
	svc := newInventoryService(t, db)

	for i := 0; i < 7; i++ {
		if _, err := svc.Scan(context.Background(), scan(variant.Code, 1, enums.TransactionTypeIn)); err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
	}

	first, err := svc.ListLogs(context.Background(), LogFilter{
		ProductID: &product.ID,
		Page:      pagination.Params{Limit: 5},
	})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Entries) != 5 {
		t.Fatalf("first page entries = %d, want 5", len(first.Entries))
	}
	if first.NextCursor == "" {
		t.Fatal("expected next cursor on first page")
	}

	second, err := svc.ListLogs(context.Background(), LogFilter{
		ProductID: &product.ID,
		Page:      pagination.Params{Limit: 5, Cursor: first.NextCursor},
	})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Entries) != 2 {
		t.Fatalf("second page entries = %d, want 2", len(second.Entries))
	}
	if second.NextCursor != "" {
		t.Fatal("expected no cursor on final page")
	}
}

func TestScanConcurrentOutDrawsSerialize(t *testing.T) {
	t.Parallel()

	db := newFileTestDB(t)
	_, variant := seedCatalog(t, db)
	svc := newInventoryService(t, db)

	if _, err := svc.Scan(context.Background(), scan(variant.Code, 5, enums.TransactionTypeIn)); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	start := make(chan struct{})
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			_, err := svc.Scan(context.Background(), scan(variant.Code, 3, enums.TransactionTypeOut))
			errs <- err
		}()
	}
	close(start)

	var succeeded, insufficient int
	for i := 0; i < 2; i++ {
		err := <-errs
		typed := pkgerrors.As(err)
		switch {
		case err == nil:
			succeeded++
		case typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock:
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || insufficient != 1 {
		t.Fatalf("got %d successes and %d insufficient-stock rejections, want exactly one of each", succeeded, insufficient)
	}

	var record models.InventoryRecord
	if err := db.First(&record, "variant_id = ?", variant.ID).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if record.Quantity != 2 {
		t.Fatalf("final quantity = %d, want 2", record.Quantity)
	}

	var logCount int64
	if err := db.Model(&models.StockLogEntry{}).Count(&logCount).Error; err != nil {
		t.Fatalf("count log entries: %v", err)
	}
	if logCount != 2 {
		t.Fatalf("log rows = %d, want 2 (the seed plus the winning draw)", logCount)
	}
}
