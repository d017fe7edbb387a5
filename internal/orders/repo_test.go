package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/silkroute/storefront-backend/pkg/db/models"
	"github.com/silkroute/storefront-backend/pkg/enums"
	"github.com/silkroute/storefront-backend/pkg/types"
)

func newOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// Hand-written schema: the models declare postgres-only column defaults
	// that sqlite cannot parse, so tests assign ids client-side instead.
	for _, stmt := range []string{
		`CREATE TABLE orders (
			id TEXT PRIMARY KEY,
			order_number TEXT NOT NULL UNIQUE,
			user_id TEXT,
			guest_name TEXT,
			guest_email TEXT,
			guest_phone TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			payment_status TEXT NOT NULL DEFAULT 'pending',
			subtotal NUMERIC NOT NULL,
			discount NUMERIC NOT NULL DEFAULT 0,
			tax NUMERIC NOT NULL DEFAULT 0,
			shipping NUMERIC NOT NULL DEFAULT 0,
			total NUMERIC NOT NULL,
			shipping_address TEXT NOT NULL,
			billing_address TEXT,
			provider_order_id TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE order_items (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			variant_id TEXT,
			name TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			price NUMERIC NOT NULL,
			line_total NUMERIC NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE payments (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			method TEXT NOT NULL DEFAULT 'razorpay',
			status TEXT NOT NULL DEFAULT 'pending',
			provider_order_id TEXT NOT NULL,
			provider_payment_id TEXT NOT NULL,
			provider_signature TEXT NOT NULL,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (order_id, provider_payment_id)
		)`,
	} {
		require.NoError(t, gdb.Exec(stmt).Error)
	}
	return gdb
}

func sampleOrder() *models.Order {
	price := decimal.RequireFromString("499.50")
	subtotal := price.Mul(decimal.NewFromInt(2))
	return &models.Order{
		ID:              uuid.New(),
		OrderNumber:     "SR-20250815093012-4F2A9C",
		GuestName:       ptr("Asha Rao"),
		GuestEmail:      ptr("asha@example.com"),
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		Subtotal:        subtotal,
		Discount:        decimal.Zero,
		Tax:             decimal.Zero,
		Shipping:        decimal.RequireFromString("120.00"),
		Total:           subtotal.Add(decimal.RequireFromString("120.00")),
		ShippingAddress: types.Address{
			Name:         "Asha Rao",
			Phone:        "+919876543210",
			AddressLine1: "14 MG Road",
			City:         "Bengaluru",
			State:        "Karnataka",
			Pincode:      "560001",
		},
		Items: []models.OrderItem{
			{
				ID:        uuid.New(),
				ProductID: uuid.New(),
				Name:      "Silk Scarf",
				Quantity:  2,
				Price:     price,
				LineTotal: subtotal,
			},
		},
	}
}

func ptr(s string) *string { return &s }

func TestRepositoryCreateAndFindByID(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newOrdersTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleOrder())
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.OrderNumber, found.OrderNumber)
	require.Len(t, found.Items, 1)
	require.Equal(t, "Silk Scarf", found.Items[0].Name)
	require.True(t, found.Total.Equal(created.Total))
}

func TestRepositoryFindByOrderNumber(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newOrdersTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleOrder())
	require.NoError(t, err)

	found, err := repo.FindByOrderNumber(ctx, created.OrderNumber)
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = repo.FindByOrderNumber(ctx, "SR-00000000000000-000000")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryRejectsDuplicateOrderNumber(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newOrdersTestDB(t))
	ctx := context.Background()

	first := sampleOrder()
	_, err := repo.Create(ctx, first)
	require.NoError(t, err)

	dup := sampleOrder()
	dup.OrderNumber = first.OrderNumber
	_, err = repo.Create(ctx, dup)
	require.Error(t, err)
}

func TestRepositorySavePersistsStatusTransitions(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newOrdersTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleOrder())
	require.NoError(t, err)

	created.Status = enums.OrderStatusConfirmed
	created.PaymentStatus = enums.PaymentStatusPaid
	created.ProviderOrderID = ptr("order_ABC123")
	require.NoError(t, repo.Save(ctx, created))

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusConfirmed, found.Status)
	require.Equal(t, enums.PaymentStatusPaid, found.PaymentStatus)
	require.NotNil(t, found.ProviderOrderID)
	require.Equal(t, "order_ABC123", *found.ProviderOrderID)
}
