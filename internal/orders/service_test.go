package orders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/silkroute/storefront-backend/internal/catalog"
	"github.com/silkroute/storefront-backend/pkg/db/models"
	"github.com/silkroute/storefront-backend/pkg/enums"
	pkgerrors "github.com/silkroute/storefront-backend/pkg/errors"
	"github.com/silkroute/storefront-backend/pkg/types"
)

type stubCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
	variants map[uuid.UUID]*models.ProductVariant
}

func (s *stubCatalog) WithTx(tx *gorm.DB) catalog.Reader { return s }

func (s *stubCatalog) FindActiveProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if product, ok := s.products[id]; ok && product.IsActive {
		return product, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found or inactive")
}

func (s *stubCatalog) FindActiveVariant(_ context.Context, variantID, productID uuid.UUID) (*models.ProductVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if variant, ok := s.variants[variantID]; ok && variant.IsActive && variant.ProductID == productID {
		return variant, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found or inactive")
}

func (s *stubCatalog) ResolveScanCode(_ context.Context, code string) (*models.Product, *models.ProductVariant, error) {
	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "no match")
}

type stubOrderRepo struct {
	created   *models.Order
	saved     *models.Order
	byNumber  map[string]*models.Order
	createErr error
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrderRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	order.ID = uuid.New()
	s.created = order
	return order, nil
}

func (s *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if s.created != nil && s.created.ID == id {
		return s.created, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) FindByOrderNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	if order, ok := s.byNumber[orderNumber]; ok {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) Save(_ context.Context, order *models.Order) error {
	s.saved = order
	return nil
}

type stubTx struct {
	calls int
}

func (s *stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.calls++
	return fn(nil)
}

func newTestService(t *testing.T, repo Repository, cat catalog.Reader) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:         repo,
		Catalog:      cat,
		Tx:           &stubTx{},
		NumberPrefix: "SR",
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc
}

func validAddress() types.Address {
	return types.Address{
		Name:         "Asha Rao",
		Phone:        "9876543210",
		AddressLine1: "12 MG Road",
		City:         "Bengaluru",
		State:        "Karnataka",
		Pincode:      "560001",
	}
}

func seededCatalog() (*stubCatalog, *models.Product, *models.ProductVariant) {
	product := &models.Product{ID: uuid.New(), Name: "Silk Scarf", IsActive: true}
	variant := &models.ProductVariant{ID: uuid.New(), ProductID: product.ID, Code: "SR-SILK-RED-001", IsActive: true}
	cat := &stubCatalog{
		products: map[uuid.UUID]*models.Product{product.ID: product},
		variants: map[uuid.UUID]*models.ProductVariant{variant.ID: variant},
	}
	return cat, product, variant
}

func guest() *GuestContact {
	return &GuestContact{Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210"}
}

func TestCreateComputesTotals(t *testing.T) {
	t.Parallel()

	cat, product, variant := seededCatalog()
	repo := &stubOrderRepo{}
	svc := newTestService(t, repo, cat)

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Guest: guest(),
		Items: []LineItemInput{
			{ProductID: product.ID, VariantID: &variant.ID, Quantity: 3, Price: decimal.RequireFromString("499.50")},
			{ProductID: product.ID, Quantity: 1, Price: decimal.RequireFromString("120.00")},
		},
		ShippingAddress: validAddress(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantSubtotal := decimal.RequireFromString("1618.50")
	if !order.Subtotal.Equal(wantSubtotal) {
		t.Fatalf("subtotal = %s, want %s", order.Subtotal, wantSubtotal)
	}
	derived := order.Subtotal.Sub(order.Discount).Add(order.Tax).Add(order.Shipping)
	if !order.Total.Equal(derived) {
		t.Fatalf("total %s does not equal derived %s", order.Total, derived)
	}
	if order.Status != enums.OrderStatusPending || order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("new order must start pending/pending, got %s/%s", order.Status, order.PaymentStatus)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}
	if order.Items[0].VariantID == nil || *order.Items[0].VariantID != variant.ID {
		t.Fatal("expected first line to keep its resolved variant")
	}
	if repo.created == nil {
		t.Fatal("expected order to be persisted")
	}
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	t.Parallel()

	cat, _, _ := seededCatalog()
	svc := newTestService(t, &stubOrderRepo{}, cat)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		Guest:           guest(),
		ShippingAddress: validAddress(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsIncompleteAddress(t *testing.T) {
	t.Parallel()

	cat, product, _ := seededCatalog()
	svc := newTestService(t, &stubOrderRepo{}, cat)

	addr := validAddress()
	addr.Pincode = ""
	_, err := svc.Create(context.Background(), CreateOrderInput{
		Guest:           guest(),
		Items:           []LineItemInput{{ProductID: product.ID, Quantity: 1, Price: decimal.NewFromInt(10)}},
		ShippingAddress: addr,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsBadQuantityAndPrice(t *testing.T) {
	t.Parallel()

	cat, product, _ := seededCatalog()
	svc := newTestService(t, &stubOrderRepo{}, cat)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		Guest:           guest(),
		Items:           []LineItemInput{{ProductID: product.ID, Quantity: 0, Price: decimal.NewFromInt(10)}},
		ShippingAddress: validAddress(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for quantity, got %v", err)
	}

	_, err = svc.Create(context.Background(), CreateOrderInput{
		Guest:           guest(),
		Items:           []LineItemInput{{ProductID: product.ID, Quantity: 1, Price: decimal.NewFromInt(-5)}},
		ShippingAddress: validAddress(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for price, got %v", err)
	}
}

func TestCreateRequiresGuestContact(t *testing.T) {
	t.Parallel()

	cat, product, _ := seededCatalog()
	svc := newTestService(t, &stubOrderRepo{}, cat)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		Items:           []LineItemInput{{ProductID: product.ID, Quantity: 1, Price: decimal.NewFromInt(10)}},
		ShippingAddress: validAddress(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error without guest contact, got %v", err)
	}

	userID := uuid.New()
	repo := &stubOrderRepo{}
	svc = newTestService(t, repo, cat)
	if _, err := svc.Create(context.Background(), CreateOrderInput{
		UserID:          &userID,
		Items:           []LineItemInput{{ProductID: product.ID, Quantity: 1, Price: decimal.NewFromInt(10)}},
		ShippingAddress: validAddress(),
	}); err != nil {
		t.Fatalf("authenticated caller must not need guest fields: %v", err)
	}
}

func TestCreateRejectsInactiveProduct(t *testing.T) {
	t.Parallel()

	cat, product, _ := seededCatalog()
	product.IsActive = false
	svc := newTestService(t, &stubOrderRepo{}, cat)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		Guest:           guest(),
		Items:           []LineItemInput{{ProductID: product.ID, Quantity: 1, Price: decimal.NewFromInt(10)}},
		ShippingAddress: validAddress(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found for inactive product, got %v", err)
	}
}

func TestCreateProceedsWithoutUnresolvedVariant(t *testing.T) {
	t.Parallel()

	cat, product, _ := seededCatalog()
	repo := &stubOrderRepo{}
	svc := newTestService(t, repo, cat)

	stale := uuid.New()
	order, err := svc.Create(context.Background(), CreateOrderInput{
		Guest:           guest(),
		Items:           []LineItemInput{{ProductID: product.ID, VariantID: &stale, Quantity: 2, Price: decimal.NewFromInt(50)}},
		ShippingAddress: validAddress(),
	})
	if err != nil {
		t.Fatalf("stale variant must not fail the order: %v", err)
	}
	if order.Items[0].VariantID != nil {
		t.Fatal("unresolved variant should be dropped from the line")
	}
}

func TestCreateAbortsWholeOrderOnAnyBadLine(t *testing.T) {
	t.Parallel()

	cat, product, _ := seededCatalog()
	repo := &stubOrderRepo{}
	svc := newTestService(t, repo, cat)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		Guest: guest(),
		Items: []LineItemInput{
			{ProductID: product.ID, Quantity: 1, Price: decimal.NewFromInt(10)},
			{ProductID: uuid.New(), Quantity: 1, Price: decimal.NewFromInt(10)},
		},
		ShippingAddress: validAddress(),
	})
	if err == nil {
		t.Fatal("expected failure when any line references a missing product")
	}
	if repo.created != nil {
		t.Fatal("no partial persistence on aggregate failure")
	}
}

func TestCreateWrapsPersistenceErrors(t *testing.T) {
	t.Parallel()

	cat, product, _ := seededCatalog()
	repo := &stubOrderRepo{createErr: errors.New("connection reset")}
	svc := newTestService(t, repo, cat)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		Guest:           guest(),
		Items:           []LineItemInput{{ProductID: product.ID, Quantity: 1, Price: decimal.NewFromInt(10)}},
		ShippingAddress: validAddress(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 8, 15, 9, 30, 12, 0, time.UTC)
	number := GenerateOrderNumber("SR", now)
	if !strings.HasPrefix(number, "SR-20250815093012-") {
		t.Fatalf("unexpected order number %q", number)
	}

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := GenerateOrderNumber("SR", now)
		if seen[n] {
			t.Fatalf("duplicate order number generated: %s", n)
		}
		seen[n] = true
	}
}

func TestLookupGuestOrder(t *testing.T) {
	t.Parallel()

	email := "asha@example.com"
	order := &models.Order{ID: uuid.New(), OrderNumber: "SR-20250815093012-AB12CD", GuestEmail: &email}
	repo := &stubOrderRepo{byNumber: map[string]*models.Order{order.OrderNumber: order}}
	cat, _, _ := seededCatalog()
	svc := newTestService(t, repo, cat)

	got, err := svc.LookupGuestOrder(context.Background(), order.OrderNumber, "ASHA@example.com")
	if err != nil {
		t.Fatalf("lookup with matching email should succeed: %v", err)
	}
	if got.ID != order.ID {
		t.Fatal("wrong order returned")
	}

	_, err = svc.LookupGuestOrder(context.Background(), order.OrderNumber, "other@example.com")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("email mismatch must report not-found, got %v", err)
	}

	_, err = svc.LookupGuestOrder(context.Background(), "SR-MISSING", email)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unknown number must report not-found, got %v", err)
	}
}

func TestOverrideStatus(t *testing.T) {
	t.Parallel()

	cat, _, _ := seededCatalog()
	repo := &stubOrderRepo{}
	svc := newTestService(t, repo, cat)

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Guest:           guest(),
		Items:           []LineItemInput{{ProductID: catProductID(cat), Quantity: 1, Price: decimal.NewFromInt(10)}},
		ShippingAddress: validAddress(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.OverrideStatus(context.Background(), order.ID, enums.OrderStatusShipped)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enums.OrderStatusShipped {
		t.Fatalf("status = %s, want shipped", updated.Status)
	}

	if _, err := svc.OverrideStatus(context.Background(), order.ID, enums.OrderStatusCancelled); err != nil {
		t.Fatalf("cancelling should succeed: %v", err)
	}
	_, err = svc.OverrideStatus(context.Background(), order.ID, enums.OrderStatusShipped)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("cancelled is terminal, got %v", err)
	}
}

func catProductID(cat *stubCatalog) uuid.UUID {
	for id := range cat.products {
		return id
	}
	return uuid.Nil
}
