package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/silkroute/storefront-backend/internal/catalog"
	"github.com/silkroute/storefront-backend/internal/hooks"
	"github.com/silkroute/storefront-backend/pkg/db/models"
	"github.com/silkroute/storefront-backend/pkg/enums"
	pkgerrors "github.com/silkroute/storefront-backend/pkg/errors"
	"github.com/silkroute/storefront-backend/pkg/logger"
	"github.com/silkroute/storefront-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TotalsAdjuster is the seam for the external coupon/tax collaborator. The
// default keeps discount, tax and shipping at zero.
type TotalsAdjuster interface {
	Adjust(ctx context.Context, input CreateOrderInput, subtotal decimal.Decimal) (Totals, error)
}

type zeroAdjuster struct{}

func (zeroAdjuster) Adjust(_ context.Context, _ CreateOrderInput, subtotal decimal.Decimal) (Totals, error) {
	return Totals{
		Subtotal: subtotal,
		Discount: decimal.Zero,
		Tax:      decimal.Zero,
		Shipping: decimal.Zero,
		Total:    subtotal,
	}, nil
}

// Service defines the order builder operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	LookupGuestOrder(ctx context.Context, orderNumber, email string) (*models.Order, error)
	OverrideStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
}

type service struct {
	repo         Repository
	catalog      catalog.Reader
	tx           txRunner
	adjuster     TotalsAdjuster
	hooks        *hooks.Registry
	metrics      *metrics.CoreMetrics
	logg         *logger.Logger
	numberPrefix string
}

// ServiceParams wires the order builder dependencies.
type ServiceParams struct {
	Repo         Repository
	Catalog      catalog.Reader
	Tx           txRunner
	Adjuster     TotalsAdjuster
	Hooks        *hooks.Registry
	Metrics      *metrics.CoreMetrics
	Logger       *logger.Logger
	NumberPrefix string
}

// NewService builds the order builder service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Adjuster == nil {
		params.Adjuster = zeroAdjuster{}
	}
	return &service{
		repo:         params.Repo,
		catalog:      params.Catalog,
		tx:           params.Tx,
		adjuster:     params.Adjuster,
		hooks:        params.Hooks,
		metrics:      params.Metrics,
		logg:         params.Logger,
		numberPrefix: params.NumberPrefix,
	}, nil
}

type validatedItem struct {
	input   LineItemInput
	product *models.Product
	// variantID is nil when the submitted variant did not resolve; the line
	// proceeds without it (stale-cart leniency, see Create).
	variantID *uuid.UUID
}

// Create validates the submitted lines against the catalog, computes totals
// and persists the order in a single transaction. Any validation failure
// aborts the whole order; there is no partial persistence.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := s.validateShape(input); err != nil {
		return nil, err
	}

	validated, err := s.validateItems(ctx, input)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, item := range validated {
		line := item.input.Price.Mul(decimal.NewFromInt(int64(item.input.Quantity)))
		subtotal = subtotal.Add(line)
	}

	totals, err := s.adjuster.Adjust(ctx, input, subtotal)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust totals")
	}
	// total = subtotal - discount + tax + shipping, always derived, never
	// trusted from the adjuster.
	totals.Total = totals.Subtotal.Sub(totals.Discount).Add(totals.Tax).Add(totals.Shipping)
	if totals.Total.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total cannot be negative")
	}

	order := &models.Order{
		OrderNumber:     GenerateOrderNumber(s.numberPrefix, time.Now()),
		UserID:          input.UserID,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		Subtotal:        totals.Subtotal,
		Discount:        totals.Discount,
		Tax:             totals.Tax,
		Shipping:        totals.Shipping,
		Total:           totals.Total,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  input.BillingAddress,
	}
	if input.Guest != nil {
		name, email, phone := strings.TrimSpace(input.Guest.Name), strings.TrimSpace(input.Guest.Email), strings.TrimSpace(input.Guest.Phone)
		order.GuestName, order.GuestEmail, order.GuestPhone = &name, &email, &phone
	}

	for _, item := range validated {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.input.ProductID,
			VariantID: item.variantID,
			Name:      item.product.Name,
			Quantity:  item.input.Quantity,
			Price:     item.input.Price,
			LineTotal: item.input.Price.Mul(decimal.NewFromInt(int64(item.input.Quantity))),
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).Create(ctx, order)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	s.metrics.IncOrderCreated()
	s.hooks.Fire(ctx, hooks.Event{Name: hooks.EventOrderCreated, Payload: order.ID})

	return order, nil
}

func (s *service) validateShape(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if missing := input.ShippingAddress.MissingFields(); len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	for i, item := range input.Items {
		if item.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1").
				WithDetails(map[string]any{"index": i, "product_id": item.ProductID})
		}
		if item.Price.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item price cannot be negative").
				WithDetails(map[string]any{"index": i, "product_id": item.ProductID})
		}
	}
	if input.UserID == nil {
		if input.Guest == nil ||
			strings.TrimSpace(input.Guest.Name) == "" ||
			strings.TrimSpace(input.Guest.Email) == "" ||
			strings.TrimSpace(input.Guest.Phone) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "guest checkout requires name, email and phone")
		}
	}
	return nil
}

// validateItems verifies every line against the catalog in parallel with
// fail-fast aggregate semantics: the first hard failure aborts the batch.
//
// An unresolvable variant id is deliberately soft: the line proceeds without
// the variant instead of failing the whole order. This covers stale
// client-side carts whose variant was retired between add and checkout; it is
// expected behavior, not a validation gap.
func (s *service) validateItems(ctx context.Context, input CreateOrderInput) ([]validatedItem, error) {
	validated := make([]validatedItem, len(input.Items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range input.Items {
		g.Go(func() error {
			product, err := s.catalog.FindActiveProduct(gctx, item.ProductID)
			if err != nil {
				return err
			}

			entry := validatedItem{input: item, product: product}
			if item.VariantID != nil {
				variant, verr := s.catalog.FindActiveVariant(gctx, *item.VariantID, item.ProductID)
				switch {
				case verr == nil:
					entry.variantID = &variant.ID
				case pkgerrors.As(verr) != nil && pkgerrors.As(verr).Code() == pkgerrors.CodeNotFound:
					if s.logg != nil {
						wctx := s.logg.WithFields(gctx, map[string]any{
							"product_id": item.ProductID,
							"variant_id": *item.VariantID,
						})
						s.logg.Warn(wctx, "order line variant did not resolve, proceeding without it")
					}
				default:
					return verr
				}
			}
			validated[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return validated, nil
}

// LookupGuestOrder finds a guest order by its customer-facing number. The
// supplied email must match the guest email on record; mismatches report
// not-found so the endpoint does not confirm which numbers exist.
func (s *service) LookupGuestOrder(ctx context.Context, orderNumber, email string) (*models.Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	email = strings.TrimSpace(email)
	if orderNumber == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number and email are required")
	}

	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.GuestEmail == nil || !strings.EqualFold(*order.GuestEmail, email) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// OverrideStatus applies an explicit admin status change. Cancelled is
// terminal; payment fields are never touched here, those belong to the
// payment reconciler.
func (s *service) OverrideStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeConflict, "cancelled orders cannot change status")
		}
		order.Status = status
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
