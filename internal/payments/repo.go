package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/silkroute/storefront-backend/pkg/db/models"
	"github.com/silkroute/storefront-backend/pkg/enums"
)

// Repository manages persistence for payments and the order fields the
// reconciler owns.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// FindOrderByProviderOrderID resolves an order from the provider's order
	// id, checking the order row first and falling back to prior payment
	// rows. The webhook path needs this because provider events do not carry
	// internal order ids.
	FindOrderByProviderOrderID(ctx context.Context, providerOrderID string) (*models.Order, error)
	FindPayment(ctx context.Context, orderID uuid.UUID, providerPaymentID string) (*models.Payment, error)
	FindPaymentsByProviderPaymentID(ctx context.Context, providerPaymentID string) ([]models.Payment, error)
	HasPaidPayment(ctx context.Context, orderID uuid.UUID) (bool, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	SavePayment(ctx context.Context, payment *models.Payment) error
	SaveOrder(ctx context.Context, order *models.Order) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByProviderOrderID(ctx context.Context, providerOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("provider_order_id = ?", providerOrderID).
		First(&order).Error
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var payment models.Payment
	err = r.db.WithContext(ctx).
		Where("provider_order_id = ?", providerOrderID).
		Order("created_at ASC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return r.FindOrderByID(ctx, payment.OrderID)
}

func (r *repository) FindPayment(ctx context.Context, orderID uuid.UUID, providerPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND provider_payment_id = ?", orderID, providerPaymentID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindPaymentsByProviderPaymentID(ctx context.Context, providerPaymentID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("provider_payment_id = ?", providerPaymentID).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) HasPaidPayment(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusPaid).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) SavePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *repository) SaveOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}
