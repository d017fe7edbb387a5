package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/silkroute/storefront-backend/internal/hooks"
	"github.com/silkroute/storefront-backend/pkg/db"
	"github.com/silkroute/storefront-backend/pkg/db/models"
	"github.com/silkroute/storefront-backend/pkg/enums"
	pkgerrors "github.com/silkroute/storefront-backend/pkg/errors"
	"github.com/silkroute/storefront-backend/pkg/logger"
	"github.com/silkroute/storefront-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service reconciles the two independent confirmation paths (client verify
// and provider webhook) onto one order/payment state. Both paths are safe to
// invoke any number of times with the same provider payment id.
type Service interface {
	Verify(ctx context.Context, input VerifyInput) (*ConfirmResult, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

type service struct {
	repo          Repository
	tx            txRunner
	keySecret     string
	webhookSecret string
	hooks         *hooks.Registry
	metrics       *metrics.CoreMetrics
	logg          *logger.Logger
}

// ServiceParams wires the reconciler dependencies.
type ServiceParams struct {
	Repo          Repository
	Tx            txRunner
	KeySecret     string
	WebhookSecret string
	Hooks         *hooks.Registry
	Metrics       *metrics.CoreMetrics
	Logger        *logger.Logger
}

// NewService builds the payment reconciler.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.KeySecret == "" {
		return nil, fmt.Errorf("provider key secret required")
	}
	if params.WebhookSecret == "" {
		return nil, fmt.Errorf("provider webhook secret required")
	}
	return &service{
		repo:          params.Repo,
		tx:            params.Tx,
		keySecret:     params.KeySecret,
		webhookSecret: params.WebhookSecret,
		hooks:         params.Hooks,
		metrics:       params.Metrics,
		logg:          params.Logger,
	}, nil
}

// Verify is the client-driven confirmation path.
func (s *service) Verify(ctx context.Context, input VerifyInput) (*ConfirmResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ProviderOrderID == "" || input.ProviderPaymentID == "" || input.ProviderSignature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider order id, payment id and signature are required")
	}

	order, err := s.repo.FindOrderByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
				WithDetails(map[string]any{"order_id": input.OrderID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	verify := func() bool {
		return VerifyPaymentSignature(input.ProviderOrderID, input.ProviderPaymentID, input.ProviderSignature, s.keySecret)
	}
	return s.confirm(ctx, order, input.ProviderOrderID, input.ProviderPaymentID, input.ProviderSignature, verify)
}

// HandleWebhook is the provider-driven confirmation path. The signature is
// computed over the full raw body; decoding happens only after it checks out.
func (s *service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !VerifyWebhookSignature(body, signature, s.webhookSecret) {
		if s.logg != nil {
			s.logg.Warn(ctx, "webhook signature rejected")
		}
		s.metrics.IncPayment("rejected")
		return pkgerrors.New(pkgerrors.CodeInvalidSignature, "webhook signature mismatch")
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook event")
	}

	entity := event.Payload.Payment.Entity
	switch event.Event {
	case WebhookEventPaymentCaptured:
		if entity.ID == "" || entity.OrderID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment entity incomplete")
		}
		order, err := s.repo.FindOrderByProviderOrderID(ctx, entity.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if s.logg != nil {
					actx := s.logg.WithFields(ctx, map[string]any{
						"provider_order_id":   entity.OrderID,
						"provider_payment_id": entity.ID,
					})
					s.logg.Warn(actx, "webhook references unknown order")
				}
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for provider order id")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve order")
		}
		// Body-level HMAC already authenticated this event.
		alreadyVerified := func() bool { return true }
		_, err = s.confirm(ctx, order, entity.OrderID, entity.ID, signature, alreadyVerified)
		return err
	case WebhookEventPaymentFailed:
		return s.markFailed(ctx, entity.ID)
	default:
		// Unknown events are acknowledged and dropped.
		return nil
	}
}

// confirm is the shared idempotent transition function. The uniqueness
// constraint on (order_id, provider_payment_id) is the arbiter when the two
// paths race: exactly one caller wins the insert, the loser re-reads and
// falls into the duplicate branch.
func (s *service) confirm(
	ctx context.Context,
	order *models.Order,
	providerOrderID, providerPaymentID, signature string,
	verify func() bool,
) (*ConfirmResult, error) {
	existing, err := s.repo.FindPayment(ctx, order.ID, providerPaymentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if existing != nil && existing.Status == enums.PaymentStatusPaid {
		return s.duplicate(ctx, order, existing)
	}

	if !verify() {
		if s.logg != nil {
			wctx := s.logg.WithFields(ctx, map[string]any{
				"order_id":            order.ID,
				"provider_payment_id": providerPaymentID,
			})
			s.logg.Warn(wctx, "payment signature rejected")
		}
		s.metrics.IncPayment("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "payment signature mismatch")
	}

	payment := existing
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if payment == nil {
			payment = &models.Payment{
				OrderID:           order.ID,
				Amount:            order.Total,
				Method:            enums.PaymentMethodRazorpay,
				Status:            enums.PaymentStatusPaid,
				ProviderOrderID:   providerOrderID,
				ProviderPaymentID: providerPaymentID,
				ProviderSignature: signature,
			}
			if err := repo.CreatePayment(ctx, payment); err != nil {
				return err
			}
		} else {
			// A previously failed attempt for this provider payment id was
			// re-confirmed with a valid signature.
			payment.Status = enums.PaymentStatusPaid
			if err := repo.SavePayment(ctx, payment); err != nil {
				return err
			}
		}
		return s.applyOrderConfirmation(ctx, repo, order, providerOrderID)
	})
	if txErr != nil {
		if db.IsUniqueViolation(txErr, models.UniquePaymentPerProviderPayment) {
			// Lost the insert race; the winner's row must exist now.
			winner, rerr := s.repo.FindPayment(ctx, order.ID, providerPaymentID)
			if rerr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, rerr, "re-read payment after conflict")
			}
			return s.duplicate(ctx, order, winner)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "confirm payment")
	}

	s.metrics.IncPayment("new")
	s.hooks.Fire(ctx, hooks.Event{Name: hooks.EventPaymentConfirmed, Payload: order.ID})

	return &ConfirmResult{IsNew: true, Order: order, Payment: payment}, nil
}

// duplicate is the side-effect-free branch for redelivered confirmations. If
// a crash left the order behind its payment row (payment inserted, order
// update lost), this repairs the order before answering.
func (s *service) duplicate(ctx context.Context, order *models.Order, payment *models.Payment) (*ConfirmResult, error) {
	if s.orderLagsBehind(order) {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.applyOrderConfirmation(ctx, s.repo.WithTx(tx), order, payment.ProviderOrderID)
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "repair order state")
		}
		if s.logg != nil {
			rctx := s.logg.WithFields(ctx, map[string]any{
				"order_id":            order.ID,
				"provider_payment_id": payment.ProviderPaymentID,
			})
			s.logg.Warn(rctx, "order lagged behind its paid payment, repaired")
		}
	}

	s.metrics.IncPayment("duplicate")
	return &ConfirmResult{IsNew: false, Order: order, Payment: payment}, nil
}

func (s *service) orderLagsBehind(order *models.Order) bool {
	return order.PaymentStatus != enums.PaymentStatusPaid ||
		order.Status != enums.OrderStatusConfirmed ||
		order.ProviderOrderID == nil
}

func (s *service) applyOrderConfirmation(ctx context.Context, repo Repository, order *models.Order, providerOrderID string) error {
	order.PaymentStatus = enums.PaymentStatusPaid
	order.Status = enums.OrderStatusConfirmed
	if providerOrderID != "" {
		order.ProviderOrderID = &providerOrderID
	}
	return repo.SaveOrder(ctx, order)
}

// markFailed handles an explicit provider failure event. A late failure for
// an attempt already superseded by a paid payment never regresses the order.
func (s *service) markFailed(ctx context.Context, providerPaymentID string) error {
	if providerPaymentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "provider payment id required")
	}

	attempts, err := s.repo.FindPaymentsByProviderPaymentID(ctx, providerPaymentID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payments")
	}
	if len(attempts) == 0 {
		if s.logg != nil {
			actx := s.logg.WithProviderPaymentID(ctx, providerPaymentID)
			s.logg.Warn(actx, "failure event for unknown payment, ignoring")
		}
		return nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for i := range attempts {
			attempt := &attempts[i]
			if attempt.Status == enums.PaymentStatusPaid {
				continue
			}
			attempt.Status = enums.PaymentStatusFailed
			if err := repo.SavePayment(ctx, attempt); err != nil {
				return err
			}

			paid, err := repo.HasPaidPayment(ctx, attempt.OrderID)
			if err != nil {
				return err
			}
			if paid {
				continue
			}
			order, err := repo.FindOrderByID(ctx, attempt.OrderID)
			if err != nil {
				return err
			}
			order.PaymentStatus = enums.PaymentStatusFailed
			if err := repo.SaveOrder(ctx, order); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
	}

	s.metrics.IncPayment("failed")
	s.hooks.Fire(ctx, hooks.Event{Name: hooks.EventPaymentFailed, Payload: providerPaymentID})
	return nil
}
