package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/silkroute/storefront-backend/api/responses"
	pkgerrors "github.com/silkroute/storefront-backend/pkg/errors"
	"github.com/silkroute/storefront-backend/pkg/logger"
)

const (
	signatureHeader = "X-Razorpay-Signature"
	eventIDHeader   = "X-Razorpay-Event-Id"
)

type RazorpayWebhookService interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

type RazorpayWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// RazorpayWebhook handles provider payment events. Signature or order lookup
// failures return a client error so the provider stops redelivering; local
// faults are acknowledged success-shaped and logged, leaving the provider's
// retry as the recovery path for the next delivery of a distinct event.
func RazorpayWebhook(svc RazorpayWebhookService, guard RazorpayWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(signatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInvalidSignature, "signature header missing"))
			return
		}

		eventID := r.Header.Get(eventIDHeader)
		if guard != nil && eventID != "" {
			alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
			if err != nil {
				// The database constraint still dedupes; proceed without
				// the guard rather than bouncing the event.
				if logg != nil {
					logg.Error(ctx, "idempotency guard unavailable", err)
				}
			} else if alreadyProcessed {
				responses.WriteSuccess(w, map[string]string{"status": "ok"})
				return
			}
		}

		if err := svc.HandleWebhook(ctx, payload, sigHeader); err != nil {
			if guard != nil && eventID != "" {
				_ = guard.Delete(ctx, eventID)
			}

			typed := pkgerrors.As(err)
			if typed != nil {
				switch typed.Code() {
				case pkgerrors.CodeInvalidSignature, pkgerrors.CodeNotFound, pkgerrors.CodeValidation:
					responses.WriteError(ctx, logg, w, err)
					return
				}
			}

			// Local fault unrelated to the payment's validity. Ack so the
			// provider does not burn its retries against the same error.
			if logg != nil {
				logg.Error(ctx, "webhook processing failed, acknowledged", err)
			}
			responses.WriteSuccess(w, map[string]string{"status": "ok"})
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
