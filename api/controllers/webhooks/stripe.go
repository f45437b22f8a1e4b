package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/LLTIGER/pulse-architects-sub001/api/responses"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
)

// maxWebhookBody leaves room for large checkout sessions with expanded line items.
const maxWebhookBody = 512 << 10

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

// EventGuard is the fast-path duplicate filter in front of the service.
type EventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
	Done(eventID string)
}

// SigningSecretProvider is satisfied by *stripe.Client.
type SigningSecretProvider interface {
	SigningSecret() string
}

type ackResponse struct {
	Received bool `json:"received"`
}

// StripeWebhook verifies and reconciles payment gateway callbacks. Only
// unexpected failures answer 5xx so the gateway retries; rejected business
// transitions are logged and acknowledged.
func StripeWebhook(svc StripeWebhookService, client SigningSecretProvider, guard EventGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				if logg != nil {
					logg.Error(logg.WithField(ctx, "limit_bytes", tooLarge.Limit), "stripe_webhook.payload_too_large", err)
				}
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook payload too large").
					WithDetails(map[string]any{"maxBytes": maxWebhookBody}))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInvalidSignature, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEventWithOptions(payload, sigHeader, client.SigningSecret(), webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInvalidSignature, err, "invalid stripe signature"))
			return
		}

		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"event_id":   event.ID,
				"event_type": string(event.Type),
			})
		}

		// the guard is a fast path; the durable event table stays authoritative
		if guard != nil {
			duplicate, err := guard.CheckAndMark(ctx, event.ID)
			switch {
			case err != nil:
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "stripe.webhook.guard_unavailable")
				}
			case duplicate:
				if logg != nil {
					logg.Info(ctx, "stripe.webhook.duplicate")
				}
				responses.WriteJSON(w, http.StatusOK, ackResponse{Received: true})
				return
			}
		}

		err = svc.HandleEvent(ctx, &event)
		if guard != nil && (err == nil || !retryable(err)) {
			guard.Done(event.ID)
		}
		if err != nil {
			if retryable(err) {
				if guard != nil {
					if relErr := guard.Release(context.WithoutCancel(ctx), event.ID); relErr != nil && logg != nil {
						logg.Error(ctx, "stripe.webhook.guard_release_failed", relErr)
					}
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "process stripe event"))
				return
			}
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "stripe.webhook.rejected")
			}
			responses.WriteJSON(w, http.StatusOK, ackResponse{Received: true})
			return
		}

		if logg != nil {
			logg.Info(ctx, "stripe.webhook.processed")
		}
		responses.WriteJSON(w, http.StatusOK, ackResponse{Received: true})
	}
}

func retryable(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return true
	}
	switch typed.Code() {
	case pkgerrors.CodeInternal, pkgerrors.CodeDependency:
		return true
	default:
		return false
	}
}
