package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/modbuspro/license-server/api/responses"
	stripewebhook "github.com/modbuspro/license-server/internal/webhooks/stripe"
	pkgerrors "github.com/modbuspro/license-server/pkg/errors"
	"github.com/modbuspro/license-server/pkg/logger"
)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) (*stripewebhook.Result, error)
}

// StripeWebhookGuard is the replay-protection surface the handler consumes.
// Exported so wiring code can pass an untyped nil when Redis is not
// configured.
type StripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

type acknowledgment struct {
	Received bool   `json:"received"`
	Note     string `json:"note,omitempty"`
	Warning  string `json:"warning,omitempty"`
}

// StripeWebhook verifies and fulfills Stripe checkout events. The guard is
// optional: without Redis the handler leans on the checkout session unique
// constraint alone.
func StripeWebhook(svc StripeWebhookService, client stripeClient, guard StripeWebhookGuard, logg *logger.Logger) http.HandlerFunc {
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

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInvalidSignature, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEvent(payload, sigHeader, client.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInvalidSignature, err, "verify signature"))
			return
		}

		ctx = eventContext(ctx, logg, event.ID)

		if guard != nil {
			alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if alreadyProcessed {
				responses.WriteJSON(w, http.StatusOK, acknowledgment{Received: true, Note: "Already processed"})
				return
			}
		}

		result, err := svc.HandleEvent(ctx, &event)
		if err != nil {
			if guard != nil {
				_ = guard.Delete(ctx, event.ID)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("stripe event %s processed", event.ID))
		}

		ack := acknowledgment{Received: true}
		if result != nil {
			ack.Note = result.Note
			ack.Warning = result.Warning
		}
		responses.WriteJSON(w, http.StatusOK, ack)
	}
}

func eventContext(ctx context.Context, logg *logger.Logger, eventID string) context.Context {
	if logg == nil {
		return ctx
	}
	return logg.WithStripeEvent(ctx, eventID)
}
