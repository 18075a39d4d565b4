package webhooks

import (
	"context"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/kinfortune-backend/api/responses"
	"github.com/angelmondragon/kinfortune-backend/api/validators"
	"github.com/angelmondragon/kinfortune-backend/internal/webhooks"
	stripewebhook "github.com/angelmondragon/kinfortune-backend/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
)

const stripeSignatureHeader = "Stripe-Signature"

type StripeVerifier interface {
	Verify(payload []byte, header string) (stripe.Event, error)
}

type StripeService interface {
	Apply(ctx context.Context, d stripewebhook.Delivery) (webhooks.Result, error)
}

type StripeSimulator interface {
	Simulate(ctx context.Context, req stripewebhook.SimulateRequest) (*stripewebhook.SimulateResponse, error)
}

// StripeWebhook verifies, decodes and applies a Stripe subscription event.
func StripeWebhook(verifier StripeVerifier, svc StripeService, guard idempotencyGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if verifier == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := readPayload(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		event, err := verifier.Verify(payload, r.Header.Get(stripeSignatureHeader))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		delivery, err := stripewebhook.Decode(event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		deliver(ctx, w, guard, delivery.ID, "stripe", func() (webhooks.Result, error) {
			return svc.Apply(ctx, delivery)
		}, logg)
	}
}

// StripeWebhookTest runs a synthetic event through the same reconciliation path.
func StripeWebhookTest(svc StripeSimulator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		var body stripewebhook.SimulateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Simulate(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, resp.Message, resp)
	}
}
