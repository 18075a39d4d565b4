package webhooks

import (
	"context"
	"errors"
	"net/http"

	"github.com/angelmondragon/kinfortune-backend/api/responses"
	"github.com/angelmondragon/kinfortune-backend/internal/webhooks"
	squarewebhook "github.com/angelmondragon/kinfortune-backend/internal/webhooks/square"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
	"github.com/angelmondragon/kinfortune-backend/pkg/square"
)

const (
	msgSquareNotConfigured  = "Square設定が不完全です"
	msgSquareSignatureError = "署名検証に失敗しました"
)

type SquareVerifier interface {
	Verify(body []byte, signature string) error
}

type SquareService interface {
	Apply(ctx context.Context, d squarewebhook.Delivery) (webhooks.Result, error)
}

// SquareOptions relaxes signature checks outside production.
type SquareOptions struct {
	SkipSignature bool
}

// SquareWebhook verifies the HMAC signature and applies the subscription event.
func SquareWebhook(verifier SquareVerifier, svc SquareService, guard idempotencyGuard, opts SquareOptions, logg *logger.Logger) http.HandlerFunc {
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

		if !opts.SkipSignature {
			if err := verifier.Verify(payload, r.Header.Get(square.SignatureHeader)); err != nil {
				if errors.Is(err, square.ErrSignatureKeyRequired) {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, msgSquareNotConfigured))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, msgSquareSignatureError))
				return
			}
		}

		delivery, err := squarewebhook.Decode(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		deliver(ctx, w, guard, delivery.ID, "square", func() (webhooks.Result, error) {
			return svc.Apply(ctx, delivery)
		}, logg)
	}
}
