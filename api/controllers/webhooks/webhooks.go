package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/kinfortune-backend/api/responses"
	"github.com/angelmondragon/kinfortune-backend/internal/webhooks"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
)

const maxPayloadBytes = 1 << 20

type idempotencyGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

func readPayload(r *http.Request) ([]byte, error) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	return payload, nil
}

// deliver runs apply at most once per event id and writes the acknowledgement.
// A failed apply clears the mark so the provider retry is processed.
func deliver(ctx context.Context, w http.ResponseWriter, guard idempotencyGuard, eventID, provider string, apply func() (webhooks.Result, error), logg *logger.Logger) {
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{"provider": provider, "event_id": eventID})
	}

	if guard != nil && eventID != "" {
		seen, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if seen {
			if logg != nil {
				logg.Info(ctx, "webhook duplicate acknowledged")
			}
			responses.WriteJSON(w, http.StatusOK, webhooks.Ignored(webhooks.ReasonDuplicate))
			return
		}
	}

	res, err := apply()
	if err != nil {
		if guard != nil && eventID != "" {
			if delErr := guard.Delete(ctx, eventID); delErr != nil && logg != nil {
				logg.Error(ctx, "clear idempotency mark", delErr)
			}
		}
		responses.WriteError(ctx, logg, w, err)
		return
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"handled": res.Handled, "reason": res.Reason}), "webhook processed")
	}
	responses.WriteJSON(w, http.StatusOK, res)
}
