package controllers

import (
	"net/http"

	"github.com/angelmondragon/kinfortune-backend/api/responses"
	"github.com/angelmondragon/kinfortune-backend/api/validators"
	"github.com/angelmondragon/kinfortune-backend/internal/tarot"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
)

// TarotDraw draws cards for a paid member. An empty body draws one card.
func TarotDraw(svc *tarot.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body tarot.DrawRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		cards, err := svc.Draw(body.Count)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"cards": cards, "count": len(cards)})
	}
}
