package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/kinfortune-backend/api/responses"
	"github.com/angelmondragon/kinfortune-backend/api/validators"
	"github.com/angelmondragon/kinfortune-backend/internal/users"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
	"github.com/angelmondragon/kinfortune-backend/pkg/pagination"
)

type userLister interface {
	List(ctx context.Context, page pagination.Params) (*users.UserList, error)
}

// AdminUsers lists accounts newest first, one page per request. Pass the
// returned nextCursor back as ?cursor to continue.
func AdminUsers(svc userLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page := pagination.Params{Limit: limit, Cursor: validators.QueryString(r, "cursor")}
		list, err := svc.List(r.Context(), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
