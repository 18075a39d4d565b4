package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/kinfortune-backend/api/responses"
	"github.com/angelmondragon/kinfortune-backend/pkg/db"
	"github.com/angelmondragon/kinfortune-backend/pkg/db/models"
	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
)

const (
	msgAdminOnly = "管理者権限が必要です"
	msgPaidOnly  = "有料会員限定の機能です"
)

// RequireRole admits only callers whose token carries role. Must run after Auth.
func RequireRole(role enums.UserRole, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != string(role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, msgAdminOnly))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RequirePaid re-reads the account so a cancellation takes effect before the
// access token expires.
func RequirePaid(users userFinder, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, err := uuid.Parse(UserIDFromContext(ctx))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, msgLoginRequired))
				return
			}
			user, err := users.FindByID(ctx, id)
			if err != nil {
				if db.IsNotFound(err) {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, msgSessionInvalid))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user"))
				return
			}
			if !user.IsPaid {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, msgPaidOnly))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireEnabled hides a route behind a switch, answering 404 when it is off.
func RequireEnabled(enabled bool, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "見つかりません"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
