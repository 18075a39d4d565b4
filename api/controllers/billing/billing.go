package billing

import (
	"context"
	"net/http"

	"github.com/angelmondragon/kinfortune-backend/api/middleware"
	"github.com/angelmondragon/kinfortune-backend/api/responses"
	"github.com/angelmondragon/kinfortune-backend/api/validators"
	billingsvc "github.com/angelmondragon/kinfortune-backend/internal/billing"
	"github.com/angelmondragon/kinfortune-backend/internal/users"
	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
)

// Service describes the billing operations used by the HTTP controllers.
type Service interface {
	CreateCheckoutSession(ctx context.Context, req billingsvc.CheckoutRequest, origin string) (*billingsvc.CheckoutResponse, error)
	CompletePayment(ctx context.Context, req billingsvc.CompleteRequest) (*billingsvc.CompleteResponse, error)
	GetStatus(ctx context.Context, q billingsvc.StatusQuery) (*billingsvc.StatusResponse, error)
	UpdateStatus(ctx context.Context, req billingsvc.UpdateStatusRequest) (*billingsvc.UpdateStatusResponse, error)
	SubscriptionStatus(ctx context.Context, q billingsvc.SubscriptionQuery) (*users.UserDTO, error)
	ListPrices(ctx context.Context) (*billingsvc.PriceList, error)
	CreatePrice(ctx context.Context, req billingsvc.CreatePriceRequest) (*billingsvc.Price, error)
	DebugReport() billingsvc.DebugReport
}

func unavailable(ctx context.Context, logg *logger.Logger, w http.ResponseWriter) {
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
}

// CreateCheckoutSession starts a Stripe subscription checkout. Redirect URLs
// are built from the Origin header.
func CreateCheckoutSession(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r.Context(), logg, w)
			return
		}
		var body billingsvc.CheckoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.CreateCheckoutSession(r.Context(), body, r.Header.Get("Origin"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// CompletePayment finalizes a checkout session after the success redirect.
func CompletePayment(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r.Context(), logg, w)
			return
		}
		var body billingsvc.CompleteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.CompletePayment(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, resp.Message, map[string]*users.UserDTO{"user": resp.User})
	}
}

// PaymentStatus reads ?userId or ?email plus the live Stripe subscription.
func PaymentStatus(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r.Context(), logg, w)
			return
		}
		resp, err := svc.GetStatus(r.Context(), billingsvc.StatusQuery{
			UserID: validators.QueryString(r, "userId"),
			Email:  validators.QueryString(r, "email"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func UpdatePaymentStatus(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r.Context(), logg, w)
			return
		}
		var body billingsvc.UpdateStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.UpdateStatus(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, resp.Message, map[string]*users.UserDTO{"user": resp.User})
	}
}

// SubscriptionStatus returns the caller's stored billing state. Admins may
// pass ?email to read any account.
func SubscriptionStatus(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r.Context(), logg, w)
			return
		}
		ctx := r.Context()
		user, err := svc.SubscriptionStatus(ctx, billingsvc.SubscriptionQuery{
			CallerID: middleware.UserIDFromContext(ctx),
			Admin:    middleware.RoleFromContext(ctx) == string(enums.UserRoleAdmin),
			Email:    validators.QueryString(r, "email"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]*users.UserDTO{"user": user})
	}
}

func ListPrices(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r.Context(), logg, w)
			return
		}
		list, err := svc.ListPrices(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func CreatePrice(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r.Context(), logg, w)
			return
		}
		var body billingsvc.CreatePriceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := svc.CreatePrice(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]*billingsvc.Price{"price": price})
	}
}

// DebugStripe reports which Stripe settings are present.
func DebugStripe(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r.Context(), logg, w)
			return
		}
		responses.WriteSuccess(w, svc.DebugReport())
	}
}
