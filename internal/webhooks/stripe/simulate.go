package stripewebhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/kinfortune-backend/internal/users"
	"github.com/angelmondragon/kinfortune-backend/internal/webhooks"
	"github.com/angelmondragon/kinfortune-backend/pkg/db"
	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
)

const (
	msgSimEmailRequired = "顧客メールが必要です"
	msgSimUserNotFound  = "ユーザーが見つかりません"
	msgSimUnsupported   = "未対応のイベントタイプです"
)

// SimulateRequest drives a synthetic delivery for local testing.
type SimulateRequest struct {
	EventType     string `json:"type"`
	CustomerEmail string `json:"email"`
	CustomerID    string `json:"customerId,omitempty"`
}

type SimulateResponse struct {
	Message string          `json:"message"`
	Result  webhooks.Result `json:"result"`
	User    *users.UserDTO  `json:"user"`
}

// Simulate builds the event a real delivery of req.EventType would decode to
// and runs it through Apply. Events are keyed by email so unlinked users work.
func (s *Service) Simulate(ctx context.Context, req SimulateRequest) (*SimulateResponse, error) {
	email := strings.TrimSpace(req.CustomerEmail)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgSimEmailRequired)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgSimUserNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	customer := strings.TrimSpace(req.CustomerID)
	if customer == "" && user.StripeCustomerID != nil {
		customer = *user.StripeCustomerID
	}

	var ev Event
	switch stripe.EventType(req.EventType) {
	case stripe.EventTypeCheckoutSessionCompleted:
		ev = CheckoutCompleted{Email: user.Email, CustomerID: customer}
	case stripe.EventTypeCustomerSubscriptionCreated:
		ev = SubscriptionChanged{Kind: req.EventType, Email: user.Email, Status: enums.SubscriptionStatusActive}
	case stripe.EventTypeInvoicePaymentSucceeded:
		ev = InvoicePaid{Email: user.Email}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgSimUnsupported)
	}

	// Simulated events carry no provider timestamp, so they bypass the ordering guard.
	res, err := s.Apply(ctx, Delivery{ID: "evt_sim_" + uuid.NewString(), Event: ev})
	if err != nil {
		return nil, err
	}

	if customer != "" && ev.EventType() != string(stripe.EventTypeInvoicePaymentSucceeded) {
		if _, err := s.users.ApplyBillingByEmail(ctx, user.Email, users.BillingUpdate{}.WithStripeCustomer(customer)); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link stripe customer")
		}
	}

	updated, err := s.users.FindByEmail(ctx, user.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user")
	}
	return &SimulateResponse{
		Message: fmt.Sprintf("%sイベントが正常に処理されました", req.EventType),
		Result:  res,
		User:    users.FromModel(updated),
	}, nil
}
