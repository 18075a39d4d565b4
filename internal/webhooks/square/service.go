package squarewebhook

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/kinfortune-backend/internal/users"
	"github.com/angelmondragon/kinfortune-backend/internal/webhooks"
	"github.com/angelmondragon/kinfortune-backend/pkg/db"
	"github.com/angelmondragon/kinfortune-backend/pkg/db/models"
	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
)

const provider = "square"

type userRepository interface {
	FindBySquareCustomerID(ctx context.Context, customerID string) (*models.User, error)
	ApplyBillingByEmail(ctx context.Context, email string, upd users.BillingUpdate) (int64, error)
	ApplyBillingBySquareCustomer(ctx context.Context, customerID string, upd users.BillingUpdate) (int64, error)
}

// squareClient resolves customers and subscriptions. It is optional; without
// it only customers already linked to a user can be matched.
type squareClient interface {
	CustomerEmail(ctx context.Context, customerID string) (string, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*sq.Subscription, error)
}

// Recorder counts processed deliveries.
type Recorder interface {
	ObserveWebhook(provider, eventType, outcome string)
}

type ServiceParams struct {
	Users    userRepository
	Square   squareClient
	Logger   *logger.Logger
	Recorder Recorder
}

// Service applies Square subscription and invoice deliveries.
type Service struct {
	users    userRepository
	square   squareClient
	logg     *logger.Logger
	recorder Recorder
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repo required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{users: params.Users, square: params.Square, logg: logg, recorder: params.Recorder}, nil
}

func (s *Service) Apply(ctx context.Context, d Delivery) (webhooks.Result, error) {
	ctx = s.logg.WithFields(s.logg.WithProvider(ctx, provider), map[string]any{
		"event_id":   d.ID,
		"event_type": d.Event.EventType(),
	})

	res, err := s.apply(ctx, d)
	s.observe(d.Event.EventType(), res, err)
	switch {
	case err != nil:
		s.logg.Error(ctx, "square webhook failed", err)
	case res.Handled:
		s.logg.Info(ctx, "square webhook applied")
	default:
		s.logg.Warn(ctx, fmt.Sprintf("square webhook ignored: %s", res.Reason))
	}
	return res, err
}

func (s *Service) apply(ctx context.Context, d Delivery) (webhooks.Result, error) {
	switch ev := d.Event.(type) {
	case SubscriptionActivated:
		paid := true
		status := ev.Status
		return s.write(ctx, d, users.BillingUpdate{IsPaid: &paid, SubscriptionStatus: &status}, ev.CustomerID, ev.SubscriptionID)
	case SubscriptionSuspended:
		return s.write(ctx, d, users.Paid(ev.Status), ev.CustomerID, ev.SubscriptionID)
	case SubscriptionCanceled:
		return s.write(ctx, d, users.Paid(enums.SubscriptionStatusCanceled), ev.CustomerID, ev.SubscriptionID)
	case InvoicePaid:
		return s.write(ctx, d, users.Paid(enums.SubscriptionStatusActive), ev.CustomerID, ev.SubscriptionID)
	case InvoicePaymentFailed:
		return s.write(ctx, d, users.Paid(enums.SubscriptionStatusPaymentFailed), ev.CustomerID, ev.SubscriptionID)
	}
	return webhooks.Ignored(webhooks.ReasonUnsupported), nil
}

// write resolves the customer to an email through Square and updates that
// user, linking the customer id on the way. When the email cannot be resolved
// it falls back to users already linked to the customer.
func (s *Service) write(ctx context.Context, d Delivery, upd users.BillingUpdate, customerID, subscriptionID string) (webhooks.Result, error) {
	upd = upd.At(d.OccurredAt)

	if customerID == "" && subscriptionID != "" {
		customerID = s.customerForSubscription(ctx, subscriptionID)
	}
	if customerID == "" {
		return webhooks.Ignored(webhooks.ReasonNoCustomer), nil
	}

	if email := s.resolveEmail(ctx, customerID); email != "" {
		rows, err := s.users.ApplyBillingByEmail(ctx, email, upd.WithSquareCustomer(customerID))
		if err != nil {
			return webhooks.Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply billing update")
		}
		if rows > 0 {
			return webhooks.Handled(), nil
		}
	}

	rows, err := s.users.ApplyBillingBySquareCustomer(ctx, customerID, upd)
	if err != nil {
		return webhooks.Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply billing update")
	}
	if rows > 0 {
		return webhooks.Handled(), nil
	}

	if upd.ObservedAt != nil {
		_, err := s.users.FindBySquareCustomerID(ctx, customerID)
		switch {
		case err == nil:
			return webhooks.Ignored(webhooks.ReasonStale), nil
		case !db.IsNotFound(err):
			return webhooks.Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}
	}
	return webhooks.Ignored(webhooks.ReasonUserNotFound), nil
}

func (s *Service) resolveEmail(ctx context.Context, customerID string) string {
	if s.square == nil {
		return ""
	}
	email, err := s.square.CustomerEmail(ctx, customerID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "customer_id", customerID), fmt.Sprintf("square customer lookup failed: %v", err))
		return ""
	}
	return strings.TrimSpace(email)
}

func (s *Service) customerForSubscription(ctx context.Context, subscriptionID string) string {
	if s.square == nil {
		return ""
	}
	sub, err := s.square.GetSubscription(ctx, subscriptionID)
	if err != nil || sub == nil {
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "subscription_id", subscriptionID), fmt.Sprintf("square subscription lookup failed: %v", err))
		}
		return ""
	}
	if sub.CustomerID == nil {
		return ""
	}
	return *sub.CustomerID
}

func (s *Service) observe(eventType string, res webhooks.Result, err error) {
	if s.recorder == nil {
		return
	}
	outcome := "handled"
	switch {
	case err != nil:
		outcome = "error"
	case !res.Handled:
		outcome = "ignored"
	}
	s.recorder.ObserveWebhook(provider, eventType, outcome)
}
