package stripewebhook

import (
	"context"
	"fmt"

	"github.com/angelmondragon/kinfortune-backend/internal/users"
	"github.com/angelmondragon/kinfortune-backend/internal/webhooks"
	"github.com/angelmondragon/kinfortune-backend/pkg/db"
	"github.com/angelmondragon/kinfortune-backend/pkg/db/models"
	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
)

const provider = "stripe"

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error)
	ApplyBillingByEmail(ctx context.Context, email string, upd users.BillingUpdate) (int64, error)
	ApplyBillingByStripeCustomer(ctx context.Context, customerID string, upd users.BillingUpdate) (int64, error)
}

// Recorder counts processed deliveries.
type Recorder interface {
	ObserveWebhook(provider, eventType, outcome string)
}

type ServiceParams struct {
	Users       userRepository
	DefaultPlan enums.SubscriptionPlan
	Logger      *logger.Logger
	Recorder    Recorder
}

// Service applies decoded Stripe deliveries to user billing state.
type Service struct {
	users    userRepository
	plan     enums.SubscriptionPlan
	logg     *logger.Logger
	recorder Recorder
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repo required")
	}
	plan := params.DefaultPlan
	if !plan.IsValid() {
		plan = enums.SubscriptionPlanBasic
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{users: params.Users, plan: plan, logg: logg, recorder: params.Recorder}, nil
}

// Apply writes the billing change carried by d. A delivery that matches no
// user is acknowledged with Handled=false rather than failed.
func (s *Service) Apply(ctx context.Context, d Delivery) (webhooks.Result, error) {
	ctx = s.logg.WithFields(s.logg.WithProvider(ctx, provider), map[string]any{
		"event_id":   d.ID,
		"event_type": d.Event.EventType(),
	})

	res, err := s.apply(ctx, d)
	s.observe(d.Event.EventType(), res, err)
	switch {
	case err != nil:
		s.logg.Error(ctx, "stripe webhook failed", err)
	case res.Handled:
		s.logg.Info(ctx, "stripe webhook applied")
	default:
		s.logg.Warn(ctx, fmt.Sprintf("stripe webhook ignored: %s", res.Reason))
	}
	return res, err
}

func (s *Service) apply(ctx context.Context, d Delivery) (webhooks.Result, error) {
	switch ev := d.Event.(type) {
	case CheckoutCompleted:
		upd := users.Paid(enums.SubscriptionStatusActive).
			WithPlan(s.plan).
			WithStripeCustomer(ev.CustomerID)
		return s.write(ctx, d, upd, byEmail(ev.Email), byCustomer(ev.CustomerID))

	case SubscriptionChanged:
		if ev.Status == "" {
			return webhooks.Ignored("subscription status missing"), nil
		}
		return s.write(ctx, d, users.Paid(ev.Status), byCustomer(ev.CustomerID), byEmail(ev.Email))

	case SubscriptionDeleted:
		return s.write(ctx, d, users.Paid(enums.SubscriptionStatusCanceled), byCustomer(ev.CustomerID), byEmail(ev.Email))

	case InvoicePaid:
		return s.write(ctx, d, users.Paid(enums.SubscriptionStatusActive), byCustomer(ev.CustomerID), byEmail(ev.Email))

	case InvoicePaymentFailed:
		return s.write(ctx, d, users.Paid(enums.SubscriptionStatusPaymentFailed), byCustomer(ev.CustomerID), byEmail(ev.Email))

	case Unrecognized:
		return webhooks.Ignored(webhooks.ReasonUnsupported), nil
	}
	return webhooks.Ignored(webhooks.ReasonUnsupported), nil
}

type target struct {
	byCustomer bool
	value      string
}

func byEmail(email string) target { return target{value: email} }

func byCustomer(id string) target { return target{byCustomer: true, value: id} }

// write tries each target in order and stops at the first that updates a row.
func (s *Service) write(ctx context.Context, d Delivery, upd users.BillingUpdate, targets ...target) (webhooks.Result, error) {
	upd = upd.At(d.OccurredAt)

	var tried []target
	for _, t := range targets {
		if t.value == "" {
			continue
		}
		tried = append(tried, t)

		var (
			rows int64
			err  error
		)
		if t.byCustomer {
			rows, err = s.users.ApplyBillingByStripeCustomer(ctx, t.value, upd)
		} else {
			rows, err = s.users.ApplyBillingByEmail(ctx, t.value, upd)
		}
		if err != nil {
			return webhooks.Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply billing update")
		}
		if rows > 0 {
			return webhooks.Handled(), nil
		}
	}

	if len(tried) == 0 {
		return webhooks.Ignored(webhooks.ReasonNoCustomer), nil
	}
	if upd.ObservedAt != nil {
		for _, t := range tried {
			exists, err := s.exists(ctx, t)
			if err != nil {
				return webhooks.Result{}, err
			}
			if exists {
				return webhooks.Ignored(webhooks.ReasonStale), nil
			}
		}
	}
	return webhooks.Ignored(webhooks.ReasonUserNotFound), nil
}

func (s *Service) exists(ctx context.Context, t target) (bool, error) {
	var err error
	if t.byCustomer {
		_, err = s.users.FindByStripeCustomerID(ctx, t.value)
	} else {
		_, err = s.users.FindByEmail(ctx, t.value)
	}
	if err == nil {
		return true, nil
	}
	if db.IsNotFound(err) {
		return false, nil
	}
	return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
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
