package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/angelmondragon/kinfortune-backend/internal/billing"
	"github.com/angelmondragon/kinfortune-backend/pkg/db/models"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
	"github.com/angelmondragon/kinfortune-backend/pkg/metrics"
)

const (
	defaultReconcileLimit = 250
	defaultStripeRPS      = 5

	outcomeUpdated   = "updated"
	outcomeUnchanged = "unchanged"
	outcomeStale     = "stale"
	outcomeError     = "error"
)

type linkedUserLister interface {
	ListStripeLinked(ctx context.Context, limit int) ([]models.User, error)
}

type stripeSyncer interface {
	SyncUser(ctx context.Context, user *models.User) (billing.SyncOutcome, error)
}

// SubscriptionReconcileJobParams configures the subscription pull sync.
type SubscriptionReconcileJobParams struct {
	Logger  *logger.Logger
	Users   linkedUserLister
	Billing stripeSyncer
	Metrics *metrics.Jobs
	Limit   int
	// StripeRPS caps Stripe calls per second across the whole run.
	StripeRPS float64
}

// NewSubscriptionReconcileJob builds the job that re-reads Stripe state for
// every user with a stored customer id.
func NewSubscriptionReconcileJob(params SubscriptionReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Billing == nil {
		return nil, fmt.Errorf("billing service required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultReconcileLimit
	}
	rps := params.StripeRPS
	if rps <= 0 {
		rps = defaultStripeRPS
	}
	return &subscriptionReconcileJob{
		logg:    params.Logger,
		users:   params.Users,
		billing: params.Billing,
		metrics: params.Metrics,
		limit:   limit,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

type subscriptionReconcileJob struct {
	logg    *logger.Logger
	users   linkedUserLister
	billing stripeSyncer
	metrics *metrics.Jobs
	limit   int
	limiter *rate.Limiter
}

func (j *subscriptionReconcileJob) Name() string { return "subscription-reconcile" }

func (j *subscriptionReconcileJob) Run(ctx context.Context) error {
	candidates, err := j.users.ListStripeLinked(ctx, j.limit)
	if err != nil {
		return fmt.Errorf("list stripe-linked users: %w", err)
	}

	var errs error
	counts := map[string]int{}
	for i := range candidates {
		if err := j.limiter.Wait(ctx); err != nil {
			return multierr.Append(errs, err)
		}
		outcome, err := j.reconcile(ctx, &candidates[i])
		counts[outcome]++
		j.metrics.ObserveReconcile(outcome)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"candidates": len(candidates),
		"updated":    counts[outcomeUpdated],
		"unchanged":  counts[outcomeUnchanged],
		"stale":      counts[outcomeStale],
		"errors":     counts[outcomeError],
	}), "subscription reconcile complete")
	return errs
}

func (j *subscriptionReconcileJob) reconcile(ctx context.Context, user *models.User) (string, error) {
	userCtx := j.logg.WithUserID(ctx, user.ID.String())
	res, err := j.billing.SyncUser(userCtx, user)
	if err != nil {
		j.logg.Warn(j.logg.WithField(userCtx, "error", err.Error()), "stripe sync failed")
		return outcomeError, fmt.Errorf("sync user %s: %w", user.ID, err)
	}
	switch {
	case !res.Applied:
		return outcomeStale, nil
	case user.IsPaid == res.IsPaid && user.SubscriptionStatus != nil && *user.SubscriptionStatus == res.Status:
		return outcomeUnchanged, nil
	default:
		j.logg.Info(j.logg.WithFields(userCtx, map[string]any{
			"status":  string(res.Status),
			"is_paid": res.IsPaid,
		}), "subscription state reconciled")
		return outcomeUpdated, nil
	}
}
