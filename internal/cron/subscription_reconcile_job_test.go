package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/kinfortune-backend/internal/billing"
	"github.com/angelmondragon/kinfortune-backend/internal/users"
	"github.com/angelmondragon/kinfortune-backend/pkg/db/dbtest"
	"github.com/angelmondragon/kinfortune-backend/pkg/db/models"
	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
	"github.com/angelmondragon/kinfortune-backend/pkg/metrics"
)

type stubLister struct {
	users []models.User
	limit int
}

func (s *stubLister) ListStripeLinked(_ context.Context, limit int) ([]models.User, error) {
	s.limit = limit
	return s.users, nil
}

type stubSyncer struct {
	outcomes map[uuid.UUID]billing.SyncOutcome
	errs     map[uuid.UUID]error
	calls    int
}

func (s *stubSyncer) SyncUser(_ context.Context, u *models.User) (billing.SyncOutcome, error) {
	s.calls++
	if err := s.errs[u.ID]; err != nil {
		return billing.SyncOutcome{UserID: u.ID}, err
	}
	return s.outcomes[u.ID], nil
}

func linkedUser(paid bool, status enums.SubscriptionStatus) models.User {
	customer := "cus_" + uuid.NewString()[:8]
	return models.User{ID: uuid.New(), IsPaid: paid, SubscriptionStatus: &status, StripeCustomerID: &customer}
}

func TestSubscriptionReconcileJobOutcomes(t *testing.T) {
	updated := linkedUser(true, enums.SubscriptionStatusActive)
	unchanged := linkedUser(true, enums.SubscriptionStatusActive)
	stale := linkedUser(false, enums.SubscriptionStatusCanceled)
	broken := linkedUser(false, enums.SubscriptionStatusCanceled)

	lister := &stubLister{users: []models.User{updated, unchanged, stale, broken}}
	syncer := &stubSyncer{
		outcomes: map[uuid.UUID]billing.SyncOutcome{
			updated.ID:   {UserID: updated.ID, Status: enums.SubscriptionStatusCanceled, IsPaid: false, Applied: true},
			unchanged.ID: {UserID: unchanged.ID, Status: enums.SubscriptionStatusActive, IsPaid: true, Applied: true},
			stale.ID:     {UserID: stale.ID, Status: enums.SubscriptionStatusActive, IsPaid: true, Applied: false},
		},
		errs: map[uuid.UUID]error{broken.ID: errors.New("stripe down")},
	}
	reg := prometheus.NewRegistry()
	jobMetrics := metrics.NewJobs(reg)

	job, err := NewSubscriptionReconcileJob(SubscriptionReconcileJobParams{
		Logger:    logger.Nop(),
		Users:     lister,
		Billing:   syncer,
		Metrics:   jobMetrics,
		StripeRPS: 1000,
	})
	require.NoError(t, err)
	require.Equal(t, "subscription-reconcile", job.Name())

	err = job.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "stripe down")
	require.Equal(t, 4, syncer.calls)
	require.Equal(t, defaultReconcileLimit, lister.limit)

	count, err := testutil.GatherAndCount(reg, "kinfortune_subscription_reconcile_users_total")
	require.NoError(t, err)
	require.Equal(t, 4, count)
}

func TestSubscriptionReconcileJobStopsOnCancel(t *testing.T) {
	lister := &stubLister{users: []models.User{linkedUser(true, enums.SubscriptionStatusActive)}}
	syncer := &stubSyncer{}
	job, err := NewSubscriptionReconcileJob(SubscriptionReconcileJobParams{
		Logger:  logger.Nop(),
		Users:   lister,
		Billing: syncer,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, job.Run(ctx))
	require.Zero(t, syncer.calls)
}

func TestNewSubscriptionReconcileJobValidates(t *testing.T) {
	_, err := NewSubscriptionReconcileJob(SubscriptionReconcileJobParams{Logger: logger.Nop()})
	require.Error(t, err)
}

type trialGateway struct {
	subs map[string]*stripe.Subscription
}

func (trialGateway) CreateCheckoutSession(context.Context, *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return nil, errors.New("unused")
}

func (trialGateway) GetCheckoutSession(context.Context, string) (*stripe.CheckoutSession, error) {
	return nil, errors.New("unused")
}

func (g trialGateway) FirstActiveSubscription(_ context.Context, customerID string) (*stripe.Subscription, error) {
	if sub := g.subs[customerID]; sub != nil && sub.Status == stripe.SubscriptionStatusActive {
		return sub, nil
	}
	return nil, nil
}

func (g trialGateway) CurrentSubscription(_ context.Context, customerID string) (*stripe.Subscription, error) {
	return g.subs[customerID], nil
}

func (trialGateway) ListActivePrices(context.Context) ([]*stripe.Price, error) { return nil, nil }

func (trialGateway) CreateRecurringPrice(context.Context, string, string, int64, string, string) (*stripe.Price, error) {
	return nil, errors.New("unused")
}

func TestSubscriptionReconcileJobKeepsTrialingUsersPaid(t *testing.T) {
	ctx := context.Background()
	repo := users.NewRepository(dbtest.NewSQLite(t, &models.User{}))
	u, err := repo.Create(ctx, users.CreateUserDTO{
		Name: "Trial", Email: "trial@example.com", PasswordHash: "hash",
		Birthday: time.Date(1992, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = repo.ApplyBillingByID(ctx, u.ID, users.Paid(enums.SubscriptionStatusTrialing).WithStripeCustomer("cus_trial"))
	require.NoError(t, err)

	svc, err := billing.NewService(billing.ServiceParams{
		Users:  repo,
		Stripe: trialGateway{subs: map[string]*stripe.Subscription{"cus_trial": {ID: "sub_trial", Status: stripe.SubscriptionStatusTrialing}}},
		Config: billing.Config{SecretKeySet: true},
	})
	require.NoError(t, err)

	job, err := NewSubscriptionReconcileJob(SubscriptionReconcileJobParams{
		Logger:    logger.Nop(),
		Users:     repo,
		Billing:   svc,
		StripeRPS: 1000,
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(ctx))

	stored, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, stored.IsPaid)
	require.NotNil(t, stored.SubscriptionStatus)
	require.Equal(t, enums.SubscriptionStatusTrialing, *stored.SubscriptionStatus)
	require.NotNil(t, stored.BillingSyncedAt)
}
