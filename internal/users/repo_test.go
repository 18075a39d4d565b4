package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/kinfortune-backend/pkg/db"
	"github.com/angelmondragon/kinfortune-backend/pkg/db/dbtest"
	"github.com/angelmondragon/kinfortune-backend/pkg/db/models"
	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
	"github.com/angelmondragon/kinfortune-backend/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(dbtest.NewSQLite(t, &models.User{}))
}

func seedUser(t *testing.T, repo *Repository, email string) *models.User {
	t.Helper()
	u, err := repo.Create(context.Background(), CreateUserDTO{
		Name:         "Hanako",
		Email:        email,
		PasswordHash: "hash",
		Birthday:     time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return u
}

func TestCreateNormalizesEmailAndRejectsDuplicates(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	u := seedUser(t, repo, "  Hanako@Example.COM ")
	assert.Equal(t, "hanako@example.com", u.Email)
	assert.Equal(t, enums.UserRoleUser, u.Role)
	assert.Equal(t, enums.RenewalStatusNone, u.RenewalStatus)

	found, err := repo.FindByEmail(ctx, "HANAKO@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = repo.Create(ctx, CreateUserDTO{Name: "x", Email: "hanako@example.com", PasswordHash: "h", Birthday: time.Now()})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestFindByEmailMissing(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	require.Error(t, err)
	assert.True(t, db.IsNotFound(err))
}

func TestApplyBillingKeepsPaidFlagConsistent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "a@example.com")

	upd := Paid(enums.SubscriptionStatusActive).WithPlan(enums.SubscriptionPlanBasic).WithStripeCustomer("cus_1")
	n, err := repo.ApplyBillingByEmail(ctx, u.Email, upd)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	require.NotNil(t, got.StripeCustomerID)
	assert.Equal(t, "cus_1", *got.StripeCustomerID)
	require.NotNil(t, got.SubscriptionPlan)
	assert.Equal(t, enums.SubscriptionPlanBasic, *got.SubscriptionPlan)

	// An explicit paid=true is overridden by a revoking status.
	paid := true
	canceled := enums.SubscriptionStatusCanceled
	_, err = repo.ApplyBillingByStripeCustomer(ctx, "cus_1", BillingUpdate{IsPaid: &paid, SubscriptionStatus: &canceled})
	require.NoError(t, err)

	got, err = repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPaid)
	assert.Equal(t, enums.SubscriptionStatusCanceled, *got.SubscriptionStatus)
}

func TestApplyBillingDropsStaleObservations(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "b@example.com")

	newer := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	n, err := repo.ApplyBillingByID(ctx, u.ID, Paid(enums.SubscriptionStatusActive).At(newer))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.ApplyBillingByID(ctx, u.ID, Paid(enums.SubscriptionStatusCanceled).At(older))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "older event must not overwrite newer state")

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)

	// Replaying the same observation is an idempotent overwrite.
	n, err = repo.ApplyBillingByID(ctx, u.ID, Paid(enums.SubscriptionStatusActive).At(newer))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestListOrdersNewestFirst(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	first := seedUser(t, repo, "first@example.com")
	second := seedUser(t, repo, "second@example.com")
	require.NoError(t, repo.db.Model(&models.User{}).Where("id = ?", first.ID).
		UpdateColumn("created_at", time.Now().Add(-time.Hour)).Error)

	list, next, err := repo.List(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Empty(t, next)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestListPagesWithCursor(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	var emails []string
	for i := 0; i < 5; i++ {
		u := seedUser(t, repo, fmt.Sprintf("user%d@example.com", i))
		require.NoError(t, repo.db.Model(&models.User{}).Where("id = ?", u.ID).
			UpdateColumn("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
		emails = append([]string{u.Email}, emails...)
	}

	var got []string
	cursor := ""
	for pages := 0; pages < 5; pages++ {
		list, next, err := repo.List(ctx, pagination.Params{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, u := range list {
			got = append(got, u.Email)
		}
		if next == "" {
			break
		}
		cursor = next
	}
	assert.Equal(t, emails, got)

	_, _, err := repo.List(ctx, pagination.Params{Cursor: "not-a-cursor"})
	assert.ErrorIs(t, err, pagination.ErrInvalidCursor)
}

func TestListStripeLinked(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	linked := seedUser(t, repo, "linked@example.com")
	seedUser(t, repo, "plain@example.com")

	_, err := repo.ApplyBillingByID(ctx, linked.ID, BillingUpdate{}.WithStripeCustomer("cus_9"))
	require.NoError(t, err)

	list, err := repo.ListStripeLinked(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, linked.ID, list[0].ID)

	byCustomer, err := repo.FindByStripeCustomerID(ctx, "cus_9")
	require.NoError(t, err)
	assert.Equal(t, linked.ID, byCustomer.ID)
}

func TestSquareCustomerLinking(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "square@example.com")

	_, err := repo.ApplyBillingByID(ctx, u.ID, BillingUpdate{}.WithSquareCustomer("SQ_CUST_1"))
	require.NoError(t, err)

	rows, err := repo.ApplyBillingBySquareCustomer(ctx, "SQ_CUST_1", Paid(enums.SubscriptionStatusActive))
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	found, err := repo.FindBySquareCustomerID(ctx, "SQ_CUST_1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.True(t, found.IsPaid)
}

func TestServiceList(t *testing.T) {
	repo := newRepo(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i, email := range []string{"one@example.com", "two@example.com"} {
		u := seedUser(t, repo, email)
		require.NoError(t, repo.db.Model(&models.User{}).Where("id = ?", u.ID).
			UpdateColumn("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	svc, err := NewService(repo)
	require.NoError(t, err)
	out, err := svc.List(context.Background(), pagination.Params{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)
	assert.NotEmpty(t, out.NextCursor)

	rest, err := svc.List(context.Background(), pagination.Params{Cursor: out.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, 1, rest.Count)
	assert.Empty(t, rest.NextCursor)
	assert.NotEqual(t, out.Users[0].ID, rest.Users[0].ID)

	_, err = svc.List(context.Background(), pagination.Params{Cursor: "bogus"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
