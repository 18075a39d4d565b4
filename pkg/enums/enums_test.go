package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionStatusAccessRules(t *testing.T) {
	granting := []SubscriptionStatus{SubscriptionStatusActive, SubscriptionStatusTrialing}
	revoking := []SubscriptionStatus{SubscriptionStatusCanceled, SubscriptionStatusPaymentFailed, SubscriptionStatusUnpaid, SubscriptionStatusPaused}
	neutral := []SubscriptionStatus{SubscriptionStatusPastDue, SubscriptionStatusIncomplete, "something_new"}

	for _, s := range granting {
		assert.True(t, s.GrantsAccess(), s)
		assert.False(t, s.RevokesAccess(), s)
	}
	for _, s := range revoking {
		assert.False(t, s.GrantsAccess(), s)
		assert.True(t, s.RevokesAccess(), s)
	}
	for _, s := range neutral {
		assert.False(t, s.GrantsAccess(), s)
		assert.False(t, s.RevokesAccess(), s)
	}
}

func TestNormalizeSubscriptionStatus(t *testing.T) {
	assert.Equal(t, SubscriptionStatusActive, NormalizeSubscriptionStatus(" ACTIVE "))
	assert.Equal(t, SubscriptionStatusCanceled, NormalizeSubscriptionStatus("CANCELED"))
	assert.Equal(t, SubscriptionStatusCanceled, NormalizeSubscriptionStatus("DEACTIVATED"))
	assert.Equal(t, SubscriptionStatusIncomplete, NormalizeSubscriptionStatus("PENDING"))
	assert.Equal(t, SubscriptionStatusPaused, NormalizeSubscriptionStatus("PAUSED"))
	assert.False(t, NormalizeSubscriptionStatus("PAUSED").GrantsAccess())
}

func TestParsers(t *testing.T) {
	plan, err := ParseSubscriptionPlan("premium")
	require.NoError(t, err)
	assert.Equal(t, SubscriptionPlanPremium, plan)
	_, err = ParseSubscriptionPlan("GOLD")
	assert.Error(t, err)

	renewal, err := ParseRenewalStatus("REQUESTED")
	require.NoError(t, err)
	assert.Equal(t, RenewalStatusRequested, renewal)
	_, err = ParseRenewalStatus("requested")
	assert.Error(t, err)

	role, err := ParseUserRole("ADMIN")
	require.NoError(t, err)
	assert.Equal(t, UserRoleAdmin, role)
	_, err = ParseUserRole("root")
	assert.Error(t, err)

	status, err := ParseSubscriptionStatus("payment_failed")
	require.NoError(t, err)
	assert.Equal(t, SubscriptionStatusPaymentFailed, status)
	_, err = ParseSubscriptionStatus("ACTIVE")
	assert.Error(t, err)
}
