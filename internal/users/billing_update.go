package users

import (
	"time"

	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
)

// BillingUpdate is the set of billing columns a single write may touch. Nil
// fields are left alone.
type BillingUpdate struct {
	IsPaid             *bool
	SubscriptionStatus *enums.SubscriptionStatus
	SubscriptionPlan   *enums.SubscriptionPlan
	RenewalStatus      *enums.RenewalStatus
	StripeCustomerID   *string
	SquareCustomerID   *string
	// ObservedAt is the provider-side time of the change. When set the write
	// only lands if nothing newer has been applied already.
	ObservedAt *time.Time
}

// Paid builds the common "status plus derived flag" update.
func Paid(status enums.SubscriptionStatus) BillingUpdate {
	paid := status.GrantsAccess()
	return BillingUpdate{IsPaid: &paid, SubscriptionStatus: &status}
}

// Normalized returns a copy where IsPaid agrees with SubscriptionStatus:
// active/trialing force true and canceled/payment_failed/unpaid force false.
func (u BillingUpdate) Normalized() BillingUpdate {
	if u.SubscriptionStatus == nil {
		return u
	}
	status := *u.SubscriptionStatus
	switch {
	case status.GrantsAccess():
		paid := true
		u.IsPaid = &paid
	case status.RevokesAccess():
		paid := false
		u.IsPaid = &paid
	}
	return u
}

func (u BillingUpdate) IsEmpty() bool {
	return u.IsPaid == nil && u.SubscriptionStatus == nil && u.SubscriptionPlan == nil &&
		u.RenewalStatus == nil && u.StripeCustomerID == nil && u.SquareCustomerID == nil
}

func (u BillingUpdate) WithPlan(plan enums.SubscriptionPlan) BillingUpdate {
	u.SubscriptionPlan = &plan
	return u
}

func (u BillingUpdate) WithStripeCustomer(id string) BillingUpdate {
	if id != "" {
		u.StripeCustomerID = &id
	}
	return u
}

func (u BillingUpdate) WithSquareCustomer(id string) BillingUpdate {
	if id != "" {
		u.SquareCustomerID = &id
	}
	return u
}

func (u BillingUpdate) At(t time.Time) BillingUpdate {
	if !t.IsZero() {
		ts := t.UTC()
		u.ObservedAt = &ts
	}
	return u
}

func (u BillingUpdate) columns() map[string]any {
	cols := map[string]any{}
	if u.IsPaid != nil {
		cols["is_paid"] = *u.IsPaid
	}
	if u.SubscriptionStatus != nil {
		cols["subscription_status"] = string(*u.SubscriptionStatus)
	}
	if u.SubscriptionPlan != nil {
		cols["subscription_plan"] = string(*u.SubscriptionPlan)
	}
	if u.RenewalStatus != nil {
		cols["renewal_status"] = string(*u.RenewalStatus)
	}
	if u.StripeCustomerID != nil {
		cols["stripe_customer_id"] = *u.StripeCustomerID
	}
	if u.SquareCustomerID != nil {
		cols["square_customer_id"] = *u.SquareCustomerID
	}
	if u.ObservedAt != nil {
		cols["billing_synced_at"] = *u.ObservedAt
	}
	return cols
}
