package enums

import (
	"fmt"
	"strings"
)

// SubscriptionStatus mirrors the payment provider's subscription state. The
// column stores free text, so unknown provider values are kept verbatim.
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusPaymentFailed     SubscriptionStatus = "payment_failed"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

var validSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusTrialing,
	SubscriptionStatusActive,
	SubscriptionStatusPastDue,
	SubscriptionStatusCanceled,
	SubscriptionStatusPaymentFailed,
	SubscriptionStatusIncomplete,
	SubscriptionStatusIncompleteExpired,
	SubscriptionStatusUnpaid,
	SubscriptionStatusPaused,
}

// String implements fmt.Stringer.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SubscriptionStatus) IsValid() bool {
	for _, candidate := range validSubscriptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// GrantsAccess is true for statuses that imply a paid account.
func (s SubscriptionStatus) GrantsAccess() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

// RevokesAccess is true for statuses that imply the account is no longer paid.
func (s SubscriptionStatus) RevokesAccess() bool {
	switch s {
	case SubscriptionStatusCanceled, SubscriptionStatusPaymentFailed, SubscriptionStatusUnpaid, SubscriptionStatusPaused:
		return true
	}
	return false
}

// NormalizeSubscriptionStatus lower-cases provider input. Square reports
// statuses in upper case and uses CANCELED/DEACTIVATED for ended plans.
func NormalizeSubscriptionStatus(value string) SubscriptionStatus {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "cancelled", "deactivated":
		return SubscriptionStatusCanceled
	case "pending":
		return SubscriptionStatusIncomplete
	}
	return SubscriptionStatus(v)
}

// ParseSubscriptionStatus converts raw input into a known SubscriptionStatus.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	for _, candidate := range validSubscriptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}
