package enums

import (
	"fmt"
	"strings"
)

// SubscriptionPlan is the tier a paying user is on.
type SubscriptionPlan string

const (
	SubscriptionPlanBasic   SubscriptionPlan = "BASIC"
	SubscriptionPlanPremium SubscriptionPlan = "PREMIUM"
	SubscriptionPlanPro     SubscriptionPlan = "PRO"
)

var validSubscriptionPlans = []SubscriptionPlan{
	SubscriptionPlanBasic,
	SubscriptionPlanPremium,
	SubscriptionPlanPro,
}

func (p SubscriptionPlan) String() string {
	return string(p)
}

func (p SubscriptionPlan) IsValid() bool {
	for _, candidate := range validSubscriptionPlans {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseSubscriptionPlan accepts any casing.
func ParseSubscriptionPlan(value string) (SubscriptionPlan, error) {
	plan := SubscriptionPlan(strings.ToUpper(strings.TrimSpace(value)))
	if !plan.IsValid() {
		return "", fmt.Errorf("invalid subscription plan %q", value)
	}
	return plan, nil
}
