package billing

import (
	"strings"

	"github.com/angelmondragon/kinfortune-backend/pkg/config"
	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
)

const (
	defaultOrigin   = "http://localhost:3000"
	defaultCurrency = "jpy"
	defaultInterval = "month"
)

// Config is the billing view of process configuration. It is built once in
// main and injected; nothing in this package reads the environment.
type Config struct {
	TrialDays     int64
	DefaultOrigin string
	DefaultPlan   enums.SubscriptionPlan
	Currency      string

	// Key presence, reported by the debug endpoint. The secrets themselves
	// stay in pkg/stripe.
	SecretKeySet      bool
	PublishableKeySet bool
	WebhookSecretSet  bool
	Environment       string
}

// ConfigFrom derives billing settings from the loaded app config.
func ConfigFrom(cfg *config.Config) Config {
	out := Config{
		TrialDays:         cfg.Billing.TrialDays,
		DefaultOrigin:     strings.TrimRight(strings.TrimSpace(cfg.Billing.DefaultOrigin), "/"),
		Currency:          strings.ToLower(strings.TrimSpace(cfg.Billing.Currency)),
		SecretKeySet:      strings.TrimSpace(cfg.Stripe.SecretKey) != "",
		PublishableKeySet: strings.TrimSpace(cfg.Stripe.PublishableKey) != "",
		WebhookSecretSet:  strings.TrimSpace(cfg.Stripe.WebhookSecret) != "",
		Environment:       cfg.App.Env,
	}
	if plan, err := enums.ParseSubscriptionPlan(cfg.Billing.DefaultPlan); err == nil {
		out.DefaultPlan = plan
	}
	return out.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.TrialDays < 0 {
		c.TrialDays = 0
	}
	if c.DefaultOrigin == "" {
		c.DefaultOrigin = defaultOrigin
	}
	if !c.DefaultPlan.IsValid() {
		c.DefaultPlan = enums.SubscriptionPlanBasic
	}
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	return c
}
