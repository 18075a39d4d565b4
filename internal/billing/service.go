package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/kinfortune-backend/internal/users"
	"github.com/angelmondragon/kinfortune-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
)

const (
	msgStripeNotConfigured = "Stripe設定が不完全です"
	msgUserNotFound        = "ユーザーが見つかりません"
)

// StripeGateway is the slice of the Stripe API billing relies on.
type StripeGateway interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	FirstActiveSubscription(ctx context.Context, customerID string) (*stripe.Subscription, error)
	CurrentSubscription(ctx context.Context, customerID string) (*stripe.Subscription, error)
	ListActivePrices(ctx context.Context) ([]*stripe.Price, error)
	CreateRecurringPrice(ctx context.Context, name, description string, amount int64, currency, interval string) (*stripe.Price, error)
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ApplyBillingByID(ctx context.Context, id uuid.UUID, upd users.BillingUpdate) (int64, error)
	ApplyBillingByEmail(ctx context.Context, email string, upd users.BillingUpdate) (int64, error)
}

// ServiceParams groups dependencies for the billing service. Stripe may be
// nil, in which case provider-backed operations report a configuration error.
type ServiceParams struct {
	Users  userRepository
	Stripe StripeGateway
	Config Config
	Logger *logger.Logger
}

// Service implements checkout, payment completion, status sync and prices.
type Service struct {
	users  userRepository
	stripe StripeGateway
	cfg    Config
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds a billing service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		users:  params.Users,
		stripe: params.Stripe,
		cfg:    params.Config.withDefaults(),
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Configured reports whether a Stripe gateway is wired.
func (s *Service) Configured() bool {
	return s.stripe != nil
}

func (s *Service) requireStripe() error {
	if s.stripe == nil {
		return pkgerrors.New(pkgerrors.CodeConfiguration, msgStripeNotConfigured)
	}
	return nil
}

// DebugReport describes which Stripe settings are present without exposing them.
type DebugReport struct {
	StripeSecretKey      string    `json:"stripeSecretKey"`
	StripePublishableKey string    `json:"stripePublishableKey"`
	StripeWebhookSecret  string    `json:"stripeWebhookSecret"`
	Environment          string    `json:"environment"`
	Timestamp            time.Time `json:"timestamp"`
}

func (s *Service) DebugReport() DebugReport {
	return DebugReport{
		StripeSecretKey:      presence(s.cfg.SecretKeySet),
		StripePublishableKey: presence(s.cfg.PublishableKeySet),
		StripeWebhookSecret:  presence(s.cfg.WebhookSecretSet),
		Environment:          s.cfg.Environment,
		Timestamp:            s.now(),
	}
}

func presence(set bool) string {
	if set {
		return "設定済み"
	}
	return "未設定"
}
