package square

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/kinfortune-backend/pkg/config"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
)

var ErrNotConfigured = errors.New("square access token is required")

var environments = map[string]string{
	"sandbox":    "https://connect.squareupsandbox.com",
	"production": "https://connect.squareup.com",
}

// Client is a read-only view over the Square API: webhook handling only
// needs to resolve customers and subscriptions.
type Client struct {
	sdk  *sqclient.Client
	env  string
	logg *logger.Logger
}

func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, ErrNotConfigured
	}

	c := &Client{
		sdk:  sqclient.NewClient(sqoption.WithBaseURL(environments[env]), sqoption.WithToken(token)),
		env:  env,
		logg: logg,
	}
	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("square client initialized (%s)", env))
	}
	return c, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.env
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*sq.Subscription, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	resp, err := c.sdk.Subscriptions.Get(ctx, &sq.GetSubscriptionsRequest{SubscriptionID: subscriptionID})
	if err != nil {
		return nil, c.fail(ctx, "get subscription", err, map[string]any{"subscription_id": subscriptionID})
	}
	sub := resp.GetSubscription()
	status := ""
	if s := sub.GetStatus(); s != nil {
		status = string(*s)
	}
	c.trace(ctx, "get subscription", map[string]any{"subscription_id": subscriptionID, "status": status})
	return sub, nil
}

func (c *Client) GetCustomer(ctx context.Context, customerID string) (*sq.Customer, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	resp, err := c.sdk.Customers.Get(ctx, &sq.GetCustomersRequest{CustomerID: customerID})
	if err != nil {
		return nil, c.fail(ctx, "get customer", err, map[string]any{"customer_id": customerID})
	}
	c.trace(ctx, "get customer", map[string]any{"customer_id": customerID})
	return resp.GetCustomer(), nil
}

// CustomerEmail returns the customer's email address, or "" when none is on file.
func (c *Client) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	cust, err := c.GetCustomer(ctx, customerID)
	if err != nil || cust == nil {
		return "", err
	}
	if email := cust.GetEmailAddress(); email != nil {
		return strings.TrimSpace(*email), nil
	}
	return "", nil
}

func (c *Client) trace(ctx context.Context, op string, fields map[string]any) {
	if c.logg == nil {
		return
	}
	c.logg.Info(c.logg.WithFields(ctx, scrub(op, fields)), "square "+op)
}

func (c *Client) fail(ctx context.Context, op string, err error, fields map[string]any) error {
	mapped := toDomainError(err, op)
	if c.logg != nil {
		c.logg.Error(c.logg.WithFields(ctx, scrub(op, fields)), "square "+op+" failed", err)
	}
	return mapped
}

// scrub copies fields with anything that looks like a credential or contact
// detail masked.
func scrub(op string, fields map[string]any) map[string]any {
	out := map[string]any{"operation": op}
	for k, v := range fields {
		out[k] = redact(k, v)
	}
	return out
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, s := range []string{"token", "secret", "email", "phone", "signature"} {
		if strings.Contains(lower, s) {
			return "[REDACTED]"
		}
	}
	return value
}

func normalizeEnv(raw string) (string, error) {
	env := strings.ToLower(strings.TrimSpace(raw))
	if env == "" {
		env = "sandbox"
	}
	if _, ok := environments[env]; !ok {
		return "", fmt.Errorf("square environment must be sandbox or production, got %q", raw)
	}
	return env, nil
}
