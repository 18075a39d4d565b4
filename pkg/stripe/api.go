package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/price"
	"github.com/stripe/stripe-go/v84/product"
	"github.com/stripe/stripe-go/v84/subscription"
)

const (
	// priceListLimit bounds the price listing; the catalogue is a handful of plans.
	priceListLimit = 100
	// subscriptionScanLimit bounds how many of a customer's subscriptions are
	// inspected, newest first.
	subscriptionScanLimit = 10
)

func (c *Client) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	params.Context = ctx
	return session.New(params)
}

// GetCheckoutSession retrieves a session with its customer and subscription expanded.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")
	params.AddExpand("customer")
	return session.Get(id, params)
}

// FirstActiveSubscription returns the customer's first active subscription or
// nil when there is none.
func (c *Client) FirstActiveSubscription(ctx context.Context, customerID string) (*stripe.Subscription, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := subscription.List(params)
	if iter.Next() {
		return iter.Subscription(), nil
	}
	return nil, iter.Err()
}

// CurrentSubscription returns the customer's live (active or trialing)
// subscription, else the most recent one in any status, else nil.
func (c *Client) CurrentSubscription(ctx context.Context, customerID string) (*stripe.Subscription, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(subscriptionScanLimit)

	var newest *stripe.Subscription
	iter := subscription.List(params)
	for n := 0; n < subscriptionScanLimit && iter.Next(); n++ {
		sub := iter.Subscription()
		if IsLive(sub.Status) {
			return sub, nil
		}
		if newest == nil {
			newest = sub
		}
	}
	return newest, iter.Err()
}

// IsLive reports whether a subscription in status grants access.
func IsLive(status stripe.SubscriptionStatus) bool {
	return status == stripe.SubscriptionStatusActive || status == stripe.SubscriptionStatusTrialing
}

// ListActivePrices returns active prices with their products expanded.
func (c *Client) ListActivePrices(ctx context.Context) ([]*stripe.Price, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	params := &stripe.PriceListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.Limit = stripe.Int64(priceListLimit)
	params.AddExpand("data.product")

	var out []*stripe.Price
	iter := price.List(params)
	for iter.Next() {
		out = append(out, iter.Price())
		if len(out) >= priceListLimit {
			break
		}
	}
	return out, iter.Err()
}

// CreateRecurringPrice creates a product and a recurring price attached to it.
func (c *Client) CreateRecurringPrice(ctx context.Context, name, description string, amount int64, currency, interval string) (*stripe.Price, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	prodParams := &stripe.ProductParams{
		Name:        stripe.String(name),
		Description: stripe.String(description),
	}
	prodParams.Context = ctx
	prod, err := product.New(prodParams)
	if err != nil {
		return nil, err
	}

	priceParams := &stripe.PriceParams{
		Product:    stripe.String(prod.ID),
		UnitAmount: stripe.Int64(amount),
		Currency:   stripe.String(currency),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(interval),
		},
	}
	priceParams.Context = ctx
	p, err := price.New(priceParams)
	if err != nil {
		return nil, err
	}
	if p.Product == nil || p.Product.Name == "" {
		p.Product = prod
	}
	return p, nil
}
