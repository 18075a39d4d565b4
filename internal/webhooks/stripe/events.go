package stripewebhook

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
)

// metadataEmailKey is set on checkout sessions and their subscriptions.
const metadataEmailKey = "userEmail"

// Event is one decoded Stripe delivery. Each handled type has its own
// variant; anything else decodes to Unrecognized.
type Event interface {
	EventType() string
}

type CheckoutCompleted struct {
	Email      string
	CustomerID string
}

// SubscriptionChanged covers customer.subscription.created and .updated.
type SubscriptionChanged struct {
	Kind       string
	CustomerID string
	Email      string
	Status     enums.SubscriptionStatus
}

type SubscriptionDeleted struct {
	CustomerID string
	Email      string
}

type InvoicePaid struct {
	CustomerID string
	Email      string
}

type InvoicePaymentFailed struct {
	CustomerID string
	Email      string
}

type Unrecognized struct {
	Type string
}

func (CheckoutCompleted) EventType() string {
	return string(stripe.EventTypeCheckoutSessionCompleted)
}

func (e SubscriptionChanged) EventType() string {
	if e.Kind != "" {
		return e.Kind
	}
	return string(stripe.EventTypeCustomerSubscriptionUpdated)
}

func (SubscriptionDeleted) EventType() string {
	return string(stripe.EventTypeCustomerSubscriptionDeleted)
}

func (InvoicePaid) EventType() string {
	return string(stripe.EventTypeInvoicePaymentSucceeded)
}

func (InvoicePaymentFailed) EventType() string {
	return string(stripe.EventTypeInvoicePaymentFailed)
}

func (e Unrecognized) EventType() string { return e.Type }

// Delivery is a decoded event plus the envelope fields used for dedupe and
// ordering.
type Delivery struct {
	ID         string
	OccurredAt time.Time
	Event      Event
}

// Decode maps a verified Stripe event onto its variant.
func Decode(ev stripe.Event) (Delivery, error) {
	d := Delivery{ID: ev.ID}
	if ev.Created > 0 {
		d.OccurredAt = time.Unix(ev.Created, 0).UTC()
	}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		d.Event = Unrecognized{Type: string(ev.Type)}
		if isHandledType(ev.Type) {
			return d, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
		}
		return d, nil
	}

	switch ev.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			return d, decodeError(err, "checkout session")
		}
		email := sess.CustomerEmail
		if email == "" && sess.CustomerDetails != nil {
			email = sess.CustomerDetails.Email
		}
		if email == "" {
			email = sess.Metadata[metadataEmailKey]
		}
		d.Event = CheckoutCompleted{Email: strings.TrimSpace(email), CustomerID: customerID(sess.Customer)}

	case stripe.EventTypeCustomerSubscriptionCreated, stripe.EventTypeCustomerSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return d, decodeError(err, "subscription")
		}
		d.Event = SubscriptionChanged{
			Kind:       string(ev.Type),
			CustomerID: customerID(sub.Customer),
			Email:      sub.Metadata[metadataEmailKey],
			Status:     enums.NormalizeSubscriptionStatus(string(sub.Status)),
		}

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return d, decodeError(err, "subscription")
		}
		d.Event = SubscriptionDeleted{CustomerID: customerID(sub.Customer), Email: sub.Metadata[metadataEmailKey]}

	case stripe.EventTypeInvoicePaymentSucceeded, stripe.EventTypeInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return d, decodeError(err, "invoice")
		}
		if ev.Type == stripe.EventTypeInvoicePaymentSucceeded {
			d.Event = InvoicePaid{CustomerID: customerID(inv.Customer), Email: inv.CustomerEmail}
		} else {
			d.Event = InvoicePaymentFailed{CustomerID: customerID(inv.Customer), Email: inv.CustomerEmail}
		}

	default:
		d.Event = Unrecognized{Type: string(ev.Type)}
	}
	return d, nil
}

func isHandledType(t stripe.EventType) bool {
	switch t {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted,
		stripe.EventTypeInvoicePaymentSucceeded,
		stripe.EventTypeInvoicePaymentFailed:
		return true
	}
	return false
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func decodeError(err error, what string) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode stripe "+what)
}
