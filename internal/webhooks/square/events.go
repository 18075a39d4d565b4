package squarewebhook

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
)

// Event is one decoded Square delivery.
type Event interface {
	EventType() string
}

// SubscriptionActivated covers subscription.created, .updated and .resumed
// while the plan is still live.
type SubscriptionActivated struct {
	Type           string
	CustomerID     string
	SubscriptionID string
	Status         enums.SubscriptionStatus
}

// SubscriptionSuspended is a live plan in a state that withholds access,
// such as PAUSED.
type SubscriptionSuspended struct {
	Type           string
	CustomerID     string
	SubscriptionID string
	Status         enums.SubscriptionStatus
}

type SubscriptionCanceled struct {
	Type           string
	CustomerID     string
	SubscriptionID string
}

type InvoicePaid struct {
	Type           string
	CustomerID     string
	SubscriptionID string
}

type InvoicePaymentFailed struct {
	Type           string
	CustomerID     string
	SubscriptionID string
}

type Unrecognized struct {
	Type string
}

func (e SubscriptionActivated) EventType() string { return e.Type }
func (e SubscriptionSuspended) EventType() string { return e.Type }
func (e SubscriptionCanceled) EventType() string  { return e.Type }
func (e InvoicePaid) EventType() string           { return e.Type }
func (e InvoicePaymentFailed) EventType() string  { return e.Type }
func (e Unrecognized) EventType() string          { return e.Type }

// Delivery is a decoded event plus its envelope id and time.
type Delivery struct {
	ID         string
	OccurredAt time.Time
	Event      Event
}

type envelope struct {
	EventID   string `json:"event_id"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
	Data      struct {
		Type   string `json:"type"`
		ID     string `json:"id"`
		Object struct {
			Subscription *subscriptionObject `json:"subscription"`
			Invoice      *invoiceObject      `json:"invoice"`
		} `json:"object"`
	} `json:"data"`
}

type subscriptionObject struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`
}

type invoiceObject struct {
	ID               string `json:"id"`
	SubscriptionID   string `json:"subscription_id"`
	PrimaryRecipient *struct {
		CustomerID string `json:"customer_id"`
	} `json:"primary_recipient"`
}

// Decode parses a verified Square webhook body.
func Decode(body []byte) (Delivery, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Delivery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode square event")
	}
	d := Delivery{ID: env.EventID}
	if ts, err := time.Parse(time.RFC3339, env.CreatedAt); err == nil {
		d.OccurredAt = ts.UTC()
	}

	typ := strings.ToLower(strings.TrimSpace(env.Type))
	obj := env.Data.Object
	switch typ {
	case "subscription.created", "subscription.updated", "subscription.resumed":
		if obj.Subscription == nil {
			return d, pkgerrors.New(pkgerrors.CodeValidation, "subscription payload missing")
		}
		status := enums.NormalizeSubscriptionStatus(obj.Subscription.Status)
		if status == enums.SubscriptionStatusCanceled {
			d.Event = SubscriptionCanceled{Type: typ, CustomerID: obj.Subscription.CustomerID, SubscriptionID: obj.Subscription.ID}
			break
		}
		if status.RevokesAccess() {
			d.Event = SubscriptionSuspended{Type: typ, CustomerID: obj.Subscription.CustomerID, SubscriptionID: obj.Subscription.ID, Status: status}
			break
		}
		if status == "" {
			status = enums.SubscriptionStatusActive
		}
		d.Event = SubscriptionActivated{Type: typ, CustomerID: obj.Subscription.CustomerID, SubscriptionID: obj.Subscription.ID, Status: status}

	case "subscription.canceled", "subscription.deleted":
		sub := obj.Subscription
		if sub == nil {
			sub = &subscriptionObject{ID: env.Data.ID}
		}
		d.Event = SubscriptionCanceled{Type: typ, CustomerID: sub.CustomerID, SubscriptionID: sub.ID}

	case "invoice.payment_made", "invoice.paid":
		customer, subID := invoiceRefs(obj.Invoice)
		d.Event = InvoicePaid{Type: typ, CustomerID: customer, SubscriptionID: subID}

	case "invoice.scheduled_charge_failed", "invoice.payment_failed":
		customer, subID := invoiceRefs(obj.Invoice)
		d.Event = InvoicePaymentFailed{Type: typ, CustomerID: customer, SubscriptionID: subID}

	default:
		d.Event = Unrecognized{Type: typ}
	}
	return d, nil
}

func invoiceRefs(inv *invoiceObject) (customerID, subscriptionID string) {
	if inv == nil {
		return "", ""
	}
	if inv.PrimaryRecipient != nil {
		customerID = inv.PrimaryRecipient.CustomerID
	}
	return customerID, inv.SubscriptionID
}
