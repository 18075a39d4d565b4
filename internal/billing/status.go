package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/kinfortune-backend/internal/users"
	"github.com/angelmondragon/kinfortune-backend/pkg/db"
	"github.com/angelmondragon/kinfortune-backend/pkg/db/models"
	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
)

const (
	msgUserOrEmailRequired = "ユーザーIDまたはメールアドレスが必要です"
	msgUserIDRequired      = "ユーザーIDが必要です"
	msgEmailRequired       = "メールアドレスが必要です"
	msgStatusUpdated       = "決済状況が更新されました"
	msgStatusSynced        = "Stripeと同期して決済状況が更新されました"
	msgOtherUserStatus     = "他のユーザーの契約状況は参照できません"
)

// SubscriptionSummary is the part of a Stripe subscription the admin UI shows.
type SubscriptionSummary struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	CustomerID        string `json:"customerId,omitempty"`
	PriceID           string `json:"priceId,omitempty"`
	CancelAtPeriodEnd bool   `json:"cancelAtPeriodEnd"`
	StartDate         int64  `json:"startDate,omitempty"`
	TrialEnd          int64  `json:"trialEnd,omitempty"`
	Created           int64  `json:"created"`
}

func summarize(sub *stripe.Subscription) *SubscriptionSummary {
	if sub == nil {
		return nil
	}
	out := &SubscriptionSummary{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		StartDate:         sub.StartDate,
		TrialEnd:          sub.TrialEnd,
		Created:           sub.Created,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceID = sub.Items.Data[0].Price.ID
	}
	return out
}

// StatusQuery selects a user by id or email; id wins when both are given.
type StatusQuery struct {
	UserID string
	Email  string
}

type StatusResponse struct {
	User               *users.UserDTO       `json:"user"`
	StripeSubscription *SubscriptionSummary `json:"stripeSubscription"`
	LastChecked        time.Time            `json:"lastChecked"`
}

// GetStatus returns the stored billing state plus the live Stripe subscription
// when one can be fetched.
func (s *Service) GetStatus(ctx context.Context, q StatusQuery) (*StatusResponse, error) {
	var (
		user *models.User
		err  error
	)
	switch {
	case strings.TrimSpace(q.UserID) != "":
		id, parseErr := uuid.Parse(strings.TrimSpace(q.UserID))
		if parseErr != nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgUserNotFound)
		}
		user, err = s.users.FindByID(ctx, id)
	case strings.TrimSpace(q.Email) != "":
		user, err = s.users.FindByEmail(ctx, q.Email)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgUserOrEmailRequired)
	}
	if err != nil {
		return nil, userLookupError(err)
	}

	resp := &StatusResponse{User: users.FromModel(user), LastChecked: s.now()}
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" && s.stripe != nil {
		sub, err := s.stripe.FirstActiveSubscription(ctx, *user.StripeCustomerID)
		if err != nil {
			s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "stripe subscription fetch failed", err)
		} else {
			resp.StripeSubscription = summarize(sub)
		}
	}
	return resp, nil
}

// UpdateStatusRequest is the admin status edit. Only non-nil fields apply.
type UpdateStatusRequest struct {
	UserID             string  `json:"userId"`
	IsPaid             *bool   `json:"isPaid,omitempty"`
	SubscriptionPlan   *string `json:"subscriptionPlan,omitempty"`
	SubscriptionStatus *string `json:"subscriptionStatus,omitempty"`
	RenewalStatus      *string `json:"renewalStatus,omitempty"`
	SyncWithStripe     bool    `json:"syncWithStripe,omitempty"`
}

type UpdateStatusResponse struct {
	Message string         `json:"message"`
	User    *users.UserDTO `json:"user"`
}

// UpdateStatus applies an admin edit. With SyncWithStripe the remote
// subscription overrides the requested paid flag and status.
func (s *Service) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*UpdateStatusResponse, error) {
	rawID := strings.TrimSpace(req.UserID)
	if rawID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgUserIDRequired)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgUserNotFound)
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, userLookupError(err)
	}

	upd, err := requestedUpdate(req)
	if err != nil {
		return nil, err
	}

	if req.SyncWithStripe && user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		remote, err := s.observeStripe(ctx, *user.StripeCustomerID)
		if err != nil {
			s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "stripe sync failed", err)
		} else {
			upd.IsPaid = remote.IsPaid
			upd.SubscriptionStatus = remote.SubscriptionStatus
			upd.ObservedAt = remote.ObservedAt
		}
	}

	if !upd.IsEmpty() {
		if _, err := s.users.ApplyBillingByID(ctx, user.ID, upd); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update billing")
		}
	}

	updated, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user")
	}

	msg := msgStatusUpdated
	if req.SyncWithStripe {
		msg = msgStatusSynced
	}
	return &UpdateStatusResponse{Message: msg, User: users.FromModel(updated)}, nil
}

func requestedUpdate(req UpdateStatusRequest) (users.BillingUpdate, error) {
	var upd users.BillingUpdate
	upd.IsPaid = req.IsPaid
	if req.SubscriptionPlan != nil && strings.TrimSpace(*req.SubscriptionPlan) != "" {
		plan, err := enums.ParseSubscriptionPlan(*req.SubscriptionPlan)
		if err != nil {
			return upd, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "プランが不正です")
		}
		upd = upd.WithPlan(plan)
	}
	if req.SubscriptionStatus != nil && strings.TrimSpace(*req.SubscriptionStatus) != "" {
		status := enums.NormalizeSubscriptionStatus(*req.SubscriptionStatus)
		upd.SubscriptionStatus = &status
	}
	if req.RenewalStatus != nil && strings.TrimSpace(*req.RenewalStatus) != "" {
		renewal, err := enums.ParseRenewalStatus(strings.ToUpper(strings.TrimSpace(*req.RenewalStatus)))
		if err != nil {
			return upd, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "更新ステータスが不正です")
		}
		upd.RenewalStatus = &renewal
	}
	return upd, nil
}

// observeStripe turns the customer's remote state into a billing update:
// an active subscription keeps the account paid, none at all cancels it.
func (s *Service) observeStripe(ctx context.Context, customerID string) (users.BillingUpdate, error) {
	if err := s.requireStripe(); err != nil {
		return users.BillingUpdate{}, err
	}
	sub, err := s.stripe.FirstActiveSubscription(ctx, customerID)
	if err != nil {
		return users.BillingUpdate{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stripe subscriptions")
	}
	if sub == nil {
		return users.Paid(enums.SubscriptionStatusCanceled).At(s.now()), nil
	}
	status := enums.NormalizeSubscriptionStatus(string(sub.Status))
	paid := status == enums.SubscriptionStatusActive
	return users.BillingUpdate{IsPaid: &paid, SubscriptionStatus: &status}.At(s.now()), nil
}

// observeCurrent mirrors the customer's current subscription in any status.
// Trialing keeps access; a customer with no subscriptions at all is canceled.
func (s *Service) observeCurrent(ctx context.Context, customerID string) (users.BillingUpdate, error) {
	if err := s.requireStripe(); err != nil {
		return users.BillingUpdate{}, err
	}
	sub, err := s.stripe.CurrentSubscription(ctx, customerID)
	if err != nil {
		return users.BillingUpdate{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stripe subscriptions")
	}
	if sub == nil {
		return users.Paid(enums.SubscriptionStatusCanceled).At(s.now()), nil
	}
	status := enums.NormalizeSubscriptionStatus(string(sub.Status))
	paid := status.GrantsAccess()
	return users.BillingUpdate{IsPaid: &paid, SubscriptionStatus: &status}.At(s.now()), nil
}

// SyncOutcome reports what a pull sync did for one user.
type SyncOutcome struct {
	UserID  uuid.UUID
	Status  enums.SubscriptionStatus
	IsPaid  bool
	Applied bool
}

// SyncUser pulls Stripe state for a user with a stored customer id and writes
// it through the monotonic guard. Users without a customer id are skipped.
func (s *Service) SyncUser(ctx context.Context, user *models.User) (SyncOutcome, error) {
	out := SyncOutcome{UserID: user.ID}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return out, nil
	}
	upd, err := s.observeCurrent(ctx, *user.StripeCustomerID)
	if err != nil {
		return out, err
	}
	rows, err := s.users.ApplyBillingByID(ctx, user.ID, upd)
	if err != nil {
		return out, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("apply billing for %s", user.ID))
	}
	norm := upd.Normalized()
	out.Status = *norm.SubscriptionStatus
	out.IsPaid = *norm.IsPaid
	out.Applied = rows > 0
	return out, nil
}

// SubscriptionQuery identifies whose subscription is read. Admins look up
// any account by email; everyone else only reads their own.
type SubscriptionQuery struct {
	CallerID string
	Admin    bool
	Email    string
}

// SubscriptionStatus returns the stored billing state for the queried user.
func (s *Service) SubscriptionStatus(ctx context.Context, q SubscriptionQuery) (*users.UserDTO, error) {
	email := strings.TrimSpace(q.Email)
	if q.Admin {
		if email == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, msgEmailRequired)
		}
		user, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, userLookupError(err)
		}
		return users.FromModel(user), nil
	}

	id, err := uuid.Parse(strings.TrimSpace(q.CallerID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "認証が必要です")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, userLookupError(err)
	}
	if email != "" && !strings.EqualFold(email, user.Email) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, msgOtherUserStatus)
	}
	return users.FromModel(user), nil
}

func userLookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgUserNotFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
}
