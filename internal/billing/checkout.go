package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/kinfortune-backend/internal/users"
	"github.com/angelmondragon/kinfortune-backend/pkg/db"
	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
)

const (
	msgUserRequired          = "ユーザー情報が必要です"
	msgPriceRequired         = "価格IDが必要です"
	msgInvalidPrice          = "無効な価格IDです。Stripeダッシュボードで価格を確認してください。"
	msgPriceMisconfigured    = "価格設定に問題があります。"
	msgCheckoutFailed        = "決済セッションの作成に失敗しました"
	msgCompleteFieldsMissing = "セッションIDとユーザーメールが必要です"
	msgInvalidSession        = "無効なセッションIDです"
	msgPaymentIncomplete     = "決済が完了していません"
	msgPaymentCompleted      = "決済完了処理が正常に完了しました"
	msgSessionOwnerMismatch  = "このセッションは指定されたユーザーのものではありません"

	stripeCodeParameterInvalidInteger = "parameter_invalid_integer"
)

// CheckoutRequest is the checkout session payload.
type CheckoutRequest struct {
	PriceID   string `json:"priceId"`
	UserEmail string `json:"userEmail"`
}

type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// CreateCheckoutSession opens a subscription checkout for userEmail. origin is
// the caller's Origin header; the configured default is used when empty.
func (s *Service) CreateCheckoutSession(ctx context.Context, req CheckoutRequest, origin string) (*CheckoutResponse, error) {
	if err := s.requireStripe(); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(req.UserEmail)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgUserRequired)
	}
	priceID := strings.TrimSpace(req.PriceID)
	if priceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgPriceRequired)
	}

	base := strings.TrimRight(strings.TrimSpace(origin), "/")
	if base == "" {
		base = s.cfg.DefaultOrigin
	}

	metadata := map[string]string{"userEmail": email}
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:    stripe.String(base + "/subscription?success=true&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:     stripe.String(base + "/pricing?canceled=true"),
		CustomerEmail: stripe.String(email),
		Metadata:      metadata,
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if s.cfg.TrialDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(s.cfg.TrialDays)
	}

	sess, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "price_id", priceID), "stripe checkout session failed", err)
		return nil, checkoutError(err)
	}

	s.logg.Info(s.logg.WithField(ctx, "session_id", sess.ID), "checkout session created")
	return &CheckoutResponse{URL: sess.URL, SessionID: sess.ID}, nil
}

func checkoutError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgCheckoutFailed).WithDetails(err.Error())
	}
	msg := msgCheckoutFailed
	switch string(stripeErr.Code) {
	case string(stripe.ErrorCodeResourceMissing):
		msg = msgInvalidPrice
	case stripeCodeParameterInvalidInteger:
		msg = msgPriceMisconfigured
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg).WithDetails(stripeErr.Msg)
}

// CompleteRequest confirms a finished checkout from the success page.
type CompleteRequest struct {
	SessionID string `json:"sessionId"`
	UserEmail string `json:"userEmail"`
}

type CompleteResponse struct {
	Message string         `json:"message"`
	User    *users.UserDTO `json:"user"`
}

// CompletePayment marks the user paid once Stripe reports the checkout complete.
func (s *Service) CompletePayment(ctx context.Context, req CompleteRequest) (*CompleteResponse, error) {
	if err := s.requireStripe(); err != nil {
		return nil, err
	}
	sessionID := strings.TrimSpace(req.SessionID)
	email := strings.TrimSpace(req.UserEmail)
	if sessionID == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgCompleteFieldsMissing)
	}

	sess, err := s.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "session_id", sessionID), fmt.Sprintf("checkout session lookup failed: %v", err))
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, msgInvalidSession)
	}
	if sess.Status != stripe.CheckoutSessionStatusComplete {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgPaymentIncomplete).
			WithDetails(map[string]string{"status": string(sess.Status)})
	}
	if !sessionBelongsTo(sess, email) {
		s.logg.Warn(s.logg.WithField(ctx, "session_id", sessionID), "checkout session completed for a different email")
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, msgSessionOwnerMismatch)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgUserNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	status := enums.SubscriptionStatusActive
	if sess.Subscription != nil && sess.Subscription.Status != "" {
		status = enums.NormalizeSubscriptionStatus(string(sess.Subscription.Status))
	}
	paid := true
	upd := users.BillingUpdate{IsPaid: &paid, SubscriptionStatus: &status}.
		WithPlan(s.cfg.DefaultPlan).
		At(s.now())
	if sess.Customer != nil {
		upd = upd.WithStripeCustomer(sess.Customer.ID)
	}

	if _, err := s.users.ApplyBillingByID(ctx, user.ID, upd); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update billing")
	}
	updated, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "checkout completed")
	return &CompleteResponse{Message: msgPaymentCompleted, User: users.FromModel(updated)}, nil
}

// sessionBelongsTo reports whether email is the one the session was opened
// for or the one the customer paid with.
func sessionBelongsTo(sess *stripe.CheckoutSession, email string) bool {
	candidates := []string{sess.CustomerEmail, sess.Metadata["userEmail"]}
	if sess.CustomerDetails != nil {
		candidates = append(candidates, sess.CustomerDetails.Email)
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" && strings.EqualFold(c, email) {
			return true
		}
	}
	return false
}
