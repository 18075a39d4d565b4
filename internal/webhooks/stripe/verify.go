package stripewebhook

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
	pkgstripe "github.com/angelmondragon/kinfortune-backend/pkg/stripe"
)

const (
	// TestSignature lets local tooling post unsigned events outside production.
	TestSignature = "test_signature"

	msgSignatureMissing = "署名が見つかりません"
	msgSignatureInvalid = "署名検証に失敗しました"
	msgTestEventInvalid = "テストイベントの解析に失敗しました"
	msgNotConfigured    = "Stripe設定が不完全です"
)

type eventConstructor interface {
	ConstructEvent(payload []byte, header string) (stripe.Event, error)
}

// VerifierOptions relax signature checks for non-production environments.
type VerifierOptions struct {
	AllowTestSignature bool
	SkipSignature      bool
}

// Verifier authenticates Stripe-Signature headers.
type Verifier struct {
	signer eventConstructor
	opts   VerifierOptions
}

// NewVerifier accepts a nil signer; deliveries then fail with a configuration
// error unless signature checks are relaxed.
func NewVerifier(signer eventConstructor, opts VerifierOptions) *Verifier {
	return &Verifier{signer: signer, opts: opts}
}

func (v *Verifier) Verify(payload []byte, header string) (stripe.Event, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeValidation, msgSignatureMissing)
	}

	if v.opts.SkipSignature || (v.opts.AllowTestSignature && header == TestSignature) {
		var ev stripe.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, msgTestEventInvalid)
		}
		return ev, nil
	}

	if v.signer == nil {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeConfiguration, msgNotConfigured)
	}
	ev, err := v.signer.ConstructEvent(payload, header)
	if err != nil {
		if errors.Is(err, pkgstripe.ErrSecretRequired) {
			return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, msgNotConfigured)
		}
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, msgSignatureInvalid)
	}
	return ev, nil
}
