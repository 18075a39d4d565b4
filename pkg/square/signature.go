package square

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// SignatureHeader carries the base64 HMAC-SHA256 Square attaches to webhook deliveries.
const SignatureHeader = "X-Square-Hmacsha256-Signature"

var (
	ErrSignatureKeyRequired = errors.New("square webhook signature key is required")
	ErrInvalidSignature     = errors.New("square webhook signature mismatch")
)

// Verifier checks webhook signatures. Square signs notificationURL+body with
// the subscription's signature key.
type Verifier struct {
	signatureKey    string
	notificationURL string
}

func NewVerifier(signatureKey, notificationURL string) *Verifier {
	return &Verifier{
		signatureKey:    strings.TrimSpace(signatureKey),
		notificationURL: strings.TrimSpace(notificationURL),
	}
}

// Configured reports whether a signature key is present.
func (v *Verifier) Configured() bool {
	return v != nil && v.signatureKey != ""
}

// Sign returns the expected signature for body.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(v.signatureKey))
	mac.Write([]byte(v.notificationURL))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (v *Verifier) Verify(body []byte, signature string) error {
	if !v.Configured() {
		return ErrSignatureKeyRequired
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrInvalidSignature
	}
	if !hmac.Equal([]byte(v.Sign(body)), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}
