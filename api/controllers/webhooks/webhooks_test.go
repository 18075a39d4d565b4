package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/kinfortune-backend/internal/webhooks"
	squarewebhook "github.com/angelmondragon/kinfortune-backend/internal/webhooks/square"
	stripewebhook "github.com/angelmondragon/kinfortune-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/kinfortune-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
	"github.com/angelmondragon/kinfortune-backend/pkg/square"
	pkgstripe "github.com/angelmondragon/kinfortune-backend/pkg/stripe"
)

const (
	testWebhookSecret = "whsec_test"
	squareKey         = "sq-signature-key"
	squareURL         = "https://api.kin.example.com/api/webhooks/square"
)

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]struct{}{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = struct{}{}
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func newGuard(t *testing.T, scope string) *webhooks.IdempotencyGuard {
	t.Helper()
	guard, err := webhooks.NewIdempotencyGuard(newMemoryStore(), time.Hour, scope)
	require.NoError(t, err)
	return guard
}

type fakeStripeService struct {
	calls int
	last  stripewebhook.Delivery
	err   error
}

func (f *fakeStripeService) Apply(_ context.Context, d stripewebhook.Delivery) (webhooks.Result, error) {
	f.calls++
	f.last = d
	if f.err != nil {
		return webhooks.Result{}, f.err
	}
	return webhooks.Handled(), nil
}

func stripeVerifier(t *testing.T, opts stripewebhook.VerifierOptions) *stripewebhook.Verifier {
	t.Helper()
	client, err := pkgstripe.NewClient(context.Background(), config.StripeConfig{SecretKey: "sk_test_123", WebhookSecret: testWebhookSecret}, nil)
	require.NoError(t, err)
	return stripewebhook.NewVerifier(client, opts)
}

func signedStripeEvent() ([]byte, string) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"invoice.payment_succeeded","created":1700000000,"data":{"object":{"object":"invoice","customer":"cus_1","customer_email":"a@example.com"}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return payload, signed.Header
}

func postStripe(h http.Handler, payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	if header != "" {
		req.Header.Set(stripeSignatureHeader, header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) webhooks.Result {
	t.Helper()
	var res webhooks.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

func TestStripeWebhookAppliesOnce(t *testing.T) {
	svc := &fakeStripeService{}
	handler := StripeWebhook(stripeVerifier(t, stripewebhook.VerifierOptions{}), svc, newGuard(t, "stripe"), nil)
	payload, header := signedStripeEvent()

	rec := postStripe(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, webhooks.Handled(), decodeResult(t, rec))
	require.Equal(t, 1, svc.calls)
	require.Equal(t, stripewebhook.InvoicePaid{CustomerID: "cus_1", Email: "a@example.com"}, svc.last.Event)

	rec = postStripe(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, webhooks.Ignored(webhooks.ReasonDuplicate), decodeResult(t, rec))
	require.Equal(t, 1, svc.calls)
}

func TestStripeWebhookSignatureFailures(t *testing.T) {
	svc := &fakeStripeService{}
	handler := StripeWebhook(stripeVerifier(t, stripewebhook.VerifierOptions{}), svc, newGuard(t, "stripe"), nil)
	payload, _ := signedStripeEvent()

	rec := postStripe(handler, payload, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "署名が見つかりません")

	rec = postStripe(handler, payload, "t=1,v1=bogus")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "署名検証に失敗しました")

	rec = postStripe(handler, payload, stripewebhook.TestSignature)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, svc.calls)
}

func TestStripeWebhookTestSignatureOutsideProduction(t *testing.T) {
	svc := &fakeStripeService{}
	handler := StripeWebhook(stripeVerifier(t, stripewebhook.VerifierOptions{AllowTestSignature: true}), svc, newGuard(t, "stripe"), nil)
	payload, _ := signedStripeEvent()

	rec := postStripe(handler, payload, stripewebhook.TestSignature)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 1, svc.calls)
}

func TestStripeWebhookNotConfigured(t *testing.T) {
	handler := StripeWebhook(stripewebhook.NewVerifier(nil, stripewebhook.VerifierOptions{}), &fakeStripeService{}, newGuard(t, "stripe"), nil)
	payload, header := signedStripeEvent()

	rec := postStripe(handler, payload, header)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Stripe設定が不完全です")
}

func TestStripeWebhookFailureAllowsRetry(t *testing.T) {
	svc := &fakeStripeService{err: pkgerrors.New(pkgerrors.CodeInternal, "db down")}
	handler := StripeWebhook(stripeVerifier(t, stripewebhook.VerifierOptions{}), svc, newGuard(t, "stripe"), nil)
	payload, header := signedStripeEvent()

	rec := postStripe(handler, payload, header)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	svc.err = nil
	rec = postStripe(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decodeResult(t, rec).Handled)
	require.Equal(t, 2, svc.calls)
}

type fakeSquareService struct {
	calls int
	last  squarewebhook.Delivery
}

func (f *fakeSquareService) Apply(_ context.Context, d squarewebhook.Delivery) (webhooks.Result, error) {
	f.calls++
	f.last = d
	if _, ok := d.Event.(squarewebhook.Unrecognized); ok {
		return webhooks.Ignored(webhooks.ReasonUnsupported), nil
	}
	return webhooks.Handled(), nil
}

var squarePayload = []byte(`{"event_id":"sq_evt_1","type":"subscription.updated","created_at":"2025-05-01T10:00:00Z","data":{"type":"subscription","id":"sub_1","object":{"subscription":{"id":"sub_1","customer_id":"SQ_CUST","status":"ACTIVE"}}}}`)

func postSquare(h http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/square", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(square.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSquareWebhookVerifiesAndDedupes(t *testing.T) {
	verifier := square.NewVerifier(squareKey, squareURL)
	svc := &fakeSquareService{}
	handler := SquareWebhook(verifier, svc, newGuard(t, "square"), SquareOptions{}, nil)

	rec := postSquare(handler, squarePayload, verifier.Sign(squarePayload))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 1, svc.calls)
	activated, ok := svc.last.Event.(squarewebhook.SubscriptionActivated)
	require.True(t, ok)
	require.Equal(t, "SQ_CUST", activated.CustomerID)

	rec = postSquare(handler, squarePayload, verifier.Sign(squarePayload))
	require.Equal(t, webhooks.Ignored(webhooks.ReasonDuplicate), decodeResult(t, rec))
	require.Equal(t, 1, svc.calls)
}

func TestSquareWebhookRejectsBadSignature(t *testing.T) {
	svc := &fakeSquareService{}
	handler := SquareWebhook(square.NewVerifier(squareKey, squareURL), svc, newGuard(t, "square"), SquareOptions{}, nil)

	rec := postSquare(handler, squarePayload, "bm9wZQ==")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = postSquare(handler, squarePayload, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, svc.calls)
}

func TestSquareWebhookNotConfigured(t *testing.T) {
	handler := SquareWebhook(square.NewVerifier("", squareURL), &fakeSquareService{}, newGuard(t, "square"), SquareOptions{}, nil)

	rec := postSquare(handler, squarePayload, "anything")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Square設定が不完全です")

	skipping := SquareWebhook(square.NewVerifier("", squareURL), &fakeSquareService{}, newGuard(t, "square"), SquareOptions{SkipSignature: true}, nil)
	rec = postSquare(skipping, squarePayload, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSquareWebhookUnknownTypeAcknowledged(t *testing.T) {
	verifier := square.NewVerifier(squareKey, squareURL)
	handler := SquareWebhook(verifier, &fakeSquareService{}, newGuard(t, "square"), SquareOptions{}, nil)
	payload := []byte(`{"event_id":"sq_evt_2","type":"payment.created","data":{}}`)

	rec := postSquare(handler, payload, verifier.Sign(payload))
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeResult(t, rec)
	require.False(t, res.Handled)
	require.Equal(t, webhooks.ReasonUnsupported, res.Reason)
}

type fakeSimulator struct{ err error }

func (f fakeSimulator) Simulate(_ context.Context, req stripewebhook.SimulateRequest) (*stripewebhook.SimulateResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &stripewebhook.SimulateResponse{Message: req.EventType + "イベントが正常に処理されました", Result: webhooks.Handled()}, nil
}

func TestStripeWebhookTest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/test", bytes.NewReader([]byte(`{"type":"checkout.session.completed","email":"a@example.com"}`)))
	rec := httptest.NewRecorder()
	StripeWebhookTest(fakeSimulator{}, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "checkout.session.completedイベントが正常に処理されました")

	req = httptest.NewRequest(http.MethodPost, "/api/webhooks/test", bytes.NewReader([]byte(`{"type":"x","email":"a@example.com"}`)))
	rec = httptest.NewRecorder()
	StripeWebhookTest(fakeSimulator{err: pkgerrors.New(pkgerrors.CodeValidation, "未対応のイベントタイプです")}, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
