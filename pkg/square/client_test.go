package square

import (
	"errors"
	"net/http"
	"testing"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
)

func TestRedact(t *testing.T) {
	require.Equal(t, "[REDACTED]", redact("customer_email", "a@example.com"))
	require.Equal(t, "ok", redact("status", "ok"))
}

func TestCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{http.StatusForbidden, pkgerrors.CodeForbidden},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusTooManyRequests, pkgerrors.CodeRateLimit},
		{http.StatusBadRequest, pkgerrors.CodeValidation},
		{http.StatusUnprocessableEntity, pkgerrors.CodeValidation},
		{http.StatusInternalServerError, pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		require.Equal(t, tt.code, codeForStatus(tt.status), "status %d", tt.status)
	}
}

func TestToDomainError(t *testing.T) {
	table := []struct {
		name     string
		status   int
		payload  string
		wantCode pkgerrors.Code
	}{
		{"authentication error", http.StatusBadRequest, `{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED"}]}`, pkgerrors.CodeUnauthorized},
		{"idempotency key reused", http.StatusBadRequest, `{"errors":[{"category":"API_ERROR","code":"IDEMPOTENCY_KEY_REUSED"}]}`, pkgerrors.CodeConflict},
		{"missing customer", http.StatusNotFound, `{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"NOT_FOUND"}]}`, pkgerrors.CodeNotFound},
	}
	for _, tt := range table {
		mapped := toDomainError(sqcore.NewAPIError(tt.status, errors.New(tt.payload)), "operation")
		typed := pkgerrors.As(mapped)
		require.NotNil(t, typed, tt.name)
		require.Equal(t, tt.wantCode, typed.Code(), tt.name)
	}

	typed := pkgerrors.As(toDomainError(errors.New("dial tcp: timeout"), "operation"))
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestSquareErrors(t *testing.T) {
	payload := `{"errors":[{"category":"API_ERROR","code":"BAD_REQUEST","detail":"oops"}]}`
	got := squareErrors(sqcore.NewAPIError(http.StatusBadRequest, errors.New(payload)))
	require.Len(t, got, 1)
	require.Equal(t, sq.ErrorCodeBadRequest, got[0].GetCode())

	require.Nil(t, squareErrors(sqcore.NewAPIError(http.StatusBadRequest, errors.New("not json"))))
}

func TestNormalizeEnv(t *testing.T) {
	env, err := normalizeEnv("")
	require.NoError(t, err)
	require.Equal(t, "sandbox", env)

	env, err = normalizeEnv(" Production ")
	require.NoError(t, err)
	require.Equal(t, "production", env)

	_, err = normalizeEnv("staging")
	require.Error(t, err)
}

func TestVerifier(t *testing.T) {
	v := NewVerifier("sig-key", "https://example.com/api/square/webhook")
	body := []byte(`{"type":"subscription.updated"}`)

	require.NoError(t, v.Verify(body, v.Sign(body)))
	require.ErrorIs(t, v.Verify(body, ""), ErrInvalidSignature)
	require.ErrorIs(t, v.Verify([]byte(`{"type":"other"}`), v.Sign(body)), ErrInvalidSignature)

	other := NewVerifier("sig-key", "https://elsewhere.example.com/hook")
	require.ErrorIs(t, other.Verify(body, v.Sign(body)), ErrInvalidSignature)

	require.ErrorIs(t, NewVerifier("", "").Verify(body, "x"), ErrSignatureKeyRequired)
}
