package stripe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/kinfortune-backend/pkg/config"
)

func TestNewClientValidatesKeys(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{}, nil)
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient(ctx, config.StripeConfig{SecretKey: "sk_live_123", Env: "test"}, nil)
	require.Error(t, err)

	_, err = NewClient(ctx, config.StripeConfig{SecretKey: "sk_test_123", Env: "staging"}, nil)
	require.Error(t, err)

	c, err := NewClient(ctx, config.StripeConfig{SecretKey: "sk_test_123"}, nil)
	require.NoError(t, err)
	require.Equal(t, "test", c.Environment())
	require.False(t, c.HasSigningSecret())
}

func TestConstructEvent(t *testing.T) {
	c, err := NewClient(context.Background(), config.StripeConfig{SecretKey: "sk_test_123", WebhookSecret: "whsec_test"}, nil)
	require.NoError(t, err)

	payload := []byte(`{"id":"evt_1","object":"event","type":"invoice.payment_succeeded","created":1700000000,"data":{"object":{"object":"invoice","customer":"cus_1"}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	event, err := c.ConstructEvent(payload, signed.Header)
	require.NoError(t, err)
	require.Equal(t, "evt_1", event.ID)

	_, err = c.ConstructEvent(payload, "t=1,v1=bogus")
	require.Error(t, err)

	var unsigned *Client
	_, err = unsigned.ConstructEvent(payload, signed.Header)
	require.ErrorIs(t, err, ErrSecretRequired)
}
