package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Daskott/medibox/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newGateway(t *testing.T, status string, received *smsAPIRequest, calls *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Nil(t, json.NewDecoder(r.Body).Decode(received))

		json.NewEncoder(rw).Encode(map[string]string{"status": status, "message": "Insufficient credit"})
	}))
}

func testSMSConfig(url string) shared.SMSConfig {
	return shared.SMSConfig{
		Provider: shared.SMSAPI_PROVIDER,
		URL:      url,
		Token:    "secret-token",
		SenderID: shared.DEFAULT_SMS_SENDER_ID,
	}
}

func TestSMSAPISend(t *testing.T) {
	var calls int32
	received := smsAPIRequest{}
	gateway := newGateway(t, "success", &received, &calls)
	defer gateway.Close()

	sender := NewSMSAPISender(testSMSConfig(gateway.URL), gateway.Client(), zap.NewNop().Sugar())
	err := sender.Send(context.Background(), "+94770000000", "Medicine Taken ✓", "The patient has taken their medication on time.")
	require.Nil(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, smsAPIRequest{
		Recipient: "+94770000000",
		SenderID:  "MediBox",
		Type:      "plain",
		Message:   "Medicine Taken ✓: The patient has taken their medication on time.",
	}, received)
}

func TestSMSAPIGatewayFailure(t *testing.T) {
	var calls int32
	gateway := newGateway(t, "error", &smsAPIRequest{}, &calls)
	defer gateway.Close()

	core, logs := observer.New(zap.InfoLevel)
	sender := NewSMSAPISender(testSMSConfig(gateway.URL), gateway.Client(), zap.New(core).Sugar())

	err := sender.Send(context.Background(), "+94770000000", "Title", "Body")
	assert.ErrorIs(t, err, ErrGatewayRejected)
	assert.Contains(t, err.Error(), "Insufficient credit")
	assert.Equal(t, 1, logs.FilterMessageSnippet("SMS failed").Len())
}

func TestSMSAPIUnconfigured(t *testing.T) {
	for _, token := range []string{"", "  ", shared.SMS_TOKEN_PLACEHOLDER} {
		t.Run("token "+token, func(t *testing.T) {
			var calls int32
			gateway := newGateway(t, "success", &smsAPIRequest{}, &calls)
			defer gateway.Close()

			config := testSMSConfig(gateway.URL)
			config.Token = token

			core, logs := observer.New(zap.InfoLevel)
			sender := NewSMSAPISender(config, gateway.Client(), zap.New(core).Sugar())

			err := sender.Send(context.Background(), "+94770000000", "Title", "Body")
			assert.ErrorIs(t, err, ErrNotConfigured)
			assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "nothing should reach the gateway")
			assert.Equal(t, 1, logs.FilterMessageSnippet("skipping SMS").Len())
		})
	}
}

func TestSMSAPICancelledContext(t *testing.T) {
	var calls int32
	gateway := newGateway(t, "success", &smsAPIRequest{}, &calls)
	defer gateway.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := NewSMSAPISender(testSMSConfig(gateway.URL), gateway.Client(), zap.NewNop().Sugar())
	err := sender.Send(ctx, "+94770000000", "Title", "Body")
	assert.ErrorIs(t, err, context.Canceled)
}
