package mailprovider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electrorescue/account-service/internal/config"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestClient_Send_SimulationWhenUnconfigured(t *testing.T) {
	client := NewClient(config.EmailProvider{}, newNoopLogger())

	require.False(t, client.Configured())
	// Без ключей отправка симулируется и считается успешной.
	assert.NoError(t, client.Send(context.Background(), "user@example.com", "Subject", "Body", "123456"))
}

func TestClient_Send_Success(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1.0/email/send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(config.EmailProvider{
		EmailAPIURL:     srv.URL,
		EmailServiceID:  "service-1",
		EmailTemplateID: "template-1",
		EmailPublicKey:  "key-1",
	}, newNoopLogger())

	require.True(t, client.Configured())
	require.NoError(t, client.Send(context.Background(), "user@example.com", "Subject", "Body", "123456"))

	assert.Equal(t, "service-1", gotPayload["service_id"])
	params, ok := gotPayload["template_params"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user@example.com", params["to_email"])
	assert.Equal(t, "123456", params["otp_code"])
	assert.Equal(t, "Subject", params["subject"])
}

func TestClient_Send_ProviderRejectsIsHardError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(config.EmailProvider{
		EmailAPIURL:     srv.URL,
		EmailServiceID:  "service-1",
		EmailTemplateID: "template-1",
		EmailPublicKey:  "key-1",
	}, newNoopLogger())

	err := client.Send(context.Background(), "user@example.com", "Subject", "Body", "123456")

	// Настроенный, но отказавший провайдер не откатывается в симуляцию.
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSendFailed)
}

func TestClient_Send_Unreachable(t *testing.T) {
	client := NewClient(config.EmailProvider{
		EmailAPIURL:     "http://127.0.0.1:1",
		EmailServiceID:  "service-1",
		EmailTemplateID: "template-1",
		EmailPublicKey:  "key-1",
	}, newNoopLogger())

	err := client.Send(context.Background(), "user@example.com", "Subject", "Body", "123456")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSendFailed)
}
