package sendgrid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/config"
	"MarketPulse/internal/domain"
)

func TestClientSend(t *testing.T) {
	t.Parallel()

	var got mailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer SG.key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(config.SendGridConfig{APIKey: "SG.key", Endpoint: server.URL})
	status, err := client.Send(context.Background(), domain.MailMessage{
		From:      "alerts@example.com",
		To:        []string{"a@example.com", "b@example.com"},
		Subject:   "subject",
		PlainBody: "plain",
		HTMLBody:  "<p>html</p>",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, status)

	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, []address{{Email: "a@example.com"}, {Email: "b@example.com"}}, got.Personalizations[0].To)
	assert.Equal(t, "alerts@example.com", got.From.Email)
	assert.Equal(t, []content{{Type: "text/plain", Value: "plain"}, {Type: "text/html", Value: "<p>html</p>"}}, got.Content)
}

func TestClientSendErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"errors":[{"message":"forbidden"}]}`, http.StatusForbidden)
	}))
	defer server.Close()

	msg := domain.MailMessage{From: "f@example.com", To: []string{"t@example.com"}, PlainBody: "x"}

	status, err := NewClient(config.SendGridConfig{APIKey: "SG.key", Endpoint: server.URL}).Send(context.Background(), msg)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, status)

	_, err = NewClient(config.SendGridConfig{Endpoint: server.URL}).Send(context.Background(), msg)
	require.True(t, errors.Is(err, domain.ErrTransportUnavailable))
}
