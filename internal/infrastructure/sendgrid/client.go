package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"MarketPulse/internal/config"
	"MarketPulse/internal/domain"
	"MarketPulse/internal/ports"
)

const defaultEndpoint = "https://api.sendgrid.com/v3/mail/send"

// Client sends mail through the SendGrid v3 mail/send API.
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

var _ ports.MailTransport = (*Client)(nil)

// NewClient registers the API key and endpoint.
func NewClient(cfg config.SendGridConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type address struct {
	Email string `json:"email"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type personalization struct {
	To []address `json:"to"`
}

type mailRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

// Send posts the message and returns the HTTP status code SendGrid answered with.
func (c *Client) Send(ctx context.Context, msg domain.MailMessage) (int, error) {
	if c.apiKey == "" || c.client == nil {
		return 0, fmt.Errorf("sendgrid client misconfigured: %w", domain.ErrTransportUnavailable)
	}
	if len(msg.To) == 0 || msg.From == "" {
		return 0, fmt.Errorf("sendgrid: message needs sender and recipients")
	}

	body, err := json.Marshal(buildRequest(msg))
	if err != nil {
		return 0, fmt.Errorf("marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, fmt.Errorf("sendgrid error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	return resp.StatusCode, nil
}

func buildRequest(msg domain.MailMessage) mailRequest {
	to := make([]address, 0, len(msg.To))
	for _, rcpt := range msg.To {
		to = append(to, address{Email: rcpt})
	}

	parts := []content{{Type: "text/plain", Value: msg.PlainBody}}
	if msg.HTMLBody != "" {
		parts = append(parts, content{Type: "text/html", Value: msg.HTMLBody})
	}

	return mailRequest{
		Personalizations: []personalization{{To: to}},
		From:             address{Email: msg.From},
		Subject:          msg.Subject,
		Content:          parts,
	}
}
