package llm

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
	"MarketPulse/internal/ports"
)

const defaultSystemPrompt = config.DefaultSystemPrompt

// OpenAIClient implements ports.LLMProvider against the OpenAI Responses API.
type OpenAIClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	effort       string
	verbosity    string
	httpClient   *http.Client
}

var _ ports.LLMProvider = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		effort:       cfg.ReasoningEffort,
		verbosity:    cfg.Verbosity,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type responsesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model     string             `json:"model"`
	Input     []responsesMessage `json:"input"`
	Reasoning *struct {
		Effort string `json:"effort"`
	} `json:"reasoning,omitempty"`
	Text *struct {
		Verbosity string `json:"verbosity"`
	} `json:"text,omitempty"`
}

type responsesReply struct {
	Model  string `json:"model"`
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Usage *struct {
		InputTokens        int `json:"input_tokens"`
		OutputTokens       int `json:"output_tokens"`
		InputTokensDetails struct {
			CachedTokens int `json:"cached_tokens"`
		} `json:"input_tokens_details"`
	} `json:"usage"`
}

// Complete sends the prompt as a user message behind the system prompt.
func (c *OpenAIClient) Complete(ctx context.Context, in ports.CompletionRequest) (ports.Completion, error) {
	if c == nil {
		return ports.Completion{}, fmt.Errorf("openai client is nil")
	}
	model := firstNonEmpty(in.Model, c.model)
	if c.apiKey == "" || c.endpoint == "" || model == "" {
		return ports.Completion{}, fmt.Errorf("openai client misconfigured")
	}

	payload := responsesRequest{
		Model: model,
		Input: []responsesMessage{
			{Role: "system", Content: safePrompt(c.systemPrompt)},
			{Role: "user", Content: in.Prompt},
		},
	}
	if effort := firstNonEmpty(in.ReasoningEffort, c.effort); effort != "" {
		payload.Reasoning = &struct {
			Effort string `json:"effort"`
		}{Effort: effort}
	}
	if verbosity := firstNonEmpty(in.Verbosity, c.verbosity); verbosity != "" {
		payload.Text = &struct {
			Verbosity string `json:"verbosity"`
		}{Verbosity: verbosity}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return ports.Completion{}, fmt.Errorf("marshal openai payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return ports.Completion{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.Completion{}, fmt.Errorf("send completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return ports.Completion{}, fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var reply responsesReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return ports.Completion{}, fmt.Errorf("decode openai reply: %w", err)
	}

	out := ports.Completion{Text: reply.text(), Model: firstNonEmpty(reply.Model, model)}
	if reply.Usage != nil {
		out.Usage = ports.Usage{
			InputTokens:       reply.Usage.InputTokens,
			CachedInputTokens: reply.Usage.InputTokensDetails.CachedTokens,
			OutputTokens:      reply.Usage.OutputTokens,
		}
	}
	return out, nil
}

// Close releases pooled connections.
func (c *OpenAIClient) Close() error {
	if c != nil && c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
	return nil
}

func (r responsesReply) text() string {
	var b strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				b.WriteString(part.Text)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultSystemPrompt
	}
	return prompt
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
