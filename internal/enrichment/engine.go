// Package enrichment turns article bodies into summaries and scored
// investment suggestions through an LLM provider with response caching.
package enrichment

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"strings"
	"time"

	"MarketPulse/internal/config"
	"MarketPulse/internal/domain"
	"MarketPulse/internal/metrics"
	"MarketPulse/internal/ports"
	"MarketPulse/pkg/logger"
)

// Engine owns prompt construction, caching and cost accounting.
type Engine struct {
	provider     ports.LLMProvider
	cache        ports.ResponseCache
	model        string
	effort       string
	verbosity    string
	systemPrompt string
	ttl          time.Duration
	pricing      map[string]config.ModelPrice
	logger       *slog.Logger
}

// NewEngine builds an engine. A nil provider means no credential is
// configured and every call yields placeholder content.
func NewEngine(provider ports.LLMProvider, cache ports.ResponseCache, cfg config.LLMConfig, ttl time.Duration, log *slog.Logger) *Engine {
	pricing := cfg.Pricing
	if len(pricing) == 0 {
		pricing = config.DefaultPricing()
	}
	model := cfg.Model
	if model == "" {
		model = fallbackModel
	}
	systemPrompt := strings.TrimSpace(cfg.SystemPrompt)
	if systemPrompt == "" {
		systemPrompt = config.DefaultSystemPrompt
	}
	return &Engine{
		provider:     provider,
		cache:        cache,
		model:        model,
		effort:       cfg.ReasoningEffort,
		verbosity:    cfg.Verbosity,
		systemPrompt: systemPrompt,
		ttl:          ttl,
		pricing:      maps.Clone(pricing),
		logger:       logger.OrDiscard(log).With("component", "enrichment"),
	}
}

// Available reports whether a provider is configured.
func (e *Engine) Available() bool {
	return e.provider != nil
}

// DefaultModel is the model used when no override is given.
func (e *Engine) DefaultModel() string {
	return e.model
}

// Summarize returns a 2-3 sentence summary of body. ok is false only when
// the provider answered with nothing.
func (e *Engine) Summarize(ctx context.Context, body string) (string, bool) {
	if cached, ok := e.cacheGet(ctx, body, KindSummary); ok {
		return cached, true
	}

	text, err := e.complete(ctx, summaryPrompt(body), KindSummary)
	if err != nil {
		e.logger.Warn("summary placeholder used", "err", err)
		return placeholderSummary, true
	}
	if text == "" {
		return "", false
	}

	e.cachePut(ctx, body, KindSummary, text)
	return text, true
}

// Suggest scores the short-term market impact of body. The summary is part
// of both the prompt and the cache key.
func (e *Engine) Suggest(ctx context.Context, body, summary string) (domain.Suggestion, bool) {
	payload := body + "_" + summary
	if cached, ok := e.cacheGet(ctx, payload, KindSuggestion); ok {
		var s domain.Suggestion
		if err := json.Unmarshal([]byte(cached), &s); err == nil {
			return s, true
		}
		e.logger.Warn("discarding malformed cached suggestion")
	}

	text, err := e.complete(ctx, suggestionPrompt(body, summary), KindSuggestion)
	if err != nil {
		e.logger.Warn("suggestion placeholder used", "err", err)
		return placeholderSuggestionValue(), true
	}
	if text == "" {
		return domain.Suggestion{}, false
	}

	suggestion, via := parseSuggestion(text)
	if via != "json" {
		e.logger.Info("suggestion parsed via fallback", "parser", via)
	}

	if encoded, err := json.Marshal(suggestion); err == nil {
		e.cachePut(ctx, payload, KindSuggestion, string(encoded))
	}
	return suggestion, true
}

func placeholderSuggestionValue() domain.Suggestion {
	score := placeholderConfidence
	return domain.Suggestion{
		KeyImpact:       placeholderImpact,
		Recommendation:  placeholderSuggestion,
		ConfidenceScore: &score,
	}
}

func (e *Engine) complete(ctx context.Context, prompt, kind string) (string, error) {
	if e.provider == nil {
		return "", domain.ErrProviderUnavailable
	}

	started := time.Now()
	resp, err := e.provider.Complete(ctx, ports.CompletionRequest{
		Prompt:          prompt,
		Model:           e.model,
		ReasoningEffort: e.effort,
		Verbosity:       e.verbosity,
	})
	if err != nil {
		metrics.LLMRequests.WithLabelValues(e.model, kind, "error").Inc()
		e.logger.Error("llm call failed", "kind", kind, "model", e.model, "err", err)
		return "", err
	}

	usage := e.usageOf(resp, prompt)

	// dated snapshots ("gpt-5-mini-2025-08-07") are billed as the requested model
	model := resp.Model
	if _, known := e.pricing[model]; !known {
		model = e.model
	}
	cost := e.cost(model, usage)
	metrics.RecordLLMCall(cost.Model, kind, "ok", usage.InputTokens, cost.CachedInputTokens, usage.OutputTokens, cost.TotalCost)

	e.logger.Info("llm cost",
		"kind", kind,
		"model", cost.Model,
		"input_tokens", cost.InputTokens,
		"cached_input_tokens", cost.CachedInputTokens,
		"output_tokens", cost.OutputTokens,
		"input_cost_usd", cost.InputCost,
		"output_cost_usd", cost.OutputCost,
		"total_cost_usd", cost.TotalCost,
		"elapsed", time.Since(started),
	)

	return strings.TrimSpace(resp.Text), nil
}

// usageOf returns the reported usage, or an approximation over the system
// and user prompts when the provider reported none.
func (e *Engine) usageOf(resp ports.Completion, prompt string) ports.Usage {
	usage := resp.Usage
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		usage.InputTokens = approxTokens(e.systemPrompt + "\n\n" + prompt)
		usage.OutputTokens = approxTokens(resp.Text)
	}
	return usage
}

func (e *Engine) cacheGet(ctx context.Context, payload, kind string) (string, bool) {
	if e.cache == nil {
		return "", false
	}
	val, ok := e.cache.Get(ctx, payload, kind)
	ok = ok && val != ""
	metrics.RecordCacheLookup(kind, ok)
	return val, ok
}

func (e *Engine) cachePut(ctx context.Context, payload, kind, value string) {
	if e.cache == nil {
		return
	}
	e.cache.Put(ctx, payload, kind, value, e.ttl)
}
