package enrichment

import (
	"sort"
	"unicode/utf8"

	"MarketPulse/internal/config"
	"MarketPulse/internal/ports"
)

const fallbackModel = "gpt-5-mini"

// Cost is the priced token usage of one provider call.
type Cost struct {
	Model             string  `json:"model"`
	InputTokens       int     `json:"input_tokens"`
	CachedInputTokens int     `json:"cached_input_tokens"`
	OutputTokens      int     `json:"output_tokens"`
	InputCost         float64 `json:"input_cost"`
	OutputCost        float64 `json:"output_cost"`
	TotalCost         float64 `json:"total_cost"`
}

// approxTokens is the four-characters-per-token estimate.
func approxTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// priceFor returns the price entry for model, falling back to the default
// model. The second result is the model whose price was used.
func (e *Engine) priceFor(model string) (config.ModelPrice, string, bool) {
	if p, ok := e.pricing[model]; ok {
		return p, model, true
	}
	if p, ok := e.pricing[e.model]; ok {
		return p, e.model, false
	}
	return config.DefaultPricing()[fallbackModel], fallbackModel, false
}

func (e *Engine) cost(model string, usage ports.Usage) Cost {
	price, priced, known := e.priceFor(model)
	if !known {
		e.logger.Warn("unknown model, using default pricing", "model", model, "pricing_model", priced)
	}

	cached := min(usage.CachedInputTokens, usage.InputTokens)
	uncached := usage.InputTokens - cached
	inputCost := float64(uncached)/1_000_000*price.Input + float64(cached)/1_000_000*price.CachedInput
	outputCost := float64(usage.OutputTokens) / 1_000_000 * price.Output

	return Cost{
		Model:             priced,
		InputTokens:       usage.InputTokens,
		CachedInputTokens: cached,
		OutputTokens:      usage.OutputTokens,
		InputCost:         inputCost,
		OutputCost:        outputCost,
		TotalCost:         inputCost + outputCost,
	}
}

// EstimateCost prices text as input and expectedOutputChars as output.
// An empty model means the configured default.
func (e *Engine) EstimateCost(text string, expectedOutputChars int, model string) Cost {
	if model == "" {
		model = e.model
	}
	return e.cost(model, ports.Usage{
		InputTokens:  approxTokens(text),
		OutputTokens: max(expectedOutputChars, 0) / 4,
	})
}

// Models lists the models with a known price, sorted.
func (e *Engine) Models() []string {
	out := make([]string, 0, len(e.pricing))
	for name := range e.pricing {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Pricing returns the price entry of a known model.
func (e *Engine) Pricing(model string) (config.ModelPrice, bool) {
	p, ok := e.pricing[model]
	return p, ok
}
