package enrichment

import (
	"fmt"
	"strings"
)

const (
	// KindSummary and KindSuggestion name the prompt kinds used as cache namespaces.
	KindSummary    = "summary"
	KindSuggestion = "investment_suggestion"

	summaryBudget    = 2000
	suggestionBudget = 1500
)

const (
	placeholderSummary    = "This article discusses recent developments in the technology sector that may have implications for investors and market participants."
	placeholderImpact     = "Technology sector developments may influence market sentiment"
	placeholderSuggestion = "Monitor related stocks and consider sector-specific ETFs for potential opportunities"
	placeholderConfidence = 0.5
)

const suggestionTemplate = `You are a financial analyst. Evaluate the short-term (1–7 days) impact of this news on publicly traded stocks or market indices only. Ignore startups, private firms, or long-term ecosystem effects.

Scoring rules:
- 0.0–0.1: Absolutely no short-term market impact
- 0.2: Minimal/negligible impact
- 0.3–0.4: Very minor impact, not worth investment action
- 0.5: Neutral / uncertain impact
- 0.6–0.8: Clear impact on a sector or public company
- 0.9–1.0: Strong, highly certain impact on overall market or major stocks

Examples:
- "Fed unexpectedly raises interest rates" → 0.95
- "Apple launches new color iPhone case" → 0.15
- "Tesla recalls 2M vehicles due to safety issue" → 0.8
- "Lebron James's VC firm invests in a private AI food startup" → 0.0

News Summary: %s
News Content: %s

Respond ONLY in valid JSON:
{
  "key_impact": "[brief impact]",
  "suggestion": "[investment recommendation]",
  "confidence_score": <float between 0 and 1>
}
`

func summaryPrompt(body string) string {
	return fmt.Sprintf(`Please provide a concise summary (2-3 sentences) of the following news article content.
Focus on the key facts and main points that would be relevant for investment decisions.

Content: %s
`, truncateWords(body, summaryBudget))
}

func suggestionPrompt(body, summary string) string {
	return fmt.Sprintf(suggestionTemplate, summary, truncateWords(body, suggestionBudget))
}

// truncateWords cuts content to limit runes. The cut moves back to the last
// space only when that keeps more than 80% of the budget. "..." is appended
// whenever content was cut.
func truncateWords(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndex(cut, " "); idx >= 0 && float64(len([]rune(cut[:idx]))) > float64(limit)*0.8 {
		return cut[:idx] + "..."
	}
	return cut + "..."
}
