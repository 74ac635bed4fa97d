package enrichment

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"MarketPulse/internal/domain"
)

type parseAttempt struct {
	name  string
	parse func(raw string) (domain.Suggestion, bool)
}

// suggestionParsers run in order; the last one always succeeds.
var suggestionParsers = []parseAttempt{
	{name: "json", parse: parseJSON},
	{name: "lines", parse: parseLines},
	{name: "raw", parse: parseRaw},
}

func parseSuggestion(raw string) (domain.Suggestion, string) {
	for _, attempt := range suggestionParsers {
		if s, ok := attempt.parse(raw); ok {
			return s, attempt.name
		}
	}
	return domain.Suggestion{}, ""
}

func parseJSON(raw string) (domain.Suggestion, bool) {
	text := stripCodeFence(raw)
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return domain.Suggestion{}, false
	}
	return domain.Suggestion{
		KeyImpact:       stringField(fields["key_impact"]),
		Recommendation:  stringField(fields["suggestion"]),
		ConfidenceScore: coerceScore(fields["confidence_score"]),
	}, true
}

func parseLines(raw string) (domain.Suggestion, bool) {
	var s domain.Suggestion
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "*-# ")
		switch {
		case hasAnyPrefix(line, `"key_impact"`, "Key Impact"):
			s.KeyImpact = lineValue(line)
		case hasAnyPrefix(line, `"suggestion"`, "Investment Suggestion"):
			s.Recommendation = lineValue(line)
		case hasAnyPrefix(line, `"confidence_score"`, "Confidence Score"):
			s.ConfidenceScore = coerceScore(lineValue(line))
		}
	}
	if s.KeyImpact == "" && s.Recommendation == "" {
		return domain.Suggestion{}, false
	}
	return s, true
}

func parseRaw(raw string) (domain.Suggestion, bool) {
	return domain.Suggestion{KeyImpact: "Analysis completed", Recommendation: raw}, true
}

func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func lineValue(line string) string {
	_, value, ok := strings.Cut(line, ":")
	if !ok {
		return ""
	}
	value = strings.TrimSpace(value)
	value = strings.TrimSuffix(value, ",")
	return strings.Trim(strings.TrimSpace(value), `"*`)
}

func stringField(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		encoded, _ := json.Marshal(val)
		return string(encoded)
	}
}

// coerceScore accepts numbers and numeric strings, clamped to [0,1].
func coerceScore(v any) *float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	f = math.Max(0, math.Min(1, f))
	return &f
}
