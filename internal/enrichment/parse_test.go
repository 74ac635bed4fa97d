package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuggestion(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		raw    string
		parser string
		impact string
		rec    string
		score  *float64
	}{
		{
			name:   "plain json",
			raw:    `{"key_impact": "Rates up", "suggestion": "Reduce duration", "confidence_score": 0.95}`,
			parser: "json", impact: "Rates up", rec: "Reduce duration", score: ptr(0.95),
		},
		{
			name:   "fenced json with string score",
			raw:    "```json\n{\"key_impact\": \"Recall\", \"suggestion\": \"Watch TSLA\", \"confidence_score\": \"0.8\"}\n```",
			parser: "json", impact: "Recall", rec: "Watch TSLA", score: ptr(0.8),
		},
		{
			name:   "score clamped",
			raw:    `{"key_impact": "x", "suggestion": "y", "confidence_score": 1.7}`,
			parser: "json", impact: "x", rec: "y", score: ptr(1),
		},
		{
			name:   "non numeric score absent",
			raw:    `{"key_impact": "x", "suggestion": "y", "confidence_score": "high"}`,
			parser: "json", impact: "x", rec: "y",
		},
		{
			name:   "labelled lines",
			raw:    "Key Impact: Chip demand\nInvestment Suggestion: Buy the dip\nConfidence Score: 0.7",
			parser: "lines", impact: "Chip demand", rec: "Buy the dip", score: ptr(0.7),
		},
		{
			name:   "broken json lines",
			raw:    "{\n\"key_impact\": \"Oil spikes\",\n\"suggestion\": \"Energy ETFs\",\n\"confidence_score\": 0.66\n",
			parser: "lines", impact: "Oil spikes", rec: "Energy ETFs", score: ptr(0.66),
		},
		{
			name:   "raw fallback",
			raw:    "No idea.",
			parser: "raw", impact: "Analysis completed", rec: "No idea.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, via := parseSuggestion(tc.raw)
			assert.Equal(t, tc.parser, via)
			assert.Equal(t, tc.impact, s.KeyImpact)
			assert.Equal(t, tc.rec, s.Recommendation)
			if tc.score == nil {
				assert.Nil(t, s.ConfidenceScore)
				return
			}
			require.NotNil(t, s.ConfidenceScore)
			assert.InDelta(t, *tc.score, *s.ConfidenceScore, 1e-9)
		})
	}
}

func ptr(f float64) *float64 { return &f }
