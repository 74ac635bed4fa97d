package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"MarketPulse/internal/domain"
)

func TestNewArticleComputesFingerprint(t *testing.T) {
	t.Parallel()

	res := domain.ScrapeResult{
		Title:       "Chipmaker rallies",
		URL:         "https://TechCrunch.com/2025/10/06/chips/",
		Body:        "body",
		PublishedAt: time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC),
		Source:      domain.SourceTechCrunch,
	}

	article := domain.NewArticle(res)
	require.Equal(t, domain.Fingerprint("https://techcrunch.com/2025/10/06/chips"), article.Fingerprint)
	require.False(t, article.IsProcessed())
	require.Nil(t, article.ConfidenceScore)
}

func TestApplyEnrichment(t *testing.T) {
	t.Parallel()

	score := 0.82
	var article domain.Article
	article.ApplyEnrichment("short summary", true, domain.Suggestion{
		KeyImpact:       "Chip stocks up",
		Recommendation:  "Watch AMD",
		ConfidenceScore: &score,
	}, true)

	require.True(t, article.IsProcessed())
	require.Equal(t, "Key Impact: Chip stocks up\nInvestment Suggestion: Watch AMD", *article.Suggestion)
	require.InDelta(t, 0.82, *article.ConfidenceScore, 1e-9)
}

func TestApplyEnrichmentWithoutSuggestionLeavesScoreUnset(t *testing.T) {
	t.Parallel()

	var article domain.Article
	article.ApplyEnrichment("summary", true, domain.Suggestion{}, false)

	require.NotNil(t, article.Summary)
	require.Nil(t, article.Suggestion)
	require.Nil(t, article.ConfidenceScore)
	require.False(t, article.IsProcessed())
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc", domain.Truncate("abc", 5))
	require.Equal(t, "abcde...", domain.Truncate("abcdefgh", 5))
	require.Equal(t, "héll...", domain.Truncate("héllo wörld", 4))
}
