package domain

import (
	"fmt"
	"strings"
	"time"
)

// Source enumerates the sites articles are harvested from.
type Source string

const (
	SourceTechCrunch Source = "TechCrunch"
	SourceReuters    Source = "Reuters"
)

// Valid reports whether the source is one of the known origins.
func (s Source) Valid() bool {
	switch s {
	case SourceTechCrunch, SourceReuters:
		return true
	default:
		return false
	}
}

// ScrapeResult is the transient unit produced by a source scraper.
type ScrapeResult struct {
	Title       string
	URL         string
	Body        string
	PublishedAt time.Time
	Source      Source
}

// Article is the persisted entity. Summary, Suggestion and ConfidenceScore
// are written only by the enrichment pass.
type Article struct {
	ID              int64
	Title           string
	URL             string
	Fingerprint     string
	Body            string
	PublishedAt     time.Time
	Summary         *string
	Suggestion      *string
	ConfidenceScore *float64
	Source          Source
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewArticle builds an unenriched article from a scrape result.
func NewArticle(res ScrapeResult) Article {
	return Article{
		Title:       res.Title,
		URL:         res.URL,
		Fingerprint: Fingerprint(res.URL),
		Body:        res.Body,
		PublishedAt: res.PublishedAt,
		Source:      res.Source,
	}
}

// IsProcessed is true once both summary and suggestion are present.
func (a Article) IsProcessed() bool {
	return a.Summary != nil && *a.Summary != "" &&
		a.Suggestion != nil && *a.Suggestion != ""
}

// ApplyEnrichment stores the enrichment output. The confidence score is only
// ever set alongside the suggestion.
func (a *Article) ApplyEnrichment(summary string, hasSummary bool, suggestion Suggestion, hasSuggestion bool) {
	if hasSummary {
		a.Summary = &summary
	}
	if hasSuggestion {
		text := suggestion.Text()
		a.Suggestion = &text
		a.ConfidenceScore = suggestion.ConfidenceScore
	}
}

// ShortTitle trims the title for log lines and mail subjects.
func (a Article) ShortTitle(limit int) string {
	return Truncate(a.Title, limit)
}

// Suggestion is the structured investment-impact answer of the LLM.
type Suggestion struct {
	KeyImpact       string   `json:"key_impact"`
	Recommendation  string   `json:"suggestion"`
	ConfidenceScore *float64 `json:"confidence_score"`
}

// Text renders the two-line composite persisted on the article.
func (s Suggestion) Text() string {
	return fmt.Sprintf("Key Impact: %s\nInvestment Suggestion: %s", s.KeyImpact, s.Recommendation)
}

// Truncate cuts s to limit runes, appending "..." when something was cut.
func Truncate(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if limit <= 0 || len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}
