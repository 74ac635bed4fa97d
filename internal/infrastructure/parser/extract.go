package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"MarketPulse/internal/domain"
)

// errStale marks an article published before the recency window.
var errStale = errors.New("article outside recency window")

// extractor turns a downloaded page into a ScrapeResult.
type extractor struct {
	source domain.Source
	window time.Duration
	now    func() time.Time
}

func newExtractor(source domain.Source, window time.Duration) extractor {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return extractor{source: source, window: window, now: time.Now}
}

// fetch downloads link through the session and extracts it.
func (e extractor) fetch(ctx context.Context, session *Session, link string, extra http.Header) (*domain.ScrapeResult, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	resp, err := session.Get(ctx, link, extra)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", link, err)
	}
	return e.build(link, article)
}

func (e extractor) build(link string, article readability.Article) (*domain.ScrapeResult, error) {
	title := strings.TrimSpace(article.Title)
	body := strings.TrimSpace(article.TextContent)
	if title == "" || body == "" {
		return nil, fmt.Errorf("incomplete extraction for %s", link)
	}

	now := e.now().UTC()
	published := now
	if article.PublishedTime != nil && !article.PublishedTime.IsZero() {
		published = article.PublishedTime.UTC()
	}
	if published.Before(now.Add(-e.window)) {
		return nil, fmt.Errorf("%w: %s published %s", errStale, link, published.Format(time.RFC3339))
	}

	return &domain.ScrapeResult{
		Title:       title,
		URL:         link,
		Body:        body,
		PublishedAt: published,
		Source:      e.source,
	}, nil
}
