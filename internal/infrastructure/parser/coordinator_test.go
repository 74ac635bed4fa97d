package parser

import (
	"context"
	"sync"
	"testing"
	"time"

	"MarketPulse/internal/config"
	"MarketPulse/internal/domain"
	"MarketPulse/internal/scanner"
)

type scriptedScraper struct {
	name    string
	links   []string
	results map[string]*domain.ScrapeResult
	panics  bool

	mu      sync.Mutex
	fetched []string
}

func (s *scriptedScraper) Name() string          { return s.name }
func (s *scriptedScraper) Source() domain.Source { return domain.SourceTechCrunch }

func (s *scriptedScraper) DiscoverLinks(context.Context) []string {
	if s.panics {
		panic("listing markup changed")
	}
	return s.links
}

func (s *scriptedScraper) FetchArticle(_ context.Context, link string) *domain.ScrapeResult {
	s.mu.Lock()
	s.fetched = append(s.fetched, link)
	s.mu.Unlock()
	return s.results[link]
}

func result(title string) *domain.ScrapeResult {
	return &domain.ScrapeResult{Title: title, URL: "https://example.com/" + title, Body: "body", Source: domain.SourceTechCrunch}
}

func TestCoordinatorStopsAtFirstStaleArticle(t *testing.T) {
	t.Parallel()

	s := &scriptedScraper{
		name:  "tc",
		links: []string{"l1", "l2", "l3", "l4", "l5"},
		results: map[string]*domain.ScrapeResult{
			"l1": result("one"),
			"l2": result("two"),
			"l3": result("three"),
			// l4 is stale, l5 would be fresh but must never be fetched
			"l5": result("five"),
		},
	}

	c := NewCoordinator([]scanner.Scraper{s}, 0, nil)
	got := c.ScrapeAll(context.Background())

	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if len(s.fetched) != 4 {
		t.Fatalf("expected 4 fetches, got %v", s.fetched)
	}
	for _, link := range s.fetched {
		if link == "l5" {
			t.Fatalf("link after the stale one was fetched")
		}
	}
}

func TestCoordinatorIsolatesFailingSource(t *testing.T) {
	t.Parallel()

	broken := &scriptedScraper{name: "broken", panics: true}
	healthy := &scriptedScraper{
		name:    "healthy",
		links:   []string{"a"},
		results: map[string]*domain.ScrapeResult{"a": result("a")},
	}

	c := NewCoordinator([]scanner.Scraper{broken, healthy}, 0, nil)
	got := c.ScrapeAll(context.Background())

	if len(got) != 1 || got[0].Title != "a" {
		t.Fatalf("expected only the healthy source's article, got %+v", got)
	}
}

func TestCoordinatorRateLimitsFetches(t *testing.T) {
	t.Parallel()

	s := &scriptedScraper{
		name:  "tc",
		links: []string{"a", "b", "c"},
		results: map[string]*domain.ScrapeResult{
			"a": result("a"), "b": result("b"), "c": result("c"),
		},
	}

	delay := 40 * time.Millisecond
	c := NewCoordinator([]scanner.Scraper{s}, delay, nil)

	started := time.Now()
	got := c.ScrapeAll(context.Background())
	elapsed := time.Since(started)

	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if elapsed < 2*delay-5*time.Millisecond {
		t.Fatalf("expected at least two delays between three fetches, took %s", elapsed)
	}
}

func TestNewCoordinatorFromSites(t *testing.T) {
	t.Parallel()

	reg := scanner.NewRegistry()
	Register(reg, Options{})

	c, err := NewCoordinatorFromSites(reg, []config.SiteConfig{
		{Name: "tc", Scanner: KindTechCrunch},
		{Name: "reuters-us", Scanner: KindReuters, Options: map[string]string{"section": "us"}},
	}, time.Second, nil)
	if err != nil {
		t.Fatalf("build coordinator: %v", err)
	}
	if len(c.scrapers) != 2 {
		t.Fatalf("expected 2 scrapers, got %d", len(c.scrapers))
	}

	if _, err := NewCoordinatorFromSites(reg, []config.SiteConfig{{Name: "x", Scanner: "rss"}}, 0, nil); err == nil {
		t.Fatalf("expected error for unknown scanner kind")
	}
}
