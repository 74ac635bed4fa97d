package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"MarketPulse/internal/config"
	"MarketPulse/internal/domain"
	"MarketPulse/internal/metrics"
	"MarketPulse/internal/ports"
	"MarketPulse/internal/scanner"
	"MarketPulse/pkg/logger"
)

// Coordinator implements ArticleSource over the configured scrapers.
type Coordinator struct {
	scrapers []scanner.Scraper
	delay    time.Duration
	logger   *slog.Logger
}

var _ ports.ArticleSource = (*Coordinator)(nil)

// NewCoordinator runs scrapers in order, waiting delay between article fetches.
func NewCoordinator(scrapers []scanner.Scraper, delay time.Duration, log *slog.Logger) *Coordinator {
	return &Coordinator{
		scrapers: scrapers,
		delay:    delay,
		logger:   logger.OrDiscard(log).With("component", "coordinator"),
	}
}

// NewCoordinatorFromSites resolves every configured site through the registry.
func NewCoordinatorFromSites(reg *scanner.Registry, sites []config.SiteConfig, delay time.Duration, log *slog.Logger) (*Coordinator, error) {
	if reg == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	scrapers := make([]scanner.Scraper, 0, len(sites))
	for _, site := range sites {
		s, err := reg.Build(scanner.Site{Name: site.Name, Kind: site.Scanner, Options: site.Options})
		if err != nil {
			return nil, err
		}
		scrapers = append(scrapers, s)
	}
	return NewCoordinator(scrapers, delay, log), nil
}

// ScrapeAll visits each source in turn. Links are reverse-chronological, so
// the first link that yields nothing ends that source's run.
func (c *Coordinator) ScrapeAll(ctx context.Context) []domain.ScrapeResult {
	c.logger.Info("scrape started", "sources", len(c.scrapers))

	var aggregated []domain.ScrapeResult
	for i, s := range c.scrapers {
		if ctx.Err() != nil {
			break
		}
		results := c.scrapeSource(ctx, s)
		metrics.ArticlesScraped.WithLabelValues(string(s.Source())).Add(float64(len(results)))
		c.logger.Info("source finished", "index", i+1, "source", s.Name(), "articles", len(results))
		aggregated = append(aggregated, results...)
	}

	c.logger.Info("scrape finished", "total_articles", len(aggregated))
	return aggregated
}

func (c *Coordinator) scrapeSource(ctx context.Context, s scanner.Scraper) (results []domain.ScrapeResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("scraper panicked", "source", s.Name(), "panic", r)
			results = nil
		}
	}()

	links := s.DiscoverLinks(ctx)
	c.logger.Info("links discovered", "source", s.Name(), "count", len(links))

	limiter := rate.NewLimiter(rate.Inf, 1)
	if c.delay > 0 {
		limiter = rate.NewLimiter(rate.Every(c.delay), 1)
	}

	for i, link := range links {
		if err := limiter.Wait(ctx); err != nil {
			c.logger.Warn("scrape interrupted", "source", s.Name(), "err", err)
			return results
		}

		res := s.FetchArticle(ctx, link)
		if res == nil {
			c.logger.Info("stopping source at stale or missing article",
				"source", s.Name(), "position", i+1, "of", len(links))
			return results
		}

		c.logger.Debug("article scraped", "source", s.Name(), "position", i+1, "title", domain.Truncate(res.Title, 50))
		results = append(results, *res)
	}
	return results
}
