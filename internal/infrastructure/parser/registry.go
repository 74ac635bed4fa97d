package parser

import (
	"errors"
	"log/slog"
	"time"

	"MarketPulse/internal/scanner"
	"MarketPulse/pkg/logger"
)

const (
	KindTechCrunch = "techcrunch"
	KindReuters    = "reuters"
)

// Options are shared by every scraper built from the registry.
type Options struct {
	UserAgent     string
	Timeout       time.Duration
	RecencyWindow time.Duration
	Logger        *slog.Logger
}

func (o Options) logger() *slog.Logger {
	return logger.OrDiscard(o.Logger).With("component", "scraper")
}

// Register adds the built-in scraper kinds to reg.
func Register(reg *scanner.Registry, opts Options) {
	reg.Register(KindTechCrunch, func(site scanner.Site) (scanner.Scraper, error) {
		return NewTechCrunchScraper(site, opts), nil
	})
	reg.Register(KindReuters, func(site scanner.Site) (scanner.Scraper, error) {
		s, err := NewReutersScraper(site, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

func optionOr(options map[string]string, key, fallback string) string {
	if v, ok := options[key]; ok && v != "" {
		return v
	}
	return fallback
}

// logFetchFailure keeps stale articles at info level; they are expected.
func logFetchFailure(log *slog.Logger, link string, err error) {
	if errors.Is(err, errStale) {
		log.Info("article skipped", "url", link, "reason", err)
		return
	}
	log.Warn("article fetch failed", "url", link, "err", err)
}
