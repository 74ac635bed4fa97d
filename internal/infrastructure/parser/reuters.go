package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"MarketPulse/internal/domain"
	"MarketPulse/internal/scanner"
)

const reutersBaseURL = "https://www.reuters.com"

// ReutersScraper reads one markets section ("us", "stocks", ...). The site
// rejects cold requests, so discovery first visits the landing page.
type ReutersScraper struct {
	name       string
	section    string
	listingURL string
	session    *Session
	extractor  extractor
	logger     *slog.Logger
}

var _ scanner.Scraper = (*ReutersScraper)(nil)

// NewReutersScraper requires the "section" site option.
func NewReutersScraper(site scanner.Site, opts Options) (*ReutersScraper, error) {
	section := strings.Trim(site.Options["section"], "/ ")
	if section == "" {
		return nil, fmt.Errorf("reuters scraper needs a section option")
	}
	base := strings.TrimSuffix(optionOr(site.Options, "base_url", reutersBaseURL), "/")

	return &ReutersScraper{
		name:       site.Name,
		section:    section,
		listingURL: fmt.Sprintf("%s/markets/%s/", base, section),
		session: NewSession(SessionOptions{
			BaseURL:        base,
			UserAgent:      opts.UserAgent,
			Timeout:        opts.Timeout,
			BrowserHeaders: true,
		}),
		extractor: newExtractor(domain.SourceReuters, opts.RecencyWindow),
		logger:    opts.logger().With("scraper", site.Name, "section", section),
	}, nil
}

func (r *ReutersScraper) Name() string          { return r.name }
func (r *ReutersScraper) Source() domain.Source { return domain.SourceReuters }

// DiscoverLinks bootstraps the session, then collects section headlines.
func (r *ReutersScraper) DiscoverLinks(ctx context.Context) []string {
	if err := r.session.Bootstrap(ctx); err != nil {
		r.logger.Warn("session bootstrap failed", "err", err)
	}

	doc, err := r.session.Document(ctx, r.listingURL)
	if err != nil {
		r.logger.Error("discover links failed", "url", r.listingURL, "err", err)
		return nil
	}
	return r.links(doc)
}

func (r *ReutersScraper) links(doc *goquery.Document) []string {
	base, err := url.Parse(r.session.BaseURL())
	if err != nil {
		r.logger.Error("invalid base url", "err", err)
		return nil
	}

	var links []string
	seen := map[string]struct{}{}
	doc.Find(`a[data-testid="Heading"][href]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		full := base.ResolveReference(ref).String()
		if _, dup := seen[full]; dup {
			return
		}
		seen[full] = struct{}{}
		links = append(links, full)
	})
	return links
}

// FetchArticle downloads an article as a same-origin navigation.
func (r *ReutersScraper) FetchArticle(ctx context.Context, link string) *domain.ScrapeResult {
	extra := http.Header{}
	extra.Set("Referer", r.session.BaseURL())
	extra.Set("Sec-Fetch-Site", "same-origin")

	res, err := r.extractor.fetch(ctx, r.session, link, extra)
	if err != nil {
		logFetchFailure(r.logger, link, err)
		return nil
	}
	return res
}
