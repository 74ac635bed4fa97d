package parser

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"MarketPulse/internal/domain"
	"MarketPulse/internal/scanner"
)

const (
	techCrunchBaseURL  = "https://techcrunch.com"
	techCrunchSelector = "ul.wp-block-post-template li.wp-block-post a.loop-card__title-link"
)

var techCrunchExcluded = []string{"/video/", "/events/", "/podcast/", "/newsletters/", "/author/"}

// TechCrunchScraper reads the "latest" listing.
type TechCrunchScraper struct {
	name       string
	listingURL string
	linkPrefix string
	session    *Session
	extractor  extractor
	logger     *slog.Logger
}

var _ scanner.Scraper = (*TechCrunchScraper)(nil)

// NewTechCrunchScraper builds the scraper for https://techcrunch.com/latest/.
// Site options "base_url" and "listing_url" override the public endpoints.
func NewTechCrunchScraper(site scanner.Site, opts Options) *TechCrunchScraper {
	base := optionOr(site.Options, "base_url", techCrunchBaseURL)
	listing := optionOr(site.Options, "listing_url", strings.TrimSuffix(base, "/")+"/latest/")

	return &TechCrunchScraper{
		name:       site.Name,
		listingURL: listing,
		linkPrefix: strings.TrimSuffix(base, "/") + "/",
		session: NewSession(SessionOptions{
			BaseURL:   base,
			UserAgent: opts.UserAgent,
			Timeout:   opts.Timeout,
		}),
		extractor: newExtractor(domain.SourceTechCrunch, opts.RecencyWindow),
		logger:    opts.logger().With("scraper", site.Name),
	}
}

func (t *TechCrunchScraper) Name() string          { return t.name }
func (t *TechCrunchScraper) Source() domain.Source { return domain.SourceTechCrunch }

// DiscoverLinks returns article links from the listing page in page order.
func (t *TechCrunchScraper) DiscoverLinks(ctx context.Context) []string {
	doc, err := t.session.Document(ctx, t.listingURL)
	if err != nil {
		t.logger.Error("discover links failed", "url", t.listingURL, "err", err)
		return nil
	}
	return t.links(doc)
}

func (t *TechCrunchScraper) links(doc *goquery.Document) []string {
	var links []string
	seen := map[string]struct{}{}
	doc.Find(techCrunchSelector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || !strings.HasPrefix(href, t.linkPrefix) || containsAny(href, techCrunchExcluded) {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	})
	return links
}

// FetchArticle downloads and extracts one article.
func (t *TechCrunchScraper) FetchArticle(ctx context.Context, link string) *domain.ScrapeResult {
	res, err := t.extractor.fetch(ctx, t.session, link, nil)
	if err != nil {
		logFetchFailure(t.logger, link, err)
		return nil
	}
	return res
}

func containsAny(s string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
