package scanner

import (
	"context"
	"fmt"
	"sort"

	"MarketPulse/internal/domain"
)

// Site describes one configured source, resolved to a scraper by kind.
type Site struct {
	Name    string
	Kind    string
	Options map[string]string
}

// Scraper is the per-site capability: discover article links, then fetch
// and extract one article at a time.
type Scraper interface {
	Name() string
	Source() domain.Source
	// DiscoverLinks returns de-duplicated links in reverse-chronological order.
	// It never fails; errors are logged and yield an empty slice.
	DiscoverLinks(ctx context.Context) []string
	// FetchArticle returns nil when extraction is incomplete, the article is
	// older than the recency window, or the download fails.
	FetchArticle(ctx context.Context, link string) *domain.ScrapeResult
}

// Factory builds a scraper for a configured site.
type Factory func(site Site) (Scraper, error)

// Registry keeps a mapping from scraper kinds to their factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds or replaces a factory.
func (r *Registry) Register(kind string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[kind] = factory
}

// Build resolves the site's kind and constructs its scraper.
func (r *Registry) Build(site Site) (Scraper, error) {
	factory, ok := r.factories[site.Kind]
	if !ok {
		return nil, fmt.Errorf("scraper %s is not registered", site.Kind)
	}
	scraper, err := factory(site)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}
	return scraper, nil
}

// Kinds lists registered scraper kinds.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
