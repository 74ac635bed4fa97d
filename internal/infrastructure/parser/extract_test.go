package parser

import (
	"errors"
	"testing"
	"time"

	readability "github.com/go-shiori/go-readability"

	"MarketPulse/internal/domain"
)

func TestExtractorBuild(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)
	e := newExtractor(domain.SourceReuters, 24*time.Hour)
	e.now = func() time.Time { return now }

	recent := now.Add(-23 * time.Hour)
	old := now.Add(-25 * time.Hour)

	res, err := e.build("https://example.com/a", readability.Article{Title: " Title ", TextContent: " Body ", PublishedTime: &recent})
	if err != nil {
		t.Fatalf("build returned error: %v", err)
	}
	if res.Title != "Title" || res.Body != "Body" || !res.PublishedAt.Equal(recent) {
		t.Fatalf("unexpected result: %+v", res)
	}

	if _, err := e.build("https://example.com/b", readability.Article{Title: "T", TextContent: "B", PublishedTime: &old}); !errors.Is(err, errStale) {
		t.Fatalf("expected stale error, got %v", err)
	}

	if _, err := e.build("https://example.com/c", readability.Article{Title: "", TextContent: "B"}); err == nil {
		t.Fatalf("expected error for missing title")
	}
	if _, err := e.build("https://example.com/d", readability.Article{Title: "T", TextContent: "  "}); err == nil {
		t.Fatalf("expected error for missing body")
	}

	undated, err := e.build("https://example.com/e", readability.Article{Title: "T", TextContent: "B"})
	if err != nil {
		t.Fatalf("undated article should count as fresh: %v", err)
	}
	if !undated.PublishedAt.Equal(now) {
		t.Fatalf("undated article should be stamped with fetch time, got %s", undated.PublishedAt)
	}
}
