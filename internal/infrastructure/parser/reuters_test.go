package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"MarketPulse/internal/scanner"
)

func TestReutersRequiresSection(t *testing.T) {
	t.Parallel()

	if _, err := NewReutersScraper(scanner.Site{Name: "reuters"}, Options{}); err == nil {
		t.Fatalf("expected error without section")
	}
}

func TestReutersSessionFlow(t *testing.T) {
	t.Parallel()

	var (
		mu           sync.Mutex
		bootstrapped bool
		listingAuth  bool
		referer      string
		fetchSite    string
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		bootstrapped = true
		mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
		fmt.Fprint(w, "<html><body>home</body></html>")
	})
	mux.HandleFunc("/markets/us/", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil && c.Value == "ok" {
			mu.Lock()
			listingAuth = true
			mu.Unlock()
		}
		fmt.Fprint(w, `<html><body>
<a data-testid="Heading" href="/markets/us/stocks-rally-2025-10-06/">Stocks rally</a>
<a data-testid="Heading" href="/markets/us/stocks-rally-2025-10-06/">Stocks rally again</a>
<a data-testid="Heading" href="/markets/us/fed-minutes-2025-10-05/">Fed minutes</a>
<a data-testid="Other" href="/markets/us/ignored/">Ignored</a>
</body></html>`)
	})
	mux.HandleFunc("/markets/us/stocks-rally-2025-10-06/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		referer = r.Header.Get("Referer")
		fetchSite = r.Header.Get("Sec-Fetch-Site")
		mu.Unlock()
		fmt.Fprint(w, articlePage("Stocks rally on chip deal", time.Now().Add(-time.Hour)))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	s, err := NewReutersScraper(scanner.Site{
		Name:    "reuters-us",
		Options: map[string]string{"section": "us", "base_url": server.URL},
	}, Options{})
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}

	links := s.DiscoverLinks(context.Background())
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %v", links)
	}
	if links[0] != server.URL+"/markets/us/stocks-rally-2025-10-06/" {
		t.Fatalf("link not resolved against base: %s", links[0])
	}

	if res := s.FetchArticle(context.Background(), links[0]); res == nil {
		t.Fatalf("expected article")
	}

	mu.Lock()
	defer mu.Unlock()
	if !bootstrapped || !listingAuth {
		t.Fatalf("expected landing page visit before listing (bootstrapped=%v, cookie=%v)", bootstrapped, listingAuth)
	}
	if referer != server.URL || fetchSite != "same-origin" {
		t.Fatalf("unexpected navigation headers: referer=%q sec-fetch-site=%q", referer, fetchSite)
	}
}
