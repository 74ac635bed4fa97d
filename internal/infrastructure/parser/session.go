package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// browserHeaders mimic a top-level navigation from a desktop browser.
var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
	"Accept-Language":           "en-US,en;q=0.9",
	"DNT":                       "1",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Cache-Control":             "max-age=0",
}

// SessionOptions configures a Session.
type SessionOptions struct {
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	BrowserHeaders bool
}

// Session is an HTTP client with a cookie jar and a fixed header set, shared
// by every request one scraper makes.
type Session struct {
	baseURL string
	headers http.Header
	client  *http.Client
}

// NewSession builds a session with its own cookie jar.
func NewSession(opts SessionOptions) *Session {
	jar, _ := cookiejar.New(nil)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	headers := http.Header{}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	headers.Set("User-Agent", ua)
	if opts.BrowserHeaders {
		for k, v := range browserHeaders {
			headers.Set(k, v)
		}
	}

	return &Session{
		baseURL: opts.BaseURL,
		headers: headers,
		client:  &http.Client{Timeout: timeout, Jar: jar},
	}
}

// BaseURL is the landing page of the site.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// Bootstrap visits the landing page so the jar picks up session cookies.
func (s *Session) Bootstrap(ctx context.Context) error {
	resp, err := s.Get(ctx, s.baseURL, nil)
	if err != nil {
		return fmt.Errorf("bootstrap %s: %w", s.baseURL, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// Get issues a GET with the session headers plus extra. Non-2xx answers are
// returned as errors with the body already closed.
func (s *Session) Get(ctx context.Context, target string, extra http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range s.headers {
		req.Header[k] = v
	}
	for k, v := range extra {
		req.Header[k] = v
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", target, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned %s", target, resp.Status)
	}
	return resp, nil
}

// Document downloads and parses an HTML page.
func (s *Session) Document(ctx context.Context, target string) (*goquery.Document, error) {
	resp, err := s.Get(ctx, target, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}
