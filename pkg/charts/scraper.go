package charts

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/samvad-hq/trendarr/internal/domain"
	"github.com/samvad-hq/trendarr/pkg/httpclient"
)

const (
	// DefaultUserAgent mimics a desktop browser; the chart pages reject non-browser clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	maxHTMLBodyBytes = 4 << 20 // 4 MiB
)

// Scraper fetches a ranking page and extracts its candidate items.
type Scraper struct {
	client    httpclient.Client
	userAgent string
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) {
		if ua = strings.TrimSpace(ua); ua != "" {
			s.userAgent = ua
		}
	}
}

// NewScraper constructs a scraper with the provided HTTP client (or default).
func NewScraper(client httpclient.Client, opts ...Option) *Scraper {
	if client == nil {
		client = httpclient.NewRestyClient(30 * time.Second)
	}
	s := &Scraper{client: client, userAgent: DefaultUserAgent}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads listURL and returns a finite sequence of candidates. The page is
// fetched and its structured data located eagerly so failures surface as
// *domain.FetchError / *domain.ParseError; entries are converted while ranging.
// Ranging again replays the already fetched page; call Fetch again to re-fetch.
func (s *Scraper) Fetch(ctx context.Context, listURL string) (iter.Seq[domain.CandidateItem], error) {
	listURL = strings.TrimSpace(listURL)
	if listURL == "" {
		return nil, &domain.FetchError{URL: listURL, Err: fmt.Errorf("list url is empty")}
	}

	resp, err := s.client.Get(ctx, listURL, s.headers())
	if err != nil {
		return nil, &domain.FetchError{URL: listURL, Err: err}
	}
	if !httpclient.IsSuccess(resp) {
		return nil, &domain.FetchError{
			URL:    listURL,
			Status: resp.StatusCode(),
			Body:   httpclient.Snippet(resp.Body()),
		}
	}

	body := resp.Body()
	truncated := len(body) > maxHTMLBodyBytes
	if truncated {
		body = body[:maxHTMLBodyBytes]
	}

	entries, err := extractItemList(body)
	if err != nil {
		reason := "structured data block"
		if truncated {
			reason = fmt.Sprintf("structured data block within the first %d bytes (body exceeds size limit)", maxHTMLBodyBytes)
		}
		return nil, &domain.ParseError{URL: listURL, Reason: reason, Err: err}
	}

	return func(yield func(domain.CandidateItem) bool) {
		for _, entry := range entries {
			item, ok := entry.candidate()
			if !ok {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}, nil
}

func (s *Scraper) headers() map[string]string {
	return map[string]string{
		"User-Agent":      s.userAgent,
		"Accept":          "text/html,application/xhtml+xml",
		"Accept-Language": "en-US,en;q=0.9",
	}
}
