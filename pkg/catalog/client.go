package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/trendarr/internal/domain"
	"github.com/samvad-hq/trendarr/internal/logger"
	"github.com/samvad-hq/trendarr/pkg/httpclient"
)

// DefaultBaseURL is the TMDB v3 API root.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// Match is the first search hit for a title.
type Match struct {
	TMDBID int64
	Title  string
	Year   int
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
}

type externalIDs struct {
	TVDBID *int64  `json:"tvdb_id"`
	IMDBID *string `json:"imdb_id"`
}

// Client queries the catalog API. Safe for concurrent use.
type Client struct {
	apiKey  string
	baseURL string
	http    httpclient.Client
	log     logger.Logger

	mu    sync.Mutex
	memo  map[string]searchOutcome
	extID map[int64]searchOutcome
}

type searchOutcome struct {
	match Match
	found bool
}

// New creates a catalog client. The search memo lives as long as the client.
func New(apiKey, baseURL string, client httpclient.Client, log logger.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("catalog api key required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = httpclient.NewRestyClient(30 * time.Second)
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    client,
		log:     logger.Ensure(log),
		memo:    make(map[string]searchOutcome),
		extID:   make(map[int64]searchOutcome),
	}, nil
}

// ResolveYear returns the release (or first-air) year of the first match.
func (c *Client) ResolveYear(ctx context.Context, title string, kind domain.MediaKind) (int, bool, error) {
	m, found, err := c.Search(ctx, title, kind)
	if err != nil || !found || m.Year == 0 {
		return 0, false, err
	}
	return m.Year, true, nil
}

// ResolveCanonicalID returns the id the downstream service keys on:
// the TMDB id for movies, the TVDB id for series.
func (c *Client) ResolveCanonicalID(ctx context.Context, title string, kind domain.MediaKind) (string, bool, error) {
	m, found, err := c.Search(ctx, title, kind)
	if err != nil || !found {
		return "", false, err
	}
	if kind == domain.KindMovie {
		return strconv.FormatInt(m.TMDBID, 10), true, nil
	}
	return c.tvdbID(ctx, m.TMDBID)
}

// Search runs a title search scoped by kind and returns the first result.
func (c *Client) Search(ctx context.Context, title string, kind domain.MediaKind) (Match, bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Match{}, false, errors.New("title must not be empty")
	}

	var path string
	switch kind {
	case domain.KindMovie:
		path = "/search/movie"
	case domain.KindSeries:
		path = "/search/tv"
	default:
		return Match{}, false, fmt.Errorf("unsupported media kind %q", kind)
	}

	key := string(kind) + "|" + domain.NormalizeTitle(title)
	if out, ok := c.cached(key); ok {
		return out.match, out.found, nil
	}

	var payload searchResponse
	ok, err := c.getJSON(ctx, path, map[string]string{"query": title}, &payload)
	if err != nil {
		return Match{}, false, err
	}

	out := searchOutcome{}
	if ok && len(payload.Results) > 0 {
		first := payload.Results[0]
		out.found = true
		out.match = Match{TMDBID: first.ID, Title: first.Title, Year: domain.ParseYear(first.ReleaseDate)}
		if kind == domain.KindSeries {
			out.match.Title = first.Name
			out.match.Year = domain.ParseYear(first.FirstAirDate)
		}
	}
	if ok {
		c.store(key, out)
	}
	return out.match, out.found, nil
}

func (c *Client) tvdbID(ctx context.Context, tmdbID int64) (string, bool, error) {
	if tmdbID <= 0 {
		return "", false, nil
	}

	c.mu.Lock()
	out, cached := c.extID[tmdbID]
	c.mu.Unlock()
	if !cached {
		var ids externalIDs
		ok, err := c.getJSON(ctx, fmt.Sprintf("/tv/%d/external_ids", tmdbID), nil, &ids)
		if err != nil {
			return "", false, err
		}
		if ok && ids.TVDBID != nil && *ids.TVDBID > 0 {
			out = searchOutcome{match: Match{TMDBID: *ids.TVDBID}, found: true}
		}
		if ok {
			c.mu.Lock()
			c.extID[tmdbID] = out
			c.mu.Unlock()
		}
	}
	if !out.found {
		return "", false, nil
	}
	return strconv.FormatInt(out.match.TMDBID, 10), true, nil
}

// getJSON decodes a success response into dst. A non-success status returns ok=false
// and is not memoized, so a throttled lookup is retried on the next call.
func (c *Client) getJSON(ctx context.Context, path string, query map[string]string, dst any) (bool, error) {
	params := map[string]string{"api_key": c.apiKey}
	for k, v := range query {
		params[k] = v
	}

	start := time.Now()
	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     c.baseURL + path,
		Query:   params,
		Headers: map[string]string{"Accept": "application/json"},
	})
	latency := time.Since(start)
	if err != nil {
		return false, fmt.Errorf("catalog %s (latency=%v): %w", path, latency, err)
	}
	if !httpclient.IsSuccess(resp) {
		c.log.DebugObj("catalog request unsuccessful", "catalog_status", map[string]any{
			"path":       path,
			"status":     resp.StatusCode(),
			"latency_ms": latency.Milliseconds(),
		})
		return false, nil
	}
	if err := json.Unmarshal(resp.Body(), dst); err != nil {
		return false, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return true, nil
}

func (c *Client) cached(key string) (searchOutcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out, ok := c.memo[key]
	return out, ok
}

func (c *Client) store(key string, out searchOutcome) {
	c.mu.Lock()
	c.memo[key] = out
	c.mu.Unlock()
}
