package arr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/trendarr/internal/domain"
	"github.com/samvad-hq/trendarr/internal/logger"
	"github.com/samvad-hq/trendarr/pkg/httpclient"
)

const apiKeyHeader = "X-Api-Key"

// Resolver fills in canonical ids the list did not carry.
type Resolver interface {
	ResolveCanonicalID(ctx context.Context, title string, kind domain.MediaKind) (string, bool, error)
}

// Client talks to one downstream media service.
type Client struct {
	kind     domain.MediaKind
	flavor   Flavor
	http     httpclient.Client
	resolver Resolver
	log      logger.Logger
}

// NewClient builds a client for kind. resolver may be nil when every item carries its canonical id.
func NewClient(kind domain.MediaKind, client httpclient.Client, resolver Resolver, log logger.Logger) (*Client, error) {
	flavor, err := FlavorFor(kind)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = httpclient.NewRestyClient(30 * time.Second)
	}
	return &Client{
		kind:     kind,
		flavor:   flavor,
		http:     client,
		resolver: resolver,
		log:      logger.Ensure(log),
	}, nil
}

// Flavor returns the API flavor in use.
func (c *Client) Flavor() Flavor { return c.flavor }

// Service addresses one downstream instance.
type Service struct {
	URL    string
	APIKey string
}

func (s Service) endpoint(path string) string {
	return strings.TrimRight(s.URL, "/") + path
}

func (s Service) headers() map[string]string {
	return map[string]string{
		apiKeyHeader: s.APIKey,
		"Accept":     "application/json",
	}
}

// QualityProfile is a downstream quality profile.
type QualityProfile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RootFolder is a downstream library root.
type RootFolder struct {
	ID         int    `json:"id"`
	Path       string `json:"path"`
	Accessible bool   `json:"accessible"`
	FreeSpace  int64  `json:"freeSpace"`
}

// QualityProfiles lists the configured quality profiles.
func (c *Client) QualityProfiles(ctx context.Context, svc Service) ([]QualityProfile, error) {
	var out []QualityProfile
	if err := c.getJSON(ctx, svc, qualityProfilePath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RootFolders lists the configured root folders.
func (c *Client) RootFolders(ctx context.Context, svc Service) ([]RootFolder, error) {
	var out []RootFolder
	if err := c.getJSON(ctx, svc, rootFolderPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// statusError carries a non-success downstream response.
type statusError struct {
	Path   string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned status %d body: %s", e.Path, e.Status, e.Body)
}

func (c *Client) getJSON(ctx context.Context, svc Service, path string, query map[string]string, dst any) error {
	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     svc.endpoint(path),
		Headers: svc.headers(),
		Query:   query,
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.flavor.Name, path, err)
	}
	if !httpclient.IsSuccess(resp) {
		return &statusError{Path: path, Status: resp.StatusCode(), Body: httpclient.Snippet(resp.Body())}
	}
	if err := json.Unmarshal(resp.Body(), dst); err != nil {
		return fmt.Errorf("decode %s %s: %w", c.flavor.Name, path, err)
	}
	return nil
}

func asStatusError(err error) (*statusError, bool) {
	var se *statusError
	ok := errors.As(err, &se)
	return se, ok
}
