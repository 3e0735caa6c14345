package arr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/samvad-hq/trendarr/internal/domain"
	"github.com/samvad-hq/trendarr/pkg/httpclient"
)

// duplicateMarkers identify the validation failure a service returns when the item is already monitored.
var duplicateMarkers = []string{"existsvalidator", "already been added", "already exists"}

// SubmitConfig carries the per-target settings a creation needs.
type SubmitConfig struct {
	Service          Service
	QualityProfileID int
	RootFolderPath   string
}

type addOptions map[string]bool

// createPayload is the body POSTed to the create endpoint. The canonical id key
// differs per flavor, so it is rendered through a map.
type createPayload struct {
	Title            string
	Year             int
	CanonicalID      int64
	QualityProfileID int
	RootFolderPath   string
	TitleSlug        string
	Monitored        bool
	SearchOnAdd      bool
}

func (p createPayload) render(f Flavor) map[string]any {
	body := map[string]any{
		"title":            p.Title,
		f.IDField:          p.CanonicalID,
		"qualityProfileId": p.QualityProfileID,
		"rootFolderPath":   p.RootFolderPath,
		"titleSlug":        p.TitleSlug,
		"monitored":        p.Monitored,
		"addOptions":       addOptions{f.SearchOption: p.SearchOnAdd},
	}
	if p.Year > 0 {
		body["year"] = p.Year
	}
	return body
}

// Slug lower-cases the title and replaces spaces with hyphens.
func Slug(title string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(title)), " ", "-")
}

// Submit idempotently adds item to the service:
//  1. look the title up; a case-insensitive title or canonical id match means it already exists
//  2. resolve a missing canonical id through the catalog
//  3. POST the creation payload, treating a duplicate validation failure as already existing
//
// A resolution miss returns the (not existing) result together with an error wrapping
// domain.ErrResolutionMiss. Other failures return *domain.SubmissionError.
func (c *Client) Submit(ctx context.Context, item domain.CandidateItem, cfg SubmitConfig) (domain.SubmissionResult, error) {
	result := domain.SubmissionResult{Title: item.Title}

	exists, err := c.existsByLookup(ctx, cfg.Service, item)
	if err != nil {
		return result, c.submissionError(item, "lookup", err)
	}
	if exists {
		result.AlreadyExists = true
		return result, nil
	}

	canonicalID := strings.TrimSpace(item.CanonicalID)
	if canonicalID == "" {
		canonicalID, err = c.resolve(ctx, item)
		if err != nil {
			return result, err
		}
	}
	id, err := strconv.ParseInt(canonicalID, 10, 64)
	if err != nil || id <= 0 {
		return result, &domain.SubmissionError{
			Title: item.Title,
			Stage: "resolve",
			Err:   fmt.Errorf("canonical id %q is not a positive integer", canonicalID),
		}
	}

	payload := createPayload{
		Title:            item.Title,
		Year:             item.Year,
		CanonicalID:      id,
		QualityProfileID: cfg.QualityProfileID,
		RootFolderPath:   cfg.RootFolderPath,
		TitleSlug:        Slug(item.Title),
		Monitored:        true,
		SearchOnAdd:      true,
	}

	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		URL:     cfg.Service.endpoint(c.flavor.CreatePath),
		Headers: cfg.Service.headers(),
		Body:    payload.render(c.flavor),
	})
	if err != nil {
		return result, &domain.SubmissionError{Title: item.Title, Stage: "create", Err: err}
	}
	if httpclient.IsSuccess(resp) {
		return result, nil
	}
	if isDuplicateResponse(resp.StatusCode(), resp.Body()) {
		result.AlreadyExists = true
		return result, nil
	}
	return result, &domain.SubmissionError{
		Title:  item.Title,
		Stage:  "create",
		Status: resp.StatusCode(),
		Body:   httpclient.Snippet(resp.Body()),
	}
}

func (c *Client) existsByLookup(ctx context.Context, svc Service, item domain.CandidateItem) (bool, error) {
	var results []map[string]json.RawMessage
	if err := c.getJSON(ctx, svc, c.flavor.LookupPath, map[string]string{"term": item.Title}, &results); err != nil {
		return false, err
	}

	want := domain.NormalizeTitle(item.Title)
	for _, res := range results {
		if title := recordTitle(res, "title"); title != "" && domain.NormalizeTitle(title) == want {
			return true, nil
		}
		if item.CanonicalID != "" && rawID(res[c.flavor.IDField]) == strings.TrimSpace(item.CanonicalID) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) resolve(ctx context.Context, item domain.CandidateItem) (string, error) {
	if c.resolver == nil {
		return "", fmt.Errorf("resolve %q: no catalog configured: %w", item.Title, domain.ErrResolutionMiss)
	}
	id, found, err := c.resolver.ResolveCanonicalID(ctx, item.Title, c.kind)
	if err != nil {
		return "", &domain.SubmissionError{Title: item.Title, Stage: "resolve", Err: err}
	}
	if !found {
		return "", fmt.Errorf("resolve %q: %w", item.Title, domain.ErrResolutionMiss)
	}
	return id, nil
}

func (c *Client) submissionError(item domain.CandidateItem, stage string, err error) error {
	if se, ok := asStatusError(err); ok {
		return &domain.SubmissionError{Title: item.Title, Stage: stage, Status: se.Status, Body: se.Body}
	}
	return &domain.SubmissionError{Title: item.Title, Stage: stage, Err: err}
}

// isDuplicateResponse reports a 409, or a 400 whose body carries a duplicate validator message.
func isDuplicateResponse(status int, body []byte) bool {
	if status == http.StatusConflict {
		return true
	}
	if status != http.StatusBadRequest {
		return false
	}
	lower := strings.ToLower(string(body))
	for _, marker := range duplicateMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

