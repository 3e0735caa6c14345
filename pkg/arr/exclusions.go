package arr

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/samvad-hq/trendarr/internal/domain"
)

// ExclusionPageSize is the fixed page size requested from the paged exclusion endpoints.
const ExclusionPageSize = 250

// maxExclusionPages caps the page walk for services that ignore the page parameter.
var maxExclusionPages = 1000

type exclusionPage struct {
	Page    int                          `json:"page"`
	Records []map[string]json.RawMessage `json:"records"`
}

// FetchExcluded collects the "do not (re-)add" titles from the service. Pages are
// requested from 1 until a page comes back with zero records; totalRecords is
// ignored because it is not reliable across service versions. Any failed page, or
// running past maxExclusionPages, discards everything accumulated and returns
// *domain.ExclusionFetchError.
func (c *Client) FetchExcluded(ctx context.Context, svc Service) (domain.ExclusionSet, error) {
	excluded := domain.NewExclusionSet()

	for page := 1; ; page++ {
		if page > maxExclusionPages {
			return nil, &domain.ExclusionFetchError{
				Service: c.flavor.Name,
				Page:    page,
				Err:     fmt.Errorf("no empty page after %d pages", maxExclusionPages),
			}
		}
		var body exclusionPage
		err := c.getJSON(ctx, svc, c.flavor.ExclusionPath, map[string]string{
			"page":     strconv.Itoa(page),
			"pageSize": strconv.Itoa(ExclusionPageSize),
		}, &body)
		if err != nil {
			fetchErr := &domain.ExclusionFetchError{Service: c.flavor.Name, Page: page}
			if se, ok := asStatusError(err); ok {
				fetchErr.Status, fetchErr.Body = se.Status, se.Body
			} else {
				fetchErr.Err = err
			}
			return nil, fetchErr
		}
		if len(body.Records) == 0 {
			break
		}
		for _, rec := range body.Records {
			excluded.Add(recordTitle(rec, c.flavor.ExclusionTitle))
		}
	}

	c.log.DebugObj("exclusions fetched", "exclusions", map[string]any{
		"service": c.flavor.Name,
		"count":   len(excluded),
	})
	return excluded, nil
}

// recordTitle reads the flavor's title field, falling back to the other spelling.
func recordTitle(rec map[string]json.RawMessage, field string) string {
	for _, key := range []string{field, "title", "movieTitle"} {
		raw, ok := rec[key]
		if !ok {
			continue
		}
		var title string
		if err := json.Unmarshal(raw, &title); err == nil && title != "" {
			return title
		}
	}
	return ""
}
