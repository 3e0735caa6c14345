package domain

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Domain contains core models shared by the sync pipeline.

// MediaKind selects endpoints, search scopes and ID field names.
type MediaKind string

const (
	KindMovie  MediaKind = "movie"
	KindSeries MediaKind = "series"
)

// Kinds lists every supported media kind in run order.
func Kinds() []MediaKind { return []MediaKind{KindMovie, KindSeries} }

// ParseKind accepts the singular and plural spellings used on the CLI and in config files.
func ParseKind(raw string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "movie", "movies", "film", "films":
		return KindMovie, nil
	case "series", "serie", "show", "shows", "tv":
		return KindSeries, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", raw)
	}
}

// ReportKey is the well-known store key holding the ImportedReport for the kind.
func (k MediaKind) ReportKey() string {
	switch k {
	case KindMovie:
		return "imported_movies"
	case KindSeries:
		return "imported_series"
	default:
		return "imported_" + string(k)
	}
}

// CandidateItem is one ranked entry scraped from the source list.
// Year and CanonicalID are zero until the list or enrichment supplies them.
type CandidateItem struct {
	Title       string    `json:"title"`
	Rating      float64   `json:"rating"`
	Year        int       `json:"year,omitempty"`
	CanonicalID string    `json:"canonical_id,omitempty"`
	ListID      string    `json:"list_id,omitempty"`
	Kind        MediaKind `json:"kind,omitempty"`
}

// HasYear reports whether the year is known.
func (c CandidateItem) HasYear() bool { return c.Year > 0 }

// ParseYear reads the leading YYYY of a date such as "2021-03-04". Zero means unknown.
func ParseYear(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil || y <= 0 {
		return 0
	}
	return y
}

// FilterCriteria bounds the items accepted for one media kind.
type FilterCriteria struct {
	MinYear   int     `json:"min_year" yaml:"min_year"`
	MaxYear   int     `json:"max_year" yaml:"max_year"`
	MinRating float64 `json:"min_rating" yaml:"min_rating"`
}

// Validate checks the year range invariant.
func (c FilterCriteria) Validate() error {
	if c.MinYear > c.MaxYear {
		return fmt.Errorf("min_year %d is greater than max_year %d", c.MinYear, c.MaxYear)
	}
	if c.MinRating < 0 {
		return fmt.Errorf("min_rating must not be negative")
	}
	return nil
}

// ExclusionSet holds normalized titles that must not be (re-)added. It lives for one run.
type ExclusionSet map[string]struct{}

// NewExclusionSet builds a set from raw titles.
func NewExclusionSet(titles ...string) ExclusionSet {
	set := make(ExclusionSet, len(titles))
	for _, t := range titles {
		set.Add(t)
	}
	return set
}

// Add inserts the normalized title; blank titles are ignored.
func (s ExclusionSet) Add(title string) {
	if key := NormalizeTitle(title); key != "" {
		s[key] = struct{}{}
	}
}

// Contains reports whether the title is excluded (case-insensitive exact match).
func (s ExclusionSet) Contains(title string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[NormalizeTitle(title)]
	return ok
}

// NormalizeTitle folds a title for exact, case-insensitive comparison.
func NormalizeTitle(title string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(title)))
}

// SubmissionResult is produced once per candidate that reached the downstream service.
type SubmissionResult struct {
	Title         string `json:"title"`
	AlreadyExists bool   `json:"already_exists"`
}

// ImportedReport lists titles newly added by the most recent run of a kind.
type ImportedReport []string

// RunStats counts what one sync pass did for a media kind.
type RunStats struct {
	Scraped        int `json:"scraped"`
	Excluded       int `json:"excluded"`
	Eligible       int `json:"eligible"`
	Imported       int `json:"imported"`
	AlreadyPresent int `json:"already_present"`
	Failed         int `json:"failed"`
}
