package charts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/trendarr/internal/domain"
)

var (
	errNoItemList = errors.New("no ld+json ItemList block found")
	listIDPattern = regexp.MustCompile(`tt\d{5,}`)
)

// ldItemList is the schema.org ItemList embedded in the ranking page.
type ldItemList struct {
	Type            string       `json:"@type"`
	ItemListElement []ldListItem `json:"itemListElement"`
}

type ldListItem struct {
	Position int     `json:"position"`
	Item     *ldWork `json:"item"`
}

// ldWork covers the Movie / TVSeries fields used here.
type ldWork struct {
	Type            string    `json:"@type"`
	URL             string    `json:"url"`
	Name            string    `json:"name"`
	DatePublished   string    `json:"datePublished"`
	AggregateRating *ldRating `json:"aggregateRating"`
}

type ldRating struct {
	RatingValue flexNumber `json:"ratingValue"`
}

// flexNumber accepts both 7.5 and "7.5". NaN and infinities are not ratings.
type flexNumber struct {
	value float64
	valid bool
}

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.value, f.valid = v, true
	return nil
}

// extractItemList returns the entries of the first ld+json block typed ItemList.
func extractItemList(body []byte) ([]ldListItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var (
		found   []ldListItem
		matched bool
	)
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var list ldItemList
		if err := json.Unmarshal([]byte(sel.Text()), &list); err != nil {
			return true
		}
		if !strings.EqualFold(list.Type, "ItemList") {
			return true
		}
		found, matched = list.ItemListElement, true
		return false
	})
	if !matched {
		return nil, errNoItemList
	}
	return found, nil
}

// candidate converts an entry; entries without a title or numeric rating are skipped.
func (e ldListItem) candidate() (domain.CandidateItem, bool) {
	if e.Item == nil {
		return domain.CandidateItem{}, false
	}
	title := strings.TrimSpace(html.UnescapeString(e.Item.Name))
	if title == "" {
		return domain.CandidateItem{}, false
	}
	if e.Item.AggregateRating == nil || !e.Item.AggregateRating.RatingValue.valid {
		return domain.CandidateItem{}, false
	}

	return domain.CandidateItem{
		Title:  title,
		Rating: e.Item.AggregateRating.RatingValue.value,
		Year:   domain.ParseYear(e.Item.DatePublished),
		ListID: listIDPattern.FindString(e.Item.URL),
		Kind:   kindFromType(e.Item.Type),
	}, true
}

func kindFromType(typ string) domain.MediaKind {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "movie":
		return domain.KindMovie
	case "tvseries", "tvminiseries":
		return domain.KindSeries
	default:
		return ""
	}
}
