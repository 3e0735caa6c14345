package pipeline

import (
	"math"
	"slices"
	"testing"

	"github.com/samvad-hq/trendarr/internal/domain"
)

func TestFilterRetainsOnlyMatchingItemsInOrder(t *testing.T) {
	criteria := domain.FilterCriteria{MinYear: 2000, MaxYear: 2025, MinRating: 7.0}
	excluded := domain.NewExclusionSet("Excluded Hit")
	items := []domain.CandidateItem{
		{Title: "First", Rating: 7.0, Year: 2000},
		{Title: "Too Old", Rating: 9.0, Year: 1999},
		{Title: "No Year", Rating: 9.0},
		{Title: "EXCLUDED HIT", Rating: 9.0, Year: 2010},
		{Title: "Low Rated", Rating: 6.9, Year: 2010},
		{Title: "Second", Rating: 8.1, Year: 2025},
		{Title: "Too New", Rating: 8.1, Year: 2026},
		{Title: "Third", Rating: 9.9, Year: 2012},
	}
	input := slices.Clone(items)

	got := Filter(items, criteria, excluded)

	var titles []string
	for _, item := range got {
		titles = append(titles, item.Title)
	}
	want := []string{"First", "Second", "Third"}
	if !slices.Equal(titles, want) {
		t.Fatalf("Filter = %v, want %v", titles, want)
	}
	if !slices.Equal(items, input) {
		t.Fatalf("Filter mutated its input")
	}
}

func TestFilterOutputSatisfiesPredicate(t *testing.T) {
	criteria := domain.FilterCriteria{MinYear: 1990, MaxYear: 2010, MinRating: 5.5}
	excluded := domain.NewExclusionSet("t3", "t11")

	var items []domain.CandidateItem
	for i := 0; i < 40; i++ {
		items = append(items, domain.CandidateItem{
			Title:  "T" + string(rune('0'+i%10)) + string(rune('a'+i/10)),
			Rating: float64(i%10) + 0.5,
			Year:   1980 + i,
		})
	}
	items = append(items, domain.CandidateItem{Title: "t3", Rating: 9, Year: 2000})

	got := Filter(items, criteria, excluded)
	last := -1
	for _, item := range got {
		if !Keep(item, criteria, excluded) {
			t.Fatalf("retained item violates predicate: %+v", item)
		}
		idx := slices.Index(items, item)
		if idx < 0 {
			t.Fatalf("retained item not from input: %+v", item)
		}
		if idx <= last {
			t.Fatalf("order not preserved at %q", item.Title)
		}
		last = idx
	}
	for _, item := range got {
		if item.Title == "t3" {
			t.Fatalf("excluded title survived")
		}
	}
}

func TestFilterSeqStopsEarly(t *testing.T) {
	criteria := domain.FilterCriteria{MinYear: 2000, MaxYear: 2030, MinRating: 0}
	items := []domain.CandidateItem{
		{Title: "A", Year: 2001},
		{Title: "B", Year: 2002},
		{Title: "C", Year: 2003},
	}

	var seen []string
	for item := range FilterSeq(slices.Values(items), criteria, nil) {
		seen = append(seen, item.Title)
		if len(seen) == 2 {
			break
		}
	}
	if !slices.Equal(seen, []string{"A", "B"}) {
		t.Fatalf("seen = %v", seen)
	}
}

func TestWorthEnrichingSkipsHopelessItems(t *testing.T) {
	criteria := domain.FilterCriteria{MinYear: 2000, MaxYear: 2025, MinRating: 7}
	excluded := domain.NewExclusionSet("gone")

	cases := []struct {
		item domain.CandidateItem
		want bool
	}{
		{domain.CandidateItem{Title: "unknown year", Rating: 8}, true},
		{domain.CandidateItem{Title: "low", Rating: 6}, false},
		{domain.CandidateItem{Title: "Gone", Rating: 9}, false},
		{domain.CandidateItem{Title: "old", Rating: 9, Year: 1980}, false},
		{domain.CandidateItem{Title: "ok", Rating: 9, Year: 2010}, true},
	}
	for _, tc := range cases {
		if got := worthEnriching(tc.item, criteria, excluded); got != tc.want {
			t.Errorf("worthEnriching(%q) = %v, want %v", tc.item.Title, got, tc.want)
		}
	}
}

func TestNonFiniteRatingsNeverPass(t *testing.T) {
	criteria := domain.FilterCriteria{MinYear: 2000, MaxYear: 2025, MinRating: 7}
	for _, rating := range []float64{math.NaN(), math.Inf(-1)} {
		item := domain.CandidateItem{Title: "odd", Rating: rating, Year: 2010}
		if Keep(item, criteria, nil) {
			t.Errorf("Keep accepted rating %v", rating)
		}
		item.Year = 0
		if worthEnriching(item, criteria, nil) {
			t.Errorf("worthEnriching accepted rating %v", rating)
		}
	}
}
