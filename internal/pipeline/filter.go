package pipeline

import (
	"iter"
	"slices"

	"github.com/samvad-hq/trendarr/internal/domain"
)

// Keep reports whether item survives criteria and the exclusion set. Items
// without a known year never survive.
func Keep(item domain.CandidateItem, criteria domain.FilterCriteria, excluded domain.ExclusionSet) bool {
	if !item.HasYear() {
		return false
	}
	if item.Year < criteria.MinYear || item.Year > criteria.MaxYear {
		return false
	}
	if !(item.Rating >= criteria.MinRating) {
		return false
	}
	return !excluded.Contains(item.Title)
}

// FilterSeq lazily yields the items of seq that Keep retains, in input order.
func FilterSeq(seq iter.Seq[domain.CandidateItem], criteria domain.FilterCriteria, excluded domain.ExclusionSet) iter.Seq[domain.CandidateItem] {
	return func(yield func(domain.CandidateItem) bool) {
		for item := range seq {
			if !Keep(item, criteria, excluded) {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}
}

// Filter is the slice form of FilterSeq. The input is left untouched.
func Filter(items []domain.CandidateItem, criteria domain.FilterCriteria, excluded domain.ExclusionSet) []domain.CandidateItem {
	return slices.Collect(FilterSeq(slices.Values(items), criteria, excluded))
}

// worthEnriching applies the predicates that need no catalog data, so the
// catalog is only asked about items that could still survive.
func worthEnriching(item domain.CandidateItem, criteria domain.FilterCriteria, excluded domain.ExclusionSet) bool {
	if !(item.Rating >= criteria.MinRating) || excluded.Contains(item.Title) {
		return false
	}
	if item.HasYear() && (item.Year < criteria.MinYear || item.Year > criteria.MaxYear) {
		return false
	}
	return true
}
