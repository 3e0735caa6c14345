package pipeline

import (
	"context"
	"iter"

	"github.com/samvad-hq/trendarr/internal/domain"
	"github.com/samvad-hq/trendarr/pkg/arr"
	"github.com/samvad-hq/trendarr/pkg/publishers"
)

// ListFetcher produces the candidate sequence from the source list page.
type ListFetcher interface {
	Fetch(ctx context.Context, listURL string) (iter.Seq[domain.CandidateItem], error)
}

// YearResolver fills in release years the list did not carry.
type YearResolver interface {
	ResolveYear(ctx context.Context, title string, kind domain.MediaKind) (int, bool, error)
}

// Downstream is the media service a kind syncs into.
type Downstream interface {
	FetchExcluded(ctx context.Context, svc arr.Service) (domain.ExclusionSet, error)
	Submit(ctx context.Context, item domain.CandidateItem, cfg arr.SubmitConfig) (domain.SubmissionResult, error)
}

// EventPublisher announces completed runs.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
