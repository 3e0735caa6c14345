package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/trendarr/internal/config"
	"github.com/samvad-hq/trendarr/internal/domain"
	"github.com/samvad-hq/trendarr/internal/logger"
	"github.com/samvad-hq/trendarr/internal/storage"
	"github.com/samvad-hq/trendarr/pkg/arr"
	"github.com/samvad-hq/trendarr/pkg/publishers"
)

// Stage names a step of a sync run.
type Stage string

const (
	StageFetchList       Stage = "fetch_list"
	StageFetchExclusions Stage = "fetch_exclusions"
	StageEnrich          Stage = "enrich"
	StageFilter          Stage = "filter"
	StageSubmit          Stage = "submit"
	StagePersist         Stage = "persist"
	StageDone            Stage = "done"
)

// Deps are the collaborators of a Service. Store and Downstream are required.
type Deps struct {
	Lists      ListFetcher
	Years      YearResolver
	Downstream Downstream
	Store      storage.Store
	Events     EventPublisher
	Workers    int
	Log        logger.Logger
}

// Service runs the sync pipeline for one media kind.
type Service struct {
	lists      ListFetcher
	years      YearResolver
	downstream Downstream
	store      storage.Store
	events     EventPublisher
	workers    int
	log        logger.Logger
}

// Job describes one run: where to read from and where to submit to.
type Job struct {
	Kind     domain.MediaKind
	ListURL  string
	Criteria domain.FilterCriteria
	Submit   arr.SubmitConfig
}

// Outcome summarizes a run. Stage is the last stage reached.
type Outcome struct {
	RunID    string
	Kind     domain.MediaKind
	Stage    Stage
	Imported domain.ImportedReport
	Stats    domain.RunStats
}

// NewService wires a pipeline from its collaborators.
func NewService(deps Deps) (*Service, error) {
	if deps.Lists == nil {
		return nil, errors.New("pipeline requires a list fetcher")
	}
	if deps.Downstream == nil {
		return nil, errors.New("pipeline requires a downstream service")
	}
	if deps.Store == nil {
		return nil, errors.New("pipeline requires a report store")
	}
	workers := deps.Workers
	if workers <= 0 {
		workers = config.DefaultWorkers()
	}
	return &Service{
		lists:      deps.Lists,
		years:      deps.Years,
		downstream: deps.Downstream,
		store:      deps.Store,
		events:     deps.Events,
		workers:    workers,
		log:        logger.Ensure(deps.Log),
	}, nil
}

// Run executes FetchList → FetchExclusions → Filter → Submit → Persist for job.Kind.
// A returned error means the run stopped before Persist and the previous report is
// untouched; a cancelled ctx stops the run the same way. Individual submission failures are logged and counted, never returned.
func (s *Service) Run(ctx context.Context, job Job) (Outcome, error) {
	out := Outcome{RunID: uuid.NewString(), Kind: job.Kind, Stage: StageFetchList}
	started := time.Now()

	if err := job.Criteria.Validate(); err != nil {
		return out, fmt.Errorf("%s criteria: %w", job.Kind, err)
	}

	items, err := s.fetchList(ctx, job)
	if err != nil {
		return out, s.abort(out, err)
	}
	out.Stats.Scraped = len(items)

	out.Stage = StageFetchExclusions
	excluded, err := s.downstream.FetchExcluded(ctx, job.Submit.Service)
	if err != nil {
		return out, s.abort(out, fmt.Errorf("fetch exclusions for %s: %w", job.Kind, err))
	}
	out.Stats.Excluded = len(excluded)

	out.Stage = StageEnrich
	candidates := s.enrich(ctx, out.RunID, job, excluded, items)
	if err := ctx.Err(); err != nil {
		return out, s.abort(out, fmt.Errorf("%s run cancelled: %w", job.Kind, err))
	}

	out.Stage = StageFilter
	eligible := Filter(candidates, job.Criteria, excluded)
	out.Stats.Eligible = len(eligible)

	out.Stage = StageSubmit
	results := s.submitAll(ctx, out.RunID, job, eligible)
	if err := ctx.Err(); err != nil {
		return out, s.abort(out, fmt.Errorf("%s run cancelled: %w", job.Kind, err))
	}
	imported, err := s.fold(&out.Stats, results)
	if err != nil {
		return out, s.abort(out, err)
	}
	out.Imported = imported

	out.Stage = StagePersist
	if err := storage.SaveReport(s.store, job.Kind, imported); err != nil {
		return out, s.abort(out, err)
	}
	out.Stage = StageDone

	s.log.InfoObj("sync run completed", "sync_result", map[string]any{
		"run_id":          out.RunID,
		"kind":            job.Kind,
		"scraped":         out.Stats.Scraped,
		"excluded":        out.Stats.Excluded,
		"eligible":        out.Stats.Eligible,
		"imported":        out.Stats.Imported,
		"already_present": out.Stats.AlreadyPresent,
		"failed":          out.Stats.Failed,
		"duration_ms":     time.Since(started).Milliseconds(),
	})
	s.announce(ctx, out, started)
	return out, nil
}

func (s *Service) abort(out Outcome, err error) error {
	s.log.ErrorObj("sync run aborted", "sync_abort", map[string]any{
		"run_id": out.RunID,
		"kind":   out.Kind,
		"stage":  out.Stage,
		"error":  err.Error(),
	})
	return err
}

// fetchList drains the scraped sequence, keeping entries of job.Kind and those of unknown type.
func (s *Service) fetchList(ctx context.Context, job Job) ([]domain.CandidateItem, error) {
	seq, err := s.lists.Fetch(ctx, job.ListURL)
	if err != nil {
		return nil, fmt.Errorf("fetch list for %s: %w", job.Kind, err)
	}

	var items []domain.CandidateItem
	skipped := 0
	for item := range seq {
		if item.Kind != "" && item.Kind != job.Kind {
			skipped++
			continue
		}
		item.Kind = job.Kind
		items = append(items, item)
	}
	if skipped > 0 {
		s.log.DebugObj("list entries of another kind skipped", "sync_kind_split", map[string]any{
			"kind":    job.Kind,
			"skipped": skipped,
		})
	}
	return items, nil
}

// enrich resolves missing years for items that pass the cheap predicates. Items are
// returned in input order; unresolved years stay unknown and are dropped by Filter.
func (s *Service) enrich(ctx context.Context, runID string, job Job, excluded domain.ExclusionSet, items []domain.CandidateItem) []domain.CandidateItem {
	candidates := make([]domain.CandidateItem, 0, len(items))
	for _, item := range items {
		if worthEnriching(item, job.Criteria, excluded) {
			candidates = append(candidates, item)
		}
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range candidates {
		if candidates[i].HasYear() || s.years == nil {
			continue
		}
		g.Go(func() error {
			item := &candidates[i]
			year, found, err := s.years.ResolveYear(ctx, item.Title, job.Kind)
			if err != nil {
				s.log.WarnObj("year resolution failed", "sync_enrich", map[string]any{
					"run_id": runID,
					"kind":   job.Kind,
					"title":  item.Title,
					"error":  err.Error(),
				})
				return nil
			}
			if found {
				item.Year = year
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, item := range candidates {
		if !item.HasYear() {
			s.log.WarnObj("release year unknown, item dropped", "sync_filter", map[string]any{
				"run_id": runID,
				"kind":   job.Kind,
				"title":  item.Title,
			})
		}
	}
	return candidates
}

// itemResult is the per-item outcome of Submit: either a result or an error.
type itemResult struct {
	item   domain.CandidateItem
	result domain.SubmissionResult
	err    error
}

func (s *Service) submitAll(ctx context.Context, runID string, job Job, eligible []domain.CandidateItem) []itemResult {
	results := make([]itemResult, len(eligible))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, item := range eligible {
		g.Go(func() error {
			res, err := s.downstream.Submit(ctx, item, job.Submit)
			results[i] = itemResult{item: item, result: res, err: err}
			if err != nil {
				s.logSubmitFailure(runID, job.Kind, item, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Service) logSubmitFailure(runID string, kind domain.MediaKind, item domain.CandidateItem, err error) {
	fields := map[string]any{
		"run_id": runID,
		"kind":   kind,
		"title":  item.Title,
		"error":  err.Error(),
	}
	var subErr *domain.SubmissionError
	if errors.As(err, &subErr) {
		fields["stage"] = subErr.Stage
		if subErr.Status != 0 {
			fields["status"] = subErr.Status
			fields["body"] = subErr.Body
		}
	}
	if errors.Is(err, domain.ErrResolutionMiss) {
		fields["stage"] = "resolve"
	}
	s.log.ErrorObj("item submission failed", "sync_submit", fields)
}

// fold aggregates per-item results in input order. Only run-fatal error kinds abort.
func (s *Service) fold(stats *domain.RunStats, results []itemResult) (domain.ImportedReport, error) {
	imported := domain.ImportedReport{}
	for _, r := range results {
		switch {
		case r.err != nil && domain.IsRunFatal(r.err):
			return nil, r.err
		case r.err != nil:
			stats.Failed++
		case r.result.AlreadyExists:
			stats.AlreadyPresent++
		default:
			stats.Imported++
			imported = append(imported, r.result.Title)
		}
	}
	return imported, nil
}

// announce publishes the run event. Sink failures never fail the run.
func (s *Service) announce(ctx context.Context, out Outcome, started time.Time) {
	if s.events == nil {
		return
	}
	evt := publishers.NewEvent(out.RunID, out.Kind, out.Imported, out.Stats, started)
	delivered, err := s.events.Publish(ctx, evt)
	if err != nil {
		s.log.WarnObj("sync event publish failed", "sync_event", map[string]any{
			"run_id":    out.RunID,
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
}
