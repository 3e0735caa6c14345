package pipeline

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/trendarr/internal/domain"
	"github.com/samvad-hq/trendarr/internal/storage"
	"github.com/samvad-hq/trendarr/pkg/arr"
	"github.com/samvad-hq/trendarr/pkg/publishers"
)

type fakeLists struct {
	items []domain.CandidateItem
	err   error
}

func (f *fakeLists) Fetch(context.Context, string) (iter.Seq[domain.CandidateItem], error) {
	if f.err != nil {
		return nil, f.err
	}
	return slices.Values(f.items), nil
}

type fakeYears struct {
	mu    sync.Mutex
	years map[string]int
	asked []string
}

func (f *fakeYears) ResolveYear(_ context.Context, title string, _ domain.MediaKind) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, title)
	y, ok := f.years[title]
	return y, ok, nil
}

// ctxYears fails every lookup with the context's error once it is done.
type ctxYears struct{}

func (ctxYears) ResolveYear(ctx context.Context, _ string, _ domain.MediaKind) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	return 2020, true, nil
}

type fakeDownstream struct {
	mu         sync.Mutex
	excluded   domain.ExclusionSet
	exclErr    error
	existing   map[string]bool
	failTitles map[string]error
	onSubmit   func()
	submitted  []string
}

func (f *fakeDownstream) FetchExcluded(context.Context, arr.Service) (domain.ExclusionSet, error) {
	if f.exclErr != nil {
		return nil, f.exclErr
	}
	return f.excluded, nil
}

func (f *fakeDownstream) Submit(_ context.Context, item domain.CandidateItem, _ arr.SubmitConfig) (domain.SubmissionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, item.Title)
	if f.onSubmit != nil {
		f.onSubmit()
	}
	res := domain.SubmissionResult{Title: item.Title}
	if err := f.failTitles[item.Title]; err != nil {
		return res, err
	}
	res.AlreadyExists = f.existing[item.Title]
	return res, nil
}

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	sets int
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (m *memStore) Close() error { return nil }
func (m *memStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}
func (m *memStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = value
	return nil
}

type fakeEvents struct {
	events []publishers.Event
	err    error
}

func (f *fakeEvents) Publish(_ context.Context, evt publishers.Event) (int, error) {
	f.events = append(f.events, evt)
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

func movieJob() Job {
	return Job{
		Kind:     domain.KindMovie,
		ListURL:  "https://example.com/chart/moviemeter",
		Criteria: domain.FilterCriteria{MinYear: 2000, MaxYear: 2025, MinRating: 7.0},
		Submit: arr.SubmitConfig{
			Service:          arr.Service{URL: "http://radarr:7878", APIKey: "k"},
			QualityProfileID: 1,
			RootFolderPath:   "/movies",
		},
	}
}

func newTestService(t *testing.T, lists ListFetcher, years YearResolver, down Downstream, store storage.Store, events EventPublisher) *Service {
	t.Helper()
	svc, err := NewService(Deps{
		Lists:      lists,
		Years:      years,
		Downstream: down,
		Store:      store,
		Events:     events,
		Workers:    4,
	})
	require.NoError(t, err)
	return svc
}

func loadReport(t *testing.T, store storage.Store, kind domain.MediaKind) (domain.ImportedReport, bool) {
	t.Helper()
	report, found, err := storage.LoadReport(store, kind)
	require.NoError(t, err)
	return report, found
}

func TestRunScenarioImportsOnlyQualifyingMovie(t *testing.T) {
	lists := &fakeLists{items: []domain.CandidateItem{
		{Title: "Movie A", Rating: 8.5},
		{Title: "Movie B", Rating: 5.0},
	}}
	years := &fakeYears{years: map[string]int{"Movie A": 2020, "Movie B": 2019}}
	down := &fakeDownstream{excluded: domain.NewExclusionSet()}
	store := newMemStore()
	events := &fakeEvents{}

	out, err := newTestService(t, lists, years, down, store, events).Run(context.Background(), movieJob())
	require.NoError(t, err)

	assert.Equal(t, StageDone, out.Stage)
	assert.Equal(t, []string{"Movie A"}, down.submitted)
	assert.Equal(t, domain.ImportedReport{"Movie A"}, out.Imported)
	assert.Equal(t, domain.RunStats{Scraped: 2, Eligible: 1, Imported: 1}, out.Stats)

	report, found := loadReport(t, store, domain.KindMovie)
	require.True(t, found)
	assert.Equal(t, domain.ImportedReport{"Movie A"}, report)

	// Movie B cannot pass the rating threshold, so the catalog is never asked about it.
	assert.Equal(t, []string{"Movie A"}, years.asked)

	require.Len(t, events.events, 1)
	assert.Equal(t, out.RunID, events.events[0].RunID)
	assert.Equal(t, domain.ImportedReport{"Movie A"}, events.events[0].Imported)
}

func TestRunIsolatesItemFailures(t *testing.T) {
	lists := &fakeLists{items: []domain.CandidateItem{
		{Title: "One", Rating: 8, Year: 2010},
		{Title: "Two", Rating: 8, Year: 2011},
		{Title: "Three", Rating: 8, Year: 2012},
	}}
	down := &fakeDownstream{
		excluded: domain.NewExclusionSet(),
		failTitles: map[string]error{
			"Two": &domain.SubmissionError{Title: "Two", Stage: "create", Status: 500, Body: "boom"},
		},
	}
	store := newMemStore()

	out, err := newTestService(t, lists, nil, down, store, nil).Run(context.Background(), movieJob())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"One", "Two", "Three"}, down.submitted)
	assert.Equal(t, domain.ImportedReport{"One", "Three"}, out.Imported)
	assert.Equal(t, 1, out.Stats.Failed)

	report, _ := loadReport(t, store, domain.KindMovie)
	assert.Equal(t, domain.ImportedReport{"One", "Three"}, report)
}

func TestRunOmitsExistingAndUnresolvedItems(t *testing.T) {
	lists := &fakeLists{items: []domain.CandidateItem{
		{Title: "Known", Rating: 8, Year: 2010},
		{Title: "Fresh", Rating: 8, Year: 2011},
		{Title: "Obscure", Rating: 8, Year: 2012},
	}}
	down := &fakeDownstream{
		excluded:   domain.NewExclusionSet(),
		existing:   map[string]bool{"Known": true},
		failTitles: map[string]error{"Obscure": domain.ErrResolutionMiss},
	}
	store := newMemStore()

	out, err := newTestService(t, lists, nil, down, store, nil).Run(context.Background(), movieJob())
	require.NoError(t, err)
	assert.Equal(t, domain.ImportedReport{"Fresh"}, out.Imported)
	assert.Equal(t, domain.RunStats{Scraped: 3, Eligible: 3, Imported: 1, AlreadyPresent: 1, Failed: 1}, out.Stats)
}

func TestRunFailsFastOnExclusionError(t *testing.T) {
	lists := &fakeLists{items: []domain.CandidateItem{{Title: "Movie A", Rating: 9, Year: 2020}}}
	down := &fakeDownstream{exclErr: &domain.ExclusionFetchError{Service: "radarr", Page: 3, Status: 502}}
	store := newMemStore()
	require.NoError(t, storage.SaveReport(store, domain.KindMovie, domain.ImportedReport{"Previous"}))
	events := &fakeEvents{}

	out, err := newTestService(t, lists, nil, down, store, events).Run(context.Background(), movieJob())
	require.Error(t, err)
	assert.True(t, domain.IsRunFatal(err))
	assert.Equal(t, StageFetchExclusions, out.Stage)

	assert.Empty(t, down.submitted)
	assert.Equal(t, 1, store.sets, "report must not be rewritten")
	report, _ := loadReport(t, store, domain.KindMovie)
	assert.Equal(t, domain.ImportedReport{"Previous"}, report)
	assert.Empty(t, events.events)
}

func TestRunCancelledDuringEnrichKeepsPreviousReport(t *testing.T) {
	lists := &fakeLists{items: []domain.CandidateItem{
		{Title: "Movie A", Rating: 8.5},
		{Title: "Movie B", Rating: 9.0},
	}}
	down := &fakeDownstream{excluded: domain.NewExclusionSet()}
	store := newMemStore()
	require.NoError(t, storage.SaveReport(store, domain.KindMovie, domain.ImportedReport{"Previous"}))
	events := &fakeEvents{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := newTestService(t, lists, ctxYears{}, down, store, events).Run(ctx, movieJob())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StageEnrich, out.Stage)

	assert.Empty(t, down.submitted)
	assert.Equal(t, 1, store.sets)
	report, _ := loadReport(t, store, domain.KindMovie)
	assert.Equal(t, domain.ImportedReport{"Previous"}, report)
	assert.Empty(t, events.events)
}

func TestRunCancelledDuringSubmitKeepsPreviousReport(t *testing.T) {
	lists := &fakeLists{items: []domain.CandidateItem{
		{Title: "One", Rating: 8, Year: 2010},
		{Title: "Two", Rating: 8, Year: 2011},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	down := &fakeDownstream{excluded: domain.NewExclusionSet(), onSubmit: cancel}
	store := newMemStore()
	require.NoError(t, storage.SaveReport(store, domain.KindMovie, domain.ImportedReport{"Previous"}))

	out, err := newTestService(t, lists, nil, down, store, nil).Run(ctx, movieJob())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StageSubmit, out.Stage)

	assert.Equal(t, 1, store.sets)
	report, _ := loadReport(t, store, domain.KindMovie)
	assert.Equal(t, domain.ImportedReport{"Previous"}, report)
}

func TestRunAbortsOnListFailure(t *testing.T) {
	cases := []error{
		&domain.FetchError{URL: "https://example.com", Status: 503},
		&domain.ParseError{URL: "https://example.com", Reason: "structured data block"},
	}
	for _, listErr := range cases {
		down := &fakeDownstream{excluded: domain.NewExclusionSet()}
		store := newMemStore()

		out, err := newTestService(t, &fakeLists{err: listErr}, nil, down, store, nil).Run(context.Background(), movieJob())
		require.Error(t, err)
		assert.True(t, errors.Is(err, listErr))
		assert.Equal(t, StageFetchList, out.Stage)
		assert.Zero(t, store.sets)
		assert.Empty(t, down.submitted)
	}
}

func TestRunDropsOtherKindsAndExcludedTitles(t *testing.T) {
	lists := &fakeLists{items: []domain.CandidateItem{
		{Title: "Film", Rating: 8, Year: 2015, Kind: domain.KindMovie},
		{Title: "Show", Rating: 9, Year: 2015, Kind: domain.KindSeries},
		{Title: "Banned", Rating: 9, Year: 2016},
	}}
	down := &fakeDownstream{excluded: domain.NewExclusionSet("banned")}
	store := newMemStore()

	out, err := newTestService(t, lists, nil, down, store, nil).Run(context.Background(), movieJob())
	require.NoError(t, err)
	assert.Equal(t, []string{"Film"}, down.submitted)
	assert.Equal(t, 2, out.Stats.Scraped)
	assert.Equal(t, 1, out.Stats.Excluded)
}

func TestRunPersistsEmptyReport(t *testing.T) {
	down := &fakeDownstream{excluded: domain.NewExclusionSet()}
	store := newMemStore()
	require.NoError(t, storage.SaveReport(store, domain.KindMovie, domain.ImportedReport{"Old"}))

	_, err := newTestService(t, &fakeLists{}, nil, down, store, nil).Run(context.Background(), movieJob())
	require.NoError(t, err)

	report, found := loadReport(t, store, domain.KindMovie)
	require.True(t, found)
	assert.Empty(t, report)
}

func TestRunSurvivesEventFailure(t *testing.T) {
	lists := &fakeLists{items: []domain.CandidateItem{{Title: "Movie A", Rating: 9, Year: 2020}}}
	down := &fakeDownstream{excluded: domain.NewExclusionSet()}
	events := &fakeEvents{err: errors.New("sink down")}

	out, err := newTestService(t, lists, nil, down, newMemStore(), events).Run(context.Background(), movieJob())
	require.NoError(t, err)
	assert.Equal(t, StageDone, out.Stage)
	assert.Len(t, events.events, 1)
}

func TestRunRejectsInvalidCriteria(t *testing.T) {
	job := movieJob()
	job.Criteria.MinYear, job.Criteria.MaxYear = 2030, 2000
	down := &fakeDownstream{}

	_, err := newTestService(t, &fakeLists{}, nil, down, newMemStore(), nil).Run(context.Background(), job)
	require.Error(t, err)
	assert.False(t, domain.IsRunFatal(err))
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(Deps{Downstream: &fakeDownstream{}, Store: newMemStore()})
	assert.Error(t, err)
	_, err = NewService(Deps{Lists: &fakeLists{}, Store: newMemStore()})
	assert.Error(t, err)
	_, err = NewService(Deps{Lists: &fakeLists{}, Downstream: &fakeDownstream{}})
	assert.Error(t, err)
}
