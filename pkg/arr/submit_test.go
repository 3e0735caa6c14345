package arr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/trendarr/internal/domain"
	"github.com/samvad-hq/trendarr/pkg/httpclient"
)

// fakeLibrary emulates the lookup/create endpoints of a media service.
type fakeLibrary struct {
	mu       sync.Mutex
	idField  string
	titles   map[string]int64
	posts    []map[string]any
	createFn func(w http.ResponseWriter) bool
}

func newFakeLibrary(idField string) *fakeLibrary {
	return &fakeLibrary{idField: idField, titles: map[string]int64{}}
}

func (f *fakeLibrary) handler(lookupPath, createPath string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(apiKeyHeader) != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == lookupPath:
			term := strings.ToLower(r.URL.Query().Get("term"))
			var out []map[string]any
			for title, id := range f.titles {
				if strings.ToLower(title) == term {
					out = append(out, map[string]any{"title": title, f.idField: id})
				}
			}
			_ = json.NewEncoder(w).Encode(out)
		case r.Method == http.MethodPost && r.URL.Path == createPath:
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.posts = append(f.posts, body)
			if f.createFn != nil && f.createFn(w) {
				return
			}
			f.titles[body["title"].(string)] = int64(body[f.idField].(float64))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

type stubResolver struct {
	id    string
	found bool
	err   error
	calls int
}

func (s *stubResolver) ResolveCanonicalID(context.Context, string, domain.MediaKind) (string, bool, error) {
	s.calls++
	return s.id, s.found, s.err
}

func newTestArr(t *testing.T, kind domain.MediaKind, lib *fakeLibrary, resolver Resolver) (*Client, SubmitConfig) {
	t.Helper()
	flavor, err := FlavorFor(kind)
	require.NoError(t, err)
	srv := httptest.NewServer(lib.handler(flavor.LookupPath, flavor.CreatePath))
	t.Cleanup(srv.Close)

	c, err := NewClient(kind, httpclient.NewRestyClient(2*time.Second), resolver, nil)
	require.NoError(t, err)
	return c, SubmitConfig{
		Service:          Service{URL: srv.URL + "/", APIKey: "secret"},
		QualityProfileID: 4,
		RootFolderPath:   "/data/movies",
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	lib := newFakeLibrary("tmdbId")
	c, cfg := newTestArr(t, domain.KindMovie, lib, nil)
	item := domain.CandidateItem{Title: "Movie A", Year: 2020, Rating: 8.5, CanonicalID: "101", Kind: domain.KindMovie}

	first, err := c.Submit(context.Background(), item, cfg)
	require.NoError(t, err)
	assert.False(t, first.AlreadyExists)

	second, err := c.Submit(context.Background(), item, cfg)
	require.NoError(t, err)
	assert.True(t, second.AlreadyExists)

	require.Len(t, lib.posts, 1, "second submission must not write")
	post := lib.posts[0]
	assert.Equal(t, "Movie A", post["title"])
	assert.EqualValues(t, 101, post["tmdbId"])
	assert.EqualValues(t, 2020, post["year"])
	assert.EqualValues(t, 4, post["qualityProfileId"])
	assert.Equal(t, "/data/movies", post["rootFolderPath"])
	assert.Equal(t, "movie-a", post["titleSlug"])
	assert.Equal(t, true, post["monitored"])
	assert.Equal(t, map[string]any{"searchForMovie": true}, post["addOptions"])
}

func TestSubmitLookupMatchesTitleCaseInsensitively(t *testing.T) {
	lib := newFakeLibrary("tmdbId")
	lib.titles["movie a"] = 101
	c, cfg := newTestArr(t, domain.KindMovie, lib, nil)

	res, err := c.Submit(context.Background(), domain.CandidateItem{Title: "Movie A", CanonicalID: "101"}, cfg)
	require.NoError(t, err)
	assert.True(t, res.AlreadyExists)
	assert.Empty(t, lib.posts)
}

func TestSubmitTreatsDuplicateResponsesAsExisting(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"validator", http.StatusBadRequest, `[{"propertyName":"TmdbId","errorMessage":"This movie has already been added","errorCode":"MovieExistsValidator"}]`},
		{"conflict", http.StatusConflict, `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lib := newFakeLibrary("tmdbId")
			lib.createFn = func(w http.ResponseWriter) bool {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
				return true
			}
			c, cfg := newTestArr(t, domain.KindMovie, lib, nil)

			res, err := c.Submit(context.Background(), domain.CandidateItem{Title: "Movie A", CanonicalID: "101"}, cfg)
			require.NoError(t, err)
			assert.True(t, res.AlreadyExists)
		})
	}
}

func TestSubmitReturnsSubmissionErrorOnFailure(t *testing.T) {
	lib := newFakeLibrary("tmdbId")
	lib.createFn = func(w http.ResponseWriter) bool {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`boom`))
		return true
	}
	c, cfg := newTestArr(t, domain.KindMovie, lib, nil)

	res, err := c.Submit(context.Background(), domain.CandidateItem{Title: "Movie A", CanonicalID: "101"}, cfg)
	require.Error(t, err)
	assert.False(t, res.AlreadyExists)

	var subErr *domain.SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, http.StatusInternalServerError, subErr.Status)
	assert.Equal(t, "create", subErr.Stage)
	assert.Equal(t, "boom", subErr.Body)
	assert.False(t, domain.IsRunFatal(err))
}

func TestSubmitPlainBadRequestIsNotDuplicate(t *testing.T) {
	lib := newFakeLibrary("tmdbId")
	lib.createFn = func(w http.ResponseWriter) bool {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`[{"errorMessage":"Root folder does not exist"}]`))
		return true
	}
	c, cfg := newTestArr(t, domain.KindMovie, lib, nil)

	_, err := c.Submit(context.Background(), domain.CandidateItem{Title: "Movie A", CanonicalID: "101"}, cfg)
	var subErr *domain.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, http.StatusBadRequest, subErr.Status)
}

func TestSubmitResolvesMissingCanonicalID(t *testing.T) {
	lib := newFakeLibrary("tvdbId")
	resolver := &stubResolver{id: "81189", found: true}
	c, cfg := newTestArr(t, domain.KindSeries, lib, resolver)

	res, err := c.Submit(context.Background(), domain.CandidateItem{Title: "Show A", Year: 2008, Kind: domain.KindSeries}, cfg)
	require.NoError(t, err)
	assert.False(t, res.AlreadyExists)
	assert.Equal(t, 1, resolver.calls)

	require.Len(t, lib.posts, 1)
	assert.EqualValues(t, 81189, lib.posts[0]["tvdbId"])
	assert.Equal(t, map[string]any{"searchForSeries": true}, lib.posts[0]["addOptions"])
}

func TestSubmitResolutionMissSkipsWrite(t *testing.T) {
	lib := newFakeLibrary("tmdbId")
	resolver := &stubResolver{found: false}
	c, cfg := newTestArr(t, domain.KindMovie, lib, resolver)

	res, err := c.Submit(context.Background(), domain.CandidateItem{Title: "Unknown"}, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrResolutionMiss)
	assert.False(t, res.AlreadyExists)
	assert.Empty(t, lib.posts)
}

func TestSubmitLookupFailure(t *testing.T) {
	c, err := NewClient(domain.KindMovie, httpclient.NewRestyClient(time.Second), nil, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err = c.Submit(context.Background(), domain.CandidateItem{Title: "Movie A", CanonicalID: "1"}, SubmitConfig{Service: Service{URL: srv.URL}})
	var subErr *domain.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "lookup", subErr.Stage)
	assert.Equal(t, http.StatusUnauthorized, subErr.Status)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "the-dark-knight", Slug(" The Dark Knight "))
	assert.Equal(t, "movie", Slug("Movie"))
}
